// internal/workflow/states.go
package workflow

import (
	"errors"

	"github.com/xkilldash9x/svccheck/api/schemas"
)

// State names one stage of the lookup.
type State string

const (
	StateStart                 State = "Start"
	StateDocumentLoaded        State = "DocumentLoaded"
	StatePopupsDismissed       State = "PopupsDismissed"
	StateInputLocated          State = "InputLocated"
	StateValueEntered          State = "ValueEntered"
	StateSubmitted             State = "Submitted"
	StateResultsListed         State = "ResultsListed"
	StateAddressSelected       State = "AddressSelected"
	StateServiceQueryTriggered State = "ServiceQueryTriggered"
	StateDongDropdownOpen      State = "DongDropdownOpen"
	StateDongSelected          State = "DongSelected"
	StateHoDropdownOpen        State = "HoDropdownOpen"
	StateHoSelected            State = "HoSelected"
	StateFinalQueryTriggered   State = "FinalQueryTriggered"
	StateResultExtracted       State = "ResultExtracted"
	StateSuccess               State = "Success"
	StateError                 State = "Error"
)

// Outcome tags what a step did. The driver decides what happens next from the
// tag alone; steps never abort the run themselves.
type Outcome int

const (
	Succeeded Outcome = iota
	Skipped
	Critical
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// StepResult is returned by every step.
type StepResult struct {
	Outcome   Outcome
	Technique string
	Reason    string
	Err       error
}

func succeeded(technique string) StepResult {
	return StepResult{Outcome: Succeeded, Technique: technique}
}

func skipped(reason string, err error) StepResult {
	return StepResult{Outcome: Skipped, Reason: reason, Err: err}
}

func critical(err error) StepResult {
	return StepResult{Outcome: Critical, Err: err}
}

// Sentinel errors for the two critical gates.
var (
	ErrInputNotFound    = errors.New("address input not found")
	ErrSubmissionFailed = errors.New("address submission failed")
)

// trace converts a step result into its reported form.
func (r StepResult) trace(state State) schemas.StepTrace {
	reason := r.Reason
	if r.Err != nil {
		if reason == "" {
			reason = r.Err.Error()
		} else {
			reason += ": " + r.Err.Error()
		}
	}
	return schemas.StepTrace{
		State:     string(state),
		Outcome:   r.Outcome.String(),
		Technique: r.Technique,
		Reason:    reason,
	}
}
