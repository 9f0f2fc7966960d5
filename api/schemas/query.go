// api/schemas/query.go
package schemas

import (
	"errors"
	"strings"
)

// ErrAddressRequired is returned by QueryRequest.Validate when no address was supplied.
var ErrAddressRequired = errors.New("address is required")

// -- Request --

// QueryRequest is a single serviceability lookup. Dong and Ho are optional
// building sub-unit identifiers (e.g. "201" or "201동", "101" or "101호").
// It is passed by value and never mutated once built.
type QueryRequest struct {
	Address string `json:"address"`
	Dong    string `json:"dong,omitempty"`
	Ho      string `json:"ho,omitempty"`
}

// NewQueryRequest builds a request with surrounding whitespace removed from every field.
func NewQueryRequest(address, dong, ho string) QueryRequest {
	return QueryRequest{
		Address: strings.TrimSpace(address),
		Dong:    strings.TrimSpace(dong),
		Ho:      strings.TrimSpace(ho),
	}
}

// Validate checks the request before any remote interaction takes place.
func (r QueryRequest) Validate() error {
	if strings.TrimSpace(r.Address) == "" {
		return ErrAddressRequired
	}
	return nil
}

// HasDong reports whether a dong narrowing was requested.
func (r QueryRequest) HasDong() bool { return strings.TrimSpace(r.Dong) != "" }

// HasHo reports whether a ho narrowing was requested.
func (r QueryRequest) HasHo() bool { return strings.TrimSpace(r.Ho) != "" }

// -- Result --

// Status is the terminal state of a lookup.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// StepTrace records what happened in one workflow state.
type StepTrace struct {
	State     string `json:"state"`
	Outcome   string `json:"outcome"`
	Technique string `json:"technique,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// QueryResult is the only thing a lookup ever hands back to its caller; failures
// are expressed through Status and Message rather than a returned error.
type QueryResult struct {
	Status                 Status       `json:"status"`
	Message                string       `json:"message"`
	RawResultLines         []string     `json:"raw_result_lines"`
	SelectedDetail         string       `json:"selected_detail,omitempty"`
	ServiceSummary         string       `json:"service_summary,omitempty"`
	DiagnosticArtifactPath string       `json:"diagnostic_artifact_path,omitempty"`
	ResultSnapshotPath     string       `json:"result_snapshot_path,omitempty"`
	DongMatch              *MatchResult `json:"dong_match,omitempty"`
	HoMatch                *MatchResult `json:"ho_match,omitempty"`
	Trace                  []StepTrace  `json:"trace,omitempty"`
}

// Succeeded is a convenience check used by callers and tests.
func (r QueryResult) Succeeded() bool { return r.Status == StatusSuccess }

// ErrorResult builds an error result with the given message.
func ErrorResult(message string) QueryResult {
	return QueryResult{
		Status:         StatusError,
		Message:        message,
		RawResultLines: []string{},
	}
}
