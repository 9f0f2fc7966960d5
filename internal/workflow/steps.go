// internal/workflow/steps.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/api/schemas"
	"github.com/xkilldash9x/svccheck/internal/browser"
	"github.com/xkilldash9x/svccheck/internal/extractor"
	"github.com/xkilldash9x/svccheck/internal/matcher"
)

const (
	listDong = "dong"
	listHo   = "ho"
)

func (r *run) loadDocument(ctx context.Context) StepResult {
	if err := r.doc.Navigate(ctx, r.d.workflow.TargetURL); err != nil {
		return skipped("navigation failed", err)
	}
	readyCtx := ctx
	if t := r.d.workflow.ReadyTimeout; t > 0 {
		var cancel context.CancelFunc
		readyCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	if err := r.doc.WaitReady(readyCtx); err != nil {
		// The page may still be usable; later steps decide.
		return StepResult{Outcome: Succeeded, Technique: "navigate", Reason: "document ready state not observed", Err: err}
	}
	return succeeded("navigate")
}

// dismissPopups closes whatever banners or modals are showing. Each popup
// descriptor is tried on its own so several overlays can be closed.
func (r *run) dismissPopups(ctx context.Context) StepResult {
	closed := 0
	for _, desc := range r.d.locators.Popups {
		el, err := r.d.locator.Find(ctx, r.doc, schemas.LocatorStrategy{desc})
		if err != nil {
			continue
		}
		if _, err := click(ctx, el); err != nil {
			r.logger.Debug("Failed to close popup.", zap.Stringer("descriptor", desc), zap.Error(err))
			continue
		}
		closed++
		settle(ctx, r.d.workflow.Settle.AfterPopup)
	}
	if closed == 0 {
		return skipped("no popup present", nil)
	}
	return succeeded(fmt.Sprintf("closed %d", closed))
}

func (r *run) locateInput(ctx context.Context) StepResult {
	el, err := r.d.locator.WaitFor(ctx, r.doc, r.d.locators.Input, r.d.workflow.InputWaitTimeout)
	if err != nil {
		return critical(fmt.Errorf("%w: %w", ErrInputNotFound, err))
	}
	r.input = el
	return succeeded("locator")
}

func (r *run) enterValue(ctx context.Context) StepResult {
	name, err := firstWorking(ctx, enterTechniques(r.input, r.req.Address)...)
	if err != nil {
		return skipped("address could not be entered", err)
	}
	return succeeded(name)
}

// submit tries the dedicated search control, then the Enter key on the
// input, then submitting the input's form. It runs even when entering the
// value was skipped, since the page may have been pre-filled.
func (r *run) submit(ctx context.Context) StepResult {
	if r.input == nil {
		return critical(fmt.Errorf("%w: no input element", ErrSubmissionFailed))
	}
	name, err := firstWorking(ctx,
		technique{name: "submitControl", do: func(ctx context.Context) error {
			btn, err := r.d.locator.Find(ctx, r.doc, r.d.locators.Submit)
			if err != nil {
				return err
			}
			_ = btn.ScrollIntoView(ctx)
			return btn.Click(ctx)
		}},
		technique{name: "enterKey", do: r.input.PressEnter},
		technique{name: "formSubmit", do: r.input.SubmitForm},
	)
	if err != nil {
		return critical(fmt.Errorf("%w: %w", ErrSubmissionFailed, err))
	}
	settle(ctx, r.d.workflow.Settle.AfterSubmit)
	return succeeded(name)
}

// listResults collects the result list. Radio-style results are preferred as
// the element to select; plain list items supply the raw lines.
func (r *run) listResults(ctx context.Context) StepResult {
	via := ""
	if radios, err := r.d.locator.Present(ctx, r.doc, r.d.locators.ResultRadios); err == nil && len(radios) > 0 {
		if label := r.radioLabel(ctx, radios[0]); label != nil {
			if _, err := click(ctx, label); err == nil {
				r.selectable = label
				via = "resultRadio"
				settle(ctx, r.d.workflow.Settle.AfterSelect)
			}
		}
	}

	items, err := r.d.locator.Collect(ctx, r.doc, r.d.locators.ResultItems)
	if err == nil {
		for _, el := range items {
			text, err := el.Text(ctx)
			if err != nil || strings.TrimSpace(text) == "" {
				continue
			}
			r.lines = append(r.lines, strings.TrimSpace(text))
			if r.selectable == nil {
				r.selectable = el
			}
		}
		if len(r.lines) > 0 && via == "" {
			via = "resultItems"
		}
	}

	if via == "" {
		return skipped("no results listed", err)
	}
	return succeeded(via)
}

// radioLabel finds the label bound to a radio, or the radio itself when it
// has no label.
func (r *run) radioLabel(ctx context.Context, radio browser.Element) browser.Element {
	id, _, err := radio.Attribute(ctx, "id")
	if err != nil {
		return nil
	}
	if id == "" {
		id = "radio_01"
	}
	label, err := r.d.locator.Find(ctx, r.doc, schemas.LocatorStrategy{schemas.CSS(fmt.Sprintf(`label[for=%q]`, id))})
	if err != nil {
		return radio
	}
	return label
}

func (r *run) selectAddress(ctx context.Context) StepResult {
	if r.selectable == nil {
		return skipped("no selectable result", nil)
	}
	name, err := click(ctx, r.selectable)
	if err != nil {
		return skipped("first result could not be selected", err)
	}
	settle(ctx, r.d.workflow.Settle.AfterSelect)

	if detail := r.details(ctx); detail != "" {
		r.result.SelectedDetail = detail
		return succeeded(name)
	}

	body, err := r.doc.BodyText(ctx)
	if err != nil {
		return StepResult{Outcome: Succeeded, Technique: name, Reason: "no detail text", Err: err}
	}
	r.result.SelectedDetail = truncateRunes(strings.TrimSpace(body), r.d.workflow.BodyPreviewRunes)
	return StepResult{Outcome: Succeeded, Technique: name, Reason: "detail from body preview"}
}

// details returns the text of the first detail descriptor yielding blocks
// longer than the configured minimum.
func (r *run) details(ctx context.Context) string {
	for _, desc := range r.d.locators.Details {
		els, err := r.d.locator.Collect(ctx, r.doc, schemas.LocatorStrategy{desc})
		if err != nil {
			if ctx.Err() != nil {
				return ""
			}
			continue
		}
		var blocks []string
		for _, el := range els {
			text, err := el.Text(ctx)
			if err != nil {
				continue
			}
			if text = strings.TrimSpace(text); utf8.RuneCountInString(text) > r.d.workflow.DetailMinRunes {
				blocks = append(blocks, text)
			}
		}
		if len(blocks) > 0 {
			return strings.Join(blocks, "\n")
		}
	}
	return ""
}

// triggerServiceQuery picks the service radio, presses the service query
// control and closes the confirmation popup if one shows up.
func (r *run) triggerServiceQuery(ctx context.Context) StepResult {
	if radio, err := r.d.locator.Find(ctx, r.doc, r.d.locators.ServiceRadio); err == nil {
		if _, err := click(ctx, radio); err != nil {
			r.logger.Debug("Failed to pick service radio.", zap.Error(err))
		}
	}

	trigger, err := r.d.locator.Find(ctx, r.doc, r.d.locators.ServiceTrigger)
	if err != nil {
		return skipped("service query control not found", err)
	}
	name, err := click(ctx, trigger)
	if err != nil {
		return skipped("service query control could not be pressed", err)
	}
	settle(ctx, r.d.workflow.Settle.AfterService)

	if confirm, err := r.d.locator.Find(ctx, r.doc, r.d.locators.ServiceConfirm); err == nil {
		if _, err := click(ctx, confirm); err == nil {
			settle(ctx, r.d.workflow.Settle.AfterPopup)
		}
	}
	return succeeded(name)
}

func (r *run) openDong(ctx context.Context) StepResult {
	if !r.req.HasDong() {
		return skipped("not requested", nil)
	}
	return r.openList(ctx, listDong, r.d.locators.DongToggle, r.d.locators.DongList)
}

func (r *run) selectDong(ctx context.Context) StepResult {
	if !r.req.HasDong() {
		return skipped("not requested", nil)
	}
	if r.expanded != listDong {
		return skipped("dong list is not open", nil)
	}
	m, res := r.pick(ctx, r.req.Dong, r.d.locators.DongOptions)
	if m != nil {
		r.result.DongMatch = m
	}
	return res
}

// openHo closes a dong list left open by a failed selection before opening
// the ho list, so only one sub-unit list is ever open.
func (r *run) openHo(ctx context.Context) StepResult {
	if !r.req.HasHo() {
		return skipped("not requested", nil)
	}
	if r.expanded == listDong {
		if toggle, err := r.d.locator.Find(ctx, r.doc, r.d.locators.DongToggle); err == nil {
			if _, err := click(ctx, toggle); err == nil {
				settle(ctx, r.d.workflow.Settle.AfterToggle)
			}
		}
		r.expanded = ""
	}
	return r.openList(ctx, listHo, r.d.locators.HoToggle, r.d.locators.HoList)
}

func (r *run) selectHo(ctx context.Context) StepResult {
	if !r.req.HasHo() {
		return skipped("not requested", nil)
	}
	if r.expanded != listHo {
		return skipped("ho list is not open", nil)
	}
	m, res := r.pick(ctx, r.req.Ho, r.d.locators.HoOptions)
	if m != nil {
		r.result.HoMatch = m
	}
	return res
}

func (r *run) triggerFinalQuery(ctx context.Context) StepResult {
	btn, err := r.d.locator.Find(ctx, r.doc, r.d.locators.FinalQuery)
	if err != nil {
		return skipped("final query control not found", err)
	}
	name, err := click(ctx, btn)
	if err != nil {
		return skipped("final query control could not be pressed", err)
	}
	settle(ctx, r.d.workflow.Settle.AfterFinal)
	return succeeded(name)
}

// extractResult prefers a structured result container and falls back to
// keyword windows over the page text.
func (r *run) extractResult(ctx context.Context) StepResult {
	if els, err := r.d.locator.Collect(ctx, r.doc, r.d.locators.ServiceResult); err == nil {
		var parts []string
		for _, el := range els {
			if text, err := el.Text(ctx); err == nil && strings.TrimSpace(text) != "" {
				parts = append(parts, strings.TrimSpace(text))
			}
		}
		if len(parts) > 0 {
			r.result.ServiceSummary = strings.Join(parts, "\n")
			return succeeded("structuredContainer")
		}
	}

	body, err := r.doc.BodyText(ctx)
	if err != nil {
		return skipped("page text unavailable", err)
	}
	ext := r.d.extraction
	summary := extractor.Extract(body, ext.Categories, ext.WindowSize, ext.MaxBlocksPerCategory)
	if summary == "" {
		return skipped("no service information found", nil)
	}
	r.result.ServiceSummary = summary
	return succeeded("keywordWindows")
}

// -- sub-unit lists --

// openList presses the list's toggle when there is one and waits for the
// list to show.
func (r *run) openList(ctx context.Context, name string, toggle, list schemas.LocatorStrategy) StepResult {
	via := "alreadyOpen"
	if el, err := r.d.locator.Find(ctx, r.doc, toggle); err == nil {
		if t, err := click(ctx, el); err == nil {
			via = t
			settle(ctx, r.d.workflow.Settle.AfterToggle)
		}
	}
	if _, err := r.d.locator.WaitFor(ctx, r.doc, list, r.d.workflow.DropdownWaitTimeout); err != nil {
		return skipped(name+" list did not appear", err)
	}
	settle(ctx, r.d.workflow.Settle.AfterListOpen)
	r.expanded = name
	return succeeded(via)
}

// pick reads the options, lets the matcher choose one and clicks it. The
// returned match is nil unless the click went through.
func (r *run) pick(ctx context.Context, label string, options schemas.LocatorStrategy) (*schemas.MatchResult, StepResult) {
	els, err := r.d.locator.Present(ctx, r.doc, options)
	if err != nil {
		return nil, skipped("no options listed", err)
	}
	candidates := r.candidates(ctx, els)
	m, ok := matcher.MatchUnit(label, candidates)
	if !ok {
		return nil, skipped("no options listed", nil)
	}
	name, err := click(ctx, els[m.Option.Index])
	if err != nil {
		return nil, skipped("option could not be selected", err)
	}
	settle(ctx, r.d.workflow.Settle.AfterOption)
	r.expanded = ""
	r.logger.Info("Selected sub-unit option.",
		zap.String("target", label),
		zap.String("option", m.Option.DisplayText),
		zap.String("reason", string(m.Reason)))
	return &m, StepResult{Outcome: Succeeded, Technique: name, Reason: string(m.Reason)}
}

func (r *run) candidates(ctx context.Context, els []browser.Element) []schemas.CandidateOption {
	out := make([]schemas.CandidateOption, 0, len(els))
	for i, el := range els {
		c := schemas.CandidateOption{Index: i}
		var errs []error
		var err error
		if c.DisplayText, err = el.Text(ctx); err != nil {
			errs = append(errs, err)
		}
		if r.d.locators.StructuredValue != "" {
			if c.StructuredValue, _, err = el.Attribute(ctx, r.d.locators.StructuredValue); err != nil {
				errs = append(errs, err)
			}
		}
		if c.Visible, err = el.Visible(ctx); err != nil {
			errs = append(errs, err)
		}
		if c.Enabled, err = el.Enabled(ctx); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			r.logger.Debug("Incomplete option probe.", zap.Int("index", i), zap.Error(errors.Join(errs...)))
		}
		out = append(out, c)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
