// internal/workflow/driver.go
// Package workflow drives the address serviceability lookup against the remote
// page as a linear state machine. Each state is a step with a fixed list of
// techniques; only locating the address input and submitting it are critical,
// every other step degrades to a skip.
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/api/schemas"
	"github.com/xkilldash9x/svccheck/internal/browser"
	"github.com/xkilldash9x/svccheck/internal/config"
	"github.com/xkilldash9x/svccheck/internal/locator"
)

const (
	defaultStepTimeout     = 20 * time.Second
	defaultTeardownTimeout = 10 * time.Second
)

// Capturer persists snapshots of the page: diagnostic evidence of a failed
// lookup, and the result page of a successful one.
type Capturer interface {
	Capture(ctx context.Context, doc browser.Document) (string, bool)
	CaptureResult(ctx context.Context, doc browser.Document) (string, bool)
}

// Driver runs lookups. It holds no per-request state, so one Driver serves
// any number of concurrent lookups, each in its own session.
type Driver struct {
	launcher   browser.Launcher
	locator    *locator.Locator
	capturer   Capturer
	workflow   config.WorkflowConfig
	locators   config.LocatorsConfig
	extraction config.ExtractionConfig
	batch      config.BatchConfig
	logger     *zap.Logger
}

// NewDriver creates a Driver. capturer may be nil to disable diagnostics.
func NewDriver(cfg config.Interface, launcher browser.Launcher, capturer Capturer, logger *zap.Logger) *Driver {
	wf := cfg.Workflow()
	logger = logger.Named("workflow")
	return &Driver{
		launcher:   launcher,
		locator:    locator.New(logger, wf.MaxFrameDepth, wf.PollInterval),
		capturer:   capturer,
		workflow:   wf,
		locators:   cfg.Locators().WithDefaults(),
		extraction: cfg.Extraction(),
		batch:      cfg.Batch(),
		logger:     logger,
	}
}

// Run performs one lookup in a fresh session. It never returns an error and
// never panics; every failure is reported through the result's status.
func (d *Driver) Run(ctx context.Context, req schemas.QueryRequest) (result schemas.QueryResult) {
	logger := d.logger.With(zap.String("address", req.Address), zap.String("dong", req.Dong), zap.String("ho", req.Ho))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Lookup panicked.", zap.Any("panic", r), zap.Stack("stack"))
			result = schemas.ErrorResult(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := req.Validate(); err != nil {
		logger.Warn("Rejected lookup request.", zap.Error(err))
		return schemas.ErrorResult(err.Error())
	}

	doc, err := d.launcher.NewSession(ctx)
	if err != nil {
		logger.Error("Failed to start browsing session.", zap.Error(err))
		return schemas.ErrorResult(fmt.Sprintf("failed to start browsing session: %v", err))
	}

	keep := false
	defer func() {
		if keep {
			logger.Info("Keeping browsing session open after success.")
			return
		}
		d.teardown(ctx, doc, logger)
	}()

	r := &run{d: d, req: req, doc: doc, logger: logger}
	result = r.execute(ctx)
	keep = result.Succeeded() && d.workflow.KeepSessionOnSuccess
	return result
}

// teardown closes the session with a context detached from the caller's, so a
// lookup that ran out of time still releases its browser tab.
func (d *Driver) teardown(ctx context.Context, doc browser.Document, logger *zap.Logger) {
	timeout := d.workflow.TeardownTimeout
	if timeout <= 0 {
		timeout = defaultTeardownTimeout
	}
	tctx, cancel := context.WithTimeout(browser.Detach(ctx), timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Session teardown panicked.", zap.Any("panic", r))
		}
	}()

	if err := doc.Close(tctx); err != nil {
		logger.Warn("Failed to tear down browsing session.", zap.Error(err))
		return
	}
	logger.Debug("Browsing session torn down.")
}

func (d *Driver) stepTimeout() time.Duration {
	if d.workflow.StepTimeout <= 0 {
		return defaultStepTimeout
	}
	return d.workflow.StepTimeout
}

// step binds a state to the function that reaches it.
type step struct {
	state    State
	critical bool
	run      func(ctx context.Context) StepResult
}

// run carries the state of one lookup. It is used by a single goroutine.
type run struct {
	d      *Driver
	req    schemas.QueryRequest
	doc    browser.Document
	logger *zap.Logger

	input      browser.Element
	selectable browser.Element
	// expanded is the sub-unit list currently open, if any.
	expanded string

	lines   []string
	result  schemas.QueryResult
	trace   []schemas.StepTrace
	current State
}

func (r *run) steps() []step {
	return []step{
		{state: StateDocumentLoaded, run: r.loadDocument},
		{state: StatePopupsDismissed, run: r.dismissPopups},
		{state: StateInputLocated, critical: true, run: r.locateInput},
		{state: StateValueEntered, run: r.enterValue},
		{state: StateSubmitted, critical: true, run: r.submit},
		{state: StateResultsListed, run: r.listResults},
		{state: StateAddressSelected, run: r.selectAddress},
		{state: StateServiceQueryTriggered, run: r.triggerServiceQuery},
		{state: StateDongDropdownOpen, run: r.openDong},
		{state: StateDongSelected, run: r.selectDong},
		{state: StateHoDropdownOpen, run: r.openHo},
		{state: StateHoSelected, run: r.selectHo},
		{state: StateFinalQueryTriggered, run: r.triggerFinalQuery},
		{state: StateResultExtracted, run: r.extractResult},
	}
}

// execute walks the transition table. A critical step that does not succeed
// moves the run to Error; anything else moves it forward.
func (r *run) execute(ctx context.Context) (result schemas.QueryResult) {
	r.current = StateStart
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Step panicked.", zap.String("state", string(r.current)), zap.Any("panic", p), zap.Stack("stack"))
			result = r.fail(ctx, fmt.Sprintf("internal error in %s: %v", r.current, p))
		}
	}()

	for _, s := range r.steps() {
		r.current = s.state
		res := r.runStep(ctx, s)
		r.trace = append(r.trace, res.trace(s.state))

		if res.Outcome == Critical || (s.critical && res.Outcome != Succeeded) {
			r.logger.Warn("Critical step failed.", zap.String("state", string(s.state)), zap.Error(res.Err))
			return r.fail(ctx, criticalMessage(s.state, res))
		}
	}
	r.current = StateSuccess
	return r.succeed(ctx)
}

func (r *run) runStep(ctx context.Context, s step) StepResult {
	stepCtx, cancel := context.WithTimeout(ctx, r.d.stepTimeout())
	defer cancel()

	start := time.Now()
	res := s.run(stepCtx)
	fields := []zap.Field{
		zap.String("state", string(s.state)),
		zap.Stringer("outcome", res.Outcome),
		zap.Duration("elapsed", time.Since(start)),
	}
	if res.Technique != "" {
		fields = append(fields, zap.String("technique", res.Technique))
	}
	if res.Reason != "" {
		fields = append(fields, zap.String("reason", res.Reason))
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	if res.Outcome == Succeeded {
		r.logger.Debug("Step completed.", fields...)
	} else {
		r.logger.Info("Step did not complete.", fields...)
	}
	return res
}

func criticalMessage(state State, res StepResult) string {
	switch state {
	case StateInputLocated:
		return ErrInputNotFound.Error()
	case StateSubmitted:
		return ErrSubmissionFailed.Error()
	}
	if res.Err != nil {
		return fmt.Sprintf("%s failed: %v", state, res.Err)
	}
	return fmt.Sprintf("%s failed", state)
}

// fail builds the error result and attempts a diagnostic capture.
func (r *run) fail(ctx context.Context, message string) schemas.QueryResult {
	res := schemas.ErrorResult(message)
	res.RawResultLines = r.rawLines()
	res.Trace = r.trace

	if r.d.capturer != nil {
		cctx, cancel := context.WithTimeout(browser.Detach(ctx), r.d.stepTimeout())
		defer cancel()
		if path, ok := r.d.capturer.Capture(cctx, r.doc); ok {
			res.DiagnosticArtifactPath = path
		}
	}
	return res
}

func (r *run) succeed(ctx context.Context) schemas.QueryResult {
	res := r.result
	if r.d.capturer != nil {
		cctx, cancel := context.WithTimeout(browser.Detach(ctx), r.d.stepTimeout())
		defer cancel()
		if path, ok := r.d.capturer.CaptureResult(cctx, r.doc); ok {
			res.ResultSnapshotPath = path
		}
	}
	res.Status = schemas.StatusSuccess
	res.RawResultLines = r.rawLines()
	res.Trace = r.trace
	res.Message = fmt.Sprintf("Address lookup completed with %d results.", len(res.RawResultLines))
	if res.SelectedDetail != "" {
		res.Message += "\nThe first result was selected automatically."
	}
	return res
}

func (r *run) rawLines() []string {
	if r.lines == nil {
		return []string{}
	}
	return append([]string(nil), r.lines...)
}
