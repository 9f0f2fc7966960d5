// internal/browser/cdp/session.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/internal/browser"
)

const closeTimeout = 10 * time.Second

// Session is one browser tab. Frames entered through EnterFrame are kept as a
// stack of content document nodes; the top of the stack is the root of every query.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu      sync.Mutex
	frames  []*cdproto.Node
	closed  bool
	onClose func()
}

var _ browser.Document = (*Session)(nil)

func newSession(tabCtx context.Context, cancel context.CancelFunc, logger *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.Named("session").With(zap.String("session_id", id)),
	}
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// run executes actions on the tab under the caller's deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return browser.ErrSessionClosed
	}

	runCtx, cancel := browser.CombineContext(s.ctx, ctx)
	defer cancel()
	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		// Report the caller's own deadline rather than the derived cancellation.
		return ctx.Err()
	}
	return err
}

// scopeRoot returns the node queries start from, nil for the top-level document.
func (s *Session) scopeRoot() *cdproto.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *Session) queryOpts() []chromedp.QueryOption {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if root := s.scopeRoot(); root != nil {
		opts = append(opts, chromedp.FromNode(root))
	}
	return opts
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating session.", zap.String("url", url))
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// WaitReady polls until the top-level document has finished loading.
func (s *Session) WaitReady(ctx context.Context) error {
	for {
		var state string
		if err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return fmt.Errorf("failed to read document state: %w", err)
		}
		if state == "complete" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (s *Session) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	var nodes []*cdproto.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, s.queryOpts()...)); err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	elements := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &element{session: s, node: n})
	}
	return elements, nil
}

type frame struct {
	node *cdproto.Node
}

func (f *frame) Name() string {
	if id := f.node.AttributeValue("id"); id != "" {
		return "iframe#" + id
	}
	if name := f.node.AttributeValue("name"); name != "" {
		return "iframe[name=" + name + "]"
	}
	return f.node.AttributeValue("src")
}

func (s *Session) Frames(ctx context.Context) ([]browser.Frame, error) {
	var nodes []*cdproto.Node
	if err := s.run(ctx, chromedp.Nodes("iframe, frame", &nodes, s.queryOpts()...)); err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	frames := make([]browser.Frame, 0, len(nodes))
	for _, n := range nodes {
		frames = append(frames, &frame{node: n})
	}
	return frames, nil
}

// EnterFrame pushes the frame onto the scope stack. The content document must
// be reachable from this target; out-of-process frames are rejected.
func (s *Session) EnterFrame(ctx context.Context, f browser.Frame) (browser.FrameScope, error) {
	fr, ok := f.(*frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame handle %T", f)
	}
	// Probe the content document so an unreachable frame fails here rather
	// than in every query issued inside it.
	var reachable bool
	probe := chromedp.ActionFunc(func(c context.Context) error {
		return callOnNode(c, fr.node, `function() { return !!this.contentDocument; }`, &reachable)
	})
	if err := s.run(ctx, probe); err != nil {
		return nil, fmt.Errorf("failed to enter frame %s: %w", fr.Name(), err)
	}
	if !reachable {
		return nil, fmt.Errorf("frame %s content is not reachable", fr.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, browser.ErrSessionClosed
	}
	root := fr.node
	if root.ContentDocument != nil {
		root = root.ContentDocument
	}
	scope := &frameScope{session: s, restoreTo: len(s.frames)}
	s.frames = append(s.frames, root)
	return scope, nil
}

type frameScope struct {
	session   *Session
	restoreTo int
	once      sync.Once
}

func (fs *frameScope) Release() error {
	fs.once.Do(func() {
		fs.session.mu.Lock()
		defer fs.session.mu.Unlock()
		if len(fs.session.frames) > fs.restoreTo {
			fs.session.frames = fs.session.frames[:fs.restoreTo]
		}
	})
	return nil
}

func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	root := s.scopeRoot()
	var action chromedp.Action
	if root == nil {
		action = chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)
	} else {
		action = chromedp.ActionFunc(func(c context.Context) error {
			return callOnNode(c, root,
				`function() {
					const d = this.contentDocument || (this.nodeType === 9 ? this : null);
					return d && d.body ? d.body.innerText : "";
				}`, &text)
		})
	}
	if err := s.run(ctx, action); err != nil {
		return "", fmt.Errorf("failed to read body text: %w", err)
	}
	return text, nil
}

// Snapshot captures a PNG of the viewport.
func (s *Session) Snapshot(ctx context.Context) (browser.Snapshot, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return browser.Snapshot{}, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return browser.Snapshot{Data: buf, MediaType: "image/png"}, nil
}

// Close closes the tab. It waits for the tab to go away at most until ctx is
// done, and always releases the tab's context.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.frames = nil
	onClose := s.onClose
	s.mu.Unlock()

	defer func() {
		s.cancel()
		if onClose != nil {
			onClose()
		}
	}()

	// chromedp.Cancel blocks until the target is gone; bound it.
	err := runBounded(ctx, closeTimeout, func() error { return chromedp.Cancel(s.ctx) })
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Session did not close cleanly.", zap.Error(err))
		return fmt.Errorf("failed to close session %s: %w", s.id, err)
	}
	s.logger.Debug("Session closed.")
	return nil
}
