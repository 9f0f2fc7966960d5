// internal/browser/htmldoc/document.go
// Package htmldoc replays a saved copy of the remote page without a browser.
// It implements browser.Document over goquery, including nested <iframe srcdoc>
// documents, and understands a small set of replay directives so a fixture can
// express the page's reactions to interaction:
//
//	data-replay-reveal="<css>"   un-hide matching nodes when activated
//	data-replay-hide="<css>"     hide matching nodes when activated
//	data-replay-enable="<css>"   remove disabled from matching nodes when activated
//	data-replay-click-error      native clicks on the element fail
//	data-replay-type-error       native typing into the element fails
//	data-replay-unreachable      entering the iframe fails
//
// Activation is a click of the element, or the submission of a form carrying
// the directive. Every interaction is recorded and exposed through Actions.
package htmldoc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/svccheck/internal/browser"
)

// Action is one recorded interaction with the replayed page.
type Action struct {
	Kind   string
	Target string
	Value  string
}

// Document is a replayed browsing session.
type Document struct {
	mu        sync.Mutex
	root      *goquery.Document
	scopes    []*goquery.Document
	frameDocs map[*html.Node]*goquery.Document
	actions   []Action
	url       string
	maxDepth  int
	closed    bool
	onClose   func()
}

var _ browser.Document = (*Document)(nil)

func newDocument(root *goquery.Document, onClose func()) *Document {
	return &Document{
		root:      root,
		scopes:    []*goquery.Document{root},
		frameDocs: make(map[*html.Node]*goquery.Document),
		onClose:   onClose,
	}
}

// guard must be called with d.mu held.
func (d *Document) guard(ctx context.Context) error {
	if d.closed {
		return browser.ErrSessionClosed
	}
	return ctx.Err()
}

func (d *Document) current() *goquery.Document {
	return d.scopes[len(d.scopes)-1]
}

func (d *Document) record(kind string, n *html.Node, value string) {
	d.actions = append(d.actions, Action{Kind: kind, Target: describe(n), Value: value})
}

// Navigate records the navigation. The replayed content does not change.
func (d *Document) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard(ctx); err != nil {
		return err
	}
	d.url = url
	d.actions = append(d.actions, Action{Kind: "navigate", Value: url})
	return nil
}

// WaitReady returns immediately; a parsed document is always complete.
func (d *Document) WaitReady(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.guard(ctx)
}

// QueryAll evaluates the CSS selector against the current scope.
func (d *Document) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard(ctx); err != nil {
		return nil, err
	}
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	owner := d.current()
	found := owner.FindMatcher(matcher)
	elements := make([]browser.Element, 0, found.Length())
	for _, n := range found.Nodes {
		elements = append(elements, &element{doc: d, owner: owner, node: n})
	}
	return elements, nil
}

type frame struct {
	owner *goquery.Document
	node  *html.Node
}

func (f *frame) Name() string { return describe(f.node) }

// Frames lists the iframe and frame elements of the current scope.
func (d *Document) Frames(ctx context.Context) ([]browser.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard(ctx); err != nil {
		return nil, err
	}
	owner := d.current()
	var frames []browser.Frame
	owner.Find("iframe, frame").Each(func(_ int, s *goquery.Selection) {
		frames = append(frames, &frame{owner: owner, node: s.Nodes[0]})
	})
	return frames, nil
}

// EnterFrame makes the frame's inline document the current scope. Frames
// without srcdoc behave like cross-origin frames and cannot be entered.
func (d *Document) EnterFrame(ctx context.Context, f browser.Frame) (browser.FrameScope, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard(ctx); err != nil {
		return nil, err
	}
	fr, ok := f.(*frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame handle %T", f)
	}
	if fr.owner != d.current() {
		return nil, fmt.Errorf("frame %s does not belong to the current scope", fr.Name())
	}
	if hasAttr(fr.node, "data-replay-unreachable") {
		return nil, fmt.Errorf("frame %s is unreachable", fr.Name())
	}

	sub, ok := d.frameDocs[fr.node]
	if !ok {
		srcdoc, present := attrValue(fr.node, "srcdoc")
		if !present {
			return nil, fmt.Errorf("frame %s has no inline document", fr.Name())
		}
		parsed, err := goquery.NewDocumentFromReader(strings.NewReader(srcdoc))
		if err != nil {
			return nil, fmt.Errorf("failed to parse frame %s: %w", fr.Name(), err)
		}
		d.frameDocs[fr.node] = parsed
		sub = parsed
	}

	scope := &frameScope{doc: d, restoreTo: len(d.scopes)}
	d.scopes = append(d.scopes, sub)
	if depth := len(d.scopes) - 1; depth > d.maxDepth {
		d.maxDepth = depth
	}
	d.actions = append(d.actions, Action{Kind: "enterFrame", Target: fr.Name()})
	return scope, nil
}

type frameScope struct {
	doc       *Document
	restoreTo int
	once      sync.Once
}

func (s *frameScope) Release() error {
	s.once.Do(func() {
		s.doc.mu.Lock()
		defer s.doc.mu.Unlock()
		if len(s.doc.scopes) > s.restoreTo {
			s.doc.scopes = s.doc.scopes[:s.restoreTo]
		}
	})
	return nil
}

// BodyText renders the visible text of the current scope's body.
func (d *Document) BodyText(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard(ctx); err != nil {
		return "", err
	}
	owner := d.current()
	if body := owner.Find("body"); body.Length() > 0 {
		return renderText(body.Nodes[0]), nil
	}
	return renderText(owner.Nodes[0]), nil
}

// Snapshot serializes the current state of the top-level document.
func (d *Document) Snapshot(ctx context.Context) (browser.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guard(ctx); err != nil {
		return browser.Snapshot{}, err
	}
	markup, err := d.root.Html()
	if err != nil {
		return browser.Snapshot{}, fmt.Errorf("failed to serialize document: %w", err)
	}
	return browser.Snapshot{Data: []byte(markup), MediaType: "text/html"}, nil
}

// Close ends the session. Closing twice is a no-op.
func (d *Document) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	onClose := d.onClose
	d.mu.Unlock()
	if onClose != nil {
		onClose()
	}
	return nil
}

// Actions returns a copy of the interactions recorded so far.
func (d *Document) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Action(nil), d.actions...)
}

// ScopeDepth is 0 while the top-level document is the current scope.
func (d *Document) ScopeDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.scopes) - 1
}

// MaxScopeDepth is the deepest frame nesting entered during the session.
func (d *Document) MaxScopeDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxDepth
}

// Closed reports whether Close was called.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// activate applies the replay directives carried by n inside owner. Must be
// called with d.mu held.
func (d *Document) activate(owner *goquery.Document, n *html.Node) {
	if sel := attr(n, "data-replay-reveal"); sel != "" {
		owner.Find(sel).Each(func(_ int, s *goquery.Selection) {
			node := s.Nodes[0]
			removeAttr(node, "hidden")
			if style, ok := attrValue(node, "style"); ok {
				setAttr(node, "style", showStyle(style))
			}
		})
	}
	if sel := attr(n, "data-replay-hide"); sel != "" {
		owner.Find(sel).Each(func(_ int, s *goquery.Selection) {
			setAttr(s.Nodes[0], "hidden", "")
		})
	}
	if sel := attr(n, "data-replay-enable"); sel != "" {
		owner.Find(sel).Each(func(_ int, s *goquery.Selection) {
			removeAttr(s.Nodes[0], "disabled")
			removeAttr(s.Nodes[0], "aria-disabled")
		})
	}
}

// press performs the default action of clicking n. Must be called with d.mu held.
func (d *Document) press(owner *goquery.Document, n *html.Node) {
	d.activate(owner, n)

	switch {
	case n.DataAtom == atom.Label:
		if target := attr(n, "for"); target != "" {
			if found := owner.Find(`[id="` + target + `"]`); found.Length() > 0 {
				d.check(owner, found.Nodes[0])
				d.activate(owner, found.Nodes[0])
			}
		}
	case n.DataAtom == atom.Input && isCheckable(n):
		d.check(owner, n)
	}

	if isSubmitControl(n) {
		if form := ancestor(n, atom.Form); form != nil {
			d.submit(owner, form)
		}
	}
}

func (d *Document) check(owner *goquery.Document, n *html.Node) {
	if n.DataAtom != atom.Input || !isCheckable(n) {
		return
	}
	if strings.EqualFold(attr(n, "type"), "checkbox") {
		if hasAttr(n, "checked") {
			removeAttr(n, "checked")
		} else {
			setAttr(n, "checked", "")
		}
		return
	}
	if name := attr(n, "name"); name != "" {
		owner.Find(`input[type="radio"][name="` + name + `"]`).Each(func(_ int, s *goquery.Selection) {
			removeAttr(s.Nodes[0], "checked")
		})
	}
	setAttr(n, "checked", "")
}

func (d *Document) submit(owner *goquery.Document, form *html.Node) {
	d.record("submit", form, "")
	d.activate(owner, form)
}

func isCheckable(n *html.Node) bool {
	t := strings.ToLower(attr(n, "type"))
	return t == "radio" || t == "checkbox"
}

func isSubmitControl(n *html.Node) bool {
	t := strings.ToLower(attr(n, "type"))
	switch n.DataAtom {
	case atom.Button:
		return t == "" || t == "submit"
	case atom.Input:
		return t == "submit" || t == "image"
	}
	return false
}

var errNoForm = errors.New("element is not inside a form")
