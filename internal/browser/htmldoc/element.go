// internal/browser/htmldoc/element.go
package htmldoc

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/svccheck/internal/browser"
)

// element is a node handle. It keeps a reference to the document that owns the
// node, so it stays valid after the frame scope it came from is released.
type element struct {
	doc   *Document
	owner *goquery.Document
	node  *html.Node
}

var _ browser.Element = (*element)(nil)

func (e *element) lock(ctx context.Context) error {
	e.doc.mu.Lock()
	if err := e.doc.guard(ctx); err != nil {
		e.doc.mu.Unlock()
		return err
	}
	return nil
}

func (e *element) unlock() { e.doc.mu.Unlock() }

func (e *element) Visible(ctx context.Context) (bool, error) {
	if err := e.lock(ctx); err != nil {
		return false, err
	}
	defer e.unlock()
	return rendered(e.node), nil
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	if err := e.lock(ctx); err != nil {
		return false, err
	}
	defer e.unlock()
	if hasAttr(e.node, "disabled") || strings.EqualFold(attr(e.node, "aria-disabled"), "true") {
		return false, nil
	}
	if fs := ancestor(e.node, atom.Fieldset); fs != nil && hasAttr(fs, "disabled") {
		return false, nil
	}
	return true, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.lock(ctx); err != nil {
		return "", err
	}
	defer e.unlock()
	return renderText(e.node), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.lock(ctx); err != nil {
		return "", false, err
	}
	defer e.unlock()
	v, ok := attrValue(e.node, name)
	return v, ok, nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	e.doc.record("scroll", e.node, "")
	return nil
}

// Click fails for hidden elements and for elements carrying data-replay-click-error,
// like a pointer click that lands on an overlay.
func (e *element) Click(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	if !rendered(e.node) {
		return fmt.Errorf("element %s is not visible", describe(e.node))
	}
	if hasAttr(e.node, "data-replay-click-error") {
		return fmt.Errorf("click on %s was intercepted", describe(e.node))
	}
	e.doc.record("click", e.node, "")
	e.doc.press(e.owner, e.node)
	return nil
}

func (e *element) ClickScript(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	e.doc.record("scriptClick", e.node, "")
	e.doc.press(e.owner, e.node)
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	if hasAttr(e.node, "data-replay-type-error") {
		return fmt.Errorf("element %s rejected keyboard input", describe(e.node))
	}
	setAttr(e.node, "value", "")
	e.doc.record("clear", e.node, "")
	return nil
}

func (e *element) Type(ctx context.Context, text string) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	if hasAttr(e.node, "data-replay-type-error") {
		return fmt.Errorf("element %s rejected keyboard input", describe(e.node))
	}
	setAttr(e.node, "value", attr(e.node, "value")+text)
	e.doc.record("type", e.node, text)
	return nil
}

func (e *element) SetValueScript(ctx context.Context, value string) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	setAttr(e.node, "value", value)
	e.doc.record("setValue", e.node, value)
	return nil
}

// PressEnter submits the enclosing form, as implicit submission does. Outside a
// form the key press has no effect.
func (e *element) PressEnter(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	e.doc.record("enter", e.node, "")
	if form := ancestor(e.node, atom.Form); form != nil {
		e.doc.submit(e.owner, form)
	}
	return nil
}

func (e *element) SubmitForm(ctx context.Context) error {
	if err := e.lock(ctx); err != nil {
		return err
	}
	defer e.unlock()
	form := ancestor(e.node, atom.Form)
	if form == nil {
		return fmt.Errorf("cannot submit %s: %w", describe(e.node), errNoForm)
	}
	e.doc.submit(e.owner, form)
	return nil
}
