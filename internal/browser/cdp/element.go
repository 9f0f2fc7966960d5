// internal/browser/cdp/element.go
package cdp

import (
	"context"
	"errors"
	"fmt"

	cdproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/svccheck/internal/browser"
)

// Node IDs are global to the tab, so handles found inside a frame keep working
// after the frame scope is released.
type element struct {
	session *Session
	node    *cdproto.Node
}

var _ browser.Element = (*element)(nil)

const (
	jsVisible = `function() {
		if (!this.isConnected) return false;
		const style = window.getComputedStyle(this);
		if (style.display === 'none' || style.visibility === 'hidden') return false;
		const rect = this.getBoundingClientRect();
		return rect.width > 0 || rect.height > 0;
	}`
	jsEnabled     = `function() { return !this.disabled && this.getAttribute('aria-disabled') !== 'true'; }`
	jsText        = `function() { return (this.innerText || this.textContent || '').trim(); }`
	jsAttribute   = `function(name) { return { present: this.hasAttribute(name), value: this.getAttribute(name) || '' }; }`
	jsClick       = `function() { this.click(); }`
	jsClear       = `function() { this.value = ''; this.dispatchEvent(new Event('input', { bubbles: true })); }`
	jsSetValue    = `function(v) {
		this.value = v;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`
	jsSubmitForm = `function() {
		const form = this.form || this.closest('form');
		if (!form) return false;
		if (typeof form.requestSubmit === 'function') { form.requestSubmit(); } else { form.submit(); }
		return true;
	}`
)

var errNoForm = errors.New("element is not inside a form")

// call invokes a JavaScript function with the element bound to this.
func (e *element) call(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	return e.session.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return callOnNode(c, e.node, fn, res, args...)
	}))
}

// callOnNode resolves the node to a remote object and calls fn with it bound
// to this. ctx must carry a target executor.
func callOnNode(ctx context.Context, node *cdproto.Node, fn string, res interface{}, args ...interface{}) error {
	obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve node %d: %w", node.NodeID, err)
	}
	if obj == nil || obj.ObjectID == "" {
		return fmt.Errorf("node %d has no remote object", node.NodeID)
	}
	err = chromedp.CallFunctionOn(fn, res,
		func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		},
		args...,
	).Do(ctx)
	// Release fails once the page navigated away; the object is gone either way.
	_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
	return err
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	var visible bool
	if err := e.call(ctx, jsVisible, &visible); err != nil {
		return false, fmt.Errorf("visibility probe failed: %w", err)
	}
	return visible, nil
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	var enabled bool
	if err := e.call(ctx, jsEnabled, &enabled); err != nil {
		return false, fmt.Errorf("enabled probe failed: %w", err)
	}
	return enabled, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.call(ctx, jsText, &text); err != nil {
		return "", fmt.Errorf("failed to read element text: %w", err)
	}
	return text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res struct {
		Present bool   `json:"present"`
		Value   string `json:"value"`
	}
	if err := e.call(ctx, jsAttribute, &res, name); err != nil {
		return "", false, fmt.Errorf("failed to read attribute %q: %w", name, err)
	}
	return res.Value, res.Present, nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.session.run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		return dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(c)
	}))
}

func (e *element) Click(ctx context.Context) error {
	if err := e.session.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("native click failed: %w", err)
	}
	return nil
}

func (e *element) ClickScript(ctx context.Context) error {
	if err := e.call(ctx, jsClick, nil); err != nil {
		return fmt.Errorf("scripted click failed: %w", err)
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if err := e.call(ctx, jsClear, nil); err != nil {
		return fmt.Errorf("failed to clear element: %w", err)
	}
	return nil
}

func (e *element) Type(ctx context.Context, text string) error {
	err := e.session.run(ctx,
		chromedp.ActionFunc(func(c context.Context) error {
			return dom.Focus().WithNodeID(e.node.NodeID).Do(c)
		}),
		chromedp.KeyEvent(text),
	)
	if err != nil {
		return fmt.Errorf("typing failed: %w", err)
	}
	return nil
}

func (e *element) SetValueScript(ctx context.Context, value string) error {
	if err := e.call(ctx, jsSetValue, nil, value); err != nil {
		return fmt.Errorf("scripted value assignment failed: %w", err)
	}
	return nil
}

func (e *element) PressEnter(ctx context.Context) error {
	if err := e.session.run(ctx, chromedp.KeyEventNode(e.node, kb.Enter)); err != nil {
		return fmt.Errorf("enter key failed: %w", err)
	}
	return nil
}

func (e *element) SubmitForm(ctx context.Context) error {
	var submitted bool
	if err := e.call(ctx, jsSubmitForm, &submitted); err != nil {
		return fmt.Errorf("form submission failed: %w", err)
	}
	if !submitted {
		return errNoForm
	}
	return nil
}
