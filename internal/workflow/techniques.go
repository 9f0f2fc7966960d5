// internal/workflow/techniques.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/svccheck/internal/browser"
)

// technique is one way of performing an action on the remote page.
type technique struct {
	name string
	do   func(ctx context.Context) error
}

// firstWorking runs techniques in order and returns the name of the first one
// that did not fail. The remote effect is not verified; there is no reliable
// completion signal to check it against.
func firstWorking(ctx context.Context, techniques ...technique) (string, error) {
	var errs []error
	for _, t := range techniques {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := t.do(ctx)
		if err == nil {
			return t.name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
	}
	if len(errs) == 0 {
		return "", errors.New("no technique available")
	}
	return "", errors.Join(errs...)
}

// clickTechniques is a native click followed by a scripted click.
func clickTechniques(el browser.Element) []technique {
	return []technique{
		{name: "nativeClick", do: el.Click},
		{name: "scriptClick", do: el.ClickScript},
	}
}

// click scrolls el into view and clicks it, falling back to a scripted click.
func click(ctx context.Context, el browser.Element) (string, error) {
	_ = el.ScrollIntoView(ctx)
	return firstWorking(ctx, clickTechniques(el)...)
}

// enterTechniques types the value natively, then falls back to assigning it
// from script with a synthetic input event.
func enterTechniques(el browser.Element, value string) []technique {
	return []technique{
		{name: "nativeTyping", do: func(ctx context.Context) error {
			_ = el.ScrollIntoView(ctx)
			_ = el.Clear(ctx)
			if err := el.Click(ctx); err != nil {
				return err
			}
			return el.Type(ctx, value)
		}},
		{name: "scriptValue", do: func(ctx context.Context) error {
			return el.SetValueScript(ctx, value)
		}},
	}
}

// settle waits a fixed delay after a state-changing action.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
