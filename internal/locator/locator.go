// internal/locator/locator.go
// Package locator finds elements on a page whose structure is not under our
// control. A LocatorStrategy is tried descriptor by descriptor in the current
// scope, then recursively inside each nested frame up to a depth bound.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/api/schemas"
	"github.com/xkilldash9x/svccheck/internal/browser"
)

// ErrNotFound is returned when no descriptor matched a visible element in any scope.
var ErrNotFound = errors.New("no matching visible element")

const (
	DefaultMaxDepth     = 3
	defaultPollInterval = 250 * time.Millisecond
)

// Locator searches documents for elements described by a strategy.
type Locator struct {
	logger       *zap.Logger
	maxDepth     int
	pollInterval time.Duration
}

// New creates a Locator. A maxDepth of zero searches the current scope only.
func New(logger *zap.Logger, maxDepth int, pollInterval time.Duration) *Locator {
	if maxDepth < 0 {
		maxDepth = 0
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Locator{
		logger:       logger.Named("locator"),
		maxDepth:     maxDepth,
		pollInterval: pollInterval,
	}
}

// Find returns the first element that exists and is visible. Every descriptor
// is tried in the current scope before any frame is entered.
func (l *Locator) Find(ctx context.Context, doc browser.Document, strategy schemas.LocatorStrategy) (browser.Element, error) {
	found, err := l.search(ctx, doc, strategy, mode{})
	if err != nil {
		return nil, err
	}
	return found[0], nil
}

// Collect returns every visible element matched by the first descriptor that
// matches at least one, searching scopes in the same order as Find.
func (l *Locator) Collect(ctx context.Context, doc browser.Document, strategy schemas.LocatorStrategy) ([]browser.Element, error) {
	return l.search(ctx, doc, strategy, mode{all: true})
}

// Present is Collect without the visibility filter. Option lists use it so
// hidden and disabled entries still reach the matcher.
func (l *Locator) Present(ctx context.Context, doc browser.Document, strategy schemas.LocatorStrategy) ([]browser.Element, error) {
	return l.search(ctx, doc, strategy, mode{all: true, hidden: true})
}

// mode selects how many matches a search keeps and whether hidden ones count.
type mode struct {
	all    bool
	hidden bool
}

// WaitFor polls Find until an element appears or timeout passes.
func (l *Locator) WaitFor(ctx context.Context, doc browser.Document, strategy schemas.LocatorStrategy, timeout time.Duration) (browser.Element, error) {
	el, err := l.Find(ctx, doc, strategy)
	if err == nil || !errors.Is(err, ErrNotFound) || timeout <= 0 {
		return el, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("waited %s: %w", timeout, ErrNotFound)
		case <-ticker.C:
			el, err := l.Find(waitCtx, doc, strategy)
			if err == nil {
				return el, nil
			}
			if !errors.Is(err, ErrNotFound) && waitCtx.Err() == nil {
				return nil, err
			}
		}
	}
}

func (l *Locator) search(ctx context.Context, doc browser.Document, strategy schemas.LocatorStrategy, m mode) ([]browser.Element, error) {
	if len(strategy) == 0 {
		return nil, fmt.Errorf("empty strategy: %w", ErrNotFound)
	}
	found, err := l.walk(ctx, doc, strategy, 0, m)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found, nil
}

// walk searches the current scope and then each nested frame. The scope is
// always restored before walk returns to its caller, including when a nested
// search panics.
func (l *Locator) walk(ctx context.Context, doc browser.Document, strategy schemas.LocatorStrategy, depth int, m mode) ([]browser.Element, error) {
	for _, desc := range strategy {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := l.match(ctx, doc, desc, m)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.logger.Debug("Descriptor query failed.", zap.Stringer("descriptor", desc), zap.Int("depth", depth), zap.Error(err))
			continue
		}
		if len(found) > 0 {
			return found, nil
		}
	}

	if depth >= l.maxDepth {
		return nil, nil
	}

	frames, err := doc.Frames(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		l.logger.Debug("Failed to list frames.", zap.Int("depth", depth), zap.Error(err))
		return nil, nil
	}

	for _, f := range frames {
		found, err := l.inFrame(ctx, doc, f, strategy, depth, m)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// One unreachable frame must not hide its siblings.
			l.logger.Debug("Skipping frame.", zap.String("frame", f.Name()), zap.Int("depth", depth+1), zap.Error(err))
			continue
		}
		if len(found) > 0 {
			return found, nil
		}
	}
	return nil, nil
}

func (l *Locator) inFrame(ctx context.Context, doc browser.Document, f browser.Frame, strategy schemas.LocatorStrategy, depth int, m mode) (found []browser.Element, err error) {
	scope, err := doc.EnterFrame(ctx, f)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := scope.Release(); relErr != nil {
			l.logger.Warn("Failed to restore parent scope.", zap.String("frame", f.Name()), zap.Error(relErr))
		}
	}()
	return l.walk(ctx, doc, strategy, depth+1, m)
}

// match evaluates one descriptor in the current scope and keeps elements
// that pass its text predicate, visible ones only unless m.hidden is set.
func (l *Locator) match(ctx context.Context, doc browser.Document, desc schemas.Descriptor, m mode) ([]browser.Element, error) {
	candidates, err := doc.QueryAll(ctx, desc.Selector())
	if err != nil {
		return nil, err
	}

	var accepted []browser.Element
	for _, el := range candidates {
		if !m.hidden {
			visible, err := el.Visible(ctx)
			if err != nil || !visible {
				continue
			}
		}
		if desc.Kind == schemas.KindText {
			text, err := el.Text(ctx)
			if err != nil || !desc.MatchesText(text) {
				continue
			}
		}
		accepted = append(accepted, el)
		if !m.all {
			break
		}
	}
	return accepted, nil
}
