// internal/browser/htmldoc/launcher.go
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/internal/browser"
)

// Launcher hands out replay sessions over one saved page. Each session parses
// its own copy, so no state is shared between sessions.
type Launcher struct {
	source []byte
	logger *zap.Logger

	mu       sync.Mutex
	open     map[*Document]struct{}
	sessions []*Document
}

var _ browser.Launcher = (*Launcher)(nil)

// NewLauncher creates a launcher replaying the given HTML.
func NewLauncher(source []byte, logger *zap.Logger) *Launcher {
	return &Launcher{
		source: source,
		logger: logger.Named("htmldoc"),
		open:   make(map[*Document]struct{}),
	}
}

// FromFile reads a saved page from disk. A leading ~ is expanded.
func FromFile(path string, logger *zap.Logger) (*Launcher, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand fixture path %q: %w", path, err)
	}
	source, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return NewLauncher(source, logger), nil
}

// NewSession parses a fresh copy of the page.
func (l *Launcher) NewSession(ctx context.Context) (browser.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := goquery.NewDocumentFromReader(bytes.NewReader(l.source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	var doc *Document
	doc = newDocument(root, func() {
		l.mu.Lock()
		delete(l.open, doc)
		l.mu.Unlock()
		l.logger.Debug("Replay session closed.")
	})

	l.mu.Lock()
	l.open[doc] = struct{}{}
	l.sessions = append(l.sessions, doc)
	l.mu.Unlock()

	l.logger.Debug("Replay session opened.")
	return doc, nil
}

// OpenSessions counts sessions that were handed out and not yet closed.
func (l *Launcher) OpenSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

// Sessions returns every session handed out, in creation order.
func (l *Launcher) Sessions() []*Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Document(nil), l.sessions...)
}

// Shutdown closes every session that is still open.
func (l *Launcher) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	pending := make([]*Document, 0, len(l.open))
	for doc := range l.open {
		pending = append(pending, doc)
	}
	l.mu.Unlock()

	if len(pending) > 0 {
		l.logger.Info("Reclaiming replay sessions left open.", zap.Int("count", len(pending)))
	}
	for _, doc := range pending {
		_ = doc.Close(ctx)
	}
	return nil
}
