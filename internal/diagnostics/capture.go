// internal/diagnostics/capture.go
// Package diagnostics persists evidence of the remote page state when a lookup
// fails, and optionally the result page when it succeeds. Capturing is best
// effort: a failure here only means no artifact.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/internal/browser"
	"github.com/xkilldash9x/svccheck/internal/config"
)

const timestampLayout = "20060102T150405Z"

// Capturer writes document snapshots to the artifact directory.
type Capturer struct {
	cfg    config.DiagnosticsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewCapturer creates a Capturer for the given settings.
func NewCapturer(cfg config.DiagnosticsConfig, logger *zap.Logger) *Capturer {
	return &Capturer{
		cfg:    cfg,
		logger: logger.Named("diagnostics"),
		now:    time.Now,
	}
}

// Capture snapshots doc after a failure and returns the path of the written
// artifact. It never fails loudly; ok is false whenever no artifact was produced.
func (c *Capturer) Capture(ctx context.Context, doc browser.Document) (path string, ok bool) {
	if !c.cfg.Enabled {
		return "", false
	}
	return c.capture(ctx, doc, c.cfg.FilePrefix, "error_page")
}

// CaptureResult snapshots the result page of a successful lookup when
// capture_on_success is set.
func (c *Capturer) CaptureResult(ctx context.Context, doc browser.Document) (path string, ok bool) {
	if !c.cfg.CaptureOnSuccess {
		return "", false
	}
	return c.capture(ctx, doc, c.cfg.ResultPrefix, "search_result")
}

func (c *Capturer) capture(ctx context.Context, doc browser.Document, prefix, fallback string) (path string, ok bool) {
	if doc == nil {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Diagnostic capture panicked.", zap.Any("panic", r))
			path, ok = "", false
		}
	}()

	snap, err := doc.Snapshot(ctx)
	if err != nil {
		c.logger.Warn("Failed to snapshot page for diagnostics.", zap.Error(err))
		return "", false
	}
	if len(snap.Data) == 0 {
		c.logger.Warn("Page snapshot was empty, no artifact written.")
		return "", false
	}

	path, err = c.write(snap, prefix, fallback)
	if err != nil {
		c.logger.Warn("Failed to write diagnostic artifact.", zap.Error(err))
		return "", false
	}
	c.logger.Info("Diagnostic artifact written.", zap.String("path", path))
	return path, true
}

func (c *Capturer) write(snap browser.Snapshot, prefix, fallback string) (string, error) {
	dir, err := homedir.Expand(c.cfg.ArtifactDir)
	if err != nil {
		return "", fmt.Errorf("failed to expand artifact directory %q: %w", c.cfg.ArtifactDir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	path := filepath.Join(dir, c.fileName(prefix, fallback, snap.MediaType))
	if err := os.WriteFile(path, snap.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// fileName is <prefix>-<UTC timestamp>-<short id>.<ext>.
func (c *Capturer) fileName(prefix, fallback, mediaType string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = fallback
	}
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s-%s.%s", prefix, c.now().UTC().Format(timestampLayout), short, extension(mediaType))
}

func extension(mediaType string) string {
	switch {
	case strings.HasPrefix(mediaType, "image/png"):
		return "png"
	case strings.HasPrefix(mediaType, "image/jpeg"):
		return "jpg"
	case strings.HasPrefix(mediaType, "text/html"):
		return "html"
	default:
		return "bin"
	}
}
