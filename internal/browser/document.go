// internal/browser/document.go
// Package browser defines the backend-neutral view of a browsing session that
// the locator, workflow and diagnostics packages are written against. The live
// implementation drives Chrome over CDP (internal/browser/cdp); the replay
// implementation evaluates saved pages offline (internal/browser/htmldoc).
package browser

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by any operation on a session that was closed.
var ErrSessionClosed = errors.New("browsing session is closed")

// Element is a handle to one node of the remote document. Handles stay usable
// after the frame scope that produced them has been released.
type Element interface {
	// Visible reports whether the element is currently rendered.
	Visible(ctx context.Context) (bool, error)
	// Enabled reports whether the element accepts interaction.
	Enabled(ctx context.Context) (bool, error)
	// Text returns the rendered text of the element, trimmed.
	Text(ctx context.Context) (string, error)
	// Attribute returns the named attribute and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)

	ScrollIntoView(ctx context.Context) error
	// Click dispatches a native pointer click at the element.
	Click(ctx context.Context) error
	// ClickScript invokes the element's click handler from script.
	ClickScript(ctx context.Context) error
	Clear(ctx context.Context) error
	// Type sends key events for text to the focused element.
	Type(ctx context.Context, text string) error
	// SetValueScript assigns the value from script and fires input and change events.
	SetValueScript(ctx context.Context, value string) error
	PressEnter(ctx context.Context) error
	// SubmitForm submits the nearest ancestor form.
	SubmitForm(ctx context.Context) error
}

// Frame is an opaque handle to a nested sub-document of the current scope.
type Frame interface {
	// Name identifies the frame in logs.
	Name() string
}

// FrameScope is held while a nested sub-document is the current query scope.
// Release restores whichever scope was current before it was entered; releasing
// twice is a no-op.
type FrameScope interface {
	Release() error
}

// Snapshot is a serialized picture of the remote state.
type Snapshot struct {
	Data      []byte
	MediaType string
}

// Document is one exclusively owned browsing session. Queries run against the
// current scope, which is the top-level document until a frame is entered.
type Document interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context) error
	// QueryAll returns every element matching the CSS selector in the current
	// scope. An element set that is empty is not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Frames lists the nested sub-documents of the current scope.
	Frames(ctx context.Context) ([]Frame, error)
	EnterFrame(ctx context.Context, frame Frame) (FrameScope, error)
	// BodyText returns the rendered text of the current scope's body.
	BodyText(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (Snapshot, error)
	Close(ctx context.Context) error
}

// Launcher hands out independent sessions. Every session returned by
// NewSession must be closed by its owner.
type Launcher interface {
	NewSession(ctx context.Context) (Document, error)
	// Shutdown reclaims any session still open and releases the backend.
	Shutdown(ctx context.Context) error
}
