// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/svccheck/internal/browser"
	"github.com/xkilldash9x/svccheck/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Workflow() config.WorkflowConfig {
	args := m.Called()
	return args.Get(0).(config.WorkflowConfig)
}

func (m *MockConfig) Locators() config.LocatorsConfig {
	args := m.Called()
	return args.Get(0).(config.LocatorsConfig)
}

func (m *MockConfig) Extraction() config.ExtractionConfig {
	args := m.Called()
	return args.Get(0).(config.ExtractionConfig)
}

func (m *MockConfig) Diagnostics() config.DiagnosticsConfig {
	args := m.Called()
	return args.Get(0).(config.DiagnosticsConfig)
}

func (m *MockConfig) Batch() config.BatchConfig {
	args := m.Called()
	return args.Get(0).(config.BatchConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserHeadless(b bool) {
	m.Called(b)
}

func (m *MockConfig) SetWorkflowKeepSessionOnSuccess(b bool) {
	m.Called(b)
}

func (m *MockConfig) SetDiagnosticsArtifactDir(dir string) {
	m.Called(dir)
}

func (m *MockConfig) SetDiagnosticsCaptureOnSuccess(b bool) {
	m.Called(b)
}

// -- Browser Mocks --

// MockDocument mocks browser.Document.
type MockDocument struct {
	mock.Mock
}

var _ browser.Document = (*MockDocument)(nil)

func (m *MockDocument) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDocument) WaitReady(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDocument) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	args := m.Called(ctx, selector)
	var els []browser.Element
	if v := args.Get(0); v != nil {
		els = v.([]browser.Element)
	}
	return els, args.Error(1)
}

func (m *MockDocument) Frames(ctx context.Context) ([]browser.Frame, error) {
	args := m.Called(ctx)
	var frames []browser.Frame
	if v := args.Get(0); v != nil {
		frames = v.([]browser.Frame)
	}
	return frames, args.Error(1)
}

func (m *MockDocument) EnterFrame(ctx context.Context, frame browser.Frame) (browser.FrameScope, error) {
	args := m.Called(ctx, frame)
	var scope browser.FrameScope
	if v := args.Get(0); v != nil {
		scope = v.(browser.FrameScope)
	}
	return scope, args.Error(1)
}

func (m *MockDocument) BodyText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDocument) Snapshot(ctx context.Context) (browser.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(browser.Snapshot), args.Error(1)
}

func (m *MockDocument) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockLauncher mocks browser.Launcher.
type MockLauncher struct {
	mock.Mock
}

var _ browser.Launcher = (*MockLauncher)(nil)

func (m *MockLauncher) NewSession(ctx context.Context) (browser.Document, error) {
	args := m.Called(ctx)
	var doc browser.Document
	if v := args.Get(0); v != nil {
		doc = v.(browser.Document)
	}
	return doc, args.Error(1)
}

func (m *MockLauncher) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
