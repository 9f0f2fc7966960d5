package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/svccheck/api/schemas"
	"github.com/xkilldash9x/svccheck/internal/browser/cdp"
	"github.com/xkilldash9x/svccheck/internal/browser/htmldoc"
	"github.com/xkilldash9x/svccheck/internal/config"
	"github.com/xkilldash9x/svccheck/internal/mocks"
)

const page = `<html><body>
<form data-replay-reveal="#out"><input id="inpNameStreet" type="text"></form>
<div id="out" hidden><p>기가 인터넷 이용 가능</p></div>
</body></html>`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))
	return path
}

func TestCreate(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("NilConfig", func(t *testing.T) {
		_, err := NewComponentFactory().Create(context.Background(), nil, Options{}, logger)
		assert.Error(t, err)
	})

	t.Run("MissingFixture", func(t *testing.T) {
		_, err := NewComponentFactory().Create(context.Background(), config.NewDefaultConfig(),
			Options{FixturePath: filepath.Join(t.TempDir(), "absent.html")}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load replay fixture")
	})

	t.Run("Replay", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.WorkflowCfg.Settle = config.SettleConfig{}
		cfg.DiagnosticsCfg.ArtifactDir = t.TempDir()

		c, err := NewComponentFactory().Create(context.Background(), cfg, Options{FixturePath: writeFixture(t)}, logger)
		require.NoError(t, err)
		defer c.Shutdown(context.Background())
		require.IsType(t, &htmldoc.Launcher{}, c.Launcher)

		res := c.Driver.Run(context.Background(), schemas.NewQueryRequest("강남구 테헤란로 152", "", ""))
		assert.True(t, res.Succeeded(), res.Message)
		assert.Contains(t, res.ServiceSummary, "기가 인터넷 이용 가능")
	})

	t.Run("Browser", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c, err := NewComponentFactory().Create(ctx, config.NewDefaultConfig(), Options{}, logger)
		require.NoError(t, err)
		assert.IsType(t, &cdp.Manager{}, c.Launcher)
		// No session was opened, so no browser process was started.
		c.Shutdown(ctx)
	})
}

func TestComponentsShutdown(t *testing.T) {
	launcher := new(mocks.MockLauncher)
	launcher.On("Shutdown", mock.Anything).Return(assert.AnError).Once()
	c := &Components{Launcher: launcher, logger: zaptest.NewLogger(t)}

	// A canceled caller context still gets a live shutdown context.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Shutdown(ctx)
	launcher.AssertExpectations(t)

	assert.NotPanics(t, func() {
		var nilComponents *Components
		nilComponents.Shutdown(context.Background())
		(&Components{}).Shutdown(context.Background())
	})
}
