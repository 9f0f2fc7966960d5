// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/api/schemas"
	"github.com/xkilldash9x/svccheck/internal/browser/htmldoc"
	"github.com/xkilldash9x/svccheck/internal/config"
	"github.com/xkilldash9x/svccheck/internal/observability"
	"github.com/xkilldash9x/svccheck/internal/service"
	"github.com/xkilldash9x/svccheck/internal/workflow"
)

const testPage = `<html><body>
<form data-replay-reveal="#results"><input id="inpNameStreet" type="text"></form>
<div id="results" hidden>
  <ul class="search-result"><li data-replay-reveal="#svc">서울특별시 중구 세종대로 110</li></ul>
  <div id="svc" hidden><p>기가 인터넷 이용 가능</p><p>B tv 이용 가능</p></div>
</div>
</body></html>`

const emptyPage = `<html><body><p>점검 중</p></body></html>`

// testConfig writes a config that removes settle delays and keeps artifacts
// inside the test's temp dir.
func testConfig(t *testing.T, dir string) string {
	t.Helper()
	content := `
logger:
  level: fatal
workflow:
  input_wait_timeout: 20ms
  dropdown_wait_timeout: 20ms
  poll_interval: 5ms
  settle:
    after_popup: 0s
    after_submit: 0s
    after_select: 0s
    after_service: 0s
    after_toggle: 0s
    after_list_open: 0s
    after_option: 0s
    after_final: 0s
diagnostics:
  artifact_dir: ` + filepath.Join(dir, "artifacts") + `
batch:
  rate_per_second: 0
`
	return writeFile(t, dir, "config.yaml", content)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, factory service.ComponentFactory, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), factory, args...)
}

func executeContext(t *testing.T, ctx context.Context, factory service.ComponentFactory, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := newRootCmd(factory)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, service.NewComponentFactory(), "version")
	require.NoError(t, err)
	assert.Equal(t, "svccheck "+Version+"\n", out)

	out, err = execute(t, service.NewComponentFactory(), "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestLookupCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := testConfig(t, dir)
	fixture := writeFile(t, dir, "page.html", testPage)

	t.Run("Text", func(t *testing.T) {
		out, err := execute(t, service.NewComponentFactory(),
			"lookup", "세종대로 110", "--config", cfgPath, "--fixture", fixture)
		require.NoError(t, err)
		assert.Contains(t, out, "Status: success")
		assert.Contains(t, out, "Address lookup completed with 1 results.")
		assert.Contains(t, out, "Service:\n[인터넷]\n기가 인터넷 이용 가능")
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := execute(t, service.NewComponentFactory(),
			"lookup", "세종대로 110", "-c", cfgPath, "--fixture", fixture, "-o", "json")
		require.NoError(t, err)

		var res schemas.QueryResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, schemas.StatusSuccess, res.Status)
		assert.Equal(t, []string{"서울특별시 중구 세종대로 110"}, res.RawResultLines)
		assert.NotEmpty(t, res.Trace)
	})

	t.Run("Batch", func(t *testing.T) {
		batch := writeFile(t, dir, "batch.json",
			`[{"address":"세종대로 110"},{"address":"  "},{"address":"세종대로 110","dong":"1"}]`)
		out, err := execute(t, service.NewComponentFactory(),
			"lookup", "-c", cfgPath, "--fixture", fixture, "--file", batch, "-o", "json")
		require.ErrorIs(t, err, errLookupFailed)

		var results []schemas.QueryResult
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		require.Len(t, results, 3)
		assert.True(t, results[0].Succeeded())
		assert.Equal(t, "address is required", results[1].Message)
		assert.True(t, results[2].Succeeded())
	})

	t.Run("ResultSnapshot", func(t *testing.T) {
		out, err := execute(t, service.NewComponentFactory(),
			"lookup", "세종대로 110", "-c", cfgPath, "--fixture", fixture, "--result-snapshot")
		require.NoError(t, err)
		assert.Contains(t, out, "Result snapshot: "+filepath.Join(dir, "artifacts", "search_result-"))
	})

	t.Run("FailedLookupWritesSnapshotPath", func(t *testing.T) {
		empty := writeFile(t, dir, "empty.html", emptyPage)
		out, err := execute(t, service.NewComponentFactory(),
			"lookup", "세종대로 110", "-c", cfgPath, "--fixture", empty)
		require.ErrorIs(t, err, errLookupFailed)
		assert.Contains(t, out, "Status: error")
		assert.Contains(t, out, "address input not found")
		assert.Contains(t, out, "Diagnostic snapshot: "+filepath.Join(dir, "artifacts"))
	})
}

func TestLookupArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	cfgPath := testConfig(t, dir)
	fixture := writeFile(t, dir, "page.html", testPage)
	batch := writeFile(t, dir, "batch.json", `[{"address":"a"}]`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"NoAddress", []string{"lookup"}, "an address argument or --file is required"},
		{"AddressAndFile", []string{"lookup", "a", "--file", batch}, "cannot be combined with --file"},
		{"FileAndDong", []string{"lookup", "--file", batch, "--dong", "1"}, "none of the others can be"},
		{"BadFormat", []string{"lookup", "a", "-o", "xml"}, `unsupported output format "xml"`},
		{"MissingBatchFile", []string{"lookup", "--file", filepath.Join(dir, "absent.json")}, "failed to read batch file"},
		{"MalformedBatchFile", []string{"lookup", "--file", writeFile(t, dir, "bad.json", `{"address":`)}, "failed to parse batch file"},
		{"EmptyBatchFile", []string{"lookup", "--file", writeFile(t, dir, "none.json", `[]`)}, "contains no lookups"},
		{"MissingFixture", []string{"lookup", "a", "--fixture", filepath.Join(dir, "absent.html")}, "failed to load replay fixture"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "-c", cfgPath)
			if !strings.Contains(strings.Join(tt.args, " "), "--fixture") {
				args = append(args, "--fixture", fixture)
			}
			_, err := execute(t, service.NewComponentFactory(), args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", "workflow:\n  target_url: not-a-url\n")

	_, err := execute(t, service.NewComponentFactory(), "lookup", "a", "-c", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow.target_url must be an absolute URL")

	_, err = execute(t, service.NewComponentFactory(), "lookup", "a", "-c", filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

// recordingFactory captures the configuration the command hands to Create.
type recordingFactory struct {
	cfg  config.Interface
	opts service.Options
}

func (f *recordingFactory) Create(ctx context.Context, cfg config.Interface, opts service.Options, logger *zap.Logger) (*service.Components, error) {
	f.cfg = cfg
	f.opts = opts
	return nil, errors.New("no backend")
}

func TestFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := testConfig(t, dir)
	factory := &recordingFactory{}

	_, err := execute(t, factory, "lookup", "a", "-c", cfgPath,
		"--headful", "--keep-session", "--result-snapshot", "--artifact-dir", "/tmp/snaps", "--fixture", "page.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize lookup components: no backend")

	require.NotNil(t, factory.cfg)
	assert.False(t, factory.cfg.Browser().Headless)
	assert.True(t, factory.cfg.Workflow().KeepSessionOnSuccess)
	assert.Equal(t, "/tmp/snaps", factory.cfg.Diagnostics().ArtifactDir)
	assert.True(t, factory.cfg.Diagnostics().CaptureOnSuccess)
	assert.Equal(t, "page.html", factory.opts.FixturePath)
}

// replayFactory hands out components over a launcher the test can inspect.
type replayFactory struct {
	launcher *htmldoc.Launcher
}

func (f *replayFactory) Create(ctx context.Context, cfg config.Interface, opts service.Options, logger *zap.Logger) (*service.Components, error) {
	return &service.Components{
		Launcher: f.launcher,
		Driver:   workflow.NewDriver(cfg, f.launcher, nil, logger),
	}, nil
}

func TestKeepSession(t *testing.T) {
	dir := t.TempDir()
	cfgPath := testConfig(t, dir)

	t.Run("HoldsUntilInterrupted", func(t *testing.T) {
		factory := &replayFactory{launcher: htmldoc.NewLauncher([]byte(testPage), zap.NewNop())}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		type outcome struct {
			out string
			err error
		}
		done := make(chan outcome, 1)
		go func() {
			out, err := executeContext(t, ctx, factory, "lookup", "세종대로 110", "-c", cfgPath, "--keep-session")
			done <- outcome{out, err}
		}()

		require.Eventually(t, func() bool { return len(factory.launcher.Sessions()) == 1 }, 5*time.Second, 5*time.Millisecond)
		assert.Never(t, func() bool { return len(done) > 0 }, 300*time.Millisecond, 10*time.Millisecond,
			"command returned before interrupt")
		assert.Equal(t, 1, factory.launcher.OpenSessions())

		cancel()
		var res outcome
		select {
		case res = <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("command did not return after interrupt")
		}
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "Status: success")
		assert.Contains(t, res.out, "Browser left open for inspection.")
		assert.Equal(t, 0, factory.launcher.OpenSessions(), "shutdown reclaims the kept session")
	})

	t.Run("FailedLookupDoesNotHold", func(t *testing.T) {
		factory := &replayFactory{launcher: htmldoc.NewLauncher([]byte(emptyPage), zap.NewNop())}
		out, err := execute(t, factory, "lookup", "세종대로 110", "-c", cfgPath, "--keep-session")
		require.ErrorIs(t, err, errLookupFailed)
		assert.NotContains(t, out, "Browser left open")
		assert.Equal(t, 0, factory.launcher.OpenSessions())
	})
}
