// File: cmd/lookup.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/svccheck/api/schemas"
	"github.com/xkilldash9x/svccheck/internal/observability"
	"github.com/xkilldash9x/svccheck/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errLookupFailed is returned after the results were written when at least one
// lookup ended in error, so the process exits non-zero.
var errLookupFailed = errors.New("one or more lookups failed")

type lookupOptions struct {
	dong        string
	ho          string
	file        string
	fixture     string
	output      string
	headful     bool
	keepSession bool
	snapshot    bool
	artifactDir string
}

// newLookupCmd creates and configures the `lookup` command.
func newLookupCmd(factory service.ComponentFactory) *cobra.Command {
	opts := &lookupOptions{}

	cmd := &cobra.Command{
		Use:   "lookup [address]",
		Short: "Checks service availability for an address",
		Long: `Checks service availability for an address on the operator's lookup page.

A single address is given as the argument, optionally narrowed with --dong and
--ho. A batch is read from a JSON file of {"address","dong","ho"} objects.`,
		Example: `  svccheck lookup "강남구 테헤란로 152"
  svccheck lookup "분당구 정자일로 95" --dong 201 --ho 101 -o json
  svccheck lookup --file addresses.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if opts.headful {
				cfg.SetBrowserHeadless(false)
			}
			if opts.keepSession {
				cfg.SetWorkflowKeepSessionOnSuccess(true)
			}
			if opts.snapshot {
				cfg.SetDiagnosticsCaptureOnSuccess(true)
			}
			if opts.artifactDir != "" {
				cfg.SetDiagnosticsArtifactDir(opts.artifactDir)
			}

			format := strings.ToLower(opts.output)
			if format != "text" && format != "json" {
				return fmt.Errorf("unsupported output format %q (want text or json)", opts.output)
			}

			reqs, err := collectRequests(args, opts)
			if err != nil {
				return err
			}

			components, err := factory.Create(ctx, cfg, service.Options{FixturePath: opts.fixture}, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize lookup components: %w", err)
			}
			defer components.Shutdown(ctx)

			var results []schemas.QueryResult
			if opts.file == "" {
				results = []schemas.QueryResult{components.Driver.Run(ctx, reqs[0])}
			} else {
				results = components.Driver.RunBatch(ctx, reqs)
			}

			if err := writeResults(cmd.OutOrStdout(), format, opts.file != "", reqs, results); err != nil {
				return fmt.Errorf("failed to write results: %w", err)
			}
			if cfg.Workflow().KeepSessionOnSuccess && anySucceeded(results) {
				// Kept sessions die with the launcher, so hold it until interrupted.
				logger.Info("Browser session kept open for inspection until interrupted.")
				fmt.Fprintln(cmd.ErrOrStderr(), "Browser left open for inspection. Press Ctrl+C to close it.")
				<-ctx.Done()
			}
			for _, res := range results {
				if !res.Succeeded() {
					logger.Debug("Lookup finished with errors.", zap.String("message", res.Message))
					return errLookupFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.dong, "dong", "", "Building number (dong) to select, e.g. 201 or 201동.")
	cmd.Flags().StringVar(&opts.ho, "ho", "", "Unit number (ho) to select, e.g. 101 or 101호.")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON file with a list of lookups to run as a batch.")
	cmd.Flags().StringVar(&opts.fixture, "fixture", "", "Replay a saved HTML page instead of launching a browser.")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format: 'text' or 'json'.")
	cmd.Flags().BoolVar(&opts.headful, "headful", false, "Show the browser window. (Overrides config/env)")
	cmd.Flags().BoolVar(&opts.keepSession, "keep-session", false, "Leave the browser tab open after a successful lookup.")
	cmd.Flags().BoolVar(&opts.snapshot, "result-snapshot", false, "Save a snapshot of the result page after a successful lookup.")
	cmd.Flags().StringVar(&opts.artifactDir, "artifact-dir", "", "Directory for snapshots. (Overrides config/env)")
	cmd.MarkFlagsMutuallyExclusive("file", "dong")
	cmd.MarkFlagsMutuallyExclusive("file", "ho")

	return cmd
}

func anySucceeded(results []schemas.QueryResult) bool {
	for _, res := range results {
		if res.Succeeded() {
			return true
		}
	}
	return false
}

// collectRequests builds the lookups from the argument or the batch file.
func collectRequests(args []string, opts *lookupOptions) ([]schemas.QueryRequest, error) {
	if opts.file == "" {
		if len(args) == 0 {
			return nil, errors.New("an address argument or --file is required")
		}
		return []schemas.QueryRequest{schemas.NewQueryRequest(args[0], opts.dong, opts.ho)}, nil
	}
	if len(args) > 0 {
		return nil, errors.New("an address argument cannot be combined with --file")
	}

	path, err := homedir.Expand(opts.file)
	if err != nil {
		return nil, fmt.Errorf("invalid batch file path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	var raw []schemas.QueryRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("batch file contains no lookups")
	}
	reqs := make([]schemas.QueryRequest, len(raw))
	for i, r := range raw {
		reqs[i] = schemas.NewQueryRequest(r.Address, r.Dong, r.Ho)
	}
	return reqs, nil
}

func writeResults(w io.Writer, format string, batch bool, reqs []schemas.QueryRequest, results []schemas.QueryResult) error {
	if format == "json" {
		var v interface{} = results
		if !batch {
			v = results[0]
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if batch {
			fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(results), reqs[i].Address)
		}
		writeText(w, res)
	}
	return nil
}

func writeText(w io.Writer, res schemas.QueryResult) {
	fmt.Fprintf(w, "Status: %s\n", res.Status)
	fmt.Fprintf(w, "%s\n", res.Message)
	if res.SelectedDetail != "" {
		fmt.Fprintf(w, "Selected: %s\n", res.SelectedDetail)
	}
	for _, m := range []struct {
		name  string
		match *schemas.MatchResult
	}{{"Dong", res.DongMatch}, {"Ho", res.HoMatch}} {
		if m.match != nil {
			fmt.Fprintf(w, "%s: %s (%s)\n", m.name, m.match.Option.DisplayText, m.match.Reason)
		}
	}
	if res.ServiceSummary != "" {
		fmt.Fprintf(w, "Service:\n%s\n", res.ServiceSummary)
	}
	if res.ResultSnapshotPath != "" {
		fmt.Fprintf(w, "Result snapshot: %s\n", res.ResultSnapshotPath)
	}
	if res.DiagnosticArtifactPath != "" {
		fmt.Fprintf(w, "Diagnostic snapshot: %s\n", res.DiagnosticArtifactPath)
	}
}
