// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// Components depend on this rather than the concrete struct so tests can hand
// them tailored configurations.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Workflow() WorkflowConfig
	Locators() LocatorsConfig
	Extraction() ExtractionConfig
	Diagnostics() DiagnosticsConfig
	Batch() BatchConfig

	SetBrowserHeadless(bool)
	SetWorkflowKeepSessionOnSuccess(bool)
	SetDiagnosticsArtifactDir(string)
	SetDiagnosticsCaptureOnSuccess(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	BrowserCfg     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	WorkflowCfg    WorkflowConfig    `mapstructure:"workflow" yaml:"workflow"`
	LocatorsCfg    LocatorsConfig    `mapstructure:"locators" yaml:"locators"`
	ExtractionCfg  ExtractionConfig  `mapstructure:"extraction" yaml:"extraction"`
	DiagnosticsCfg DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	BatchCfg       BatchConfig       `mapstructure:"batch" yaml:"batch"`
}

var _ Interface = (*Config)(nil)

// --- Getters ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig         { return c.BrowserCfg }
func (c *Config) Workflow() WorkflowConfig       { return c.WorkflowCfg }
func (c *Config) Locators() LocatorsConfig       { return c.LocatorsCfg }
func (c *Config) Extraction() ExtractionConfig   { return c.ExtractionCfg }
func (c *Config) Diagnostics() DiagnosticsConfig { return c.DiagnosticsCfg }
func (c *Config) Batch() BatchConfig             { return c.BatchCfg }

// --- Setters (used by CLI flag overrides) ---

func (c *Config) SetBrowserHeadless(b bool)             { c.BrowserCfg.Headless = b }
func (c *Config) SetWorkflowKeepSessionOnSuccess(b bool) { c.WorkflowCfg.KeepSessionOnSuccess = b }
func (c *Config) SetDiagnosticsArtifactDir(dir string)  { c.DiagnosticsCfg.ArtifactDir = dir }
func (c *Config) SetDiagnosticsCaptureOnSuccess(b bool)  { c.DiagnosticsCfg.CaptureOnSuccess = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser process.
type BrowserConfig struct {
	Headless   bool `mapstructure:"headless" yaml:"headless"`
	DisableGPU bool `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	// DisableSiteIsolation keeps cross-origin iframes in the same renderer so
	// nested documents can be searched from the top-level session.
	DisableSiteIsolation bool          `mapstructure:"disable_site_isolation" yaml:"disable_site_isolation"`
	WindowWidth          int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight         int           `mapstructure:"window_height" yaml:"window_height"`
	Language             string        `mapstructure:"language" yaml:"language"`
	UserAgent            string        `mapstructure:"user_agent" yaml:"user_agent"`
	LaunchTimeout        time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	Args                 []string      `mapstructure:"args" yaml:"args"`
}

// SettleConfig holds the fixed delays inserted after state-changing actions.
// The remote page offers no completion signal, so these are the only pacing.
type SettleConfig struct {
	AfterPopup    time.Duration `mapstructure:"after_popup" yaml:"after_popup"`
	AfterSubmit   time.Duration `mapstructure:"after_submit" yaml:"after_submit"`
	AfterSelect   time.Duration `mapstructure:"after_select" yaml:"after_select"`
	AfterService  time.Duration `mapstructure:"after_service" yaml:"after_service"`
	AfterToggle   time.Duration `mapstructure:"after_toggle" yaml:"after_toggle"`
	AfterOption   time.Duration `mapstructure:"after_option" yaml:"after_option"`
	AfterFinal    time.Duration `mapstructure:"after_final" yaml:"after_final"`
	AfterListOpen time.Duration `mapstructure:"after_list_open" yaml:"after_list_open"`
}

// WorkflowConfig tunes the lookup state machine.
type WorkflowConfig struct {
	TargetURL           string        `mapstructure:"target_url" yaml:"target_url"`
	MaxFrameDepth       int           `mapstructure:"max_frame_depth" yaml:"max_frame_depth"`
	ReadyTimeout        time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	InputWaitTimeout    time.Duration `mapstructure:"input_wait_timeout" yaml:"input_wait_timeout"`
	DropdownWaitTimeout time.Duration `mapstructure:"dropdown_wait_timeout" yaml:"dropdown_wait_timeout"`
	StepTimeout         time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	PollInterval        time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	TeardownTimeout     time.Duration `mapstructure:"teardown_timeout" yaml:"teardown_timeout"`
	// KeepSessionOnSuccess leaves the browsing session open after a successful
	// lookup so it can be inspected in headful mode.
	KeepSessionOnSuccess bool         `mapstructure:"keep_session_on_success" yaml:"keep_session_on_success"`
	DetailMinRunes       int          `mapstructure:"detail_min_runes" yaml:"detail_min_runes"`
	BodyPreviewRunes     int          `mapstructure:"body_preview_runes" yaml:"body_preview_runes"`
	Settle               SettleConfig `mapstructure:"settle" yaml:"settle"`
}

// KeywordCategory is one labelled keyword set used by the result extractor.
type KeywordCategory struct {
	Label    string   `mapstructure:"label" yaml:"label"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
}

// ExtractionConfig configures the raw-text fallback extraction.
type ExtractionConfig struct {
	WindowSize           int               `mapstructure:"window_size" yaml:"window_size"`
	MaxBlocksPerCategory int               `mapstructure:"max_blocks_per_category" yaml:"max_blocks_per_category"`
	Categories           []KeywordCategory `mapstructure:"categories" yaml:"categories"`
}

// DiagnosticsConfig configures failure snapshots and the optional snapshot of
// the result page after a successful lookup.
type DiagnosticsConfig struct {
	Enabled          bool   `mapstructure:"enabled" yaml:"enabled"`
	ArtifactDir      string `mapstructure:"artifact_dir" yaml:"artifact_dir"`
	FilePrefix       string `mapstructure:"file_prefix" yaml:"file_prefix"`
	CaptureOnSuccess bool   `mapstructure:"capture_on_success" yaml:"capture_on_success"`
	ResultPrefix     string `mapstructure:"result_prefix" yaml:"result_prefix"`
}

// BatchConfig bounds how many lookups run at once and how fast they start.
type BatchConfig struct {
	Concurrency   int     `mapstructure:"concurrency" yaml:"concurrency"`
	RatePerSecond float64 `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst         int     `mapstructure:"burst" yaml:"burst"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	cfg.applyFallbacks()
	return &cfg
}

// NewConfigFromViper binds environment variables, unmarshals and validates.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("SVCCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyFallbacks()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// SetDefaults initializes default values for every scalar configuration key.
// List-shaped sections (locators, keyword categories) get their defaults in
// applyFallbacks so a partial YAML override does not have to repeat them.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "svccheck")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.disable_site_isolation", true)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.language", "ko-KR")
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Workflow --
	v.SetDefault("workflow.target_url", "https://www.bworld.co.kr/myb/product/join/address/svcAveSearch.do")
	v.SetDefault("workflow.max_frame_depth", 3)
	v.SetDefault("workflow.ready_timeout", "10s")
	v.SetDefault("workflow.input_wait_timeout", "15s")
	v.SetDefault("workflow.dropdown_wait_timeout", "10s")
	v.SetDefault("workflow.step_timeout", "20s")
	v.SetDefault("workflow.poll_interval", "250ms")
	v.SetDefault("workflow.teardown_timeout", "10s")
	v.SetDefault("workflow.keep_session_on_success", false)
	v.SetDefault("workflow.detail_min_runes", 10)
	v.SetDefault("workflow.body_preview_runes", 500)
	v.SetDefault("workflow.settle.after_popup", "500ms")
	v.SetDefault("workflow.settle.after_submit", "2s")
	v.SetDefault("workflow.settle.after_select", "2s")
	v.SetDefault("workflow.settle.after_service", "1s")
	v.SetDefault("workflow.settle.after_toggle", "500ms")
	v.SetDefault("workflow.settle.after_list_open", "300ms")
	v.SetDefault("workflow.settle.after_option", "500ms")
	v.SetDefault("workflow.settle.after_final", "1s")

	// -- Extraction --
	v.SetDefault("extraction.window_size", 3)
	v.SetDefault("extraction.max_blocks_per_category", 2)

	// -- Diagnostics --
	v.SetDefault("diagnostics.enabled", true)
	v.SetDefault("diagnostics.artifact_dir", "artifacts")
	v.SetDefault("diagnostics.file_prefix", "error_page")
	v.SetDefault("diagnostics.capture_on_success", false)
	v.SetDefault("diagnostics.result_prefix", "search_result")

	// -- Batch --
	v.SetDefault("batch.concurrency", 2)
	v.SetDefault("batch.rate_per_second", 0.5)
	v.SetDefault("batch.burst", 1)
}

// applyFallbacks fills list-shaped sections that were left empty.
func (c *Config) applyFallbacks() {
	c.LocatorsCfg = c.LocatorsCfg.WithDefaults()
	if len(c.ExtractionCfg.Categories) == 0 {
		c.ExtractionCfg.Categories = DefaultKeywordCategories()
	}
}

// DefaultKeywordCategories returns the internet and B tv keyword sets.
func DefaultKeywordCategories() []KeywordCategory {
	return []KeywordCategory{
		{Label: "인터넷", Keywords: []string{"인터넷", "기가", "광랜", "Mbps", "Gbps"}},
		{Label: "B tv", Keywords: []string{"B tv", "Btv", "IPTV"}},
	}
}

// Validate checks the whole configuration and reports every problem it finds.
func (c *Config) Validate() error {
	var errs []error
	if err := c.WorkflowCfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.ExtractionCfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.BatchCfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	diag := c.DiagnosticsCfg
	if (diag.Enabled || diag.CaptureOnSuccess) && strings.TrimSpace(diag.ArtifactDir) == "" {
		errs = append(errs, errors.New("diagnostics.artifact_dir is required when diagnostics are enabled"))
	}
	return errors.Join(errs...)
}

// Validate checks the workflow section.
func (w WorkflowConfig) Validate() error {
	var errs []error
	u, err := url.Parse(w.TargetURL)
	if strings.TrimSpace(w.TargetURL) == "" || err != nil || u.Scheme == "" {
		errs = append(errs, fmt.Errorf("workflow.target_url must be an absolute URL, got %q", w.TargetURL))
	}
	if w.MaxFrameDepth < 0 {
		errs = append(errs, errors.New("workflow.max_frame_depth must not be negative"))
	}
	if w.StepTimeout <= 0 {
		errs = append(errs, errors.New("workflow.step_timeout must be a positive duration"))
	}
	if w.PollInterval <= 0 {
		errs = append(errs, errors.New("workflow.poll_interval must be a positive duration"))
	}
	return errors.Join(errs...)
}

// Validate checks the extraction section.
func (e ExtractionConfig) Validate() error {
	var errs []error
	if e.WindowSize < 0 {
		errs = append(errs, errors.New("extraction.window_size must not be negative"))
	}
	if e.MaxBlocksPerCategory <= 0 {
		errs = append(errs, errors.New("extraction.max_blocks_per_category must be a positive integer"))
	}
	for i, cat := range e.Categories {
		if cat.Label == "" || len(cat.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("extraction.categories[%d] needs a label and at least one keyword", i))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the batch section.
func (b BatchConfig) Validate() error {
	var errs []error
	if b.Concurrency <= 0 {
		errs = append(errs, errors.New("batch.concurrency must be a positive integer"))
	}
	if b.RatePerSecond < 0 {
		errs = append(errs, errors.New("batch.rate_per_second must not be negative"))
	}
	if b.RatePerSecond > 0 && b.Burst <= 0 {
		errs = append(errs, errors.New("batch.burst must be a positive integer when rate limiting is enabled"))
	}
	return errors.Join(errs...)
}
