// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/svccheck/api/schemas"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, "ko-KR", cfg.Browser().Language)
	assert.Equal(t, 3, cfg.Workflow().MaxFrameDepth)
	assert.Equal(t, 15*time.Second, cfg.Workflow().InputWaitTimeout)
	assert.Equal(t, 2*time.Second, cfg.Workflow().Settle.AfterSubmit)
	assert.False(t, cfg.Workflow().KeepSessionOnSuccess)
	assert.Equal(t, 3, cfg.Extraction().WindowSize)
	assert.Len(t, cfg.Extraction().Categories, 2)
	assert.Equal(t, "data-value", cfg.Locators().StructuredValue)
	assert.False(t, cfg.Diagnostics().CaptureOnSuccess)
	assert.Equal(t, "search_result", cfg.Diagnostics().ResultPrefix)
	assert.Equal(t, schemas.ByID("inpNameStreet"), cfg.Locators().Input[0])
	require.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Workflow Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.WorkflowCfg.TargetURL = "not a url"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workflow.target_url must be an absolute URL")

		cfg = NewDefaultConfig()
		cfg.WorkflowCfg.MaxFrameDepth = -1
		cfg.WorkflowCfg.StepTimeout = 0
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workflow.max_frame_depth must not be negative")
		assert.Contains(t, err.Error(), "workflow.step_timeout must be a positive duration")
	})

	t.Run("Extraction Validation", func(t *testing.T) {
		valid := ExtractionConfig{WindowSize: 2, MaxBlocksPerCategory: 1, Categories: DefaultKeywordCategories()}
		assert.NoError(t, valid.Validate())

		invalid := valid
		invalid.MaxBlocksPerCategory = 0
		invalid.Categories = []KeywordCategory{{Label: "empty"}}
		err := invalid.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_blocks_per_category must be a positive integer")
		assert.Contains(t, err.Error(), "extraction.categories[0] needs a label")
	})

	t.Run("Batch Validation", func(t *testing.T) {
		assert.NoError(t, BatchConfig{Concurrency: 1}.Validate(), "zero rate disables limiting")
		assert.Error(t, BatchConfig{Concurrency: 0}.Validate())
		err := BatchConfig{Concurrency: 1, RatePerSecond: 1, Burst: 0}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch.burst must be a positive integer")
	})

	t.Run("Diagnostics Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.DiagnosticsCfg.ArtifactDir = " "
		assert.Error(t, cfg.Validate())
		cfg.DiagnosticsCfg.Enabled = false
		assert.NoError(t, cfg.Validate())
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
workflow:
  max_frame_depth: 1
  settle:
    after_submit: 250ms
locators:
  input:
    - kind: id
      value: addrInput
extraction:
  categories:
    - label: Fiber
      keywords: [fiber, optic]
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Workflow().MaxFrameDepth)
		assert.Equal(t, 250*time.Millisecond, cfg.Workflow().Settle.AfterSubmit)
		assert.Equal(t, schemas.LocatorStrategy{schemas.ByID("addrInput")}, cfg.Locators().Input)
		// Sections not mentioned in the YAML keep their defaults.
		assert.Equal(t, DefaultLocators().Submit, cfg.Locators().Submit)
		require.Len(t, cfg.Extraction().Categories, 1)
		assert.Equal(t, "Fiber", cfg.Extraction().Categories[0].Label)
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("batch.concurrency", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "batch.concurrency must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		t.Setenv("SVCCHECK_WORKFLOW_MAX_FRAME_DEPTH", "5")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Workflow().MaxFrameDepth)
	})
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetBrowserHeadless(false)
	cfg.SetWorkflowKeepSessionOnSuccess(true)
	cfg.SetDiagnosticsArtifactDir("/tmp/artifacts")
	cfg.SetDiagnosticsCaptureOnSuccess(true)

	assert.False(t, cfg.Browser().Headless)
	assert.True(t, cfg.Workflow().KeepSessionOnSuccess)
	assert.Equal(t, "/tmp/artifacts", cfg.Diagnostics().ArtifactDir)
	assert.True(t, cfg.Diagnostics().CaptureOnSuccess)
}
