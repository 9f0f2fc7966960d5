// internal/workflow/batch_test.go
package workflow

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/svccheck/api/schemas"
)

func TestRunBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("OrderPreserved", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.BatchCfg.Concurrency = 3
		cfg.BatchCfg.RatePerSecond = 0
		launcher := fixture(t, "street.html")
		d := newDriver(t, cfg, launcher)

		reqs := []schemas.QueryRequest{
			schemas.NewQueryRequest("강남구 테헤란로 152", "", ""),
			schemas.NewQueryRequest("", "", ""),
			schemas.NewQueryRequest("강남구 테헤란로 152-1", "", ""),
			schemas.NewQueryRequest("   ", "101", "1001"),
		}
		results := d.RunBatch(context.Background(), reqs)

		require.Len(t, results, len(reqs))
		assert.True(t, results[0].Succeeded(), results[0].Message)
		assert.Equal(t, "address is required", results[1].Message)
		assert.True(t, results[2].Succeeded(), results[2].Message)
		assert.Equal(t, "address is required", results[3].Message)

		// One session per valid request, each typed its own address.
		sessions := launcher.Sessions()
		require.Len(t, sessions, 2)
		var typed []string
		for _, doc := range sessions {
			for _, a := range doc.Actions() {
				if a.Kind == "type" {
					typed = append(typed, a.Value)
				}
			}
		}
		sort.Strings(typed)
		assert.Equal(t, []string{"강남구 테헤란로 152", "강남구 테헤란로 152-1"}, typed)
		assert.Equal(t, 0, launcher.OpenSessions())
	})

	t.Run("RateLimited", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.BatchCfg.Concurrency = 2
		cfg.BatchCfg.RatePerSecond = 1000
		cfg.BatchCfg.Burst = 1
		launcher := fixture(t, "apartment.html")
		d := newDriver(t, cfg, launcher)

		reqs := make([]schemas.QueryRequest, 4)
		for i := range reqs {
			reqs[i] = schemas.NewQueryRequest("201동 101호 아파트", "201", "101")
		}
		results := d.RunBatch(context.Background(), reqs)

		for i, res := range results {
			assert.True(t, res.Succeeded(), "request %d: %s", i, res.Message)
			require.NotNil(t, res.DongMatch)
			assert.Equal(t, "201동", res.DongMatch.Option.DisplayText)
		}
		assert.Len(t, launcher.Sessions(), 4)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.BatchCfg.Concurrency = 2
		cfg.BatchCfg.RatePerSecond = 10
		launcher := fixture(t, "street.html")
		d := newDriver(t, cfg, launcher)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		results := d.RunBatch(ctx, []schemas.QueryRequest{
			schemas.NewQueryRequest("a", "", ""),
			schemas.NewQueryRequest("b", "", ""),
		})

		for _, res := range results {
			assert.Equal(t, schemas.StatusError, res.Status)
			assert.Contains(t, res.Message, "lookup not started")
		}
		assert.Empty(t, launcher.Sessions())
	})

	t.Run("Empty", func(t *testing.T) {
		d := newDriver(t, testConfig(t), fixture(t, "street.html"))
		assert.Empty(t, d.RunBatch(context.Background(), nil))
	})
}
