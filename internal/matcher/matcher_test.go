// internal/matcher/matcher_test.go
package matcher

import (
	"fmt"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/svccheck/api/schemas"
)

func options(labels ...string) []schemas.CandidateOption {
	out := make([]schemas.CandidateOption, len(labels))
	for i, l := range labels {
		out[i] = schemas.CandidateOption{DisplayText: l, Visible: true, Enabled: true, Index: i}
	}
	return out
}

func TestMatchUnit(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		candidates []schemas.CandidateOption
		wantLabel  string
		wantReason schemas.MatchReason
	}{
		{
			name:   "ExactOnStructuredValue",
			target: "201",
			candidates: []schemas.CandidateOption{
				{DisplayText: "이백일동", StructuredValue: "201", Visible: true, Enabled: true},
				{DisplayText: "201동", Visible: true, Enabled: true, Index: 1},
			},
			wantLabel:  "이백일동",
			wantReason: schemas.ReasonExact,
		},
		{
			name:       "DongSubstring",
			target:     "201",
			candidates: options("101동", "102동", "201동"),
			wantLabel:  "201동",
			wantReason: schemas.ReasonSubstring,
		},
		{
			name:       "HoContainsTarget",
			target:     "101",
			candidates: options("101호", "102호"),
			wantLabel:  "101호",
			wantReason: schemas.ReasonSubstring,
		},
		{
			name:       "LabelContainedInTarget",
			target:     "201동 아파트",
			candidates: options("101동", "201동"),
			wantLabel:  "201동",
			wantReason: schemas.ReasonSubstring,
		},
		{
			name:       "NumericExact",
			target:     "1-101",
			candidates: options("101동", "1101호", "1102호"),
			wantLabel:  "1101호",
			wantReason: schemas.ReasonNumericExact,
		},
		{
			name:       "NumericOverlap",
			target:     "제 3 동 101",
			candidates: options("A동", "101-1", "3-7"),
			wantLabel:  "101-1",
			wantReason: schemas.ReasonNumericOverlap,
		},
		{
			name:       "PositionalFallbackOdd",
			target:     "없는동",
			candidates: options("가동", "나동", "다동"),
			wantLabel:  "나동",
			wantReason: schemas.ReasonPositionalFallback,
		},
		{
			name:       "PositionalFallbackEven",
			target:     "없는동",
			candidates: options("가동", "나동", "다동", "라동"),
			wantLabel:  "다동",
			wantReason: schemas.ReasonPositionalFallback,
		},
		{
			name:       "BlankTargetFallsBack",
			target:     "   ",
			candidates: options("101동", "102동", "103동"),
			wantLabel:  "102동",
			wantReason: schemas.ReasonPositionalFallback,
		},
		{
			name:       "BlankLabelNeverContained",
			target:     "한빛",
			candidates: options("", "한빛동"),
			wantLabel:  "한빛동",
			wantReason: schemas.ReasonSubstring,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MatchUnit(tc.target, tc.candidates)
			require.True(t, ok)
			assert.Equal(t, tc.wantLabel, got.Option.DisplayText)
			assert.Equal(t, tc.wantReason, got.Reason)
		})
	}
}

func TestMatchUnitEmpty(t *testing.T) {
	_, ok := MatchUnit("101", nil)
	assert.False(t, ok)
	_, ok = MatchUnit("101", []schemas.CandidateOption{})
	assert.False(t, ok)
}

func TestSelectableFiltering(t *testing.T) {
	t.Run("HiddenAndDisabledIgnored", func(t *testing.T) {
		candidates := []schemas.CandidateOption{
			{DisplayText: "101동", Visible: false, Enabled: true, Index: 0},
			{DisplayText: "101동 상가", Visible: true, Enabled: false, Index: 1},
			{DisplayText: "102동", Visible: true, Enabled: true, Index: 2},
			{DisplayText: "103동", Visible: true, Enabled: true, Index: 3},
		}
		got, ok := MatchUnit("101", candidates)
		require.True(t, ok)
		// Neither 101 option is selectable, so no rule matches among the rest.
		assert.Equal(t, schemas.ReasonPositionalFallback, got.Reason)
		assert.Equal(t, 3, got.Option.Index)
	})

	t.Run("AllUnselectableUsesFullList", func(t *testing.T) {
		candidates := []schemas.CandidateOption{
			{DisplayText: "101호", Index: 0},
			{DisplayText: "102호", Index: 1},
		}
		assert.Len(t, Selectable(candidates), 2)
		got, ok := MatchUnit("102", candidates)
		require.True(t, ok)
		assert.Equal(t, "102호", got.Option.DisplayText)
	})
}

// A target carrying digit run D picks the only candidate whose label contains
// D by a digit rule or containment, never by position.
func TestDigitPriority(t *testing.T) {
	for d := 1; d <= 40; d++ {
		run := fmt.Sprintf("%d%d", d, d+5)
		labels := []string{"가동", "나동", fmt.Sprintf("제%s호", run), "다동", "라동"}
		target := fmt.Sprintf("%s-%d호", run, d%3+1000)

		t.Run(run, func(t *testing.T) {
			got, ok := MatchUnit(target, options(labels...))
			require.True(t, ok)
			assert.NotEqual(t, schemas.ReasonPositionalFallback, got.Reason)
			assert.Contains(t, []schemas.MatchReason{schemas.ReasonNumericExact, schemas.ReasonNumericOverlap}, got.Reason)
			assert.Equal(t, 2, got.Option.Index)
		})
	}
}

func FuzzMatchUnit(f *testing.F) {
	f.Add("201", "101동", "201동")
	f.Add("1-101", "101호", "")
	f.Add("", "", "")

	f.Fuzz(func(t *testing.T, target, a, b string) {
		candidates := options(a, b, a+b)
		got, ok := MatchUnit(target, candidates)
		require.True(t, ok)
		assert.Contains(t, candidates, got.Option)
	})
}

type fuzzInput struct {
	Target     string
	Candidates []schemas.CandidateOption
}

func FuzzMatchUnit_Structured(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		var in fuzzInput
		if err := fuzz.NewConsumer(data).GenerateStruct(&in); err != nil {
			return
		}

		got, ok := MatchUnit(in.Target, in.Candidates)
		if len(in.Candidates) == 0 {
			assert.False(t, ok)
			return
		}
		require.True(t, ok)
		assert.Contains(t, Selectable(in.Candidates), got.Option)
		assert.Contains(t, []schemas.MatchReason{
			schemas.ReasonExact,
			schemas.ReasonSubstring,
			schemas.ReasonNumericExact,
			schemas.ReasonNumericOverlap,
			schemas.ReasonPositionalFallback,
		}, got.Reason)
	})
}
