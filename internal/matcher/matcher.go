// internal/matcher/matcher.go
// Package matcher picks one option out of a sub-unit selector (dong/ho lists)
// whose labels come in loose formats such as "101동", "101" or "1-101".
package matcher

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/svccheck/api/schemas"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// rule reports whether a candidate satisfies one step of the priority chain.
type rule struct {
	reason schemas.MatchReason
	accept func(t target, c schemas.CandidateOption) bool
}

// target is the requested label with its digit runs pre-extracted.
type target struct {
	text   string
	digits string
	runs   map[string]struct{}
}

func newTarget(text string) target {
	text = strings.TrimSpace(text)
	return target{text: text, digits: joinedDigits(text), runs: digitSet(text)}
}

var chain = []rule{
	{schemas.ReasonExact, func(t target, c schemas.CandidateOption) bool {
		v := strings.TrimSpace(c.StructuredValue)
		return t.text != "" && v != "" && v == t.text
	}},
	{schemas.ReasonSubstring, func(t target, c schemas.CandidateOption) bool {
		label := strings.TrimSpace(c.DisplayText)
		if t.text == "" || label == "" {
			return false
		}
		return label == t.text || strings.Contains(label, t.text) || strings.Contains(t.text, label)
	}},
	{schemas.ReasonNumericExact, func(t target, c schemas.CandidateOption) bool {
		return t.digits != "" && t.digits == joinedDigits(c.DisplayText)
	}},
	{schemas.ReasonNumericOverlap, func(t target, c schemas.CandidateOption) bool {
		if len(t.runs) == 0 {
			return false
		}
		for run := range digitSet(c.DisplayText) {
			if _, ok := t.runs[run]; ok {
				return true
			}
		}
		return false
	}},
}

// MatchUnit selects the candidate that best fits label. Only visible and
// enabled candidates are considered unless none are, in which case the whole
// list is. Rules are tried in priority order over every candidate; when none
// applies the middle candidate is chosen so the lookup can keep going.
// ok is false only when candidates is empty.
func MatchUnit(label string, candidates []schemas.CandidateOption) (schemas.MatchResult, bool) {
	pool := Selectable(candidates)
	if len(pool) == 0 {
		return schemas.MatchResult{}, false
	}

	t := newTarget(label)
	for _, r := range chain {
		for _, c := range pool {
			if r.accept(t, c) {
				return schemas.MatchResult{Option: c, Reason: r.reason}, true
			}
		}
	}
	return schemas.MatchResult{Option: pool[len(pool)/2], Reason: schemas.ReasonPositionalFallback}, true
}

// Selectable returns the visible and enabled candidates, or all of them when
// that subset is empty.
func Selectable(candidates []schemas.CandidateOption) []schemas.CandidateOption {
	var pool []schemas.CandidateOption
	for _, c := range candidates {
		if c.Selectable() {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return candidates
	}
	return pool
}

func joinedDigits(s string) string {
	return strings.Join(digitRun.FindAllString(s, -1), "")
}

func digitSet(s string) map[string]struct{} {
	runs := digitRun.FindAllString(s, -1)
	set := make(map[string]struct{}, len(runs))
	for _, r := range runs {
		set[r] = struct{}{}
	}
	return set
}
