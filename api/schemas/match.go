// api/schemas/match.go
package schemas

// CandidateOption is one selectable value in a multi-choice control.
type CandidateOption struct {
	DisplayText     string `json:"display_text"`
	StructuredValue string `json:"structured_value,omitempty"`
	Visible         bool   `json:"visible"`
	Enabled         bool   `json:"enabled"`
	// Index is the position of the option in the list it was read from.
	Index int `json:"index"`
}

// Selectable reports whether the option can be interacted with.
func (c CandidateOption) Selectable() bool { return c.Visible && c.Enabled }

// MatchReason tags which rule of the matcher picked a candidate.
type MatchReason string

const (
	ReasonExact              MatchReason = "exact"
	ReasonSubstring          MatchReason = "substring"
	ReasonNumericExact       MatchReason = "numericExact"
	ReasonNumericOverlap     MatchReason = "numericOverlap"
	ReasonPositionalFallback MatchReason = "positionalFallback"
)

// MatchResult is the chosen candidate and the rule that chose it.
type MatchResult struct {
	Option CandidateOption `json:"option"`
	Reason MatchReason     `json:"reason"`
}
