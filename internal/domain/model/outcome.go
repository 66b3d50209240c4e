package model

import "fmt"

// Outcome is a team's reported result for a finished game.
type Outcome string

// Outcome literals as reported by the game server.
const (
	OutcomeVictory     Outcome = "VICTORY"
	OutcomeDefeat      Outcome = "DEFEAT"
	OutcomeDraw        Outcome = "DRAW"
	OutcomeMutualDraw  Outcome = "MUTUAL_DRAW"
	OutcomeUnknown     Outcome = "UNKNOWN"
	OutcomeConflicting Outcome = "CONFLICTING"
)

// ParseOutcome maps a wire literal onto a known Outcome. Unrecognized
// literals fail with ErrUnknownOutcome instead of leaking through as
// arbitrary strings.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeVictory, OutcomeDefeat, OutcomeDraw,
		OutcomeMutualDraw, OutcomeUnknown, OutcomeConflicting:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
	}
}

// IsDraw reports whether the outcome counts as a drawn result.
func (o Outcome) IsDraw() bool {
	return o == OutcomeDraw || o == OutcomeMutualDraw
}
