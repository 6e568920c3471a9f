package domain

import "time"

// EndReason explains why a game reached its terminal state.
type EndReason string

const (
	// ReasonTimedOut is a forfeit by the player who let the turn clock run out.
	ReasonTimedOut EndReason = "timed_out"
	// ReasonSurrendered is a forfeit requested by the losing player.
	ReasonSurrendered EndReason = "surrendered"
	// ReasonExhausted is a draw: no unused city starts with the required letter.
	ReasonExhausted EndReason = "exhausted"
)

// Outcome is the terminal result of a session.
type Outcome struct {
	SessionID string
	Pair      Pair
	Winner    string // empty on a draw
	Loser     string // empty on a draw
	Draw      bool
	Reason    EndReason
	Moves     int
	Duration  time.Duration
}

// Players returns both participants, first mover first.
func (o Outcome) Players() []string {
	return []string{o.Pair.First, o.Pair.Second}
}
