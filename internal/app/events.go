package app

import (
	"context"
	"time"

	"citychain/internal/domain"
)

// EventKind identifies emitted game events for transport dispatch.
type EventKind string

const (
	EventGameStarted      EventKind = "game_started"
	EventYourTurn         EventKind = "your_turn"
	EventMoveAccepted     EventKind = "move_accepted"
	EventGameEnded        EventKind = "game_ended"
	EventRematchOffered   EventKind = "rematch_offered"
	EventRematchUpdated   EventKind = "rematch_updated"
	EventRematchAborted   EventKind = "rematch_aborted"
	EventRematchWithdrawn EventKind = "rematch_withdrawn"
)

// Event is an app event addressed to specific players.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs
}

// EventSink delivers events to players. Delivery failures never roll back game state.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

type GameStartedPayload struct {
	SessionID   string
	Pair        domain.Pair
	TurnSeconds int
}

// YourTurnPayload is sent to the player who must move next.
// OpponentWord is empty on the opening move.
type YourTurnPayload struct {
	SessionID      string
	OpponentWord   string
	RequiredLetter rune
	TurnSeconds    int
}

type MoveAcceptedPayload struct {
	SessionID  string
	Word       string
	NextLetter rune
}

type GameEndedPayload struct {
	Outcome     domain.Outcome
	TurnSeconds int
}

type RematchOfferedPayload struct {
	Pair domain.Pair
}

// RematchUpdatedPayload tells a player their former opponent toggled consent.
type RematchUpdatedPayload struct {
	From       string
	Consenting bool
}

type RematchAbortedPayload struct {
	Pair domain.Pair
}

type RematchWithdrawnPayload struct {
	From string
}

func turnSeconds(d time.Duration) int {
	return int(d / time.Second)
}
