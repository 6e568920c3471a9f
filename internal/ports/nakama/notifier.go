package nakama

import (
	"context"
	"errors"
	"fmt"

	"citychain/internal/app"
	"citychain/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// notificationSender is the subset of runtime.NakamaModule used to reach players.
type notificationSender interface {
	NotificationSend(ctx context.Context, userID, subject string, content map[string]interface{}, code int, sender string, persistent bool) error
}

// NotificationSink delivers app events as Nakama in-app notifications.
// Every recipient gets a message rendered for them.
type NotificationSink struct {
	nk      notificationSender
	tickets *RematchTickets
	logger  runtime.Logger
}

func NewNotificationSink(nk notificationSender, tickets *RematchTickets, logger runtime.Logger) *NotificationSink {
	return &NotificationSink{nk: nk, tickets: tickets, logger: logger}
}

type notification struct {
	subject    string
	code       int
	content    map[string]interface{}
	persistent bool
}

// Publish sends ev to each recipient. A failed recipient does not stop the others.
func (n *NotificationSink) Publish(ctx context.Context, ev app.Event) error {
	var errs []error
	for _, userID := range ev.Recipients {
		msg, err := n.render(ev, userID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := n.nk.NotificationSend(ctx, userID, msg.subject, msg.content, msg.code, "", msg.persistent); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

// Info sends a plain text reply to a single player.
func (n *NotificationSink) Info(ctx context.Context, userID, text string) error {
	return n.nk.NotificationSend(ctx, userID, "Города", map[string]interface{}{"text": text}, NotifyInfo, "", false)
}

// MoveRejected tells userID why their move was refused.
func (n *NotificationSink) MoveRejected(ctx context.Context, userID string, reason error) error {
	content := map[string]interface{}{
		"text":   rejectionText(reason),
		"reason": reason.Error(),
	}
	return n.nk.NotificationSend(ctx, userID, "Ход не принят", content, NotifyMoveRejected, "", false)
}

func (n *NotificationSink) render(ev app.Event, userID string) (notification, error) {
	switch p := ev.Payload.(type) {
	case app.GameStartedPayload:
		return notification{
			subject: "Игра началась",
			code:    NotifyGameStarted,
			content: map[string]interface{}{
				"text":         gameStartedText(p, userID),
				"session_id":   p.SessionID,
				"opponent_id":  p.Pair.Other(userID),
				"first":        p.Pair.First == userID,
				"turn_seconds": p.TurnSeconds,
			},
		}, nil
	case app.YourTurnPayload:
		return notification{
			subject: "Твой ход",
			code:    NotifyYourTurn,
			content: map[string]interface{}{
				"text":            yourTurnText(p),
				"session_id":      p.SessionID,
				"opponent_word":   p.OpponentWord,
				"required_letter": letterField(p.RequiredLetter),
				"turn_seconds":    p.TurnSeconds,
			},
		}, nil
	case app.MoveAcceptedPayload:
		return notification{
			subject: "Ход принят",
			code:    NotifyMoveAccepted,
			content: map[string]interface{}{
				"text":        moveAcceptedText(p),
				"session_id":  p.SessionID,
				"word":        p.Word,
				"next_letter": letterField(p.NextLetter),
			},
		}, nil
	case app.GameEndedPayload:
		out := p.Outcome
		result := "loss"
		switch {
		case out.Draw:
			result = "draw"
		case out.Winner == userID:
			result = "win"
		}
		return notification{
			subject:    "Игра окончена",
			code:       NotifyGameEnded,
			persistent: true,
			content: map[string]interface{}{
				"text":             gameEndedText(p, userID),
				"session_id":       out.SessionID,
				"result":           result,
				"reason":           string(out.Reason),
				"moves":            out.Moves,
				"duration_seconds": int(out.Duration.Seconds()),
			},
		}, nil
	case app.RematchOfferedPayload:
		return n.rematchOffer(p.Pair)
	case app.RematchUpdatedPayload:
		return notification{
			subject: "Реванш",
			code:    NotifyRematchUpdate,
			content: map[string]interface{}{
				"text":       rematchUpdatedText(p),
				"from":       p.From,
				"consenting": p.Consenting,
			},
		}, nil
	case app.RematchAbortedPayload:
		return notification{
			subject: "Реванш отменён",
			code:    NotifyRematchAborted,
			content: map[string]interface{}{"text": rematchAbortedText},
		}, nil
	case app.RematchWithdrawnPayload:
		return notification{
			subject: "Реванш",
			code:    NotifyRematchUpdate,
			content: map[string]interface{}{
				"text":       rematchWithdrawnText,
				"from":       p.From,
				"consenting": false,
			},
		}, nil
	default:
		return notification{}, fmt.Errorf("unsupported event %s (%T)", ev.Kind, ev.Payload)
	}
}

// rematchOffer builds a notification with a single "Rematch" choice bound to a signed ticket.
func (n *NotificationSink) rematchOffer(pair domain.Pair) (notification, error) {
	ticket, err := n.tickets.Issue(pair)
	if err != nil {
		return notification{}, fmt.Errorf("issue rematch ticket: %w", err)
	}
	return notification{
		subject:    "Реванш?",
		code:       NotifyRematchOffer,
		persistent: true,
		content: map[string]interface{}{
			"text":   rematchOfferText,
			"ticket": ticket,
			"actions": []interface{}{
				map[string]interface{}{
					"id":      "rematch",
					"label":   "↻ Реванш",
					"rpc":     RpcRematch,
					"payload": map[string]interface{}{"ticket": ticket},
				},
			},
		},
	}, nil
}

func letterField(r rune) string {
	if r == domain.NoLetter {
		return ""
	}
	return string(r)
}

var _ app.EventSink = (*NotificationSink)(nil)
