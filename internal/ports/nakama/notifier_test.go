package nakama

import (
	"context"
	"strings"
	"testing"
	"time"

	"citychain/internal/app"
	"citychain/internal/domain"
)

func newTestSink() (*NotificationSink, *mockNotifier) {
	nk := &mockNotifier{}
	return NewNotificationSink(nk, NewRematchTickets(testSecret), noopLogger{}), nk
}

func TestPublish_GameStartedIsPersonalized(t *testing.T) {
	sink, nk := newTestSink()
	pair := domain.Pair{First: "u1", Second: "u2"}

	err := sink.Publish(context.Background(), app.Event{
		Kind:       app.EventGameStarted,
		Payload:    app.GameStartedPayload{SessionID: "s1", Pair: pair, TurnSeconds: 25},
		Recipients: []string{"u1", "u2"},
	})
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	first := nk.to("u1", NotifyGameStarted)
	second := nk.to("u2", NotifyGameStarted)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("got %d/%d notifications, want 1 each", len(first), len(second))
	}
	if first[0].content["first"] != true || second[0].content["first"] != false {
		t.Fatalf("first flags = %v/%v, want true/false", first[0].content["first"], second[0].content["first"])
	}
	if first[0].content["opponent_id"] != "u2" {
		t.Fatalf("opponent_id = %v, want u2", first[0].content["opponent_id"])
	}
	if first[0].content["text"] == second[0].content["text"] {
		t.Fatalf("both players got the same text %q", first[0].content["text"])
	}
}

func TestPublish_YourTurnCarriesLetter(t *testing.T) {
	sink, nk := newTestSink()

	_ = sink.Publish(context.Background(), app.Event{
		Kind:       app.EventYourTurn,
		Payload:    app.YourTurnPayload{SessionID: "s1", OpponentWord: "набережные челны", RequiredLetter: 'н', TurnSeconds: 25},
		Recipients: []string{"u2"},
	})

	got := nk.to("u2", NotifyYourTurn)
	if len(got) != 1 {
		t.Fatalf("got %d your_turn notifications, want 1", len(got))
	}
	if got[0].content["required_letter"] != "н" {
		t.Fatalf("required_letter = %v, want н", got[0].content["required_letter"])
	}
	text := got[0].content["text"].(string)
	if !strings.Contains(text, "Набережные Челны") || !strings.Contains(text, "Н") || !strings.Contains(text, "25") {
		t.Fatalf("text = %q, want opponent city, letter and seconds", text)
	}
}

func TestPublish_GameEndedPerRecipient(t *testing.T) {
	sink, nk := newTestSink()
	out := domain.Outcome{
		SessionID: "s1",
		Pair:      domain.Pair{First: "u1", Second: "u2"},
		Winner:    "u2",
		Loser:     "u1",
		Reason:    domain.ReasonTimedOut,
		Moves:     4,
		Duration:  90 * time.Second,
	}

	_ = sink.Publish(context.Background(), app.Event{
		Kind:       app.EventGameEnded,
		Payload:    app.GameEndedPayload{Outcome: out, TurnSeconds: 25},
		Recipients: out.Players(),
	})

	tests := []struct {
		userID string
		result string
	}{
		{"u1", "loss"},
		{"u2", "win"},
	}
	for _, tt := range tests {
		got := nk.to(tt.userID, NotifyGameEnded)
		if len(got) != 1 {
			t.Fatalf("%s got %d game_ended notifications, want 1", tt.userID, len(got))
		}
		if got[0].content["result"] != tt.result {
			t.Fatalf("%s result = %v, want %s", tt.userID, got[0].content["result"], tt.result)
		}
		if !got[0].persistent {
			t.Fatalf("%s game_ended not persistent", tt.userID)
		}
		text := got[0].content["text"].(string)
		if !strings.Contains(text, "25 сек") || !strings.Contains(text, "Ходов: 4") || !strings.Contains(text, "1m30s") {
			t.Fatalf("%s text = %q, want reason, moves and duration", tt.userID, text)
		}
	}
}

func TestPublish_RematchOfferCarriesTicket(t *testing.T) {
	sink, nk := newTestSink()
	pair := domain.Pair{First: "u1", Second: "u2"}

	if err := sink.Publish(context.Background(), app.Event{
		Kind:       app.EventRematchOffered,
		Payload:    app.RematchOfferedPayload{Pair: pair},
		Recipients: []string{"u1", "u2"},
	}); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	for _, userID := range []string{"u1", "u2"} {
		got := nk.to(userID, NotifyRematchOffer)
		if len(got) != 1 {
			t.Fatalf("%s got %d offers, want 1", userID, len(got))
		}
		ticket, _ := got[0].content["ticket"].(string)
		verified, err := sink.tickets.Verify(ticket)
		if err != nil {
			t.Fatalf("ticket for %s does not verify: %v", userID, err)
		}
		if verified != pair {
			t.Fatalf("ticket pair = %+v, want %+v", verified, pair)
		}
		actions, ok := got[0].content["actions"].([]interface{})
		if !ok || len(actions) != 1 {
			t.Fatalf("actions = %v, want one choice", got[0].content["actions"])
		}
		if action := actions[0].(map[string]interface{}); action["rpc"] != RpcRematch {
			t.Fatalf("action rpc = %v, want %s", action["rpc"], RpcRematch)
		}
	}
}

func TestPublish_ContinuesPastFailedRecipient(t *testing.T) {
	sink, nk := newTestSink()
	nk.failTo = map[string]bool{"u1": true}

	err := sink.Publish(context.Background(), app.Event{
		Kind:       app.EventRematchAborted,
		Payload:    app.RematchAbortedPayload{Pair: domain.Pair{First: "u1", Second: "u2"}},
		Recipients: []string{"u1", "u2"},
	})
	if err == nil {
		t.Fatal("Publish() error = nil, want delivery error")
	}
	if got := nk.to("u2", NotifyRematchAborted); len(got) != 1 {
		t.Fatalf("u2 got %d notifications, want 1", len(got))
	}
}

func TestPublish_UnknownPayload(t *testing.T) {
	sink, nk := newTestSink()
	if err := sink.Publish(context.Background(), app.Event{Kind: "mystery", Payload: 42, Recipients: []string{"u1"}}); err == nil {
		t.Fatal("Publish() error = nil, want unsupported event error")
	}
	if len(nk.sent) != 0 {
		t.Fatalf("sent %d notifications, want 0", len(nk.sent))
	}
}
