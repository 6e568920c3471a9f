package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"citychain/internal/app"
	"citychain/internal/domain"

	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/proto"
)

// BeforeChannelMessageSend turns chat into game input.
// Slash commands are executed and swallowed. While the sender has a game, any other
// text is a move: accepted cities are forwarded in normalized form, rejected ones are
// dropped and explained privately. Everything else passes through untouched.
func (m *Module) BeforeChannelMessageSend(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, in *rtapi.Envelope) (*rtapi.Envelope, error) {
	msg := in.GetChannelMessageSend()
	if msg == nil {
		return in, nil
	}
	userID, ok := callerID(ctx)
	if !ok {
		return in, nil
	}

	content := map[string]interface{}{}
	if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
		return in, nil
	}
	text, _ := content["text"].(string)
	if text == "" {
		return in, nil
	}

	if isCommand(text) {
		if reply := m.runCommand(ctx, logger, userID, text); reply != "" {
			if err := m.sink.Info(ctx, userID, reply); err != nil {
				logger.Warn("ChatHook: failed to reply to %s: %v", userID, err)
			}
		}
		return nil, nil
	}

	if !m.game.InSession(userID) {
		return in, nil
	}

	res, err := m.game.SubmitMove(ctx, userID, text)
	switch {
	case err == nil:
	case domain.IsValidationError(err):
		if err := m.sink.MoveRejected(ctx, userID, err); err != nil {
			logger.Warn("ChatHook: failed to notify %s of rejected move: %v", userID, err)
		}
		return nil, nil
	case errors.Is(err, app.ErrNotInSession):
		// The game ended between the check and the move.
		return in, nil
	default:
		logger.Error("ChatHook: move from %s failed: %v", userID, err)
		return nil, nil
	}

	content["text"] = titleCity(res.Word)
	content["city"] = res.Word
	content["session_id"] = res.SessionID
	rewritten, err := json.Marshal(content)
	if err != nil {
		logger.Error("ChatHook: failed to encode move from %s: %v", userID, err)
		return in, nil
	}

	out := proto.Clone(in).(*rtapi.Envelope)
	out.GetChannelMessageSend().Content = string(rewritten)
	return out, nil
}
