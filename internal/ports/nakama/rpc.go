package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"citychain/internal/app"
	"citychain/internal/domain"
	"citychain/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

type rpcFunc = func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

// RegisterRPCs registers every game RPC with Nakama.
func (m *Module) RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]rpcFunc{
		RpcStart:         m.RpcStart,
		RpcHelp:          m.RpcHelp,
		RpcPlay:          m.RpcPlay,
		RpcLeave:         m.RpcLeave,
		RpcMove:          m.RpcMove,
		RpcSurrender:     m.RpcSurrender,
		RpcTop:           m.RpcTop,
		RpcMyRank:        m.RpcMyRank,
		RpcProfile:       m.RpcProfile,
		RpcCountry:       m.RpcCountry,
		RpcRematch:       m.RpcRematch,
		RpcCancelRematch: m.RpcCancelRematch,
		RpcLeaderboard:   m.RpcLeaderboard,
		RpcPing:          RpcHealth,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	return nil
}

type textResponse struct {
	Text string `json:"text"`
}

type playResponse struct {
	Status     app.QueueStatus `json:"status"`
	OpponentID string          `json:"opponent_id,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
}

type moveRequest struct {
	Word string `json:"word"`
}

type moveResponse struct {
	Accepted   bool   `json:"accepted"`
	Word       string `json:"word"`
	NextLetter string `json:"next_letter"`
	Ended      bool   `json:"ended"`
}

type standingResponse struct {
	Found bool  `json:"found"`
	Rank  int64 `json:"rank"`
	Wins  int64 `json:"wins"`
}

type leaderboardResponse struct {
	Players []ports.RankedPlayer `json:"players"`
}

type countryRequest struct {
	Country string `json:"country"`
}

type rematchRequest struct {
	Ticket string `json:"ticket"`
}

type rematchResponse struct {
	Consenting bool   `json:"consenting"`
	Started    bool   `json:"started"`
	Aborted    bool   `json:"aborted"`
	SessionID  string `json:"session_id,omitempty"`
}

func requireUser(ctx context.Context) (string, error) {
	userID, ok := callerID(ctx)
	if !ok {
		return "", runtime.NewError("authentication required", codeUnauthenticated)
	}
	return userID, nil
}

func decodePayload(payload string, v interface{}) error {
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	return nil
}

func respond(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(data), nil
}

// rpcError maps service errors to Nakama runtime errors.
func rpcError(logger runtime.Logger, op string, err error) error {
	switch {
	case domain.IsValidationError(err):
		return runtime.NewError(rejectionText(err), codeInvalidArgument)
	case errors.Is(err, app.ErrInvalidCountry),
		errors.Is(err, app.ErrNotInPair),
		errors.Is(err, ErrInvalidTicket):
		return runtime.NewError(err.Error(), codeInvalidArgument)
	case app.IsConflictError(err), errors.Is(err, app.ErrNotInSession):
		return runtime.NewError(err.Error(), codeFailedPrecondition)
	case errors.Is(err, ports.ErrPlayerNotFound):
		return runtime.NewError(err.Error(), codeNotFound)
	default:
		logger.Error("%s: %v", op, err)
		return runtime.NewError("Internal error", codeInternal)
	}
}

func (m *Module) RpcStart(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	m.register(ctx, logger, userID)
	return respond(textResponse{Text: helpText})
}

func (m *Module) RpcHelp(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return respond(textResponse{Text: helpText})
}

// RpcPlay queues the caller or starts a game with the waiting player.
func (m *Module) RpcPlay(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	m.register(ctx, logger, userID)

	res, err := m.game.Play(ctx, userID)
	if err != nil && !errors.Is(err, app.ErrAlreadyQueued) {
		return "", rpcError(logger, "RpcPlay", err)
	}
	return respond(playResponse{Status: res.Status, OpponentID: res.Opponent, SessionID: res.SessionID})
}

func (m *Module) RpcLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	return respond(map[string]bool{"removed": m.game.Leave(userID)})
}

// RpcMove submits a city. Payload: {"word": "..."}.
func (m *Module) RpcMove(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	var req moveRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}

	res, err := m.game.SubmitMove(ctx, userID, req.Word)
	if err != nil {
		return "", rpcError(logger, "RpcMove", err)
	}
	return respond(moveResponse{Accepted: true, Word: res.Word, NextLetter: letterField(res.NextLetter), Ended: res.Ended})
}

func (m *Module) RpcSurrender(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	if _, err := m.game.Surrender(ctx, userID); err != nil {
		return "", rpcError(logger, "RpcSurrender", err)
	}
	return respond(map[string]bool{"ended": true})
}

func (m *Module) RpcTop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if _, err := requireUser(ctx); err != nil {
		return "", err
	}
	return m.leaderboard(ctx, logger, "RpcTop")
}

// RpcLeaderboard is the public leaderboard; it is callable with the server HTTP key.
func (m *Module) RpcLeaderboard(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return m.leaderboard(ctx, logger, "RpcLeaderboard")
}

func (m *Module) leaderboard(ctx context.Context, logger runtime.Logger, op string) (string, error) {
	top, err := m.game.Leaderboard(ctx, m.cfg.LeaderboardSize)
	if err != nil {
		return "", rpcError(logger, op, err)
	}
	if top == nil {
		top = []ports.RankedPlayer{}
	}
	return respond(leaderboardResponse{Players: top})
}

func (m *Module) RpcMyRank(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	standing, err := m.game.Standing(ctx, userID)
	if errors.Is(err, ports.ErrPlayerNotFound) {
		return respond(standingResponse{Found: false})
	}
	if err != nil {
		return "", rpcError(logger, "RpcMyRank", err)
	}
	return respond(standingResponse{Found: true, Rank: standing.Rank, Wins: standing.Wins})
}

func (m *Module) RpcProfile(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	profile, err := m.game.Profile(ctx, userID)
	if err != nil {
		return "", rpcError(logger, "RpcProfile", err)
	}
	return respond(profile)
}

// RpcCountry stores the caller's country. Payload: {"country": "..."}.
func (m *Module) RpcCountry(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	var req countryRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	m.register(ctx, logger, userID)

	country, err := m.game.SetCountry(ctx, userID, req.Country)
	if err != nil {
		return "", rpcError(logger, "RpcCountry", err)
	}
	return respond(map[string]string{"country": country})
}

// RpcRematch toggles the caller's consent for the pair named by a rematch ticket.
// Payload: {"ticket": "..."}.
func (m *Module) RpcRematch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	var req rematchRequest
	if err := decodePayload(payload, &req); err != nil {
		return "", err
	}
	pair, err := m.tickets.Verify(req.Ticket)
	if err != nil {
		logger.Debug("RpcRematch: rejected ticket from %s: %v", userID, err)
		return "", rpcError(logger, "RpcRematch", err)
	}

	res, err := m.game.Rematch(ctx, pair, userID)
	if err != nil {
		return "", rpcError(logger, "RpcRematch", err)
	}
	return respond(rematchResponse{
		Consenting: res.Consenting,
		Started:    res.Started,
		Aborted:    res.Aborted,
		SessionID:  res.SessionID,
	})
}

func (m *Module) RpcCancelRematch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	return respond(map[string]int{"withdrawn": len(m.game.CancelRematch(ctx, userID))})
}

// RpcHealth is a liveness check.
func RpcHealth(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return "OK", nil
}
