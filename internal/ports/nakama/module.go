package nakama

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"citychain/internal/app"
	"citychain/internal/config"
	"citychain/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Module binds the game service to Nakama's RPC, realtime and auth hooks.
type Module struct {
	game    *app.Service
	sink    *NotificationSink
	tickets *RematchTickets
	cfg     config.GameConfig

	stopMaintenance context.CancelFunc
	maintenanceDone chan struct{}
	shutdownOnce    sync.Once
}

func NewModule(game *app.Service, sink *NotificationSink, tickets *RematchTickets, cfg config.GameConfig) *Module {
	return &Module{game: game, sink: sink, tickets: tickets, cfg: cfg}
}

// StartMaintenance prunes idle rematch offers every interval until Shutdown.
func (m *Module) StartMaintenance(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.stopMaintenance = cancel
	m.maintenanceDone = done

	go func() {
		defer close(done)
		m.game.MaintainRematchOffers(ctx, interval, m.cfg.RematchOfferTTL())
	}()
}

// Shutdown stops offer maintenance and every pending turn clock. Safe to call more than once.
func (m *Module) Shutdown() {
	m.shutdownOnce.Do(func() {
		if m.stopMaintenance != nil {
			m.stopMaintenance()
			<-m.maintenanceDone
		}
		m.game.Close()
	})
}

func callerID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	return userID, ok && userID != ""
}

func callerName(ctx context.Context) string {
	username, _ := ctx.Value(runtime.RUNTIME_CTX_USERNAME).(string)
	return username
}

// register refreshes the caller's stats row; failures only cost a stale leaderboard name.
func (m *Module) register(ctx context.Context, logger runtime.Logger, userID string) {
	if err := m.game.RegisterPlayer(ctx, userID, callerName(ctx)); err != nil {
		logger.Warn("Register: failed to upsert player %s: %v", userID, err)
	}
}

// isCommand reports whether chat text is a slash command.
func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// splitCommand returns the lowercased command name and the rest of the line.
// Telegram-style "/cmd@bot" suffixes are dropped.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	name, arg, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// runCommand executes a chat command for userID and returns the reply text.
// An empty reply means the outcome is delivered by game notifications.
func (m *Module) runCommand(ctx context.Context, logger runtime.Logger, userID, text string) string {
	name, arg := splitCommand(text)
	switch name {
	case "/start":
		m.register(ctx, logger, userID)
		return helpText
	case "/help":
		return helpText
	case "/play":
		m.register(ctx, logger, userID)
		res, err := m.game.Play(ctx, userID)
		if err != nil && !app.IsConflictError(err) {
			logger.Error("Command /play: failed for %s: %v", userID, err)
			return "Не удалось начать игру, попробуй позже."
		}
		return playText(res, err)
	case "/leave":
		return leaveText(m.game.Leave(userID))
	case "/surrender":
		if _, err := m.game.Surrender(ctx, userID); err != nil {
			if errors.Is(err, app.ErrNotInSession) {
				return "Ты сейчас не в игре."
			}
			logger.Error("Command /surrender: failed for %s: %v", userID, err)
			return "Не удалось завершить игру, попробуй позже."
		}
		return ""
	case "/top":
		top, err := m.game.Leaderboard(ctx, m.cfg.LeaderboardSize)
		if err != nil {
			logger.Error("Command /top: %v", err)
			return "Не удалось загрузить таблицу, попробуй позже."
		}
		return leaderboardText(top)
	case "/myrank":
		standing, err := m.game.Standing(ctx, userID)
		if errors.Is(err, ports.ErrPlayerNotFound) {
			return standingText(standing, false)
		}
		if err != nil {
			logger.Error("Command /myrank: failed for %s: %v", userID, err)
			return "Не удалось загрузить ранг, попробуй позже."
		}
		return standingText(standing, true)
	case "/profile":
		profile, err := m.game.Profile(ctx, userID)
		if errors.Is(err, ports.ErrPlayerNotFound) {
			return "Профиль не найден. Сыграй (/play), и статистика появится."
		}
		if err != nil {
			logger.Error("Command /profile: failed for %s: %v", userID, err)
			return "Не удалось загрузить профиль, попробуй позже."
		}
		return profileText(profile)
	case "/country":
		m.register(ctx, logger, userID)
		country, err := m.game.SetCountry(ctx, userID, arg)
		if errors.Is(err, app.ErrInvalidCountry) {
			return "Укажи страну: /country Россия"
		}
		if err != nil {
			logger.Error("Command /country: failed for %s: %v", userID, err)
			return "Не удалось сохранить страну, попробуй позже."
		}
		return "Страна сохранена: " + country + "."
	case "/cancel_rematch":
		if len(m.game.CancelRematch(ctx, userID)) == 0 {
			return "У тебя нет активных предложений реванша."
		}
		return "Твоё предложение реванша отменено."
	default:
		return "Неизвестная команда. Список команд: /help"
	}
}
