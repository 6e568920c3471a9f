package nakama

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"citychain/internal/app"
	"citychain/internal/config"
	"citychain/internal/domain"
	"citychain/internal/storage/stats"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule loads the dictionary and stats schema, then wires RPCs and hooks for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	cfg, err := loadConfig(ctx, logger)
	if err != nil {
		return err
	}

	dict, err := domain.LoadDictionaryFile(cfg.CitiesPath)
	if err != nil {
		return fmt.Errorf("failed to load cities: %w", err)
	}
	logger.Info("Loaded %d cities from %s", dict.Len(), cfg.CitiesPath)

	store := stats.New(db, stats.DriverNakama)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	if cfg.RematchSecret == "" {
		cfg.RematchSecret, err = randomSecret()
		if err != nil {
			return err
		}
		logger.Warn("%s not set, rematch tickets will not survive a restart", config.EnvRematchSecret)
	}
	tickets := NewRematchTickets(cfg.RematchSecret)
	sink := NewNotificationSink(nk, tickets, logger)

	game := app.NewService(dict, store, sink, app.Options{
		TurnDuration:       cfg.TurnDuration(),
		SuggestionDistance: cfg.SuggestionMaxDistance,
		Logger:             logger,
	})
	m := NewModule(game, sink, tickets, cfg)

	if err := m.RegisterRPCs(initializer); err != nil {
		return err
	}
	if err := initializer.RegisterBeforeRt(rtChannelMessageSend, m.BeforeChannelMessageSend); err != nil {
		return err
	}
	if err := initializer.RegisterAfterAuthenticateDevice(m.AfterAuthenticateDevice); err != nil {
		return err
	}

	m.StartMaintenance(rematchPruneInterval)

	logger.Info("CityChain Go module loaded, %ds per turn.", cfg.TurnDurationSeconds)
	return nil
}

func loadConfig(ctx context.Context, logger runtime.Logger) (config.GameConfig, error) {
	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		if !errors.Is(err, config.ErrConfigMissing) {
			return config.GameConfig{}, err
		}
		logger.Warn("%v, using defaults", err)
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg, err := config.GetGameConfig().ApplyEnv(env)
	if err != nil {
		logger.Warn("Ignoring invalid runtime env: %v", err)
	}
	return cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate rematch secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
