package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Runtime env keys (Nakama --runtime.env) that override the file.
const (
	EnvRoundSeconds  = "citychain_round_seconds"
	EnvCitiesPath    = "citychain_cities_path"
	EnvRematchSecret = "citychain_rematch_secret"
)

// ErrConfigMissing is returned by LoadGameConfig when the file does not exist.
// The defaults are still installed.
var ErrConfigMissing = errors.New("game config file not found")

type GameConfig struct {
	TurnDurationSeconds     int    `json:"turn_duration_seconds"`
	CitiesPath              string `json:"cities_path"`
	LeaderboardSize         int    `json:"leaderboard_size"`
	// RematchOfferTTLSeconds is how long a one-sided rematch consent lives before it is pruned.
	RematchOfferTTLSeconds int `json:"rematch_offer_ttl_seconds"`
	SuggestionMaxDistance  int `json:"suggestion_max_distance"`

	// RematchSecret only comes from the runtime env.
	RematchSecret string `json:"-"`
}

func Default() GameConfig {
	return GameConfig{
		TurnDurationSeconds:    25,
		CitiesPath:             "data/cities.txt",
		LeaderboardSize:        50,
		RematchOfferTTLSeconds: 900,
		SuggestionMaxDistance:  2,
	}
}

// Parse decodes data over the defaults. Non-positive durations and sizes fall back to defaults.
func Parse(data []byte) (GameConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return GameConfig{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	c.normalize()
	return c, nil
}

func (c *GameConfig) normalize() {
	d := Default()
	if c.TurnDurationSeconds <= 0 {
		c.TurnDurationSeconds = d.TurnDurationSeconds
	}
	if strings.TrimSpace(c.CitiesPath) == "" {
		c.CitiesPath = d.CitiesPath
	}
	if c.LeaderboardSize <= 0 {
		c.LeaderboardSize = d.LeaderboardSize
	}
	if c.RematchOfferTTLSeconds <= 0 {
		c.RematchOfferTTLSeconds = d.RematchOfferTTLSeconds
	}
	if c.SuggestionMaxDistance < 0 {
		c.SuggestionMaxDistance = 0
	}
}

// ApplyEnv returns a copy of c with runtime env overrides applied.
// Malformed numbers are reported and leave the file value in place.
func (c GameConfig) ApplyEnv(env map[string]string) (GameConfig, error) {
	var errs []error
	if v, ok := env[EnvRoundSeconds]; ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", EnvRoundSeconds, v, err))
		case n <= 0:
			errs = append(errs, fmt.Errorf("invalid %s %q: must be positive", EnvRoundSeconds, v))
		default:
			c.TurnDurationSeconds = n
		}
	}
	if v := strings.TrimSpace(env[EnvCitiesPath]); v != "" {
		c.CitiesPath = v
	}
	if v := env[EnvRematchSecret]; v != "" {
		c.RematchSecret = v
	}
	return c, errors.Join(errs...)
}

func (c GameConfig) TurnDuration() time.Duration {
	return time.Duration(c.TurnDurationSeconds) * time.Second
}

func (c GameConfig) RematchOfferTTL() time.Duration {
	return time.Duration(c.RematchOfferTTLSeconds) * time.Second
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
// A missing file installs the defaults and returns ErrConfigMissing.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				d := Default()
				cfg = &d
				loadErr = fmt.Errorf("%w: %s", ErrConfigMissing, path)
				return
			}
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, or the defaults before a successful load.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return Default()
	}
	return *cfg
}
