package ports

import (
	"context"
	"errors"
)

// DefaultPlayerName is stored when a player has no username.
const DefaultPlayerName = "Player"

var ErrPlayerNotFound = errors.New("player not found")

// RankedPlayer is one leaderboard row.
type RankedPlayer struct {
	Rank      int64  `json:"rank"`
	Username  string `json:"username"`
	Country   string `json:"country"`
	Wins      int64  `json:"wins"`
	MaxStreak int64  `json:"max_streak"`
}

// Standing is a player's position by wins.
type Standing struct {
	Rank int64 `json:"rank"`
	Wins int64 `json:"wins"`
}

// PlayerProfile is the full stat record of a player.
type PlayerProfile struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Country       string `json:"country"`
	Wins          int64  `json:"wins"`
	CurrentStreak int64  `json:"current_streak"`
	MaxStreak     int64  `json:"max_streak"`
	Rank          int64  `json:"rank"`
}

// StatsPort persists win counts and streaks.
// Every call is a single-row operation; rank is 1 + the number of players with more wins.
type StatsPort interface {
	// UpsertPlayer creates the player row or refreshes its display name.
	UpsertPlayer(ctx context.Context, userID, displayName string) error
	SetCountry(ctx context.Context, userID, country string) error
	// RecordWin increments wins and the current streak, raising the best streak if exceeded.
	RecordWin(ctx context.Context, userID string) error
	// ResetStreak zeroes the current streak.
	ResetStreak(ctx context.Context, userID string) error
	// TopN returns players by wins descending, then name ascending.
	TopN(ctx context.Context, n int) ([]RankedPlayer, error)
	// Rank returns ErrPlayerNotFound for unknown players.
	Rank(ctx context.Context, userID string) (Standing, error)
	// Profile returns ErrPlayerNotFound for unknown players.
	Profile(ctx context.Context, userID string) (PlayerProfile, error)
}
