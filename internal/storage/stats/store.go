// Package stats persists player win counts and streaks in SQL.
// Queries are written with "?" placeholders and rebound for the driver in use,
// so the same store runs on Nakama's Postgres/CockroachDB and on SQLite.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"citychain/internal/ports"

	"github.com/jmoiron/sqlx"
)

// DriverNakama is the database/sql driver name of the handle Nakama passes to InitModule.
const DriverNakama = "pgx"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS citychain_players (
		user_id        TEXT PRIMARY KEY,
		username       TEXT NOT NULL DEFAULT 'Player',
		country        TEXT NOT NULL DEFAULT '',
		wins           BIGINT NOT NULL DEFAULT 0,
		current_streak BIGINT NOT NULL DEFAULT 0,
		max_streak     BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS citychain_players_wins_idx ON citychain_players (wins DESC, username)`,
}

const (
	queryEnsure = `INSERT INTO citychain_players (user_id, username) VALUES (?, ?)
		ON CONFLICT (user_id) DO NOTHING`
	queryUpsert = `INSERT INTO citychain_players (user_id, username) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET username = excluded.username`
	querySetCountry = `UPDATE citychain_players SET country = ? WHERE user_id = ?`
	queryRecordWin  = `UPDATE citychain_players
		SET wins = wins + 1,
			current_streak = current_streak + 1,
			max_streak = CASE WHEN current_streak + 1 > max_streak THEN current_streak + 1 ELSE max_streak END
		WHERE user_id = ?`
	queryResetStreak = `UPDATE citychain_players SET current_streak = 0 WHERE user_id = ?`
	queryTop         = `SELECT username, country, wins, max_streak FROM citychain_players
		ORDER BY wins DESC, username ASC LIMIT ?`
	queryWins    = `SELECT wins FROM citychain_players WHERE user_id = ?`
	queryAhead   = `SELECT COUNT(*) FROM citychain_players WHERE wins > ?`
	queryProfile = `SELECT user_id, username, country, wins, current_streak, max_streak
		FROM citychain_players WHERE user_id = ?`
)

type playerRow struct {
	UserID        string `db:"user_id"`
	Username      string `db:"username"`
	Country       string `db:"country"`
	Wins          int64  `db:"wins"`
	CurrentStreak int64  `db:"current_streak"`
	MaxStreak     int64  `db:"max_streak"`
}

// Store implements ports.StatsPort.
type Store struct {
	db *sqlx.DB
}

// New wraps an open database handle. driverName selects the placeholder style.
func New(db *sql.DB, driverName string) *Store {
	return &Store{db: sqlx.NewDb(db, driverName)}
}

// Migrate creates the players table and its ranking index.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate stats schema: %w", err)
		}
	}
	return nil
}

func (s *Store) UpsertPlayer(ctx context.Context, userID, displayName string) error {
	if displayName == "" {
		displayName = ports.DefaultPlayerName
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(queryUpsert), userID, displayName); err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", userID, err)
	}
	return nil
}

func (s *Store) SetCountry(ctx context.Context, userID, country string) error {
	return s.ensureThen(ctx, userID, querySetCountry, country, userID)
}

func (s *Store) RecordWin(ctx context.Context, userID string) error {
	return s.ensureThen(ctx, userID, queryRecordWin, userID)
}

func (s *Store) ResetStreak(ctx context.Context, userID string) error {
	return s.ensureThen(ctx, userID, queryResetStreak, userID)
}

// ensureThen creates a default row for userID if needed and runs update in the same transaction.
func (s *Store) ensureThen(ctx context.Context, userID, update string, args ...interface{}) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stats tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(queryEnsure), userID, ports.DefaultPlayerName); err != nil {
		return fmt.Errorf("failed to ensure player %s: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(update), args...); err != nil {
		return fmt.Errorf("failed to update player %s: %w", userID, err)
	}
	return tx.Commit()
}

func (s *Store) TopN(ctx context.Context, n int) ([]ports.RankedPlayer, error) {
	var rows []playerRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(queryTop), n); err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	top := make([]ports.RankedPlayer, 0, len(rows))
	for i, r := range rows {
		top = append(top, ports.RankedPlayer{
			Rank:      int64(i + 1),
			Username:  displayName(r.Username),
			Country:   r.Country,
			Wins:      r.Wins,
			MaxStreak: r.MaxStreak,
		})
	}
	return top, nil
}

func (s *Store) Rank(ctx context.Context, userID string) (ports.Standing, error) {
	var wins int64
	if err := s.db.GetContext(ctx, &wins, s.db.Rebind(queryWins), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.Standing{}, ports.ErrPlayerNotFound
		}
		return ports.Standing{}, fmt.Errorf("failed to load wins for %s: %w", userID, err)
	}
	rank, err := s.rankFor(ctx, wins)
	if err != nil {
		return ports.Standing{}, err
	}
	return ports.Standing{Rank: rank, Wins: wins}, nil
}

func (s *Store) Profile(ctx context.Context, userID string) (ports.PlayerProfile, error) {
	var r playerRow
	if err := s.db.GetContext(ctx, &r, s.db.Rebind(queryProfile), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.PlayerProfile{}, ports.ErrPlayerNotFound
		}
		return ports.PlayerProfile{}, fmt.Errorf("failed to load profile for %s: %w", userID, err)
	}
	rank, err := s.rankFor(ctx, r.Wins)
	if err != nil {
		return ports.PlayerProfile{}, err
	}
	return ports.PlayerProfile{
		UserID:        r.UserID,
		Username:      displayName(r.Username),
		Country:       r.Country,
		Wins:          r.Wins,
		CurrentStreak: r.CurrentStreak,
		MaxStreak:     r.MaxStreak,
		Rank:          rank,
	}, nil
}

// rankFor is 1 + the number of players with strictly more wins.
func (s *Store) rankFor(ctx context.Context, wins int64) (int64, error) {
	var ahead int64
	if err := s.db.GetContext(ctx, &ahead, s.db.Rebind(queryAhead), wins); err != nil {
		return 0, fmt.Errorf("failed to count players ahead: %w", err)
	}
	return ahead + 1, nil
}

func displayName(name string) string {
	if name == "" {
		return ports.DefaultPlayerName
	}
	return name
}

var _ ports.StatsPort = (*Store)(nil)
