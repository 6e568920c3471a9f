package app

import (
	"context"
	"strings"
	"unicode/utf8"

	"citychain/internal/ports"
)

// Leaderboard returns the top n players; n <= 0 selects DefaultLeaderboardSize.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]ports.RankedPlayer, error) {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}
	return s.stats.TopN(ctx, n)
}

// Standing returns ports.ErrPlayerNotFound for players without a stats row.
func (s *Service) Standing(ctx context.Context, playerID string) (ports.Standing, error) {
	return s.stats.Rank(ctx, playerID)
}

// Profile returns ports.ErrPlayerNotFound for players without a stats row.
func (s *Service) Profile(ctx context.Context, playerID string) (ports.PlayerProfile, error) {
	return s.stats.Profile(ctx, playerID)
}

// RegisterPlayer makes sure playerID has a stats row carrying displayName.
func (s *Service) RegisterPlayer(ctx context.Context, playerID, displayName string) error {
	name := strings.Join(strings.Fields(displayName), " ")
	if name == "" {
		name = ports.DefaultPlayerName
	}
	return s.stats.UpsertPlayer(ctx, playerID, name)
}

// SetCountry stores a trimmed, single-spaced country label.
func (s *Service) SetCountry(ctx context.Context, playerID, country string) (string, error) {
	country = strings.Join(strings.Fields(country), " ")
	if country == "" || utf8.RuneCountInString(country) > maxCountryLength {
		return "", ErrInvalidCountry
	}
	if err := s.stats.SetCountry(ctx, playerID, country); err != nil {
		return "", err
	}
	return country, nil
}
