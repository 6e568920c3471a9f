package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"citychain/internal/ports"
)

// PlayerRegistrar creates the leaderboard row for a player.
type PlayerRegistrar interface {
	RegisterPlayer(ctx context.Context, playerID, displayName string) error
}

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// DisplayName is the friendly name given to the account.
	DisplayName string
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
}

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	players  PlayerRegistrar
	rng      *rand.Rand
}

// NewService constructs an onboarding service with required ports.
// accounts/players must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, players PlayerRegistrar, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		players:  players,
		rng:      rng,
	}
}

// OnboardNewUser names a newly created account and registers it for the leaderboard.
// The stats row is written even when the profile update fails.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.players == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{DisplayName: s.generateFriendlyName()}
	if err := s.accounts.UpdateProfile(ctx, userID, result.DisplayName, result.DisplayName); err != nil {
		result.ProfileUpdateErr = err
	}

	if err := s.players.RegisterPlayer(ctx, userID, result.DisplayName); err != nil {
		return result, fmt.Errorf("failed to register player: %w", err)
	}
	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Happy", "Shiny", "Brave", "Clever", "Swift", "Calm", "Mighty", "Witty", "Sly", "Wild"}
	nouns := []string{"Panda", "Tiger", "Eagle", "Dolphin", "Wolf", "Otter", "Falcon", "Bear", "Fox", "Lion"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
