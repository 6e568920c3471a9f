package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"citychain/internal/app/onboarding"
	"citychain/internal/ports"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// AfterAuthenticateDevice names new accounts and creates their leaderboard row.
// Onboarding failures are logged; they never fail the authentication.
func (m *Module) AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if out == nil || !out.Created {
		return nil
	}

	userID, ok := callerID(ctx)
	if !ok {
		resolvedID, err := userIDFromSessionToken(out.Token)
		if err != nil {
			logger.Error("AfterAuthenticateDevice: Failed to extract user ID from token: %v", err)
			return nil
		}
		userID = resolvedID
	}

	logger.Info("Onboarding new user %s", userID)
	m.onboard(ctx, logger, NewNakamaAccountAdapter(nk), userID)
	return nil
}

func (m *Module) onboard(ctx context.Context, logger runtime.Logger, accounts ports.AccountPort, userID string) {
	service := onboarding.NewService(accounts, m.game, nil)
	result, err := service.OnboardNewUser(ctx, userID)
	if result.ProfileUpdateErr != nil {
		logger.Warn("AfterAuthenticateDevice: Failed to update profile for user %s: %v", userID, result.ProfileUpdateErr)
	}
	if err != nil {
		logger.Warn("AfterAuthenticateDevice: Onboarding failed for user %s: %v", userID, err)
		return
	}
	logger.Info("AfterAuthenticateDevice: %s is now %s", userID, result.DisplayName)
}

// userIDFromSessionToken reads the uid claim of a Nakama session token.
// The token was just minted by the server, so the signature is not checked.
func userIDFromSessionToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("failed to parse session token: %w", err)
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("token claims missing uid")
	}
	return uid, nil
}
