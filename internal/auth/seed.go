package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the entropy of the generated owner password.
const seedPasswordBytes = 16

// SeedOwner creates the initial owner account when the user table is
// empty, so a fresh install is reachable over the API. The generated
// password is logged once and must be changed immediately. Returns the
// password, or empty string when seeding was skipped.
func SeedOwner(ctx context.Context, userRepo UserRepository, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping owner seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	owner := &User{
		Username:     "owner",
		DisplayName:  "System Owner",
		PasswordHash: hash,
		Role:         RoleOwner,
		IsActive:     true,
	}

	if err := userRepo.Create(ctx, owner); err != nil {
		return "", fmt.Errorf("creating seed owner: %w", err)
	}

	logger.Warn("seed owner account created",
		"username", "owner",
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
