package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-content-admin/internal/config"
	"github.com/jrsteele09/go-content-admin/users"
	"github.com/rs/zerolog/log"
)

const maxPasswordTries = 10

// Bootstrap seeds the admin account when it does not exist yet. The password
// is returned only when it was generated here, so it can be shown once.
func Bootstrap(ctx context.Context, userRepo users.Repo, cfg config.EnvConfig) (generatedPassword string, err error) {
	log.Info().Msg("🔧 Bootstrap: Checking admin account...")

	adminEmail := users.NormalizeEmail(cfg.GetAdminEmail())
	existing, err := userRepo.GetByEmail(ctx, adminEmail)
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return "", fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if existing != nil {
		log.Info().Str("email", existing.Email).Msg("   Admin already exists")
		return "", nil
	}

	password := cfg.GetAdminPassword()
	if password == "" {
		if password, err = generatePassword(); err != nil {
			return "", err
		}
		generatedPassword = password
	} else if err := users.ValidatePasswordStrength(password); err != nil {
		return "", fmt.Errorf("configured admin password is too weak: %w", err)
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &users.User{
		Email:                  adminEmail,
		PasswordHash:           passwordHash,
		PasswordChangeRequired: generatedPassword != "",
	}
	if err := userRepo.Upsert(ctx, admin); err != nil {
		return "", fmt.Errorf("failed to create admin: %w", err)
	}

	log.Info().Str("email", admin.Email).Msg("   ✅ Created admin")
	if generatedPassword != "" {
		log.Info().Msgf("👤 Admin Credentials:")
		log.Info().Msgf("   Email:       %s", admin.Email)
		log.Info().Msgf("   Password:    %s", generatedPassword)
		log.Info().Msgf("   ⚠️  SAVE THIS PASSWORD - it will not be displayed again!")
	}
	return generatedPassword, nil
}

// generatePassword makes a random password that passes users.ValidatePasswordStrength
func generatePassword() (string, error) {
	for range maxPasswordTries {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password := base64.RawURLEncoding.EncodeToString(b)
		if users.ValidatePasswordStrength(password) == nil {
			return password, nil
		}
	}
	return "", errors.New("failed to generate a strong enough password")
}
