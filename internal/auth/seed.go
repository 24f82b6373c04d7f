package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SeedRoot creates the configured root account if no user with that
// username exists. It is safe to call on every boot. An existing account
// is left untouched, including its password and role.
// Returns true if the account was created.
func SeedRoot(ctx context.Context, users UserRepository, hasher *PasswordHasher, username, password string, logger *slog.Logger) (bool, error) {
	if !IsValidUsername(username) {
		return false, fmt.Errorf("invalid root username %q", username)
	}
	if password == "" {
		return false, errors.New("root password is empty")
	}

	existing, err := users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != RoleRoot {
			logger.Warn("root username belongs to a non-root account", "username", username, "role", existing.Role)
		} else {
			logger.Info("root account exists, skipping seed", "username", username)
		}
		return false, nil
	case !errors.Is(err, ErrUserNotFound):
		return false, fmt.Errorf("looking up root account: %w", err)
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hashing root password: %w", err)
	}

	root := &User{
		Username:     username,
		PasswordHash: hash,
		Role:         RoleRoot,
	}
	if err := users.Create(ctx, root); err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return false, nil
		}
		return false, fmt.Errorf("creating root account: %w", err)
	}

	logger.Info("root account created", "username", username, "user_id", root.ID)
	return true, nil
}
