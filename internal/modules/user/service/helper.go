package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/sparkvest/internal/modules/user/repository"
	"anoa.com/sparkvest/pkg/apperror"
	"golang.org/x/crypto/bcrypt"
)

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperror.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// usernameBase derives a username seed from the email local part.
func usernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.ReplaceAll(strings.TrimSpace(local), " ", "_")
	if local == "" {
		local = "user"
	}
	if len(local) > 70 {
		local = local[:70]
	}
	return local
}

// uniqueUsername appends 1, 2, 3... to the base until the name is free.
func uniqueUsername(ctx context.Context, repo repository.UserRepository, email string) (string, error) {
	base := usernameBase(email)
	candidate := base
	for counter := 1; ; counter++ {
		exists, err := repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}
