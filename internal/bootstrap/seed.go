package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Project{},
		&entity.TeamMember{},
		&entity.Investment{},
		&entity.Comment{},
		&entity.CommentLike{},
		&entity.Notification{},
	)
}

// EnsureAdmin makes sure an administrator with email exists. It reports
// whether a new account had to be created.
func EnsureAdmin(ctx context.Context, db *gorm.DB, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, fmt.Errorf("admin email and password are required")
	}

	var existing entity.User
	err := db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&existing).Error
	if err == nil {
		if existing.Role != entity.RoleAdmin {
			return false, fmt.Errorf("user %s exists but is not an admin", email)
		}
		logger.L().Info().Str("email", email).Msg("admin user already exists, skipping seed")
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}

	username, err := freeUsername(ctx, db, "admin")
	if err != nil {
		return false, err
	}

	admin := entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         entity.RoleAdmin,
		IsVerified:   true,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, err
	}

	logger.L().Info().Str("email", email).Str("username", username).Msg("admin user seeded")
	return true, nil
}

func freeUsername(ctx context.Context, db *gorm.DB, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		var count int64
		if err := db.WithContext(ctx).Model(&entity.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}
