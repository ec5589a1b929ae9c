package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/sparkvest/internal/entity"
	profileDto "anoa.com/sparkvest/internal/modules/profile/dto"
	userDto "anoa.com/sparkvest/internal/modules/user/dto"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID uuid.UUID) (bool, error)
	Update(ctx context.Context, user *entity.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type ProfileService interface {
	GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*userDto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput) (*userDto.UserResponse, error)
}

type profileService struct {
	repo UserStore
}

func NewProfileService(repo UserStore) ProfileService {
	return &profileService{repo: repo}
}

func (s *profileService) load(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}
	return user, nil
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*userDto.UserResponse, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := userDto.ToUserResponse(user)
	return &res, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput) (*userDto.UserResponse, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	var newHash string
	if input.NewPassword != "" {
		if input.NewPassword != input.ConfirmPassword {
			return nil, apperror.Validation("New passwords do not match.")
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)) != nil {
			return nil, apperror.Validation("Current password is incorrect.")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperror.Validation("New password must be at most 72 bytes.")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		newHash = string(hashed)
	}

	changed := false
	if input.Username != nil {
		if username := strings.TrimSpace(*input.Username); username != user.Username {
			user.Username = username
			changed = true
		}
	}
	if input.Email != nil {
		if email := strings.ToLower(strings.TrimSpace(*input.Email)); email != user.Email {
			user.Email = email
			changed = true
		}
	}
	if input.PhoneNumber != nil {
		phone := strings.TrimSpace(*input.PhoneNumber)
		if phone == "" {
			user.PhoneNumber = nil
		} else {
			user.PhoneNumber = &phone
		}
		changed = true
	}

	if changed {
		if len(user.Username) < 3 {
			return nil, apperror.Validation("username must be at least 3 characters")
		}
		taken, err := s.repo.ExistsByUsernameOrEmail(ctx, user.Username, user.Email, user.ID)
		if err != nil {
			return nil, apperror.Persistence(err)
		}
		if taken {
			return nil, apperror.ErrConflict
		}
		if err := s.repo.Update(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperror.ErrConflict
			}
			return nil, apperror.Persistence(err)
		}
	}

	if newHash != "" {
		if err := s.repo.UpdatePassword(ctx, user.ID, newHash); err != nil {
			return nil, apperror.Persistence(err)
		}
		logger.L().Info().Str("user_id", user.ID.String()).Msg("password changed")
	}

	res := userDto.ToUserResponse(user)
	return &res, nil
}
