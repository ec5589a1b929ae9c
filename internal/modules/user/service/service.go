package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/flow"
	"anoa.com/sparkvest/internal/modules/user/dto"
	"anoa.com/sparkvest/internal/modules/user/repository"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/logger"
	"anoa.com/sparkvest/pkg/mailer"
	"anoa.com/sparkvest/pkg/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.FlowResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.LoginResult, error)
	VerifyOtp(ctx context.Context, input dto.VerifyOtpInput) (*dto.VerifyOtpResult, error)
	ResendOtp(ctx context.Context, input dto.ResendOtpInput) (*dto.FlowResponse, error)
	ForgotPassword(ctx context.Context, input dto.ForgotPasswordInput) (*dto.FlowResponse, error)
	VerifyPasswordOtp(ctx context.Context, input dto.VerifyOtpInput) (*dto.ResetTokenResponse, error)
	ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error
	GoogleLogin(state string) string
	GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
}

// OTPSender delivers one-time codes; failures are logged, never returned to the caller.
type OTPSender interface {
	SendOTP(ctx context.Context, to string, purpose mailer.Purpose, code string) error
}

type authService struct {
	repo        repository.UserRepository
	flows       flow.Store
	otp         OTPSender
	tokens      *token.Manager
	revoker     token.Revoker
	idp         IdentityProvider
	maxAttempts int
}

func NewAuthService(
	repo repository.UserRepository,
	flows flow.Store,
	otp OTPSender,
	tokens *token.Manager,
	revoker token.Revoker,
	idp IdentityProvider,
	maxAttempts int,
) AuthService {
	return &authService{
		repo:        repo,
		flows:       flows,
		otp:         otp,
		tokens:      tokens,
		revoker:     revoker,
		idp:         idp,
		maxAttempts: maxAttempts,
	}
}

func (s *authService) Register(ctx context.Context, input dto.RegisterInput) (*dto.FlowResponse, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)

	role := entity.Role(input.Role)
	if role == "" {
		role = entity.RoleInvestor
	}
	if role != entity.RoleInvestor && role != entity.RoleIdeaOwner {
		return nil, apperror.Validation("role must be investor or idea_owner")
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email, uuid.Nil)
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	if exists {
		return nil, apperror.ErrConflict
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PhoneNumber:  optionalString(input.PhoneNumber),
		PasswordHash: hash,
		Role:         role,
		IsVerified:   false,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.ErrConflict
		}
		return nil, apperror.Persistence(err)
	}

	return s.startOTPFlow(ctx, user, flow.KindRegistration, mailer.PurposeVerification)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, apperror.Persistence(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if !user.IsVerified {
		pending, err := s.startOTPFlow(ctx, user, flow.KindLogin, mailer.PurposeVerification)
		if err != nil {
			return nil, err
		}
		pending.Message = "Please verify your email address to continue."
		return &dto.LoginResult{Flow: pending}, nil
	}

	auth, err := s.buildAuthResponse(user)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResult{Auth: auth}, nil
}

func (s *authService) VerifyOtp(ctx context.Context, input dto.VerifyOtpInput) (*dto.VerifyOtpResult, error) {
	f, err := s.flows.Get(ctx, input.FlowToken, flow.KindRegistration, flow.KindLogin)
	if err != nil {
		return nil, err
	}

	if err := flow.VerifyCode(ctx, s.flows, f, input.Code, s.maxAttempts); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, f.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return nil, apperror.Persistence(err)
	}
	user.IsVerified = true

	if err := s.flows.Delete(ctx, f); err != nil {
		logger.L().Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to clear verification flow")
	}

	result := &dto.VerifyOtpResult{
		Verified: true,
		Message:  "Email verification successful! You can now log in.",
	}
	if f.Kind == flow.KindLogin {
		auth, err := s.buildAuthResponse(user)
		if err != nil {
			return nil, err
		}
		result.Auth = auth
		result.Message = "Email verification successful! You are now logged in."
	}
	return result, nil
}

func (s *authService) ResendOtp(ctx context.Context, input dto.ResendOtpInput) (*dto.FlowResponse, error) {
	f, err := s.flows.Get(ctx, input.FlowToken, flow.KindRegistration, flow.KindLogin, flow.KindPasswordReset)
	if err != nil {
		return nil, err
	}

	code, err := flow.NewCode()
	if err != nil {
		return nil, err
	}
	f.Code = code
	f.Attempts = 0
	f.ResetToken = ""
	if err := s.flows.Save(ctx, f); err != nil {
		return nil, err
	}

	purpose := mailer.PurposeVerification
	if f.Kind == flow.KindPasswordReset {
		purpose = mailer.PurposePasswordReset
	}
	s.deliverOTP(ctx, f.Email, purpose, code)

	resp := flowResponse(f)
	resp.Message = "Verification code has been resent to your email."
	return resp, nil
}

func (s *authService) ForgotPassword(ctx context.Context, input dto.ForgotPasswordInput) (*dto.FlowResponse, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusNotFound, "no account found with that email address", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}

	return s.startOTPFlow(ctx, user, flow.KindPasswordReset, mailer.PurposePasswordReset)
}

func (s *authService) VerifyPasswordOtp(ctx context.Context, input dto.VerifyOtpInput) (*dto.ResetTokenResponse, error) {
	f, err := s.flows.Get(ctx, input.FlowToken, flow.KindPasswordReset)
	if err != nil {
		return nil, err
	}

	if err := flow.VerifyCode(ctx, s.flows, f, input.Code, s.maxAttempts); err != nil {
		return nil, err
	}

	resetToken, err := flow.NewToken(32)
	if err != nil {
		return nil, err
	}
	f.ResetToken = resetToken
	f.Code = ""
	if err := s.flows.Save(ctx, f); err != nil {
		return nil, err
	}

	return &dto.ResetTokenResponse{FlowToken: f.Token, ResetToken: resetToken}, nil
}

func (s *authService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	if input.Password != input.ConfirmPassword {
		return apperror.Validation("passwords do not match")
	}

	f, err := s.flows.Get(ctx, input.FlowToken, flow.KindPasswordReset)
	if err != nil {
		return err
	}
	if !flow.CodesMatch(f.ResetToken, input.ResetToken) {
		return apperror.New(http.StatusBadRequest, "invalid or expired password reset link", apperror.ErrInvalidCode)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, f.UserID, hash); err != nil {
		return apperror.Persistence(err)
	}

	if err := s.flows.Delete(ctx, f); err != nil {
		logger.L().Warn().Err(err).Str("user_id", f.UserID.String()).Msg("failed to clear reset flow")
	}
	return nil
}

func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, tokenID, expiresAt)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user: %w", apperror.ErrNotFound)
		}
		return nil, apperror.Persistence(err)
	}
	res := dto.ToUserResponse(user)
	return &res, nil
}

func (s *authService) startOTPFlow(ctx context.Context, user *entity.User, kind flow.Kind, purpose mailer.Purpose) (*dto.FlowResponse, error) {
	code, err := flow.NewCode()
	if err != nil {
		return nil, err
	}

	f := &flow.Flow{
		Kind:   kind,
		UserID: user.ID,
		Email:  user.Email,
		Code:   code,
	}
	if err := s.flows.Start(ctx, f); err != nil {
		return nil, err
	}

	s.deliverOTP(ctx, user.Email, purpose, code)

	resp := flowResponse(f)
	resp.Message = "A verification code has been sent to your email."
	return resp, nil
}

func (s *authService) deliverOTP(ctx context.Context, to string, purpose mailer.Purpose, code string) {
	if err := s.otp.SendOTP(ctx, to, purpose, code); err != nil {
		logger.L().Warn().Err(err).Str("to", to).Str("purpose", string(purpose)).Msg("failed to deliver verification code")
	}
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	issued, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: issued.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   issued.ExpiresAt.Unix(),
		User:        dto.ToUserResponse(user),
	}, nil
}

func flowResponse(f *flow.Flow) *dto.FlowResponse {
	return &dto.FlowResponse{
		FlowToken: f.Token,
		Kind:      string(f.Kind),
		Email:     f.Email,
		ExpiresAt: f.ExpiresAt,
	}
}
