package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/modules/user/dto"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

// ExternalIdentity is what the identity provider asserts about the user.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
}

type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleProvider struct {
	config  *oauth2.Config
	timeout time.Duration
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string, timeout time.Duration) IdentityProvider {
	return &googleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		timeout: timeout,
	}
}

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *googleProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: p.timeout})

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.config.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get user info: status %d", resp.StatusCode)
	}

	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if !info.VerifiedEmail {
		info.Email = ""
	}

	return &ExternalIdentity{Subject: info.ID, Email: info.Email, Name: info.Name}, nil
}

func (s *authService) GoogleLogin(state string) string {
	return s.idp.AuthCodeURL(state)
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	ident, err := s.idp.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Join(apperror.ErrFederation, err)
	}
	if ident.Email == "" {
		return nil, fmt.Errorf("identity has no verified email: %w", apperror.ErrFederation)
	}
	email := normalizeEmail(ident.Email)

	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.IsVerified {
			if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
				return nil, apperror.Persistence(err)
			}
			user.IsVerified = true
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.createFederatedUser(ctx, email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperror.Persistence(err)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) createFederatedUser(ctx context.Context, email string) (*entity.User, error) {
	username, err := uniqueUsername(ctx, s.repo, email)
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	// Random placeholder; the account can only sign in through the provider
	// or after a password reset.
	hash, err := hashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         entity.RoleInvestor,
		IsVerified:   true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.Persistence(err)
	}

	logger.L().Info().Str("user_id", user.ID.String()).Str("username", username).Msg("created user from google sign-in")
	return user, nil
}
