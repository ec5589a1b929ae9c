// Package flow keeps short-lived multi-step interactions (OTP verification,
// password reset, payment) addressed by an opaque token with an expiry.
package flow

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"anoa.com/sparkvest/pkg/apperror"
	"github.com/google/uuid"
)

type Kind string

const (
	KindRegistration  Kind = "registration"
	KindLogin         Kind = "login"
	KindPasswordReset Kind = "password_reset"
	KindPayment       Kind = "payment"
)

// Flow is a tagged record; which fields are meaningful depends on Kind.
type Flow struct {
	Token     string    `json:"token"`
	Kind      Kind      `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`

	// Registration, Login and PasswordReset.
	Code     string `json:"code,omitempty"`
	Attempts int    `json:"attempts,omitempty"`

	// PasswordReset, set once the code is accepted.
	ResetToken string `json:"reset_token,omitempty"`

	// Payment.
	OrderID   string    `json:"order_id,omitempty"`
	ProjectID uuid.UUID `json:"project_id,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
}

// IsOTP reports whether the flow is completed by a one-time code.
func (f *Flow) IsOTP() bool {
	return f.Kind == KindRegistration || f.Kind == KindLogin || f.Kind == KindPasswordReset
}

type Store interface {
	// Start assigns a token and expiry, persists the flow and supersedes any
	// earlier flow of the same kind for the same user.
	Start(ctx context.Context, f *Flow) error
	// Get loads a live flow; a missing, expired or differently-kinded flow is ErrFlowExpired.
	Get(ctx context.Context, token string, kinds ...Kind) (*Flow, error)
	// Save writes back a flow without extending its expiry.
	Save(ctx context.Context, f *Flow) error
	// Take loads and removes a flow in one step.
	Take(ctx context.Context, token string, kinds ...Kind) (*Flow, error)
	Delete(ctx context.Context, f *Flow) error
}

// VerifyCode checks code against the flow. Each mismatch counts as an attempt;
// reaching maxAttempts discards the flow.
func VerifyCode(ctx context.Context, store Store, f *Flow, code string, maxAttempts int) error {
	if CodesMatch(f.Code, code) {
		return nil
	}

	f.Attempts++
	if maxAttempts > 0 && f.Attempts >= maxAttempts {
		if err := store.Delete(ctx, f); err != nil {
			return err
		}
		return apperror.ErrTooManyAttempts
	}
	if err := store.Save(ctx, f); err != nil {
		return err
	}
	return apperror.ErrInvalidCode
}

func CodesMatch(expected, submitted string) bool {
	if expected == "" || len(expected) != len(submitted) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}

// NewCode returns a 6-digit numeric one-time code.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewToken returns a random alphanumeric string of length n.
func NewToken(n int) (string, error) {
	buf := make([]byte, n)
	limit := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		buf[i] = tokenAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

func kindAllowed(k Kind, kinds []Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func prepare(f *Flow, ttl time.Duration, now time.Time) error {
	token, err := NewToken(32)
	if err != nil {
		return err
	}
	f.Token = token
	f.ExpiresAt = now.Add(ttl)
	f.Attempts = 0
	return nil
}
