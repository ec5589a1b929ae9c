package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

type Issued struct {
	AccessToken string
	ID          string
	ExpiresAt   time.Time
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs an HS256 token whose subject is the user id.
func (m *Manager) Issue(userID uuid.UUID) (*Issued, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Issued{AccessToken: signed, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (m *Manager) Parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoker remembers logged-out token ids until they would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisRevoker struct {
	rdb *redis.Client
}

func NewRedisRevoker(rdb *redis.Client) Revoker {
	return &redisRevoker{rdb: rdb}
}

func (r *redisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, "revoked_token:"+tokenID, 1, ttl).Err()
}

func (r *redisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, "revoked_token:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryRevoker() Revoker {
	return &memoryRevoker{revoked: make(map[string]time.Time)}
}

func (r *memoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, exp := range r.revoked {
		if exp.Before(now) {
			delete(r.revoked, id)
		}
	}
	r.revoked[tokenID] = expiresAt
	return nil
}

func (r *memoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[tokenID]
	return ok && exp.After(time.Now()), nil
}
