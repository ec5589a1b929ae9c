package token

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour)
	userID := uuid.New()

	issued, err := m.Issue(userID)
	require.NoError(t, err)

	claims, err := m.Parse(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	issued, err := NewManager("one", time.Hour).Issue(uuid.New())
	require.NoError(t, err)

	_, err = NewManager("two", time.Hour).Parse(issued.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewManager("secret", -time.Minute)
	issued, err := m.Issue(uuid.New())
	require.NoError(t, err)

	_, err = m.Parse(issued.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()

	require.NoError(t, r.Revoke(ctx, "abc", time.Now().Add(time.Hour)))
	revoked, err := r.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)
}
