package flow

import (
	"context"
	"regexp"
	"testing"
	"time"

	"anoa.com/sparkvest/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeIsSixDigits(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{6}$`)
	for range 50 {
		code, err := NewCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestNewTokenLength(t *testing.T) {
	token, err := NewToken(32)
	require.NoError(t, err)
	assert.Len(t, token, 32)
	assert.Regexp(t, `^[A-Za-z0-9]+$`, token)
}

func TestCodesMatch(t *testing.T) {
	assert.True(t, CodesMatch("123456", "123456"))
	assert.False(t, CodesMatch("123456", "654321"))
	assert.False(t, CodesMatch("123456", "12345"))
	assert.False(t, CodesMatch("", ""))
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	f := &Flow{Kind: KindRegistration, UserID: uuid.New(), Code: "111111"}
	require.NoError(t, store.Start(ctx, f))
	assert.Len(t, f.Token, 32)

	got, err := store.Get(ctx, f.Token, KindRegistration, KindLogin)
	require.NoError(t, err)
	assert.Equal(t, "111111", got.Code)

	_, err = store.Get(ctx, f.Token, KindPayment)
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)

	taken, err := store.Take(ctx, f.Token)
	require.NoError(t, err)
	assert.Equal(t, f.Token, taken.Token)

	_, err = store.Get(ctx, f.Token)
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)
}

func TestMemoryStoreSupersedesSameKind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	userID := uuid.New()

	first := &Flow{Kind: KindPasswordReset, UserID: userID, Code: "111111"}
	require.NoError(t, store.Start(ctx, first))
	second := &Flow{Kind: KindPasswordReset, UserID: userID, Code: "222222"}
	require.NoError(t, store.Start(ctx, second))

	_, err := store.Get(ctx, first.Token)
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)

	got, err := store.Get(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, "222222", got.Code)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore(time.Minute).(*memoryStore)
	now := time.Now()
	ms.now = func() time.Time { return now }

	f := &Flow{Kind: KindLogin, UserID: uuid.New(), Code: "123456"}
	require.NoError(t, ms.Start(ctx, f))

	now = now.Add(2 * time.Minute)
	_, err := ms.Get(ctx, f.Token)
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)
}

func TestMemoryStoreSweepsAbandonedFlows(t *testing.T) {
	ctx := context.Background()
	ms := NewMemoryStore(time.Minute).(*memoryStore)
	now := time.Now()
	ms.now = func() time.Time { return now }

	abandoned := &Flow{Kind: KindRegistration, UserID: uuid.New(), Code: "111111"}
	require.NoError(t, ms.Start(ctx, abandoned))
	payment := &Flow{Kind: KindPayment, UserID: uuid.New(), OrderID: "order_1"}
	require.NoError(t, ms.Start(ctx, payment))

	now = now.Add(2 * time.Minute)
	fresh := &Flow{Kind: KindLogin, UserID: uuid.New(), Code: "222222"}
	require.NoError(t, ms.Start(ctx, fresh))

	assert.Len(t, ms.flows, 1)
	assert.Contains(t, ms.flows, fresh.Token)
	assert.Len(t, ms.owners, 1)
}

func TestVerifyCodeCountsAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	f := &Flow{Kind: KindRegistration, UserID: uuid.New(), Code: "123456"}
	require.NoError(t, store.Start(ctx, f))

	assert.ErrorIs(t, VerifyCode(ctx, store, f, "000000", 3), apperror.ErrInvalidCode)
	assert.ErrorIs(t, VerifyCode(ctx, store, f, "000001", 3), apperror.ErrInvalidCode)

	stored, err := store.Get(ctx, f.Token)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Attempts)

	assert.ErrorIs(t, VerifyCode(ctx, store, f, "000002", 3), apperror.ErrTooManyAttempts)
	_, err = store.Get(ctx, f.Token)
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)
}

func TestVerifyCodeAcceptsLatestCode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	f := &Flow{Kind: KindRegistration, UserID: uuid.New(), Code: "123456"}
	require.NoError(t, store.Start(ctx, f))

	f.Code = "654321"
	require.NoError(t, store.Save(ctx, f))

	assert.ErrorIs(t, VerifyCode(ctx, store, f, "123456", 5), apperror.ErrInvalidCode)
	assert.NoError(t, VerifyCode(ctx, store, f, "654321", 5))
}
