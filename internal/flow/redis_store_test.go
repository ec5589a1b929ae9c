package flow

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"anoa.com/sparkvest/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (Store, *redis.Client) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, time.Minute), rdb
}

func TestRedisStoreConcurrentStartsLeaveOneLiveFlow(t *testing.T) {
	store, rdb := newRedisStore(t)
	ctx := context.Background()
	userID := uuid.New()

	const workers = 10
	flows := make([]*Flow, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range flows {
		flows[i] = &Flow{Kind: KindPayment, UserID: userID, OrderID: "order"}
		wg.Add(1)
		go func(f *Flow) {
			defer wg.Done()
			<-start
			assert.NoError(t, store.Start(ctx, f))
		}(flows[i])
	}
	close(start)
	wg.Wait()

	owner, err := rdb.Get(ctx, ownerKey(flows[0])).Result()
	require.NoError(t, err)

	live := 0
	for _, f := range flows {
		t.Cleanup(func() { rdb.Del(ctx, flowKey(f.Token)) })
		if _, err := store.Get(ctx, f.Token, KindPayment); err == nil {
			live++
			assert.Equal(t, owner, f.Token)
		} else {
			assert.ErrorIs(t, err, apperror.ErrFlowExpired)
		}
	}
	assert.Equal(t, 1, live)
	t.Cleanup(func() { rdb.Del(ctx, ownerKey(flows[0])) })
}

func TestRedisStoreTakeRemovesFlow(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	f := &Flow{Kind: KindLogin, UserID: uuid.New(), Code: "123456"}
	require.NoError(t, store.Start(ctx, f))

	taken, err := store.Take(ctx, f.Token, KindLogin)
	require.NoError(t, err)
	assert.Equal(t, "123456", taken.Code)

	_, err = store.Take(ctx, f.Token, KindLogin)
	assert.ErrorIs(t, err, apperror.ErrFlowExpired)
}
