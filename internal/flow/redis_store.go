package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"anoa.com/sparkvest/pkg/apperror"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl}
}

func flowKey(token string) string {
	return "pending_flow:" + token
}

func ownerKey(f *Flow) string {
	return fmt.Sprintf("pending_flow_owner:%s:%s", f.Kind, f.UserID)
}

func (s *redisStore) Start(ctx context.Context, f *Flow) error {
	if err := prepare(f, s.ttl, time.Now()); err != nil {
		return err
	}

	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}

	if err := s.rdb.Set(ctx, flowKey(f.Token), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store flow: %w", err)
	}

	// SET ... GET swaps the owner pointer atomically, so among concurrent
	// starts only the last writer keeps a live flow.
	previous, err := s.rdb.SetArgs(ctx, ownerKey(f), f.Token, redis.SetArgs{TTL: s.ttl, Get: true}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.rdb.Del(ctx, flowKey(f.Token))
		return fmt.Errorf("store flow owner: %w", err)
	}
	if previous != "" && previous != f.Token {
		if err := s.rdb.Del(ctx, flowKey(previous)).Err(); err != nil {
			return fmt.Errorf("drop superseded flow: %w", err)
		}
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, token string, kinds ...Kind) (*Flow, error) {
	raw, err := s.rdb.Get(ctx, flowKey(token)).Bytes()
	return s.decode(raw, err, kinds)
}

func (s *redisStore) Take(ctx context.Context, token string, kinds ...Kind) (*Flow, error) {
	raw, err := s.rdb.GetDel(ctx, flowKey(token)).Bytes()
	f, err := s.decode(raw, err, kinds)
	if err != nil {
		return nil, err
	}
	s.rdb.Del(ctx, ownerKey(f))
	return f, nil
}

func (s *redisStore) Save(ctx context.Context, f *Flow) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, flowKey(f.Token), payload, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}
	if !ok {
		return apperror.ErrFlowExpired
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, f *Flow) error {
	return s.rdb.Del(ctx, flowKey(f.Token), ownerKey(f)).Err()
}

func (s *redisStore) decode(raw []byte, err error, kinds []Kind) (*Flow, error) {
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrFlowExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}

	var f Flow
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	if !kindAllowed(f.Kind, kinds) || time.Now().After(f.ExpiresAt) {
		return nil, apperror.ErrFlowExpired
	}
	return &f, nil
}
