package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"anoa.com/sparkvest/pkg/apperror"
)

// memoryStore is used when Redis is not configured. Flows do not survive a restart.
type memoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	flows  map[string]Flow
	owners map[string]string
}

func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		ttl:    ttl,
		now:    time.Now,
		flows:  make(map[string]Flow),
		owners: make(map[string]string),
	}
}

func ownerIndex(f *Flow) string {
	return fmt.Sprintf("%s:%s", f.Kind, f.UserID)
}

func (s *memoryStore) Start(_ context.Context, f *Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if err := prepare(f, s.ttl, now); err != nil {
		return err
	}
	s.sweep(now)
	if prev, ok := s.owners[ownerIndex(f)]; ok {
		delete(s.flows, prev)
	}
	s.flows[f.Token] = *f
	s.owners[ownerIndex(f)] = f.Token
	return nil
}

func (s *memoryStore) Get(_ context.Context, token string, kinds ...Kind) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(token, kinds)
}

func (s *memoryStore) Take(_ context.Context, token string, kinds ...Kind) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[token]
	delete(s.flows, token)
	if !ok {
		return nil, apperror.ErrFlowExpired
	}
	delete(s.owners, ownerIndex(&f))
	if !kindAllowed(f.Kind, kinds) || s.now().After(f.ExpiresAt) {
		return nil, apperror.ErrFlowExpired
	}
	return &f, nil
}

func (s *memoryStore) Save(_ context.Context, f *Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(f.Token, nil); err != nil {
		return err
	}
	s.flows[f.Token] = *f
	return nil
}

func (s *memoryStore) Delete(_ context.Context, f *Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flows, f.Token)
	if s.owners[ownerIndex(f)] == f.Token {
		delete(s.owners, ownerIndex(f))
	}
	return nil
}

// sweep drops expired flows that were abandoned without another lookup.
func (s *memoryStore) sweep(now time.Time) {
	for token, f := range s.flows {
		if now.After(f.ExpiresAt) {
			delete(s.flows, token)
			if s.owners[ownerIndex(&f)] == token {
				delete(s.owners, ownerIndex(&f))
			}
		}
	}
}

func (s *memoryStore) lookup(token string, kinds []Kind) (*Flow, error) {
	f, ok := s.flows[token]
	if !ok || !kindAllowed(f.Kind, kinds) {
		return nil, apperror.ErrFlowExpired
	}
	if s.now().After(f.ExpiresAt) {
		delete(s.flows, token)
		return nil, apperror.ErrFlowExpired
	}
	return &f, nil
}
