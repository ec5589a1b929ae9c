// Package realtime fans JSON payloads out to websocket subscribers through
// Redis pub/sub, with an in-process broker when Redis is not configured.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a stream of payloads; call the returned func to stop.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID)
}

func ProjectChannel(projectID uuid.UUID) string {
	return fmt.Sprintf("project_funding:%s", projectID)
}

// PublishJSON marshals v and publishes it on channel.
func PublishJSON(ctx context.Context, b Broker, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Publish(ctx, channel, payload)
}

type redisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) Broker {
	return &redisBroker{client: client}
}

func (b *redisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}
	return out, stop, nil
}

type memoryBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan []byte
}

func NewMemoryBroker() Broker {
	return &memoryBroker{subs: make(map[string]map[int]chan []byte)}
}

func (b *memoryBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[channel] {
		// Slow subscribers drop messages rather than block publishers.
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, channel string) (<-chan []byte, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []byte, 16)
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]chan []byte)
	}
	b.subs[channel][id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[channel], id)
			if len(b.subs[channel]) == 0 {
				delete(b.subs, channel)
			}
			close(ch)
		})
	}
	return ch, stop, nil
}
