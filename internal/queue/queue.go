package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID    string          `json:"id"`
	Topic string          `json:"topic"`
	Time  time.Time       `json:"time"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Topic, err)
	}
	return nil
}

// Handler processes one envelope. Returning an error asks the queue to retry.
type Handler func(ctx context.Context, env Envelope) error

// Queue interface
type Queue interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// NewEnvelope marshals payload and stamps it with a fresh id.
func NewEnvelope(topic string, payload any, now time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return Envelope{ID: uuid.NewString(), Topic: topic, Time: now.UTC(), Data: data}, nil
}

// InMemoryQueue delivers to in-process subscribers on their own goroutines, retrying failures.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	wg       sync.WaitGroup

	MaxRetries int
	Backoff    time.Duration
	Log        zerolog.Logger
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(log zerolog.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
		Log:        log.With().Str("component", "queue").Logger(),
	}
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	env, err := NewEnvelope(topic, payload, time.Now())
	if err != nil {
		return err
	}

	// Handlers outlive the publishing request.
	hctx := context.WithoutCancel(ctx)
	for _, h := range handlers {
		q.wg.Add(1)
		go q.process(hctx, h, env)
	}
	return nil
}

func (q *InMemoryQueue) process(ctx context.Context, h Handler, env Envelope) {
	defer q.wg.Done()
	for attempt := 1; ; attempt++ {
		err := h(ctx, env)
		if err == nil {
			return
		}
		if attempt > q.MaxRetries {
			q.Log.Error().Err(err).Str("topic", env.Topic).Str("id", env.ID).Int("attempts", attempt).Msg("job permanently failed")
			return
		}
		q.Log.Warn().Err(err).Str("topic", env.Topic).Str("id", env.ID).Int("attempt", attempt).Msg("job failed, retrying")
		time.Sleep(time.Duration(attempt) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Close waits for in-flight handlers.
func (q *InMemoryQueue) Close() error {
	q.wg.Wait()
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
