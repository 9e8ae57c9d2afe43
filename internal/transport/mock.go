package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMockFailure is returned for numbers registered with FailFor.
var ErrMockFailure = errors.New("mock transport failure")

// SentMessage is one call recorded by Mock.
type SentMessage struct {
	To        string
	Body      string
	MediaURLs []string
	Receipt   Receipt
}

// Mock is a deterministic in-process Sender. Receipt ids are MOCK-1, MOCK-2, ...
type Mock struct {
	mu     sync.Mutex
	seq    int
	fail   map[string]bool
	sent   []SentMessage
	Status string
}

func NewMock() *Mock {
	return &Mock{fail: map[string]bool{}, Status: "sent"}
}

// FailFor makes every send to phone fail.
func (m *Mock) FailFor(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[phone] = true
}

func (m *Mock) Send(ctx context.Context, to, body string, mediaURLs []string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail[to] {
		return Receipt{}, fmt.Errorf("send to %s: %w", to, ErrMockFailure)
	}
	m.seq++
	r := Receipt{ID: fmt.Sprintf("MOCK-%d", m.seq), Status: m.Status}
	m.sent = append(m.sent, SentMessage{To: to, Body: body, MediaURLs: append([]string(nil), mediaURLs...), Receipt: r})
	return r, nil
}

// Sent returns a copy of every accepted message in send order.
func (m *Mock) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

var _ Sender = (*Mock)(nil)
