package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerline/internal/db"
	"github.com/unclebandit/partnerline/internal/logx"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/queue"
	"github.com/unclebandit/partnerline/internal/repository"
	"github.com/unclebandit/partnerline/internal/service"
	"github.com/unclebandit/partnerline/internal/transport"
)

var testNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type fixture struct {
	partners  *repository.PartnerRepository
	messages  *repository.MessageRepository
	scheduled *repository.ScheduledMessageRepository
	sender    *transport.Mock
	pipeline  *service.DispatchPipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	f := &fixture{
		partners:  &repository.PartnerRepository{DB: conn},
		messages:  &repository.MessageRepository{DB: conn},
		scheduled: &repository.ScheduledMessageRepository{DB: conn},
		sender:    transport.NewMock(),
	}
	f.pipeline = service.NewDispatchPipeline(f.partners, f.messages, f.scheduled, f.sender, 0, 10*time.Minute, logx.Nop())
	f.pipeline.Now = func() time.Time { return testNow }
	return f
}

func (f *fixture) partner(t *testing.T, first, phone string) *model.Partner {
	t.Helper()
	p := &model.Partner{FirstName: first, Phone: phone, Company: "Acme"}
	require.NoError(t, f.partners.Create(context.Background(), p))
	return p
}

// testClock is a settable clock for pipelines whose runs span simulated time.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// hookSender runs before ahead of every send it forwards.
type hookSender struct {
	transport.Sender
	before func(to string)
}

func (h *hookSender) Send(ctx context.Context, to, body string, mediaURLs []string) (transport.Receipt, error) {
	if h.before != nil {
		h.before(to)
	}
	return h.Sender.Send(ctx, to, body, mediaURLs)
}

func sendsPerPhone(m *transport.Mock) map[string]int {
	out := map[string]int{}
	for _, s := range m.Sent() {
		out[s.To]++
	}
	return out
}

// recordingQueue is a queue.Queue that keeps published payloads.
type recordingQueue struct {
	mu        sync.Mutex
	published []published
	err       error
}

type published struct {
	topic   string
	payload any
}

func (q *recordingQueue) Publish(_ context.Context, topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, published{topic: topic, payload: payload})
	return q.err
}

func (q *recordingQueue) Subscribe(string, queue.Handler) error { return nil }
func (q *recordingQueue) Close() error                          { return nil }
