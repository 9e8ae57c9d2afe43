package app_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerline/internal/app"
	"github.com/unclebandit/partnerline/internal/config"
	"github.com/unclebandit/partnerline/internal/logx"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/notify"
	"github.com/unclebandit/partnerline/internal/queue"
	"github.com/unclebandit/partnerline/internal/service"
	"github.com/unclebandit/partnerline/internal/transport"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBDriver:    "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "app.db"),
		Timezone:    "UTC",
		Scheduler:   config.SchedulerConfig{Interval: time.Minute, LeaseTTL: 10 * time.Minute},
		Transport:   config.TransportConfig{Kind: "mock", RatePerSec: 100},
	}
}

func TestNew_WiresInProcessDefaults(t *testing.T) {
	a, err := app.New(context.Background(), sqliteConfig(t), logx.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Broker)
	assert.IsType(t, &queue.InMemoryQueue{}, a.Queue)
	assert.IsType(t, &transport.Mock{}, a.Sender)
	assert.Nil(t, a.AI)
	assert.Nil(t, a.Knowledge)

	res := a.Dispatch.SendSingle(context.Background(), 1, "hi", nil)
	assert.Equal(t, service.SendNotFound, res.Kind)
}

func TestNew_InboundReachesNotifier(t *testing.T) {
	a, err := app.New(context.Background(), sqliteConfig(t), logx.Nop())
	require.NoError(t, err)
	defer a.Close()

	sent := make(chan notify.Alert, 1)
	require.NoError(t, queue.StartNotificationSubscriber(a.Queue, notifyFunc(func(al notify.Alert) { sent <- al }), logx.Nop()))

	_, err = a.Inbound.HandleInbound(context.Background(), service.InboundMessage{From: "+15550009", Body: "Any update?"})
	require.NoError(t, err)

	select {
	case al := <-sent:
		assert.Equal(t, "Any update?", al.Body)
		assert.Equal(t, "+15550009", al.Phone)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNew_DispatchLogsCarryOneComponent(t *testing.T) {
	var out lockedBuffer
	a, err := app.New(context.Background(), sqliteConfig(t), logx.NewWithWriter(&out, "debug", false))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	p := &model.Partner{FirstName: "Sam", Phone: "+15550001111"}
	require.NoError(t, a.Partners.Create(ctx, p))
	require.NoError(t, a.Partners.SetOptedOut(ctx, p.ID, true))
	assert.Equal(t, service.SendOptedOut, a.Dispatch.SendSingle(ctx, p.ID, "hi", nil).Kind)

	var line string
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.Contains(l, "send blocked") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, `"component":`), line)
	assert.Contains(t, line, `"component":"dispatch"`)
}

func TestNewSenderAndNotifier(t *testing.T) {
	assert.IsType(t, &transport.Twilio{}, app.NewSender(config.TransportConfig{Kind: "twilio", AccountSID: "AC1", AuthToken: "x", FromNumber: "+1"}))

	m := app.NewNotifier(config.NotifyConfig{Email: "ops@example.com", SMS: "+15550000"}, transport.NewMock(), logx.Nop())
	require.IsType(t, &notify.Multi{}, m)
	assert.Len(t, m.(*notify.Multi).Channels, 1, "email needs SMTP credentials")

	m = app.NewNotifier(config.NotifyConfig{Email: "ops@example.com", SMTPUser: "u", SMTPPassword: "p", SMTPServer: "smtp.example.com", SMTPPort: 587}, transport.NewMock(), logx.Nop())
	assert.Len(t, m.(*notify.Multi).Channels, 1)
}

type notifyFunc func(notify.Alert)

func (f notifyFunc) Notify(_ context.Context, a notify.Alert) error {
	f(a)
	return nil
}
