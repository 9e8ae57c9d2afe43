// Package app wires configuration into the components shared by the server and worker processes.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/unclebandit/partnerline/internal/ai"
	"github.com/unclebandit/partnerline/internal/config"
	"github.com/unclebandit/partnerline/internal/db"
	"github.com/unclebandit/partnerline/internal/insight"
	"github.com/unclebandit/partnerline/internal/notify"
	"github.com/unclebandit/partnerline/internal/queue"
	"github.com/unclebandit/partnerline/internal/repository"
	"github.com/unclebandit/partnerline/internal/service"
	"github.com/unclebandit/partnerline/internal/transport"
)

type App struct {
	Config config.Config
	Log    zerolog.Logger
	DB     *db.DB

	Partners  *repository.PartnerRepository
	Messages  *repository.MessageRepository
	Scheduled *repository.ScheduledMessageRepository

	Sender    transport.Sender
	Queue     queue.Queue
	Broker    bool // Queue is RabbitMQ rather than in-process
	Notifier  notify.Notifier
	AI        ai.Completer
	Knowledge *ai.KnowledgeBase

	Dispatch  *service.DispatchPipeline
	Schedules *service.ScheduleService
	Inbound   *service.InboundService
	Insights  *insight.Service
}

// New opens the database (applying migrations) and builds every service.
// Close releases what New opened.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	conn, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	a := &App{
		Config:    cfg,
		Log:       log,
		DB:        conn,
		Partners:  &repository.PartnerRepository{DB: conn},
		Messages:  &repository.MessageRepository{DB: conn},
		Scheduled: &repository.ScheduledMessageRepository{DB: conn},
		Sender:    NewSender(cfg.Transport),
	}

	a.Queue, a.Broker, err = NewQueue(cfg.Queue, log)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	a.Notifier = NewNotifier(cfg.Notify, a.Sender, log)

	if strings.TrimSpace(cfg.AI.APIKey) != "" {
		a.AI = ai.NewOpenAI(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	} else {
		log.Info().Msg("AI_API_KEY not set, AI helpers will use fallbacks")
	}
	if path := strings.TrimSpace(cfg.AI.KnowledgeFile); path != "" {
		kb, err := ai.LoadKnowledge(path, log)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("knowledge base unavailable")
		} else {
			a.Knowledge = kb
		}
	}

	a.Dispatch = service.NewDispatchPipeline(a.Partners, a.Messages, a.Scheduled, a.Sender,
		cfg.Transport.RatePerSec, cfg.Scheduler.LeaseTTL, log)
	a.Schedules = &service.ScheduleService{Scheduled: a.Scheduled}
	a.Inbound = &service.InboundService{
		Partners: a.Partners,
		Messages: a.Messages,
		Queue:    a.Queue,
		Log:      log.With().Str("component", "inbound").Logger(),
	}
	a.Insights = &insight.Service{
		Partners:  a.Partners,
		Messages:  a.Messages,
		AI:        a.AI,
		Knowledge: a.Knowledge,
		Location:  cfg.Location(),
		Log:       log.With().Str("component", "insight").Logger(),
	}
	return a, nil
}

// WatchKnowledge reloads the knowledge file on change until ctx ends. It is a
// no-op without a knowledge file.
func (a *App) WatchKnowledge(ctx context.Context) {
	if a.Knowledge == nil {
		return
	}
	go func() {
		if err := a.Knowledge.Watch(ctx); err != nil {
			a.Log.Warn().Err(err).Msg("knowledge watcher stopped")
		}
	}()
}

func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func NewSender(cfg config.TransportConfig) transport.Sender {
	if cfg.Kind == "twilio" {
		return transport.NewTwilio(cfg.AccountSID, cfg.AuthToken, cfg.FromNumber, cfg.StatusCallback)
	}
	return transport.NewMock()
}

// NewQueue dials RabbitMQ when an AMQP URL is configured and otherwise
// returns the in-process queue. broker reports which one was chosen.
func NewQueue(cfg config.QueueConfig, log zerolog.Logger) (q queue.Queue, broker bool, err error) {
	if strings.TrimSpace(cfg.AMQPURL) == "" {
		return queue.NewInMemoryQueue(log.With().Str("component", "queue").Logger()), false, nil
	}
	aq, err := queue.NewAMQPQueue(cfg.AMQPURL, cfg.Exchange, log)
	if err != nil {
		return nil, false, fmt.Errorf("amqp queue: %w", err)
	}
	return aq, true, nil
}

// NewNotifier builds a fan-out over the configured alert targets. With none
// configured the result notifies nobody.
func NewNotifier(cfg config.NotifyConfig, sender transport.Sender, log zerolog.Logger) notify.Notifier {
	m := &notify.Multi{Log: log.With().Str("component", "notify").Logger()}
	if cfg.Email != "" && cfg.SMTPUser != "" {
		m.Channels = append(m.Channels, notify.NewEmail(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.Email))
	}
	if cfg.SMS != "" {
		m.Channels = append(m.Channels, &notify.SMS{Sender: sender, To: cfg.SMS})
	}
	return m
}
