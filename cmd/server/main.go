// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/unclebandit/partnerline/internal/app"
	"github.com/unclebandit/partnerline/internal/config"
	"github.com/unclebandit/partnerline/internal/controller"
	"github.com/unclebandit/partnerline/internal/handler"
	"github.com/unclebandit/partnerline/internal/logx"
	"github.com/unclebandit/partnerline/internal/queue"
	"github.com/unclebandit/partnerline/internal/scheduler"
)

func main() {
	cfg, note, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	log := logx.New(cfg.LogLevel, cfg.LogConsole)
	if note != "" {
		log.Warn().Msg(note)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// With a broker the worker process owns notifications.
	if !a.Broker {
		if err := queue.StartNotificationSubscriber(a.Queue, a.Notifier, log); err != nil {
			return err
		}
	}
	a.WatchKnowledge(ctx)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(cfg.Scheduler, a.Dispatch, nil, log)
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(a, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DBDriver).Str("transport", cfg.Transport.Kind).Msg("server running")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("scheduler stop timed out")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func newRouter(a *app.App, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	(&controller.MessageController{Dispatch: a.Dispatch, Conversations: a.Inbound, Log: log}).Routes(r)
	(&controller.ScheduleController{Schedules: a.Schedules, Log: log}).Routes(r)
	(&controller.InsightController{Insights: a.Insights, Log: log}).Routes(r)
	(&handler.WebhookHandler{Inbound: a.Inbound, Log: log}).Routes(r)
	return r
}
