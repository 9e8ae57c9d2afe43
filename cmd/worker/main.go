// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/unclebandit/partnerline/internal/app"
	"github.com/unclebandit/partnerline/internal/config"
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
	log := logx.New(cfg.LogLevel, cfg.LogConsole).With().Str("process", "worker").Logger()
	if note != "" {
		log.Warn().Msg(note)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}

// run drives scheduled batches and, when a broker is configured, consumes
// inbound events for notifications. Without a broker the server notifies in-process.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Broker {
		if err := queue.StartNotificationSubscriber(a.Queue, a.Notifier, log); err != nil {
			return err
		}
	}

	sched := scheduler.New(cfg.Scheduler, a.Dispatch, nil, log)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	// catch up on anything that fell due while no worker was running
	if _, err := sched.Tick(ctx); err != nil {
		log.Warn().Err(err).Msg("initial tick failed")
	}

	log.Info().Bool("broker", a.Broker).Dur("interval", cfg.Scheduler.Interval).Msg("worker running")
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}
