package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerline/internal/config"
	"github.com/unclebandit/partnerline/internal/logx"
	"github.com/unclebandit/partnerline/internal/scheduler"
	"github.com/unclebandit/partnerline/internal/service"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  []time.Time
	report service.BatchReport
	err    error
}

func (f *fakeRunner) RunDueBatches(_ context.Context, now time.Time) (service.BatchReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return f.report, f.err
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var fixed = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestTick_UsesClock(t *testing.T) {
	runner := &fakeRunner{report: service.BatchReport{Batches: []service.BatchOutcome{{
		ScheduledID: 7,
		Results:     []service.SendResult{{PartnerID: 1, Kind: service.SendSent}, {PartnerID: 2, Kind: service.SendFailed}},
		Marked:      true,
	}}}}
	s := scheduler.New(config.SchedulerConfig{Interval: time.Minute}, runner, func() time.Time { return fixed }, logx.Nop())

	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, fixed, runner.calls[0])
	assert.Equal(t, map[service.SendKind]int{service.SendSent: 1, service.SendFailed: 1}, report.Counts())
}

func TestTick_ReturnsRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("db down")}
	s := scheduler.New(config.SchedulerConfig{Interval: time.Minute}, runner, nil, logx.Nop())

	_, err := s.Tick(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestStartStop(t *testing.T) {
	runner := &fakeRunner{}
	s := scheduler.New(config.SchedulerConfig{Interval: time.Second}, runner, func() time.Time { return fixed }, logx.Nop())

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	require.Eventually(t, func() bool { return runner.count() >= 1 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := runner.count()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, runner.count(), "no ticks after stop")
	assert.NoError(t, s.Stop(ctx), "stopping twice is fine")
}

func TestStart_RejectsZeroInterval(t *testing.T) {
	s := scheduler.New(config.SchedulerConfig{}, &fakeRunner{}, nil, logx.Nop())
	assert.Error(t, s.Start(context.Background()))
}
