package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

type jobs struct {
	mu        sync.Mutex
	sweeps    int
	reminders int
	expiries  int
	sweepErr  error
}

func (j *jobs) RunOverdueSweep(_ context.Context, asOf time.Time) (model.SweepResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sweeps++
	return model.SweepResult{AsOf: model.Day(asOf)}, j.sweepErr
}

func (j *jobs) SendDueDateReminders(context.Context, time.Time) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reminders++
	return 0, nil
}

func (j *jobs) ExpireReservations(context.Context, time.Time) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.expiries++
	return 0, nil
}

func (j *jobs) counts() (int, int, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sweeps, j.reminders, j.expiries
}

func TestRunOnce_RemindsOncePerDay(t *testing.T) {
	t.Parallel()
	j := &jobs{}
	s := New(j, time.Hour, zap.NewNop())
	day1 := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)

	require.NoError(t, s.RunOnce(context.Background(), day1))
	require.NoError(t, s.RunOnce(context.Background(), day1.Add(5*time.Hour)))
	require.NoError(t, s.RunOnce(context.Background(), day1.Add(24*time.Hour)))

	sweeps, reminders, expiries := j.counts()
	require.Equal(t, 3, sweeps)
	require.Equal(t, 3, expiries)
	require.Equal(t, 2, reminders)
}

func TestRunOnce_CollectsErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	j := &jobs{sweepErr: boom}
	s := New(j, time.Hour, zap.NewNop())

	err := s.RunOnce(context.Background(), time.Now())
	require.ErrorIs(t, err, boom)
	_, reminders, expiries := j.counts()
	require.Equal(t, 1, reminders)
	require.Equal(t, 1, expiries)
}

func TestRun_StopsWithContext(t *testing.T) {
	t.Parallel()
	j := &jobs{}
	s := New(j, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		sweeps, _, _ := j.counts()
		return sweeps >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
