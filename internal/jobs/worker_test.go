package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerProcessesOnInterval(t *testing.T) {
	var calls atomic.Int64

	w := NewWorker(WorkerConfig{Name: "test", PollInterval: 10 * time.Millisecond}, slog.Default(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())

	assert.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.False(t, w.IsRunning())

	// No further polls after stop.
	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestWorkerStartStopIdempotent(t *testing.T) {
	w := NewWorker(WorkerConfig{Name: "idem"}, slog.Default(), func(ctx context.Context) error { return nil })

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	require.NoError(t, w.Stop(ctx))
}

func TestWorkerSurvivesProcessErrors(t *testing.T) {
	var calls atomic.Int64

	w := NewWorker(WorkerConfig{Name: "err", PollInterval: 10 * time.Millisecond}, slog.Default(), func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("transient")
	})

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, time.Second, 5*time.Millisecond, "worker keeps polling after a failed batch")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
}

func TestWorkerMetrics(t *testing.T) {
	w := NewWorker(WorkerConfig{Name: "metrics"}, slog.Default(), func(ctx context.Context) error { return nil })

	w.IncrementSuccess()
	w.IncrementSuccess()
	w.IncrementFailure()

	m := w.Metrics()
	assert.Equal(t, int64(3), m.Processed)
	assert.Equal(t, int64(2), m.Succeeded)
	assert.Equal(t, int64(1), m.Failed)
}
