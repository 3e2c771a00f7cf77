package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econcal/pkg/errors"
	"econcal/pkg/logger"
)

// Mock worker for testing
type mockWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newMockWorker(name string, interval time.Duration, enabled bool) *mockWorker {
	return &mockWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled, logger.Nop()),
		runFunc:    func(ctx context.Context) error { return nil },
	}
}

func (m *mockWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&m.runCount, 1)
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return nil
}

func (m *mockWorker) GetRunCount() int {
	return int(atomic.LoadInt32(&m.runCount))
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler(logger.Nop())

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(250 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())

	// immediate run + at least one tick
	assert.GreaterOrEqual(t, worker.GetRunCount(), 2)
}

func TestScheduler_ContextCancellation(t *testing.T) {
	scheduler := NewScheduler(logger.Nop())

	worker := newMockWorker("test-worker", 100*time.Millisecond, true)
	worker.runFunc = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	scheduler.RegisterWorker(worker)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))

	cancel()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.Equal(t, 1, worker.GetRunCount())
}

func TestScheduler_DisabledWorker(t *testing.T) {
	scheduler := NewScheduler(logger.Nop())

	enabledWorker := newMockWorker("enabled-worker", 100*time.Millisecond, true)
	disabledWorker := newMockWorker("disabled-worker", 100*time.Millisecond, false)

	scheduler.RegisterWorker(enabledWorker)
	scheduler.RegisterWorker(disabledWorker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Greater(t, enabledWorker.GetRunCount(), 0)
	assert.Equal(t, 0, disabledWorker.GetRunCount())
}

func TestScheduler_RecordsHealth(t *testing.T) {
	scheduler := NewScheduler(logger.Nop())

	failing := newMockWorker("failing-worker", time.Hour, true)
	failing.runFunc = func(ctx context.Context) error { return errors.ErrPartitionCommit }

	panicking := newMockWorker("panicking-worker", time.Hour, true)
	panicking.runFunc = func(ctx context.Context) error { panic("boom") }

	scheduler.RegisterWorker(failing)
	scheduler.RegisterWorker(panicking)

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool {
		return failing.Health().RunCount == 1 && panicking.Health().RunCount == 1
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, scheduler.Stop())

	h := failing.Health()
	assert.Equal(t, int64(1), h.ErrorCount)
	assert.True(t, errors.Is(h.LastError, errors.ErrPartitionCommit))

	h = panicking.Health()
	assert.Equal(t, int64(1), h.ErrorCount)
	assert.True(t, errors.Is(h.LastError, errors.ErrInternal))
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	scheduler := NewScheduler(logger.Nop())
	scheduler.RegisterWorker(newMockWorker("test-worker", 100*time.Millisecond, true))

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Error(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Stop())

	assert.Error(t, scheduler.Stop(), "stopping a stopped scheduler")
}

func TestScheduler_GetWorkers(t *testing.T) {
	scheduler := NewScheduler(logger.Nop())

	scheduler.RegisterWorker(newMockWorker("worker-1", 100*time.Millisecond, true))
	scheduler.RegisterWorker(newMockWorker("worker-2", 200*time.Millisecond, false))

	workers := scheduler.GetWorkers()
	require.Len(t, workers, 2)
	assert.Equal(t, "worker-1", workers[0].Name())
	assert.Equal(t, "worker-2", workers[1].Name())
}
