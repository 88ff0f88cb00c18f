package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{Attempts: 3, InitialBackoff: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), RetryConfig{Attempts: 3, InitialBackoff: time.Millisecond}, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, RetryConfig{Attempts: 5, InitialBackoff: time.Hour}, func() error {
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartWorkerPool_ProcessesAllTasks(t *testing.T) {
	tasks := make(chan int, 50)
	for i := 0; i < 50; i++ {
		tasks <- i
	}
	close(tasks)

	var processed int64
	err := StartWorkerPool(context.Background(), tasks, 4, func(ctx context.Context, task int) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), processed)
}

func TestStartWorkerPool_ErrorDoesNotStopPool(t *testing.T) {
	tasks := make(chan int, 10)
	for i := 0; i < 10; i++ {
		tasks <- i
	}
	close(tasks)

	boom := errors.New("boom")
	var processed int64
	err := StartWorkerPool(context.Background(), tasks, 2, func(ctx context.Context, task int) error {
		atomic.AddInt64(&processed, 1)
		if task == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(10), processed, "one failed task must not sink the rest")
}

func TestStartWorkerPool_ContextCancel(t *testing.T) {
	tasks := make(chan int) // never closed, never fed

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := StartWorkerPool(ctx, tasks, 2, func(ctx context.Context, task int) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
