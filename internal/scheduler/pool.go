package scheduler

import (
	"context"
	"sync"
	"time"
)

// RetryConfig holds options for per-target retry logic.
type RetryConfig struct {
	Attempts       int
	InitialBackoff time.Duration
}

// Retry calls fn up to cfg.Attempts times with exponential backoff.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			return lastErr
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// StartWorkerPool runs workerCount goroutines draining tasks until the
// channel closes or the context is cancelled. The first error any worker
// returns is reported after the pool drains; it does not stop the pool,
// since one failed target must not sink the rest of the run.
func StartWorkerPool[T any](
	ctx context.Context,
	tasks <-chan T,
	workerCount int,
	fn func(ctx context.Context, task T) error,
) error {
	if workerCount < 1 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	errCh := make(chan error, workerCount)

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					select {
					case errCh <- ctx.Err():
					default:
					}
					return
				case task, ok := <-tasks:
					if !ok {
						return
					}
					if err := fn(ctx, task); err != nil {
						select {
						case errCh <- err:
						default:
						}
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return nil
}
