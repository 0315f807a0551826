// Package background runs work that must outlive the request that scheduled
// it, such as cache warming and click persistence.
package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gamassss/click-tracker/internal/logger"
)

var ErrClosed = errors.New("background runner is shut down")

type Runner struct {
	mu      sync.RWMutex
	wg      sync.WaitGroup
	closed  bool
	timeout time.Duration
}

func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{timeout: timeout}
}

// Go schedules fn without waiting for it. The job context keeps the values of
// ctx (request logger, request id) but not its cancellation, and is bounded by
// the runner timeout. Errors and panics are logged, never returned.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		logger.FromContext(ctx).Warn("Background job dropped", slog.String("job", name))
		return ErrClosed
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)

	go func() {
		defer r.wg.Done()
		defer cancel()

		log := logger.FromContext(jobCtx)
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				log.Error("Background job panicked",
					slog.String("job", name),
					slog.String("panic", fmt.Sprint(rec)),
				)
			}
		}()

		if err := fn(jobCtx); err != nil {
			log.Error("Background job failed",
				slog.String("job", name),
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)),
			)
			return
		}

		log.Debug("Background job completed",
			slog.String("job", name),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	return nil
}

// Wait blocks until every job scheduled so far has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting jobs and drains in-flight ones until ctx expires.
// Jobs still running after that are abandoned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background drain incomplete: %w", ctx.Err())
	}
}
