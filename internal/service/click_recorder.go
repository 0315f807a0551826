package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/pkg/detector"
)

type RecorderConfig struct {
	DedupWindow  time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	CacheTimeout time.Duration
}

// ClickRecorder persists clicks off the request path.
type ClickRecorder struct {
	sink   ClickSink
	cache  LinkCache
	runner Dispatcher
	cfg    RecorderConfig
}

func NewClickRecorder(sink ClickSink, cache LinkCache, runner Dispatcher, cfg RecorderConfig) *ClickRecorder {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = 2 * time.Second
	}
	return &ClickRecorder{
		sink:   sink,
		cache:  cache,
		runner: runner,
		cfg:    cfg,
	}
}

// Dispatch schedules the click to be recorded and returns immediately. When
// cacheClickID is set the dedup entry for the click is written as well.
func (r *ClickRecorder) Dispatch(ctx context.Context, click *domain.ClickEvent, cacheClickID bool) error {
	return r.runner.Go(ctx, "record click", func(ctx context.Context) error {
		return r.Record(ctx, click, cacheClickID)
	})
}

// Record writes the click synchronously. Bot traffic is ignored. The dedup
// entry goes in before the analytics write, under its own deadline, so a slow
// or failing sink never leaves a repeat visitor uncached.
func (r *ClickRecorder) Record(ctx context.Context, click *domain.ClickEvent, cacheClickID bool) error {
	log := logger.FromContext(ctx).With("click_id", click.ClickID, "link_id", click.LinkID)

	if detector.IsBot(click.UserAgent) {
		log.Debug("Skipping bot click", "user_agent", click.UserAgent)
		return nil
	}

	var errs []error

	if cacheClickID {
		if err := r.cacheClickID(ctx, click); err != nil {
			errs = append(errs, fmt.Errorf("cache click id: %w", err))
		}
	}

	attempts := 0
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.RetryBackoff
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.cfg.MaxAttempts-1)), ctx)

	err := backoff.Retry(func() error {
		attempts++
		return r.sink.Record(ctx, click)
	}, retry)
	if err != nil {
		errs = append(errs, fmt.Errorf("record click after %d attempts: %w", attempts, err))
	} else if attempts > 1 {
		log.Info("Click recorded after retry", "attempts", attempts)
	}

	if len(errs) > 0 {
		return fmt.Errorf("click %s: %w", click.ClickID, errors.Join(errs...))
	}

	return nil
}

func (r *ClickRecorder) cacheClickID(ctx context.Context, click *domain.ClickEvent) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CacheTimeout)
	defer cancel()

	return r.cache.SetClickID(ctx, click.Domain, click.Key, click.IPAddress, click.ClickID, r.cfg.DedupWindow)
}
