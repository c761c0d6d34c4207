package repository

import (
	"context"
	"errors"
	"time"

	"github.com/talentlens/engine/pkg/logger"
	"github.com/talentlens/engine/pkg/metrics"
)

// Retrier re-runs storage operations that failed transiently, with
// exponential backoff between attempts. Only errors wrapping
// ErrUnavailable are retried; domain errors surface immediately.
type Retrier struct {
	attempts int
	base     time.Duration
	log      logger.Logger
}

// NewRetrier creates a retrier with the given attempt budget and base
// delay. The delay doubles after each failed attempt.
func NewRetrier(attempts int, base time.Duration) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	return &Retrier{
		attempts: attempts,
		base:     base,
		log:      logger.Named("repository.retry"),
	}
}

// Do runs fn up to the attempt budget. The final error is returned
// unwrapped so callers can still match sentinels.
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	delay := r.base
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return err
		}
		if attempt == r.attempts {
			break
		}
		metrics.RecordStoreRetry()
		r.log.Warn(ctx, "transient storage failure, retrying",
			logger.String("op", op),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	metrics.RecordStoreFailure()
	r.log.Error(ctx, "storage operation exhausted retries",
		logger.String("op", op),
		logger.Int("attempts", r.attempts),
		logger.Error(err),
	)
	return err
}
