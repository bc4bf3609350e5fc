package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"
)

// RetryingProvider retries upstream failures a bounded number of times.
// Unparseable responses and caller cancellation are returned immediately.
type RetryingProvider struct {
	provider       Provider
	maxRetries     int
	backoff        time.Duration
	attemptTimeout time.Duration
}

// NewRetryingProvider wraps provider so that each Complete makes at most
// maxRetries+1 attempts, sleeping backoff*attempt between them. A positive
// attemptTimeout bounds every attempt on its own; an attempt that runs out
// of time counts as an upstream failure and is retried.
func NewRetryingProvider(provider Provider, maxRetries int, backoff, attemptTimeout time.Duration) Provider {
	if maxRetries <= 0 && attemptTimeout <= 0 {
		return provider
	}
	return &RetryingProvider{
		provider:       provider,
		maxRetries:     max(maxRetries, 0),
		backoff:        backoff,
		attemptTimeout: attemptTimeout,
	}
}

func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().Str("provider", r.provider.Name()).Int("attempt", attempt).Err(lastErr).Msg("retrying completion")
			select {
			case <-ctx.Done():
				return nil, lastErr
			case <-time.After(r.backoff * time.Duration(attempt)):
			}
		}

		resp, err := r.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errors.Is(err, ErrUpstream) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *RetryingProvider) attempt(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if r.attemptTimeout <= 0 {
		return r.provider.Complete(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	resp, err := r.provider.Complete(attemptCtx, req)
	if err != nil && ctx.Err() == nil && attemptCtx.Err() != nil && !errors.Is(err, ErrUpstream) {
		err = fmt.Errorf("%s: %w: %w", r.provider.Name(), ErrUpstream, err)
	}
	return resp, err
}
