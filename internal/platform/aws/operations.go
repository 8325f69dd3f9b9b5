package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/util/retry"
)

// base carries the timeouts shared by every handler.
type base struct {
	timeouts *config.Timeouts
}

func (b base) backoff(retryIf func(error) bool) []retry.Option {
	return []retry.Option{
		retry.WithMaxRetries(b.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(b.timeouts.RetryInitialDelay),
		retry.WithMaxDelay(b.timeouts.RetryMaxDelay),
		retry.WithRetryIf(retryIf),
	}
}

// create runs fn within the create timeout, retrying throttling and
// eventual consistency errors.
func (b base) create(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeouts.Create)
	defer cancel()
	return retry.WithExponentialBackoff(ctx, func() error { return fn(ctx) }, b.backoff(isRetryableCreate)...)
}

// remove runs fn within the delete timeout. A resource that is already gone
// counts as deleted. Dependency violations are retried until dependents
// disappear.
func (b base) remove(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeouts.Delete)
	defer cancel()
	return retry.WithExponentialBackoff(ctx, func() error {
		err := fn(ctx)
		if isNotFound(err) {
			return nil
		}
		return err
	}, b.backoff(isRetryableDelete)...)
}

// waitFor polls check until it reports done, the ready timeout elapses or
// check fails with a non-retryable error.
func (b base) waitFor(ctx context.Context, what string, check func(ctx context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeouts.Ready)
	defer cancel()

	ticker := time.NewTicker(b.timeouts.ReadyPoll)
	defer ticker.Stop()
	for {
		done, err := check(ctx)
		if err != nil && !isThrottled(err) && !isRetryableCreate(err) {
			return fmt.Errorf("failed to wait for %s: %w", what, err)
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s: %w", what, ctx.Err())
		case <-ticker.C:
		}
	}
}

// ensure returns an existing resource found by find, or creates it.
// adopted reports whether an existing resource was returned.
func ensure[T any](ctx context.Context, b base, find func(ctx context.Context) (T, bool, error), create func(ctx context.Context) (T, error)) (out T, adopted bool, err error) {
	existing, ok, err := find(ctx)
	if err != nil {
		return out, false, err
	}
	if ok {
		return existing, true, nil
	}
	err = b.create(ctx, func(ctx context.Context) error {
		var cerr error
		out, cerr = create(ctx)
		if cerr != nil && isDuplicate(cerr) {
			// Lost a race with an earlier attempt; pick it up.
			if found, ok, ferr := find(ctx); ferr == nil && ok {
				out = found
				adopted = true
				return nil
			}
		}
		return cerr
	})
	return out, adopted, err
}
