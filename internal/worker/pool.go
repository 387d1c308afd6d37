// Package worker provides a bounded executor for remote model calls.
//
// Every call runs under a timeout of min(requestTimeout, remaining request
// budget); the budget itself is an ordinary context deadline established once
// per logical request. A call that would start after the budget elapsed fails
// immediately without dispatching.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// Pool limits concurrent remote model calls. Each service instance constructs
// and owns its own pool; there is no process-wide singleton.
type Pool struct {
	sem            *semaphore.Weighted
	requestTimeout time.Duration
}

// NewPool creates a pool with the given concurrency limit and per-call timeout.
func NewPool(workers int, requestTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if requestTimeout <= 0 {
		requestTimeout = 20 * time.Second
	}
	return &Pool{
		sem:            semaphore.NewWeighted(int64(workers)),
		requestTimeout: requestTimeout,
	}
}

// WithBudget derives the shared per-request deadline. Callers establish it
// once at request entry; every pool call then consumes from the remainder.
func WithBudget(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, budget)
}

// Do executes fn under the pool. The call context carries
// min(requestTimeout, remaining budget); context.WithTimeout takes care of
// the min against the parent deadline.
func (p *Pool) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= 0 {
		return fmt.Errorf("%s: %w", operation, domain.ErrBudgetExhausted)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()

	if err := p.sem.Acquire(callCtx, 1); err != nil {
		return fmt.Errorf("%s: acquire worker: %w", operation, domain.ErrAIUnavailable)
	}
	defer p.sem.Release(1)

	if err := fn(callCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %s: %w", operation, p.requestTimeout, domain.ErrAIUnavailable)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// Call is the typed variant of Pool.Do for calls that produce a result.
func Call[T any](ctx context.Context, p *Pool, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, operation, func(callCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(callCtx)
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
