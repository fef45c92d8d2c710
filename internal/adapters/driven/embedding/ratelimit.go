// Package embedding holds embedding service decorators shared by the
// provider adapters in its sub-packages.
package embedding

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure RateLimited implements the interface.
var _ driven.EmbeddingService = (*RateLimited)(nil)

// DefaultBackoff is how long calls pause after the provider reports a rate limit.
const DefaultBackoff = 30 * time.Second

// RateLimitConfig holds rate limiting configuration for a provider.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size. Zero means 1.
	BurstSize int

	// Backoff is the pause after a rate-limited response. Zero uses DefaultBackoff.
	Backoff time.Duration
}

// RateLimited wraps an EmbeddingService with a token bucket. When the
// provider answers with domain.ErrRateLimited, all callers pause for the
// backoff period before the next call. Errors are passed through unchanged;
// retrying is left to the caller.
type RateLimited struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimited wraps svc. A non-positive RequestsPerSecond returns svc unchanged.
func NewRateLimited(svc driven.EmbeddingService, cfg RateLimitConfig) driven.EmbeddingService {
	if svc == nil || cfg.RequestsPerSecond <= 0 {
		return svc
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &RateLimited{
		next:    svc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		backoff: cfg.Backoff,
		now:     time.Now,
	}
}

// Embed waits for the limiter, then delegates.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, domain.NewEmbeddingError("", err)
	}

	vec, err := r.next.Embed(ctx, text)
	if errors.Is(err, domain.ErrRateLimited) {
		r.recordRateLimit()
	}
	return vec, err
}

// wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by a rate-limited response.
func (r *RateLimited) wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	now := r.now()
	r.mu.Unlock()

	if now.Before(retryAt) {
		timer := time.NewTimer(retryAt.Sub(now))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

func (r *RateLimited) recordRateLimit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = r.now().Add(r.backoff)
}

// Dimensions returns the wrapped service's vector size.
func (r *RateLimited) Dimensions() int { return r.next.Dimensions() }

// ModelName returns the wrapped service's model name.
func (r *RateLimited) ModelName() string { return r.next.ModelName() }

// Ping delegates without consuming a token.
func (r *RateLimited) Ping(ctx context.Context) error { return r.next.Ping(ctx) }

// Close closes the wrapped service.
func (r *RateLimited) Close() error { return r.next.Close() }
