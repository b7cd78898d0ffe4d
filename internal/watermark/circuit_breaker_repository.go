package watermark

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"streambridge/internal/config"
	"streambridge/pkg/circuitbreaker"
)

// CircuitBreakerRepository shields the watermark store: when the key-value
// backend keeps failing, the breaker opens and the reply path fails fast
// instead of stalling every poll tick on timeouts.
type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cfg config.CircuitBreakerConfig) *CircuitBreakerRepository {
	if !cfg.Enabled {
		return &CircuitBreakerRepository{repo: repo, cb: nil}
	}

	cbConfig := circuitbreaker.DefaultConfig("redis-watermark")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(cbConfig),
	}
}

func (r *CircuitBreakerRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if r.cb == nil {
		return r.repo.Get(ctx, key)
	}

	type getResult struct {
		value  string
		exists bool
	}

	result, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		value, exists, err := r.repo.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return getResult{value: value, exists: exists}, nil
	})

	r.cb.RecordRequest(err == nil)

	if err != nil {
		if r.cb.IsOpen() {
			return "", false, fmt.Errorf("circuit breaker is open for redis-watermark: %w", err)
		}
		return "", false, err
	}

	res, ok := result.(getResult)
	if !ok {
		return "", false, fmt.Errorf("repository returned invalid result type")
	}
	return res.value, res.exists, nil
}

func (r *CircuitBreakerRepository) Set(ctx context.Context, key, value string) error {
	if r.cb == nil {
		return r.repo.Set(ctx, key, value)
	}

	_, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, r.repo.Set(ctx, key, value)
	})

	r.cb.RecordRequest(err == nil)

	if err != nil {
		if r.cb.IsOpen() {
			return fmt.Errorf("circuit breaker is open for redis-watermark: %w", err)
		}
		return err
	}
	return nil
}

func (r *CircuitBreakerRepository) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}
