package chain

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerProvider wraps a Provider with a circuit breaker so a flapping
// market-data source fails fast instead of stalling every scan request.
type BreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// Ensure BreakerProvider implements Provider at compile time.
var _ Provider = (*BreakerProvider)(nil)

// NewBreakerProvider wraps a provider with sensible defaults.
func NewBreakerProvider(p Provider) *BreakerProvider {
	return NewBreakerProviderWithSettings(p, BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	})
}

// NewBreakerProviderWithSettings wraps a provider with custom settings.
func NewBreakerProviderWithSettings(p Provider, settings BreakerSettings) *BreakerProvider {
	gbSettings := gobreaker.Settings{
		Name:        "ChainProviderCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}
	return &BreakerProvider{
		provider: p,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// execBreaker is a generic helper for circuit breaker wrapper methods.
func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// GetExpirations wraps the underlying provider call with the circuit breaker.
func (b *BreakerProvider) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	return execBreaker(b.breaker, func() ([]string, error) {
		return b.provider.GetExpirations(ctx, symbol)
	})
}

// GetSnapshot wraps the underlying provider call with the circuit breaker.
func (b *BreakerProvider) GetSnapshot(ctx context.Context, symbol, expiration string) (*Snapshot, error) {
	return execBreaker(b.breaker, func() (*Snapshot, error) {
		return b.provider.GetSnapshot(ctx, symbol, expiration)
	})
}

// GetSpot wraps the underlying provider call with the circuit breaker.
func (b *BreakerProvider) GetSpot(ctx context.Context, symbol string) (float64, error) {
	return execBreaker(b.breaker, func() (float64, error) {
		return b.provider.GetSpot(ctx, symbol)
	})
}
