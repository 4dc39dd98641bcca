// Package retry wraps a chain provider with bounded retries for transient
// failures. Backoff grows by 1.5x per attempt with random jitter so
// concurrent callers do not hammer the upstream in lockstep.
package retry

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halpert/bigtuna/internal/chain"
)

type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
}

// Provider retries the wrapped provider's calls on transient errors.
type Provider struct {
	inner  chain.Provider
	logger *logrus.Logger
	config Config
}

var _ chain.Provider = (*Provider)(nil)

func NewProvider(inner chain.Provider, logger *logrus.Logger, config ...Config) *Provider {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Provider{inner: inner, logger: logger, config: cfg}
}

func (p *Provider) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	return retryCall(ctx, p, "expirations", func() ([]string, error) {
		return p.inner.GetExpirations(ctx, symbol)
	})
}

func (p *Provider) GetSnapshot(ctx context.Context, symbol, expiration string) (*chain.Snapshot, error) {
	return retryCall(ctx, p, "snapshot", func() (*chain.Snapshot, error) {
		return p.inner.GetSnapshot(ctx, symbol, expiration)
	})
}

func (p *Provider) GetSpot(ctx context.Context, symbol string) (float64, error) {
	return retryCall(ctx, p, "spot", func() (float64, error) {
		return p.inner.GetSpot(ctx, symbol)
	})
}

func retryCall[T any](ctx context.Context, p *Provider, op string, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := p.config.InitialBackoff

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s canceled: %w", op, ctx.Err())
		}

		result, err := call()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isTransientError(err) || attempt == p.config.MaxRetries {
			break
		}

		p.logger.WithError(err).Warnf("%s attempt %d/%d failed, retrying in %v",
			op, attempt+1, p.config.MaxRetries+1, backoff)

		select {
		case <-time.After(backoff):
			backoff = p.nextBackoff(backoff)
		case <-ctx.Done():
			return zero, fmt.Errorf("%s canceled during backoff: %w", op, ctx.Err())
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, p.config.MaxRetries+1, lastErr)
}

func (p *Provider) nextBackoff(current time.Duration) time.Duration {
	backoff := time.Duration(float64(current) * 1.5)
	if backoff > p.config.MaxBackoff {
		backoff = p.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			p.logger.WithError(err).Warn("failed to generate backoff jitter")
		} else {
			backoff += time.Duration(jitterVal.Int64())
		}
	}

	return backoff
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429", // HTTP 429 Too Many Requests
		"502", // HTTP 502 Bad Gateway
		"503", // HTTP 503 Service Unavailable
		"504", // HTTP 504 Gateway Timeout
		"network",
		"dns",
		"tcp",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
