// Package redisconn opens Redis clients for the cache engine, retrying the
// first connection with exponential backoff.
package redisconn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/region-cache/pkg/config"
)

var (
	// ErrConnectionFailed is returned when every connection attempt failed.
	ErrConnectionFailed = errors.New("redis: failed to establish connection")

	// ErrHealthcheckFailed is returned by Healthcheck closures.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)

var connectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "redis_connect_attempts_total",
	Help: "Total number of redis connection attempts by result",
}, []string{"result"})

// RetryConfig holds the configuration for startup retries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the wait after the first failure.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Options converts the configuration into client options. Addr may be a
// plain host:port or a redis:// or rediss:// URL.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		parsed, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Open creates a client and pings it until it answers or retries are
// exhausted.
func Open(ctx context.Context, cfg config.RedisConfig, retry RetryConfig, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	attempts := max(retry.MaxAttempts, 1)
	backoff := retry.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		client := redis.NewClient(opts)
		lastErr = client.Ping(ctx).Err()
		if lastErr == nil {
			connectAttempts.WithLabelValues("success").Inc()
			if attempt > 1 {
				logger.Info().
					Str("addr", opts.Addr).
					Int("attempt", attempt).
					Msg("Connected to redis after retry")
			}
			return client, nil
		}
		_ = client.Close()
		connectAttempts.WithLabelValues("failure").Inc()

		if attempt == attempts {
			break
		}

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		logger.Warn().
			Err(lastErr).
			Str("addr", opts.Addr).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Redis not reachable, retrying")

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectionFailed, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * retry.BackoffMultiplier)
		if backoff > retry.MaxBackoff {
			backoff = retry.MaxBackoff
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrConnectionFailed, attempts, lastErr)
}

// Healthcheck returns a closure that validates Redis connectivity for
// readiness endpoints.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrHealthcheckFailed
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
