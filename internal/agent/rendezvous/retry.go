package rendezvous

import (
	"context"
	"time"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Connector performs one transport connect attempt.
type Connector interface {
	Dial(ctx context.Context) error
}

// RetryConfig controls connect retries against a relay that may be asleep.
type RetryConfig struct {
	MaxAttempts int
	// Base is the backoff base in seconds; the sleep after attempt n is Base^n.
	Base float64
	// Settle is the pause between a wake probe and the connect attempt.
	Settle time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Base <= 0 {
		c.Base = 2
	}
	if c.Settle < 0 {
		c.Settle = 0
	}
	return c
}

// Retrier connects with wake probing and exponential backoff.
type Retrier struct {
	cfg    RetryConfig
	prober Prober
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier. prober may be nil.
func NewRetrier(cfg RetryConfig, prober Prober) *Retrier {
	return &Retrier{cfg: cfg.withDefaults(), prober: prober, sleep: sleepContext}
}

func (r *Retrier) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(r.cfg.Base * float64(time.Second))
	b.Multiplier = r.cfg.Base
	b.RandomizationFactor = 0
	b.MaxInterval = 24 * time.Hour
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Connect makes up to MaxAttempts attempts. Attempt 1 dials immediately; later
// attempts probe the relay and wait Settle first. Probe and dial failures are
// logged and counted alike. There is no sleep after the final attempt.
func (r *Retrier) Connect(ctx context.Context, conn Connector) error {
	b := r.newBackOff()
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		logger.Info(ctx, "connecting to signaling server", zap.Int("attempt", attempt), zap.Int("max_attempts", r.cfg.MaxAttempts))
		if attempt > 1 {
			if r.prober != nil {
				if err := r.prober.Probe(ctx); err != nil {
					logger.Warn(ctx, "wake probe failed", zap.Int("attempt", attempt), zap.Error(err))
				}
			}
			if err := r.sleep(ctx, r.cfg.Settle); err != nil {
				return err
			}
		}

		err := conn.Dial(ctx)
		if err == nil {
			logger.Info(ctx, "connected to signaling server", zap.Int("attempt", attempt))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		logger.Warn(ctx, "connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt < r.cfg.MaxAttempts {
			delay := b.NextBackOff()
			logger.Info(ctx, "waiting before retry", zap.Duration("delay", delay))
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return appErr.Wrapf(lastErr, appErr.RendezvousUnreachable, "all %d connection attempts failed", r.cfg.MaxAttempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
