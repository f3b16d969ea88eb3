package services

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playsync/internal/shared"
	"golang.org/x/time/rate"
)

// Options configures the transport behaviour shared by every catalog client.
type Options struct {
	HTTPClient        *http.Client
	Logger            *log.Logger
	BatchSize         int           // AddItems limit, defaults to [DefaultBatchSize]
	Timeout           time.Duration // per remote call, zero disables
	RequestsPerSecond float64       // zero disables rate limiting
	Retry             RetryPolicy
}

// OptionsFromConfig builds client [Options] from the sync section of the config.
func OptionsFromConfig(cfg shared.SyncConfig, batchSize int, logger *log.Logger) Options {
	return Options{
		Logger:            logger,
		BatchSize:         batchSize,
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Retry: RetryPolicy{
			MaxAttempts: cfg.RetryAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
	}
}

// RetryPolicy bounds retries of idempotent reads with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// backoff returns the wait before the given retry (1-based).
func (p RetryPolicy) backoff(retry int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(retry-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// caller applies rate limiting, per-call timeouts and retries around remote calls.
type caller struct {
	service string
	timeout time.Duration
	limiter *rate.Limiter
	retry   RetryPolicy
	logger  *log.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func newCaller(service string, opts Options) *caller {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &caller{
		service: service,
		timeout: opts.Timeout,
		limiter: limiter,
		retry:   opts.Retry,
		logger:  shared.WithLogger(opts.Logger, "service", service),
		sleep:   sleepContext,
	}
}

// read runs an idempotent call, retrying transient upstream failures.
func (c *caller) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err = c.once(ctx, fn); err == nil {
			return nil
		}

		var upstream *UpstreamError
		if !errors.As(err, &upstream) || !upstream.Transient() || ctx.Err() != nil {
			return err
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		wait := c.retry.backoff(attempt)
		c.logger.Warn("retrying request", "op", op, "attempt", attempt, "wait", wait, "error", err)
		if serr := c.sleep(ctx, wait); serr != nil {
			return transportError(c.service, serr)
		}
	}
	return err
}

// write runs a call exactly once.
func (c *caller) write(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.once(ctx, fn)
}

func (c *caller) once(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(c.service, err)
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := fn(callCtx); err != nil {
		return transportError(c.service, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
