package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"FlatPull/internal/domain/models"
	"FlatPull/pkg/logger"
)

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) bool

// Observer is notified before each backoff wait.
type Observer func(op string, attempt int, err error)

type Policy struct {
	maxAttempts int
	minDelay    time.Duration
	maxDelay    time.Duration
	multiplier  float64
	jitter      float64
	classify    Classifier
	observe     Observer
	timer       backoff.Timer
	logger      *logger.Logger
}

type Option func(*Policy)

func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithDelays(min, max time.Duration) Option {
	return func(p *Policy) {
		if min > 0 {
			p.minDelay = min
		}
		if max >= p.minDelay {
			p.maxDelay = max
		}
	}
}

func WithMultiplier(m float64) Option {
	return func(p *Policy) {
		if m >= 1 {
			p.multiplier = m
		}
	}
}

// WithJitter sets the randomization factor, 0 disables jitter.
func WithJitter(j float64) Option {
	return func(p *Policy) {
		if j >= 0 && j < 1 {
			p.jitter = j
		}
	}
}

func WithClassifier(c Classifier) Option {
	return func(p *Policy) { p.classify = c }
}

func WithObserver(o Observer) Option {
	return func(p *Policy) { p.observe = o }
}

// WithTimer replaces the wall-clock timer used between attempts.
func WithTimer(t backoff.Timer) Option {
	return func(p *Policy) { p.timer = t }
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// New returns a policy with 100 attempts between 1s and 600s that retries
// errors classified by models.IsTransient.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: 100,
		minDelay:    time.Second,
		maxDelay:    600 * time.Second,
		multiplier:  2,
		jitter:      0.1,
		classify:    models.IsTransient,
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.minDelay
	b.MaxInterval = p.maxDelay
	b.Multiplier = p.multiplier
	b.RandomizationFactor = p.jitter
	b.MaxElapsedTime = 0
	bounded := &boundedBackOff{BackOff: b, min: p.minDelay, max: p.maxDelay}
	return backoff.WithContext(backoff.WithMaxRetries(bounded, uint64(p.maxAttempts-1)), ctx)
}

// boundedBackOff keeps jittered delays inside [min, max].
type boundedBackOff struct {
	backoff.BackOff
	min, max time.Duration
}

func (b *boundedBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	switch {
	case d == backoff.Stop:
		return d
	case d < b.min:
		return b.min
	case d > b.max:
		return b.max
	}
	return d
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. Exhaustion wraps models.ErrRetryExhausted.
func (p *Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := 0

	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !p.classify(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		p.logger.Warn("retrying operation",
			logger.String("op", op),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", p.maxAttempts),
			logger.Duration("delay_ms", delay),
			logger.String("kind", models.ErrorKind(err)),
			logger.Error(err),
		)
		if p.observe != nil {
			p.observe(op, attempt, err)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, p.backOff(ctx), notify, p.timer)
	switch {
	case err == nil:
		if attempt > 1 {
			p.logger.Info("operation succeeded after retries",
				logger.String("op", op),
				logger.Int("attempts", attempt),
			)
		}
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, ctx.Err())
	case p.classify(err):
		p.logger.Error("retry attempts exhausted",
			logger.String("op", op),
			logger.Int("attempts", attempt),
			logger.String("kind", models.ErrorKind(err)),
			logger.Error(err),
		)
		return fmt.Errorf("%s: %w after %d attempts: %w", op, models.ErrRetryExhausted, attempt, err)
	default:
		return err
	}
}

// Run is Do for operations that return a value.
func Run[T any](ctx context.Context, p *Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Wrap returns fn guarded by the policy, so callers keep the original signature.
func Wrap[Req, T any](p *Policy, op string, fn func(context.Context, Req) (T, error)) func(context.Context, Req) (T, error) {
	return func(ctx context.Context, req Req) (T, error) {
		return Run(ctx, p, op, func(ctx context.Context) (T, error) {
			return fn(ctx, req)
		})
	}
}
