package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlatPull/internal/domain/models"
)

// instantTimer fires immediately and remembers the requested delays.
type instantTimer struct {
	c      chan time.Time
	delays []time.Duration
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func newTestPolicy(timer *instantTimer, attempts int) *Policy {
	return New(
		WithMaxAttempts(attempts),
		WithDelays(time.Second, 8*time.Second),
		WithJitter(0),
		WithTimer(timer),
	)
}

func TestDoSucceedsWithoutRetry(t *testing.T) {
	timer := &instantTimer{}
	p := newTestPolicy(timer, 5)

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.delays)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	timer := &instantTimer{}
	p := newTestPolicy(timer, 5)

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return models.NewTransient(models.TransientTimeout, errors.New("slow"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.delays)
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	timer := &instantTimer{}
	p := newTestPolicy(timer, 4)

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return models.NewTransient(models.TransientReset, errors.New("reset"))
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRetryExhausted)
	assert.True(t, models.IsTransient(err))
	assert.Equal(t, 4, calls)
	assert.Len(t, timer.delays, 3)
}

func TestDelaysAreCapped(t *testing.T) {
	timer := &instantTimer{}
	p := newTestPolicy(timer, 7)

	_ = p.Do(context.Background(), "op", func(context.Context) error {
		return models.NewTransient(models.TransientServer, errors.New("503"))
	})

	for _, d := range timer.delays {
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 8*time.Second)
	}
	assert.Equal(t, 8*time.Second, timer.delays[len(timer.delays)-1])
}

func TestJitteredDelaysStayWithinBounds(t *testing.T) {
	timer := &instantTimer{}
	p := New(
		WithMaxAttempts(40),
		WithDelays(time.Second, 8*time.Second),
		WithTimer(timer),
	)

	err := p.Do(context.Background(), "op", func(context.Context) error {
		return models.NewTransient(models.TransientReset, errors.New("reset"))
	})

	require.ErrorIs(t, err, models.ErrRetryExhausted)
	require.Len(t, timer.delays, 39)
	for i, d := range timer.delays {
		assert.GreaterOrEqual(t, d, time.Second, "delay %d", i)
		assert.LessOrEqual(t, d, 8*time.Second, "delay %d", i)
	}
}

func TestDoDoesNotRetryFatal(t *testing.T) {
	timer := &instantTimer{}
	p := newTestPolicy(timer, 10)

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return models.ErrEntitlement
	})

	assert.ErrorIs(t, err, models.ErrEntitlement)
	assert.NotErrorIs(t, err, models.ErrRetryExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, timer.delays)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(WithMaxAttempts(10), WithDelays(time.Hour, time.Hour))

	calls := 0
	err := p.Do(ctx, "op", func(context.Context) error {
		calls++
		cancel()
		return models.NewTransient(models.TransientTimeout, errors.New("slow"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestObserverSeesEachRetry(t *testing.T) {
	timer := &instantTimer{}
	var attempts []int
	p := New(
		WithMaxAttempts(3),
		WithJitter(0),
		WithTimer(timer),
		WithObserver(func(op string, attempt int, err error) {
			assert.Equal(t, "fetch", op)
			attempts = append(attempts, attempt)
		}),
	)

	_ = p.Do(context.Background(), "fetch", func(context.Context) error {
		return models.NewTransient(models.TransientRateLimit, errors.New("429"))
	})

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestWrapKeepsSignature(t *testing.T) {
	timer := &instantTimer{}
	p := newTestPolicy(timer, 3)

	calls := 0
	fetch := func(_ context.Context, n int) (int, error) {
		calls++
		if calls == 1 {
			return 0, models.NewTransient(models.TransientServer, errors.New("500"))
		}
		return n * 2, nil
	}

	wrapped := Wrap(p, "double", fetch)
	got, err := wrapped(context.Background(), 21)

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestClassifyNetwork(t *testing.T) {
	err := ClassifyNetwork(context.Background(), timeoutErr{})
	assert.True(t, models.IsTransient(err))
	assert.Equal(t, "timeout", models.ErrorKind(err))

	plain := errors.New("bad request")
	assert.Equal(t, plain, ClassifyNetwork(context.Background(), plain))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyStatus(t *testing.T) {
	base := errors.New("upstream")

	assert.ErrorIs(t, ClassifyStatus(403, base), models.ErrEntitlement)
	assert.ErrorIs(t, ClassifyStatus(401, base), models.ErrEntitlement)
	assert.Equal(t, "rate_limited", models.ErrorKind(ClassifyStatus(429, base)))
	assert.Equal(t, "server_error", models.ErrorKind(ClassifyStatus(503, base)))
	assert.False(t, models.IsTransient(ClassifyStatus(400, base)))
	assert.NoError(t, ClassifyStatus(200, base))
}
