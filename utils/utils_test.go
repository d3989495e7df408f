package utils

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Circuit Breaker Tests

func newTestBreaker() (*CircuitBreaker, *FakeClock) {
	clk := NewFakeClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := NewCircuitBreaker("test", WithClock(clk), WithMaxFailures(3), WithTimeout(30*time.Second))
	return cb, clk
}

func failing(ctx context.Context) error { return errors.New("failure") }
func succeeding(ctx context.Context) error { return nil }

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("calendar")

	assert.Equal(t, "calendar", cb.Name())
	assert.Equal(t, uint32(3), cb.maxFailures)
	assert.Equal(t, 30*time.Second, cb.timeout)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb, _ := newTestBreaker()

	err := cb.Execute(context.Background(), succeeding)

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(1), cb.Counts().TotalSuccesses)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb, _ := newTestBreaker()

	err := cb.Execute(context.Background(), failing)

	assert.EqualError(t, err, "failure")
	assert.Equal(t, uint32(1), cb.Counts().ConsecutiveFailures)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_StateTransition_ClosedToOpen(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, failing)
	}

	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_StateTransition_OpenToHalfOpenToClosed(t *testing.T) {
	cb, clk := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, failing)
	}
	require.Equal(t, StateOpen, cb.State())

	clk.Advance(31 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenToOpen(t *testing.T) {
	cb, clk := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, failing)
	}
	clk.Advance(31 * time.Second)

	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessClassifier(t *testing.T) {
	denied := errors.New("denied")
	cb := NewCircuitBreaker("test", WithMaxFailures(1), WithSuccessClassifier(func(err error) bool {
		return err == nil || errors.Is(err, denied)
	}))

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return denied })

	assert.ErrorIs(t, err, denied)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMaxFailures(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Execute(ctx, succeeding)
			} else {
				_ = cb.Execute(ctx, failing)
			}
		}(i)
	}
	wg.Wait()

	counts := cb.Counts()
	assert.Equal(t, uint32(50), counts.Requests)
	assert.Equal(t, uint32(25), counts.TotalSuccesses)
	assert.Equal(t, uint32(25), counts.TotalFailures)
}

func TestCircuitBreaker_PanicRecovery(t *testing.T) {
	cb, _ := newTestBreaker()

	assert.Panics(t, func() {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, uint32(1), cb.Counts().TotalFailures)
}

func TestCircuitBreaker_StateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
}

// Random Tests

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(3)
	require.NoError(t, err)

	assert.Len(t, code, 6)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestGenerateTicketNumber_Format(t *testing.T) {
	now := time.UnixMilli(1736532000000)

	number, err := GenerateTicketNumber(now)
	require.NoError(t, err)

	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, TicketNumberPrefix, parts[0])
	assert.Equal(t, "M5R2BEO0", parts[1])
	assert.Len(t, parts[2], 6)
}

func TestGenerateTicketNumber_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)

	for i := 0; i < 500; i++ {
		number, err := GenerateTicketNumber(now.Add(time.Duration(i) * time.Millisecond))
		require.NoError(t, err)
		assert.False(t, seen[number], "duplicate ticket number %s", number)
		seen[number] = true
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)
	clk := NewFakeClock(start)

	clk.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), clk.Now())

	clk.Set(start)
	assert.Equal(t, start, clk.Now())
}
