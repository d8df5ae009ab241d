package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(threshold int, reset time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		ResetTimeout:     reset,
	})
}

func failingCall(ctx context.Context, cb *CircuitBreaker) error {
	_, err := ExecuteVal(ctx, cb, func(context.Context) (int, error) {
		return 0, eris.New("upstream down")
	})
	return err
}

func TestExecuteVal_PassesThroughWhenClosed(t *testing.T) {
	t.Parallel()

	cb := testBreaker(3, time.Minute)
	v, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) {
		return "payload", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteVal_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	cb := testBreaker(3, time.Minute)
	for range 3 {
		require.Error(t, failingCall(context.Background(), cb))
	}
	assert.Equal(t, CircuitOpen, cb.State())

	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		t.Fatal("call must not reach the service while open")
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestExecuteVal_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := testBreaker(3, time.Minute)
	require.Error(t, failingCall(context.Background(), cb))
	require.Error(t, failingCall(context.Background(), cb))

	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)

	// Two more failures stay under the threshold after the reset.
	require.Error(t, failingCall(context.Background(), cb))
	require.Error(t, failingCall(context.Background(), cb))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuit_HalfOpenProbeCloses(t *testing.T) {
	t.Parallel()

	cb := testBreaker(1, time.Minute)
	require.Error(t, failingCall(context.Background(), cb))
	require.Equal(t, CircuitOpen, cb.State())

	// Move the clock past the reset timeout.
	cb.clockFunc = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, CircuitHalfOpen, cb.State())

	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuit_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	cb := testBreaker(1, time.Minute)
	require.Error(t, failingCall(context.Background(), cb))

	base := time.Now()
	offset := 2 * time.Minute
	cb.clockFunc = func() time.Time { return base.Add(offset) }

	require.Error(t, failingCall(context.Background(), cb))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuit_ShouldTripFilter(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip:       func(err error) bool { return err.Error() != "not found" },
	})

	_, err := ExecuteVal(context.Background(), cb, func(context.Context) (int, error) {
		return 0, eris.New("not found")
	})
	require.Error(t, err)
	assert.Equal(t, CircuitClosed, cb.State())

	require.Error(t, failingCall(context.Background(), cb))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuit_OnStateChange(t *testing.T) {
	t.Parallel()

	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	require.Error(t, failingCall(context.Background(), cb))
	cb.Reset()
	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)
}

func TestCircuitState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(99).String())
}

func TestServiceBreakers_SameServiceSameBreaker(t *testing.T) {
	t.Parallel()

	sb := NewServiceBreakers(DefaultCircuitBreakerConfig())
	assert.Same(t, sb.Get("trafficstats"), sb.Get("trafficstats"))
	assert.NotSame(t, sb.Get("trafficstats"), sb.Get("techdetect"))
}

func TestServiceBreakers_IsolatedFailures(t *testing.T) {
	t.Parallel()

	sb := NewServiceBreakers(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	require.Error(t, failingCall(context.Background(), sb.Get("techdetect")))

	assert.Equal(t, CircuitOpen, sb.Get("techdetect").State())
	assert.Equal(t, CircuitClosed, sb.Get("trafficstats").State())
}

func TestServiceBreakers_ConcurrentGet(t *testing.T) {
	t.Parallel()

	sb := NewServiceBreakers(DefaultCircuitBreakerConfig())
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sb.Get("jobfeed")
		}()
	}
	wg.Wait()
	assert.NotNil(t, sb.Get("jobfeed"))
}
