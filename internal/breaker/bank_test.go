package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ljluestc/balancer/internal/event"
	"github.com/ljluestc/balancer/pkg/logger"
)

func newTestBank(threshold int, openFor time.Duration) (*Bank, *event.Hub) {
	hub := event.NewHub()
	return New(threshold, openFor, hub, logger.Discard()), hub
}

func TestOpensAtThreshold(t *testing.T) {
	b, _ := newTestBank(3, time.Minute)

	b.RecordFailure("s1")
	b.RecordFailure("s1")
	assert.False(t, b.IsOpen("s1"))

	b.RecordFailure("s1")
	assert.True(t, b.IsOpen("s1"))

	st := b.StateOf("s1")
	assert.True(t, st.Open)
	assert.Equal(t, 3, st.FailureCount)
}

func TestUnknownServerIsClosed(t *testing.T) {
	b, _ := newTestBank(3, time.Minute)
	assert.False(t, b.IsOpen("never-seen"))
	assert.Equal(t, State{}, b.StateOf("never-seen"))
}

func TestFailuresAreIndependentPerServer(t *testing.T) {
	b, _ := newTestBank(2, time.Minute)

	b.RecordFailure("s1")
	b.RecordFailure("s1")
	b.RecordFailure("s2")

	assert.True(t, b.IsOpen("s1"))
	assert.False(t, b.IsOpen("s2"))
}

func TestSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBank(3, time.Minute)

	b.RecordFailure("s1")
	b.RecordFailure("s1")
	b.RecordSuccess("s1")
	b.RecordFailure("s1")

	assert.False(t, b.IsOpen("s1"))
	assert.Equal(t, 1, b.StateOf("s1").FailureCount)
}

func TestLazyResetAfterOpenPeriod(t *testing.T) {
	b, _ := newTestBank(1, 20*time.Millisecond)

	b.RecordFailure("s1")
	assert.True(t, b.IsOpen("s1"))

	time.Sleep(30 * time.Millisecond)

	// The elapsed period is evaluated on consultation, and the reset clears
	// the failure count too.
	assert.False(t, b.IsOpen("s1"))
	st := b.StateOf("s1")
	assert.False(t, st.Open)
	assert.Equal(t, 0, st.FailureCount)
}

func TestOpenAndResetEvents(t *testing.T) {
	b, hub := newTestBank(1, 20*time.Millisecond)

	var kinds []event.Kind
	hub.OnAny(func(e event.Event) {
		kinds = append(kinds, e.Kind)
	})

	b.RecordFailure("s1")
	time.Sleep(30 * time.Millisecond)
	b.IsOpen("s1")

	assert.Equal(t, []event.Kind{event.KindCircuitBreakerOpened, event.KindCircuitBreakerReset}, kinds)
}

func TestOpenedEventFiresOnce(t *testing.T) {
	b, hub := newTestBank(2, time.Minute)

	var opened int
	hub.On(event.KindCircuitBreakerOpened, func(event.Event) { opened++ })

	b.RecordFailure("s1")
	b.RecordFailure("s1")
	b.RecordFailure("s1")

	assert.Equal(t, 1, opened)
}

func TestConfigureAffectsFutureDecisions(t *testing.T) {
	b, _ := newTestBank(5, time.Minute)

	b.RecordFailure("s1")
	b.Configure(2, time.Minute)
	b.RecordFailure("s1")

	assert.True(t, b.IsOpen("s1"))
}

func TestRemoveDropsState(t *testing.T) {
	b, _ := newTestBank(1, time.Minute)

	b.RecordFailure("s1")
	assert.True(t, b.IsOpen("s1"))

	b.Remove("s1")
	assert.False(t, b.IsOpen("s1"))
	assert.Equal(t, State{}, b.StateOf("s1"))
}

func TestReset(t *testing.T) {
	b, _ := newTestBank(1, time.Minute)

	b.RecordFailure("s1")
	b.RecordFailure("s2")
	b.Reset()

	assert.False(t, b.IsOpen("s1"))
	assert.False(t, b.IsOpen("s2"))
}
