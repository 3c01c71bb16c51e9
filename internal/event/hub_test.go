package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnReceivesMatchingKindOnly(t *testing.T) {
	t.Parallel()
	h := NewHub()

	var got []Event
	h.On(KindServerAdded, func(e Event) { got = append(got, e) })

	h.Emit(Event{Kind: KindServerAdded, ServerID: "s1"})
	h.Emit(Event{Kind: KindServerRemoved, ServerID: "s1"})

	require.Len(t, got, 1)
	assert.Equal(t, KindServerAdded, got[0].Kind)
	assert.Equal(t, "s1", got[0].ServerID)
}

func TestOnAnyReceivesEverything(t *testing.T) {
	t.Parallel()
	h := NewHub()

	var kinds []Kind
	h.OnAny(func(e Event) { kinds = append(kinds, e.Kind) })

	h.Emit(Event{Kind: KindServerAdded})
	h.Emit(Event{Kind: KindRequestFailed, Err: errors.New("boom")})
	h.Emit(Event{Kind: KindDestroyed})

	assert.Equal(t, []Kind{KindServerAdded, KindRequestFailed, KindDestroyed}, kinds)
}

func TestMultipleSubscribersAllRun(t *testing.T) {
	t.Parallel()
	h := NewHub()

	var a, b int
	h.On(KindConfigUpdated, func(Event) { a++ })
	h.On(KindConfigUpdated, func(Event) { b++ })

	h.Emit(Event{Kind: KindConfigUpdated})

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestEmitFillsTimestamp(t *testing.T) {
	t.Parallel()
	h := NewHub()

	var got Event
	h.On(KindServerSelected, func(e Event) { got = e })

	h.Emit(Event{Kind: KindServerSelected})
	assert.False(t, got.Timestamp.IsZero())
}

func TestNilCallbackIgnored(t *testing.T) {
	t.Parallel()
	h := NewHub()
	h.On(KindServerAdded, nil)
	h.OnAny(nil)

	// Must not panic.
	h.Emit(Event{Kind: KindServerAdded})
}

func TestEmitWithNoSubscribers(t *testing.T) {
	t.Parallel()
	h := NewHub()
	h.Emit(Event{Kind: KindDestroyed})
}
