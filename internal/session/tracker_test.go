package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ljluestc/balancer/pkg/logger"
)

func TestPinAndLookup(t *testing.T) {
	t.Parallel()
	tr := New(time.Minute, logger.Discard())

	tr.Pin("client-1", "s1")
	id, ok := tr.Lookup("client-1")
	require.True(t, ok)
	assert.Equal(t, "s1", id)

	_, ok = tr.Lookup("client-2")
	assert.False(t, ok)
}

func TestRepinOverwrites(t *testing.T) {
	t.Parallel()
	tr := New(time.Minute, logger.Discard())

	tr.Pin("client-1", "s1")
	tr.Pin("client-1", "s2")

	id, ok := tr.Lookup("client-1")
	require.True(t, ok)
	assert.Equal(t, "s2", id)
	assert.Equal(t, 1, tr.Len())
}

func TestExpiredPinDropped(t *testing.T) {
	t.Parallel()
	tr := New(10*time.Millisecond, logger.Discard())

	tr.Pin("client-1", "s1")
	time.Sleep(20 * time.Millisecond)

	_, ok := tr.Lookup("client-1")
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()
	tr := New(0, logger.Discard())

	tr.Pin("client-1", "s1")
	time.Sleep(10 * time.Millisecond)

	id, ok := tr.Lookup("client-1")
	require.True(t, ok)
	assert.Equal(t, "s1", id)
}

func TestClear(t *testing.T) {
	t.Parallel()
	tr := New(time.Minute, logger.Discard())

	tr.Pin("client-1", "s1")
	assert.True(t, tr.Clear("client-1"))
	assert.False(t, tr.Clear("client-1"))

	_, ok := tr.Lookup("client-1")
	assert.False(t, ok)
}

func TestClearAll(t *testing.T) {
	t.Parallel()
	tr := New(time.Minute, logger.Discard())

	tr.Pin("client-1", "s1")
	tr.Pin("client-2", "s2")
	tr.ClearAll()

	assert.Equal(t, 0, tr.Len())
}

func TestRemoveServerPurgesItsPins(t *testing.T) {
	t.Parallel()
	tr := New(time.Minute, logger.Discard())

	tr.Pin("client-1", "s1")
	tr.Pin("client-2", "s1")
	tr.Pin("client-3", "s2")

	tr.RemoveServer("s1")

	_, ok := tr.Lookup("client-1")
	assert.False(t, ok)
	_, ok = tr.Lookup("client-2")
	assert.False(t, ok)

	id, ok := tr.Lookup("client-3")
	require.True(t, ok)
	assert.Equal(t, "s2", id)
}

func TestSetTTLAppliesToFuturePins(t *testing.T) {
	t.Parallel()
	tr := New(time.Minute, logger.Discard())

	tr.Pin("client-1", "s1")
	tr.SetTTL(10 * time.Millisecond)
	tr.Pin("client-2", "s2")

	time.Sleep(20 * time.Millisecond)

	// The existing pin keeps its original expiry.
	_, ok := tr.Lookup("client-1")
	assert.True(t, ok)
	_, ok = tr.Lookup("client-2")
	assert.False(t, ok)
}
