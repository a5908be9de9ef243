package holds

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "unpaid-hold-7", Key("unpaid-hold", 7))
}

func TestArmFiresOnce(t *testing.T) {
	r := New()

	var fired int32
	r.Arm("k", 20*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})
	assert.True(t, r.Active("k"))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, r.Active("k"))
	assert.Zero(t, r.Len())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestCancel(t *testing.T) {
	r := New()

	var fired int32
	r.Arm("k", 30*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	assert.True(t, r.Cancel("k"))
	assert.False(t, r.Active("k"))
	assert.False(t, r.Cancel("k"))

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&fired))
}

func TestArmReplacesExisting(t *testing.T) {
	r := New()

	var first, second int32
	r.Arm("k", time.Minute, func() {
		atomic.AddInt32(&first, 1)
	})
	r.Arm("k", 20*time.Millisecond, func() {
		atomic.AddInt32(&second, 1)
	})
	assert.Equal(t, 1, r.Len())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&second) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&first))
	assert.Zero(t, r.Len())
}

func TestAcquire(t *testing.T) {
	r := New()

	assert.True(t, r.Acquire("k"))
	assert.True(t, r.Active("k"))
	assert.False(t, r.Acquire("k"))

	// Cancel releases a bare acquisition without a timer ever armed.
	assert.True(t, r.Cancel("k"))
	assert.False(t, r.Active("k"))
	assert.True(t, r.Acquire("k"))

	// Arm attaches the timer to the held key; it fires and clears.
	var fired int32
	r.Arm("k", 20*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, r.Active("k"))
	assert.True(t, r.Acquire("k"))
}

func TestIndependentKeys(t *testing.T) {
	r := New()

	r.Arm(Key("unpaid-hold", 1), time.Minute, func() {})
	r.Arm(Key("unpaid-hold", 2), time.Minute, func() {})
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.Cancel(Key("unpaid-hold", 1)))
	assert.False(t, r.Active(Key("unpaid-hold", 1)))
	assert.True(t, r.Active(Key("unpaid-hold", 2)))
}
