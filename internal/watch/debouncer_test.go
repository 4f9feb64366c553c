package watch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	// Well before the window has elapsed since the last trigger.
	assert.Zero(t, calls.Load())

	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 10*time.Millisecond)

	// No stragglers.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerSupersededTriggerNeverFires(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(60*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	d.Trigger()
	time.Sleep(40 * time.Millisecond)
	d.Trigger() // supersedes the first before it fires

	time.Sleep(40 * time.Millisecond)
	// 80ms after the first trigger: had it survived, it would have fired.
	assert.Zero(t, calls.Load())

	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	assert.True(t, d.Pending())
	d.Stop()
	assert.False(t, d.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestDebouncerStopIdempotent(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, func() {})
	d.Stop()
	d.Stop()

	// Triggers after Stop are ignored.
	d.Trigger()
	assert.False(t, d.Pending())
}

func TestDebouncerPendingClearsAfterFire(t *testing.T) {
	fired := make(chan struct{})
	d := NewDebouncer(10*time.Millisecond, func() { close(fired) })
	defer d.Stop()

	d.Trigger()
	<-fired

	assert.Eventually(t, func() bool { return !d.Pending() },
		time.Second, 5*time.Millisecond)
}
