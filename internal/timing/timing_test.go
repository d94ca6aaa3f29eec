package timing

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for call")
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	db := NewDebouncer(30 * time.Millisecond)
	defer db.Stop()

	var calls atomic.Int32
	done := make(chan struct{}, 8)
	for i := 0; i < 5; i++ {
		db.Do(func() {
			calls.Add(1)
			done <- struct{}{}
		})
	}

	waitFor(t, done)
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("burst of 5 produced %d calls, want 1", got)
	}
}

func TestDebouncerRunsLatest(t *testing.T) {
	db := NewDebouncer(20 * time.Millisecond)
	defer db.Stop()

	var got atomic.Int32
	done := make(chan struct{}, 8)
	for i := 1; i <= 3; i++ {
		i := i
		db.Do(func() {
			got.Store(int32(i))
			done <- struct{}{}
		})
	}

	waitFor(t, done)
	if got.Load() != 3 {
		t.Errorf("ran call %d, want the latest (3)", got.Load())
	}
}

func TestDebouncerFlush(t *testing.T) {
	db := NewDebouncer(time.Hour)
	defer db.Stop()

	var calls int
	db.Do(func() { calls++ })
	db.Flush()

	if calls != 1 {
		t.Fatalf("Flush ran %d calls, want 1", calls)
	}

	// Nothing pending: Flush is a no-op.
	db.Flush()
	if calls != 1 {
		t.Errorf("second Flush ran the call again")
	}
}

func TestDebouncerStop(t *testing.T) {
	db := NewDebouncer(10 * time.Millisecond)

	var calls atomic.Int32
	db.Do(func() { calls.Add(1) })
	db.Stop()

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("pending call ran after Stop")
	}

	db.Do(func() { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("Do after Stop scheduled a call")
	}
}

func TestThrottlerLeadingCall(t *testing.T) {
	th := NewThrottler(time.Hour)
	defer th.Stop()

	var calls int
	th.Do(func() { calls++ })

	// The first call runs synchronously.
	if calls != 1 {
		t.Errorf("leading call ran %d times, want 1", calls)
	}
}

func TestThrottlerCoalescesTrailing(t *testing.T) {
	th := NewThrottler(30 * time.Millisecond)
	defer th.Stop()

	var leading, trailing atomic.Int32
	done := make(chan struct{}, 8)

	th.Do(func() { leading.Add(1) })
	for i := 1; i <= 3; i++ {
		i := i
		th.Do(func() {
			trailing.Store(int32(i))
			done <- struct{}{}
		})
	}

	waitFor(t, done)
	if leading.Load() != 1 {
		t.Errorf("leading calls = %d, want 1", leading.Load())
	}
	if trailing.Load() != 3 {
		t.Errorf("trailing ran call %d, want the latest (3)", trailing.Load())
	}
}

func TestThrottlerReopens(t *testing.T) {
	th := NewThrottler(20 * time.Millisecond)
	defer th.Stop()

	var calls atomic.Int32
	th.Do(func() { calls.Add(1) })
	time.Sleep(80 * time.Millisecond)
	th.Do(func() { calls.Add(1) })

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (gate reopened)", calls.Load())
	}
}

func TestThrottlerStop(t *testing.T) {
	th := NewThrottler(10 * time.Millisecond)

	var calls atomic.Int32
	th.Do(func() { calls.Add(1) })
	th.Do(func() { calls.Add(1) }) // kept as trailing
	th.Stop()

	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (trailing dropped by Stop)", calls.Load())
	}
}
