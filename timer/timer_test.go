package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerManager_FiresOnce(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var fired atomic.Int32
	m.AddTimer(50*time.Millisecond, 0, func() {
		fired.Add(1)
	})

	time.Sleep(400 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("Expected one-shot timer to fire exactly once, fired %d times", got)
	}
}

func TestTimerManager_Interval(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var fired atomic.Int32
	id := m.AddTimer(50*time.Millisecond, 100*time.Millisecond, func() {
		fired.Add(1)
	})

	time.Sleep(500 * time.Millisecond)
	m.RemoveTimer(id)

	if got := fired.Load(); got < 2 {
		t.Errorf("Expected interval timer to fire repeatedly, fired %d times", got)
	}
}

func TestTimerManager_RemovedTimerNeverFires(t *testing.T) {
	m := NewTimerManager()
	defer m.Stop()

	var fired atomic.Int32
	id := m.AddTimer(150*time.Millisecond, 0, func() {
		fired.Add(1)
	})

	m.RemoveTimer(id)

	time.Sleep(400 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("Removed timer should never fire, fired %d times", got)
	}
}
