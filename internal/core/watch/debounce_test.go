package watch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebounce_Coalesces(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)
	var got atomic.Int32
	d.OnFire(func(paths []string) { got.Store(int32(len(paths))) })

	d.Push("a.txt")
	d.Push("a.txt")
	d.Push("b.txt")
	time.Sleep(300 * time.Millisecond)

	if got.Load() != 2 {
		t.Fatalf("expected 2, got %d", got.Load())
	}
}

func TestDebounce_StopCancels(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var fired atomic.Bool
	d.OnFire(func([]string) { fired.Store(true) })

	d.Push("a.txt")
	d.Stop()
	d.Push("b.txt")
	time.Sleep(150 * time.Millisecond)

	if fired.Load() {
		t.Fatalf("fired after Stop")
	}
}
