package netsync

import "testing"

func state(tick uint32, ts int64) EntityState {
	return EntityState{Tick: tick, Timestamp: ts}
}

func TestRingBufferPushAndGet(t *testing.T) {
	rb := NewRingBuffer[EntityState](3)

	if _, ok := rb.Get(0); ok {
		t.Fatal("expected empty buffer to return not found")
	}

	rb.Push(state(1, 100))
	rb.Push(state(2, 200))

	if rb.Len() != 2 {
		t.Fatalf("expected len 2, got %d", rb.Len())
	}
	got, ok := rb.Get(0)
	if !ok || got.Tick != 2 {
		t.Errorf("Get(0) = %v, %v; want tick 2", got.Tick, ok)
	}
	got, ok = rb.Get(1)
	if !ok || got.Tick != 1 {
		t.Errorf("Get(1) = %v, %v; want tick 1", got.Tick, ok)
	}
	if _, ok := rb.Get(2); ok {
		t.Error("Get(2) should be out of range")
	}
	if _, ok := rb.Get(-1); ok {
		t.Error("Get(-1) should be out of range")
	}
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	rb := NewRingBuffer[EntityState](3)
	for i := uint32(1); i <= 5; i++ {
		rb.Push(state(i, int64(i)*100))
	}

	if rb.Len() != 3 {
		t.Fatalf("expected len capped at 3, got %d", rb.Len())
	}
	if rb.Cap() != 3 {
		t.Fatalf("expected cap 3, got %d", rb.Cap())
	}

	want := []uint32{5, 4, 3}
	for i, tick := range want {
		got, ok := rb.Get(i)
		if !ok || got.Tick != tick {
			t.Errorf("Get(%d) = %d, want %d", i, got.Tick, tick)
		}
	}

	if _, ok := rb.GetByTick(1); ok {
		t.Error("tick 1 should have been overwritten")
	}
	if got, ok := rb.GetByTick(4); !ok || got.Timestamp != 400 {
		t.Errorf("GetByTick(4) = %v, %v", got.Timestamp, ok)
	}
}

func TestRingBufferGetByTickPrefersNewest(t *testing.T) {
	rb := NewRingBuffer[EntityState](4)
	rb.Push(state(7, 100))
	rb.Push(state(7, 200))

	got, ok := rb.GetByTick(7)
	if !ok {
		t.Fatal("expected tick 7 to be found")
	}
	if got.Timestamp != 200 {
		t.Errorf("expected newest duplicate (ts 200), got %d", got.Timestamp)
	}
}

func TestRingBufferGetByTimestamp(t *testing.T) {
	rb := NewRingBuffer[EntityState](8)
	if _, ok := rb.GetByTimestamp(100); ok {
		t.Fatal("expected empty buffer to return not found")
	}

	rb.Push(state(1, 100))
	rb.Push(state(2, 200))
	rb.Push(state(3, 300))

	tests := []struct {
		name string
		ts   int64
		want uint32
	}{
		{"exact", 200, 2},
		{"closer to earlier", 240, 2},
		{"closer to later", 260, 3},
		{"before all", -50, 1},
		{"after all", 10_000, 3},
		{"tie resolves to newer", 250, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := rb.GetByTimestamp(tt.ts)
			if !ok {
				t.Fatal("expected a result")
			}
			if got.Tick != tt.want {
				t.Errorf("GetByTimestamp(%d) = tick %d, want %d", tt.ts, got.Tick, tt.want)
			}
		})
	}
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer[EntityState](2)
	rb.Push(state(1, 1))
	rb.Push(state(2, 2))
	rb.Clear()

	if rb.Len() != 0 {
		t.Errorf("expected len 0 after Clear, got %d", rb.Len())
	}
	if _, ok := rb.Get(0); ok {
		t.Error("Get after Clear should fail")
	}

	rb.Push(state(9, 9))
	if got, _ := rb.Get(0); got.Tick != 9 {
		t.Errorf("expected tick 9 after reuse, got %d", got.Tick)
	}
}

func TestNewRingBufferDefaultCapacity(t *testing.T) {
	rb := NewRingBuffer[EntityState](0)
	if rb.Cap() != DefaultHistoryCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultHistoryCapacity, rb.Cap())
	}
}
