package netsync

import "testing"

func TestNearestEventWindow(t *testing.T) {
	clock := &fakeClock{ms: 1000}
	lc := NewLagCompensation[string](50, 2000, clock.Now)
	lc.AddEvent(EventKick, "a", 1000)

	tests := []struct {
		name string
		ts   int64
		ok   bool
	}{
		{"exact", 1000, true},
		{"inside window", 1049, true},
		{"inside window before", 951, true},
		{"window edge is exclusive", 1050, false},
		{"outside", 1200, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := lc.NearestEvent(tt.ts)
			if ok != tt.ok {
				t.Errorf("NearestEvent(%d) ok = %v, want %v", tt.ts, ok, tt.ok)
			}
		})
	}
}

func TestNearestEventReturnsFirstMatch(t *testing.T) {
	lc := NewLagCompensation[string](50, 2000, nil)
	lc.AddEvent(EventKick, "first", 1000)
	lc.AddEvent(EventGoal, "second", 1010)

	// 1010 离第二条更近，但按插入顺序先命中第一条
	ev, ok := lc.NearestEvent(1010)
	if !ok {
		t.Fatal("expected an event")
	}
	if ev.Data != "first" || ev.Type != EventKick {
		t.Errorf("got %+v, want first event", ev)
	}
}

func TestLagCompensationCleanup(t *testing.T) {
	clock := &fakeClock{ms: 5000}
	lc := NewLagCompensation[int](50, 2000, clock.Now)
	lc.AddEvent(EventKick, 1, 2000)
	lc.AddEvent(EventKick, 2, 3000) // 边界，保留
	lc.AddEvent(EventGoal, 3, 4500)

	lc.Cleanup(0)
	if lc.Len() != 2 {
		t.Fatalf("expected 2 events after cleanup, got %d", lc.Len())
	}
	if _, ok := lc.NearestEvent(2000); ok {
		t.Error("expired event should be gone")
	}

	clock.ms = 10_000
	lc.Cleanup(0)
	if lc.Len() != 0 {
		t.Errorf("expected all events expired, got %d", lc.Len())
	}
}

func TestLagCompensationExplicitMaxAge(t *testing.T) {
	clock := &fakeClock{ms: 1000}
	lc := NewLagCompensation[int](50, 2000, clock.Now)
	lc.AddEvent(EventMatch, 1, 800)
	lc.AddEvent(EventMatch, 2, 950)

	lc.Cleanup(100)
	if lc.Len() != 1 {
		t.Errorf("expected 1 event with max age 100, got %d", lc.Len())
	}
}
