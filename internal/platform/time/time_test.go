package time

import (
	"testing"
	"time"
)

func TestPtr(t *testing.T) {
	if Ptr(time.Time{}) != nil {
		t.Fatalf("zero time should be nil")
	}
	now := time.Unix(100, 0)
	if p := Ptr(now); p == nil || !p.Equal(now) {
		t.Fatalf("Ptr mismatch")
	}
}

func TestManual(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewManual(start)
	var c Clock = m.Now
	if !c().Equal(start) {
		t.Fatalf("Now = %v", c())
	}
	if got := m.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("Advance = %v", got)
	}
	m.Set(start)
	if !m.Now().Equal(start) {
		t.Fatalf("Set did not take")
	}
}

func TestSystemIsUTC(t *testing.T) {
	if System().Location() != time.UTC {
		t.Fatalf("System should be UTC")
	}
}
