package server

import (
	"errors"
	"testing"
)

func TestSlotManagerAssignsLowestFreeSlot(t *testing.T) {
	m := NewSlotManager()
	a, err := m.Acquire("a")
	if err != nil || a.Slot != 0 {
		t.Fatalf("first acquire = %+v, %v", a, err)
	}
	b, err := m.Acquire("b")
	if err != nil || b.Slot != 1 {
		t.Fatalf("second acquire = %+v, %v", b, err)
	}
	if a.ID == b.ID {
		t.Fatalf("expected distinct session ids")
	}
	if _, err := m.Acquire("c"); !errors.Is(err, ErrServerFull) {
		t.Fatalf("third acquire err = %v, want ErrServerFull", err)
	}
	if n := m.Active(); n != 2 {
		t.Fatalf("active = %d, want 2", n)
	}

	m.Release(a)
	c, err := m.Acquire("c")
	if err != nil || c.Slot != 0 {
		t.Fatalf("reacquire = %+v, %v; want slot 0", c, err)
	}
}

func TestSlotManagerIgnoresStaleRelease(t *testing.T) {
	m := NewSlotManager()
	a, _ := m.Acquire("a")
	m.Release(a)
	b, _ := m.Acquire("b")

	// a 已经释放过，槽位现在属于 b
	m.Release(a)
	sessions := m.Sessions()
	if len(sessions) != 1 || sessions[0].ID != b.ID {
		t.Fatalf("sessions = %+v, want only b", sessions)
	}
}
