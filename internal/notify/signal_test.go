package notify

import "testing"

func TestSignal_EmitInConnectionOrder(t *testing.T) {
	var s Signal[int]
	var got []string

	s.Connect(func(v int) { got = append(got, "a") })
	s.Connect(func(v int) { got = append(got, "b") })
	s.Emit(1)

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("slots called = %v, want [a b]", got)
	}
}

func TestSignal_Disconnect(t *testing.T) {
	var s Signal[string]
	calls := 0

	c := s.Connect(func(string) { calls++ })
	s.Emit("x")
	s.Disconnect(c)
	s.Emit("y")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}

	// Unknown handle is ignored
	s.Disconnect(Connection(42))
}

func TestSignal_ConnectDuringEmit(t *testing.T) {
	var s Signal[int]
	late := 0

	s.Connect(func(int) {
		s.Connect(func(int) { late++ })
	})
	s.Emit(1)

	if late != 0 {
		t.Errorf("slot connected during emit was called %d times", late)
	}
	s.Emit(2)
	if late != 1 {
		t.Errorf("late slot calls = %d, want 1", late)
	}
}
