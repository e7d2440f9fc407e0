package scheduler

import "testing"

func TestScheduleAndRunEvents_FiresOnlyWhenDue(t *testing.T) {
	s := New()
	h := s.RegisterEvent("vblank")
	s.SchedulePeriodic(h, 564480, 564480)

	s.AddPendingTicks(564479)
	fired := s.RunEvents()
	if len(fired) != 0 {
		t.Fatalf("expected no events to fire at 564479 ticks, got %v", fired)
	}

	s.AddPendingTicks(1)
	fired = s.RunEvents()
	if len(fired) != 1 || fired[0] != h {
		t.Fatalf("expected vblank handle to fire exactly once, got %v", fired)
	}
}

func TestRunEvents_OrdersByDueTimeThenHandle(t *testing.T) {
	s := New()
	a := s.RegisterEvent("a")
	b := s.RegisterEvent("b")
	c := s.RegisterEvent("c")

	s.Schedule(c, 10)
	s.Schedule(a, 10)
	s.Schedule(b, 5)

	s.AddPendingTicks(10)
	fired := s.RunEvents()

	want := []Handle{b, a, c}
	if len(fired) != len(want) {
		t.Fatalf("got %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("got %v, want %v", fired, want)
		}
	}
}

func TestPeriodicEventReschedulesInPlace(t *testing.T) {
	s := New()
	h := s.RegisterEvent("periodic")
	s.SchedulePeriodic(h, 100, 100)

	s.AddPendingTicks(100)
	s.RunEvents()

	if s.Downcount() != 100 {
		t.Fatalf("expected downcount of 100 after reschedule, got %d", s.Downcount())
	}

	s.AddPendingTicks(100)
	fired := s.RunEvents()
	if len(fired) != 1 || fired[0] != h {
		t.Fatalf("expected periodic event to fire again, got %v", fired)
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	s := New()
	h := s.RegisterEvent("cancelled")
	s.Schedule(h, 10)
	s.Cancel(h)

	s.AddPendingTicks(10)
	fired := s.RunEvents()
	if len(fired) != 0 {
		t.Fatalf("expected cancelled event not to fire, got %v", fired)
	}
}

func TestSetFrameTarget_FiresSentinel(t *testing.T) {
	s := New()
	s.SetFrameTarget(1000)

	s.AddPendingTicks(999)
	if len(s.RunEvents()) != 0 {
		t.Fatal("frame target fired early")
	}

	s.AddPendingTicks(1)
	fired := s.RunEvents()
	if len(fired) != 1 || fired[0] != FrameTargetHandle() {
		t.Fatalf("expected frame target sentinel, got %v", fired)
	}
}

func TestShouldDrainTracksDowncount(t *testing.T) {
	s := New()
	h := s.RegisterEvent("e")
	s.Schedule(h, 5)

	s.AddPendingTicks(4)
	if s.ShouldDrain() {
		t.Fatal("should not drain before downcount reached")
	}
	s.AddPendingTicks(1)
	if !s.ShouldDrain() {
		t.Fatal("should drain once pending ticks reach downcount")
	}
}
