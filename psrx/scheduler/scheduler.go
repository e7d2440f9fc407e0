// Package scheduler implements the timing core that coordinates the CPU
// and peripherals at event granularity: a handle/downcount model where
// the CPU drains a cycle budget (downcount) between calls to RunEvents,
// and devices register once and reschedule themselves by handle rather
// than posting fresh events into a queue.
package scheduler

import "log/slog"

// Handle identifies a device-owned event slot returned by RegisterEvent.
type Handle int

// frameTargetHandle is reserved for the sentinel event planted by
// SetFrameTarget so RunFrame can exit deterministically.
const frameTargetHandle Handle = -1

// noEventSentinel is the downcount used when no events are scheduled.
const noEventSentinel = 1 << 30

type eventRecord struct {
	handle    Handle
	name      string
	dueAtTick uint64
	period    uint64 // 0 == one-shot
	scheduled bool
}

// Scheduler owns the monotonic global clock, the CPU's cycle budget, and
// the set of registered per-device events. Expected cardinality is small
// (7-10 events), so events are kept in a flat slice scanned linearly
// rather than in a heap.
type Scheduler struct {
	globalTick   uint64
	pendingTicks int32
	downcount    int32

	events []eventRecord

	frameTarget    uint64
	frameTargetSet bool
}

// New returns a freshly reset Scheduler with no registered events.
func New() *Scheduler {
	s := &Scheduler{}
	s.downcount = noEventSentinel
	return s
}

// RegisterEvent allocates a device-owned slot. The event is not
// scheduled until Schedule/SchedulePeriodic is called on its handle.
func (s *Scheduler) RegisterEvent(name string) Handle {
	h := Handle(len(s.events))
	s.events = append(s.events, eventRecord{handle: h, name: name, dueAtTick: 0, scheduled: false})
	slog.Debug("scheduler: registered event", "handle", h, "name", name)
	return h
}

// Schedule enqueues (or re-enqueues) a one-shot event for cyclesFromNow
// cycles in the future, relative to the current global tick.
func (s *Scheduler) Schedule(h Handle, cyclesFromNow int64) {
	s.scheduleAbsolute(h, s.globalTick+uint64(max64(0, cyclesFromNow)), 0)
}

// SchedulePeriodic enqueues an event that first fires after `initial`
// cycles and then repeats every `period` cycles thereafter.
func (s *Scheduler) SchedulePeriodic(h Handle, initial, period int64) {
	s.scheduleAbsolute(h, s.globalTick+uint64(max64(0, initial)), uint64(period))
}

// Cancel moves an event far into the future so it effectively never
// fires again without deallocating its handle.
func (s *Scheduler) Cancel(h Handle) {
	s.scheduleAbsolute(h, ^uint64(0)/2, 0)
}

func (s *Scheduler) scheduleAbsolute(h Handle, dueAt, period uint64) {
	ev := &s.events[h]
	ev.dueAtTick = dueAt
	ev.period = period
	ev.scheduled = true
	s.recomputeDowncount()
}

// RunEvents advances the global tick by the accumulated pending_ticks,
// drains every event whose due time has arrived (ascending due time,
// ties broken by handle order), reschedules periodic ones in place, and
// recomputes the downcount. Returns the handles that fired, in the
// order they were delivered.
func (s *Scheduler) RunEvents() []Handle {
	s.globalTick += uint64(s.pendingTicks)
	s.pendingTicks = 0

	var fired []Handle
	for {
		idx, ok := s.nextDueIndex()
		if !ok {
			break
		}
		ev := &s.events[idx]
		fired = append(fired, ev.handle)
		if ev.period > 0 {
			ev.dueAtTick += ev.period
			for ev.dueAtTick <= s.globalTick {
				ev.dueAtTick += ev.period
			}
		} else {
			ev.scheduled = false
		}
	}

	if s.frameTargetSet && s.globalTick >= s.frameTarget {
		fired = append(fired, frameTargetHandle)
		s.frameTargetSet = false
	}

	s.recomputeDowncount()
	return fired
}

// nextDueIndex finds the lowest-handle event with the smallest due time
// that is <= the current global tick, if any.
func (s *Scheduler) nextDueIndex() (int, bool) {
	best := -1
	for i := range s.events {
		ev := &s.events[i]
		if !ev.scheduled || ev.dueAtTick > s.globalTick {
			continue
		}
		if best == -1 || ev.dueAtTick < s.events[best].dueAtTick {
			best = i
		}
	}
	return best, best != -1
}

// recomputeDowncount restores the invariant that downcount equals the
// distance to the nearest scheduled event (or the frame-target sentinel
// when no events are scheduled).
func (s *Scheduler) recomputeDowncount() {
	min := uint64(noEventSentinel)
	found := false
	for i := range s.events {
		ev := &s.events[i]
		if !ev.scheduled {
			continue
		}
		due := ev.dueAtTick
		if due < s.globalTick {
			due = s.globalTick
		}
		delta := due - s.globalTick
		if !found || delta < min {
			min = delta
			found = true
		}
	}
	if s.frameTargetSet && s.frameTarget >= s.globalTick {
		delta := s.frameTarget - s.globalTick
		if !found || delta < min {
			min = delta
			found = true
		}
	}
	if !found {
		min = noEventSentinel
	}
	if min > noEventSentinel {
		min = noEventSentinel
	}
	s.downcount = int32(min)
}

// SetFrameTarget plants a sentinel so RunEvents also reports a
// frame-boundary "event" (FrameTargetHandle) once `cycles` more ticks
// have elapsed, letting RunFrame exit deterministically.
func (s *Scheduler) SetFrameTarget(cycles int64) {
	s.frameTarget = s.globalTick + uint64(max64(0, cycles))
	s.frameTargetSet = true
	s.recomputeDowncount()
}

// FrameTargetHandle is the sentinel handle RunEvents reports when the
// frame-target sentinel fires.
func FrameTargetHandle() Handle { return frameTargetHandle }

// AddPendingTicks accumulates CPU cycles consumed since the last
// RunEvents call.
func (s *Scheduler) AddPendingTicks(cycles int32) {
	s.pendingTicks += cycles
}

// Downcount returns the number of cycles the CPU may still run before
// the scheduler must process due events.
func (s *Scheduler) Downcount() int32 { return s.downcount }

// PendingTicks returns cycles consumed since the last RunEvents call.
func (s *Scheduler) PendingTicks() int32 { return s.pendingTicks }

// GlobalTick returns the monotonic tick counter since reset.
func (s *Scheduler) GlobalTick() uint64 { return s.globalTick }

// ShouldDrain reports whether the CPU has consumed its cycle budget and
// control should return to the scheduler.
func (s *Scheduler) ShouldDrain() bool {
	return s.pendingTicks >= s.downcount
}

// Reset restores the scheduler to its post-construction state, keeping
// registered handles (devices re-schedule themselves after reset).
func (s *Scheduler) Reset() {
	s.globalTick = 0
	s.pendingTicks = 0
	s.frameTargetSet = false
	for i := range s.events {
		s.events[i].scheduled = false
	}
	s.downcount = noEventSentinel
}

// EventSnapshot is a debug-only view of one registered event. The
// terminal debug viewer does not display it.
type EventSnapshot struct {
	Handle    Handle
	Name      string
	DueAtTick uint64
	Scheduled bool
	Periodic  bool
}

// Snapshot returns the current state of every registered event, for
// diagnostics.
func (s *Scheduler) Snapshot() []EventSnapshot {
	out := make([]EventSnapshot, len(s.events))
	for i, ev := range s.events {
		out[i] = EventSnapshot{
			Handle:    ev.handle,
			Name:      ev.name,
			DueAtTick: ev.dueAtTick,
			Scheduled: ev.scheduled,
			Periodic:  ev.period > 0,
		}
	}
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
