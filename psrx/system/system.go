// Package system wires the bus, CPU, and every peripheral together and
// drives them with the fixed per-step order spec.md's concurrency
// model describes: CPU step, DMA tick, i-cache maintenance, timer
// cycle-tick, scheduler event drain, per-event callback dispatch,
// interrupt poll. It is the single owner of every component; nothing
// outside System holds a second mutable reference to any of them.
package system

import (
	"log/slog"

	"github.com/kestrel-dev/go-psrx/psrx/bus"
	"github.com/kestrel-dev/go-psrx/psrx/cdrom"
	"github.com/kestrel-dev/go-psrx/psrx/cpu"
	"github.com/kestrel-dev/go-psrx/psrx/dma"
	"github.com/kestrel-dev/go-psrx/psrx/gpu"
	"github.com/kestrel-dev/go-psrx/psrx/irq"
	"github.com/kestrel-dev/go-psrx/psrx/pad"
	"github.com/kestrel-dev/go-psrx/psrx/scheduler"
	"github.com/kestrel-dev/go-psrx/psrx/spu"
	"github.com/kestrel-dev/go-psrx/psrx/timer"
)

// System is the root emulation object: the single entry point a host
// front-end drives via Step/StepN/RunFrame.
type System struct {
	bus   *bus.Bus
	cpu   *cpu.CPU
	sched *scheduler.Scheduler

	irq   *irq.IRQController
	dma   *dma.Controller
	timer *timer.Controller
	gpu   *gpu.Controller
	spu   *spu.Controller
	cdrom *cdrom.Controller
	pad   *pad.Ports
	pads  [2]*pad.Pad

	tracing bool
}

// New constructs a fully-wired System: every peripheral registered on
// the bus, DMA ports attached, and the GPU's HBlank callback wired into
// whichever timer channel is configured for HBlank clocking.
func New() *System {
	b := bus.New()
	sched := scheduler.New()
	ic := irq.New()

	ramSlice := b.RAM()
	dmaCtrl := dma.New(&ramSlice, ic)
	timerCtrl := timer.New(sched, ic)
	gpuCtrl := gpu.New(sched, ic)
	spuCtrl := spu.New()
	cdromCtrl := cdrom.New(sched, ic)
	padPorts := pad.New(ic)
	cpuCore := cpu.New(b, ic, sched)

	gpuCtrl.SetHBlankCallback(func() { timerCtrl.TickHBlank(1) })

	dmaCtrl.AttachPort(dma.GPU, gpuCtrl)
	dmaCtrl.AttachPort(dma.CDROM, cdromCtrl)
	dmaCtrl.AttachPort(dma.SPU, spuCtrl)

	b.RegisterDevice(ic)
	b.RegisterDevice(dmaCtrl)
	b.RegisterDevice(timerCtrl)
	b.RegisterDevice(gpuCtrl)
	b.RegisterDevice(spuCtrl)
	b.RegisterDevice(cdromCtrl)
	b.RegisterDevice(padPorts)

	pad1, pad2 := pad.NewPad(), pad.NewPad()
	padPorts.AttachPad(0, pad1)
	padPorts.AttachPad(1, pad2)

	return &System{
		bus:   b,
		cpu:   cpuCore,
		sched: sched,
		irq:   ic,
		dma:   dmaCtrl,
		timer: timerCtrl,
		gpu:   gpuCtrl,
		spu:   spuCtrl,
		cdrom: cdromCtrl,
		pad:   padPorts,
		pads:  [2]*pad.Pad{pad1, pad2},
	}
}

// LoadBIOS loads a BIOS image, which must be exactly 512KiB.
func (s *System) LoadBIOS(path string) error {
	return s.bus.LoadBIOS(path)
}

// LoadGame loads a .cue/.bin disc image and inserts it into the drive.
func (s *System) LoadGame(cuePath string) error {
	disc, err := cdrom.LoadDisc(cuePath)
	if err != nil {
		return err
	}
	s.cdrom.InsertDisc(disc)
	return nil
}

// Reset restores every component to its power-on state.
func (s *System) Reset() {
	s.bus.Reset()
	s.cpu.Reset()
	s.sched.Reset()
	s.irq.Reset()
	s.dma.Reset()
	s.timer.Reset()
	s.gpu.Reset()
	s.spu.Reset()
	s.cdrom.Reset()
	s.pad.Reset()
}

// EnableTracing turns on per-instruction CPU tracing.
func (s *System) EnableTracing(on bool) {
	s.tracing = on
	s.cpu.EnableTracing(on)
}

// Step executes exactly one CPU instruction and drains its side
// effects in the fixed order spec.md's concurrency model documents.
// It reports whether the running frame-target sentinel fired.
func (s *System) Step() bool {
	cost := s.cpu.Step()
	s.sched.AddPendingTicks(int32(cost))
	return s.drainEvents(uint32(cost))
}

// StepN executes n CPU instructions.
func (s *System) StepN(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// RunFrame runs the CPU until one frame's worth of cycles has elapsed
// (the GPU's own VBlank period), yielding deterministically via the
// scheduler's frame-target sentinel.
func (s *System) RunFrame() {
	s.sched.SetFrameTarget(gpu.CyclesPerFrame)
	for !s.Step() {
	}
}

// drainEvents performs the fixed post-step sequence: (1) DMA tick,
// (2)-(3) i-cache maintenance, (4) the timer's legacy cycle-tick and
// the SPU's sample clock, (5) scheduler event firing, (6) CDROM/GPU/Timer event-callback
// processing, (7) interrupt-controller polling, (8) the CPU's own
// interrupt check on its next Step. It reports whether the
// frame-target sentinel fired among this drain's events.
func (s *System) drainEvents(cpuCycles uint32) bool {
	s.dma.Tick()

	s.bus.DrainICacheInvalidate()
	s.bus.DrainICacheInvalidateRange()
	s.bus.DrainICachePrefill()

	s.timer.TickSystem(cpuCycles)
	s.spu.Tick(int(cpuCycles))

	frameDone := false
	for _, h := range s.sched.RunEvents() {
		switch h {
		case s.gpu.VBlankHandle():
			s.gpu.OnVBlankFired()
		case s.gpu.HBlankHandle():
			s.gpu.OnHBlankFired()
		case s.cdrom.AckHandle():
			s.cdrom.OnAckFired()
		case s.cdrom.DeliverHandle():
			s.cdrom.OnDeliverFired()
		case s.cdrom.ReadHandle():
			s.cdrom.OnReadFired()
		case scheduler.FrameTargetHandle():
			frameDone = true
		default:
			slog.Debug("system: unhandled scheduler event", "handle", h)
		}
	}
	s.timer.ProcessEvents()

	s.cpu.CheckInterrupts()
	return frameDone
}

// CPU, Bus, GPU, SPU, and CDROM return borrowed handles for a host
// front-end or debug viewer; System retains ownership.
func (s *System) CPU() *cpu.CPU          { return s.cpu }
func (s *System) Bus() *bus.Bus          { return s.bus }
func (s *System) GPU() *gpu.Controller   { return s.gpu }
func (s *System) SPU() *spu.Controller   { return s.spu }
func (s *System) CDROM() *cdrom.Controller { return s.cdrom }

// Pad returns the controller plugged into the given port (0 or 1), for
// a front-end to feed button presses into.
func (s *System) Pad(port int) *pad.Pad { return s.pads[port] }
