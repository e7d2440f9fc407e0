// Package timer implements the PS1's three timer/counter channels:
// free-running counters clocked by the system clock, the GPU's dot
// clock, HBlank pulses, or system-clock/8, each able to raise an
// interrupt on reaching its target or wrapping at 0xFFFF.
package timer

import (
	"github.com/kestrel-dev/go-psrx/psrx/bus"
	"github.com/kestrel-dev/go-psrx/psrx/irq"
	"github.com/kestrel-dev/go-psrx/psrx/scheduler"
)

// Mode bits.
const (
	modeEnableSync   = 1 << 0
	modeSyncShift    = 1
	modeSyncMask     = 0x3
	modeResetTarget  = 1 << 3
	modeIRQOnTarget  = 1 << 4
	modeIRQOnMax     = 1 << 5
	modeRepeat       = 1 << 6
	modeTogglePulse  = 1 << 7
	modeClockShift   = 8
	modeClockMask    = 0x3
	modeReachedTgt   = 1 << 11
	modeReachedMax   = 1 << 12
)

// clockSource identifies what drives a channel's counter.
type clockSource int

const (
	sourceSystem clockSource = iota
	sourceAlt                // dot clock (ch0), HBlank (ch1), sysclock/8 (ch2)
)

type channel struct {
	counter uint16
	target  uint16
	mode    uint16

	reachedTarget bool
	reachedMax    bool

	overflowEvent scheduler.Handle
	needsReschedule bool

	irqLine irq.Line
}

// Controller owns all three timer channels and is registered on the bus
// at Timer0Counter..Timer2Target+3.
type Controller struct {
	bus.RegisterWidener

	channels [3]channel
	sched    *scheduler.Scheduler
	ic       *irq.IRQController
}

// New returns a Controller with its three channels' overflow events
// registered (but not yet scheduled) against sched.
func New(sched *scheduler.Scheduler, ic *irq.IRQController) *Controller {
	c := &Controller{sched: sched, ic: ic}
	c.channels[0].irqLine = irq.Timer0
	c.channels[1].irqLine = irq.Timer1
	c.channels[2].irqLine = irq.Timer2
	for i := range c.channels {
		c.channels[i].overflowEvent = sched.RegisterEvent(timerEventName(i))
	}
	return c
}

func timerEventName(ch int) string {
	switch ch {
	case 0:
		return "timer0.overflow"
	case 1:
		return "timer1.overflow"
	default:
		return "timer2.overflow"
	}
}

// AddressRange claims the Timer0..Timer2 register block.
func (c *Controller) AddressRange() (uint32, uint32) {
	return bus.Timer0Counter, bus.Timer2Target + 3
}

func (c *Controller) ReadRegister(offset uint32, width int) uint32 {
	ch := int(offset / 0x10)
	reg := offset % 0x10
	if ch >= 3 {
		return 0
	}
	cc := &c.channels[ch]
	switch reg & ^uint32(3) {
	case 0x0:
		return bus.WidenRead(uint32(cc.counter), reg, width)
	case 0x4:
		mode := c.modeReadValue(cc)
		cc.reachedTarget = false
		cc.reachedMax = false
		return bus.WidenRead(mode, reg, width)
	case 0x8:
		return bus.WidenRead(uint32(cc.target), reg, width)
	default:
		return 0
	}
}

func (c *Controller) modeReadValue(cc *channel) uint32 {
	v := uint32(cc.mode) &^ (modeReachedTgt | modeReachedMax)
	if cc.reachedTarget {
		v |= modeReachedTgt
	}
	if cc.reachedMax {
		v |= modeReachedMax
	}
	return v
}

func (c *Controller) WriteRegister(offset uint32, width int, value uint32) {
	ch := int(offset / 0x10)
	reg := offset % 0x10
	if ch >= 3 {
		return
	}
	cc := &c.channels[ch]
	switch reg & ^uint32(3) {
	case 0x0:
		cc.counter = uint16(bus.WidenWrite(uint32(cc.counter), reg, width, value))
	case 0x4:
		cc.mode = uint16(bus.WidenWrite(uint32(cc.mode), reg, width, value))
		cc.counter = 0
		cc.needsReschedule = true
	case 0x8:
		cc.target = uint16(bus.WidenWrite(uint32(cc.target), reg, width, value))
		cc.needsReschedule = true
	}
}

func (cc *channel) clockSource() clockSource {
	sel := (cc.mode >> modeClockShift) & modeClockMask
	if sel&1 != 0 {
		return sourceAlt
	}
	return sourceSystem
}

// TickSystem advances every channel clocked by the raw system clock by
// `cycles` and reschedules overflow events as needed. Timer 2's
// system-clock/8 mode divides internally.
func (c *Controller) TickSystem(cycles uint32) {
	c.advance(0, sourceSystem, cycles)
	c.advance(1, sourceSystem, cycles)
	c.advanceDivided(2, cycles)
}

// TickDotClock advances timer 0 when configured to use the GPU dot
// clock as its source.
func (c *Controller) TickDotClock(ticks uint32) {
	c.advance(0, sourceAlt, ticks)
}

// TickHBlank advances timer 1 when configured to use HBlank pulses as
// its source.
func (c *Controller) TickHBlank(pulses uint32) {
	c.advance(1, sourceAlt, pulses)
}

func (c *Controller) advanceDivided(ch int, cycles uint32) {
	cc := &c.channels[ch]
	if cc.clockSource() != sourceAlt {
		c.advance(ch, sourceSystem, cycles)
		return
	}
	// sysclock/8: accumulate in the counter's extra low bits would
	// complicate readback, so instead advance once per 8 cycles using
	// the scheduler's global tick as the phase reference.
	ticks := (c.sched.GlobalTick() + uint64(cycles)) / 8 - c.sched.GlobalTick() / 8
	c.advance(ch, sourceAlt, uint32(ticks))
}

func (c *Controller) advance(ch int, source clockSource, delta uint32) {
	cc := &c.channels[ch]
	if cc.clockSource() != source || delta == 0 {
		return
	}
	for i := uint32(0); i < delta; i++ {
		cc.counter++
		if cc.counter == cc.target {
			cc.reachedTarget = true
			if cc.mode&modeResetTarget != 0 {
				cc.counter = 0
			}
			if cc.mode&modeIRQOnTarget != 0 {
				c.ic.Raise(cc.irqLine)
			}
		}
		if cc.counter == 0xFFFF {
			cc.reachedMax = true
			if cc.mode&modeIRQOnMax != 0 {
				c.ic.Raise(cc.irqLine)
			}
			cc.counter = 0
		}
	}
}

// ProcessEvents re-plants each channel's overflow_event with the
// scheduler if a mode/target write marked it dirty, anticipating the
// next target/max hit precisely rather than polling every tick.
func (c *Controller) ProcessEvents() {
	for i := range c.channels {
		cc := &c.channels[i]
		if !cc.needsReschedule {
			continue
		}
		cc.needsReschedule = false
		distance := cyclesToNextHit(cc)
		c.sched.Schedule(cc.overflowEvent, distance)
	}
}

func cyclesToNextHit(cc *channel) int64 {
	toTarget := int64(cc.target) - int64(cc.counter)
	if toTarget <= 0 {
		toTarget = 0x1_0000
	}
	toMax := int64(0xFFFF) - int64(cc.counter)
	if toTarget < toMax {
		return toTarget
	}
	return toMax
}

// Reset restores all channels to power-on defaults.
func (c *Controller) Reset() {
	for i := range c.channels {
		line := c.channels[i].irqLine
		handle := c.channels[i].overflowEvent
		c.channels[i] = channel{irqLine: line, overflowEvent: handle}
	}
}
