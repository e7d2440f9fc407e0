// Package irq implements the PS1 interrupt controller: two sticky
// registers (I_STAT pending, I_MASK enable) covering eleven interrupt
// lines, polled by the CPU once per step.
package irq

import (
	"log/slog"

	"github.com/kestrel-dev/go-psrx/psrx/bus"
)

// Line identifies one of the eleven interrupt sources.
type Line uint8

const (
	VBlank Line = iota
	GPU
	CDROM
	DMA
	Timer0
	Timer1
	Timer2
	ControllerPort
	SIO
	SPU
	LightPen
)

// IRQController owns I_STAT/I_MASK and is registered on the bus at
// IStat..IMask+3.
type IRQController struct {
	bus.RegisterWidener

	stat uint32
	mask uint32
}

// New returns a IRQController with no pending or enabled lines.
func New() *IRQController {
	return &IRQController{}
}

// AddressRange claims the 8-byte I_STAT/I_MASK window.
func (c *IRQController) AddressRange() (uint32, uint32) {
	return bus.IStat, bus.IMask + 3
}

// ReadRegister dispatches by word offset within the claimed range.
func (c *IRQController) ReadRegister(offset uint32, width int) uint32 {
	switch offset & ^uint32(3) {
	case 0:
		return bus.WidenRead(c.stat, offset, width)
	case 4:
		return bus.WidenRead(c.mask, offset, width)
	default:
		return 0
	}
}

// WriteRegister dispatches by word offset within the claimed range.
//
// I_STAT uses write-0-clears: a bit written as 0 clears the
// corresponding pending flag, a bit written as 1 leaves it unchanged.
func (c *IRQController) WriteRegister(offset uint32, width int, value uint32) {
	switch offset & ^uint32(3) {
	case 0:
		word := bus.WidenWrite(c.stat, offset, width, value)
		c.stat &= word
	case 4:
		c.mask = bus.WidenWrite(c.mask, offset, width, value)
	}
}

// Raise sets a line's pending bit, logging at debug level the way the
// teacher logs peripheral-driven state transitions.
func (c *IRQController) Raise(line Line) {
	bit := uint32(1) << uint(line)
	if c.stat&bit == 0 {
		slog.Debug("irq: line raised", "line", line)
	}
	c.stat |= bit
}

// Pending reports whether any enabled line currently has a pending bit
// set: the aggregate signal the CPU tests after each step.
func (c *IRQController) Pending() bool {
	return c.stat&c.mask != 0
}

// PendingMask returns I_STAT & I_MASK, the value check_interrupts is
// called with.
func (c *IRQController) PendingMask() uint32 {
	return c.stat & c.mask
}

// Stat returns the raw I_STAT value (debug/snapshot use).
func (c *IRQController) Stat() uint32 { return c.stat }

// Mask returns the raw I_MASK value (debug/snapshot use).
func (c *IRQController) Mask() uint32 { return c.mask }

// Reset clears both registers (power-cycle).
func (c *IRQController) Reset() {
	c.stat = 0
	c.mask = 0
}

func (l Line) String() string {
	switch l {
	case VBlank:
		return "VBLANK"
	case GPU:
		return "GPU"
	case CDROM:
		return "CDROM"
	case DMA:
		return "DMA"
	case Timer0:
		return "TIMER0"
	case Timer1:
		return "TIMER1"
	case Timer2:
		return "TIMER2"
	case ControllerPort:
		return "CONTROLLER"
	case SIO:
		return "SIO"
	case SPU:
		return "SPU"
	case LightPen:
		return "LIGHTPEN"
	default:
		return "UNKNOWN"
	}
}
