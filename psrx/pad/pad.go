// Package pad implements the PS1 controller ports: the JOY serial
// interface's digital-pad protocol (TX/RX byte exchange, port select via
// CTRL) and the 16-bit per-pad button state the host updates directly.
package pad

import (
	"github.com/kestrel-dev/go-psrx/psrx/bitutil"
	"github.com/kestrel-dev/go-psrx/psrx/bus"
	"github.com/kestrel-dev/go-psrx/psrx/irq"
)

// Button identifies one of the sixteen digital-pad bits, low = pressed.
type Button uint8

const (
	Select Button = iota
	L3
	R3
	Start
	Up
	Right
	Down
	Left
	L2
	R2
	L1
	R1
	Triangle
	Circle
	Cross
	Square
)

// Pad holds one controller's button state, low bit value = pressed.
type Pad struct {
	buttons uint16
}

// NewPad returns a Pad with every button released.
func NewPad() *Pad {
	return &Pad{buttons: 0xFFFF}
}

// Press clears a button's bit (pressed = low).
func (p *Pad) Press(b Button) {
	p.buttons = bitutil.Reset16(uint8(b), p.buttons)
}

// Release sets a button's bit (released = high).
func (p *Pad) Release(b Button) {
	p.buttons = bitutil.Set16(uint8(b), p.buttons)
}

const (
	statIdle = iota
	statAfterSelect
	statExpectLow
	statExpectHigh
)

// Ports owns the JOY serial interface registers and is registered on
// the bus at JoyTxRx..JoyBaud+3.
type Ports struct {
	bus.RegisterWidener

	ctrl uint16
	mode uint16
	baud uint16
	stat uint32

	pads [2]*Pad

	stage    int
	rxReady  bool
	rxByte   uint8

	ic *irq.IRQController
}

// New returns a Ports with both controller slots empty.
func New(ic *irq.IRQController) *Ports {
	return &Ports{ic: ic}
}

// AttachPad wires a Pad into a port slot (0 or 1); nil detaches it.
func (p *Ports) AttachPad(port int, pd *Pad) {
	if port < 0 || port > 1 {
		return
	}
	p.pads[port] = pd
}

// selectedPort mirrors real hardware's CTRL bit 13 port-select bit.
func (p *Ports) selectedPort() int {
	if p.ctrl&(1<<13) != 0 {
		return 1
	}
	return 0
}

// AddressRange claims the JOY register window.
func (p *Ports) AddressRange() (uint32, uint32) {
	return bus.JoyTxRx, bus.JoyBaud + 3
}

func (p *Ports) ReadRegister(offset uint32, width int) uint32 {
	switch {
	case offset < 4:
		v := uint32(0xFF)
		if p.rxReady {
			v = uint32(p.rxByte)
			p.rxReady = false
		}
		return bus.WidenRead(v, offset, width)
	case offset >= bus.JoyStat-bus.JoyTxRx && offset < bus.JoyMode-bus.JoyTxRx:
		return bus.WidenRead(p.stat, offset-(bus.JoyStat-bus.JoyTxRx), width)
	case offset >= bus.JoyMode-bus.JoyTxRx && offset < bus.JoyCtrl-bus.JoyTxRx:
		return bus.WidenRead(uint32(p.mode), offset-(bus.JoyMode-bus.JoyTxRx), width)
	case offset >= bus.JoyCtrl-bus.JoyTxRx && offset < bus.JoyBaud-bus.JoyTxRx:
		return bus.WidenRead(uint32(p.ctrl), offset-(bus.JoyCtrl-bus.JoyTxRx), width)
	default:
		return bus.WidenRead(uint32(p.baud), offset-(bus.JoyBaud-bus.JoyTxRx), width)
	}
}

func (p *Ports) WriteRegister(offset uint32, width int, value uint32) {
	switch {
	case offset < 4:
		p.transfer(uint8(value))
	case offset >= bus.JoyMode-bus.JoyTxRx && offset < bus.JoyCtrl-bus.JoyTxRx:
		p.mode = uint16(bus.WidenWrite(uint32(p.mode), offset-(bus.JoyMode-bus.JoyTxRx), width, value))
	case offset >= bus.JoyCtrl-bus.JoyTxRx && offset < bus.JoyBaud-bus.JoyTxRx:
		p.ctrl = uint16(bus.WidenWrite(uint32(p.ctrl), offset-(bus.JoyCtrl-bus.JoyTxRx), width, value))
		if p.ctrl&1 == 0 {
			p.stage = statIdle
		}
	case offset >= bus.JoyBaud-bus.JoyTxRx:
		p.baud = uint16(bus.WidenWrite(uint32(p.baud), offset-(bus.JoyBaud-bus.JoyTxRx), width, value))
	}
}

// transfer drives the digital-pad protocol state machine: each TX byte
// synchronously yields an RX byte.
func (p *Ports) transfer(txByte uint8) {
	pd := p.pads[p.selectedPort()]
	var rx uint8 = 0xFF

	switch p.stage {
	case statIdle:
		if txByte == 0x01 {
			rx = 0xFF
			p.stage = statAfterSelect
		}
	case statAfterSelect:
		if txByte == 0x42 && pd != nil {
			rx = 0x41
			p.stage = statExpectLow
		} else {
			p.stage = statIdle
		}
	case statExpectLow:
		if pd != nil {
			rx = uint8(pd.buttons)
		}
		p.stage = statExpectHigh
	case statExpectHigh:
		if pd != nil {
			rx = uint8(pd.buttons >> 8)
		}
		p.stage = statIdle
		if p.ic != nil && p.ctrl&(1<<10) != 0 {
			p.ic.Raise(irq.ControllerPort)
		}
	}

	p.rxByte = rx
	p.rxReady = true
}

// Reset returns the ports to their power-on state; attached pads keep
// their button state.
func (p *Ports) Reset() {
	p.ctrl = 0
	p.mode = 0
	p.baud = 0
	p.stat = 0
	p.stage = statIdle
	p.rxReady = false
}
