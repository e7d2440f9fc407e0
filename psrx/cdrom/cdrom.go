// Package cdrom implements the PS1 CD-ROM controller's register-level
// protocol: the four-port index-switched register window, the command
// ACK/second-response pipeline, and continuous sector reads against a
// loaded disc image.
package cdrom

import (
	"log/slog"

	"github.com/kestrel-dev/go-psrx/psrx/bus"
	"github.com/kestrel-dev/go-psrx/psrx/irq"
	"github.com/kestrel-dev/go-psrx/psrx/perr"
	"github.com/kestrel-dev/go-psrx/psrx/scheduler"
)

// Command byte codes for the implemented command subset.
const (
	CmdGetStat = 0x01
	CmdSetloc  = 0x02
	CmdReadN   = 0x06
	CmdPause   = 0x09
	CmdInit    = 0x0A
	CmdMute    = 0x0B
	CmdDemute  = 0x0C
	CmdSetmode = 0x0E
	CmdSeekL   = 0x15
	CmdSeekP   = 0x16
	CmdGetID   = 0x1A
	CmdReadS   = 0x1B
	CmdReadTOC = 0x1E
)

// Interrupt cause codes (delivered via the interrupt-flag register's low
// three bits).
const (
	int1DataReady  = 1
	int2Complete   = 2
	int3Ack        = 3
	int5Error      = 5
)

const minInterruptSpacing = 1000

// command pipeline states.
const (
	stateIdle = iota
	stateAckPending
	stateSecondPending
)

type pendingResponse struct {
	intCode int
	bytes   []byte
}

// Controller owns the CD-ROM's FIFOs, index-switched registers, command
// pipeline, and current seek position. It is registered on the bus at
// CDRomStart..CDRomEnd.
type Controller struct {
	index uint8

	paramFIFO    []byte
	responseFIFO []byte
	dataFIFO     []byte

	interruptFlag   uint8
	interruptEnable uint8

	position MSF
	mode     uint8

	disc *DiscImage

	state       int
	pendingCmd  uint8
	readActive  bool

	lastInterruptTime uint64
	deferred          []pendingResponse

	sched     *scheduler.Scheduler
	ackEvent  scheduler.Handle
	dlvrEvent scheduler.Handle
	readEvent scheduler.Handle
	ic        *irq.IRQController
}

// New returns a Controller with its command/delivery/read events
// registered against sched (but not yet scheduled).
func New(sched *scheduler.Scheduler, ic *irq.IRQController) *Controller {
	c := &Controller{sched: sched, ic: ic}
	c.ackEvent = sched.RegisterEvent("cdrom.ack")
	c.dlvrEvent = sched.RegisterEvent("cdrom.deliver")
	c.readEvent = sched.RegisterEvent("cdrom.read")
	return c
}

// InsertDisc loads a disc image into the drive.
func (c *Controller) InsertDisc(d *DiscImage) { c.disc = d }

// AddressRange claims the 4-byte CD-ROM register window.
func (c *Controller) AddressRange() (uint32, uint32) {
	return bus.CDRomStart, bus.CDRomEnd
}

func (c *Controller) status() uint8 {
	var s uint8 = uint8(c.index & 3)
	if len(c.paramFIFO) == 0 {
		s |= 1 << 3
	}
	if len(c.paramFIFO) < 16 {
		s |= 1 << 4
	}
	if len(c.responseFIFO) != 0 {
		s |= 1 << 5
	}
	if len(c.dataFIFO) != 0 {
		s |= 1 << 6
	}
	if c.state != stateIdle {
		s |= 1 << 7
	}
	return s
}

func (c *Controller) ReadRegister(offset uint32, width int) uint32 {
	return uint32(c.readPort(uint8(offset)))
}

func (c *Controller) readPort(port uint8) uint8 {
	switch port {
	case 0:
		return c.status()
	case 1:
		if len(c.responseFIFO) == 0 {
			return 0
		}
		b := c.responseFIFO[0]
		c.responseFIFO = c.responseFIFO[1:]
		return b
	case 2:
		switch c.index {
		case 0:
			return c.interruptFlag
		case 1:
			return c.interruptEnable
		default:
			return c.interruptFlag
		}
	case 3:
		switch c.index {
		case 0:
			return c.interruptEnable
		case 1:
			return c.interruptFlag
		default:
			return 0
		}
	default:
		return 0xFF
	}
}

func (c *Controller) WriteRegister(offset uint32, width int, value uint32) {
	c.writePort(uint8(offset), uint8(value))
}

func (c *Controller) writePort(port uint8, value uint8) {
	switch port {
	case 0:
		c.index = value & 3
	case 1:
		switch c.index {
		case 0:
			c.execute(value)
		}
	case 2:
		switch c.index {
		case 0:
			c.paramFIFO = append(c.paramFIFO, value)
		case 1:
			c.interruptEnable = value
		}
	case 3:
		switch c.index {
		case 1:
			c.interruptFlag &^= value & 0x1F
			if value&0x40 != 0 {
				c.paramFIFO = c.paramFIFO[:0]
			}
		}
	}
}

// DMARead pulls the next 32-bit word out of the data FIFO for DMA
// channel 3 (CD-ROM), synthesized little-endian from four bytes.
func (c *Controller) DMARead() uint32 {
	var word uint32
	for i := 0; i < 4; i++ {
		var b byte
		if len(c.dataFIFO) > 0 {
			b = c.dataFIFO[0]
			c.dataFIFO = c.dataFIFO[1:]
		}
		word |= uint32(b) << (8 * i)
	}
	return word
}

// DMAWrite is a no-op: the CD-ROM channel is device→RAM only.
func (c *Controller) DMAWrite(uint32) {}

// execute begins a command by planting the ACK event; parameter counts
// are not validated. Unknown commands are reported when the ACK fires
// (OnAckFired logs a warning and delivers INT5) rather than panicking.
func (c *Controller) execute(cmd uint8) {
	if c.state != stateIdle {
		slog.Warn("cdrom: command issued while busy", "cmd", cmd)
	}
	c.pendingCmd = cmd
	c.state = stateAckPending

	delay := int64(5000)
	if cmd == CmdInit {
		delay = 20000
	}
	c.sched.Schedule(c.ackEvent, delay)
}

// OnAckFired is called by the scheduler-event dispatcher when the ACK
// event fires: it delivers INT3 plus the command's first response and,
// for two-stage commands, plants the second-response event.
func (c *Controller) OnAckFired() {
	stat := c.status() &^ (1 << 7)

	switch c.pendingCmd {
	case CmdGetStat, CmdSetloc, CmdMute, CmdDemute, CmdSetmode:
		c.applyParamEffects()
		c.deliver(int3Ack, []byte{stat})
		c.state = stateIdle

	case CmdPause:
		c.readActive = false
		c.deliver(int3Ack, []byte{stat})
		c.scheduleSecond(2000, int2Complete, []byte{stat})

	case CmdInit:
		c.mode = 0
		c.readActive = false
		c.deliver(int3Ack, []byte{stat})
		c.scheduleSecond(70000, int2Complete, []byte{stat})

	case CmdSeekL, CmdSeekP:
		c.deliver(int3Ack, []byte{stat})
		c.scheduleSecond(5000, int2Complete, []byte{stat})

	case CmdGetID:
		c.deliver(int3Ack, []byte{stat})
		if c.disc == nil {
			c.scheduleSecond(20000, int5Error, []byte{0x08, 0x40, 0, 0, 'N', 'o', 0, 0})
		} else {
			c.scheduleSecond(33000, int2Complete, []byte{0x02, 0x00, 0x20, 0x00, 'S', 'C', 'E', 'A'})
		}

	case CmdReadN, CmdReadS:
		c.applyParamEffects()
		c.deliver(int3Ack, []byte{stat})
		c.readActive = true
		c.sched.SchedulePeriodic(c.readEvent, 2000, 2000)

	case CmdReadTOC:
		c.deliver(int3Ack, []byte{stat})
		c.scheduleSecond(500000, int2Complete, []byte{stat})

	default:
		slog.Warn("cdrom: unsupported command", "cmd", c.pendingCmd)
		c.deliver(int5Error, []byte{stat | 1})
		c.state = stateIdle
	}

	c.paramFIFO = c.paramFIFO[:0]
}

func (c *Controller) scheduleSecond(delay int64, intCode int, resp []byte) {
	c.state = stateSecondPending
	c.deferred = append(c.deferred, pendingResponse{intCode: intCode, bytes: resp})
	c.sched.Schedule(c.dlvrEvent, delay)
}

// OnDeliverFired delivers a previously scheduled second-stage response,
// respecting the minimum 1,000-cycle interrupt spacing: if the window
// hasn't elapsed, the delivery reschedules itself.
func (c *Controller) OnDeliverFired() {
	if len(c.deferred) == 0 {
		c.state = stateIdle
		return
	}
	now := c.sched.GlobalTick()
	if now-c.lastInterruptTime < minInterruptSpacing {
		c.sched.Schedule(c.dlvrEvent, int64(minInterruptSpacing-(now-c.lastInterruptTime)))
		return
	}
	resp := c.deferred[0]
	c.deferred = c.deferred[1:]
	c.deliver(resp.intCode, resp.bytes)
	c.state = stateIdle
}

// OnReadFired pulls the next sector from the current position into the
// data FIFO and raises INT1, while continuous reads remain active.
func (c *Controller) OnReadFired() {
	if !c.readActive || c.disc == nil {
		return
	}
	sector, err := c.disc.ReadSector(c.position)
	if err != nil {
		slog.Warn("cdrom: read error", "err", err)
		c.readActive = false
		c.sched.Cancel(c.readEvent)
		return
	}
	payload := sector
	if c.mode&0x20 == 0 {
		// Whole-sector mode reads raw 2352 bytes; "cooked" 2048-byte
		// mode skips the sync/header to the user-data payload.
		if len(sector) >= 12+4+2048 {
			payload = sector[12+4 : 12+4+2048]
		}
	}
	c.dataFIFO = append(c.dataFIFO, payload...)
	c.position = advanceMSF(c.position)
	c.deliver(int1DataReady, []byte{c.status() &^ (1 << 7)})
}

// deliver sets the interrupt-flag register's cause code, pushes the
// response bytes, and raises the CDROM IRQ line if enabled, recording
// the tick so the next delivery can enforce spacing.
func (c *Controller) deliver(intCode int, resp []byte) {
	c.interruptFlag = (c.interruptFlag &^ 0x07) | (uint8(intCode) & 0x07)
	c.responseFIFO = append(c.responseFIFO, resp...)
	c.lastInterruptTime = c.sched.GlobalTick()
	if c.interruptEnable&uint8(intCode) != 0 && c.ic != nil {
		c.ic.Raise(irq.CDROM)
	}
}

// applyParamEffects interprets Setloc/Setmode's parameter bytes; other
// commands in the ACK-only group ignore an empty param FIFO.
func (c *Controller) applyParamEffects() {
	switch c.pendingCmd {
	case CmdSetloc:
		if len(c.paramFIFO) >= 3 {
			c.position = MSF{Minute: c.paramFIFO[0], Second: c.paramFIFO[1], Frame: c.paramFIFO[2]}
		}
	case CmdSetmode:
		if len(c.paramFIFO) >= 1 {
			c.mode = c.paramFIFO[0]
		}
	case CmdReadN, CmdReadS:
		// Setloc already established position; ReadN/ReadS take no
		// parameters of their own.
	}
}

func advanceMSF(pos MSF) MSF {
	pos.Frame++
	if pos.Frame >= 75 {
		pos.Frame = 0
		pos.Second++
		if pos.Second >= 60 {
			pos.Second = 0
			pos.Minute++
		}
	}
	return pos
}

// AckHandle, DeliverHandle, and ReadHandle expose the scheduler handles
// System dispatches RunEvents' fired list against.
func (c *Controller) AckHandle() scheduler.Handle     { return c.ackEvent }
func (c *Controller) DeliverHandle() scheduler.Handle { return c.dlvrEvent }
func (c *Controller) ReadHandle() scheduler.Handle    { return c.readEvent }

// Reset returns the controller to its freshly-powered-on state: status
// reads 0x18 (param-FIFO-empty | param-FIFO-not-full).
func (c *Controller) Reset() {
	disc := c.disc
	*c = Controller{sched: c.sched, ic: c.ic, ackEvent: c.ackEvent, dlvrEvent: c.dlvrEvent, readEvent: c.readEvent}
	c.disc = disc
	if c.status() != 0x18 {
		panic(&perr.CdRomError{Kind: perr.CdRomIoError, Msg: "reset status invariant violated"})
	}
}
