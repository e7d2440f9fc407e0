// Package dma implements the PS1 DMA engine: seven channels sharing a
// global priority/enable register (DPCR) and interrupt register (DICR),
// driving immediate, block, and linked-list transfers between RAM and a
// device's 32-bit port.
package dma

import (
	"log/slog"

	"github.com/kestrel-dev/go-psrx/psrx/bus"
	"github.com/kestrel-dev/go-psrx/psrx/irq"
)

// Channel indices.
const (
	MDECIn = iota
	MDECOut
	GPU
	CDROM
	SPU
	PIO
	OTC
	numChannels
)

// Port32 is a memory-mapped peripheral's 32-bit DMA port: GP0/GPUREAD for
// the GPU, the CD-ROM data FIFO synthesized as a u32, the SPU FIFO, etc.
// Channels with no attached device (MDEC, PIO in this core) drop
// RAM-to-device words and write zero words on device-to-RAM transfers.
type Port32 interface {
	DMARead() uint32
	DMAWrite(word uint32)
}

// LinkedListPort is implemented by devices (the GPU) that consume a
// linked-list DMA payload one GP0 word at a time.
type LinkedListPort interface {
	Port32
	WriteGP0(word uint32)
}

type channel struct {
	madr, bcr, chcr uint32
	port            Port32
}

// Controller owns all seven DMA channels plus DPCR/DICR and is
// registered on the bus at DMABase..DICR+3.
type Controller struct {
	bus.RegisterWidener

	channels [numChannels]channel
	dpcr     uint32
	dicr     uint32

	ram *[]byte
	irq *irq.IRQController
}

// New returns a Controller wired to the given RAM backing store and
// interrupt controller, with DPCR at its documented reset default.
func New(ram *[]byte, ic *irq.IRQController) *Controller {
	c := &Controller{ram: ram, irq: ic}
	c.dpcr = 0x0765_4321
	return c
}

// AttachPort wires a channel's device-facing 32-bit port (with nil, the
// channel drops outgoing words and writes zeros to RAM for incoming ones).
func (c *Controller) AttachPort(ch int, port Port32) {
	c.channels[ch].port = port
}

// AddressRange claims the DMA channel register block plus DPCR/DICR.
func (c *Controller) AddressRange() (uint32, uint32) {
	return bus.DMABase, bus.DICR + 3
}

func (c *Controller) ReadRegister(offset uint32, width int) uint32 {
	if offset >= bus.DPCR-bus.DMABase && offset < bus.DICR-bus.DMABase {
		return bus.WidenRead(c.dpcr, offset, width)
	}
	if offset >= bus.DICR-bus.DMABase {
		return bus.WidenRead(c.dicr, offset-(bus.DICR-bus.DMABase), width)
	}
	ch := int(offset / 0x10)
	reg := offset % 0x10
	if ch >= numChannels {
		return 0
	}
	switch reg & ^uint32(3) {
	case 0x0:
		return bus.WidenRead(c.channels[ch].madr, reg, width)
	case 0x4:
		return bus.WidenRead(c.channels[ch].bcr, reg, width)
	case 0x8:
		return bus.WidenRead(c.channels[ch].chcr, reg, width)
	default:
		return 0
	}
}

func (c *Controller) WriteRegister(offset uint32, width int, value uint32) {
	if offset >= bus.DPCR-bus.DMABase && offset < bus.DICR-bus.DMABase {
		c.dpcr = bus.WidenWrite(c.dpcr, offset, width, value)
		return
	}
	if offset >= bus.DICR-bus.DMABase {
		rel := offset - (bus.DICR - bus.DMABase)
		word := bus.WidenWrite(c.dicr, rel, width, value)
		// Bits 24-30 are write-1-to-clear flag bits; bits below 24
		// (enables) and bit 31 (master flag) are plain read/write.
		ackMask := uint32(0x7F00_0000)
		cleared := c.dicr &^ (word & ackMask)
		c.dicr = (word &^ ackMask) | (cleared & ackMask)
		return
	}
	ch := int(offset / 0x10)
	reg := offset % 0x10
	if ch >= numChannels {
		return
	}
	switch reg & ^uint32(3) {
	case 0x0:
		c.channels[ch].madr = bus.WidenWrite(c.channels[ch].madr, reg, width, value) & 0x00FF_FFFF
	case 0x4:
		c.channels[ch].bcr = bus.WidenWrite(c.channels[ch].bcr, reg, width, value)
	case 0x8:
		c.channels[ch].chcr = bus.WidenWrite(c.channels[ch].chcr, reg, width, value)
	}
}

// Reset clears every channel plus DPCR/DICR back to power-on defaults.
func (c *Controller) Reset() {
	for i := range c.channels {
		c.channels[i] = channel{port: c.channels[i].port}
	}
	c.dpcr = 0x0765_4321
	c.dicr = 0
}

const chcrBusy = 1 << 24
const chcrTrigger = 1 << 28
const dicrMasterEnable = 1 << 23
const dicrMasterFlag = 1 << 31
const dicrChannelEnableBase = 1 << 16
const dicrChannelFlagBase = 1 << 24

// Tick runs one scheduler-driven pass over every channel, executing any
// channel that is both enabled in DPCR and active+triggered in CHCR, in
// channel-priority order (0 highest).
func (c *Controller) Tick() {
	for ch := 0; ch < numChannels; ch++ {
		if !c.channelEnabled(ch) {
			continue
		}
		cc := &c.channels[ch]
		if cc.chcr&chcrBusy == 0 {
			continue
		}
		// Block/immediate mode requires the manual-trigger bit; the
		// linked-list mode self-sustains once started.
		syncMode := (cc.chcr >> 9) & 3
		if syncMode != 2 && cc.chcr&chcrTrigger == 0 {
			continue
		}
		c.run(ch)
	}
}

func (c *Controller) channelEnabled(ch int) bool {
	return c.dpcr&(1<<uint(4*ch+3)) != 0
}

func (c *Controller) run(ch int) {
	cc := &c.channels[ch]
	syncMode := (cc.chcr >> 9) & 3

	switch {
	case ch == OTC:
		c.runOTC(cc)
	case syncMode == 2:
		c.runLinkedList(ch, cc)
	default:
		c.runBlock(ch, cc)
	}

	cc.chcr &^= chcrBusy
	cc.chcr &^= chcrTrigger
	c.complete(ch)
}

// runOTC walks backward from MADR for BCR words, each holding the
// address of the word before it, terminating the chain with
// 0x00FF_FFFF.
func (c *Controller) runOTC(cc *channel) {
	count := cc.bcr
	if count == 0 {
		count = 0x1_0000
	}
	addr := cc.madr & 0x1F_FFFC
	ram := *c.ram
	for i := uint32(0); i < count; i++ {
		var word uint32
		if i == count-1 {
			word = 0x00FF_FFFF
		} else {
			word = (addr - 4) & 0x1F_FFFC
		}
		writeWord(ram, addr, word)
		addr -= 4
	}
}

func (c *Controller) runBlock(ch int, cc *channel) {
	blockSize := cc.bcr & 0xFFFF
	blockCount := (cc.bcr >> 16) & 0xFFFF
	if blockSize == 0 {
		blockSize = 0x1_0000
	}
	if blockCount == 0 {
		blockCount = 1
	}

	toDevice := cc.chcr&1 != 0
	step := int32(4)
	if cc.chcr&2 != 0 {
		step = -4
	}

	addr := cc.madr & 0x1F_FFFC
	ram := *c.ram
	total := blockSize * blockCount
	for i := uint32(0); i < total; i++ {
		if toDevice {
			if cc.port != nil {
				cc.port.DMAWrite(readWord(ram, addr))
			}
		} else {
			var word uint32
			if cc.port != nil {
				word = cc.port.DMARead()
			}
			writeWord(ram, addr, word)
		}
		addr = uint32(int64(addr) + int64(step))
	}
	cc.madr = addr & 0x1F_FFFC
}

// runLinkedList feeds GP0 with linked-list payload words until the
// end-of-chain marker (bit 23 of the header) is seen.
func (c *Controller) runLinkedList(ch int, cc *channel) {
	ll, _ := cc.port.(LinkedListPort)
	ram := *c.ram
	addr := cc.madr & 0x1F_FFFC

	for {
		header := readWord(ram, addr)
		count := header >> 24
		next := header & 0x00FF_FFFC

		payloadAddr := addr + 4
		for i := uint32(0); i < count; i++ {
			word := readWord(ram, payloadAddr)
			if ll != nil {
				ll.WriteGP0(word)
			}
			payloadAddr += 4
		}

		if header&0x0080_0000 != 0 {
			break
		}
		addr = next & 0x1F_FFFC
	}
	cc.madr = 0x00FF_FFFF
}

// complete sets the channel's DICR flag and raises the DMA interrupt
// line, respecting DICR's per-channel enable and master-enable bits
// (run has already cleared the channel's busy and trigger bits).
func (c *Controller) complete(ch int) {
	c.dicr |= dicrChannelFlagBase << uint(ch)
	enabled := c.dicr&(dicrChannelEnableBase<<uint(ch)) != 0
	master := c.dicr&dicrMasterEnable != 0
	if master && enabled {
		c.dicr |= dicrMasterFlag
		if c.irq != nil {
			c.irq.Raise(irq.DMA)
			slog.Debug("dma: channel complete, irq raised", "channel", ch)
		}
	}
}

func readWord(ram []byte, addr uint32) uint32 {
	addr &= uint32(len(ram) - 1)
	return uint32(ram[addr]) | uint32(ram[addr+1])<<8 | uint32(ram[addr+2])<<16 | uint32(ram[addr+3])<<24
}

func writeWord(ram []byte, addr uint32, value uint32) {
	addr &= uint32(len(ram) - 1)
	ram[addr] = byte(value)
	ram[addr+1] = byte(value >> 8)
	ram[addr+2] = byte(value >> 16)
	ram[addr+3] = byte(value >> 24)
}
