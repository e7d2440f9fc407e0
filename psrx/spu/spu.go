// Package spu implements the PS1 Sound Processing Unit: 512KiB of sound
// RAM, 24 ADPCM voices with ADSR envelopes, a shared noise source,
// stereo mixing to a 44.1kHz output stream, and a DMA-fed transfer FIFO.
package spu

import (
	"github.com/kestrel-dev/go-psrx/psrx/bus"
)

const (
	ramSize = 512 * 1024
	numVoices = 24

	// cpuClockHz is the system clock the SPU's external tick count is
	// expressed in; samples are produced at 1/768th of it (44100Hz).
	cpuClockHz    = 33_868_800
	sampleRateHz  = 44100
)

// Sample is one stereo output frame.
type Sample struct {
	Left, Right int16
}

// Controller is the SPU's register file, voice bank, and RAM.
type Controller struct {
	ram [ramSize]byte

	voices [numVoices]Voice
	noise  *NoiseGenerator

	mainVolLeft, mainVolRight   int16
	reverbVolLeft, reverbVolRight int16
	cdVolLeft, cdVolRight       int16
	extVolLeft, extVolRight     int16

	control uint16
	status  uint16

	transferAddr    uint32 // byte address within ram
	transferControl uint16

	dmaFIFO     []uint16
	cyclesAcc   float64
	samplesPerHostSample float64

	out []Sample
}

// New returns a Controller with silent RAM and all voices disabled.
func New() *Controller {
	c := &Controller{noise: NewNoiseGenerator()}
	c.samplesPerHostSample = float64(cpuClockHz) / float64(sampleRateHz)
	return c
}

// AddressRange claims the SPU voice and control register block.
func (c *Controller) AddressRange() (uint32, uint32) {
	return bus.SPUStart, bus.SPUEnd
}

// ReadRegister reads a 16-bit (or narrower) SPU register. The SPU's
// register file is natively 16-bit throughout; 32-bit accesses read two
// adjacent halfwords.
func (c *Controller) ReadRegister(offset uint32, width int) uint32 {
	if width == 32 {
		lo := c.readHalf(offset)
		hi := c.readHalf(offset + 2)
		return uint32(lo) | uint32(hi)<<16
	}
	return uint32(c.readHalf(offset &^ 1))
}

func (c *Controller) readHalf(offset uint32) uint16 {
	if offset < 0x180 {
		return c.readVoiceRegister(offset)
	}
	switch offset {
	case 0x180:
		return uint16(c.mainVolLeft)
	case 0x182:
		return uint16(c.mainVolRight)
	case 0x184:
		return uint16(c.reverbVolLeft)
	case 0x186:
		return uint16(c.reverbVolRight)
	case 0x1A6:
		return uint16(c.transferAddr / 8)
	case 0x1A8:
		return 0
	case 0x1AA:
		return c.control
	case 0x1AC:
		return c.transferControl
	case 0x1AE:
		return c.status
	case 0x1B0:
		return uint16(c.cdVolLeft)
	case 0x1B2:
		return uint16(c.cdVolRight)
	case 0x1B4:
		return uint16(c.extVolLeft)
	case 0x1B6:
		return uint16(c.extVolRight)
	case 0x1B8:
		return uint16(c.mainVolLeft)
	case 0x1BA:
		return uint16(c.mainVolRight)
	default:
		return 0
	}
}

func (c *Controller) readVoiceRegister(offset uint32) uint16 {
	idx := offset / 16
	reg := offset % 16
	if idx >= numVoices {
		return 0
	}
	v := &c.voices[idx]
	switch reg {
	case 0:
		return v.VolumeLeft
	case 2:
		return v.VolumeRight
	case 4:
		return v.SampleRate
	case 6:
		return uint16(v.StartAddress / 8)
	case 8:
		return v.ADSR.Word1()
	case 10:
		return v.ADSR.Word2()
	case 12:
		return uint16(v.ADSR.Level)
	case 14:
		return uint16(v.RepeatAddress / 8)
	default:
		return 0
	}
}

// WriteRegister writes an SPU register.
func (c *Controller) WriteRegister(offset uint32, width int, value uint32) {
	if width == 32 {
		c.writeHalf(offset, uint16(value))
		c.writeHalf(offset+2, uint16(value>>16))
		return
	}
	c.writeHalf(offset&^1, uint16(value))
}

func (c *Controller) writeHalf(offset uint32, value uint16) {
	if offset < 0x180 {
		c.writeVoiceRegister(offset, value)
		return
	}
	switch offset {
	case 0x180:
		c.mainVolLeft = int16(value)
	case 0x182:
		c.mainVolRight = int16(value)
	case 0x184:
		c.reverbVolLeft = int16(value)
	case 0x186:
		c.reverbVolRight = int16(value)
	case 0x188:
		c.keyOnMask(uint32(value), 0)
	case 0x18A:
		c.keyOnMask(uint32(value)<<16, 16)
	case 0x18C:
		c.keyOffMask(uint32(value), 0)
	case 0x18E:
		c.keyOffMask(uint32(value)<<16, 16)
	case 0x1A6:
		c.transferAddr = (uint32(value) * 8) & 0x7FFFE
	case 0x1A8:
		c.writeTransferFIFO(value)
	case 0x1AA:
		c.control = value
		c.noise.SetFrequency(uint8((value>>10)&0xF), uint8((value>>8)&0x3))
	case 0x1AC:
		c.transferControl = value
	default:
	}
}

func (c *Controller) writeVoiceRegister(offset uint32, value uint16) {
	idx := offset / 16
	reg := offset % 16
	if idx >= numVoices {
		return
	}
	v := &c.voices[idx]
	switch reg {
	case 0:
		v.VolumeLeft = value
	case 2:
		v.VolumeRight = value
	case 4:
		v.SampleRate = value
	case 6:
		v.StartAddress = uint32(value) * 8
	case 8:
		v.ADSR.SetWord1(value)
	case 10:
		v.ADSR.SetWord2(value)
	case 12:
		v.ADSR.Level = int16(value)
	case 14:
		v.RepeatAddress = uint32(value) * 8
	}
}

// keyOnMask starts every voice whose bit is set in mask (bit N ==
// voice N, offset by base for the high key-on register).
func (c *Controller) keyOnMask(mask uint32, base int) {
	for i := 0; i < numVoices; i++ {
		if mask&(1<<uint(i)) != 0 {
			c.voices[i].KeyOn()
		}
	}
}

func (c *Controller) keyOffMask(mask uint32, base int) {
	for i := 0; i < numVoices; i++ {
		if mask&(1<<uint(i)) != 0 {
			c.voices[i].KeyOff()
		}
	}
}

// KeyOnVoices starts every voice named in a 24-bit mask (bit N selects
// voice N), as written across the 0x1D88/0x1D8A register pair.
func (c *Controller) KeyOnVoices(mask uint32) {
	c.keyOnMask(mask, 0)
}

// KeyOffVoices releases every voice named in a 24-bit mask.
func (c *Controller) KeyOffVoices(mask uint32) {
	c.keyOffMask(mask, 0)
}

// ReadRAM reads a single byte from SPU RAM, wrapping at its 512KiB size.
func (c *Controller) ReadRAM(addr uint32) byte {
	return c.ram[addr&(ramSize-1)]
}

// WriteRAM writes a single byte to SPU RAM, wrapping at its 512KiB size.
func (c *Controller) WriteRAM(addr uint32, value byte) {
	c.ram[addr&(ramSize-1)] = value
}

// writeTransferFIFO implements the manual-write data port (0x1F801DA8):
// it writes directly to RAM at the current transfer address and
// advances it by 2, bypassing the DMA engine's batching FIFO.
func (c *Controller) writeTransferFIFO(value uint16) {
	addr := c.transferAddr & (ramSize - 1)
	c.ram[addr] = byte(value)
	c.ram[addr+1] = byte(value >> 8)
	c.transferAddr = (c.transferAddr + 2) & 0x7FFFE
}

// DMARead implements dma.Port32 for SPU DMA channel reads: it returns a
// 32-bit word built from two RAM halfwords at the transfer address and
// advances the address by 4.
func (c *Controller) DMARead() uint32 {
	lo := c.ramWord(c.transferAddr)
	hi := c.ramWord(c.transferAddr + 2)
	c.transferAddr = (c.transferAddr + 4) & 0x7FFFE
	return uint32(lo) | uint32(hi)<<16
}

// DMAWrite implements dma.Port32 for SPU DMA channel writes: it queues
// the word's two halfwords into the transfer FIFO, auto-flushing to RAM
// every 8 words (16 halfwords), matching the hardware's batched transfer
// behavior.
func (c *Controller) DMAWrite(word uint32) {
	c.dmaFIFO = append(c.dmaFIFO, uint16(word), uint16(word>>16))
	if len(c.dmaFIFO) >= 16 {
		c.flushDMAFIFO()
	}
}

func (c *Controller) flushDMAFIFO() {
	for _, half := range c.dmaFIFO {
		addr := c.transferAddr & (ramSize - 1)
		c.ram[addr] = byte(half)
		c.ram[addr+1] = byte(half >> 8)
		c.transferAddr = (c.transferAddr + 2) & 0x7FFFE
	}
	c.dmaFIFO = c.dmaFIFO[:0]
}

func (c *Controller) ramWord(addr uint32) uint16 {
	a := addr & (ramSize - 1)
	return uint16(c.ram[a]) | uint16(c.ram[a+1])<<8
}

// enabled reports whether SPUCNT's master enable bit is set.
func (c *Controller) enabled() bool {
	return c.control&0x8000 != 0
}

// Tick advances the SPU by `cycles` system-clock cycles, rendering and
// mixing output samples as the accumulated cycle count crosses each
// 1/44100s boundary.
func (c *Controller) Tick(cycles int) {
	if !c.enabled() {
		c.cyclesAcc = 0
		return
	}
	c.cyclesAcc += float64(cycles)
	for c.cyclesAcc >= c.samplesPerHostSample {
		c.cyclesAcc -= c.samplesPerHostSample
		c.out = append(c.out, c.renderSample())
	}
}

func (c *Controller) renderSample() Sample {
	c.noise.Tick()

	var left, right int32
	for i := range c.voices {
		l, r := c.voices[i].RenderSample(c.ram[:], c.noise)
		left += int32(l)
		right += int32(r)
	}
	return Sample{Left: clamp16(left), Right: clamp16(right)}
}

// DrainSamples returns and clears the samples produced since the last
// call, for consumption by an audio sink or test.
func (c *Controller) DrainSamples() []Sample {
	out := c.out
	c.out = nil
	return out
}

// Reset restores the SPU to its power-on state: silent RAM, disabled
// voices, and a zeroed register file.
func (c *Controller) Reset() {
	noise := NewNoiseGenerator()
	*c = Controller{noise: noise, samplesPerHostSample: c.samplesPerHostSample}
}
