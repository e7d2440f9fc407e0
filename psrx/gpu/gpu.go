// Package gpu implements the PS1 Graphics Processing Unit: the GP0/GP1
// command pipeline, E1-E6 drawing-mode state, a 1024x512 VRAM surface,
// VBlank/HBlank scheduler events, GPUSTAT encoding, and primitive
// rasterizer entry points (polygons, lines, rectangles, CPU<->VRAM
// transfers).
package gpu

import (
	"github.com/kestrel-dev/go-psrx/psrx/bus"
	"github.com/kestrel-dev/go-psrx/psrx/irq"
	"github.com/kestrel-dev/go-psrx/psrx/scheduler"
)

const (
	cyclesPerScanline = 2146
	scanlinesPerFrame = 263
	cyclesPerFrame    = 564480
	vblankStartLine   = 240

	// CyclesPerFrame is the CPU-clock length of one NTSC video frame,
	// exposed so a driver can size its run-to-next-frame budget.
	CyclesPerFrame = cyclesPerFrame
)

// transferState tracks an in-progress CPU<->VRAM pixel pump: while
// active, GP0 words (or GPUREAD reads) feed/drain pixels instead of
// being decoded as new commands.
type transferState struct {
	x, y, width, height int32
	cur                 int32 // pixels transferred so far
	toVRAM              bool
}

// Controller is the GPU's full register and command-processing state.
type Controller struct {
	vram *VRAM

	mode      drawMode
	texWindow textureWindow
	area      drawArea
	offsetX   int32
	offsetY   int32
	mask      maskSettings

	displayEnabled bool
	dmaDirection   uint8
	displayAreaX   uint32
	displayAreaY   uint32

	cmdBuffer []uint32
	cmdOpcode uint8
	cmdNeeded int

	inPolyline      bool
	polylineGouraud bool
	polylineVerts   []vertex
	pendingColor    Color
	hasPendingColor bool

	transfer    *transferState
	readQueue   []uint16

	sched        *scheduler.Scheduler
	ic           *irq.IRQController
	vblankEvent  scheduler.Handle
	hblankEvent  scheduler.Handle
	scanline     int
	inVBlank     bool

	onHBlank func()
}

// New returns a Controller with a cleared VRAM surface and its
// VBlank/HBlank scheduler events registered and scheduled as periodic
// events.
func New(sched *scheduler.Scheduler, ic *irq.IRQController) *Controller {
	c := &Controller{vram: NewVRAM(), sched: sched, ic: ic}
	c.vblankEvent = sched.RegisterEvent("gpu.vblank")
	c.hblankEvent = sched.RegisterEvent("gpu.hblank")
	sched.SchedulePeriodic(c.vblankEvent, cyclesPerFrame, cyclesPerFrame)
	sched.SchedulePeriodic(c.hblankEvent, cyclesPerScanline, cyclesPerScanline)
	return c
}

// VRAM exposes the frame buffer for a debug viewer to blit.
func (c *Controller) VRAM() *VRAM { return c.vram }

// VBlankHandle and HBlankHandle expose the scheduler handles a driver
// matches against RunEvents' fired list to route callbacks.
func (c *Controller) VBlankHandle() scheduler.Handle { return c.vblankEvent }
func (c *Controller) HBlankHandle() scheduler.Handle { return c.hblankEvent }

// DisplayArea returns the top-left corner, in VRAM pixels, GP1(05h)
// last set as the start of the visible framebuffer region.
func (c *Controller) DisplayArea() (x, y uint32) {
	return c.displayAreaX, c.displayAreaY
}

// SetHBlankCallback installs a hook invoked on every HBlank event (the
// timer module uses this to drive a channel configured for HBlank
// clocking).
func (c *Controller) SetHBlankCallback(fn func()) {
	c.onHBlank = fn
}

// OnVBlankFired is the scheduler callback for the VBlank event: it
// raises the interrupt-controller's VBlank line and flips the status
// flag.
func (c *Controller) OnVBlankFired() {
	c.inVBlank = true
	c.scanline = vblankStartLine
	c.ic.Raise(irq.VBlank)
}

// OnHBlankFired is the scheduler callback for the HBlank event: it
// advances the scanline counter, clears the VBlank flag once the new
// frame's active scanlines begin, and drives any attached HBlank-clocked
// timer channel.
func (c *Controller) OnHBlankFired() {
	c.scanline++
	if c.scanline >= scanlinesPerFrame {
		c.scanline = 0
	}
	if c.scanline < vblankStartLine {
		c.inVBlank = false
	}
	if c.onHBlank != nil {
		c.onHBlank()
	}
}

// AddressRange claims the GP0/GPUREAD and GP1/GPUSTAT register pair.
func (c *Controller) AddressRange() (uint32, uint32) {
	return bus.GPUREAD, bus.GPUSTAT + 3
}

func (c *Controller) ReadRegister(offset uint32, width int) uint32 {
	switch offset &^ 3 {
	case 0:
		return bus.WidenRead(c.readGPUREAD(), offset, width)
	default:
		return bus.WidenRead(c.gpustat(), offset, width)
	}
}

func (c *Controller) WriteRegister(offset uint32, width int, value uint32) {
	word := bus.WidenWrite(0, offset&3, width, value)
	switch offset &^ 3 {
	case 0:
		c.WriteGP0(word)
	default:
		c.writeGP1(word)
	}
}

func (c *Controller) readGPUREAD() uint32 {
	if len(c.readQueue) == 0 {
		return 0
	}
	lo := c.readQueue[0]
	var hi uint16
	if len(c.readQueue) > 1 {
		hi = c.readQueue[1]
		c.readQueue = c.readQueue[2:]
	} else {
		c.readQueue = c.readQueue[1:]
	}
	return uint32(lo) | uint32(hi)<<16
}

// gpustat encodes the GPU's current mode into the 32-bit status word
// software polls before issuing drawing commands or DMA transfers.
func (c *Controller) gpustat() uint32 {
	var s uint32
	s |= uint32(c.mode.texPageX/64) & 0xF
	s |= uint32(c.mode.texPageY/256) << 4
	s |= uint32(c.mode.semiTransparency) << 5
	s |= uint32(c.mode.textureDepth) << 7
	if c.mode.dithering {
		s |= 1 << 9
	}
	if c.mode.drawToDisplay {
		s |= 1 << 10
	}
	if c.mask.setWhileDrawing {
		s |= 1 << 11
	}
	if c.mask.checkBeforeDraw {
		s |= 1 << 12
	}
	s |= 1 << 13 // interlace field, always reporting odd
	if c.mode.textureDisabled {
		s |= 1 << 15
	}
	if !c.displayEnabled {
		s |= 1 << 23
	}
	s |= 1 << 26 // ready to receive GP0 command
	s |= 1 << 27 // ready to send VRAM->CPU
	s |= 1 << 28 // ready to receive DMA block
	s |= uint32(c.dmaDirection) << 29
	if c.inVBlank {
		s |= 1 << 31
	}
	return s
}

// Reset restores the GPU to its power-on state: cleared VRAM, default
// drawing-mode state, and a fresh command pipeline.
func (c *Controller) Reset() {
	c.vram.Clear()
	c.mode = drawMode{}
	c.texWindow = textureWindow{}
	c.area = drawArea{}
	c.offsetX, c.offsetY = 0, 0
	c.mask = maskSettings{}
	c.displayEnabled = false
	c.cmdBuffer = nil
	c.cmdOpcode = 0
	c.cmdNeeded = 0
	c.inPolyline = false
	c.polylineVerts = nil
	c.transfer = nil
	c.readQueue = nil
	c.scanline = 0
	c.inVBlank = false
}
