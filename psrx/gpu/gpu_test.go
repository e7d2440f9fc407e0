package gpu

import (
	"testing"

	"github.com/kestrel-dev/go-psrx/psrx/irq"
	"github.com/kestrel-dev/go-psrx/psrx/scheduler"
)

func newTestGPU() *Controller {
	sched := scheduler.New()
	ic := irq.New()
	return New(sched, ic)
}

func TestVRAMRoundTripWithWraparound(t *testing.T) {
	v := NewVRAM()
	v.SetPixel(1030, 0, 0x1234) // wraps to x=6 (1030 % 1024)
	if got := v.GetPixel(6, 0); got != 0x1234 {
		t.Fatalf("wrapped pixel = %#x, want 0x1234", got)
	}
}

func TestFillRectWritesSolidColor(t *testing.T) {
	c := newTestGPU()
	c.WriteGP0(0x02000000 | 0x00FF0000) // fill rect, color word (B=0xFF)
	c.WriteGP0(0x00000010)              // x=16,y=0
	c.WriteGP0(0x00040004)              // w=4,h=4

	want := packBGR555(Color{B: 0xFF}, false)
	for y := 0; y < 4; y++ {
		for x := 16; x < 20; x++ {
			if got := c.vram.GetPixel(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %#x, want %#x", x, y, got, want)
			}
		}
	}
}

func TestFlatOpaqueTriangleFillsInteriorPixel(t *testing.T) {
	c := newTestGPU()
	c.area = drawArea{left: 0, top: 0, right: 200, bottom: 200}

	c.WriteGP0(0x20000000 | 0x0000FF00) // flat triangle, green
	c.WriteGP0(uint32(uint16(10)) | uint32(uint16(10))<<16)
	c.WriteGP0(uint32(uint16(50)) | uint32(uint16(10))<<16)
	c.WriteGP0(uint32(uint16(30)) | uint32(uint16(50))<<16)

	want := packBGR555(Color{G: 0xFF}, false)
	if got := c.vram.GetPixel(30, 20); got != want {
		t.Fatalf("interior pixel = %#x, want %#x", got, want)
	}
}

func TestQuadSplitsIntoTwoTriangles(t *testing.T) {
	c := newTestGPU()
	c.area = drawArea{left: 0, top: 0, right: 200, bottom: 200}

	c.WriteGP0(0x28000000 | 0x000000FF) // flat quad, red
	c.WriteGP0(uint32(uint16(0)) | uint32(uint16(0))<<16)
	c.WriteGP0(uint32(uint16(40)) | uint32(uint16(0))<<16)
	c.WriteGP0(uint32(uint16(0)) | uint32(uint16(40))<<16)
	c.WriteGP0(uint32(uint16(40)) | uint32(uint16(40))<<16)

	want := packBGR555(Color{R: 0xFF}, false)
	if got := c.vram.GetPixel(20, 20); got != want {
		t.Fatalf("quad center = %#x, want %#x", got, want)
	}
}

func TestCPUToVRAMTransferThenReadBack(t *testing.T) {
	c := newTestGPU()
	c.WriteGP0(0xA0000000)
	c.WriteGP0(uint32(uint16(5)) | uint32(uint16(5))<<16) // x=5,y=5
	c.WriteGP0(uint32(uint16(2)) | uint32(uint16(1))<<16) // w=2,h=1
	c.WriteGP0(uint32(0x1111) | uint32(0x2222)<<16)       // 2 pixels packed

	if got := c.vram.GetPixel(5, 5); got != 0x1111 {
		t.Fatalf("pixel0 = %#x, want 0x1111", got)
	}
	if got := c.vram.GetPixel(6, 5); got != 0x2222 {
		t.Fatalf("pixel1 = %#x, want 0x2222", got)
	}

	c.WriteGP0(0xC0000000)
	c.WriteGP0(uint32(uint16(5)) | uint32(uint16(5))<<16)
	c.WriteGP0(uint32(uint16(2)) | uint32(uint16(1))<<16)

	word := c.DMARead()
	if word != uint32(0x1111)|uint32(0x2222)<<16 {
		t.Fatalf("read-back word = %#x", word)
	}
}

func TestDrawModeCommandUpdatesTexturePage(t *testing.T) {
	c := newTestGPU()
	c.WriteGP0(0xE1000000 | 0x3) // texPageX field = 3 -> base 192
	if c.mode.texPageX != 192 {
		t.Fatalf("texPageX = %d, want 192", c.mode.texPageX)
	}
}

func TestDrawAreaClipRejectsOutsidePixels(t *testing.T) {
	c := newTestGPU()
	c.area = drawArea{left: 0, top: 0, right: 9, bottom: 9}
	c.plot(50, 50, Color{R: 0xFF}, false)
	if got := c.vram.GetPixel(50, 50); got != 0 {
		t.Fatalf("pixel outside draw area should not be written, got %#x", got)
	}
}

func TestMaskCheckBeforeDrawSkipsMaskedPixels(t *testing.T) {
	c := newTestGPU()
	c.area = drawArea{left: 0, top: 0, right: 9, bottom: 9}
	c.mask.checkBeforeDraw = true
	c.vram.SetPixel(3, 3, 0x8000)
	c.plot(3, 3, Color{R: 0xFF}, false)
	if got := c.vram.GetPixel(3, 3); got != 0x8000 {
		t.Fatalf("masked pixel should be left untouched, got %#x", got)
	}
}

func TestVBlankEventRaisesInterruptAndSetsStatusBit(t *testing.T) {
	c := newTestGPU()
	for i := 0; i < cyclesPerFrame+1; i++ {
		c.sched.AddPendingTicks(1)
		for _, h := range c.sched.RunEvents() {
			switch h {
			case c.vblankEvent:
				c.OnVBlankFired()
			case c.hblankEvent:
				c.OnHBlankFired()
			}
		}
	}
	if !c.inVBlank {
		t.Fatal("expected inVBlank after one frame's worth of cycles")
	}
	if c.gpustat()&(1<<31) == 0 {
		t.Fatal("expected GPUSTAT bit 31 set during VBlank")
	}
}

func TestGPUSTATDisplayEnableBitIsInverted(t *testing.T) {
	c := newTestGPU()
	c.writeGP1(0x03000000 | 0x1) // disable display
	if c.gpustat()&(1<<23) == 0 {
		t.Fatal("expected GPUSTAT bit 23 set when display disabled")
	}
	c.writeGP1(0x03000000 | 0x0) // enable display
	if c.gpustat()&(1<<23) != 0 {
		t.Fatal("expected GPUSTAT bit 23 clear when display enabled")
	}
}

func TestResetClearsVRAMAndState(t *testing.T) {
	c := newTestGPU()
	c.vram.SetPixel(0, 0, 0xFFFF)
	c.mode.texPageX = 64
	c.writeGP1(0x00000000)
	if c.vram.GetPixel(0, 0) != 0 {
		t.Fatal("expected VRAM cleared after GP1 reset")
	}
	if c.mode.texPageX != 0 {
		t.Fatal("expected draw mode cleared after GP1 reset")
	}
}
