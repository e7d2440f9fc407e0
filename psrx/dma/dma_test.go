package dma

import (
	"testing"

	"github.com/kestrel-dev/go-psrx/psrx/irq"
)

func newTestController(ramSize int) (*Controller, *[]byte, *irq.IRQController) {
	ram := make([]byte, ramSize)
	ic := irq.New()
	c := New(&ram, ic)
	return c, &ram, ic
}

// TestOTCChannelBuildsLinkedListTerminator exercises an OTC clear:
// MADR=0x100, BCR=16, CHCR=0x11000002 walking backward with a
// terminator at the final (earliest) word.
func TestOTCChannelBuildsLinkedListTerminator(t *testing.T) {
	c, ramPtr, ic := newTestController(2 * 1024 * 1024)
	ic.WriteRegister(4, 32, 1<<uint(irq.DMA))
	c.dpcr |= 1 << uint(4*OTC+3)
	const base = OTC * 0x10
	c.WriteRegister(base+0x0, 32, 0x100)
	c.WriteRegister(base+0x4, 32, 16)
	c.WriteRegister(base+0x8, 32, 0x1100_0002)

	c.Tick()

	ram := *ramPtr
	got100 := readWord(ram, 0x100)
	gotC4 := readWord(ram, 0xC4)
	if got100 != 0x0000_00FC {
		t.Fatalf("RAM[0x100] = %#X, want 0xFC", got100)
	}
	if gotC4 != 0x00FF_FFFF {
		t.Fatalf("RAM[0xC4] = %#X, want 0x00FFFFFF", gotC4)
	}

	chcr := c.ReadRegister(base+0x8, 32)
	if chcr&chcrBusy != 0 {
		t.Fatal("expected CHCR busy bit cleared after completion")
	}
	if c.dicr&(dicrChannelFlagBase<<uint(OTC)) == 0 {
		t.Fatal("expected DICR channel-6 flag set")
	}
}

type fakePort struct {
	reads  []uint32
	writes []uint32
}

func (p *fakePort) DMARead() uint32 {
	if len(p.reads) == 0 {
		return 0
	}
	v := p.reads[0]
	p.reads = p.reads[1:]
	return v
}

func (p *fakePort) DMAWrite(word uint32) {
	p.writes = append(p.writes, word)
}

func (p *fakePort) WriteGP0(word uint32) {
	p.writes = append(p.writes, word)
}

func TestBlockTransferDeviceToRAM(t *testing.T) {
	c, ramPtr, _ := newTestController(2 * 1024 * 1024)
	port := &fakePort{reads: []uint32{0x11111111, 0x22222222}}
	c.AttachPort(GPU, port)
	c.dpcr |= 1 << uint(4*GPU+3)

	const base = GPU * 0x10
	c.WriteRegister(base+0x0, 32, 0x200)
	c.WriteRegister(base+0x4, 32, (1<<16)|2) // block count=1, block size=2
	c.WriteRegister(base+0x8, 32, 0x1100_0200) // sync=1 (block), direction device->RAM

	c.Tick()

	ram := *ramPtr
	if readWord(ram, 0x200) != 0x11111111 || readWord(ram, 0x204) != 0x22222222 {
		t.Fatalf("unexpected RAM contents: %#X %#X", readWord(ram, 0x200), readWord(ram, 0x204))
	}
}

func TestLinkedListStopsAtEndMarker(t *testing.T) {
	c, ramPtr, _ := newTestController(2 * 1024 * 1024)
	port := &fakePort{}
	c.AttachPort(GPU, port)
	c.dpcr |= 1 << uint(4*GPU+3)

	ram := *ramPtr
	// Header at 0x300: count=2, next=0x00FFFFFF end marker not yet set
	// via next pointer -- instead set the end-marker bit directly.
	writeWord(ram, 0x300, (2<<24)|0x0080_0000)
	writeWord(ram, 0x304, 0xAAAA_AAAA)
	writeWord(ram, 0x308, 0xBBBB_BBBB)

	const base = GPU * 0x10
	c.WriteRegister(base+0x0, 32, 0x300)
	c.WriteRegister(base+0x4, 32, 0)
	c.WriteRegister(base+0x8, 32, 0x0100_0402) // sync mode = 2 (linked list)

	c.Tick()

	if len(port.writes) != 2 || port.writes[0] != 0xAAAA_AAAA || port.writes[1] != 0xBBBB_BBBB {
		t.Fatalf("unexpected GP0 stream: %v", port.writes)
	}
}

func TestChannelRequiresDPCREnable(t *testing.T) {
	c, _, _ := newTestController(2 * 1024 * 1024)
	c.dpcr = 0 // disable every channel
	port := &fakePort{reads: []uint32{0xDEADBEEF}}
	c.AttachPort(GPU, port)

	const base = GPU * 0x10
	c.WriteRegister(base+0x0, 32, 0x200)
	c.WriteRegister(base+0x4, 32, 1)
	c.WriteRegister(base+0x8, 32, 0x1100_0200)

	c.Tick()

	if len(port.writes) != 0 {
		t.Fatal("expected disabled channel not to run")
	}
}
