package pad

import (
	"testing"

	"github.com/kestrel-dev/go-psrx/psrx/irq"
)

func TestDigitalPadIDHandshake(t *testing.T) {
	ports := New(irq.New())
	p := NewPad()
	ports.AttachPad(0, p)

	ports.WriteRegister(0, 32, 0x01)
	if rx := ports.ReadRegister(0, 32); rx != 0xFF {
		t.Fatalf("expected HiZ reply 0xFF, got %#X", rx)
	}

	ports.WriteRegister(0, 32, 0x42)
	if rx := ports.ReadRegister(0, 32); rx != 0x41 {
		t.Fatalf("expected digital-pad ID 0x41, got %#X", rx)
	}
}

func TestButtonStateDeliveredAsTwoHalves(t *testing.T) {
	ports := New(irq.New())
	p := NewPad()
	p.Press(Cross)
	ports.AttachPad(0, p)

	ports.WriteRegister(0, 32, 0x01)
	ports.ReadRegister(0, 32)
	ports.WriteRegister(0, 32, 0x42)
	ports.ReadRegister(0, 32)

	ports.WriteRegister(0, 32, 0x00)
	lo := ports.ReadRegister(0, 32)
	ports.WriteRegister(0, 32, 0x00)
	hi := ports.ReadRegister(0, 32)

	want := p.buttons
	got := uint16(lo) | uint16(hi)<<8
	if got != want {
		t.Fatalf("reassembled button state = %#X, want %#X", got, want)
	}
	if hi&(1<<(uint(Cross)-8)) != 0 {
		t.Fatal("expected Cross bit (bit 6 of high byte) to read as pressed (0)")
	}
}

func TestPressAndReleaseToggleLowBit(t *testing.T) {
	p := NewPad()
	if p.buttons != 0xFFFF {
		t.Fatalf("expected all-released default, got %#X", p.buttons)
	}
	p.Press(Start)
	if p.buttons&(1<<uint(Start)) != 0 {
		t.Fatal("expected Start bit cleared when pressed")
	}
	p.Release(Start)
	if p.buttons&(1<<uint(Start)) == 0 {
		t.Fatal("expected Start bit set when released")
	}
}

func TestPortSelectPicksCorrectPad(t *testing.T) {
	ports := New(irq.New())
	p0, p1 := NewPad(), NewPad()
	p1.Press(Square)
	ports.AttachPad(0, p0)
	ports.AttachPad(1, p1)

	ports.WriteRegister(0xA, 32, 1<<13) // select port 2
	ports.WriteRegister(0, 32, 0x01)
	ports.ReadRegister(0, 32)
	ports.WriteRegister(0, 32, 0x42)
	ports.ReadRegister(0, 32)
	ports.WriteRegister(0, 32, 0x00)
	lo := ports.ReadRegister(0, 32)
	ports.WriteRegister(0, 32, 0x00)
	hi := ports.ReadRegister(0, 32)

	if got := uint16(lo) | uint16(hi)<<8; got&(1<<uint(Square)) != 0 {
		t.Fatal("expected port 2's pressed Square bit to come through")
	}
}
