package cop0

import "testing"

func TestResetSetsPRIDAndInitialSR(t *testing.T) {
	c := New()
	if c.Read(RegPRID) != 0x0000_0002 {
		t.Fatalf("PRID = %#x", c.Read(RegPRID))
	}
	if c.SR() != 0x1090_0000 {
		t.Fatalf("SR = %#x, want 0x1090_0000", c.SR())
	}
	if c.BEV() {
		t.Fatal("expected BEV clear at reset")
	}
}

func TestEnterExceptionShiftsModeStackAndSetsCause(t *testing.T) {
	c := New()
	c.SetSR(0x3D) // IEc=1 KUc=0, previous/old pairs nonzero

	c.EnterException(0x08, false) // Syscall, not in a delay slot

	if c.IEc() {
		t.Fatal("expected interrupts disabled after exception entry")
	}
	cause := (c.Cause() >> 2) & 0x1F
	if cause != 0x08 {
		t.Fatalf("cause code = %#x, want 0x08", cause)
	}
	if c.Cause()&(1<<31) != 0 {
		t.Fatal("BD bit should be clear")
	}
}

func TestEnterExceptionSetsBDBitInDelaySlot(t *testing.T) {
	c := New()
	c.EnterException(0x0C, true)
	if c.Cause()&(1<<31) == 0 {
		t.Fatal("expected BD bit set when exception occurred in a branch delay slot")
	}
}

func TestReturnFromExceptionReversesModeStack(t *testing.T) {
	c := New()
	c.SetSR(0x3D)
	c.EnterException(0x08, false)
	before := c.SR()
	c.ReturnFromException()
	if c.SR() == before {
		t.Fatal("expected SR to change on RFE")
	}
	if !c.IEc() {
		t.Fatal("expected interrupts re-enabled after RFE restores previous mode")
	}
}

func TestExceptionVectorRespectsBEV(t *testing.T) {
	c := New()
	if got := c.ExceptionVector(); got != 0x8000_0080 {
		t.Fatalf("vector = %#x, want RAM vector at reset (BEV clear)", got)
	}
	c.SetSR(c.SR() | (1 << 22))
	if got := c.ExceptionVector(); got != 0xBFC0_0180 {
		t.Fatalf("vector = %#x, want BEV vector", got)
	}
}

func TestInterruptPendingRequiresIEcAndUnmaskedBit(t *testing.T) {
	c := New()
	c.SetSR(0) // IEc=0
	c.SetPendingInterrupts(0x01)
	if c.InterruptPending() {
		t.Fatal("interrupts disabled, should not be pending")
	}

	c.SetSR(srIEc) // IEc=1, IM=0
	if c.InterruptPending() {
		t.Fatal("IM masks all bits, should not be pending")
	}

	c.SetSR(srIEc | (0x01 << 8))
	if !c.InterruptPending() {
		t.Fatal("expected pending interrupt with matching IM bit")
	}
}
