package bus

import "testing"

func TestSegmentMirrorsAliasSamePhysicalMemory(t *testing.T) {
	b := New()
	if err := b.Write32(0x0000_1000, 0xDEADBEEF); err != nil {
		t.Fatalf("write via KUSEG: %v", err)
	}

	kseg0, err := b.Read32(0x8000_1000)
	if err != nil {
		t.Fatalf("read via KSEG0: %v", err)
	}
	kseg1, err := b.Read32(0xA000_1000)
	if err != nil {
		t.Fatalf("read via KSEG1: %v", err)
	}

	if kseg0 != 0xDEADBEEF || kseg1 != 0xDEADBEEF {
		t.Fatalf("expected both mirrors to read 0xDEADBEEF, got kseg0=%#X kseg1=%#X", kseg0, kseg1)
	}
}

func TestLittleEndianConsistencyAcrossWidths(t *testing.T) {
	b := New()
	if err := b.Write32(0x100, 0x11223344); err != nil {
		t.Fatal(err)
	}

	lo, err := b.Read16(0x100)
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0x3344 {
		t.Fatalf("expected low halfword 0x3344, got %#X", lo)
	}

	hi, err := b.Read16(0x102)
	if err != nil {
		t.Fatal(err)
	}
	if hi != 0x1122 {
		t.Fatalf("expected high halfword 0x1122, got %#X", hi)
	}

	b0, _ := b.Read8(0x100)
	b3, _ := b.Read8(0x103)
	if b0 != 0x44 || b3 != 0x11 {
		t.Fatalf("expected LE byte order, got b0=%#X b3=%#X", b0, b3)
	}
}

func TestExpansion1RomHeaderReadsZero(t *testing.T) {
	b := New()
	v, err := b.Read32(0x1F00_0080)
	if err != nil {
		t.Fatalf("rom header read errored: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected rom header window to read zero, got %#X", v)
	}
}

func TestExpansion1OpenBusReadsAllOnes(t *testing.T) {
	b := New()
	v, err := b.Read32(0x1F00_0100)
	if err != nil {
		t.Fatalf("open bus read errored: %v", err)
	}
	if v != 0xFFFF_FFFF {
		t.Fatalf("expected open-bus read of 0xFFFFFFFF, got %#X", v)
	}
}

func TestUnalignedAccessIsRejected(t *testing.T) {
	b := New()
	if _, err := b.Read32(0x1001); err == nil {
		t.Fatal("expected unaligned 32-bit read to error")
	}
	if _, err := b.Read16(0x1001); err == nil {
		t.Fatal("expected unaligned 16-bit read to error")
	}
	if err := b.Write32(0x1002, 0); err == nil {
		t.Fatal("expected unaligned 32-bit write to error")
	}
}

func TestBIOSIsReadOnly(t *testing.T) {
	b := New()
	image := make([]byte, BIOSSize)
	image[0] = 0x42
	copy(b.bios, image)

	if err := b.Write8(0x1FC0_0000, 0x99); err != nil {
		t.Fatalf("bios write should be silently ignored, not errored: %v", err)
	}
	v, _ := b.Read8(0x1FC0_0000)
	if v != 0x42 {
		t.Fatalf("expected bios write to be ignored, got %#X", v)
	}
}

func TestRAMWriteEnqueuesICacheInvalidation(t *testing.T) {
	b := New()
	if err := b.Write32(0x1000, 0x03E00008); err != nil {
		t.Fatal(err)
	}
	invalidated := b.DrainICacheInvalidate()
	if len(invalidated) != 1 || invalidated[0] != 0x1000 {
		t.Fatalf("expected a single invalidation at 0x1000, got %v", invalidated)
	}
	prefilled := b.DrainICachePrefill()
	if len(prefilled) != 1 || prefilled[0].Addr != 0x1000 || prefilled[0].Word != 0x03E00008 {
		t.Fatalf("expected prefill record for the written word, got %v", prefilled)
	}
}

func TestResetClearsRAMButKeepsBIOS(t *testing.T) {
	b := New()
	b.bios[0] = 0xAB
	if err := b.Write8(0x10, 0x55); err != nil {
		t.Fatal(err)
	}

	b.Reset()

	v, _ := b.Read8(0x10)
	if v != 0 {
		t.Fatalf("expected RAM cleared after reset, got %#X", v)
	}
	if b.bios[0] != 0xAB {
		t.Fatal("expected BIOS to survive reset")
	}
}

type stubDevice struct {
	word uint32
}

func (s *stubDevice) AddressRange() (uint32, uint32) { return 0x1F80_1810, 0x1F80_1813 }
func (s *stubDevice) ReadRegister(offset uint32, width int) uint32 {
	return WidenRead(s.word, offset, width)
}
func (s *stubDevice) WriteRegister(offset uint32, width int, value uint32) {
	s.word = WidenWrite(s.word, offset, width, value)
}

func TestRegisteredDeviceReceivesIODispatch(t *testing.T) {
	b := New()
	dev := &stubDevice{}
	b.RegisterDevice(dev)

	if err := b.Write32(0x1F80_1810, 0xCAFEBABE); err != nil {
		t.Fatal(err)
	}
	v, err := b.Read32(0x1F80_1810)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xCAFEBABE {
		t.Fatalf("expected device to see the write, got %#X", v)
	}
}
