package spu

import "testing"

func TestRAMRoundTripWrapsAtSize(t *testing.T) {
	c := New()
	c.WriteRAM(0x80000, 0xAB)
	if got := c.ReadRAM(0x0); got != 0xAB {
		t.Fatalf("expected wraparound write at 0x80000 to land at 0x0, got %#x", got)
	}
}

func TestMainVolumeRegisterRoundTrips(t *testing.T) {
	c := New()
	c.WriteRegister(0x180, 16, 0x1234)
	if got := c.ReadRegister(0x180, 16); got != 0x1234 {
		t.Fatalf("main volume left = %#x, want 0x1234", got)
	}
}

func TestVoiceRegistersAreSixteenBytesApart(t *testing.T) {
	c := New()
	c.WriteRegister(0x00, 16, 0x1111) // voice 0 volume left
	c.WriteRegister(0x04, 16, 0x2222) // voice 0 sample rate
	c.WriteRegister(0x12, 16, 0x3333) // voice 1 volume right

	if got := c.voices[0].VolumeLeft; got != 0x1111 {
		t.Fatalf("voice0 volume left = %#x", got)
	}
	if got := c.voices[0].SampleRate; got != 0x2222 {
		t.Fatalf("voice0 sample rate = %#x", got)
	}
	if got := c.voices[1].VolumeRight; got != 0x3333 {
		t.Fatalf("voice1 volume right = %#x", got)
	}
}

func TestControlRegisterExtractsNoiseClock(t *testing.T) {
	c := New()
	c.WriteRegister(0x1AA, 16, 0x8000|(0x7<<10)|(0x2<<8))
	if c.noise.shift != 0x7 {
		t.Fatalf("noise shift = %d, want 7", c.noise.shift)
	}
	if c.noise.step != 0x2 {
		t.Fatalf("noise step = %d, want 2", c.noise.step)
	}
	if !c.enabled() {
		t.Fatal("expected SPU enabled after writing control bit 15")
	}
}

func TestKeyOnLowAndHighSelectVoiceRanges(t *testing.T) {
	c := New()
	c.WriteRegister(0x188, 16, 0x0001) // voice 0
	c.WriteRegister(0x18A, 16, 0x0001) // voice 16

	if !c.voices[0].Enabled {
		t.Fatal("voice 0 should be enabled by key-on low bit 0")
	}
	if !c.voices[16].Enabled {
		t.Fatal("voice 16 should be enabled by key-on high bit 0")
	}
	if c.voices[1].Enabled {
		t.Fatal("voice 1 should remain disabled")
	}
}

func TestTransferAddressRegisterIsEightByteUnits(t *testing.T) {
	c := New()
	c.WriteRegister(0x1A6, 16, 0x100)
	if c.transferAddr != 0x100*8 {
		t.Fatalf("transferAddr = %#x, want %#x", c.transferAddr, 0x100*8)
	}
	if got := c.ReadRegister(0x1A6, 16); got != 0x100 {
		t.Fatalf("round-tripped transfer address = %#x, want 0x100", got)
	}
}

func TestManualTransferWriteAdvancesByTwoBypassingFIFO(t *testing.T) {
	c := New()
	c.WriteRegister(0x1A6, 16, 0) // transfer_addr = 0
	c.WriteRegister(0x1A8, 16, 0xBEEF)
	if c.ram[0] != 0xEF || c.ram[1] != 0xBE {
		t.Fatalf("manual write didn't land in RAM little-endian: %02x %02x", c.ram[0], c.ram[1])
	}
	if c.transferAddr != 2 {
		t.Fatalf("transferAddr after manual write = %d, want 2", c.transferAddr)
	}
}

func TestDMAWriteAutoFlushesEveryEightWords(t *testing.T) {
	c := New()
	c.WriteRegister(0x1A6, 16, 0)
	for i := 0; i < 8; i++ {
		c.DMAWrite(uint32(i) | uint32(i+1)<<16)
	}
	if len(c.dmaFIFO) != 0 {
		t.Fatalf("FIFO should auto-flush after 8 words, still holds %d entries", len(c.dmaFIFO))
	}
	if c.transferAddr != 32 {
		t.Fatalf("transferAddr after 8 words = %d, want 32", c.transferAddr)
	}
}

func TestDMAReadReturnsWrittenWord(t *testing.T) {
	c := New()
	c.WriteRegister(0x1A6, 16, 0)
	c.DMAWrite(0xCAFEBABE)
	c.flushDMAFIFO()

	c.WriteRegister(0x1A6, 16, 0)
	got := c.DMARead()
	if got != 0xCAFEBABE {
		t.Fatalf("DMARead = %#x, want 0xCAFEBABE", got)
	}
}

func TestDMATransferAddressWrapsAtRAMBoundary(t *testing.T) {
	c := New()
	c.transferAddr = 0x7FFFE
	c.DMAWrite(0x11112222)
	c.flushDMAFIFO()
	if c.transferAddr > 0x7FFFE {
		t.Fatalf("transferAddr should wrap within RAM, got %#x", c.transferAddr)
	}
}

func TestTickProducesNoSamplesWhenDisabled(t *testing.T) {
	c := New()
	c.Tick(cpuClockHz / 60)
	if len(c.DrainSamples()) != 0 {
		t.Fatal("disabled SPU should produce no samples")
	}
}

func TestTickProducesAboutOneFrameOfSamplesAtSixtyHz(t *testing.T) {
	c := New()
	c.WriteRegister(0x1AA, 16, 0x8000)
	c.Tick(cpuClockHz / 60)
	n := len(c.DrainSamples())
	if n < 700 || n > 760 {
		t.Fatalf("expected ~735 samples for one 60Hz frame, got %d", n)
	}
}

func TestSilenceWithNoActiveVoices(t *testing.T) {
	c := New()
	c.WriteRegister(0x1AA, 16, 0x8000)
	c.WriteRegister(0x180, 16, 0x3FFF)
	c.Tick(1000)
	for _, s := range c.DrainSamples() {
		if s.Left != 0 || s.Right != 0 {
			t.Fatalf("expected silence with no active voices, got %+v", s)
		}
	}
}

func TestADPCMDecodeFilterZeroIsShiftedNibbles(t *testing.T) {
	var s ADPCMState
	block := make([]byte, 16)
	block[0] = 0x00 // shift 0, filter 0
	block[2] = 0x12 // nibbles: low=2, high=1
	samples := s.DecodeBlock(block)
	if samples[0] != 0x2000 {
		t.Fatalf("sample0 = %#x, want 0x2000", samples[0])
	}
	if samples[1] != 0x1000 {
		t.Fatalf("sample1 = %#x, want 0x1000", samples[1])
	}
}

func TestADSRAttackReachesDecayAtMaxLevel(t *testing.T) {
	e := &Envelope{AttackRate: 0x7F}
	e.KeyOn()
	for i := 0; i < 10000 && e.Phase == PhaseAttack; i++ {
		e.Tick()
	}
	if e.Phase != PhaseDecay {
		t.Fatalf("expected phase Decay after attack ramp, got %v", e.Phase)
	}
	if e.Level != 32767 {
		t.Fatalf("expected level 32767 at attack/decay boundary, got %d", e.Level)
	}
}

func TestADSRDecayReachesSustainTarget(t *testing.T) {
	e := &Envelope{DecayRate: 0x0F, SustainLevel: 0x08}
	e.Phase = PhaseDecay
	e.Level = 32767
	for i := 0; i < 10000 && e.Phase == PhaseDecay; i++ {
		e.Tick()
	}
	if e.Phase != PhaseSustain {
		t.Fatalf("expected phase Sustain after decay ramp, got %v", e.Phase)
	}
	want := int16((int32(0x08) + 1) << 11)
	if e.Level != want {
		t.Fatalf("sustain level = %d, want %d", e.Level, want)
	}
}

func TestADSRReleaseReachesOff(t *testing.T) {
	e := &Envelope{ReleaseRate: 0x1F}
	e.Phase = PhaseSustain
	e.Level = 1000
	e.KeyOff()
	for i := 0; i < 10000 && e.Phase == PhaseRelease; i++ {
		e.Tick()
	}
	if e.Phase != PhaseOff {
		t.Fatalf("expected phase Off after release ramp, got %v", e.Phase)
	}
	if e.Level != 0 {
		t.Fatalf("expected level 0 at release end, got %d", e.Level)
	}
}

func TestNoiseGeneratorProducesFullScaleAlternation(t *testing.T) {
	n := NewNoiseGenerator()
	n.SetFrequency(0, 0)
	seenHigh, seenLow := false, false
	for i := 0; i < 1000; i++ {
		n.Tick()
		switch n.Sample() {
		case 0x7FFF:
			seenHigh = true
		case -0x8000:
			seenLow = true
		}
	}
	if !seenHigh || !seenLow {
		t.Fatal("expected noise generator to visit both full-scale levels")
	}
}
