package spu

// Voice is one of the SPU's 24 ADPCM playback channels.
type Voice struct {
	Enabled      bool
	NoiseEnabled bool

	VolumeLeft  uint16
	VolumeRight uint16
	SampleRate  uint16 // pitch; 4096 == 1.0x playback speed

	StartAddress   uint32
	CurrentAddress uint32
	RepeatAddress  uint32

	ADSR  Envelope
	ADPCM ADPCMState

	decoded   []int16
	loopFlag  bool
	finalBlock bool
}

// KeyOn starts playback from StartAddress with a fresh decode state.
func (v *Voice) KeyOn() {
	v.Enabled = true
	v.CurrentAddress = v.StartAddress
	v.ADPCM = ADPCMState{}
	v.decoded = nil
	v.loopFlag = false
	v.finalBlock = false
	v.ADSR.KeyOn()
}

// KeyOff begins the release phase; the voice stays enabled until the
// envelope reaches Off.
func (v *Voice) KeyOff() {
	v.ADSR.KeyOff()
}

// decodeBlock reads the 16-byte ADPCM block at CurrentAddress out of SPU
// RAM, decodes it, and updates the loop/final-block state from its flag
// byte (bit0 loop_end, bit1 loop_repeat).
func (v *Voice) decodeBlock(ram []byte) {
	addr := v.CurrentAddress & 0x7FFFF
	if int(addr)+16 > len(ram) {
		v.decoded = nil
		return
	}
	block := ram[addr : addr+16]
	v.decoded = v.ADPCM.DecodeBlock(block)

	flags := block[1]
	loopEnd := flags&0x01 != 0
	loopRepeat := flags&0x02 != 0

	v.finalBlock = false
	v.loopFlag = false
	if loopEnd {
		if loopRepeat {
			v.loopFlag = true
			v.CurrentAddress = v.RepeatAddress
		} else {
			v.finalBlock = true
		}
	}
}

// advancePosition steps the playback position by one pitch-scaled
// sample, decoding the next block once the current one is exhausted.
func (v *Voice) advancePosition(ram []byte) {
	if len(v.decoded) == 0 {
		v.decodeBlock(ram)
	}

	v.ADPCM.Position += float64(v.SampleRate) / 4096.0
	for v.ADPCM.Position >= 28.0 {
		v.ADPCM.Position -= 28.0
		if v.finalBlock {
			v.Enabled = false
			v.ADSR.Phase = PhaseOff
			v.decoded = nil
			return
		}
		if !v.loopFlag {
			v.CurrentAddress += 16
		}
		v.decodeBlock(ram)
	}
}

// interpolateSample linearly interpolates the decoded block between the
// two samples straddling the current fractional position.
func (v *Voice) interpolateSample() int16 {
	if len(v.decoded) == 0 {
		return 0
	}
	pos := v.ADPCM.Position
	idx := int(pos)
	if idx >= len(v.decoded) {
		idx = len(v.decoded) - 1
	}
	frac := pos - float64(idx)

	a := v.decoded[idx]
	b := a
	if idx+1 < len(v.decoded) {
		b = v.decoded[idx+1]
	}
	return int16(float64(a) + (float64(b)-float64(a))*frac)
}

// RenderSample produces this voice's next stereo sample pair, stepping
// its ADSR envelope and playback position, and substituting the shared
// noise source when NoiseEnabled is set.
func (v *Voice) RenderSample(ram []byte, noise *NoiseGenerator) (left, right int16) {
	if !v.Enabled {
		return 0, 0
	}

	var raw int16
	if v.NoiseEnabled {
		raw = noise.Sample()
	} else {
		raw = v.interpolateSample()
		v.advancePosition(ram)
	}

	v.ADSR.Tick()
	if v.ADSR.Phase == PhaseOff {
		v.Enabled = false
	}
	level := int32(v.ADSR.Level)

	sample := int32(raw) * level / 32768
	left = clamp16(sample * int32(v.VolumeLeft) / 32768)
	right = clamp16(sample * int32(v.VolumeRight) / 32768)
	return left, right
}
