package spu

// filterCoef holds the five ADPCM predictor coefficient pairs (in
// sixty-fourths), indexed by the 3-bit filter field packed into each
// block's header byte.
var filterCoef = [5][2]int32{
	{0, 0},
	{60, 0},
	{115, -52},
	{98, -55},
	{122, -60},
}

// ADPCMState holds one voice's decode predictor history and its
// fractional playback position within the currently decoded block.
type ADPCMState struct {
	Prev     [2]int16
	Position float64
}

// DecodeBlock decodes a 16-byte ADPCM block (1 header + 1 flag + 14
// packed-nibble bytes) into 28 16-bit PCM samples, updating the
// predictor history as it goes.
func (s *ADPCMState) DecodeBlock(block []byte) []int16 {
	if len(block) < 16 {
		return nil
	}
	header := block[0]
	shift := uint(header & 0x0F)
	filter := (header >> 4) & 0x07
	if int(filter) >= len(filterCoef) {
		filter = 0
	}
	k0, k1 := filterCoef[filter][0], filterCoef[filter][1]

	samples := make([]int16, 0, 28)
	for i := 0; i < 14; i++ {
		b := block[2+i]
		for _, nibble := range [2]int32{signExtend4(b & 0x0F), signExtend4(b >> 4)} {
			raw := (nibble << 12) >> shift
			predicted := (k0*int32(s.Prev[0]) + k1*int32(s.Prev[1])) >> 6
			sample := clamp16(raw + predicted)
			s.Prev[1] = s.Prev[0]
			s.Prev[0] = sample
			samples = append(samples, sample)
		}
	}
	return samples
}

func signExtend4(n byte) int32 {
	v := int32(n & 0x0F)
	if v&0x08 != 0 {
		v -= 16
	}
	return v
}

func clamp16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
