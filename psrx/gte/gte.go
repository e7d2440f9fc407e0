// Package gte implements the Geometry Transformation Engine (COP2): the
// 64-register data/control file the CPU's MFC2/CFC2/MTC2/CTC2
// instructions address, and the command executor the CPU's COP2
// opcode dispatches to.
//
// Command execution is treated as a black box from the interpreter's
// perspective: the CPU decodes a 25-bit command word out of the
// instruction and hands it to Execute, which updates the data registers
// (and clears the FLAG control register) and returns. RTPS/RTPT, NCLIP
// and AVSZ3/AVSZ4 are approximated rather than bit-exact; the other
// commands (lighting, color, MVMVA, etc.) leave the registers unchanged,
// since nothing in this emulator's scope reads GTE output for anything
// beyond presence.
package gte

// Data register indices (the 32 GTE "data" registers, COP2 regs 0-31).
const (
	RegVXY0 = 0
	RegVZ0  = 1
	RegVXY1 = 2
	RegVZ1  = 3
	RegVXY2 = 4
	RegVZ2  = 5
	RegRGBC = 6
	RegOTZ  = 7
	RegIR0  = 8
	RegIR1  = 9
	RegIR2  = 10
	RegIR3  = 11
	RegSXY0 = 12
	RegSXY1 = 13
	RegSXY2 = 14
	RegSXYP = 15
	RegSZ0  = 16
	RegSZ1  = 17
	RegSZ2  = 18
	RegSZ3  = 19
	RegRGB0 = 20
	RegRGB1 = 21
	RegRGB2 = 22
	RegRES1 = 23
	RegMAC0 = 24
	RegMAC1 = 25
	RegMAC2 = 26
	RegMAC3 = 27
	RegIRGB = 28
	RegORGB = 29
	RegLZCS = 30
	RegLZCR = 31
)

// Control register indices (the 32 GTE "control" registers, COP2 regs 32-63).
const (
	RegRT11RT12 = 0
	RegRT13RT21 = 1
	RegRT22RT23 = 2
	RegRT31RT32 = 3
	RegRT33      = 4
	RegTRX       = 5
	RegTRY       = 6
	RegTRZ       = 7
	RegL11L12    = 8
	RegL13L21    = 9
	RegL22L23    = 10
	RegL31L32    = 11
	RegL33       = 12
	RegRBK       = 13
	RegGBK       = 14
	RegBBK       = 15
	RegLR1LR2    = 16
	RegLR3LG1    = 17
	RegLG2LG3    = 18
	RegLB1LB2    = 19
	RegLB3       = 20
	RegRFC       = 21
	RegGFC       = 22
	RegBFC       = 23
	RegOFX       = 24
	RegOFY       = 25
	RegH         = 26
	RegDQA       = 27
	RegDQB       = 28
	RegZSF3      = 29
	RegZSF4      = 30
	RegFLAG      = 31
)

// GTE holds the 64-register file. Data and control registers are
// stored separately since CPU access (MFC2/CFC2 vs MTC2/CTC2) and
// reset behavior differ between the two banks.
type GTE struct {
	data    [32]int32
	control [32]int32
}

// New returns a zeroed GTE register file.
func New() *GTE {
	return &GTE{}
}

// ReadData implements MFC2; a handful of registers widen on read as
// the real GTE does (sign/zero-extension quirks on the 16-bit
// component fields).
func (g *GTE) ReadData(reg int) int32 {
	switch reg {
	case RegOTZ, RegIR0, RegIR1, RegIR2, RegIR3:
		return int32(int16(g.data[reg]))
	case RegSZ0, RegSZ1, RegSZ2, RegSZ3:
		return int32(uint16(g.data[reg]))
	default:
		return g.data[reg]
	}
}

// WriteData implements MTC2.
func (g *GTE) WriteData(reg int, value int32) {
	if reg < 0 || reg >= 32 {
		return
	}
	g.data[reg] = value
}

// ReadControl implements CFC2.
func (g *GTE) ReadControl(reg int) int32 {
	if reg < 0 || reg >= 32 {
		return 0
	}
	return g.control[reg]
}

// WriteControl implements CTC2.
func (g *GTE) WriteControl(reg int, value int32) {
	if reg < 0 || reg >= 32 {
		return
	}
	g.control[reg] = value
}

// Known GTE command opcodes (low 6 bits of the command word), enough
// to distinguish the handful whose side effects this emulator relies
// on (SXY/SZ, MAC0 and OTZ output) from the rest, which Execute leaves
// as no-ops apart from clearing FLAG.
const (
	cmdRTPS  = 0x01
	cmdNCLIP = 0x06
	cmdRTPT  = 0x30
	cmdAVSZ3 = 0x2D
	cmdAVSZ4 = 0x2E
)

// Execute runs a single GTE command, reading its operands from the
// data/control registers and writing results (and FLAG) back. The
// command word is the low 25 bits of a COP2 instruction.
func (g *GTE) Execute(command uint32) {
	opcode := command & 0x3F
	sf := (command >> 19) & 1 // shift fraction: 0 or 12

	g.control[RegFLAG] = 0

	switch opcode {
	case cmdRTPS:
		g.transformVertex(0, sf)
	case cmdRTPT:
		g.transformVertex(0, sf)
		g.transformVertex(1, sf)
		g.transformVertex(2, sf)
	case cmdNCLIP:
		x0, y0 := g.sxy(RegSXY0)
		x1, y1 := g.sxy(RegSXY1)
		x2, y2 := g.sxy(RegSXY2)
		mac0 := x0*(y1-y2) + x1*(y2-y0) + x2*(y0-y1)
		g.data[RegMAC0] = mac0
	case cmdAVSZ3:
		avg := (int64(g.data[RegSZ1]) + int64(g.data[RegSZ2]) + int64(g.data[RegSZ3])) * int64(g.control[RegZSF3]) >> 12
		g.data[RegMAC0] = int32(avg)
		g.data[RegOTZ] = clampU16(int32(avg))
	case cmdAVSZ4:
		avg := (int64(g.data[RegSZ0]) + int64(g.data[RegSZ1]) + int64(g.data[RegSZ2]) + int64(g.data[RegSZ3])) * int64(g.control[RegZSF4]) >> 12
		g.data[RegMAC0] = int32(avg)
		g.data[RegOTZ] = clampU16(int32(avg))
	default:
		// Lighting/color commands (NCS/NCT/NCDS/NCDT/DCPL/DPCS/DPCT,
		// SQR, OP, GPF, GPL, MVMVA): approximated by leaving MAC/IR/RGB
		// registers at their last-written values, since nothing in this
		// emulator's scope consumes their numeric output.
	}
}

func (g *GTE) sxy(reg int) (int32, int32) {
	v := g.data[reg]
	return int32(int16(v)), int32(int16(v >> 16))
}

// transformVertex performs a simplified perspective projection of
// vertex slot n (0,1,2) into the corresponding SXY/SZ output
// registers, using the translation and H/OFX/OFY control registers.
func (g *GTE) transformVertex(n int, sf uint32) {
	var vxy, vz int32
	switch n {
	case 0:
		vxy, vz = g.data[RegVXY0], g.data[RegVZ0]
	case 1:
		vxy, vz = g.data[RegVXY1], g.data[RegVZ1]
	default:
		vxy, vz = g.data[RegVXY2], g.data[RegVZ2]
	}
	vx, vy := int32(int16(vxy)), int32(int16(vxy>>16))

	shift := int64(0)
	if sf != 0 {
		shift = 12
	}
	tz := int64(vz) + int64(g.control[RegTRZ])>>shift

	g.data[RegSZ0], g.data[RegSZ1], g.data[RegSZ2], g.data[RegSZ3] =
		g.data[RegSZ1], g.data[RegSZ2], g.data[RegSZ3], clampU16(int32(tz))

	h := int64(g.control[RegH])
	divisor := tz
	if divisor == 0 {
		divisor = 1
	}
	factor := (h << 12) / divisor

	sx := int32((int64(vx)*factor)>>12) + g.control[RegOFX]
	sy := int32((int64(vy)*factor)>>12) + g.control[RegOFY]

	g.data[RegSXY0], g.data[RegSXY1] = g.data[RegSXY1], g.data[RegSXY2]
	g.data[RegSXY2] = (uint32FromI16(sy) << 16) | uint32FromI16(sx)
	g.data[RegSXYP] = g.data[RegSXY2]
}

func uint32FromI16(v int32) int32 {
	return int32(uint16(v))
}

func clampU16(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 0xFFFF {
		return 0xFFFF
	}
	return v
}

// Reset clears the register file.
func (g *GTE) Reset() {
	g.data = [32]int32{}
	g.control = [32]int32{}
}
