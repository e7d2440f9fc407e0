package cpu

// Instruction field extraction. Named after the MIPS encoding tables:
// opcode(31:26), rs(25:21), rt(20:16), rd(15:11), shamt(10:6),
// funct(5:0), imm16(15:0), target26(25:0).

func opcodeOf(w uint32) uint8  { return uint8(w >> 26) }
func rsOf(w uint32) uint8      { return uint8((w >> 21) & 0x1F) }
func rtOf(w uint32) uint8      { return uint8((w >> 16) & 0x1F) }
func rdOf(w uint32) uint8      { return uint8((w >> 11) & 0x1F) }
func shamtOf(w uint32) uint8   { return uint8((w >> 6) & 0x1F) }
func functOf(w uint32) uint8   { return uint8(w & 0x3F) }
func imm16Of(w uint32) uint16  { return uint16(w) }
func simm16Of(w uint32) int32  { return int32(int16(w)) }
func target26Of(w uint32) uint32 { return w & 0x03FF_FFFF }

const (
	opSpecial = 0x00
	opRegimm  = 0x01
	opJ       = 0x02
	opJAL     = 0x03
	opBEQ     = 0x04
	opBNE     = 0x05
	opBLEZ    = 0x06
	opBGTZ    = 0x07
	opADDI    = 0x08
	opADDIU   = 0x09
	opSLTI    = 0x0A
	opSLTIU   = 0x0B
	opANDI    = 0x0C
	opORI     = 0x0D
	opXORI    = 0x0E
	opLUI     = 0x0F
	opCOP0    = 0x10
	opCOP2    = 0x12
	opLB      = 0x20
	opLH      = 0x21
	opLWL     = 0x22
	opLW      = 0x23
	opLBU     = 0x24
	opLHU     = 0x25
	opLWR     = 0x26
	opSB      = 0x28
	opSH      = 0x29
	opSWL     = 0x2A
	opSW      = 0x2B
	opSWR     = 0x2E
)

const (
	functSLL     = 0x00
	functSRL     = 0x02
	functSRA     = 0x03
	functSLLV    = 0x04
	functSRLV    = 0x06
	functSRAV    = 0x07
	functJR      = 0x08
	functJALR    = 0x09
	functSyscall = 0x0C
	functBreak   = 0x0D
	functMFHI    = 0x10
	functMTHI    = 0x11
	functMFLO    = 0x12
	functMTLO    = 0x13
	functMULT    = 0x18
	functMULTU   = 0x19
	functDIV     = 0x1A
	functDIVU    = 0x1B
	functADD     = 0x20
	functADDU    = 0x21
	functSUB     = 0x22
	functSUBU    = 0x23
	functAND     = 0x24
	functOR      = 0x25
	functXOR     = 0x26
	functNOR     = 0x27
	functSLT     = 0x2A
	functSLTU    = 0x2B
)

const (
	regimmBLTZ   = 0x00
	regimmBGEZ   = 0x01
	regimmBLTZAL = 0x10
	regimmBGEZAL = 0x11
)
