package cpu

import "log/slog"

// dispatch decodes the 6-bit primary opcode and routes to the
// SPECIAL/REGIMM/COP0/COP2 sub-dispatch or a direct I/J-type handler.
func (c *CPU) dispatch(w uint32) {
	switch opcodeOf(w) {
	case opSpecial:
		c.dispatchSpecial(w)
	case opRegimm:
		c.dispatchRegimm(w)
	case opJ:
		target := (c.pc & 0xF000_0000) | (target26Of(w) << 2)
		c.jumpAbsolute(target)
	case opJAL:
		c.SetReg(31, c.nextPC)
		target := (c.pc & 0xF000_0000) | (target26Of(w) << 2)
		c.jumpAbsolute(target)
	case opBEQ:
		if c.Reg(rsOf(w)) == c.Reg(rtOf(w)) {
			c.branch(simm16Of(w) << 2)
		}
	case opBNE:
		if c.Reg(rsOf(w)) != c.Reg(rtOf(w)) {
			c.branch(simm16Of(w) << 2)
		}
	case opBLEZ:
		if int32(c.Reg(rsOf(w))) <= 0 {
			c.branch(simm16Of(w) << 2)
		}
	case opBGTZ:
		if int32(c.Reg(rsOf(w))) > 0 {
			c.branch(simm16Of(w) << 2)
		}
	case opADDI:
		c.opADDI(w)
	case opADDIU:
		c.opADDIU(w)
	case opSLTI:
		c.SetReg(rtOf(w), b2u(int32(c.Reg(rsOf(w))) < simm16Of(w)))
	case opSLTIU:
		c.SetReg(rtOf(w), b2u(c.Reg(rsOf(w)) < uint32(simm16Of(w))))
	case opANDI:
		c.SetReg(rtOf(w), c.Reg(rsOf(w))&uint32(imm16Of(w)))
	case opORI:
		c.SetReg(rtOf(w), c.Reg(rsOf(w))|uint32(imm16Of(w)))
	case opXORI:
		c.SetReg(rtOf(w), c.Reg(rsOf(w))^uint32(imm16Of(w)))
	case opLUI:
		c.SetReg(rtOf(w), uint32(imm16Of(w))<<16)
	case opCOP0:
		c.dispatchCOP0(w)
	case opCOP2:
		c.dispatchCOP2(w)
	case opLB:
		c.opLoad(w, 1, true)
	case opLH:
		c.opLoad(w, 2, true)
	case opLWL:
		c.opLWL(w)
	case opLW:
		c.opLoad(w, 4, true)
	case opLBU:
		c.opLoad(w, 1, false)
	case opLHU:
		c.opLoad(w, 2, false)
	case opLWR:
		c.opLWR(w)
	case opSB:
		c.opStore(w, 1)
	case opSH:
		c.opStore(w, 2)
	case opSWL:
		c.opSWL(w)
	case opSW:
		c.opStore(w, 4)
	case opSWR:
		c.opSWR(w)
	default:
		slog.Warn("cpu: reserved instruction", "word", w, "pc", c.pc)
		c.exception(CauseReservedInstruction)
	}
}

func (c *CPU) dispatchSpecial(w uint32) {
	rs, rt, rd, sh := rsOf(w), rtOf(w), rdOf(w), shamtOf(w)
	switch functOf(w) {
	case functSLL:
		c.SetReg(rd, c.Reg(rt)<<sh)
	case functSRL:
		c.SetReg(rd, c.Reg(rt)>>sh)
	case functSRA:
		c.SetReg(rd, uint32(int32(c.Reg(rt))>>sh))
	case functSLLV:
		c.SetReg(rd, c.Reg(rt)<<(c.Reg(rs)&0x1F))
	case functSRLV:
		c.SetReg(rd, c.Reg(rt)>>(c.Reg(rs)&0x1F))
	case functSRAV:
		c.SetReg(rd, uint32(int32(c.Reg(rt))>>(c.Reg(rs)&0x1F)))
	case functJR:
		c.jumpAbsolute(c.Reg(rs))
	case functJALR:
		target := c.Reg(rs)
		c.SetReg(rd, c.nextPC)
		c.jumpAbsolute(target)
	case functSyscall:
		c.exception(CauseSyscall)
	case functBreak:
		c.exception(CauseBreakpoint)
	case functMFHI:
		c.SetReg(rd, c.hi)
	case functMTHI:
		c.hi = c.Reg(rs)
	case functMFLO:
		c.SetReg(rd, c.lo)
	case functMTLO:
		c.lo = c.Reg(rs)
	case functMULT:
		result := int64(int32(c.Reg(rs))) * int64(int32(c.Reg(rt)))
		c.lo, c.hi = uint32(result), uint32(result>>32)
	case functMULTU:
		result := uint64(c.Reg(rs)) * uint64(c.Reg(rt))
		c.lo, c.hi = uint32(result), uint32(result>>32)
	case functDIV:
		c.opDIV(rs, rt)
	case functDIVU:
		c.opDIVU(rs, rt)
	case functADD:
		c.opADD(rs, rt, rd)
	case functADDU:
		c.SetReg(rd, c.Reg(rs)+c.Reg(rt))
	case functSUB:
		c.opSUB(rs, rt, rd)
	case functSUBU:
		c.SetReg(rd, c.Reg(rs)-c.Reg(rt))
	case functAND:
		c.SetReg(rd, c.Reg(rs)&c.Reg(rt))
	case functOR:
		c.SetReg(rd, c.Reg(rs)|c.Reg(rt))
	case functXOR:
		c.SetReg(rd, c.Reg(rs)^c.Reg(rt))
	case functNOR:
		c.SetReg(rd, ^(c.Reg(rs) | c.Reg(rt)))
	case functSLT:
		c.SetReg(rd, b2u(int32(c.Reg(rs)) < int32(c.Reg(rt))))
	case functSLTU:
		c.SetReg(rd, b2u(c.Reg(rs) < c.Reg(rt)))
	default:
		slog.Warn("cpu: reserved SPECIAL instruction", "funct", functOf(w), "pc", c.pc)
		c.exception(CauseReservedInstruction)
	}
}

func (c *CPU) dispatchRegimm(w uint32) {
	rs := rsOf(w)
	offset := simm16Of(w) << 2
	switch rtOf(w) {
	case regimmBLTZ:
		if int32(c.Reg(rs)) < 0 {
			c.branch(offset)
		}
	case regimmBGEZ:
		if int32(c.Reg(rs)) >= 0 {
			c.branch(offset)
		}
	case regimmBLTZAL:
		c.SetReg(31, c.nextPC)
		if int32(c.Reg(rs)) < 0 {
			c.branch(offset)
		}
	case regimmBGEZAL:
		c.SetReg(31, c.nextPC)
		if int32(c.Reg(rs)) >= 0 {
			c.branch(offset)
		}
	default:
		slog.Warn("cpu: reserved REGIMM instruction", "rt", rtOf(w), "pc", c.pc)
		c.exception(CauseReservedInstruction)
	}
}

func (c *CPU) dispatchCOP0(w uint32) {
	sub := rsOf(w)
	switch sub {
	case 0x00: // MFC0
		c.setRegDelayed(rtOf(w), c.cop0.Read(rdOf(w)))
	case 0x04: // MTC0
		c.cop0.Write(rdOf(w), c.Reg(rtOf(w)))
	case 0x10: // RFE (and other CO-class ops, only RFE implemented)
		if functOf(w) == 0x10 {
			c.rfe()
		}
	default:
		slog.Warn("cpu: unhandled COP0 sub-op", "rs", sub, "pc", c.pc)
	}
}

func (c *CPU) dispatchCOP2(w uint32) {
	sub := rsOf(w)
	switch {
	case sub == 0x00: // MFC2
		c.setRegDelayed(rtOf(w), uint32(c.gte.ReadData(int(rdOf(w)))))
	case sub == 0x02: // CFC2
		c.setRegDelayed(rtOf(w), uint32(c.gte.ReadControl(int(rdOf(w)))))
	case sub == 0x04: // MTC2
		c.gte.WriteData(int(rdOf(w)), int32(c.Reg(rtOf(w))))
	case sub == 0x06: // CTC2
		c.gte.WriteControl(int(rdOf(w)), int32(c.Reg(rtOf(w))))
	case sub&0x10 != 0: // GTE command (bit 25 set marks a COP2 "CO" instruction)
		c.gte.Execute(w & 0x01FF_FFFF)
	default:
		slog.Warn("cpu: unhandled COP2 sub-op", "rs", sub, "pc", c.pc)
	}
}

func b2u(cond bool) uint32 {
	if cond {
		return 1
	}
	return 0
}
