package cpu

// Arithmetic instructions needing overflow detection or special
// division edge cases, kept out of dispatch.go's switch bodies since
// each needs more than a one-line expression.

func (c *CPU) opADD(rs, rt, rd uint8) {
	a, b := int32(c.Reg(rs)), int32(c.Reg(rt))
	result := a + b
	if overflowsAdd(a, b, result) {
		c.exception(CauseOverflow)
		return
	}
	c.SetReg(rd, uint32(result))
}

func (c *CPU) opSUB(rs, rt, rd uint8) {
	a, b := int32(c.Reg(rs)), int32(c.Reg(rt))
	result := a - b
	if overflowsSub(a, b, result) {
		c.exception(CauseOverflow)
		return
	}
	c.SetReg(rd, uint32(result))
}

func (c *CPU) opADDI(w uint32) {
	a := int32(c.Reg(rsOf(w)))
	b := simm16Of(w)
	result := a + b
	if overflowsAdd(a, b, result) {
		c.exception(CauseOverflow)
		return
	}
	c.SetReg(rtOf(w), uint32(result))
}

func (c *CPU) opADDIU(w uint32) {
	c.SetReg(rtOf(w), c.Reg(rsOf(w))+uint32(simm16Of(w)))
}

func overflowsAdd(a, b, result int32) bool {
	return ((a ^ result) & (b ^ result)) < 0
}

func overflowsSub(a, b, result int32) bool {
	return ((a ^ b) & (a ^ result)) < 0
}

// opDIV implements signed DIV: PSX does not trap on divide-by-zero,
// and i32::MIN / -1 yields a fixed pattern rather than an overflow.
func (c *CPU) opDIV(rs, rt uint8) {
	n, d := int32(c.Reg(rs)), int32(c.Reg(rt))
	switch {
	case d == 0:
		if n >= 0 {
			c.lo = 0xFFFFFFFF
		} else {
			c.lo = 1
		}
		c.hi = uint32(n)
	case uint32(n) == 0x8000_0000 && d == -1:
		c.lo = 0x8000_0000
		c.hi = 0
	default:
		c.lo = uint32(n / d)
		c.hi = uint32(n % d)
	}
}

func (c *CPU) opDIVU(rs, rt uint8) {
	n, d := c.Reg(rs), c.Reg(rt)
	if d == 0 {
		c.lo = 0xFFFFFFFF
		c.hi = n
		return
	}
	c.lo = n / d
	c.hi = n % d
}

// opLoad implements LB/LBU/LH/LHU/LW: compute the effective address,
// check alignment for halfword/word accesses, and schedule the loaded
// value through the load-delay slot.
func (c *CPU) opLoad(w uint32, size int, signed bool) {
	addr := c.Reg(rsOf(w)) + uint32(simm16Of(w))
	var value uint32
	switch size {
	case 1:
		b, err := c.bus.Read8(addr)
		if err != nil {
			c.handleBusError(err, addr, CauseAddressErrorLoad, CauseBusErrorData)
			return
		}
		if signed {
			value = uint32(int32(int8(b)))
		} else {
			value = uint32(b)
		}
	case 2:
		h, err := c.bus.Read16(addr)
		if err != nil {
			c.handleBusError(err, addr, CauseAddressErrorLoad, CauseBusErrorData)
			return
		}
		if signed {
			value = uint32(int32(int16(h)))
		} else {
			value = uint32(h)
		}
	default:
		v, err := c.bus.Read32(addr)
		if err != nil {
			c.handleBusError(err, addr, CauseAddressErrorLoad, CauseBusErrorData)
			return
		}
		value = v
	}
	c.setRegDelayed(rtOf(w), value)
}

func (c *CPU) opStore(w uint32, size int) {
	addr := c.Reg(rsOf(w)) + uint32(simm16Of(w))
	value := c.Reg(rtOf(w))
	var err error
	switch size {
	case 1:
		err = c.bus.Write8(addr, uint8(value))
	case 2:
		err = c.bus.Write16(addr, uint16(value))
	default:
		err = c.bus.Write32(addr, value)
	}
	if err != nil {
		c.handleBusError(err, addr, CauseAddressErrorStore, CauseBusErrorData)
	}
}

// opLWL/opLWR implement the unaligned-word load pair per the standard
// MIPS-I merge formula: the aligned word containing the address is
// read, and bytes are merged into the destination register according
// to the low two address bits, preserving the bytes the other half of
// the pair left untouched (the register's current value, or the
// pending load-delay value if one is outstanding for the same
// register, feeds the merge).
func (c *CPU) opLWL(w uint32) {
	addr := c.Reg(rsOf(w)) + uint32(simm16Of(w))
	aligned := addr &^ 3
	word, err := c.bus.Read32(aligned)
	if err != nil {
		c.handleBusError(err, addr, CauseAddressErrorLoad, CauseBusErrorData)
		return
	}
	rt := rtOf(w)
	cur := c.pendingOrCurrentReg(rt)
	var merged uint32
	switch addr & 3 {
	case 0:
		merged = (cur & 0x00FF_FFFF) | (word << 24)
	case 1:
		merged = (cur & 0x0000_FFFF) | (word << 16)
	case 2:
		merged = (cur & 0x0000_00FF) | (word << 8)
	default:
		merged = word
	}
	c.setRegDelayed(rt, merged)
}

func (c *CPU) opLWR(w uint32) {
	addr := c.Reg(rsOf(w)) + uint32(simm16Of(w))
	aligned := addr &^ 3
	word, err := c.bus.Read32(aligned)
	if err != nil {
		c.handleBusError(err, addr, CauseAddressErrorLoad, CauseBusErrorData)
		return
	}
	rt := rtOf(w)
	cur := c.pendingOrCurrentReg(rt)
	var merged uint32
	switch addr & 3 {
	case 0:
		merged = word
	case 1:
		merged = (cur & 0xFF00_0000) | (word >> 8)
	case 2:
		merged = (cur & 0xFFFF_0000) | (word >> 16)
	default:
		merged = (cur & 0xFFFF_FF00) | (word >> 24)
	}
	c.setRegDelayed(rt, merged)
}

func (c *CPU) opSWL(w uint32) {
	addr := c.Reg(rsOf(w)) + uint32(simm16Of(w))
	aligned := addr &^ 3
	cur, err := c.bus.Read32(aligned)
	if err != nil {
		c.handleBusError(err, addr, CauseAddressErrorStore, CauseBusErrorData)
		return
	}
	value := c.Reg(rtOf(w))
	var merged uint32
	switch addr & 3 {
	case 0:
		merged = (cur & 0xFFFF_FF00) | (value >> 24)
	case 1:
		merged = (cur & 0xFFFF_0000) | (value >> 16)
	case 2:
		merged = (cur & 0xFF00_0000) | (value >> 8)
	default:
		merged = value
	}
	if err := c.bus.Write32(aligned, merged); err != nil {
		c.handleBusError(err, addr, CauseAddressErrorStore, CauseBusErrorData)
	}
}

func (c *CPU) opSWR(w uint32) {
	addr := c.Reg(rsOf(w)) + uint32(simm16Of(w))
	aligned := addr &^ 3
	cur, err := c.bus.Read32(aligned)
	if err != nil {
		c.handleBusError(err, addr, CauseAddressErrorStore, CauseBusErrorData)
		return
	}
	value := c.Reg(rtOf(w))
	var merged uint32
	switch addr & 3 {
	case 0:
		merged = value
	case 1:
		merged = (cur & 0x0000_00FF) | (value << 8)
	case 2:
		merged = (cur & 0x0000_FFFF) | (value << 16)
	default:
		merged = (cur & 0x00FF_FFFF) | (value << 24)
	}
	if err := c.bus.Write32(aligned, merged); err != nil {
		c.handleBusError(err, addr, CauseAddressErrorStore, CauseBusErrorData)
	}
}
