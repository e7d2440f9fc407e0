// Package cop0 implements the R3000A's System Control Coprocessor: the
// 32-register file backing exception handling (SR, CAUSE, EPC) and the
// hardware debug registers, plus the status-register mode-stack shifts
// exception entry/RFE perform.
package cop0

// Register indices documented as having defined behavior; all others
// are plain read-as-written storage.
const (
	RegBPC   = 3
	RegBDA   = 5
	RegTAR   = 6
	RegDCIC  = 7
	RegBADA  = 8
	RegBDAM  = 9
	RegBPCM  = 11
	RegSR    = 12
	RegCause = 13
	RegEPC   = 14
	RegPRID  = 15
)

// SR bit positions relevant outside this package.
const (
	srIEc   = 1 << 0 // current interrupt enable
	srKUc   = 1 << 1 // current kernel/user mode (0 = kernel)
	srIM    = 0xFF00 // interrupt mask, bits 8-15
	srBEV   = 1 << 22
	srModeStackMask = 0x3F
)

// COP0 holds the 32 system-control registers.
type COP0 struct {
	regs [32]uint32
}

// New returns a COP0 with PRID set to the documented R3000A value and
// SR set to its power-on reset state (BEV clear: the first exception
// vectors through RAM at 0x8000_0080, not the boot ROM).
func New() *COP0 {
	c := &COP0{}
	c.regs[RegPRID] = 0x0000_0002
	c.regs[RegSR] = 0x1090_0000
	return c
}

// Read returns a register's raw value.
func (c *COP0) Read(reg uint8) uint32 {
	if reg >= 32 {
		return 0
	}
	return c.regs[reg]
}

// Write stores a register's raw value. Registers without a documented
// write-mask simply store whatever is written.
func (c *COP0) Write(reg uint8, value uint32) {
	if reg >= 32 {
		return
	}
	c.regs[reg] = value
}

// SR, Cause, and EPC are named accessors for the three registers the
// CPU's exception path touches every time.
func (c *COP0) SR() uint32      { return c.regs[RegSR] }
func (c *COP0) SetSR(v uint32)  { c.regs[RegSR] = v }
func (c *COP0) Cause() uint32     { return c.regs[RegCause] }
func (c *COP0) SetCause(v uint32) { c.regs[RegCause] = v }
func (c *COP0) EPC() uint32       { return c.regs[RegEPC] }
func (c *COP0) SetEPC(v uint32)   { c.regs[RegEPC] = v }

// IEc reports the current (post-exception-stack) global interrupt
// enable bit.
func (c *COP0) IEc() bool { return c.regs[RegSR]&srIEc != 0 }

// IM returns the 8-bit interrupt mask (SR bits 8-15).
func (c *COP0) IM() uint32 { return (c.regs[RegSR] & srIM) >> 8 }

// BEV reports whether the boot exception vector (0xBFC0_0180) should be
// used instead of the RAM vector (0x8000_0080).
func (c *COP0) BEV() bool { return c.regs[RegSR]&srBEV != 0 }

// EnterException shifts SR's three mode-pairs left by two (pushing
// current->previous, previous->older, and clearing the new current
// pair to kernel-mode/interrupts-disabled), and writes the cause code
// and branch-delay bit into CAUSE.
func (c *COP0) EnterException(cause uint32, inBranchDelay bool) {
	sr := c.regs[RegSR]
	stack := sr & srModeStackMask
	sr = (sr &^ srModeStackMask) | ((stack << 2) & srModeStackMask)
	c.regs[RegSR] = sr

	cr := c.regs[RegCause] &^ (0x1F << 2)
	cr |= (cause & 0x1F) << 2
	if inBranchDelay {
		cr |= 1 << 31
	} else {
		cr &^= 1 << 31
	}
	c.regs[RegCause] = cr
}

// ExceptionVector returns the physical address execution resumes at
// after an exception, per the current BEV setting.
func (c *COP0) ExceptionVector() uint32 {
	if c.BEV() {
		return 0xBFC0_0180
	}
	return 0x8000_0080
}

// ReturnFromException shifts SR's mode-pairs right by two, restoring
// the mode that was interrupted (the RFE instruction's effect; it does
// not touch PC itself).
func (c *COP0) ReturnFromException() {
	sr := c.regs[RegSR]
	stack := sr & srModeStackMask
	sr = (sr &^ srModeStackMask) | (stack >> 2)
	c.regs[RegSR] = sr
}

// SetPendingInterrupts writes the eight interrupt-controller pending
// bits into CAUSE bits 8-15, as check_interrupts does each step.
func (c *COP0) SetPendingInterrupts(pending uint32) {
	c.regs[RegCause] = (c.regs[RegCause] &^ srIM) | ((pending << 8) & srIM)
}

// InterruptPending reports whether IEc is set and any unmasked pending
// interrupt bit is set.
func (c *COP0) InterruptPending() bool {
	if !c.IEc() {
		return false
	}
	pending := (c.regs[RegCause] & srIM) >> 8
	return pending&c.IM() != 0
}

// Reset restores power-on defaults.
func (c *COP0) Reset() {
	c.regs = [32]uint32{}
	c.regs[RegPRID] = 0x0000_0002
	c.regs[RegSR] = 0x1090_0000
}
