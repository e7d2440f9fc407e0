// Package cpu implements the MIPS R3000A interpreter: the fetch-decode-
// execute loop, delay-slot bookkeeping, exception entry/return, and
// the execution-budget loop that drives the scheduler's downcount.
package cpu

import (
	"errors"
	"log/slog"

	"github.com/kestrel-dev/go-psrx/psrx/bus"
	"github.com/kestrel-dev/go-psrx/psrx/cpu/cop0"
	"github.com/kestrel-dev/go-psrx/psrx/gte"
	"github.com/kestrel-dev/go-psrx/psrx/irq"
	"github.com/kestrel-dev/go-psrx/psrx/perr"
	"github.com/kestrel-dev/go-psrx/psrx/scheduler"
)

// ExceptionCause enumerates the CAUSE register's defined exception
// codes (CAUSE bits 6:2).
type ExceptionCause uint32

const (
	CauseInterrupt            ExceptionCause = 0
	CauseAddressErrorLoad     ExceptionCause = 4
	CauseAddressErrorStore    ExceptionCause = 5
	CauseBusErrorInstruction  ExceptionCause = 6
	CauseBusErrorData         ExceptionCause = 7
	CauseSyscall              ExceptionCause = 8
	CauseBreakpoint           ExceptionCause = 9
	CauseReservedInstruction  ExceptionCause = 10
	CauseCoprocessorUnusable  ExceptionCause = 11
	CauseOverflow             ExceptionCause = 12
)

const resetVector uint32 = 0xBFC0_0000

// CPU is the R3000A register file plus the interpreter loop. It holds
// no ownership over the bus/interrupt controller/scheduler — System
// wires those in via New, mirroring the bus's device-registration
// pattern rather than the CPU owning its peripherals.
type CPU struct {
	regs   [32]uint32
	pc     uint32
	nextPC uint32
	hi, lo uint32

	inBranchDelay bool

	// The R3000A has no register forwarding for loads: a load's result
	// isn't visible to the instruction right after it (the delay slot),
	// only to the one after that. hasLoadDelay/loadDelayReg/loadDelayVal
	// is the load issued by the instruction that just executed; at the
	// top of the next Step it is promoted into hasLandingLoad, which
	// commits to regs at the top of the Step after that — LWL/LWR read
	// the promoted-but-uncommitted value directly (see
	// pendingOrCurrentReg) since hardware forwards it to them specially.
	hasLoadDelay bool
	loadDelayReg uint8
	loadDelayVal uint32

	hasLandingLoad bool
	landingLoadReg uint8
	landingLoadVal uint32

	cop0 *cop0.COP0
	gte  *gte.GTE

	bus   *bus.Bus
	irq   *irq.IRQController
	sched *scheduler.Scheduler

	current uint32 // instruction word being executed, for diagnostics/tracing
	tracing bool
}

// New returns a CPU wired to the given bus, interrupt controller and
// scheduler, reset to the BIOS entry point.
func New(b *bus.Bus, ic *irq.IRQController, sched *scheduler.Scheduler) *CPU {
	c := &CPU{
		cop0:  cop0.New(),
		gte:   gte.New(),
		bus:   b,
		irq:   ic,
		sched: sched,
	}
	c.Reset()
	return c
}

// Reset restores power-on state: PC at the BIOS entry point, all GPRs
// zeroed, COP0/GTE register files cleared.
func (c *CPU) Reset() {
	c.regs = [32]uint32{}
	c.pc = resetVector
	c.nextPC = resetVector + 4
	c.hi, c.lo = 0, 0
	c.inBranchDelay = false
	c.hasLoadDelay = false
	c.hasLandingLoad = false
	c.cop0.Reset()
	c.gte.Reset()
}

// EnableTracing turns on per-instruction slog.Debug emission (costly;
// intended for targeted debugging sessions, not routine runs).
func (c *CPU) EnableTracing(on bool) { c.tracing = on }

// PC returns the address of the next instruction to fetch (debug use).
func (c *CPU) PC() uint32 { return c.pc }

// Reg returns general-purpose register n; r0 always reads zero.
func (c *CPU) Reg(n uint8) uint32 {
	if n == 0 {
		return 0
	}
	return c.regs[n]
}

// SetReg writes general-purpose register n; writes to r0 are dropped.
func (c *CPU) SetReg(n uint8, v uint32) {
	if n != 0 {
		c.regs[n] = v
	}
}

// setRegDelayed schedules v to land in register n one instruction after
// the delay slot — it replaces whatever load this instruction itself
// had pending; it must not touch hasLandingLoad, which already holds an
// earlier load queued to commit at the top of the next Step.
func (c *CPU) setRegDelayed(n uint8, v uint32) {
	c.hasLoadDelay = n != 0
	c.loadDelayReg = n
	c.loadDelayVal = v
}

// pendingOrCurrentReg returns the value LWL/LWR must merge against: the
// R3000A forwards an in-flight load's result to an immediately
// following LWL/LWR targeting the same register, bypassing the normal
// one-instruction delay that applies to every other instruction.
func (c *CPU) pendingOrCurrentReg(n uint8) uint32 {
	if c.hasLandingLoad && c.landingLoadReg == n {
		return c.landingLoadVal
	}
	return c.Reg(n)
}

// Step executes exactly one instruction and returns its cycle cost.
func (c *CPU) Step() int {
	c.inBranchDelay = false

	// Land the load staged by the delay-slot instruction's predecessor
	// (promoted a step ago), then promote this step's still-pending
	// load so the delay-slot instruction about to execute reads the
	// pre-load register value, not the loaded one.
	if c.hasLandingLoad {
		c.SetReg(c.landingLoadReg, c.landingLoadVal)
	}
	c.hasLandingLoad = c.hasLoadDelay
	c.landingLoadReg = c.loadDelayReg
	c.landingLoadVal = c.loadDelayVal
	c.hasLoadDelay = false

	if c.pc&0x3 != 0 {
		c.cop0.Write(cop0.RegBADA, c.pc)
		c.exception(CauseAddressErrorLoad)
		return 1
	}

	word, err := c.bus.Read32(c.pc)
	if err != nil {
		c.handleBusError(err, c.pc, CauseAddressErrorLoad, CauseBusErrorInstruction)
		return 1
	}
	c.current = word

	c.pc = c.nextPC
	c.nextPC += 4

	c.dispatch(word)
	return 1
}

// Execute drains the scheduler's cycle budget, stepping until the
// accumulated pending ticks reach the downcount, then returns so the
// caller can run due scheduler events.
func (c *CPU) Execute() {
	for !c.sched.ShouldDrain() {
		cost := c.Step()
		c.sched.AddPendingTicks(int32(cost))
	}
}

// handleBusError converts a bus fault into the matching MIPS
// exception; perr.UnalignedAccessError in particular must never
// surface past the interpreter (see psrx/perr's package doc).
func (c *CPU) handleBusError(err error, addr uint32, alignCause, otherCause ExceptionCause) {
	var unaligned *perr.UnalignedAccessError
	c.cop0.Write(cop0.RegBADA, addr)
	if errors.As(err, &unaligned) {
		c.exception(alignCause)
		return
	}
	slog.Warn("cpu: bus error", "addr", addr, "err", err)
	c.exception(otherCause)
}

// branch sets next_pc to pc+offset (pc already points one past the
// branch, per the fetch/advance step) and marks the following
// instruction as executing in a delay slot.
func (c *CPU) branch(offset int32) {
	c.nextPC = uint32(int32(c.pc) + offset)
	c.inBranchDelay = true
}

// jumpAbsolute sets next_pc directly (JR/JALR/J/JAL) and marks the
// delay slot.
func (c *CPU) jumpAbsolute(target uint32) {
	c.nextPC = target
	c.inBranchDelay = true
}

// exception performs the five-step sequence spec.md documents: shift
// SR's mode stack, record the cause and branch-delay bit, compute EPC,
// and redirect fetch to the exception vector.
func (c *CPU) exception(cause ExceptionCause) {
	bd := c.inBranchDelay
	c.cop0.EnterException(uint32(cause), bd)

	var epc uint32
	if bd {
		epc = c.pc - 8
	} else {
		epc = c.pc - 4
	}
	c.cop0.SetEPC(epc)

	vector := c.cop0.ExceptionVector()
	c.pc = vector
	c.nextPC = vector + 4

	c.inBranchDelay = false
	c.hasLoadDelay = false
	c.hasLandingLoad = false
}

// CheckInterrupts implements check_interrupts: it writes the
// controller's pending mask into CAUSE and raises a MIPS Interrupt
// exception if the CPU currently has interrupts unmasked.
func (c *CPU) CheckInterrupts() {
	c.cop0.SetPendingInterrupts(c.irq.PendingMask())
	if c.cop0.InterruptPending() {
		c.exception(CauseInterrupt)
	}
}

// rfe implements the RFE instruction: restore the previous SR mode
// pair (reverse of exception entry's left-shift). It does not touch PC.
func (c *CPU) rfe() {
	c.cop0.ReturnFromException()
}
