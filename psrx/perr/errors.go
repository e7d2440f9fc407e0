// Package perr collects the error taxonomy surfaced across the core, per
// the propagation policy: CPU-visible faults are handled inside the
// interpreter as MIPS exceptions and never reach here; only configuration
// and hard bus failures do.
package perr

import "fmt"

// BiosNotFoundError is returned when the BIOS image path cannot be opened.
type BiosNotFoundError struct {
	Path string
}

func (e *BiosNotFoundError) Error() string {
	return fmt.Sprintf("bios file not found: %s", e.Path)
}

// InvalidBiosSizeError is returned when a BIOS image isn't exactly 512KiB.
type InvalidBiosSizeError struct {
	Expected, Got int
}

func (e *InvalidBiosSizeError) Error() string {
	return fmt.Sprintf("invalid bios size: %d bytes (expected %d)", e.Got, e.Expected)
}

// InvalidMemoryAccessError is returned for reads/writes to an unmapped
// physical range that cannot be classified as open bus.
type InvalidMemoryAccessError struct {
	Address uint32
}

func (e *InvalidMemoryAccessError) Error() string {
	return fmt.Sprintf("invalid memory access at 0x%08X", e.Address)
}

// UnalignedAccessError is raised internally by the bus; the CPU converts
// it into AddressErrorLoad/AddressErrorStore and never lets it surface.
type UnalignedAccessError struct {
	Address uint32
	Size    uint8
}

func (e *UnalignedAccessError) Error() string {
	return fmt.Sprintf("unaligned memory access: %d-byte access at 0x%08X", e.Size, e.Address)
}

// UnsupportedInstructionError is reserved for opcodes the interpreter
// elects not to silently skip. In practice most unknown opcodes are
// logged and treated as a NOP by the decoder.
type UnsupportedInstructionError struct {
	Word uint32
}

func (e *UnsupportedInstructionError) Error() string {
	return fmt.Sprintf("unsupported instruction: 0x%08X", e.Word)
}

// CPUExceptionError is a descriptive fault unrelated to a MIPS-defined
// exception cause (used sparingly, e.g. a malformed trace sink).
type CPUExceptionError struct {
	Msg string
}

func (e *CPUExceptionError) Error() string {
	return fmt.Sprintf("cpu exception: %s", e.Msg)
}

// LoaderError wraps disc/BIOS loader failures that don't fit a more
// specific type (e.g. SYSTEM.CNF parsing, when attempted).
type LoaderError struct {
	Msg string
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("loader error: %s", e.Msg)
}

// GpuErrorKind enumerates the GPU error taxonomy.
type GpuErrorKind int

const (
	GpuInvalidVramAccess GpuErrorKind = iota
	GpuInvalidGp0Command
	GpuInvalidGp1Command
	GpuDmaError
	GpuBackendError
)

// GpuError is a GPU-specific error carrying a kind and a descriptive message.
type GpuError struct {
	Kind GpuErrorKind
	Msg  string
}

func (e *GpuError) Error() string {
	return fmt.Sprintf("gpu error: %s", e.Msg)
}

// CdRomErrorKind enumerates the CD-ROM error taxonomy.
type CdRomErrorKind int

const (
	CdRomNoDisc CdRomErrorKind = iota
	CdRomInvalidSector
	CdRomReadError
	CdRomInvalidCommand
	CdRomInvalidParameterCount
	CdRomSeekError
	CdRomDiscLoadError
	CdRomIoError
)

// CdRomError is a CD-ROM specific error carrying a kind and message.
type CdRomError struct {
	Kind CdRomErrorKind
	Msg  string
}

func (e *CdRomError) Error() string {
	return fmt.Sprintf("cdrom error: %s", e.Msg)
}
