// Package bus implements the PS1 memory bus: address translation, region
// routing to RAM/scratchpad/BIOS/expansion/I-O, alignment policy, and the
// i-cache invalidate/prefill queues the CPU drains between instructions.
// Structurally this generalizes a region-table dispatch (classify the
// address, delegate to the owning region) from a 16-bit address space to
// the PS1's 512MiB physical map.
package bus

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kestrel-dev/go-psrx/psrx/perr"
)

// ICachePrefill records a write that looked like an instruction fetch,
// so the CPU can prefill its i-cache line instead of only invalidating it.
type ICachePrefill struct {
	Addr uint32
	Word uint32
}

// ICacheRange is an inclusive [Start, End] byte range invalidated by a
// single write (used for block writes such as DMA transfers).
type ICacheRange struct {
	Start, End uint32
}

// Bus owns the flat memory regions and dispatches I/O accesses to
// registered devices. It has no peripheral-specific knowledge; System
// wires devices in via RegisterDevice.
type Bus struct {
	ram        []byte
	scratchpad []byte
	bios       []byte

	cacheControl uint32

	devices []registeredDevice

	icacheInvalidate      []uint32
	icacheInvalidateRange []ICacheRange
	icachePrefill         []ICachePrefill
}

type registeredDevice struct {
	start, end uint32
	dev        IODevice
}

// New returns a Bus with zeroed RAM/scratchpad/BIOS.
func New() *Bus {
	return &Bus{
		ram:        make([]byte, RAMSize),
		scratchpad: make([]byte, ScratchpadSize),
		bios:       make([]byte, BIOSSize),
	}
}

// Reset clears RAM and scratchpad (a power-cycle); BIOS and registered
// devices are untouched (BIOS is ROM, not cleared).
func (b *Bus) Reset() {
	for i := range b.ram {
		b.ram[i] = 0
	}
	for i := range b.scratchpad {
		b.scratchpad[i] = 0
	}
	b.cacheControl = 0
	b.icacheInvalidate = b.icacheInvalidate[:0]
	b.icacheInvalidateRange = b.icacheInvalidateRange[:0]
	b.icachePrefill = b.icachePrefill[:0]
}

// RegisterDevice wires an IODevice into the bus' I/O port dispatch. The
// device's own AddressRange is used for matching.
func (b *Bus) RegisterDevice(dev IODevice) {
	start, end := dev.AddressRange()
	b.devices = append(b.devices, registeredDevice{start: start, end: end, dev: dev})
}

// LoadBIOS loads a BIOS image from disk; the file must be exactly
// BIOSSize bytes.
func (b *Bus) LoadBIOS(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &perr.BiosNotFoundError{Path: path}
	}
	if len(data) != BIOSSize {
		return &perr.InvalidBiosSizeError{Expected: BIOSSize, Got: len(data)}
	}
	copy(b.bios, data)
	slog.Info("bios loaded", "path", path, "size", len(data))
	return nil
}

// translate maps a virtual address to a physical one by masking the top
// three bits. KSEG2 (cache control window) is handled by the caller
// before calling translate.
func translate(virt uint32) uint32 {
	return virt & 0x1FFF_FFFF
}

// DrainICacheInvalidate returns and clears the pending single-address
// i-cache invalidations accumulated since the last call.
func (b *Bus) DrainICacheInvalidate() []uint32 {
	out := b.icacheInvalidate
	b.icacheInvalidate = nil
	return out
}

// DrainICacheInvalidateRange returns and clears pending ranged
// invalidations (used for block writes like DMA).
func (b *Bus) DrainICacheInvalidateRange() []ICacheRange {
	out := b.icacheInvalidateRange
	b.icacheInvalidateRange = nil
	return out
}

// DrainICachePrefill returns and clears pending prefill records.
func (b *Bus) DrainICachePrefill() []ICachePrefill {
	out := b.icachePrefill
	b.icachePrefill = nil
	return out
}

func (b *Bus) invalidate(addr uint32) {
	b.icacheInvalidate = append(b.icacheInvalidate, addr)
}

func (b *Bus) invalidateRange(start, end uint32) {
	b.icacheInvalidateRange = append(b.icacheInvalidateRange, ICacheRange{Start: start, End: end})
}

func (b *Bus) prefill(addr, word uint32) {
	b.icachePrefill = append(b.icachePrefill, ICachePrefill{Addr: addr, Word: word})
}

// --- reads ---

// Read32 reads an aligned 32-bit word at the given virtual address.
func (b *Bus) Read32(virt uint32) (uint32, error) {
	if virt&0xFFFF_0000 == 0xFFFE_0000 {
		if virt == CacheControlAddr {
			return b.cacheControl, nil
		}
		return 0, &perr.InvalidMemoryAccessError{Address: virt}
	}
	if virt&3 != 0 {
		return 0, &perr.UnalignedAccessError{Address: virt, Size: 4}
	}
	phys := translate(virt)
	return b.readPhysical(phys, 4, virt)
}

// Read16 reads an aligned 16-bit halfword.
func (b *Bus) Read16(virt uint32) (uint16, error) {
	if virt&1 != 0 {
		return 0, &perr.UnalignedAccessError{Address: virt, Size: 2}
	}
	phys := translate(virt)
	v, err := b.readPhysical(phys, 2, virt)
	return uint16(v), err
}

// Read8 reads a single byte; always aligned.
func (b *Bus) Read8(virt uint32) (uint8, error) {
	phys := translate(virt)
	v, err := b.readPhysical(phys, 1, virt)
	return uint8(v), err
}

func (b *Bus) readPhysical(phys uint32, size int, virtForErr uint32) (uint32, error) {
	switch {
	case phys <= RAMEnd:
		return readLE(b.ram, phys, size), nil
	case phys >= ScratchpadStart && phys <= ScratchpadEnd:
		return readLE(b.scratchpad, phys-ScratchpadStart, size), nil
	case phys >= BIOSStart && phys <= BIOSEnd:
		return readLE(b.bios, phys-BIOSStart, size), nil
	case phys >= IOPortsStart && phys <= IOPortsEnd:
		return b.readIO(phys, size)
	case phys >= Expansion1Start && phys <= Expansion1End:
		if phys <= RomHeaderEnd {
			return 0, nil
		}
		return openBusValue(size), nil
	case phys >= Expansion3Start && phys <= Expansion3End:
		return openBusValue(size), nil
	default:
		slog.Warn("read from unmapped address", "addr", fmt.Sprintf("0x%08X", virtForErr))
		return 0, &perr.InvalidMemoryAccessError{Address: virtForErr}
	}
}

func (b *Bus) readIO(phys uint32, size int) (uint32, error) {
	for _, rd := range b.devices {
		if phys >= rd.start && phys <= rd.end {
			return rd.dev.ReadRegister(phys-rd.start, size*8), nil
		}
	}
	slog.Warn("read from unknown i/o port", "addr", fmt.Sprintf("0x%08X", phys))
	return 0, nil
}

func openBusValue(size int) uint32 {
	switch size {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	default:
		return 0xFFFF_FFFF
	}
}

func readLE(mem []byte, offset uint32, size int) uint32 {
	switch size {
	case 1:
		return uint32(mem[offset])
	case 2:
		return uint32(mem[offset]) | uint32(mem[offset+1])<<8
	default:
		return uint32(mem[offset]) | uint32(mem[offset+1])<<8 | uint32(mem[offset+2])<<16 | uint32(mem[offset+3])<<24
	}
}

func writeLE(mem []byte, offset uint32, size int, value uint32) {
	switch size {
	case 1:
		mem[offset] = byte(value)
	case 2:
		mem[offset] = byte(value)
		mem[offset+1] = byte(value >> 8)
	default:
		mem[offset] = byte(value)
		mem[offset+1] = byte(value >> 8)
		mem[offset+2] = byte(value >> 16)
		mem[offset+3] = byte(value >> 24)
	}
}

// --- writes ---

// Write32 writes an aligned 32-bit word.
func (b *Bus) Write32(virt, value uint32) error {
	if virt&0xFFFF_0000 == 0xFFFE_0000 {
		if virt == CacheControlAddr {
			b.cacheControl = value
			return nil
		}
		return &perr.InvalidMemoryAccessError{Address: virt}
	}
	if virt&3 != 0 {
		return &perr.UnalignedAccessError{Address: virt, Size: 4}
	}
	return b.writePhysical(translate(virt), 4, value, virt)
}

// Write16 writes an aligned 16-bit halfword.
func (b *Bus) Write16(virt uint32, value uint16) error {
	if virt&1 != 0 {
		return &perr.UnalignedAccessError{Address: virt, Size: 2}
	}
	return b.writePhysical(translate(virt), 2, uint32(value), virt)
}

// Write8 writes a single byte.
func (b *Bus) Write8(virt uint32, value uint8) error {
	return b.writePhysical(translate(virt), 1, uint32(value), virt)
}

func (b *Bus) writePhysical(phys uint32, size int, value, virtForErr uint32) error {
	switch {
	case phys <= RAMEnd:
		writeLE(b.ram, phys, size, value)
		b.noteCodeWrite(phys, size, value)
		return nil
	case phys >= ScratchpadStart && phys <= ScratchpadEnd:
		writeLE(b.scratchpad, phys-ScratchpadStart, size, value)
		return nil
	case phys >= BIOSStart && phys <= BIOSEnd:
		// ROM, read only -- writes are silently ignored.
		return nil
	case phys >= IOPortsStart && phys <= IOPortsEnd:
		return b.writeIO(phys, size, value)
	case phys >= Expansion1Start && phys <= Expansion1End:
		return nil
	case phys >= Expansion3Start && phys <= Expansion3End:
		return nil
	default:
		slog.Warn("write to unmapped address", "addr", fmt.Sprintf("0x%08X", virtForErr))
		return &perr.InvalidMemoryAccessError{Address: virtForErr}
	}
}

// noteCodeWrite appends i-cache maintenance records for RAM writes. A
// real i-cache would check tags; this core treats every RAM write as a
// candidate and leaves the invalidate/prefill queues for the CPU to
// drain between instructions.
func (b *Bus) noteCodeWrite(phys uint32, size int, value uint32) {
	b.invalidate(phys)
	if size == 4 && phys&3 == 0 {
		b.prefill(phys, value)
	}
}

// InvalidateRange is used by bulk writers (DMA) to enqueue one ranged
// invalidation instead of one per word.
func (b *Bus) InvalidateRange(start, end uint32) {
	b.invalidateRange(start, end)
}

func (b *Bus) writeIO(phys uint32, size int, value uint32) error {
	for _, rd := range b.devices {
		if phys >= rd.start && phys <= rd.end {
			rd.dev.WriteRegister(phys-rd.start, size*8, value)
			return nil
		}
	}
	slog.Warn("write to unknown i/o port", "addr", fmt.Sprintf("0x%08X", phys), "value", fmt.Sprintf("0x%X", value))
	return nil
}

// RAM exposes the raw RAM slice for devices that need bulk access (DMA).
func (b *Bus) RAM() []byte { return b.ram }
