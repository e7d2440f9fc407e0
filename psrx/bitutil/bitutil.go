// Package bitutil collects small bit-manipulation helpers shared across
// peripheral register files, working in 16/32-bit terms to match the
// width of PS1 registers.
package bitutil

// IsSet16 checks if the bit at the given index is 1 in a 16-bit value.
func IsSet16(index uint8, value uint16) bool {
	return (value>>index)&1 == 1
}

// Set16 returns value with the bit at index set to 1.
func Set16(index uint8, value uint16) uint16 {
	return value | (1 << index)
}

// Reset16 returns value with the bit at index set to 0.
func Reset16(index uint8, value uint16) uint16 {
	return value &^ (1 << index)
}

// IsSet32 checks if the bit at the given index is 1 in a 32-bit value.
func IsSet32(index uint8, value uint32) bool {
	return (value>>index)&1 == 1
}

// Set32 returns value with the bit at index set to 1.
func Set32(index uint8, value uint32) uint32 {
	return value | (1 << index)
}

// Reset32 returns value with the bit at index set to 0.
func Reset32(index uint8, value uint32) uint32 {
	return value &^ (1 << index)
}
