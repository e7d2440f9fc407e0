package gpu

// writeGP1 dispatches a display-control command written to GP1: reset,
// DMA direction, display enable, and the display area/range registers.
func (c *Controller) writeGP1(word uint32) {
	opcode := uint8(word >> 24)
	switch opcode {
	case 0x00:
		c.resetGPU()
	case 0x01:
		c.cmdBuffer = nil
		c.inPolyline = false
		c.transfer = nil
	case 0x02:
		// acknowledge GPU IRQ: nothing latched on this controller yet.
	case 0x03:
		c.displayEnabled = word&1 == 0
	case 0x04:
		c.dmaDirection = uint8(word & 0x3)
	case 0x05:
		c.displayAreaX = word & 0x3FF
		c.displayAreaY = (word >> 10) & 0x1FF
	case 0x06, 0x07, 0x08:
		// horizontal/vertical display range, display mode: accepted, no
		// further effect since output is always the full VRAM surface.
	default:
	}
}

func (c *Controller) resetGPU() {
	c.Reset()
}
