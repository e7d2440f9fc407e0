package gpu

import "log/slog"

const (
	polyTerminator1 = 0x5000_5000
	polyTerminator2 = 0x5555_5555
)

// WriteGP0 implements dma.Port32/LinkedListPort's write side and the
// GP0 register: it feeds one 32-bit word into the command pipeline,
// routing to the active pixel transfer if one is in progress, to the
// polyline accumulator if one is open, or to the fixed-length command
// buffer otherwise.
func (c *Controller) WriteGP0(word uint32) {
	if c.transfer != nil && c.transfer.toVRAM {
		c.feedTransferPixels(word)
		return
	}
	if c.inPolyline {
		c.feedPolyline(word)
		return
	}

	if len(c.cmdBuffer) == 0 {
		c.cmdOpcode = uint8(word >> 24)
		c.cmdNeeded = c.commandLength(c.cmdOpcode, word)
	}
	c.cmdBuffer = append(c.cmdBuffer, word)

	if c.cmdNeeded < 0 {
		// Polyline: wait for the priming cmd/color + first-vertex words,
		// then switch to streaming mode.
		if len(c.cmdBuffer) >= -c.cmdNeeded {
			c.startPolyline(c.cmdBuffer)
			c.cmdBuffer = nil
		}
		return
	}
	if len(c.cmdBuffer) >= c.cmdNeeded {
		c.executeCommand(c.cmdBuffer)
		c.cmdBuffer = nil
	}
}

// commandLength returns the total word count (including the opcode
// word) a fixed-length GP0 command needs, or the negated priming-word
// count for a variable-length polyline.
func (c *Controller) commandLength(opcode uint8, first uint32) int {
	switch {
	case opcode == 0x00:
		return 1 // NOP
	case opcode == 0x01:
		return 1 // clear cache
	case opcode == 0x02:
		return 3 // fill rectangle in VRAM
	case opcode >= 0x20 && opcode <= 0x3F:
		return polygonWordCount(opcode)
	case opcode >= 0x40 && opcode <= 0x5F:
		if opcode&0x08 != 0 {
			return -2 // polyline: cmd/color word + first vertex word
		}
		words := 3 // cmd/color + 2 vertices
		if opcode&0x10 != 0 {
			words++ // extra color word for Gouraud
		}
		return words
	case opcode >= 0x60 && opcode <= 0x7F:
		return rectWordCount(opcode)
	case opcode == 0x80:
		return 4 // VRAM-to-VRAM copy: cmd, src xy, dst xy, wh
	case opcode == 0xA0:
		return 3 // CPU-to-VRAM: cmd, xy, wh (pixel data streamed after)
	case opcode == 0xC0:
		return 3 // VRAM-to-CPU: cmd, xy, wh
	case opcode >= 0xE1 && opcode <= 0xE6:
		return 1
	default:
		return 1
	}
}

func polygonWordCount(opcode uint8) int {
	quad := opcode&0x08 != 0
	textured := opcode&0x04 != 0
	gouraud := opcode&0x10 != 0
	vertices := 3
	if quad {
		vertices = 4
	}
	words := 1
	for i := 0; i < vertices; i++ {
		words++
		if textured {
			words++
		}
		if gouraud && i > 0 {
			words++
		}
	}
	return words
}

func rectWordCount(opcode uint8) int {
	textured := opcode&0x04 != 0
	sizeMode := (opcode >> 3) & 0x3
	words := 2 // cmd/color + position
	if textured {
		words++
	}
	if sizeMode == 0 {
		words++ // variable size word
	}
	return words
}

func (c *Controller) executeCommand(words []uint32) {
	opcode := uint8(words[0] >> 24)
	switch {
	case opcode == 0x00 || opcode == 0x01:
		// NOP / clear cache: no GPU-visible effect in this implementation.
	case opcode == 0x02:
		c.execFillRect(words)
	case opcode >= 0x20 && opcode <= 0x3F:
		c.execPolygon(words)
	case opcode >= 0x40 && opcode <= 0x5F:
		c.execLine(words)
	case opcode >= 0x60 && opcode <= 0x7F:
		c.execRect(words)
	case opcode == 0x80:
		c.execVRAMToVRAM(words)
	case opcode == 0xA0:
		c.execCPUToVRAM(words)
	case opcode == 0xC0:
		c.execVRAMToCPU(words)
	case opcode >= 0xE1 && opcode <= 0xE6:
		c.execDrawModeCommand(opcode, words[0])
	default:
		slog.Warn("gpu: unhandled GP0 command", "opcode", opcode)
	}
}

func (c *Controller) execDrawModeCommand(opcode uint8, word uint32) {
	switch opcode {
	case 0xE1:
		c.mode.set(word)
	case 0xE2:
		c.texWindow.set(word)
	case 0xE3:
		c.area.left = int32(word & 0x3FF)
		c.area.top = int32((word >> 10) & 0x3FF)
	case 0xE4:
		c.area.right = int32(word & 0x3FF)
		c.area.bottom = int32((word >> 10) & 0x3FF)
	case 0xE5:
		c.offsetX = signExtend11(word & 0x7FF)
		c.offsetY = signExtend11((word >> 11) & 0x7FF)
	case 0xE6:
		c.mask.set(word)
	}
}

func signExtend11(v uint32) int32 {
	x := int32(v)
	if x&0x400 != 0 {
		x -= 0x800
	}
	return x
}

func (c *Controller) execFillRect(words []uint32) {
	color := colorFromWord(words[0])
	x := int32(words[1] & 0xFFFF)
	y := int32(words[1] >> 16)
	w := int32(words[2] & 0xFFFF)
	h := int32(words[2] >> 16)
	for row := int32(0); row < h; row++ {
		for col := int32(0); col < w; col++ {
			c.vram.SetPixel(int(x+col), int(y+row), packBGR555(color, false))
		}
	}
}

func (c *Controller) execPolygon(words []uint32) {
	opcode := uint8(words[0] >> 24)
	quad := opcode&0x08 != 0
	textured := opcode&0x04 != 0
	semiTransparent := opcode&0x02 != 0
	gouraud := opcode&0x10 != 0

	vertices := 3
	if quad {
		vertices = 4
	}

	baseColor := colorFromWord(words[0])
	verts := make([]vertex, 0, vertices)
	idx := 1
	for i := 0; i < vertices; i++ {
		v := vertex{C: baseColor}
		if gouraud && i > 0 {
			v.C = colorFromWord(words[idx])
			idx++
		}
		x, y := vertexFromWord(words[idx])
		idx++
		v.X, v.Y = x+c.offsetX, y+c.offsetY
		if textured {
			v.U, v.V = texCoordFromWord(words[idx])
			idx++
		}
		verts = append(verts, v)
	}

	c.rasterizePolygon(verts[:3], textured, semiTransparent)
	if quad {
		c.rasterizePolygon([]vertex{verts[0], verts[2], verts[3]}, textured, semiTransparent)
	}
}

func (c *Controller) execLine(words []uint32) {
	opcode := uint8(words[0] >> 24)
	semiTransparent := opcode&0x02 != 0
	gouraud := opcode&0x10 != 0

	c0 := colorFromWord(words[0])
	x0, y0 := vertexFromWord(words[1])
	a := vertex{X: x0 + c.offsetX, Y: y0 + c.offsetY, C: c0}

	idx := 2
	c1 := c0
	if gouraud {
		c1 = colorFromWord(words[idx])
		idx++
	}
	x1, y1 := vertexFromWord(words[idx])
	b := vertex{X: x1 + c.offsetX, Y: y1 + c.offsetY, C: c1}

	c.rasterizeLine(a, b, semiTransparent)
}

func (c *Controller) startPolyline(words []uint32) {
	opcode := uint8(words[0] >> 24)
	c.inPolyline = true
	c.polylineGouraud = opcode&0x10 != 0

	col := colorFromWord(words[0])
	x, y := vertexFromWord(words[1])
	c.polylineVerts = []vertex{{X: x + c.offsetX, Y: y + c.offsetY, C: col}}
}

func (c *Controller) feedPolyline(word uint32) {
	if word == polyTerminator1 || word == polyTerminator2 {
		c.inPolyline = false
		c.polylineVerts = nil
		c.hasPendingColor = false
		return
	}

	last := c.polylineVerts[len(c.polylineVerts)-1]

	if c.polylineGouraud && !c.hasPendingColor {
		c.pendingColor = colorFromWord(word)
		c.hasPendingColor = true
		return
	}

	col := last.C
	if c.polylineGouraud {
		col = c.pendingColor
		c.hasPendingColor = false
	}
	x, y := vertexFromWord(word)
	v := vertex{X: x + c.offsetX, Y: y + c.offsetY, C: col}
	c.rasterizeLine(last, v, false)
	c.polylineVerts = append(c.polylineVerts, v)
}

func (c *Controller) execRect(words []uint32) {
	opcode := uint8(words[0] >> 24)
	textured := opcode&0x04 != 0
	semiTransparent := opcode&0x02 != 0
	sizeMode := (opcode >> 3) & 0x3

	color := colorFromWord(words[0])
	x, y := vertexFromWord(words[1])
	x, y = x+c.offsetX, y+c.offsetY

	idx := 2
	var u0, v0 uint8
	if textured {
		u0, v0 = texCoordFromWord(words[idx])
		idx++
	}

	var w, h int32
	switch sizeMode {
	case 1:
		w, h = 1, 1
	case 2:
		w, h = 8, 8
	case 3:
		w, h = 16, 16
	default:
		wh := words[idx]
		w = int32(wh & 0xFFFF)
		h = int32(wh >> 16)
	}

	c.rasterizeRect(x, y, w, h, color, textured, semiTransparent, u0, v0)
}

func (c *Controller) execVRAMToVRAM(words []uint32) {
	srcX, srcY := vertexFromWord(words[1])
	dstX, dstY := vertexFromWord(words[2])
	w := int32(words[3] & 0xFFFF)
	h := int32(words[3] >> 16)
	c.copyVRAMToVRAM(srcX, srcY, dstX, dstY, w, h)
}

func (c *Controller) execCPUToVRAM(words []uint32) {
	x, y := vertexFromWord(words[1])
	w := int32(words[2] & 0xFFFF)
	h := int32(words[2] >> 16)
	c.transfer = &transferState{x: x, y: y, width: w, height: h, toVRAM: true}
}

func (c *Controller) feedTransferPixels(word uint32) {
	t := c.transfer
	total := t.width * t.height
	for i := 0; i < 2 && t.cur < total; i++ {
		px := uint16(word >> (16 * uint(i)))
		row := t.cur / t.width
		col := t.cur % t.width
		c.vram.SetPixel(int(t.x+col), int(t.y+row), px)
		t.cur++
	}
	if t.cur >= total {
		c.transfer = nil
	}
}

func (c *Controller) execVRAMToCPU(words []uint32) {
	x, y := vertexFromWord(words[1])
	w := int32(words[2] & 0xFFFF)
	h := int32(words[2] >> 16)
	c.readQueue = c.readQueue[:0]
	for row := int32(0); row < h; row++ {
		for col := int32(0); col < w; col++ {
			c.readQueue = append(c.readQueue, c.vram.GetPixel(int(x+col), int(y+row)))
		}
	}
}
