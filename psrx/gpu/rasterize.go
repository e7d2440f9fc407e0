package gpu

// plot writes one pixel, honoring the draw area clip and the E6 mask
// settings.
func (c *Controller) plot(x, y int32, color Color, semiTransparent bool) {
	if !c.area.contains(x, y) {
		return
	}
	if c.mask.checkBeforeDraw && c.vram.GetPixel(int(x), int(y))&0x8000 != 0 {
		return
	}

	px := packBGR555(color, c.mask.setWhileDrawing)
	if semiTransparent {
		px = c.blend(int(x), int(y), color)
		if c.mask.setWhileDrawing {
			px |= 0x8000
		}
	}
	c.vram.SetPixel(int(x), int(y), px)
}

// blend applies the current E1 semi-transparency mode against the
// existing VRAM pixel.
func (c *Controller) blend(x, y int, fg Color) uint16 {
	bg := c.vram.GetPixel(x, y)
	br := int32(bg&0x1F) << 3
	bgc := int32((bg>>5)&0x1F) << 3
	bb := int32((bg>>10)&0x1F) << 3

	fr, fgc, fb := int32(fg.R), int32(fg.G), int32(fg.B)

	var r, g, b int32
	switch c.mode.semiTransparency {
	case stpHalfPlusHalf:
		r, g, b = (br+fr)/2, (bgc+fgc)/2, (bb+fb)/2
	case stpAddFull:
		r, g, b = br+fr, bgc+fgc, bb+fb
	case stpSubtract:
		r, g, b = br-fr, bgc-fgc, bb-fb
	case stpAddQuarter:
		r, g, b = br+fr/4, bgc+fgc/4, bb+fb/4
	}
	return packBGR555(Color{R: uint8(clampChannel(r)), G: uint8(clampChannel(g)), B: uint8(clampChannel(b))}, false)
}

func clampChannel(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// rasterizePolygon fills a flat- or Gouraud-shaded, optionally textured,
// optionally semi-transparent triangle using edge functions (verts must
// already include the draw offset).
func (c *Controller) rasterizePolygon(verts []vertex, textured, semiTransparent bool) {
	if len(verts) != 3 {
		return
	}
	a, b, cc := verts[0], verts[1], verts[2]

	minX, maxX := minInt32(a.X, b.X, cc.X), maxInt32(a.X, b.X, cc.X)
	minY, maxY := minInt32(a.Y, b.Y, cc.Y), maxInt32(a.Y, b.Y, cc.Y)

	area := edge(a, b, cc)
	if area == 0 {
		return
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := vertex{X: x, Y: y}
			w0 := edge(b, cc, p)
			w1 := edge(cc, a, p)
			w2 := edge(a, b, p)
			if area < 0 {
				if w0 > 0 || w1 > 0 || w2 > 0 {
					continue
				}
			} else {
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
			}

			l0, l1, l2 := float64(w0)/float64(area), float64(w1)/float64(area), float64(w2)/float64(area)

			var col Color
			if textured && !c.mode.textureDisabled {
				u := uint8(l0*float64(a.U) + l1*float64(b.U) + l2*float64(cc.U))
				v := uint8(l0*float64(a.V) + l1*float64(b.V) + l2*float64(cc.V))
				u, v = c.texWindow.apply(u, v)
				col = c.sampleTexture(u, v)
			} else {
				col = interpColor(a.C, b.C, cc.C, l0, l1, l2)
			}
			c.plot(x, y, col, semiTransparent)
		}
	}
}

func interpColor(a, b, cc Color, l0, l1, l2 float64) Color {
	return Color{
		R: uint8(clampChannel(int32(l0*float64(a.R) + l1*float64(b.R) + l2*float64(cc.R)))),
		G: uint8(clampChannel(int32(l0*float64(a.G) + l1*float64(b.G) + l2*float64(cc.G)))),
		B: uint8(clampChannel(int32(l0*float64(a.B) + l1*float64(b.B) + l2*float64(cc.B)))),
	}
}

func edge(a, b, p vertex) int32 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// sampleTexture fetches one texel from the current texture page at
// (u, v); no CLUT lookup is performed for 4-bit/8-bit depths.
// Direct 15-bit mode is the common case and is decoded exactly;
// paletted modes are approximated by reading the indexed VRAM word
// directly as a color, which keeps textured primitives visibly
// populated without a full CLUT pipeline.
func (c *Controller) sampleTexture(u, v uint8) Color {
	switch c.mode.textureDepth {
	case depth15Bit:
		px := c.vram.GetPixel(int(c.mode.texPageX)+int(u), int(c.mode.texPageY)+int(v))
		return unpackBGR555(px)
	case depth8Bit:
		px := c.vram.GetPixel(int(c.mode.texPageX)+int(u)/2, int(c.mode.texPageY)+int(v))
		return unpackBGR555(px)
	default: // depth4Bit
		px := c.vram.GetPixel(int(c.mode.texPageX)+int(u)/4, int(c.mode.texPageY)+int(v))
		return unpackBGR555(px)
	}
}

func unpackBGR555(px uint16) Color {
	return Color{
		R: uint8((px & 0x1F) << 3),
		G: uint8(((px >> 5) & 0x1F) << 3),
		B: uint8(((px >> 10) & 0x1F) << 3),
	}
}

func minInt32(vs ...int32) int32 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxInt32(vs ...int32) int32 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// rasterizeLine draws a straight line between two (possibly
// Gouraud-shaded) endpoints with Bresenham's algorithm.
func (c *Controller) rasterizeLine(a, b vertex, semiTransparent bool) {
	dx := absInt32(b.X - a.X)
	dy := -absInt32(b.Y - a.Y)
	sx := int32(1)
	if a.X > b.X {
		sx = -1
	}
	sy := int32(1)
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy

	x, y := a.X, a.Y
	steps := maxInt32(dx, -dy, 1)
	for i := int32(0); i <= steps; i++ {
		t := float64(i) / float64(steps)
		col := interpColor(a.C, b.C, Color{}, 1-t, t, 0)
		c.plot(x, y, col, semiTransparent)

		if x == b.X && y == b.Y {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// rasterizeRect fills a flat (or textured) axis-aligned rectangle of
// width x height pixels at (x, y) with a single solid/texture-sampled
// color.
func (c *Controller) rasterizeRect(x, y, width, height int32, color Color, textured, semiTransparent bool, u0, v0 uint8) {
	for row := int32(0); row < height; row++ {
		for col := int32(0); col < width; col++ {
			px, py := x+col, y+row
			drawColor := color
			if textured && !c.mode.textureDisabled {
				u, v := u0+uint8(col), v0+uint8(row)
				if c.mode.rectFlipX {
					u = u0 - uint8(col)
				}
				if c.mode.rectFlipY {
					v = v0 - uint8(row)
				}
				u, v = c.texWindow.apply(u, v)
				drawColor = c.sampleTexture(u, v)
			}
			c.plot(px, py, drawColor, semiTransparent)
		}
	}
}

// copyVRAMToVRAM implements the 0x80 command: a straight rectangular
// block copy within VRAM.
func (c *Controller) copyVRAMToVRAM(srcX, srcY, dstX, dstY, width, height int32) {
	for row := int32(0); row < height; row++ {
		for col := int32(0); col < width; col++ {
			v := c.vram.GetPixel(int(srcX+col), int(srcY+row))
			c.vram.SetPixel(int(dstX+col), int(dstY+row), v)
		}
	}
}
