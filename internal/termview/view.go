// Package termview is a tcell-based terminal debug viewer: it blits
// the GPU's visible VRAM region as half-block characters alongside a
// CPU register pane and a scrolling log pane, and lets a user pause,
// single-step, or frame-step the running system.
package termview

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kestrel-dev/go-psrx/psrx/pad"
	"github.com/kestrel-dev/go-psrx/psrx/system"
)

const (
	visibleWidth  = 320
	visibleHeight = 240
	frameTime     = time.Second / 60

	registerPaneHeight = 8
	minTermWidth       = 100
	minTermHeight      = 30
)

type runState int

const (
	running runState = iota
	paused
	stepInstruction
	stepFrame
)

// View drives a tcell screen against a *system.System.
type View struct {
	screen tcell.Screen
	sys    *system.System
	pad1   *pad.Pad
	logs   *LogBuffer
	state  runState
	alive  bool
}

// New initializes the terminal and installs a log handler that feeds
// the view's log pane instead of (or in addition to) stderr.
func New(sys *system.System) (*View, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("termview: init terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("termview: init terminal: %w", err)
	}

	logs := NewLogBuffer(200)
	slog.SetDefault(slog.New(NewHandler(logs, slog.LevelDebug)))

	return &View{
		screen: screen,
		sys:    sys,
		pad1:   sys.Pad(0),
		logs:   logs,
		state:  running,
		alive:  true,
	}, nil
}

// Run drives the screen at 60Hz until the user quits or the process
// receives a termination signal.
func (v *View) Run() error {
	defer v.screen.Fini()

	v.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	v.screen.Clear()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	go v.handleInput()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for v.alive {
		select {
		case <-ticker.C:
			switch v.state {
			case running:
				v.sys.RunFrame()
			case stepFrame:
				v.sys.RunFrame()
				v.state = paused
			case stepInstruction:
				v.sys.Step()
				v.state = paused
			}
			v.render()
			v.screen.Show()
		case <-sigs:
			v.alive = false
		}
	}
	return nil
}

func (v *View) handleInput() {
	for v.alive {
		ev := v.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				v.alive = false
				return
			case tcell.KeyEnter:
				v.pad1.Press(pad.Start)
			case tcell.KeyUp:
				v.pad1.Press(pad.Up)
			case tcell.KeyDown:
				v.pad1.Press(pad.Down)
			case tcell.KeyLeft:
				v.pad1.Press(pad.Left)
			case tcell.KeyRight:
				v.pad1.Press(pad.Right)
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'a':
					v.pad1.Press(pad.Cross)
				case 's':
					v.pad1.Press(pad.Circle)
				case ' ':
					if v.state == paused {
						v.state = running
					} else {
						v.state = paused
					}
				case 'n':
					v.state = stepInstruction
				case 'f':
					v.state = stepFrame
				case 'r':
					v.state = running
				case 'p':
					v.state = paused
				}
			}
		case *tcell.EventResize:
			v.screen.Sync()
		}
	}
}

func (v *View) render() {
	w, h := v.screen.Size()
	if w < minTermWidth || h < minTermHeight {
		v.screen.Clear()
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		drawText(v.screen, 0, h/2, msg, tcell.StyleDefault.Foreground(tcell.ColorRed))
		return
	}
	v.screen.Clear()
	borderX := min(visibleWidth/2+1, w/2)
	v.drawBorder(w, h, borderX)
	v.drawFramebuffer()
	v.drawRegisters(borderX, w, h)
	v.drawLogs(borderX, w, h)
}

func (v *View) drawBorder(w, h, borderX int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for y := 0; y < h; y++ {
		v.screen.SetContent(borderX, y, '│', nil, style)
	}
	regEndY := registerPaneHeight + 1
	if regEndY < h {
		for x := borderX + 1; x < w; x++ {
			v.screen.SetContent(x, regEndY, '─', nil, style)
		}
		v.screen.SetContent(borderX, regEndY, '├', nil, style)
	}
	title := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	drawText(v.screen, 1, 0, " psrx ", title)
	drawText(v.screen, borderX+2, 0, " CPU ", title)
	if regEndY+1 < h {
		drawText(v.screen, borderX+2, regEndY+1, " Logs ", title)
	}
	if h > 4 {
		drawText(v.screen, 1, h-1, "SPACE=pause N=step F=step-frame R=resume  arrows/A/S=pad", style)
	}
}

// drawFramebuffer renders the GPU's visible VRAM region (halved
// vertically, two source rows per character cell) as BGR555-decoded
// half-block glyphs.
func (v *View) drawFramebuffer() {
	vram := v.sys.GPU().VRAM()
	ox, oy := v.sys.GPU().DisplayArea()

	for cy := 0; cy < visibleHeight/2; cy++ {
		for cx := 0; cx < visibleWidth; cx++ {
			top := vram.GetPixel(int(ox)+cx, int(oy)+cy*2)
			bottom := vram.GetPixel(int(ox)+cx, int(oy)+cy*2+1)
			ch, style := halfBlockGlyph(top, bottom)
			v.screen.SetContent(cx, cy+1, ch, nil, style)
		}
	}
}

// halfBlockGlyph packs two vertically-stacked pixels into one
// character cell using the upper-half-block trick: the glyph's
// foreground paints the top pixel, its background the bottom.
func halfBlockGlyph(top, bottom uint16) (rune, tcell.Style) {
	tr, tg, tb := unpackBGR555(top)
	br, bg, bb := unpackBGR555(bottom)
	style := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(tr), int32(tg), int32(tb))).
		Background(tcell.NewRGBColor(int32(br), int32(bg), int32(bb)))
	return '▀', style
}

func unpackBGR555(px uint16) (r, g, b uint8) {
	r = uint8((px & 0x1F) << 3)
	g = uint8(((px >> 5) & 0x1F) << 3)
	b = uint8(((px >> 10) & 0x1F) << 3)
	return
}

func (v *View) drawRegisters(borderX, w, h int) {
	c := v.sys.CPU()
	startX, startY := borderX+2, 1

	status := "RUNNING"
	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	switch v.state {
	case paused:
		status, style = "PAUSED", tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case stepInstruction:
		status, style = "STEP", tcell.StyleDefault.Foreground(tcell.ColorBlue)
	case stepFrame:
		status, style = "FRAME", tcell.StyleDefault.Foreground(tcell.ColorRed)
	}

	lines := []string{
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("PC: %#010x", c.PC()),
		fmt.Sprintf("at/v0/v1: %08x %08x %08x", c.Reg(1), c.Reg(2), c.Reg(3)),
		fmt.Sprintf("a0-a3:  %08x %08x %08x %08x", c.Reg(4), c.Reg(5), c.Reg(6), c.Reg(7)),
		fmt.Sprintf("sp/ra:  %08x %08x", c.Reg(29), c.Reg(31)),
	}
	regStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	for i, line := range lines {
		if startY+i >= registerPaneHeight+1 || startY+i >= h {
			break
		}
		s := regStyle
		if i == 0 {
			s = style
		}
		drawText(v.screen, startX, startY+i, clip(line, w-startX), s)
	}
}

func (v *View) drawLogs(borderX, w, h int) {
	startX := borderX + 2
	startY := registerPaneHeight + 2
	available := h - startY
	if available <= 0 {
		return
	}
	entries := v.logs.GetRecent(available)
	for i, e := range entries {
		style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
		switch e.Level {
		case slog.LevelWarn:
			style = tcell.StyleDefault.Foreground(tcell.ColorYellow)
		case slog.LevelError:
			style = tcell.StyleDefault.Foreground(tcell.ColorRed)
		}
		drawText(v.screen, startX, startY+i, clip(formatEntry(e), w-startX), style)
	}
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, ch := range text {
		s.SetContent(x+i, y, ch, nil, style)
	}
}

func clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
