package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/kestrel-dev/go-psrx/internal/audiodump"
	"github.com/kestrel-dev/go-psrx/internal/termview"
	"github.com/kestrel-dev/go-psrx/psrx/system"
)

func main() {
	app := cli.NewApp()
	app.Name = "psrx"
	app.Description = "A PlayStation emulation core"
	app.Usage = "psrx [options] <cue file>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "bios",
			Usage: "Path to a 512KiB PS1 BIOS image",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without the terminal debug viewer",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "debug-view",
			Usage: "No effect: the tcell terminal debug viewer runs whenever --headless is not set",
		},
		cli.StringFlag{
			Name:  "dump-audio",
			Usage: "Path to write SPU output as a WAV file",
		},
		cli.BoolFlag{
			Name:  "trace",
			Usage: "Enable per-instruction CPU tracing",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("psrx: fatal", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	biosPath := c.String("bios")
	if biosPath == "" {
		cli.ShowAppHelp(c)
		return errors.New("a --bios path is required")
	}

	cuePath := ""
	if c.NArg() > 0 {
		cuePath = c.Args().Get(0)
	}

	sys := system.New()
	if err := sys.LoadBIOS(biosPath); err != nil {
		return err
	}
	if cuePath != "" {
		if err := sys.LoadGame(cuePath); err != nil {
			return err
		}
	}
	sys.EnableTracing(c.Bool("trace"))

	var dump *audiodump.Sink
	if path := c.String("dump-audio"); path != "" {
		d, err := audiodump.Create(path)
		if err != nil {
			return err
		}
		dump = d
		defer dump.Close()
	}

	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames option with a positive value")
		}
		return runHeadless(sys, frames, dump)
	}

	if dump != nil {
		go drainAudioPeriodically(sys, dump)
	}

	view, err := termview.New(sys)
	if err != nil {
		return err
	}
	return view.Run()
}

func runHeadless(sys *system.System, frames int, dump *audiodump.Sink) error {
	slog.Info("running headless", "frames", frames)
	for i := 0; i < frames; i++ {
		sys.RunFrame()
		if dump != nil {
			if err := dump.WriteSamples(sys.SPU().DrainSamples()); err != nil {
				return err
			}
		}
		if i%60 == 0 {
			slog.Info("frame progress", "completed", i, "total", frames)
		}
	}
	slog.Info("headless run complete", "frames", frames)
	return nil
}

// drainAudioPeriodically flushes buffered SPU samples to the dump sink
// while the interactive viewer runs the system on its own goroutine.
func drainAudioPeriodically(sys *system.System, dump *audiodump.Sink) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if err := dump.WriteSamples(sys.SPU().DrainSamples()); err != nil {
			slog.Error("audiodump: write failed", "error", err)
			return
		}
	}
}
