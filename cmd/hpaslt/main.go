// SPDX-License-Identifier: EPL-2.0

// Command hpaslt plays and analyzes audio files from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/ik5/hpaslt"
	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/playback"
)

var (
	backendName = flag.String("backend", "oto", "Playback backend (oto, malgo, null)")
	device      = flag.String("device", "", "Output device ID or name (default device if empty)")
	listDevices = flag.Bool("list-devices", false, "List output devices and exit")
	fftName     = flag.String("fft", "gonum", "FFT implementation (gonum, dsp)")
	nfft        = flag.Int("nfft", 512, "Spectrogram frame size, a power of two")
	frames      = flag.Int("frames", playback.DefaultFramesPerBuffer, "Output period size in frames")
	threshold   = flag.Int("threshold", 8192, "Waveform view resolution in points")
	logFile     = flag.String("log-file", "hpaslt.log", "Log file path")
	logLevel    = flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	noTUI       = flag.Bool("no-tui", false, "Play the file without the terminal interface")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [file]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "hpaslt: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (*logrus.Logger, io.Closer, error) {
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		return nil, nil, err
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *logFile == "" || *logFile == "-" {
		log.SetOutput(os.Stderr)
		return log, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(*logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return log, f, nil
}

func run(path string) error {
	log, closer, err := newLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	cfg := hpaslt.DefaultConfig()
	cfg.Backend = *backendName
	cfg.Device = *device
	cfg.FFT = *fftName
	cfg.Nfft = *nfft
	cfg.FramesPerBuffer = *frames
	cfg.WaveformThreshold = *threshold

	app, err := hpaslt.New(cfg, hpaslt.WithLogger(log))
	if err != nil {
		return err
	}
	defer app.Close()

	if *listDevices {
		return printDevices(os.Stdout, app.Engine().Backend())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *noTUI {
		if path == "" {
			return errors.New("a file is required with -no-tui")
		}
		return playHeadless(ctx, app, path)
	}

	p := tea.NewProgram(newModel(app, path), tea.WithAltScreen(), tea.WithContext(ctx))
	app.Loader().Loaded().Subscribe(func(*audio.Buffer) { p.Send(loadedMsg{}) })
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func printDevices(w io.Writer, backend playback.Backend) error {
	devices, err := backend.Devices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %s\t%s\n", mark, d.ID, d.Name)
	}
	return nil
}

// playHeadless plays path to the end, printing progress once a second.
func playHeadless(ctx context.Context, app *hpaslt.App, path string) error {
	if err := app.Load(ctx, path); err != nil {
		return err
	}

	eng := app.Engine()
	done := make(chan struct{})
	var once sync.Once
	eng.StatusChanged().Subscribe(func(playing bool) {
		if !playing && eng.State() == playback.Completed {
			once.Do(func() { close(done) })
		}
	})

	last := time.Time{}
	eng.TimeChanged().Subscribe(func(ev playback.TimeEvent) {
		if time.Since(last) >= time.Second {
			last = time.Now()
			fmt.Printf("\r%s / %s", formatTime(ev.Time), formatTime(ev.Length))
		}
	})

	if err := eng.Play(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = eng.Run(runCtx, 50*time.Millisecond) }()

	select {
	case <-done:
		fmt.Println()
		return nil
	case <-ctx.Done():
		fmt.Println()
		return eng.Stop()
	}
}

func formatTime(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
