// Command ps2replay runs recorded PS/2 scan codes through the polled
// driver and the translator against a simulated keyboard, and prints what
// a host would have seen.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/WestfW/ps2k"
	"github.com/WestfW/ps2k/internal/config"
	"github.com/WestfW/ps2k/internal/logger"
	"github.com/WestfW/ps2k/ps2sim"
)

func init() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(out, "  --%s", f.Name)
			name, usage := flag.UnquoteUsage(f)
			if len(name) > 0 {
				fmt.Fprintf(out, " %s", name)
			}
			fmt.Fprintf(out, "\n    \t%s", usage)
			if f.DefValue != "" && f.DefValue != "false" {
				fmt.Fprintf(out, " (default %q)", f.DefValue)
			}
			fmt.Fprintf(out, "\n")
		})
	}
}

type options struct {
	configPath string
	logLevel   string
	logFile    string
	bytes      string
	file       string
	send       string
	strict     bool
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&opts.logLevel, "log-level", "", "Set log level (trace|debug|info|warn|error)")
	flag.StringVar(&opts.logFile, "log-filename", "", "Log to file instead of stderr")
	flag.StringVar(&opts.bytes, "bytes", "", "Scan code bytes in hex, e.g. \"12 33 F0 33 F0 12\"")
	flag.StringVar(&opts.file, "file", "", "Capture file with hex scan code bytes ('-' for stdin)")
	flag.StringVar(&opts.send, "send", "", "Host to keyboard bytes in hex, sent before the replay")
	flag.BoolVar(&opts.strict, "strict", false, "Reject frames with bad parity or stop bit")
	flag.Parse()

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
	if opts.strict {
		cfg.Bus.StrictFraming = true
	}

	logger.SetLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		if err := logger.SetOutputFile(cfg.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer logger.CloseLogFile()
	}

	capture, err := loadCapture(opts)
	if err != nil {
		logger.Error("Failed to load scan codes", err)
		return 1
	}
	send, err := parseCapture(strings.NewReader(opts.send))
	if err != nil {
		logger.Error("Failed to parse --send", err)
		return 1
	}
	if len(capture) == 0 && len(send) == 0 {
		flag.Usage()
		return 2
	}

	r := newReplay(cfg, os.Stdout)
	if err := r.sendAll(send); err != nil {
		logger.Error("Send failed", err)
		return 1
	}
	r.dev.Queue(capture...)
	if err := r.readAll(context.Background()); err != nil {
		logger.Error("Replay failed", err)
		return 1
	}
	return 0
}

func loadCapture(opts options) ([]byte, error) {
	var out []byte
	if opts.bytes != "" {
		b, err := parseCapture(strings.NewReader(opts.bytes))
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}

	switch opts.file {
	case "":
	case "-":
		b, err := parseCapture(os.Stdin)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	default:
		f, err := os.Open(opts.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open capture: %w", err)
		}
		defer f.Close()
		b, err := parseCapture(f)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

var (
	eventColor = color.New(color.FgCyan)
	nameColor  = color.New(color.FgYellow)
	charColor  = color.New(color.FgGreen, color.Bold)
	errColor   = color.New(color.FgRed)
)

// replay wires a simulated keyboard to the driver and the translator.
type replay struct {
	cfg *config.Config
	dev *ps2sim.Device
	kb  *ps2k.Keyboard
	tr  ps2k.Translator
	out io.Writer
}

func newReplay(cfg *config.Config, out io.Writer) *replay {
	dev := ps2sim.New(cfg.SimOptions()...)
	return &replay{
		cfg: cfg,
		dev: dev,
		kb:  ps2k.New(dev.Pins(), cfg.Options(logger.Zerolog())...),
		out: out,
	}
}

func (r *replay) sendAll(bytes []byte) error {
	for _, b := range bytes {
		if err := r.kb.Send(b); err != nil {
			return fmt.Errorf("send %02X: %w", b, err)
		}
		rx := r.dev.Received()
		got := rx[len(rx)-1]
		status := "ok"
		if !got.ParityOK || !got.StopOK {
			status = errColor.Sprint("bad frame")
		}
		fmt.Fprintf(r.out, "%s %02X -> keyboard got %02X (%s)\n",
			eventColor.Sprint("send"), b, got.Byte, status)
	}
	return nil
}

// readAll reads events until the simulated keyboard has nothing left to
// send and the bus stays idle for the configured idle timeout.
func (r *replay) readAll(ctx context.Context) error {
	var typed strings.Builder
	for {
		rctx, cancel := context.WithTimeout(ctx, r.cfg.Bus.IdleTimeout)
		ev, err := r.kb.ReadEvent(rctx)
		cancel()

		if err != nil {
			if r.dev.Pending() == 0 && isIdle(err) {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(r.out, errColor.Sprint(err))
			if r.dev.Pending() == 0 {
				break
			}
			continue
		}

		c := r.tr.Translate(ev)
		fmt.Fprintln(r.out, r.describe(ev, c))
		if c != ps2k.NoKey {
			typed.WriteRune(c)
		}
	}
	fmt.Fprintf(r.out, "typed: %q\n", typed.String())
	return nil
}

func isIdle(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ps2k.ErrTimeout)
}

// describe formats one event line.
func (r *replay) describe(ev ps2k.Event, c rune) string {
	var b strings.Builder
	b.WriteString(eventColor.Sprintf("%-15s", ev.String()))
	if name := ps2k.KeyName(ev); name != "" {
		b.WriteString(" " + nameColor.Sprintf("%-10s", name))
	} else {
		fmt.Fprintf(&b, " %-10s", "")
	}
	if c != ps2k.NoKey {
		b.WriteString(" " + charColor.Sprintf("%q", c))
	}
	fmt.Fprintf(&b, " [%s]", r.tr.Modifiers())
	return b.String()
}
