package ps2k_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/WestfW/ps2k"
	"github.com/WestfW/ps2k/ps2sim"
)

func noDelay(time.Duration) {}

func newKeyboard(t *testing.T, opts ...ps2sim.Option) (*ps2sim.Device, *ps2k.Keyboard) {
	t.Helper()
	dev := ps2sim.New(opts...)
	kb := ps2k.New(dev.Pins(), ps2k.WithDelay(noDelay))
	if !dev.ClockInhibited() {
		t.Fatal("New did not inhibit the clock")
	}
	return dev, kb
}

func TestReadEvent(t *testing.T) {
	cases := []struct {
		name  string
		bytes []byte
		want  ps2k.Event
	}{
		{"press", []byte{0x1C}, ps2k.Event{Code: 0x1C}},
		{"release", []byte{0xF0, 0x1C}, ps2k.Event{Code: 0x1C, Kind: ps2k.Release}},
		{"extended press", []byte{0xE0, 0x75}, ps2k.Event{Code: 0x75, Extended: true}},
		{"extended release", []byte{0xE0, 0xF0, 0x75}, ps2k.Event{Code: 0x75, Kind: ps2k.Release, Extended: true}},
		{"high code", []byte{0x83}, ps2k.Event{Code: 0x83}},
		{"ack", []byte{0xFA}, ps2k.Event{Code: 0xFA}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dev, kb := newKeyboard(t)
			dev.Queue(c.bytes...)

			got, err := kb.ReadEvent(context.Background())
			if err != nil {
				t.Fatalf("ReadEvent: %v", err)
			}
			if got != c.want {
				t.Errorf("ReadEvent = %v, want %v", got, c.want)
			}
			if dev.Pending() != 0 {
				t.Errorf("%d bytes left unread", dev.Pending())
			}
			if !dev.ClockInhibited() {
				t.Error("clock not inhibited after ReadEvent")
			}
		})
	}
}

func TestReadEventLeadIns(t *testing.T) {
	dev, kb := newKeyboard(t)
	ctx := context.Background()

	for _, code := range []byte{0x01, 0x1C, 0x5A, 0x7D, 0xE1, 0xFF} {
		dev.Queue(ps2k.LeadRelease, code)
		got, err := kb.ReadCode(ctx)
		if err != nil {
			t.Fatalf("ReadCode: %v", err)
		}
		if got != -int(code) {
			t.Errorf("F0 %02X = %d, want %d", code, got, -int(code))
		}

		dev.Queue(ps2k.LeadExtended, ps2k.LeadRelease, code)
		got, err = kb.ReadCode(ctx)
		if err != nil {
			t.Fatalf("ReadCode: %v", err)
		}
		if want := -(ps2k.ExtendOffset + int(code)); got != want {
			t.Errorf("E0 F0 %02X = %d, want %d", code, got, want)
		}
	}
}

func TestReadEventSequence(t *testing.T) {
	dev, kb := newKeyboard(t)
	events := []ps2k.Event{
		{Code: 0x12},
		{Code: 0x33},
		{Code: 0x33, Kind: ps2k.Release},
		{Code: 0x12, Kind: ps2k.Release},
		{Code: 0x43},
		{Code: 0x43, Kind: ps2k.Release},
		{Code: 0x14, Extended: true},
		{Code: 0x21},
		{Code: 0x14, Kind: ps2k.Release, Extended: true},
		{Code: 0x59},
		{Code: 0x16},
		{Code: 0x59, Kind: ps2k.Release},
		{Code: 0x5A, Extended: true},
	}
	for _, ev := range events {
		dev.QueueEvent(ev)
	}

	var tr ps2k.Translator
	var typed []rune
	for i, want := range events {
		ev, err := kb.ReadEvent(context.Background())
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if ev != want {
			t.Fatalf("event %d = %v, want %v", i, ev, want)
		}
		if c := tr.Translate(ev); c != ps2k.NoKey {
			typed = append(typed, c)
		}
	}
	if got := string(typed); got != "Hi\x03!\n" {
		t.Errorf("typed %q, want %q", got, "Hi\x03!\n")
	}
}

func TestReadEventCancel(t *testing.T) {
	dev, kb := newKeyboard(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := kb.ReadEvent(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ReadEvent on idle bus = %v, want deadline exceeded", err)
	}
	if !dev.ClockInhibited() {
		t.Error("clock not inhibited after cancel")
	}

	// Keystrokes typed meanwhile are still delivered.
	dev.Queue(0x1C)
	ev, err := kb.ReadEvent(context.Background())
	if err != nil || ev.Code != 0x1C {
		t.Errorf("ReadEvent after cancel = %v, %v", ev, err)
	}
}

func TestReadEventStall(t *testing.T) {
	dev := ps2sim.New()
	kb := ps2k.New(dev.Pins(), ps2k.WithBitTimeout(time.Millisecond))

	dev.Queue(0x1C)
	dev.StallAfter(6)
	_, err := kb.ReadEvent(context.Background())
	if !errors.Is(err, ps2k.ErrTimeout) {
		t.Fatalf("ReadEvent with stalled device = %v, want ErrTimeout", err)
	}
	if !dev.ClockInhibited() {
		t.Error("clock not inhibited after timeout")
	}
}

func TestReadEventMissingContinuation(t *testing.T) {
	dev := ps2sim.New()
	kb := ps2k.New(dev.Pins(), ps2k.WithByteTimeout(2*time.Millisecond))

	dev.Queue(ps2k.LeadRelease)
	_, err := kb.ReadEvent(context.Background())
	if !errors.Is(err, ps2k.ErrTimeout) {
		t.Fatalf("ReadEvent with lone lead-in = %v, want ErrTimeout", err)
	}
}

func TestReadEventFraming(t *testing.T) {
	t.Run("permissive", func(t *testing.T) {
		dev, kb := newKeyboard(t)
		dev.CorruptNextParity()
		dev.Queue(0x1C)
		ev, err := kb.ReadEvent(context.Background())
		if err != nil || ev.Code != 0x1C {
			t.Errorf("bad parity accepted as %v, %v", ev, err)
		}

		dev.BreakNextStop()
		dev.Queue(0x1B)
		ev, err = kb.ReadEvent(context.Background())
		if err != nil || ev.Code != 0x1B {
			t.Errorf("bad stop accepted as %v, %v", ev, err)
		}
	})

	t.Run("strict parity", func(t *testing.T) {
		dev := ps2sim.New()
		kb := ps2k.New(dev.Pins(), ps2k.WithStrictFraming(true))

		dev.Queue(0x1C)
		if _, err := kb.ReadEvent(context.Background()); err != nil {
			t.Fatalf("good frame rejected: %v", err)
		}

		dev.CorruptNextParity()
		dev.Queue(0x1C)
		if _, err := kb.ReadEvent(context.Background()); !errors.Is(err, ps2k.ErrParity) {
			t.Errorf("bad parity = %v, want ErrParity", err)
		}
	})

	t.Run("strict stop", func(t *testing.T) {
		dev := ps2sim.New()
		kb := ps2k.New(dev.Pins(), ps2k.WithStrictFraming(true))

		dev.BreakNextStop()
		dev.Queue(0x1C)
		if _, err := kb.ReadEvent(context.Background()); !errors.Is(err, ps2k.ErrFraming) {
			t.Errorf("bad stop = %v, want ErrFraming", err)
		}
		if !dev.ClockInhibited() {
			t.Error("clock not inhibited after framing error")
		}
	})
}

func TestSend(t *testing.T) {
	dev, kb := newKeyboard(t, ps2sim.WithAutoAck(true))

	for _, b := range []byte{0xED, 0x00, 0x07, 0xFF, 0x55, 0xF4} {
		if err := kb.Send(b); err != nil {
			t.Fatalf("Send(%02X): %v", b, err)
		}
		if !dev.ClockInhibited() || !dev.DataReleased() {
			t.Fatalf("bus not returned to idle after Send(%02X)", b)
		}

		rx := dev.Received()
		got := rx[len(rx)-1]
		if got.Byte != b {
			t.Errorf("device received %02X, want %02X", got.Byte, b)
		}
		if !got.ParityOK || !got.StopOK {
			t.Errorf("Send(%02X): parity ok %v, stop ok %v", b, got.ParityOK, got.StopOK)
		}

		ack, err := kb.ReadRaw(context.Background())
		if err != nil {
			t.Fatalf("ReadRaw: %v", err)
		}
		if ack != ps2k.ResponseAck {
			t.Errorf("response to %02X = %02X, want FA", b, ack)
		}
	}
}

func TestSendResponseReachesReadEvent(t *testing.T) {
	dev, kb := newKeyboard(t, ps2sim.WithAutoAck(true))
	dev.Queue(0x1C)

	if err := kb.Send(0xF4); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var tr ps2k.Translator
	ev, err := kb.ReadEvent(context.Background())
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if ev.Code != ps2k.ResponseAck {
		t.Fatalf("first event = %v, want the acknowledge", ev)
	}
	if c := tr.Translate(ev); c != ps2k.NoKey {
		t.Errorf("acknowledge translated to %q", c)
	}

	ev, err = kb.ReadEvent(context.Background())
	if err != nil || ev.Code != 0x1C {
		t.Errorf("second event = %v, %v", ev, err)
	}
}

func TestSendDelay(t *testing.T) {
	dev := ps2sim.New()
	var delays []time.Duration
	kb := ps2k.New(dev.Pins(), ps2k.WithDelay(func(d time.Duration) { delays = append(delays, d) }))

	if err := kb.Send(0xEE); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(delays) != 1 || delays[0] != ps2k.DefaultAckDelay {
		t.Errorf("delays = %v, want one of %v", delays, ps2k.DefaultAckDelay)
	}
}

func TestSendUnplugged(t *testing.T) {
	dev := ps2sim.New()
	kb := ps2k.New(dev.Pins(), ps2k.WithDelay(noDelay), ps2k.WithByteTimeout(2*time.Millisecond))
	dev.Unplug()

	err := kb.Send(0xFF)
	if !errors.Is(err, ps2k.ErrTimeout) {
		t.Fatalf("Send to unplugged device = %v, want ErrTimeout", err)
	}
	if !dev.ClockInhibited() || !dev.DataReleased() {
		t.Error("bus not returned to idle after failed Send")
	}
	if len(dev.Received()) != 0 {
		t.Errorf("unplugged device received %v", dev.Received())
	}
}

func TestSendStall(t *testing.T) {
	dev := ps2sim.New()
	kb := ps2k.New(dev.Pins(), ps2k.WithDelay(noDelay), ps2k.WithBitTimeout(time.Millisecond))
	dev.StallAfter(8)

	if err := kb.Send(0xED); !errors.Is(err, ps2k.ErrTimeout) {
		t.Fatalf("Send to stalled device = %v, want ErrTimeout", err)
	}
	if !dev.ClockInhibited() || !dev.DataReleased() {
		t.Error("bus not returned to idle after failed Send")
	}
}

func TestDefaults(t *testing.T) {
	dev := ps2sim.New()
	kb := ps2k.New(dev.Pins(), ps2k.WithBitTimeout(0), ps2k.WithByteTimeout(0))
	cfg := kb.Config()
	if cfg.BitTimeout != ps2k.DefaultBitTimeout || cfg.ByteTimeout != ps2k.DefaultByteTimeout {
		t.Errorf("zero timeouts not defaulted: %v %v", cfg.BitTimeout, cfg.ByteTimeout)
	}
	if cfg.StrictFraming {
		t.Error("strict framing on by default")
	}
}

// busLog counts log lines and how many were written while the host had
// the bus released.
type busLog struct {
	dev   *ps2sim.Device
	lines int
	live  int
}

func (w *busLog) Write(p []byte) (int, error) {
	w.lines++
	if !w.dev.ClockInhibited() {
		w.live++
	}
	return len(p), nil
}

func TestLoggingWaitsForInhibit(t *testing.T) {
	dev := ps2sim.New(ps2sim.WithAutoAck(true))
	w := &busLog{dev: dev}
	kb := ps2k.New(dev.Pins(),
		ps2k.WithDelay(noDelay),
		ps2k.WithByteTimeout(2*time.Millisecond),
		ps2k.WithLogger(zerolog.New(w).Level(zerolog.TraceLevel)),
	)
	ctx := context.Background()

	dev.Queue(0xE0, 0xF0, 0x75, 0xF0, 0x12)
	for i := 0; i < 2; i++ {
		if _, err := kb.ReadEvent(ctx); err != nil {
			t.Fatalf("ReadEvent: %v", err)
		}
	}
	if err := kb.Send(0xED); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := kb.ReadRaw(ctx); err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}

	dev.Queue(ps2k.LeadRelease)
	if _, err := kb.ReadEvent(ctx); !errors.Is(err, ps2k.ErrTimeout) {
		t.Fatalf("ReadEvent = %v, want ErrTimeout", err)
	}

	if w.lines < 5 {
		t.Errorf("only %d log lines written", w.lines)
	}
	if w.live != 0 {
		t.Errorf("%d of %d log lines written with the bus released", w.live, w.lines)
	}
}
