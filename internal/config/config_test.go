package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/WestfW/ps2k"
	"github.com/WestfW/ps2k/ps2sim"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
bus:
  bit_timeout: 5ms
  byte_timeout: -1ns
  strict_framing: true
sim:
  half_period: 4
  auto_ack: false
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Bus.BitTimeout != 5*time.Millisecond {
		t.Errorf("BitTimeout = %v", cfg.Bus.BitTimeout)
	}
	if cfg.Bus.ByteTimeout != ps2k.WaitForever {
		t.Errorf("ByteTimeout = %v, want WaitForever", cfg.Bus.ByteTimeout)
	}
	if cfg.Bus.AckDelay != ps2k.DefaultAckDelay {
		t.Errorf("AckDelay = %v, want default", cfg.Bus.AckDelay)
	}
	if !cfg.Bus.StrictFraming {
		t.Error("StrictFraming not set")
	}
	if cfg.Sim.HalfPeriod != 4 || cfg.Sim.AutoAck {
		t.Errorf("Sim = %+v", cfg.Sim)
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{
		"log_level: loud",
		"bus: {ack_delay: -1ms}",
		"bus: {idle_timeout: 0s}",
		"sim: {half_period: -2}",
		"bus: [1, 2]",
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c)); err == nil {
			t.Errorf("Parse(%q) succeeded", c)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load(missing) = %v, want ErrConfigNotFound", err)
	}

	path := filepath.Join(dir, "ps2.yaml")
	if err := os.WriteFile(path, []byte("bus:\n  ack_delay: 80us\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bus.AckDelay != 80*time.Microsecond {
		t.Errorf("AckDelay = %v", cfg.Bus.AckDelay)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default", cfg.LogLevel)
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Bus.StrictFraming = true
	cfg.Bus.BitTimeout = 3 * time.Millisecond

	dev := ps2sim.New(cfg.SimOptions()...)
	kb := ps2k.New(dev.Pins(), cfg.Options(zerolog.Nop())...)

	got := kb.Config()
	if !got.StrictFraming || got.BitTimeout != 3*time.Millisecond || got.AckDelay != ps2k.DefaultAckDelay {
		t.Errorf("driver config = %+v", got)
	}
}
