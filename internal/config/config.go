package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/WestfW/ps2k"
	"github.com/WestfW/ps2k/ps2sim"
)

// ErrConfigNotFound is returned by Load when the file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// Config is the YAML configuration of the host-side tools.
type Config struct {
	LogLevel string    `yaml:"log_level"`
	LogFile  string    `yaml:"log_file"`
	Bus      BusConfig `yaml:"bus"`
	Sim      SimConfig `yaml:"sim"`
}

// BusConfig carries the driver timing. Durations use Go syntax ("2ms").
// A negative timeout waits forever.
type BusConfig struct {
	BitTimeout    time.Duration `yaml:"bit_timeout"`
	ByteTimeout   time.Duration `yaml:"byte_timeout"`
	AckDelay      time.Duration `yaml:"ack_delay"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	StrictFraming bool          `yaml:"strict_framing"`
}

// SimConfig configures the simulated keyboard.
type SimConfig struct {
	HalfPeriod int  `yaml:"half_period"`
	AutoAck    bool `yaml:"auto_ack"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Bus: BusConfig{
			BitTimeout:  ps2k.DefaultBitTimeout,
			ByteTimeout: ps2k.DefaultByteTimeout,
			AckDelay:    ps2k.DefaultAckDelay,
			IdleTimeout: 100 * time.Millisecond,
		},
		Sim: SimConfig{
			HalfPeriod: ps2sim.DefaultHalfPeriod,
			AutoAck:    true,
		},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.Bus.IdleTimeout <= 0 {
		return fmt.Errorf("invalid bus.idle_timeout %v", c.Bus.IdleTimeout)
	}
	if c.Bus.AckDelay < 0 {
		return fmt.Errorf("invalid bus.ack_delay %v", c.Bus.AckDelay)
	}
	if c.Sim.HalfPeriod < 0 {
		return fmt.Errorf("invalid sim.half_period %d", c.Sim.HalfPeriod)
	}
	return nil
}

// Options converts the bus settings to driver options.
func (c *Config) Options(log zerolog.Logger) []ps2k.Option {
	return []ps2k.Option{
		ps2k.WithBitTimeout(c.Bus.BitTimeout),
		ps2k.WithByteTimeout(c.Bus.ByteTimeout),
		ps2k.WithAckDelay(c.Bus.AckDelay),
		ps2k.WithStrictFraming(c.Bus.StrictFraming),
		ps2k.WithLogger(log),
	}
}

// SimOptions converts the simulator settings.
func (c *Config) SimOptions() []ps2sim.Option {
	return []ps2sim.Option{
		ps2sim.WithHalfPeriod(c.Sim.HalfPeriod),
		ps2sim.WithAutoAck(c.Sim.AutoAck),
	}
}
