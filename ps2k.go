// Package ps2k provides a polled TinyGo driver for PS/2 keyboards.
// This is a port of the ps2keypolled Arduino driver.
package ps2k

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Lead-in bytes and device responses (scan code set 2)
const (
	LeadRelease  byte = 0xF0 // next byte is a key release
	LeadExtended byte = 0xE0 // next byte (or F0 + byte) is an extended key

	ResponseAck      byte = 0xFA
	ResponseResend   byte = 0xFE
	ResponseTestPass byte = 0xAA
)

// ExtendOffset is added to the device code of E0-prefixed keys in the
// integer event encoding so they never collide with the 0-255 code space.
const ExtendOffset = 0x100

// WaitForever disables a timeout when passed to WithBitTimeout or
// WithByteTimeout. Use it only when the device is known to be present.
const WaitForever time.Duration = -1

// Default timing
const (
	DefaultBitTimeout  = 2 * time.Millisecond
	DefaultByteTimeout = 20 * time.Millisecond
	DefaultAckDelay    = 50 * time.Microsecond
)

var (
	// ErrTimeout is returned when the device stops clocking inside a frame
	// or never answers a host request.
	ErrTimeout = errors.New("ps2k: bus timeout")
	// ErrParity is returned in strict mode when a frame fails the odd
	// parity check.
	ErrParity = errors.New("ps2k: parity error")
	// ErrFraming is returned in strict mode when the start bit is not low
	// or the stop bit is not high.
	ErrFraming = errors.New("ps2k: framing error")
)

// PinConfig holds the two bus lines.
type PinConfig struct {
	CLK Pin // Clock, open collector, driven by the keyboard except when inhibited
	DAT Pin // Data, open collector, requires pull-up
}

// Config holds the timing and validation settings of a Keyboard.
type Config struct {
	// BitTimeout bounds every clock edge wait inside a frame.
	BitTimeout time.Duration
	// ByteTimeout bounds the wait for the start bit of a continuation
	// byte, for the device to begin clocking a host write, and for the
	// final acknowledge of a write.
	ByteTimeout time.Duration
	// AckDelay is slept after releasing the data line at the end of a
	// host write. Some keyboards miss the release without it.
	AckDelay time.Duration
	// StrictFraming enables the parity and stop bit checks. Frames are
	// accepted unchecked when false.
	StrictFraming bool
	// Delay is the blocking microsecond delay primitive.
	Delay func(time.Duration)
	// Logger receives byte- and event-level diagnostics.
	Logger zerolog.Logger
}

// DefaultConfig returns the permissive configuration used by New.
func DefaultConfig() Config {
	return Config{
		BitTimeout:  DefaultBitTimeout,
		ByteTimeout: DefaultByteTimeout,
		AckDelay:    DefaultAckDelay,
		Delay:       time.Sleep,
		Logger:      zerolog.Nop(),
	}
}

// Option modifies a Config.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}

// WithBitTimeout sets the in-frame edge timeout.
func WithBitTimeout(d time.Duration) Option {
	return func(c *Config) { c.BitTimeout = d }
}

// WithByteTimeout sets the timeout for continuation bytes and write
// handshakes.
func WithByteTimeout(d time.Duration) Option {
	return func(c *Config) { c.ByteTimeout = d }
}

// WithAckDelay sets the delay inserted before waiting for a write
// acknowledge.
func WithAckDelay(d time.Duration) Option {
	return func(c *Config) { c.AckDelay = d }
}

// WithStrictFraming turns parity and stop bit validation on or off.
func WithStrictFraming(strict bool) Option {
	return func(c *Config) { c.StrictFraming = strict }
}

// WithDelay sets the delay primitive.
func WithDelay(delay func(time.Duration)) Option {
	return func(c *Config) { c.Delay = delay }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Keyboard is the protocol engine for one PS/2 keyboard.
// It must not be used from more than one goroutine.
type Keyboard struct {
	pins PinConfig
	cfg  Config
	log  zerolog.Logger
}

// New creates a Keyboard on the given pins and inhibits the bus so the
// device buffers keystrokes until the first ReadEvent.
func New(pins PinConfig, opts ...Option) *Keyboard {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BitTimeout == 0 {
		cfg.BitTimeout = DefaultBitTimeout
	}
	if cfg.ByteTimeout == 0 {
		cfg.ByteTimeout = DefaultByteTimeout
	}
	if cfg.Delay == nil {
		cfg.Delay = time.Sleep
	}

	k := &Keyboard{
		pins: pins,
		cfg:  cfg,
		log:  cfg.Logger.With().Str("component", "ps2k").Logger(),
	}

	k.init()
	return k
}

// Config returns the effective configuration.
func (k *Keyboard) Config() Config {
	return k.cfg
}

// init claims the clock and sets the data line up as a pulled-up input.
func (k *Keyboard) init() {
	k.inhibit()
	k.pins.DAT.Configure(PinInputPullup)
}

// inhibit drives the clock low. The keyboard buffers data while the clock
// is held by the host.
func (k *Keyboard) inhibit() {
	k.pins.CLK.Configure(PinOutput)
	k.pins.CLK.Low()
}

// release hands the clock to the keyboard and makes sure data is an input.
func (k *Keyboard) release() {
	k.pins.CLK.Configure(PinInputPullup)
	k.pins.DAT.Configure(PinInputPullup)
}
