// Package ps2sim models a PS/2 keyboard on the far side of the clock and
// data lines, so the ps2k driver can run without hardware.
//
// The model is driven entirely by the host: every Get on either pin
// advances the device by one tick. A clock half period lasts a fixed
// number of ticks, which makes runs deterministic no matter how fast the
// host polls.
package ps2sim

import (
	"github.com/WestfW/ps2k"
)

// DefaultHalfPeriod is the number of ticks each clock level is held for.
const DefaultHalfPeriod = 2

// Received is one byte the device clocked in from the host.
type Received struct {
	Byte     byte
	ParityOK bool
	StopOK   bool
}

type line struct {
	mode  ps2k.PinMode
	latch bool
}

// drivesLow reports whether the host pulls the line down.
func (l *line) drivesLow() bool {
	return l.mode == ps2k.PinOutput && !l.latch
}

type mode uint8

const (
	modeIdle mode = iota
	modeSend
	modeReceive
)

type step struct {
	do   func()
	hold int
}

// Device is a simulated keyboard.
type Device struct {
	half    int
	autoAck bool

	clk, dat   line
	devClkLow  bool
	devDatLow  bool
	tx         []byte
	rx         []Received
	sent       []byte
	steps      []step
	pos        int
	hold       int
	mode       mode
	dead       bool
	stallAfter int
	badParity  bool
	badStop    bool
	ticks      uint64
	rxBits     [10]bool
}

// Option configures a Device.
type Option func(*Device)

// WithHalfPeriod sets how many ticks each clock level lasts.
func WithHalfPeriod(ticks int) Option {
	return func(d *Device) {
		if ticks > 0 {
			d.half = ticks
		}
	}
}

// WithAutoAck makes the device answer every received byte with 0xFA.
func WithAutoAck(ack bool) Option {
	return func(d *Device) { d.autoAck = ack }
}

// New returns an idle device with both lines pulled up.
func New(opts ...Option) *Device {
	d := &Device{
		half:       DefaultHalfPeriod,
		clk:        line{mode: ps2k.PinInputPullup, latch: true},
		dat:        line{mode: ps2k.PinInputPullup, latch: true},
		stallAfter: -1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Pins returns the host side of the clock and data lines.
func (d *Device) Pins() ps2k.PinConfig {
	return ps2k.PinConfig{
		CLK: &Pin{d: d, l: &d.clk, clock: true},
		DAT: &Pin{d: d, l: &d.dat},
	}
}

// Queue appends raw bytes to the transmit buffer.
func (d *Device) Queue(b ...byte) {
	d.tx = append(d.tx, b...)
}

// QueueEvent appends the set 2 byte sequence for ev.
func (d *Device) QueueEvent(ev ps2k.Event) {
	d.Queue(Encode(ev)...)
}

// Pending returns the number of bytes not yet sent to the host.
func (d *Device) Pending() int {
	return len(d.tx)
}

// Sent returns every byte completely transmitted to the host.
func (d *Device) Sent() []byte {
	return d.sent
}

// Received returns every byte the host has written to the device.
func (d *Device) Received() []Received {
	return d.rx
}

// Ticks returns how many times the host sampled a line.
func (d *Device) Ticks() uint64 {
	return d.ticks
}

// ClockInhibited reports whether the host is holding the clock low.
func (d *Device) ClockInhibited() bool {
	return d.clk.drivesLow()
}

// DataReleased reports whether the host has let go of the data line.
func (d *Device) DataReleased() bool {
	return d.dat.mode != ps2k.PinOutput
}

// Unplug makes the device stop responding.
func (d *Device) Unplug() {
	d.dead = true
	d.abort()
}

// Plug reconnects an unplugged device.
func (d *Device) Plug() {
	d.dead = false
}

// StallAfter makes the next frame stop after n clock half periods, as if
// the keyboard was pulled out mid-transfer. The device stays unplugged
// afterwards.
func (d *Device) StallAfter(n int) {
	d.stallAfter = n
}

// CorruptNextParity sends the next frame with the wrong parity bit.
func (d *Device) CorruptNextParity() {
	d.badParity = true
}

// BreakNextStop sends the next frame with a low stop bit.
func (d *Device) BreakNextStop() {
	d.badStop = true
}

func (d *Device) clockLevel() bool {
	return !d.clk.drivesLow() && !d.devClkLow
}

func (d *Device) dataLevel() bool {
	return !d.dat.drivesLow() && !d.devDatLow
}

// tick advances the device by one host sample.
func (d *Device) tick() {
	d.ticks++

	// Inhibit or request-to-send from the host aborts a transmission.
	if d.mode == modeSend && (d.clk.drivesLow() || d.dat.drivesLow()) {
		d.abort()
		return
	}

	if d.hold > 0 {
		d.hold--
		return
	}
	if d.pos >= len(d.steps) {
		d.finish()
		if !d.schedule() {
			return
		}
	}

	s := d.steps[d.pos]
	d.pos++
	if s.do != nil {
		s.do()
	}
	d.hold = s.hold

	if d.stallAfter >= 0 && d.pos >= d.stallAfter {
		d.stallAfter = -1
		d.dead = true
		d.steps, d.pos, d.hold = nil, 0, 0
		d.mode = modeIdle
		d.devClkLow, d.devDatLow = false, false
	}
}

// abort drops the frame in flight. A byte that was not completely sent
// stays at the head of the queue.
func (d *Device) abort() {
	d.steps, d.pos, d.hold = nil, 0, 0
	d.devClkLow, d.devDatLow = false, false
	d.mode = modeIdle
}

func (d *Device) finish() {
	d.steps, d.pos = d.steps[:0], 0
	d.mode = modeIdle
}

// schedule starts a new frame when the bus allows it.
func (d *Device) schedule() bool {
	switch {
	case d.dead, d.clk.drivesLow():
		return false
	case d.dat.drivesLow():
		d.planReceive()
	case len(d.tx) > 0:
		d.planSend(d.tx[0])
	default:
		return false
	}
	return true
}

func (d *Device) planSend(b byte) {
	bits := frameBits(b)
	if d.badParity {
		bits[9] = !bits[9]
		d.badParity = false
	}
	if d.badStop {
		bits[10] = false
		d.badStop = false
	}

	d.mode = modeSend
	d.steps = append(d.steps, step{hold: d.half}) // bus must stay idle first
	for i, bit := range bits {
		bit := bit
		last := i == len(bits)-1
		d.steps = append(d.steps,
			step{do: func() { d.devDatLow = !bit; d.devClkLow = true }, hold: d.half},
			step{do: func() {
				d.devClkLow = false
				if last {
					d.sent = append(d.sent, d.tx[0])
					d.tx = d.tx[1:]
				}
			}, hold: d.half},
		)
	}
	d.steps = append(d.steps, step{do: func() { d.devDatLow = false }})
}

func (d *Device) planReceive() {
	d.mode = modeReceive
	d.steps = append(d.steps, step{hold: d.half}) // notice request to send
	for i := 0; i < 10; i++ {
		i := i
		d.steps = append(d.steps,
			step{do: func() { d.devClkLow = true }, hold: d.half},
			step{do: func() {
				d.devClkLow = false
				d.rxBits[i] = d.dataLevel()
				if i == 9 {
					d.devDatLow = true // acknowledge bit
				}
			}, hold: d.half},
		)
	}
	d.steps = append(d.steps,
		step{do: func() { d.devClkLow = true }, hold: d.half},
		step{do: func() {
			d.devClkLow = false
			d.devDatLow = false
			d.store()
		}},
	)
}

// store records the frame clocked in from the host.
func (d *Device) store() {
	var r Received
	ones := 0
	for i := 7; i >= 0; i-- {
		r.Byte <<= 1
		if d.rxBits[i] {
			r.Byte |= 1
			ones++
		}
	}
	if d.rxBits[8] {
		ones++
	}
	r.ParityOK = ones%2 == 1
	r.StopOK = d.rxBits[9]
	d.rx = append(d.rx, r)

	if d.autoAck {
		d.tx = append([]byte{ps2k.ResponseAck}, d.tx...)
	}
}

// frameBits returns start, eight data bits LSB first, odd parity and stop.
func frameBits(b byte) [11]bool {
	var bits [11]bool
	ones := 0
	for i := 0; i < 8; i++ {
		bits[1+i] = b&(1<<i) != 0
		if bits[1+i] {
			ones++
		}
	}
	bits[9] = ones%2 == 0
	bits[10] = true
	return bits
}

// Encode returns the set 2 byte sequence for ev.
func Encode(ev ps2k.Event) []byte {
	var out []byte
	if ev.Extended {
		out = append(out, ps2k.LeadExtended)
	}
	if ev.Kind == ps2k.Release {
		out = append(out, ps2k.LeadRelease)
	}
	return append(out, ev.Code)
}

// Pin is the host side of one simulated line.
type Pin struct {
	d     *Device
	l     *line
	clock bool
}

// Configure sets the host pin direction.
func (p *Pin) Configure(m ps2k.PinMode) {
	p.l.mode = m
	if m == ps2k.PinInputPullup {
		p.l.latch = true
	}
}

// High sets the output latch high.
func (p *Pin) High() { p.l.latch = true }

// Low sets the output latch low.
func (p *Pin) Low() { p.l.latch = false }

// Get advances the device by one tick and samples the line.
func (p *Pin) Get() bool {
	p.d.tick()
	if p.clock {
		return p.d.clockLevel()
	}
	return p.d.dataLevel()
}
