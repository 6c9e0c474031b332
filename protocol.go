package ps2k

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ctxCheckInterval is how many idle clock samples are taken between
// checks of the context.
const ctxCheckInterval = 256

// poll spins until cond holds. A negative timeout spins forever.
func poll(cond func() bool, timeout time.Duration) error {
	if timeout < 0 {
		for !cond() {
		}
		return nil
	}
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			return ErrTimeout
		}
	}
	return nil
}

// waitClock waits for the clock line to reach level.
func (k *Keyboard) waitClock(level bool, timeout time.Duration, what string) error {
	if err := poll(func() bool { return k.pins.CLK.Get() == level }, timeout); err != nil {
		return fmt.Errorf("%w: %s", err, what)
	}
	return nil
}

// waitIdle waits for the falling edge of a start bit with no time limit
// other than the context.
func (k *Keyboard) waitIdle(ctx context.Context) error {
	done := ctx.Done()
	for i := 0; k.pins.CLK.Get(); i++ {
		if done == nil || i%ctxCheckInterval != 0 {
			continue
		}
		select {
		case <-done:
			return ctx.Err()
		default:
		}
	}
	return nil
}

// readByte clocks in one 11-bit frame. The bus must already be released.
// The first byte of an event waits on ctx for its start bit; continuation
// bytes use ByteTimeout.
func (k *Keyboard) readByte(ctx context.Context, first bool) (byte, error) {
	var err error
	if first {
		err = k.waitIdle(ctx)
	} else {
		err = k.waitClock(false, k.cfg.ByteTimeout, "start bit")
	}
	if err != nil {
		return 0, err
	}
	bit := k.cfg.BitTimeout

	start := k.pins.DAT.Get()
	if err := k.waitClock(true, bit, "start bit"); err != nil { // discard start bit
		return 0, err
	}

	var code byte
	ones := 0
	for i := 0; i < 8; i++ {
		if err := k.waitClock(false, bit, "data bit"); err != nil {
			return 0, err
		}
		code >>= 1 // LSB is sent first
		if k.pins.DAT.Get() {
			code |= 0x80
			ones++
		}
		if err := k.waitClock(true, bit, "data bit"); err != nil {
			return 0, err
		}
	}

	if err := k.waitClock(false, bit, "parity bit"); err != nil {
		return 0, err
	}
	parity := k.pins.DAT.Get()
	if err := k.waitClock(true, bit, "parity bit"); err != nil {
		return 0, err
	}
	if err := k.waitClock(false, bit, "stop bit"); err != nil {
		return 0, err
	}
	stop := k.pins.DAT.Get()
	if err := k.waitClock(true, bit, "stop bit"); err != nil {
		return 0, err
	}

	if k.cfg.StrictFraming {
		if start || !stop {
			return code, fmt.Errorf("%w: byte %02X", ErrFraming, code)
		}
		if parity {
			ones++
		}
		if ones%2 != 1 {
			return code, fmt.Errorf("%w: byte %02X", ErrParity, code)
		}
	}
	return code, nil
}

// ReadRaw releases the bus, reads a single device byte and inhibits the
// bus again. Lead-in bytes are returned as is. It is mostly useful for
// collecting the response to Send.
func (k *Keyboard) ReadRaw(ctx context.Context) (byte, error) {
	k.release()
	code, err := k.readByte(ctx, true)
	k.inhibit()

	if err != nil {
		k.logError(err)
		return 0, err
	}
	k.log.Trace().Uint8("raw", code).Msg("frame")
	return code, nil
}

// ReadEvent blocks until the keyboard sends a complete key event. The
// release and extended lead-ins are folded into the returned Event.
// The bus is inhibited again before returning, also on error.
//
// Nothing is logged while the bus is released: the keyboard may start the
// next byte of an event at any time.
func (k *Keyboard) ReadEvent(ctx context.Context) (Event, error) {
	k.release()
	ev, err := k.readEvent(ctx)
	k.inhibit()

	if err != nil {
		k.logError(err)
		return Event{}, err
	}
	k.log.Debug().Uint8("raw", ev.Code).Stringer("event", ev).Msg("key event")
	return ev, nil
}

func (k *Keyboard) readEvent(ctx context.Context) (Event, error) {
	var ev Event

	code, err := k.readByte(ctx, true)
	if err != nil {
		return ev, err
	}

	switch code {
	case LeadRelease:
		ev.Kind = Release
		code, err = k.readByte(ctx, false)
	case LeadExtended:
		ev.Extended = true
		code, err = k.readByte(ctx, false)
		if err == nil && code == LeadRelease {
			ev.Kind = Release
			code, err = k.readByte(ctx, false)
		}
	}
	if err != nil {
		return Event{}, err
	}

	ev.Code = code
	return ev, nil
}

// ReadCode is ReadEvent with the result in the signed integer encoding
// (see Event.Int).
func (k *Keyboard) ReadCode(ctx context.Context) (int, error) {
	ev, err := k.ReadEvent(ctx)
	if err != nil {
		return 0, err
	}
	return ev.Int(), nil
}

// Send transmits one byte from the host to the keyboard. The keyboard
// still drives the clock, so this is a handshake: request-to-send, eight
// data bits LSB first, odd parity, then the keyboard's acknowledge.
//
// Any response the keyboard sends afterwards (usually ResponseAck) is
// left for the next ReadEvent or ReadRaw.
func (k *Keyboard) Send(code byte) error {
	k.log.Debug().Uint8("raw", code).Msg("send")

	err := k.send(code)
	k.pins.DAT.Configure(PinInputPullup)
	k.inhibit()

	if err != nil {
		k.logError(err)
	}
	return err
}

func (k *Keyboard) send(code byte) error {
	// Request to send, then let the keyboard drive the clock
	k.pins.DAT.Configure(PinOutput)
	k.pins.DAT.Low()
	k.pins.CLK.Configure(PinInputPullup)

	if err := k.waitClock(false, k.cfg.ByteTimeout, "request to send"); err != nil {
		return err
	}

	bit := k.cfg.BitTimeout
	ones := 0
	for i := 0; i < 8; i++ {
		if code&0x01 != 0 {
			k.pins.DAT.High()
			ones++
		} else {
			k.pins.DAT.Low()
		}
		code >>= 1
		if err := k.waitBit(bit); err != nil {
			return err
		}
	}

	// Odd parity
	if ones%2 != 0 {
		k.pins.DAT.Low()
	} else {
		k.pins.DAT.High()
	}
	if err := k.waitBit(bit); err != nil {
		return err
	}

	// Release data for the acknowledge. Keyboards tend to miss the
	// release without a short pause here.
	k.pins.DAT.Configure(PinInputPullup)
	k.cfg.Delay(k.cfg.AckDelay)

	if err := poll(func() bool { return k.pins.CLK.Get() && k.pins.DAT.Get() }, k.cfg.ByteTimeout); err != nil {
		return fmt.Errorf("%w: acknowledge", err)
	}
	return nil
}

// waitBit waits for one keyboard clock pulse while the host drives data.
func (k *Keyboard) waitBit(timeout time.Duration) error {
	if err := k.waitClock(true, timeout, "write bit"); err != nil {
		return err
	}
	return k.waitClock(false, timeout, "write bit")
}

func (k *Keyboard) logError(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		k.log.Debug().Err(err).Msg("read abandoned")
		return
	}
	k.log.Warn().Err(err).Msg("bus error")
}
