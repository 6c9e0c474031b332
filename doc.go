// Package ps2k provides a polled TinyGo driver for PS/2 keyboards.
//
// The driver bit-bangs the PS/2 clock and data lines on two ordinary GPIO
// pins. No interrupts, timers or serial peripherals are used: every bit is
// received or sent by polling the clock line. Between calls the host holds
// the clock low, which makes the keyboard buffer keystrokes instead of
// sending them while nobody is listening.
//
// # Features
//
//   - Scan code set 2 (the power-on default) with release and extended
//     lead-ins folded into one Event per key
//   - Host to keyboard writes (LEDs, typematic rate and similar commands)
//   - ASCII translation with SHIFT and CTRL tracking, including the
//     numeric keypad
//   - Bounded waits with explicit timeouts, optional parity checking
//
// # Hardware Connection
//
// Both lines are open collector. Most keyboards work with the internal
// pull-ups; long cables may need external 4.7kΩ resistors to VCC.
//
//	Mini-DIN Pin | Function | Notes
//	-------------|----------|---------------------------
//	1            | DATA     | Any GPIO, pull-up
//	2            | N/C      | Not connected
//	3            | GND      | Ground
//	4            | VCC      | 5V (most keyboards need 5V)
//	5            | CLK      | Any GPIO, pull-up
//	6            | N/C      | Not connected
//
// On 3.3V boards use a level shifter or series resistors on CLK and DATA.
//
// # Example Usage
//
//	package main
//
//	import (
//	    "context"
//	    "machine"
//
//	    "github.com/WestfW/ps2k"
//	)
//
//	func main() {
//	    kb := ps2k.New(ps2k.PinConfig{
//	        CLK: ps2k.MachinePin(machine.GP3),
//	        DAT: ps2k.MachinePin(machine.GP7),
//	    })
//	    var tr ps2k.Translator
//
//	    for {
//	        ev, err := kb.ReadEvent(context.Background())
//	        if err != nil {
//	            println("keyboard:", err.Error())
//	            continue
//	        }
//	        if c := tr.Translate(ev); c != ps2k.NoKey {
//	            print(string(c))
//	        }
//	    }
//	}
//
// # Event Encoding
//
// Besides Event, the signed integer encoding of the original driver is
// available through ReadCode, Event.Int and Translator.TranslateCode:
// code for a press, code+ExtendOffset for an E0 key, and the negated
// value for a release.
//
// # Timeouts
//
// The wait for the first bit of a key event only ends when a key is
// pressed or ctx is done. All other waits are bounded by BitTimeout and
// ByteTimeout and fail with ErrTimeout, so an unplugged keyboard cannot
// hang the host in the middle of a frame. Pass WaitForever to either
// option to get unbounded waits.
//
// # Original Library
//
// This is a Go port of ps2keypolled by Bill Westfield (2009).
// Protocol reference: http://www.beyondlogic.org/keyboard/keybrd.htm
package ps2k
