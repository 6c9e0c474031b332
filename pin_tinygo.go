//go:build tinygo

package ps2k

import "machine"

// MachinePin adapts a TinyGo machine.Pin to the Pin interface.
type MachinePin machine.Pin

// Configure sets the pin direction.
func (p MachinePin) Configure(mode PinMode) {
	switch mode {
	case PinOutput:
		machine.Pin(p).Configure(machine.PinConfig{Mode: machine.PinOutput})
	default:
		machine.Pin(p).Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
}

// High drives the pin high.
func (p MachinePin) High() { machine.Pin(p).High() }

// Low drives the pin low.
func (p MachinePin) Low() { machine.Pin(p).Low() }

// Get reads the current pin level.
func (p MachinePin) Get() bool { return machine.Pin(p).Get() }
