package ps2k

// PinMode selects the electrical configuration of a Pin.
type PinMode uint8

// Pin modes used by the driver.
const (
	PinOutput      PinMode = iota // Push-pull output, driven with High/Low
	PinInputPullup                // Input with the internal pull-up enabled
)

func (m PinMode) String() string {
	switch m {
	case PinOutput:
		return "output"
	case PinInputPullup:
		return "input-pullup"
	default:
		return "unknown"
	}
}

// Pin is the GPIO capability the driver needs for each of the two bus lines.
// On TinyGo targets use MachinePin; tests and host tools use the ps2sim
// package.
type Pin interface {
	// Configure sets the pin direction.
	Configure(mode PinMode)
	// High drives an output pin high.
	High()
	// Low drives an output pin low.
	Low()
	// Get samples the logical level of the line.
	Get() bool
}
