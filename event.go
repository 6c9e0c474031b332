package ps2k

import "fmt"

// Kind tells a key press from a key release.
type Kind uint8

// Event kinds
const (
	Press Kind = iota
	Release
)

func (k Kind) String() string {
	if k == Release {
		return "release"
	}
	return "press"
}

// Event is one logical key event assembled from one to three device bytes.
type Event struct {
	Code     byte // Device code with lead-ins stripped
	Kind     Kind
	Extended bool // Key was sent with the E0 lead-in
}

// Int returns the signed integer encoding of the event: code for a press,
// code+ExtendOffset for an extended press, and the negation of either for
// a release.
func (e Event) Int() int {
	v := int(e.Code)
	if e.Extended {
		v += ExtendOffset
	}
	if e.Kind == Release {
		v = -v
	}
	return v
}

// EventFromInt decodes the signed integer encoding. It reports false for
// zero and for values outside the encodable range.
func EventFromInt(v int) (Event, bool) {
	var e Event
	if v < 0 {
		e.Kind = Release
		v = -v
	}
	if v >= ExtendOffset {
		e.Extended = true
		v -= ExtendOffset
	}
	if v <= 0 || v > 0xFF {
		return Event{}, false
	}
	e.Code = byte(v)
	return e, true
}

func (e Event) String() string {
	if e.Extended {
		return fmt.Sprintf("%s E0 %02X", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s %02X", e.Kind, e.Code)
}
