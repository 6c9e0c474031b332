package ps2k

// NoKey is returned by the translator for events without a character.
// It lies outside the character range, so it cannot be confused with NUL.
const NoKey rune = -1

// Modifiers is the set of modifier keys currently held down.
type Modifiers uint8

// Modifier bits
const (
	ModShift Modifiers = 1 << iota
	ModCtrl
)

// Has reports whether all bits of m are set.
func (s Modifiers) Has(m Modifiers) bool {
	return s&m == m
}

func (s Modifiers) String() string {
	switch s {
	case 0:
		return "none"
	case ModShift:
		return "shift"
	case ModCtrl:
		return "ctrl"
	case ModShift | ModCtrl:
		return "shift+ctrl"
	default:
		return "invalid"
	}
}

// Translator turns key events into ASCII characters and keeps track of the
// SHIFT and CTRL keys between calls. The zero value is ready to use.
// A Translator must not be shared between goroutines.
type Translator struct {
	mods Modifiers
}

// NewTranslator returns a Translator with no modifiers held.
func NewTranslator() *Translator {
	return &Translator{}
}

// Modifiers returns the modifiers currently held.
func (t *Translator) Modifiers() Modifiers {
	return t.mods
}

// Reset forgets all held modifiers.
func (t *Translator) Reset() {
	t.mods = 0
}

// TranslateCode translates an event in the signed integer encoding.
func (t *Translator) TranslateCode(code int) rune {
	ev, ok := EventFromInt(code)
	if !ok {
		return NoKey
	}
	return t.Translate(ev)
}

// Translate returns the character for a key press, or NoKey for releases,
// modifier keys and keys without a character. Modifier presses and
// releases update the held modifiers.
func (t *Translator) Translate(ev Event) rune {
	ev = normalize(ev)

	// Every extended key left after normalize lies beyond the table.
	if ev.Extended || int(ev.Code) >= len(baseTable) {
		return NoKey
	}
	c := baseTable[ev.Code]

	if ev.Kind == Release {
		if c == shiftLike {
			t.mods &^= modifierKeys[ev.Code]
		}
		return NoKey
	}

	switch c {
	case 0:
		return NoKey
	case shiftLike:
		t.mods |= modifierKeys[ev.Code]
		return NoKey
	}

	if t.mods.Has(ModShift) {
		var ok bool
		if c, ok = shift(c); !ok {
			return NoKey
		}
	}
	if t.mods.Has(ModCtrl) {
		c &= 0x1F
	}
	return rune(c)
}

// shift returns the shifted form of an unshifted character.
func shift(c byte) (byte, bool) {
	if c >= 'a' && c <= 'z' {
		return c &^ ('a' - 'A'), true
	}
	shifted, ok := shiftedChars[c]
	return shifted, ok
}

// normalize folds right CTRL onto left CTRL and keypad ENTER onto ENTER.
// Only the keypad ENTER press is folded; its release carries no meaning.
func normalize(ev Event) Event {
	if !ev.Extended {
		return ev
	}
	switch {
	case ev.Code == codeLeftCtrl:
		ev.Extended = false
	case ev.Code == codeEnter && ev.Kind == Press:
		ev.Extended = false
	}
	return ev
}
