package ps2k

// Device codes the translator treats specially
const (
	codeLeftShift  byte = 0x12
	codeLeftCtrl   byte = 0x14
	codeRightShift byte = 0x59
	codeEnter      byte = 0x5A
)

// shiftLike marks a base table entry for a modifier key.
const shiftLike byte = 0x80

// baseTable maps set 2 device codes to unshifted ASCII. Zero entries have
// no character. Codes past the end of the table never produce one.
var baseTable = [...]byte{
	0x0D: '\t',
	0x0E: '`',
	0x12: shiftLike, // LShift
	0x14: shiftLike, // LCtrl
	0x15: 'q',
	0x16: '1',
	0x1A: 'z',
	0x1B: 's',
	0x1C: 'a',
	0x1D: 'w',
	0x1E: '2',
	0x21: 'c',
	0x22: 'x',
	0x23: 'd',
	0x24: 'e',
	0x25: '4',
	0x26: '3',
	0x29: ' ',
	0x2A: 'v',
	0x2B: 'f',
	0x2C: 't',
	0x2D: 'r',
	0x2E: '5',
	0x31: 'n',
	0x32: 'b',
	0x33: 'h',
	0x34: 'g',
	0x35: 'y',
	0x36: '6',
	0x3A: 'm',
	0x3B: 'j',
	0x3C: 'u',
	0x3D: '7',
	0x3E: '8',
	0x41: ',',
	0x42: 'k',
	0x43: 'i',
	0x44: 'o',
	0x45: '0',
	0x46: '9',
	0x49: '.',
	0x4A: '/',
	0x4B: 'l',
	0x4C: ';',
	0x4D: 'p',
	0x4E: '-',
	0x52: '\'',
	0x54: '[',
	0x55: '=',
	0x59: shiftLike, // RShift
	0x5A: '\n',      // Enter
	0x5B: ']',
	0x5D: '\\',
	0x66: '\b', // Backspace
	0x69: '1',  // KP-1 / End
	0x6B: '4',  // KP-4 / Left
	0x6C: '7',  // KP-7 / Home
	0x70: '0',  // KP-0 / Ins
	0x71: '.',  // KP-. / Del
	0x72: '2',  // KP-2 / Down
	0x73: '5',  // KP-5
	0x74: '6',  // KP-6 / Right
	0x75: '8',  // KP-8 / Up
	0x76: 0x1B, // Esc
	0x79: '+',  // KP-+
	0x7A: '3',  // KP-3
	0x7B: '-',  // KP--
	0x7C: '*',  // KP-*
	0x7D: '9',  // KP-9
}

// modifierKeys says which modifier each shiftLike entry controls.
var modifierKeys = map[byte]Modifiers{
	codeLeftShift:  ModShift,
	codeRightShift: ModShift,
	codeLeftCtrl:   ModCtrl,
}

// shiftedChars maps an unshifted non-letter to its shifted form on a US
// layout. Characters missing here produce nothing while SHIFT is held.
var shiftedChars = map[byte]byte{
	'\'': '"',
	',':  '<',
	'-':  '_',
	'.':  '>',
	'/':  '?',
	'0':  ')',
	'1':  '!',
	'2':  '@',
	'3':  '#',
	'4':  '$',
	'5':  '%',
	'6':  '^',
	'7':  '&',
	'8':  '*',
	'9':  '(',
	';':  ':',
	'=':  '+',
	'[':  '{',
	'\\': '|',
	']':  '}',
	'`':  '~',
	'*':  '*',
	'+':  '+',
}

type keyID struct {
	code     byte
	extended bool
}

// keyNames names the keys that have no character of their own.
var keyNames = map[keyID]string{
	{0x01, false}: "F9",
	{0x03, false}: "F5",
	{0x04, false}: "F3",
	{0x05, false}: "F1",
	{0x06, false}: "F2",
	{0x07, false}: "F12",
	{0x09, false}: "F10",
	{0x0A, false}: "F8",
	{0x0B, false}: "F6",
	{0x0C, false}: "F4",
	{0x0D, false}: "Tab",
	{0x11, false}: "LAlt",
	{0x12, false}: "LShift",
	{0x14, false}: "LCtrl",
	{0x29, false}: "Space",
	{0x58, false}: "CapsLock",
	{0x59, false}: "RShift",
	{0x5A, false}: "Enter",
	{0x66, false}: "Backspace",
	{0x76, false}: "Esc",
	{0x77, false}: "NumLock",
	{0x78, false}: "F11",
	{0x7E, false}: "ScrollLock",
	{0x83, false}: "F7",
	{0x11, true}:  "RAlt",
	{0x14, true}:  "RCtrl",
	{0x1F, true}:  "LGui",
	{0x27, true}:  "RGui",
	{0x2F, true}:  "Apps",
	{0x4A, true}:  "KP-/",
	{0x5A, true}:  "KP-Enter",
	{0x69, true}:  "End",
	{0x6B, true}:  "Left",
	{0x6C, true}:  "Home",
	{0x70, true}:  "Insert",
	{0x71, true}:  "Delete",
	{0x72, true}:  "Down",
	{0x74, true}:  "Right",
	{0x75, true}:  "Up",
	{0x7A, true}:  "PageDown",
	{0x7D, true}:  "PageUp",
}

// KeyName returns a short name for keys without a printable character, or
// an empty string when the key has none.
func KeyName(e Event) string {
	return keyNames[keyID{e.Code, e.Extended}]
}
