package session

// Key identifies a non-character key the interactive layer forwards to the
// remote shell.
type Key int

const (
	KeyEnter Key = iota
	KeyTab
	KeyBacktab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyInsert
	KeyDelete
	KeyPageUp
	KeyPageDown
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

var tildeKeys = map[Key]string{
	KeyInsert:   "\x1b[2~",
	KeyDelete:   "\x1b[3~",
	KeyPageUp:   "\x1b[5~",
	KeyPageDown: "\x1b[6~",
	KeyF5:       "\x1b[15~",
	KeyF6:       "\x1b[17~",
	KeyF7:       "\x1b[18~",
	KeyF8:       "\x1b[19~",
	KeyF9:       "\x1b[20~",
	KeyF10:      "\x1b[21~",
	KeyF11:      "\x1b[23~",
	KeyF12:      "\x1b[24~",
}

// encodeKey returns the byte sequence for a key. Arrow, home and end keys
// switch between CSI and SS3 encodings with the terminal's cursor-keys
// application mode; backspace transmits the session's configured byte.
func encodeKey(k Key, appMode bool, backspace []byte) []byte {
	if seq, ok := tildeKeys[k]; ok {
		return []byte(seq)
	}
	switch k {
	case KeyEnter:
		return []byte{'\r'}
	case KeyTab:
		return []byte{'\t'}
	case KeyBacktab:
		return []byte("\x1b[Z")
	case KeyBackspace:
		return append([]byte(nil), backspace...)
	case KeyEscape:
		return []byte{0x1b}
	case KeyUp:
		return cursorKey('A', appMode)
	case KeyDown:
		return cursorKey('B', appMode)
	case KeyRight:
		return cursorKey('C', appMode)
	case KeyLeft:
		return cursorKey('D', appMode)
	case KeyHome:
		return cursorKey('H', appMode)
	case KeyEnd:
		return cursorKey('F', appMode)
	case KeyF1:
		return []byte("\x1bOP")
	case KeyF2:
		return []byte("\x1bOQ")
	case KeyF3:
		return []byte("\x1bOR")
	case KeyF4:
		return []byte("\x1bOS")
	}
	return nil
}

func cursorKey(final byte, appMode bool) []byte {
	if appMode {
		return []byte{0x1b, 'O', final}
	}
	return []byte{0x1b, '[', final}
}

// encodeCtrl maps a ctrl-chorded letter to its control byte; ctrl-a is
// 0x01 through ctrl-z 0x1A.
func encodeCtrl(r rune) ([]byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return []byte{byte(r - 'a' + 1)}, true
	case r >= 'A' && r <= 'Z':
		return []byte{byte(r - 'A' + 1)}, true
	case r == ' ', r == '@':
		return []byte{0}, true
	case r == '[':
		return []byte{0x1b}, true
	case r == '\\':
		return []byte{0x1c}, true
	case r == ']':
		return []byte{0x1d}, true
	case r == '^':
		return []byte{0x1e}, true
	case r == '_':
		return []byte{0x1f}, true
	}
	return nil, false
}
