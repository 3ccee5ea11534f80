package terminal

// DEC private mode numbers handled by the interpreter.
const (
	modeCursorKeys     = 1
	modeReverseVideo   = 5
	modeOrigin         = 6
	modeAutoWrap       = 7
	modeCursorVisible  = 25
	modeBracketedPaste = 2004
)

// csiHandlers maps a CSI final byte to the buffer operation it selects.
// Unknown finals are silently ignored by the dispatch.
var csiHandlers = map[byte]func(*Terminal, []uint16){
	'@': csiInsertChars,
	'A': csiCursorUp,
	'B': csiCursorDown,
	'C': csiCursorRight,
	'D': csiCursorLeft,
	'E': csiCursorNextLine,
	'F': csiCursorPrevLine,
	'G': csiCursorColumn,
	'`': csiCursorColumn,
	'H': csiCursorPosition,
	'f': csiCursorPosition,
	'I': csiForwardTab,
	'Z': csiBackwardTab,
	'J': csiEraseInDisplay,
	'K': csiEraseInLine,
	'L': csiInsertLines,
	'M': csiDeleteLines,
	'P': csiDeleteChars,
	'S': csiScrollUp,
	'T': csiScrollDown,
	'X': csiEraseChars,
	'a': csiCursorRight,
	'd': csiCursorRow,
	'e': csiCursorDown,
	'h': csiSetMode,
	'l': csiResetMode,
	'm': csiSelectGraphicRendition,
	'r': csiSetScrollRegion,
	's': csiSaveCursor,
	'u': csiRestoreCursor,
}

// param returns the i-th parameter, substituting def when the parameter is
// absent or zero (an unset parameter arrives as 0 from the lexer).
func param(params []uint16, i int, def int) int {
	if i < len(params) && params[i] != 0 {
		return int(params[i])
	}
	return def
}

func (t *Terminal) handleAction(a action) {
	switch a.kind {
	case actionPrint:
		t.buf.putChar(a.r)
	case actionExecute:
		t.handleExecute(a.b)
	case actionCsiDispatch:
		t.handleCSI(a.params, a.intermediates, a.final)
	case actionEscDispatch:
		t.handleEsc(a.intermediates, a.final)
	case actionOscDispatch:
		t.handleOSC(a.oscParams)
	case actionDcsHook, actionDcsPut, actionDcsUnhook:
		// parsed for stream integrity, not acted upon
	}
}

func (t *Terminal) handleExecute(b byte) {
	switch b {
	case 0x07: // BEL
		t.bellPending = true
	case 0x08: // BS
		t.buf.backspace()
	case 0x09: // HT
		t.buf.tab()
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		t.buf.newLine()
	case 0x0D: // CR
		t.buf.carriageReturn()
	}
}

func (t *Terminal) handleCSI(params []uint16, intermediates []byte, final byte) {
	if len(intermediates) > 0 && intermediates[0] == '?' {
		t.handleDecPrivateMode(params, final)
		return
	}
	if handler, ok := csiHandlers[final]; ok {
		handler(t, params)
	}
}

func (t *Terminal) handleDecPrivateMode(params []uint16, final byte) {
	set := final == 'h'
	if !set && final != 'l' {
		return
	}
	for _, p := range params {
		switch p {
		case modeCursorKeys:
			t.cursorKeysApplication = set
		case modeReverseVideo:
			t.reverseVideo = set
		case modeOrigin:
			t.buf.setOriginMode(set)
		case modeAutoWrap:
			t.autoWrap = set
			t.buf.setAutoWrap(set)
		case modeCursorVisible:
			t.cursorVisible = set
		case modeBracketedPaste:
			t.bracketedPaste = set
		case 47, 1047:
			if !set {
				t.buf.eraseInDisplay(2)
			}
		case 1049:
			if set {
				t.buf.saveCursor()
				t.buf.eraseInDisplay(2)
			} else {
				t.buf.eraseInDisplay(2)
				t.buf.restoreCursor()
			}
		}
	}
}

func (t *Terminal) handleEsc(intermediates []byte, final byte) {
	if len(intermediates) > 0 {
		if intermediates[0] == '#' && final == '8' {
			t.screenAlignmentTest()
		}
		return
	}
	switch final {
	case '7': // DECSC
		t.buf.saveCursor()
	case '8': // DECRC
		t.buf.restoreCursor()
	case 'D': // IND
		t.buf.newLine()
	case 'E': // NEL
		t.buf.carriageReturn()
		t.buf.newLine()
	case 'M': // RI
		if t.buf.cursor.Row == t.buf.scrollTop {
			t.buf.scrollDown(1)
		} else {
			t.buf.moveCursorUp(1)
		}
	case 'c': // RIS
		t.reset()
	}
}

// reset performs a full terminal reset (RIS): clear screen, home cursor,
// default style, default scroll region and all mode flags back to defaults.
func (t *Terminal) reset() {
	t.buf.eraseInDisplay(2)
	t.buf.resetStyle()
	t.buf.resetScrollRegion()
	t.buf.setOriginMode(false)
	t.buf.setCursorPosition(0, 0)
	t.buf.setAutoWrap(true)
	t.cursorKeysApplication = false
	t.autoWrap = true
	t.cursorVisible = true
	t.reverseVideo = false
	t.bracketedPaste = false
}

// screenAlignmentTest implements DECALN: fill the whole screen with E.
func (t *Terminal) screenAlignmentTest() {
	for row := 0; row < t.buf.rows; row++ {
		t.buf.setCursorPosition(row, 0)
		for col := 0; col < t.buf.cols; col++ {
			t.buf.putChar('E')
		}
	}
	t.buf.setCursorPosition(0, 0)
}

func (t *Terminal) handleOSC(params []string) {
	if len(params) == 0 {
		return
	}
	switch params[0] {
	case "0", "2":
		// window title; later updates overwrite an unconsumed one
		if len(params) > 1 {
			t.title = joinOSC(params[1:])
			t.titleSet = true
		}
	case "1":
		// icon name, accepted and discarded
	}
}

func joinOSC(parts []string) string {
	title := parts[0]
	for _, p := range parts[1:] {
		title += ";" + p
	}
	return title
}

func csiInsertChars(t *Terminal, params []uint16) {
	t.buf.insertChars(param(params, 0, 1))
}

func csiCursorUp(t *Terminal, params []uint16) {
	t.buf.moveCursorUp(param(params, 0, 1))
}

func csiCursorDown(t *Terminal, params []uint16) {
	t.buf.moveCursorDown(param(params, 0, 1))
}

func csiCursorRight(t *Terminal, params []uint16) {
	t.buf.moveCursorRight(param(params, 0, 1))
}

func csiCursorLeft(t *Terminal, params []uint16) {
	t.buf.moveCursorLeft(param(params, 0, 1))
}

func csiCursorNextLine(t *Terminal, params []uint16) {
	t.buf.moveCursorDown(param(params, 0, 1))
	t.buf.carriageReturn()
}

func csiCursorPrevLine(t *Terminal, params []uint16) {
	t.buf.moveCursorUp(param(params, 0, 1))
	t.buf.carriageReturn()
}

func csiCursorColumn(t *Terminal, params []uint16) {
	t.buf.setCursorPosition(t.buf.cursor.Row, param(params, 0, 1)-1)
}

func csiCursorRow(t *Terminal, params []uint16) {
	t.buf.setCursorPosition(param(params, 0, 1)-1, t.buf.cursor.Col)
}

func csiCursorPosition(t *Terminal, params []uint16) {
	row := param(params, 0, 1) - 1
	col := param(params, 1, 1) - 1
	t.buf.setCursorPosition(row, col)
}

func csiForwardTab(t *Terminal, params []uint16) {
	for n := param(params, 0, 1); n > 0; n-- {
		t.buf.tab()
	}
}

func csiBackwardTab(t *Terminal, params []uint16) {
	col := t.buf.cursor.Col
	for n := param(params, 0, 1); n > 0 && col > 0; n-- {
		col = (col - 1) / tabWidth * tabWidth
	}
	t.buf.setCursorPosition(t.buf.cursor.Row, col)
}

func csiEraseInDisplay(t *Terminal, params []uint16) {
	t.buf.eraseInDisplay(param(params, 0, 0))
}

func csiEraseInLine(t *Terminal, params []uint16) {
	t.buf.eraseInLine(param(params, 0, 0))
}

func csiInsertLines(t *Terminal, params []uint16) {
	t.buf.insertLines(param(params, 0, 1))
}

func csiDeleteLines(t *Terminal, params []uint16) {
	t.buf.deleteLines(param(params, 0, 1))
}

func csiDeleteChars(t *Terminal, params []uint16) {
	t.buf.deleteChars(param(params, 0, 1))
}

func csiScrollUp(t *Terminal, params []uint16) {
	t.buf.scrollUp(param(params, 0, 1))
}

func csiScrollDown(t *Terminal, params []uint16) {
	t.buf.scrollDown(param(params, 0, 1))
}

func csiEraseChars(t *Terminal, params []uint16) {
	t.buf.eraseChars(param(params, 0, 1))
}

// csiSetMode and csiResetMode cover ANSI SM/RM without the '?' prefix.
// Insert mode and automatic newline are accepted and ignored, matching
// the VT100 profile.
func csiSetMode(t *Terminal, params []uint16) {}

func csiResetMode(t *Terminal, params []uint16) {}

func csiSelectGraphicRendition(t *Terminal, params []uint16) {
	style := t.buf.currentStyle()
	applySGR(params, &style, t.buf.defaultFG)
	t.buf.setStyle(style)
}

func csiSetScrollRegion(t *Terminal, params []uint16) {
	top := param(params, 0, 1) - 1
	bottom := param(params, 1, t.buf.rows) - 1
	t.buf.setScrollRegion(top, bottom)
}

func csiSaveCursor(t *Terminal, params []uint16) {
	t.buf.saveCursor()
}

func csiRestoreCursor(t *Terminal, params []uint16) {
	t.buf.restoreCursor()
}
