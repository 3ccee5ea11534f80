// Package terminal implements a VT100/ANSI terminal emulation engine: it
// converts an arbitrarily-chunked byte stream from a remote shell into a
// grid of styled cells plus cursor and mode state.
//
// The package is deliberately headless. Rendering, input routing and the
// transport that produces the byte stream live elsewhere and consume the
// engine only through its read accessors; the single mutation entry points
// are Process and Resize. Nothing here is safe for concurrent use - the
// owning session must serialize access.
package terminal

import (
	"image/color"
	"unicode/utf8"
)

const defaultScrollback = 20000

// Config carries the construction-time session parameters.
type Config struct {
	Columns, Rows   int
	ScrollbackLines int
	Foreground      color.RGBA
	Background      color.RGBA
}

func (c Config) withDefaults() Config {
	if c.Columns < 1 {
		c.Columns = defaultCols
	}
	if c.Rows < 1 {
		c.Rows = defaultRows
	}
	if c.ScrollbackLines == 0 {
		c.ScrollbackLines = defaultScrollback
	}
	if c.Foreground == (color.RGBA{}) {
		c.Foreground = color.RGBA{204, 204, 204, 255}
	}
	if c.Background == (color.RGBA{}) {
		c.Background = color.RGBA{0, 0, 0, 255}
	}
	return c
}

// Terminal binds the escape lexer, the semantic interpreter and the cell
// buffer into one byte-stream-in, queryable-state-out unit.
type Terminal struct {
	buf    *Buffer
	parser *parser

	// UTF-8 continuation bytes held between Process calls so multi-byte
	// characters split across chunks decode identically to unsplit input.
	utf8Buf []byte

	cursorKeysApplication bool
	autoWrap              bool
	cursorVisible         bool
	reverseVideo          bool
	bracketedPaste        bool

	bellPending bool
	title       string
	titleSet    bool
}

// New creates a terminal with the given session configuration. Zero-valued
// config fields fall back to 80x24, a 20000-line scrollback and the stock
// light-gray-on-black palette.
func New(cfg Config) *Terminal {
	cfg = cfg.withDefaults()
	buf := NewBuffer(cfg.ScrollbackLines, cfg.Foreground, cfg.Background)
	buf.Resize(cfg.Columns, cfg.Rows)
	return &Terminal{
		buf:           buf,
		parser:        newParser(),
		autoWrap:      true,
		cursorVisible: true,
	}
}

// Process feeds raw bytes from the transport through the engine. Chunking
// is arbitrary: escape sequences and UTF-8 characters split across calls
// resolve exactly as if delivered in one call. Process never fails;
// malformed input is dropped and the stream resynchronizes.
func (t *Terminal) Process(data []byte) {
	for _, b := range data {
		if len(t.utf8Buf) > 0 {
			t.utf8Buf = append(t.utf8Buf, b)
			if r, ok := t.decodeUTF8(); ok {
				t.buf.putChar(r)
			}
			continue
		}
		// multi-byte characters are assembled here only while the lexer
		// sits in ground state; inside OSC and DCS strings high bytes
		// flow to the lexer so string payloads keep their encoding
		if b >= 0x80 && t.parser.state == stateGround {
			if b >= 0xC0 {
				t.utf8Buf = append(t.utf8Buf, b)
			}
			// stray continuation bytes are dropped
			continue
		}
		if a, ok := t.parser.parse(b); ok {
			t.handleAction(a)
		}
	}
}

// decodeUTF8 reports whether the held continuation buffer now forms a
// complete character. Invalid sequences are discarded without output.
func (t *Terminal) decodeUTF8() (rune, bool) {
	expected := 2
	switch lead := t.utf8Buf[0]; {
	case lead >= 0xF0:
		expected = 4
	case lead >= 0xE0:
		expected = 3
	}
	if len(t.utf8Buf) < expected {
		return 0, false
	}
	r, _ := utf8.DecodeRune(t.utf8Buf)
	t.utf8Buf = t.utf8Buf[:0]
	return r, r != utf8.RuneError
}

// Resize updates the viewport geometry; idempotent for unchanged values.
func (t *Terminal) Resize(cols, rows int) {
	t.buf.Resize(cols, rows)
}

// Buffer exposes the underlying cell grid for read access.
func (t *Terminal) Buffer() *Buffer {
	return t.buf
}

// Cursor returns the cursor position, screen-relative.
func (t *Terminal) Cursor() (row, col int) {
	pos := t.buf.Cursor()
	return pos.Row, pos.Col
}

// Cols returns the live column count.
func (t *Terminal) Cols() int { return t.buf.Cols() }

// Rows returns the live row count.
func (t *Terminal) Rows() int { return t.buf.Rows() }

// TotalLines returns the number of retained lines, history plus screen.
func (t *Terminal) TotalLines() int { return t.buf.TotalLines() }

// ScrollbackLen returns the count of history lines before the live screen.
func (t *Terminal) ScrollbackLen() int { return t.buf.ScrollbackLen() }

// Line returns the line at an absolute index, oldest first.
func (t *Terminal) Line(index int) (Line, bool) { return t.buf.Line(index) }

// DefaultFG returns the session's default foreground color.
func (t *Terminal) DefaultFG() color.RGBA { return t.buf.DefaultFG() }

// DefaultBG returns the session's default background color.
func (t *Terminal) DefaultBG() color.RGBA { return t.buf.DefaultBG() }

// TextRange extracts copyable text between two absolute-line positions.
func (t *Terminal) TextRange(startRow, startCol, endRow, endCol int) string {
	return t.buf.TextRange(startRow, startCol, endRow, endCol)
}

// CursorVisible reports DECTCEM state.
func (t *Terminal) CursorVisible() bool { return t.cursorVisible }

// ReverseVideo reports DECSCNM state.
func (t *Terminal) ReverseVideo() bool { return t.reverseVideo }

// CursorKeysApplication reports DECCKM state; the input layer uses it to
// pick cursor-key encodings.
func (t *Terminal) CursorKeysApplication() bool { return t.cursorKeysApplication }

// BracketedPaste reports whether pasted text should be wrapped in paste
// markers before transmission.
func (t *Terminal) BracketedPaste() bool { return t.bracketedPaste }

// TakeBell returns and clears the pending-bell flag. Polling again without
// new input returns false.
func (t *Terminal) TakeBell() bool {
	pending := t.bellPending
	t.bellPending = false
	return pending
}

// TakeTitle returns and clears a pending OSC title change. A later title
// update before consumption overwrites the earlier one.
func (t *Terminal) TakeTitle() (string, bool) {
	if !t.titleSet {
		return "", false
	}
	title := t.title
	t.title = ""
	t.titleSet = false
	return title, true
}
