package terminal

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	term := New(Config{})

	assert.Equal(t, 80, term.Cols())
	assert.Equal(t, 24, term.Rows())
	assert.Equal(t, color.RGBA{204, 204, 204, 255}, term.DefaultFG())
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, term.DefaultBG())
	assert.True(t, term.CursorVisible())
	assert.False(t, term.CursorKeysApplication())
	assert.Equal(t, 0, term.TotalLines())
}

func TestNewCustomConfig(t *testing.T) {
	fg := color.RGBA{255, 255, 255, 255}
	bg := color.RGBA{20, 20, 40, 255}
	term := New(Config{Columns: 132, Rows: 43, Foreground: fg, Background: bg})

	assert.Equal(t, 132, term.Cols())
	assert.Equal(t, 43, term.Rows())
	assert.Equal(t, fg, term.DefaultFG())
	assert.Equal(t, bg, term.DefaultBG())
}

// Feeding the same stream in different chunkings must produce identical
// state: the lexer and the UTF-8 assembler both carry their position
// across Process calls.
func TestProcessChunkInvariance(t *testing.T) {
	stream := []byte("\x1b[2J\x1b[1;1H\x1b[1;32mprompt$ \x1b[0mécho ünïcode\r\n\x1b]0;tïtle\x07next")

	whole := New(Config{Columns: 40, Rows: 10})
	whole.Process(stream)

	bytewise := New(Config{Columns: 40, Rows: 10})
	for _, b := range stream {
		bytewise.Process([]byte{b})
	}

	ragged := New(Config{Columns: 40, Rows: 10})
	for i := 0; i < len(stream); i += 3 {
		end := i + 3
		if end > len(stream) {
			end = len(stream)
		}
		ragged.Process(stream[i:end])
	}

	for _, other := range []*Terminal{bytewise, ragged} {
		require.Equal(t, whole.TotalLines(), other.TotalLines())
		for i := 0; i < whole.TotalLines(); i++ {
			want, _ := whole.Line(i)
			got, _ := other.Line(i)
			assert.Equal(t, want.Cells(), got.Cells())
		}
		wr, wc := whole.Cursor()
		or, oc := other.Cursor()
		assert.Equal(t, wr, or)
		assert.Equal(t, wc, oc)

		title, ok := other.TakeTitle()
		assert.True(t, ok)
		assert.Equal(t, "tïtle", title)
	}
}

func TestProcessUTF8(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"two byte":           {"héllo", "héllo"},
		"three byte":         {"€ 5", "€ 5"},
		"four byte":          {"ok \U0001F600", "ok 😀"},
		"mixed with escapes": {"\x1b[1mä\x1b[0mb", "äb"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			term := New(Config{Columns: 20, Rows: 4})
			term.Process([]byte(tt.input))

			l, ok := term.Line(0)
			require.True(t, ok)
			assert.Equal(t, tt.want, l.String())
		})
	}
}

func TestProcessUTF8SplitAcrossCalls(t *testing.T) {
	term := New(Config{Columns: 20, Rows: 4})
	raw := []byte("héllo") // the é spans two bytes

	term.Process(raw[:2]) // "h" plus the lead byte
	term.Process(raw[2:])

	l, ok := term.Line(0)
	require.True(t, ok)
	assert.Equal(t, "héllo", l.String())
}

func TestProcessMalformedUTF8(t *testing.T) {
	term := New(Config{Columns: 20, Rows: 4})

	// stray continuation bytes and an overlong-truncated sequence are
	// dropped without disturbing surrounding output
	term.Process([]byte{'a', 0x80, 0xBF, 'b', 0xE2, 0x82, 'x'})

	l, ok := term.Line(0)
	require.True(t, ok)
	assert.Equal(t, "ab", l.String())
}

func TestResizeClampsCursor(t *testing.T) {
	term := New(Config{Columns: 80, Rows: 24})
	term.Process([]byte("\x1b[20;70H"))

	term.Resize(40, 10)

	row, col := term.Cursor()
	assert.Less(t, row, 10)
	assert.Less(t, col, 40)
	assert.Equal(t, 40, term.Cols())
	assert.Equal(t, 10, term.Rows())
}

func TestResizeIdempotent(t *testing.T) {
	term := New(Config{Columns: 40, Rows: 10})
	term.Process([]byte("hello\r\nworld"))
	before := term.TotalLines()
	row, col := term.Cursor()

	term.Resize(40, 10)

	assert.Equal(t, before, term.TotalLines())
	r, c := term.Cursor()
	assert.Equal(t, row, r)
	assert.Equal(t, col, c)
}

func TestTextRangeThroughFacade(t *testing.T) {
	term := New(Config{Columns: 20, Rows: 4})
	term.Process([]byte("first line\r\nsecond"))

	assert.Equal(t, "first line\nsecond", term.TextRange(0, 0, 1, 19))
}

func TestScrollbackDepthConfigured(t *testing.T) {
	term := New(Config{Columns: 10, Rows: 2, ScrollbackLines: 1500})

	for i := 0; i < 2000; i++ {
		term.Process([]byte("x\r\n"))
	}

	assert.Equal(t, 1502, term.TotalLines())
	assert.Equal(t, 1500, term.ScrollbackLen())
}
