package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// feed runs a byte string through a fresh parser and collects every action.
func feed(input string) []action {
	p := newParser()
	var actions []action
	for i := 0; i < len(input); i++ {
		if a, ok := p.parse(input[i]); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

func TestParserPrintAndExecute(t *testing.T) {
	actions := feed("hi\n")

	assert.Len(t, actions, 3)
	assert.Equal(t, actionPrint, actions[0].kind)
	assert.Equal(t, 'h', actions[0].r)
	assert.Equal(t, actionPrint, actions[1].kind)
	assert.Equal(t, 'i', actions[1].r)
	assert.Equal(t, actionExecute, actions[2].kind)
	assert.Equal(t, byte('\n'), actions[2].b)
}

func TestParserCsiDispatch(t *testing.T) {
	tests := map[string]struct {
		input         string
		params        []uint16
		intermediates []byte
		final         byte
	}{
		"cursor position with both params": {
			input:  "\x1b[5;10H",
			params: []uint16{5, 10},
			final:  'H',
		},
		"no params collects the implicit zero": {
			input:  "\x1b[m",
			params: []uint16{0},
			final:  'm',
		},
		"leading separator yields a zero param": {
			input:  "\x1b[;5H",
			params: []uint16{0, 5},
			final:  'H',
		},
		"dec private marker kept as intermediate": {
			input:         "\x1b[?25l",
			params:        []uint16{25},
			intermediates: []byte{'?'},
			final:         'l',
		},
		"oversized param saturates instead of wrapping": {
			input:  "\x1b[99999999999m",
			params: []uint16{0xFFFF},
			final:  'm',
		},
		"8-bit csi introducer": {
			input:  "\x9b4C",
			params: []uint16{4},
			final:  'C',
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			actions := feed(tt.input)

			assert.Len(t, actions, 1)
			assert.Equal(t, actionCsiDispatch, actions[0].kind)
			assert.Equal(t, tt.params, actions[0].params)
			assert.Equal(t, tt.final, actions[0].final)
			if tt.intermediates != nil {
				assert.Equal(t, tt.intermediates, actions[0].intermediates)
			}
		})
	}
}

func TestParserEscDispatch(t *testing.T) {
	actions := feed("\x1b7\x1b#8")

	assert.Len(t, actions, 2)
	assert.Equal(t, actionEscDispatch, actions[0].kind)
	assert.Equal(t, byte('7'), actions[0].final)
	assert.Equal(t, actionEscDispatch, actions[1].kind)
	assert.Equal(t, []byte{'#'}, actions[1].intermediates)
	assert.Equal(t, byte('8'), actions[1].final)
}

func TestParserOscTermination(t *testing.T) {
	tests := map[string]struct {
		input     string
		oscParams []string
		extra     int // actions after the OSC dispatch
	}{
		"bel terminated": {
			input:     "\x1b]0;my title\x07",
			oscParams: []string{"0", "my title"},
		},
		"esc backslash terminated": {
			input:     "\x1b]2;abc\x1b\\",
			oscParams: []string{"2", "abc"},
			extra:     1, // trailing backslash dispatches as a plain ESC final
		},
		"8-bit st terminated": {
			input:     "\x9d0;x\x9c",
			oscParams: []string{"0", "x"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			actions := feed(tt.input)

			assert.Len(t, actions, 1+tt.extra)
			assert.Equal(t, actionOscDispatch, actions[0].kind)
			assert.Equal(t, tt.oscParams, actions[0].oscParams)
		})
	}
}

func TestParserResynchronizes(t *testing.T) {
	// a colon sub-parameter puts CSI into ignore; the whole sequence is
	// swallowed and the following text prints normally
	actions := feed("\x1b[1:2mok")

	assert.Len(t, actions, 2)
	assert.Equal(t, actionPrint, actions[0].kind)
	assert.Equal(t, 'o', actions[0].r)
	assert.Equal(t, 'k', actions[1].r)
}

func TestParserEscRestartsSequence(t *testing.T) {
	// a new ESC in the middle of a CSI abandons it and starts over
	actions := feed("\x1b[12\x1b[3m")

	assert.Len(t, actions, 1)
	assert.Equal(t, actionCsiDispatch, actions[0].kind)
	assert.Equal(t, []uint16{3}, actions[0].params)
}

func TestParserExecutePassesThroughCsi(t *testing.T) {
	// C0 controls inside a sequence execute immediately without
	// disturbing parameter collection
	actions := feed("\x1b[2\x0a5H")

	assert.Len(t, actions, 2)
	assert.Equal(t, actionExecute, actions[0].kind)
	assert.Equal(t, byte(0x0a), actions[0].b)
	assert.Equal(t, actionCsiDispatch, actions[1].kind)
	assert.Equal(t, []uint16{25}, actions[1].params)
}

func TestParserDcsPassthrough(t *testing.T) {
	actions := feed("\x1bPq#0\x1b\\")

	assert.GreaterOrEqual(t, len(actions), 4)
	assert.Equal(t, actionDcsHook, actions[0].kind)
	assert.Equal(t, byte('q'), actions[0].final)
	assert.Equal(t, actionDcsPut, actions[1].kind)
	assert.Equal(t, byte('#'), actions[1].b)
	assert.Equal(t, actionDcsPut, actions[2].kind)
	assert.Equal(t, byte('0'), actions[2].b)
	assert.Equal(t, actionDcsUnhook, actions[3].kind)
}

func TestParserSosPmApcDiscarded(t *testing.T) {
	actions := feed("\x1b_anything goes here\x1b\\after")

	// the APC body vanishes; only the terminator ESC final and the
	// trailing text come through
	assert.Len(t, actions, 6)
	assert.Equal(t, actionEscDispatch, actions[0].kind)
	assert.Equal(t, byte('\\'), actions[0].final)
	assert.Equal(t, actionPrint, actions[1].kind)
	assert.Equal(t, 'a', actions[1].r)
}

func TestParserStatePersistsAcrossCalls(t *testing.T) {
	// a sequence split byte-by-byte across parse calls dispatches
	// identically to one delivered whole
	p := newParser()
	var got []action
	for _, b := range []byte{0x1b, '[', '3', '1', 'm'} {
		if a, ok := p.parse(b); ok {
			got = append(got, a)
		}
	}

	assert.Len(t, got, 1)
	assert.Equal(t, actionCsiDispatch, got[0].kind)
	assert.Equal(t, []uint16{31}, got[0].params)
}
