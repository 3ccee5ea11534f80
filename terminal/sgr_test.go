package terminal

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testDefaultFG = color.RGBA{204, 204, 204, 255}

func styleAfter(params ...uint16) Style {
	style := Style{FG: testDefaultFG, BG: Transparent}
	applySGR(params, &style, testDefaultFG)
	return style
}

func TestSGRReset(t *testing.T) {
	style := Style{FG: ansiPalette[1], BG: ansiPalette[4], Bold: true, Underline: true}
	applySGR([]uint16{0}, &style, testDefaultFG)

	assert.Equal(t, Style{FG: testDefaultFG, BG: Transparent}, style)
}

func TestSGREmptyParamsMeansReset(t *testing.T) {
	style := Style{FG: ansiPalette[2], Bold: true}
	applySGR(nil, &style, testDefaultFG)

	assert.Equal(t, Style{FG: testDefaultFG, BG: Transparent}, style)
}

func TestSGRAttributes(t *testing.T) {
	tests := map[string]struct {
		params []uint16
		check  func(t *testing.T, s Style)
	}{
		"bold": {
			params: []uint16{1},
			check:  func(t *testing.T, s Style) { assert.True(t, s.Bold) },
		},
		"dim": {
			params: []uint16{2},
			check:  func(t *testing.T, s Style) { assert.True(t, s.Dim) },
		},
		"italic": {
			params: []uint16{3},
			check:  func(t *testing.T, s Style) { assert.True(t, s.Italic) },
		},
		"underline": {
			params: []uint16{4},
			check:  func(t *testing.T, s Style) { assert.True(t, s.Underline) },
		},
		"blink fast maps to blink": {
			params: []uint16{6},
			check:  func(t *testing.T, s Style) { assert.True(t, s.Blink) },
		},
		"inverse": {
			params: []uint16{7},
			check:  func(t *testing.T, s Style) { assert.True(t, s.Inverse) },
		},
		"strikethrough": {
			params: []uint16{9},
			check:  func(t *testing.T, s Style) { assert.True(t, s.Strikethrough) },
		},
		"22 clears bold and dim": {
			params: []uint16{1, 2, 22},
			check: func(t *testing.T, s Style) {
				assert.False(t, s.Bold)
				assert.False(t, s.Dim)
			},
		},
		"27 clears inverse": {
			params: []uint16{7, 27},
			check:  func(t *testing.T, s Style) { assert.False(t, s.Inverse) },
		},
		"unknown code ignored": {
			params: []uint16{1, 99},
			check:  func(t *testing.T, s Style) { assert.True(t, s.Bold) },
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tt.check(t, styleAfter(tt.params...))
		})
	}
}

func TestSGRBasicColors(t *testing.T) {
	assert.Equal(t, color.RGBA{170, 0, 0, 255}, styleAfter(31).FG)
	assert.Equal(t, color.RGBA{0, 170, 0, 255}, styleAfter(32).FG)
	assert.Equal(t, color.RGBA{255, 85, 85, 255}, styleAfter(91).FG)
	assert.Equal(t, color.RGBA{170, 0, 0, 255}, styleAfter(41).BG)
	assert.Equal(t, color.RGBA{85, 85, 85, 255}, styleAfter(100).BG)

	// 39 and 49 restore the defaults without touching attributes
	s := styleAfter(1, 31, 41, 39, 49)
	assert.Equal(t, testDefaultFG, s.FG)
	assert.Equal(t, Transparent, s.BG)
	assert.True(t, s.Bold)
}

func TestSGR256Color(t *testing.T) {
	tests := map[string]struct {
		index uint16
		want  color.RGBA
	}{
		"0 is palette black":        {0, color.RGBA{0, 0, 0, 255}},
		"1 is palette red":          {1, color.RGBA{170, 0, 0, 255}},
		"15 is bright white":        {15, color.RGBA{255, 255, 255, 255}},
		"16 is cube origin":         {16, color.RGBA{0, 0, 0, 255}},
		"231 is cube max":           {231, color.RGBA{255, 255, 255, 255}},
		"196 is pure cube red":      {196, color.RGBA{255, 0, 0, 255}},
		"244 is mid grayscale":      {244, color.RGBA{128, 128, 128, 255}},
		"232 is grayscale darkest":  {232, color.RGBA{8, 8, 8, 255}},
		"255 is grayscale lightest": {255, color.RGBA{238, 238, 238, 255}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, color256(tt.index))
			assert.Equal(t, tt.want, styleAfter(38, 5, tt.index).FG)
			assert.Equal(t, tt.want, styleAfter(48, 5, tt.index).BG)
		})
	}
}

func TestSGRTrueColor(t *testing.T) {
	assert.Equal(t, color.RGBA{12, 34, 56, 255}, styleAfter(38, 2, 12, 34, 56).FG)
	assert.Equal(t, color.RGBA{200, 100, 50, 255}, styleAfter(48, 2, 200, 100, 50).BG)
}

func TestSGRMalformedExtendedColor(t *testing.T) {
	// a truncated 38 leaves the style untouched rather than misreading
	// following codes as channels
	s := styleAfter(38)
	assert.Equal(t, testDefaultFG, s.FG)

	s = styleAfter(38, 5)
	assert.Equal(t, testDefaultFG, s.FG)
}

func TestSGRCompose(t *testing.T) {
	// successive sequences accumulate onto the live style
	style := Style{FG: testDefaultFG, BG: Transparent}
	applySGR([]uint16{1}, &style, testDefaultFG)
	applySGR([]uint16{31}, &style, testDefaultFG)
	applySGR([]uint16{4}, &style, testDefaultFG)

	assert.True(t, style.Bold)
	assert.True(t, style.Underline)
	assert.Equal(t, color.RGBA{170, 0, 0, 255}, style.FG)
}

func TestEffectiveColors(t *testing.T) {
	bg := color.RGBA{0, 0, 0, 255}
	s := Style{FG: testDefaultFG, BG: Transparent}

	fg, got := s.EffectiveColors(bg)
	assert.Equal(t, testDefaultFG, fg)
	assert.Equal(t, bg, got)

	s.Inverse = true
	fg, got = s.EffectiveColors(bg)
	assert.Equal(t, bg, fg)
	assert.Equal(t, testDefaultFG, got)
}
