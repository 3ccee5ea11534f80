package terminal

import "image/color"

// ansiPalette holds the 16 standard colors: 8 base followed by 8 bright.
var ansiPalette = [16]color.RGBA{
	{0, 0, 0, 255},       // black
	{170, 0, 0, 255},     // red
	{0, 170, 0, 255},     // green
	{170, 85, 0, 255},    // yellow (brown)
	{50, 100, 255, 255},  // blue
	{170, 0, 170, 255},   // magenta
	{0, 170, 170, 255},   // cyan
	{170, 170, 170, 255}, // white
	{85, 85, 85, 255},    // bright black (gray)
	{255, 85, 85, 255},   // bright red
	{85, 255, 85, 255},   // bright green
	{255, 255, 85, 255},  // bright yellow
	{85, 85, 255, 255},   // bright blue
	{255, 85, 255, 255},  // bright magenta
	{85, 255, 255, 255},  // bright cyan
	{255, 255, 255, 255}, // bright white
}

// applySGR folds a Select Graphic Rendition parameter list into style.
// It mutates style in place so that successive SGR sequences compose;
// parameter 0 resets to the default foreground, transparent background and
// no attributes. Unrecognized codes are ignored.
func applySGR(params []uint16, style *Style, defaultFG color.RGBA) {
	if len(params) == 0 {
		params = []uint16{0}
	}
	for i := 0; i < len(params); i++ {
		switch p := params[i]; {
		case p == 0:
			*style = Style{FG: defaultFG, BG: Transparent}
		case p == 1:
			style.Bold = true
		case p == 2:
			style.Dim = true
		case p == 3:
			style.Italic = true
		case p == 4:
			style.Underline = true
		case p == 5 || p == 6:
			style.Blink = true
		case p == 7:
			style.Inverse = true
		case p == 9:
			style.Strikethrough = true
		case p == 21:
			style.Bold = false
		case p == 22:
			style.Bold = false
			style.Dim = false
		case p == 23:
			style.Italic = false
		case p == 24:
			style.Underline = false
		case p == 25:
			style.Blink = false
		case p == 27:
			style.Inverse = false
		case p == 29:
			style.Strikethrough = false
		case p >= 30 && p <= 37:
			style.FG = ansiPalette[p-30]
		case p == 38:
			if c, skip, ok := extendedColor(params[i+1:]); ok {
				style.FG = c
				i += skip
			}
		case p == 39:
			style.FG = defaultFG
		case p >= 40 && p <= 47:
			style.BG = ansiPalette[p-40]
		case p == 48:
			if c, skip, ok := extendedColor(params[i+1:]); ok {
				style.BG = c
				i += skip
			}
		case p == 49:
			style.BG = Transparent
		case p >= 90 && p <= 97:
			style.FG = ansiPalette[p-90+8]
		case p >= 100 && p <= 107:
			style.BG = ansiPalette[p-100+8]
		}
	}
}

// extendedColor decodes the parameters following SGR 38/48: "5;index" for
// the 256-color table or "2;r;g;b" for literal RGB. skip is the number of
// parameters consumed beyond the introducer.
func extendedColor(rest []uint16) (c color.RGBA, skip int, ok bool) {
	if len(rest) >= 2 && rest[0] == 5 {
		return color256(rest[1]), 2, true
	}
	if len(rest) >= 4 && rest[0] == 2 {
		return color.RGBA{uint8(rest[1]), uint8(rest[2]), uint8(rest[3]), 255}, 4, true
	}
	return color.RGBA{}, 0, false
}

// color256 resolves an xterm 256-color index: 0-15 are the standard
// palette, 16-231 a 6x6x6 cube, 232-255 a 24-step grayscale ramp.
func color256(index uint16) color.RGBA {
	i := int(index)
	if i < 16 {
		return ansiPalette[i]
	}
	if i < 232 {
		i -= 16
		cube := func(c int) uint8 {
			if c == 0 {
				return 0
			}
			return uint8(c*40 + 55)
		}
		return color.RGBA{cube((i / 36) % 6), cube((i / 6) % 6), cube(i % 6), 255}
	}
	if i > 255 {
		i = 255
	}
	gray := uint8((i-232)*10 + 8)
	return color.RGBA{gray, gray, gray, 255}
}
