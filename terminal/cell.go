package terminal

import (
	"image/color"
	"strings"
)

// Transparent is the background sentinel meaning "use the buffer default".
// It is distinct from an opaque black background.
var Transparent = color.RGBA{}

// Style holds the graphic rendition applied to a cell. Inverse is resolved
// when reading, via EffectiveColors, so stored colors are never swapped.
type Style struct {
	FG            color.RGBA
	BG            color.RGBA
	Bold          bool
	Dim           bool
	Italic        bool
	Underline     bool
	Blink         bool
	Inverse       bool
	Strikethrough bool
}

// EffectiveColors returns the colors a renderer should paint with, after
// substituting the default background for Transparent and applying inverse.
func (s Style) EffectiveColors(defaultBG color.RGBA) (fg, bg color.RGBA) {
	bg = s.BG
	if bg == Transparent {
		bg = defaultBG
	}
	if s.Inverse {
		return bg, s.FG
	}
	return s.FG, bg
}

// Cell is a single grid position.
type Cell struct {
	Rune  rune
	Style Style
}

func blankCell(style Style) Cell {
	return Cell{Rune: ' ', Style: style}
}

// Line is a fixed-width row of cells. The wrapped flag records that the
// line's content continues onto the next line without a logical newline.
type Line struct {
	cells   []Cell
	wrapped bool
}

func newLine(cols int, style Style) Line {
	cells := make([]Cell, cols)
	for i := range cells {
		cells[i] = blankCell(style)
	}
	return Line{cells: cells}
}

// Cells exposes the row for reading. Callers must not retain or mutate the
// returned slice; the buffer owns all cell storage.
func (l *Line) Cells() []Cell {
	return l.cells
}

// Cell returns the cell at col, reporting false when col is out of range.
func (l *Line) Cell(col int) (Cell, bool) {
	if col < 0 || col >= len(l.cells) {
		return Cell{}, false
	}
	return l.cells[col], true
}

// Len returns the column count of the line.
func (l *Line) Len() int {
	return len(l.cells)
}

// Wrapped reports whether this line soft-wraps onto the next one.
func (l *Line) Wrapped() bool {
	return l.wrapped
}

// String renders the line's characters with trailing whitespace removed.
func (l *Line) String() string {
	var sb strings.Builder
	for _, c := range l.cells {
		sb.WriteRune(c.Rune)
	}
	return strings.TrimRight(sb.String(), " ")
}

func (l *Line) set(col int, c Cell) {
	if col >= 0 && col < len(l.cells) {
		l.cells[col] = c
	}
}

func (l *Line) clear(style Style) {
	for i := range l.cells {
		l.cells[i] = blankCell(style)
	}
}

// clearRange blanks cells in [start, end).
func (l *Line) clearRange(start, end int, style Style) {
	if start < 0 {
		start = 0
	}
	if end > len(l.cells) {
		end = len(l.cells)
	}
	for i := start; i < end; i++ {
		l.cells[i] = blankCell(style)
	}
}

// setWidth pads or truncates the line to cols cells.
func (l *Line) setWidth(cols int, style Style) {
	switch {
	case len(l.cells) > cols:
		l.cells = l.cells[:cols]
	case len(l.cells) < cols:
		for len(l.cells) < cols {
			l.cells = append(l.cells, blankCell(style))
		}
	}
}

// Position is a cursor location, screen-relative and zero-based.
type Position struct {
	Row, Col int
}
