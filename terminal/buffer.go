package terminal

import (
	"image/color"
	"strings"
)

const (
	defaultCols   = 80
	defaultRows   = 24
	minBufferSize = 1000
	tabWidth      = 8
)

// Buffer owns all character and style storage for one terminal session.
//
// It keeps a single continuous line history: scrollback plus the live
// screen, with screenStart marking where the visible screen begins. When a
// scroll at the bottom margin covers the whole screen the top row becomes
// permanent history by advancing screenStart; a confined scroll region only
// rotates lines inside the region and never touches history. Scrollback
// queries, cursor addressing and trimming all share this one model.
//
// The buffer carries no synchronization; the owning session serializes
// access.
type Buffer struct {
	lines       []Line
	cols        int
	rows        int
	maxLines    int
	screenStart int

	cursor      Position
	savedCursor Position

	style        Style
	scrollTop    int
	scrollBottom int
	originMode   bool
	autoWrap     bool

	defaultFG color.RGBA
	defaultBG color.RGBA
}

// NewBuffer creates an empty buffer with the given scrollback depth and
// default colors at the standard 80x24 geometry. Lines are added lazily as
// content is written, so a fresh buffer reports zero total lines.
func NewBuffer(maxScrollback int, defaultFG, defaultBG color.RGBA) *Buffer {
	if maxScrollback < minBufferSize {
		maxScrollback = minBufferSize
	}
	return &Buffer{
		cols:         defaultCols,
		rows:         defaultRows,
		maxLines:     maxScrollback + defaultRows,
		style:        Style{FG: defaultFG, BG: Transparent},
		scrollBottom: defaultRows - 1,
		autoWrap:     true,
		defaultFG:    defaultFG,
		defaultBG:    defaultBG,
	}
}

// screenToBuffer converts a screen-relative row to an absolute line index.
func (b *Buffer) screenToBuffer(row int) int {
	return b.screenStart + row
}

func (b *Buffer) trim() {
	if excess := len(b.lines) - b.maxLines; excess > 0 {
		copy(b.lines, b.lines[excess:])
		b.lines = b.lines[:len(b.lines)-excess]
		b.screenStart -= excess
		if b.screenStart < 0 {
			b.screenStart = 0
		}
	}
}

// ensureLine extends the history so that index idx exists. Only writes
// extend the buffer; erase operations never do.
func (b *Buffer) ensureLine(idx int) {
	for len(b.lines) <= idx {
		b.lines = append(b.lines, newLine(b.cols, b.style))
	}
}

func (b *Buffer) line(idx int) *Line {
	if idx < 0 || idx >= len(b.lines) {
		return nil
	}
	return &b.lines[idx]
}

func (b *Buffer) putChar(r rune) {
	if b.cursor.Col >= b.cols {
		if !b.autoWrap {
			b.cursor.Col = b.cols - 1
		} else {
			// soft wrap: flag the line being left so copied text can be
			// reassembled without a hard newline
			if l := b.line(b.screenToBuffer(b.cursor.Row)); l != nil {
				l.wrapped = true
			}
			b.cursor.Col = 0
			b.newLine()
		}
	}
	if b.cursor.Row > b.rows-1 {
		b.cursor.Row = b.rows - 1
	}
	idx := b.screenToBuffer(b.cursor.Row)
	b.ensureLine(idx)
	b.lines[idx].set(b.cursor.Col, Cell{Rune: r, Style: b.style})
	b.cursor.Col++
}

func (b *Buffer) newLine() {
	if b.cursor.Row >= b.scrollBottom {
		b.scrollUp(1)
	} else {
		b.cursor.Row++
	}
}

func (b *Buffer) carriageReturn() {
	b.cursor.Col = 0
}

func (b *Buffer) backspace() {
	if b.cursor.Col > b.cols {
		b.cursor.Col = b.cols
	}
	if b.cursor.Col > 0 {
		b.cursor.Col--
	}
}

func (b *Buffer) tab() {
	next := (b.cursor.Col/tabWidth + 1) * tabWidth
	if next > b.cols-1 {
		next = b.cols - 1
	}
	b.cursor.Col = next
}

// scrollUp moves content up by count lines. With the scroll region covering
// the whole screen each step pushes a fresh line at the bottom and the old
// top row falls into history; inside a confined region lines only rotate.
func (b *Buffer) scrollUp(count int) {
	for n := 0; n < count; n++ {
		if b.scrollTop == 0 && b.scrollBottom == b.rows-1 {
			b.ensureLine(b.screenToBuffer(b.rows - 1))
			b.lines = append(b.lines, newLine(b.cols, b.style))
			b.screenStart++
			b.trim()
			continue
		}
		topIdx := b.screenToBuffer(b.scrollTop)
		bottomIdx := b.screenToBuffer(b.scrollBottom)
		if topIdx >= len(b.lines) {
			continue
		}
		if bottomIdx > len(b.lines)-1 {
			bottomIdx = len(b.lines) - 1
		}
		copy(b.lines[topIdx:bottomIdx], b.lines[topIdx+1:bottomIdx+1])
		b.lines[bottomIdx] = newLine(b.cols, b.style)
	}
}

func (b *Buffer) scrollDown(count int) {
	for n := 0; n < count; n++ {
		topIdx := b.screenToBuffer(b.scrollTop)
		bottomIdx := b.screenToBuffer(b.scrollBottom)
		if bottomIdx >= len(b.lines) {
			bottomIdx = len(b.lines) - 1
		}
		if topIdx > bottomIdx || topIdx < 0 {
			continue
		}
		copy(b.lines[topIdx+1:bottomIdx+1], b.lines[topIdx:bottomIdx])
		b.lines[topIdx] = newLine(b.cols, b.style)
	}
}

func (b *Buffer) setCursorPosition(row, col int) {
	if b.originMode {
		row += b.scrollTop
		if row > b.scrollBottom {
			row = b.scrollBottom
		}
	} else if row > b.rows-1 {
		row = b.rows - 1
	}
	if row < 0 {
		row = 0
	}
	if col > b.cols-1 {
		col = b.cols - 1
	}
	if col < 0 {
		col = 0
	}
	b.cursor.Row = row
	b.cursor.Col = col
}

func (b *Buffer) moveCursorUp(count int) {
	min := 0
	if b.originMode {
		min = b.scrollTop
	}
	b.cursor.Row -= count
	if b.cursor.Row < min {
		b.cursor.Row = min
	}
}

func (b *Buffer) moveCursorDown(count int) {
	max := b.rows - 1
	if b.originMode {
		max = b.scrollBottom
	}
	b.cursor.Row += count
	if b.cursor.Row > max {
		b.cursor.Row = max
	}
}

func (b *Buffer) moveCursorLeft(count int) {
	if b.cursor.Col > b.cols-1 {
		b.cursor.Col = b.cols - 1
	}
	b.cursor.Col -= count
	if b.cursor.Col < 0 {
		b.cursor.Col = 0
	}
}

func (b *Buffer) moveCursorRight(count int) {
	b.cursor.Col += count
	if b.cursor.Col > b.cols-1 {
		b.cursor.Col = b.cols - 1
	}
}

func (b *Buffer) saveCursor() {
	b.savedCursor = b.cursor
}

func (b *Buffer) restoreCursor() {
	b.cursor = b.savedCursor
	if b.cursor.Row > b.rows-1 {
		b.cursor.Row = b.rows - 1
	}
	if b.cursor.Col > b.cols-1 {
		b.cursor.Col = b.cols - 1
	}
}

// eraseInDisplay clears part of the live screen. Only rows that already
// exist are touched; erasing never allocates lines and never reaches into
// history before screenStart.
func (b *Buffer) eraseInDisplay(mode int) {
	row := b.cursor.Row
	col := b.cursor.Col
	switch mode {
	case 0:
		if l := b.line(b.screenToBuffer(row)); l != nil {
			l.clearRange(col, b.cols, b.style)
		}
		for r := row + 1; r < b.rows; r++ {
			if l := b.line(b.screenToBuffer(r)); l != nil {
				l.clear(b.style)
			}
		}
	case 1:
		for r := 0; r < row; r++ {
			if l := b.line(b.screenToBuffer(r)); l != nil {
				l.clear(b.style)
			}
		}
		if l := b.line(b.screenToBuffer(row)); l != nil {
			l.clearRange(0, col+1, b.style)
		}
	case 2, 3:
		for r := 0; r < b.rows; r++ {
			if l := b.line(b.screenToBuffer(r)); l != nil {
				l.clear(b.style)
			}
		}
	}
}

func (b *Buffer) eraseInLine(mode int) {
	l := b.line(b.screenToBuffer(b.cursor.Row))
	if l == nil {
		return
	}
	switch mode {
	case 0:
		l.clearRange(b.cursor.Col, b.cols, b.style)
	case 1:
		l.clearRange(0, b.cursor.Col+1, b.style)
	case 2:
		l.clear(b.style)
	}
}

// insertLines shifts lines from the cursor down within the scroll region,
// dropping lines pushed past the bottom margin.
func (b *Buffer) insertLines(count int) {
	if b.cursor.Row > b.scrollBottom {
		return
	}
	if max := b.scrollBottom - b.cursor.Row + 1; count > max {
		count = max
	}
	for n := 0; n < count; n++ {
		cursorIdx := b.screenToBuffer(b.cursor.Row)
		bottomIdx := b.screenToBuffer(b.scrollBottom)
		if cursorIdx >= len(b.lines) {
			break
		}
		if bottomIdx >= len(b.lines) {
			bottomIdx = len(b.lines) - 1
		}
		copy(b.lines[cursorIdx+1:bottomIdx+1], b.lines[cursorIdx:bottomIdx])
		b.lines[cursorIdx] = newLine(b.cols, b.style)
	}
}

func (b *Buffer) deleteLines(count int) {
	if b.cursor.Row > b.scrollBottom {
		return
	}
	if max := b.scrollBottom - b.cursor.Row + 1; count > max {
		count = max
	}
	for n := 0; n < count; n++ {
		cursorIdx := b.screenToBuffer(b.cursor.Row)
		bottomIdx := b.screenToBuffer(b.scrollBottom)
		if cursorIdx >= len(b.lines) {
			break
		}
		if bottomIdx >= len(b.lines) {
			bottomIdx = len(b.lines) - 1
		}
		copy(b.lines[cursorIdx:bottomIdx], b.lines[cursorIdx+1:bottomIdx+1])
		b.lines[bottomIdx] = newLine(b.cols, b.style)
	}
}

func (b *Buffer) insertChars(count int) {
	l := b.line(b.screenToBuffer(b.cursor.Row))
	if l == nil || b.cursor.Col >= len(l.cells) {
		return
	}
	for n := 0; n < count; n++ {
		copy(l.cells[b.cursor.Col+1:], l.cells[b.cursor.Col:len(l.cells)-1])
		l.cells[b.cursor.Col] = blankCell(b.style)
	}
}

func (b *Buffer) deleteChars(count int) {
	l := b.line(b.screenToBuffer(b.cursor.Row))
	if l == nil || b.cursor.Col >= len(l.cells) {
		return
	}
	for n := 0; n < count; n++ {
		copy(l.cells[b.cursor.Col:], l.cells[b.cursor.Col+1:])
		l.cells[len(l.cells)-1] = blankCell(b.style)
	}
}

func (b *Buffer) eraseChars(count int) {
	l := b.line(b.screenToBuffer(b.cursor.Row))
	if l == nil {
		return
	}
	l.clearRange(b.cursor.Col, b.cursor.Col+count, b.style)
}

// setScrollRegion sets the top/bottom margins, screen-relative. Regions
// where top >= bottom are ignored.
func (b *Buffer) setScrollRegion(top, bottom int) {
	if top > b.rows-1 {
		top = b.rows - 1
	}
	if bottom > b.rows-1 {
		bottom = b.rows - 1
	}
	if top < bottom {
		b.scrollTop = top
		b.scrollBottom = bottom
	}
}

func (b *Buffer) resetScrollRegion() {
	b.scrollTop = 0
	b.scrollBottom = b.rows - 1
}

func (b *Buffer) setOriginMode(enabled bool) {
	b.originMode = enabled
	if enabled {
		b.cursor.Row = b.scrollTop
	} else {
		b.cursor.Row = 0
	}
	b.cursor.Col = 0
}

func (b *Buffer) setAutoWrap(enabled bool) {
	b.autoWrap = enabled
}

func (b *Buffer) setStyle(style Style) {
	b.style = style
}

func (b *Buffer) currentStyle() Style {
	return b.style
}

func (b *Buffer) resetStyle() {
	b.style = Style{FG: b.defaultFG, BG: Transparent}
}

// Cursor returns the cursor position, screen-relative.
func (b *Buffer) Cursor() Position {
	return b.cursor
}

// Cols returns the live column count.
func (b *Buffer) Cols() int {
	return b.cols
}

// Rows returns the live row count.
func (b *Buffer) Rows() int {
	return b.rows
}

// ScrollbackLen is the number of history lines before the live screen.
func (b *Buffer) ScrollbackLen() int {
	return b.screenStart
}

// TotalLines is the number of lines retained, history plus screen.
func (b *Buffer) TotalLines() int {
	return len(b.lines)
}

// Line returns the line at the given absolute index, oldest first.
func (b *Buffer) Line(index int) (Line, bool) {
	if index < 0 || index >= len(b.lines) {
		return Line{}, false
	}
	return b.lines[index], true
}

// DefaultFG returns the configured default foreground color.
func (b *Buffer) DefaultFG() color.RGBA {
	return b.defaultFG
}

// DefaultBG returns the configured default background color.
func (b *Buffer) DefaultBG() color.RGBA {
	return b.defaultBG
}

// SetDefaultColors updates the default palette used for new content.
func (b *Buffer) SetDefaultColors(fg, bg color.RGBA) {
	b.defaultFG = fg
	b.defaultBG = bg
}

// TextRange extracts the text between two absolute-line positions,
// inclusive. Each line is right-trimmed; lines are joined with a newline
// unless the earlier line soft-wrapped onto the next.
func (b *Buffer) TextRange(startRow, startCol, endRow, endCol int) string {
	var sb strings.Builder
	for row := startRow; row <= endRow; row++ {
		l := b.line(row)
		if l == nil {
			continue
		}
		from, to := 0, len(l.cells)
		if row == startRow {
			from = startCol
		}
		if row == endRow && endCol+1 < to {
			to = endCol + 1
		}
		var text strings.Builder
		for col := from; col < to; col++ {
			text.WriteRune(l.cells[col].Rune)
		}
		sb.WriteString(strings.TrimRight(text.String(), " \t"))
		if row < endRow && !l.wrapped {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Resize changes the grid geometry. Column changes pad or truncate every
// retained line so each always has exactly cols cells. Shrinking the row
// count moves now-offscreen top rows into history; growing pulls history
// rows back into view where available. The cursor keeps its absolute line
// when possible and is clamped into the new bounds. Calling with the
// current geometry is a no-op.
func (b *Buffer) Resize(cols, rows int) {
	if cols < 1 || rows < 1 || (cols == b.cols && rows == b.rows) {
		return
	}
	if cols != b.cols {
		pad := Style{FG: b.defaultFG, BG: Transparent}
		for i := range b.lines {
			b.lines[i].setWidth(cols, pad)
		}
		b.cols = cols
	}
	if rows != b.rows {
		cursorAbs := b.screenToBuffer(b.cursor.Row)
		used := len(b.lines) - b.screenStart
		if rows < b.rows {
			if used > rows {
				b.screenStart += used - rows
			}
		} else {
			grow := rows - b.rows
			if grow > b.screenStart {
				grow = b.screenStart
			}
			b.screenStart -= grow
		}
		b.maxLines += rows - b.rows
		b.rows = rows
		b.cursor.Row = cursorAbs - b.screenStart
		b.scrollTop = 0
		b.scrollBottom = rows - 1
	}
	if b.cursor.Row > b.rows-1 {
		b.cursor.Row = b.rows - 1
	}
	if b.cursor.Row < 0 {
		b.cursor.Row = 0
	}
	if b.cursor.Col > b.cols-1 {
		b.cursor.Col = b.cols - 1
	}
	if b.savedCursor.Row > b.rows-1 {
		b.savedCursor.Row = b.rows - 1
	}
	if b.savedCursor.Col > b.cols-1 {
		b.savedCursor.Col = b.cols - 1
	}
}
