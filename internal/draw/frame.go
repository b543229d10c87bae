package draw

import (
	"strings"
)

// Frame is the drawable area of a terminal. When the terminal is larger than
// the maximum size the frame is centered and the surrounding offset is used
// for a border.
type Frame struct {
	Width     int // Usable columns
	Height    int // Usable rows
	OffsetCol int // Columns skipped on the left (0-based)
	OffsetRow int // Rows skipped at the top (0-based)
}

// FitFrame computes the frame for a terminal of termW x termH capped at maxW x maxH.
func FitFrame(termW, termH, maxW, maxH int) Frame {
	f := Frame{Width: termW, Height: termH}
	if maxW > 0 && termW > maxW {
		f.Width = maxW
		f.OffsetCol = (termW - maxW) / 2
	}
	if maxH > 0 && termH > maxH {
		f.Height = maxH
		f.OffsetRow = (termH - maxH) / 2
	}
	return f
}

// RenderBorder draws a box border around the frame when the terminal
// exceeds the max size on either axis.
// Draws horizontal borders when there is vertical offset, vertical borders
// when there is horizontal offset, and corners when both are present.
// Coordinates are absolute, so cw must have a zero offset.
func (f Frame) RenderBorder(cw *ChunkWriter) {
	hasH := f.OffsetCol >= 1 // Room for left/right vertical bars
	hasV := f.OffsetRow >= 1 // Room for top/bottom horizontal bars

	// Border positions (1-based terminal coordinates)
	left := f.OffsetCol
	right := f.OffsetCol + f.Width + 1
	top := f.OffsetRow
	bottom := f.OffsetRow + f.Height + 1
	line := strings.Repeat("─", f.Width)

	cw.WriteString(string(Dim))
	if hasV {
		if hasH {
			cw.WriteAt(left, top, "┌"+line+"┐")
			cw.WriteAt(left, bottom, "└"+line+"┘")
		} else {
			cw.WriteAt(f.OffsetCol+1, top, line)
			cw.WriteAt(f.OffsetCol+1, bottom, line)
		}
	}

	if hasH {
		startRow := top + 1
		endRow := bottom
		if !hasV {
			// No horizontal borders, side bars span full frame height
			startRow = f.OffsetRow + 1
			endRow = f.OffsetRow + f.Height + 1
		}
		for row := startRow; row < endRow; row++ {
			cw.WriteAt(left, row, "│")
			cw.WriteAt(right, row, "│")
		}
	}
	cw.WriteString(string(Reset))
}
