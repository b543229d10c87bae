package draw

import (
	"strings"
	"unicode/utf8"
)

// Style is an ANSI SGR escape sequence.
type Style string

const (
	Reset     Style = "\033[0m"
	Bold      Style = "\033[1m"
	Dim       Style = "\033[2m"
	Inverse   Style = "\033[7m"
	Red       Style = "\033[31m"
	Green     Style = "\033[32m"
	Yellow    Style = "\033[33m"
	Blue      Style = "\033[34m"
	Magenta   Style = "\033[35m"
	Cyan      Style = "\033[36m"
	White     Style = "\033[37m"
	BrightRed Style = "\033[91m"
	Plain     Style = ""
)

// With combines styles.
func (s Style) With(other Style) Style {
	return s + other
}

// Shade characters from lightest to darkest.
var Shades = []rune{' ', '░', '▒', '▓', '█'}

// ShadeLevel returns a shade character for a value between 0.0 (empty) and 1.0 (solid).
func ShadeLevel(intensity float64) rune {
	if intensity <= 0 {
		return Shades[0]
	}
	if intensity >= 1 {
		return Shades[len(Shades)-1]
	}
	idx := int(intensity * float64(len(Shades)-1))
	return Shades[idx]
}

// Block characters for drawing.
const (
	BlockFull  = '█'
	BlockLight = '░'
)

// Bar renders a horizontal bar of width cells filled to fraction. The last
// filled cell uses a shade for partial fill.
func Bar(width int, fraction float64) string {
	if width <= 0 {
		return ""
	}
	fraction = min(max(fraction, 0), 1)

	cells := fraction * float64(width)
	full := int(cells)

	var b strings.Builder
	b.Grow(width * 3)
	for i := 0; i < width; i++ {
		switch {
		case i < full:
			b.WriteRune(BlockFull)
		case i == full && cells > float64(full):
			b.WriteRune(ShadeLevel(cells - float64(full)))
		default:
			b.WriteRune(BlockLight)
		}
	}
	return b.String()
}

// Width returns the display width of s in cells, one per rune.
func Width(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate shortens s to at most width runes, ending with an ellipsis when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// Pad right-pads s with spaces to width runes, truncating if longer.
func Pad(s string, width int) string {
	s = Truncate(s, width)
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// CenterCol returns the 1-based column that centers s in width.
func CenterCol(width int, s string) int {
	return max(1, (width-Width(s))/2+1)
}

// Wrap breaks text into lines of at most width runes at spaces.
// Words longer than width are cut.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	var line []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > width {
			if len(line) > 0 {
				lines = append(lines, string(line))
				line = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(line) == 0:
			line = append(line, w...)
		case len(line)+1+len(w) <= width:
			line = append(line, ' ')
			line = append(line, w...)
		default:
			lines = append(lines, string(line))
			line = append([]rune(nil), w...)
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}
