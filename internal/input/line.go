package input

// Line is the single-line editor the player types fixes into.
type Line struct {
	buf []rune
	max int
}

// NewLine returns an empty line holding at most max runes.
func NewLine(max int) *Line {
	return &Line{max: max}
}

// Apply edits the line with k. On Enter it returns the line and clears it.
func (l *Line) Apply(k Key) (submitted string, ok bool) {
	switch k.Kind {
	case KeyRune:
		if len(l.buf) < l.max {
			l.buf = append(l.buf, k.Rune)
		}
	case KeyBackspace:
		if len(l.buf) > 0 {
			l.buf = l.buf[:len(l.buf)-1]
		}
	case KeyEscape:
		l.Clear()
	case KeyEnter:
		submitted = string(l.buf)
		l.Clear()
		return submitted, true
	}
	return "", false
}

// String returns the current text.
func (l *Line) String() string {
	return string(l.buf)
}

// Len returns the number of runes typed.
func (l *Line) Len() int {
	return len(l.buf)
}

// Clear empties the line.
func (l *Line) Clear() {
	l.buf = l.buf[:0]
}
