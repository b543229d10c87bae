// Package input turns raw terminal bytes into key presses and edits the
// line the player is typing.
package input

import (
	"bufio"
	"unicode"
	"unicode/utf8"
)

// KeyKind identifies a key press.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyEscape
	KeyTab
	KeyQuit
)

// Key is a single key press. Rune is set for KeyRune.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Input is everything typed since the previous read, in order.
type Input struct {
	Keys   []Key
	Closed bool // the underlying reader is gone
}

// Quit reports whether the player asked to leave.
func (in Input) Quit() bool {
	if in.Closed {
		return true
	}
	for _, k := range in.Keys {
		if k.Kind == KeyQuit {
			return true
		}
	}
	return false
}

// Stream delivers input bytes via a channel.
type Stream struct {
	ch      chan byte
	closed  bool
	pending []byte // incomplete UTF-8 or escape sequence from the last read
	lastCR  bool
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 256)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// ReadInput drains all available bytes from the stream (non-blocking).
func ReadInput(s *Stream) Input {
	buf := s.pending
	s.pending = nil

drain:
	for !s.closed {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}

	return Input{Keys: s.parse(buf), Closed: s.closed}
}

// parse decodes buf into keys. A trailing partial sequence is kept for the
// next call unless the stream is closed.
func (s *Stream) parse(buf []byte) []Key {
	var keys []Key
	for i := 0; i < len(buf); {
		b := buf[i]
		cr := false

		switch {
		case b == 0x03 || b == 0x04: // Ctrl-C, Ctrl-D
			keys = append(keys, Key{Kind: KeyQuit})
			i++
		case b == '\r':
			keys = append(keys, Key{Kind: KeyEnter})
			cr = true
			i++
		case b == '\n':
			// \r\n is one Enter
			if !s.lastCR {
				keys = append(keys, Key{Kind: KeyEnter})
			}
			i++
		case b == 0x7f || b == '\b':
			keys = append(keys, Key{Kind: KeyBackspace})
			i++
		case b == '\t':
			keys = append(keys, Key{Kind: KeyTab})
			i++
		case b == 0x15: // Ctrl-U clears like Escape
			keys = append(keys, Key{Kind: KeyEscape})
			i++
		case b == 0x1b:
			n, complete := escapeLength(buf[i:])
			if !complete && !s.closed {
				s.pending = append(s.pending, buf[i:]...)
				s.lastCR = false
				return keys
			}
			if n == 1 {
				keys = append(keys, Key{Kind: KeyEscape})
			}
			// Arrow keys and other sequences are ignored
			i += n
		case b < 0x20:
			i++
		default:
			if !utf8.FullRune(buf[i:]) && !s.closed {
				s.pending = append(s.pending, buf[i:]...)
				s.lastCR = false
				return keys
			}
			r, size := utf8.DecodeRune(buf[i:])
			if r != utf8.RuneError && unicode.IsPrint(r) {
				keys = append(keys, Key{Kind: KeyRune, Rune: r})
			}
			i += size
		}
		s.lastCR = cr
	}
	return keys
}

// escapeLength returns the length of the escape sequence at the start of b
// and whether it is complete. A lone ESC is a complete sequence of length 1.
func escapeLength(b []byte) (int, bool) {
	if len(b) == 1 {
		return 1, true
	}
	switch b[1] {
	case '[':
		// CSI: parameters then a final byte in 0x40..0x7e
		for j := 2; j < len(b); j++ {
			if b[j] >= 0x40 && b[j] <= 0x7e {
				return j + 1, true
			}
		}
		return len(b), false
	case 'O':
		// SS3: one final byte (F1-F4, keypad arrows)
		if len(b) < 3 {
			return len(b), false
		}
		return 3, true
	default:
		// ESC followed by a normal key (Alt+key) or a second ESC
		return 1, true
	}
}
