package ingest

import (
	"strings"
	"unicode/utf8"
)

// decoder turns successive byte chunks into text. A multi-byte rune split across two chunks is held
// back until the rest of it arrives; invalid bytes decode to utf8.RuneError.
type decoder struct {
	pending []byte
}

func (d *decoder) decode(p []byte) string {
	var buf []byte
	if len(d.pending) > 0 {
		buf = append(d.pending, p...)
		d.pending = nil
	} else {
		buf = p
	}

	cut := incompleteSuffix(buf)
	if cut > 0 {
		d.pending = append([]byte(nil), buf[len(buf)-cut:]...)
		buf = buf[:len(buf)-cut]
	}
	return strings.ToValidUTF8(string(buf), string(utf8.RuneError))
}

// flush returns whatever is still held back. Bytes that never completed a rune decode to
// utf8.RuneError.
func (d *decoder) flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	d.pending = nil
	return string(utf8.RuneError)
}

// incompleteSuffix returns the length of a trailing rune prefix that could still become valid once
// more bytes arrive, or 0 when buf ends on a rune boundary.
func incompleteSuffix(buf []byte) int {
	// A UTF-8 encoding is at most utf8.UTFMax bytes, so only the tail needs inspecting.
	for i := 1; i < utf8.UTFMax && i <= len(buf); i++ {
		b := buf[len(buf)-i]
		if utf8.RuneStart(b) {
			if utf8.FullRune(buf[len(buf)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}
