package timeline

import "strings"

// RawKey is a key as reported by an input hook: either a produced character or a
// named key. HasChar is false for named keys and for dead keys whose character
// is unknown.
type RawKey struct {
	Char    rune
	HasChar bool
	Name    string
}

// CharKey wraps a produced character.
func CharKey(r rune) RawKey { return RawKey{Char: r, HasChar: true} }

// NamedKey wraps a non-printable key reported by name.
func NamedKey(name string) RawKey { return RawKey{Name: name} }

// NormalizeKey maps a hook key to its canonical identifier so the same physical
// key yields the same identifier regardless of modifier state.
func NormalizeKey(k RawKey) string {
	if k.HasChar {
		if isChordControl(k.Char) {
			return string('a' + k.Char - 1)
		}
		return string(k.Char)
	}
	name := k.Name
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// isChordControl reports control characters produced by Ctrl+letter chords.
// Tab, line feed and carriage return keep their own identity; ordinal 8 folds to h
// because hooks report the Backspace key by name.
func isChordControl(r rune) bool {
	if r < 1 || r > 26 {
		return false
	}
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return true
}
