package input

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Key is an injectable key: either a named key or a character. Keys are comparable
// and can be used as map keys.
type Key struct {
	Name string
	Char rune
}

// IsNamed reports whether the key refers to a named (non-character) key.
func (k Key) IsNamed() bool { return k.Name != "" }

// String returns the canonical identifier for the key.
func (k Key) String() string {
	if k.IsNamed() {
		return k.Name
	}
	return string(k.Char)
}

// GoString helps test failure output distinguish characters from names.
func (k Key) GoString() string {
	if k.IsNamed() {
		return fmt.Sprintf("input.Key{Name:%q}", k.Name)
	}
	return fmt.Sprintf("input.Key{Char:%q}", k.Char)
}

var namedKeys = func() map[string]struct{} {
	names := []string{
		"alt", "alt_l", "alt_r", "alt_gr",
		"backspace", "caps_lock", "cmd", "cmd_l", "cmd_r",
		"ctrl", "ctrl_l", "ctrl_r", "delete", "down", "end", "enter", "esc",
		"home", "insert", "left", "menu", "num_lock", "page_down", "page_up",
		"pause", "print_screen", "right", "scroll_lock",
		"shift", "shift_l", "shift_r", "space", "tab", "up",
		"media_play_pause", "media_volume_mute", "media_volume_down", "media_volume_up",
		"media_previous", "media_next",
	}
	set := make(map[string]struct{}, len(names)+24)
	for _, name := range names {
		set[name] = struct{}{}
	}
	for i := 1; i <= 24; i++ {
		set[fmt.Sprintf("f%d", i)] = struct{}{}
	}
	return set
}()

// IsNamedKey reports whether id is a recognised canonical key name.
func IsNamedKey(id string) bool {
	_, ok := namedKeys[id]
	return ok
}

// NamedKeys lists the recognised canonical key names in sorted order.
func NamedKeys() []string {
	out := make([]string, 0, len(namedKeys))
	for name := range namedKeys {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResolveKey maps a recorded key identifier back to an injectable key. Recognised
// names resolve to named keys, single characters to character keys, and anything
// else falls back to its first character. Resolution never fails.
func ResolveKey(id string) Key {
	if IsNamedKey(id) {
		return Key{Name: id}
	}
	if id == "" {
		return Key{Char: ' '}
	}
	r, _ := utf8.DecodeRuneInString(id)
	return Key{Char: r}
}
