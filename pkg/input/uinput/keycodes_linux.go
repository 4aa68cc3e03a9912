//go:build linux

package uinput

import uidev "github.com/bendahl/uinput"

type keyStroke struct {
	code  int
	shift bool
}

var namedCodes = map[string]int{
	"alt":               uidev.KeyLeftalt,
	"alt_l":             uidev.KeyLeftalt,
	"alt_r":             uidev.KeyRightalt,
	"alt_gr":            uidev.KeyRightalt,
	"backspace":         uidev.KeyBackspace,
	"caps_lock":         uidev.KeyCapslock,
	"cmd":               uidev.KeyLeftmeta,
	"cmd_l":             uidev.KeyLeftmeta,
	"cmd_r":             uidev.KeyRightmeta,
	"ctrl":              uidev.KeyLeftctrl,
	"ctrl_l":            uidev.KeyLeftctrl,
	"ctrl_r":            uidev.KeyRightctrl,
	"delete":            uidev.KeyDelete,
	"down":              uidev.KeyDown,
	"end":               uidev.KeyEnd,
	"enter":             uidev.KeyEnter,
	"esc":               uidev.KeyEsc,
	"home":              uidev.KeyHome,
	"insert":            uidev.KeyInsert,
	"left":              uidev.KeyLeft,
	"menu":              uidev.KeyCompose,
	"num_lock":          uidev.KeyNumlock,
	"page_down":         uidev.KeyPagedown,
	"page_up":           uidev.KeyPageup,
	"pause":             uidev.KeyPause,
	"print_screen":      uidev.KeySysrq,
	"right":             uidev.KeyRight,
	"scroll_lock":       uidev.KeyScrolllock,
	"shift":             uidev.KeyLeftshift,
	"shift_l":           uidev.KeyLeftshift,
	"shift_r":           uidev.KeyRightshift,
	"space":             uidev.KeySpace,
	"tab":               uidev.KeyTab,
	"up":                uidev.KeyUp,
	"media_play_pause":  uidev.KeyPlaypause,
	"media_volume_mute": uidev.KeyMute,
	"media_volume_down": uidev.KeyVolumedown,
	"media_volume_up":   uidev.KeyVolumeup,
	"media_previous":    uidev.KeyPrevioussong,
	"media_next":        uidev.KeyNextsong,
	"f1":                uidev.KeyF1,
	"f2":                uidev.KeyF2,
	"f3":                uidev.KeyF3,
	"f4":                uidev.KeyF4,
	"f5":                uidev.KeyF5,
	"f6":                uidev.KeyF6,
	"f7":                uidev.KeyF7,
	"f8":                uidev.KeyF8,
	"f9":                uidev.KeyF9,
	"f10":               uidev.KeyF10,
	"f11":               uidev.KeyF11,
	"f12":               uidev.KeyF12,
	"f13":               uidev.KeyF13,
	"f14":               uidev.KeyF14,
	"f15":               uidev.KeyF15,
	"f16":               uidev.KeyF16,
	"f17":               uidev.KeyF17,
	"f18":               uidev.KeyF18,
	"f19":               uidev.KeyF19,
	"f20":               uidev.KeyF20,
	"f21":               uidev.KeyF21,
	"f22":               uidev.KeyF22,
	"f23":               uidev.KeyF23,
	"f24":               uidev.KeyF24,
}

var letterCodes = [26]int{
	uidev.KeyA, uidev.KeyB, uidev.KeyC, uidev.KeyD, uidev.KeyE, uidev.KeyF,
	uidev.KeyG, uidev.KeyH, uidev.KeyI, uidev.KeyJ, uidev.KeyK, uidev.KeyL,
	uidev.KeyM, uidev.KeyN, uidev.KeyO, uidev.KeyP, uidev.KeyQ, uidev.KeyR,
	uidev.KeyS, uidev.KeyT, uidev.KeyU, uidev.KeyV, uidev.KeyW, uidev.KeyX,
	uidev.KeyY, uidev.KeyZ,
}

var digitCodes = [10]int{
	uidev.Key0, uidev.Key1, uidev.Key2, uidev.Key3, uidev.Key4,
	uidev.Key5, uidev.Key6, uidev.Key7, uidev.Key8, uidev.Key9,
}

// US layout.
var punctuation = map[rune]keyStroke{
	' ':  {uidev.KeySpace, false},
	'\t': {uidev.KeyTab, false},
	'\n': {uidev.KeyEnter, false},
	'\r': {uidev.KeyEnter, false},
	'-':  {uidev.KeyMinus, false},
	'_':  {uidev.KeyMinus, true},
	'=':  {uidev.KeyEqual, false},
	'+':  {uidev.KeyEqual, true},
	'[':  {uidev.KeyLeftbrace, false},
	'{':  {uidev.KeyLeftbrace, true},
	']':  {uidev.KeyRightbrace, false},
	'}':  {uidev.KeyRightbrace, true},
	';':  {uidev.KeySemicolon, false},
	':':  {uidev.KeySemicolon, true},
	'\'': {uidev.KeyApostrophe, false},
	'"':  {uidev.KeyApostrophe, true},
	'`':  {uidev.KeyGrave, false},
	'~':  {uidev.KeyGrave, true},
	'\\': {uidev.KeyBackslash, false},
	'|':  {uidev.KeyBackslash, true},
	',':  {uidev.KeyComma, false},
	'<':  {uidev.KeyComma, true},
	'.':  {uidev.KeyDot, false},
	'>':  {uidev.KeyDot, true},
	'/':  {uidev.KeySlash, false},
	'?':  {uidev.KeySlash, true},
	'!':  {uidev.Key1, true},
	'@':  {uidev.Key2, true},
	'#':  {uidev.Key3, true},
	'$':  {uidev.Key4, true},
	'%':  {uidev.Key5, true},
	'^':  {uidev.Key6, true},
	'&':  {uidev.Key7, true},
	'*':  {uidev.Key8, true},
	'(':  {uidev.Key9, true},
	')':  {uidev.Key0, true},
}

// charStroke maps a character onto a key code and whether shift is needed.
func charStroke(r rune) (keyStroke, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return keyStroke{code: letterCodes[r-'a']}, true
	case r >= 'A' && r <= 'Z':
		return keyStroke{code: letterCodes[r-'A'], shift: true}, true
	case r >= '0' && r <= '9':
		return keyStroke{code: digitCodes[r-'0']}, true
	}
	s, ok := punctuation[r]
	return s, ok
}
