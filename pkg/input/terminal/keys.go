package terminal

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

var namedKeys = map[tcell.Key]string{
	tcell.KeyEnter:      "enter",
	tcell.KeyTab:        "tab",
	tcell.KeyBacktab:    "tab",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace",
	tcell.KeyEscape:     "esc",
	tcell.KeyDelete:     "delete",
	tcell.KeyInsert:     "insert",
	tcell.KeyHome:       "home",
	tcell.KeyEnd:        "end",
	tcell.KeyPgUp:       "page_up",
	tcell.KeyPgDn:       "page_down",
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyPause:      "pause",
	tcell.KeyPrint:      "print_screen",
	tcell.KeyCtrlSpace:  "space",
}

// translateKey maps a tcell key event onto the raw key the recorder normalises.
// Control letters carry their control ordinal (ctrl+a is 1) so normalisation yields
// the letter. tcell numbers them from KeyCtrlA, which is not 1 in every release.
func translateKey(e *tcell.EventKey) timeline.RawKey {
	k := e.Key()
	if k == tcell.KeyRune {
		if e.Rune() == ' ' {
			return timeline.NamedKey("space")
		}
		return timeline.CharKey(e.Rune())
	}
	if name, ok := namedKeys[k]; ok {
		return timeline.NamedKey(name)
	}
	if k >= tcell.KeyF1 && k <= tcell.KeyF24 {
		return timeline.NamedKey(fmt.Sprintf("f%d", int(k-tcell.KeyF1)+1))
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return timeline.CharKey(rune(k-tcell.KeyCtrlA) + 1)
	}
	return timeline.NamedKey(strings.ToLower(e.Name()))
}

// modifierKeys lists modifiers to bracket the key with. Shift is already reflected
// in the character for runes.
func modifierKeys(e *tcell.EventKey) []timeline.RawKey {
	mods := e.Modifiers()
	k := e.Key()
	var out []timeline.RawKey
	if mods&tcell.ModCtrl != 0 {
		out = append(out, timeline.NamedKey("ctrl"))
	}
	if mods&tcell.ModAlt != 0 {
		out = append(out, timeline.NamedKey("alt"))
	}
	if mods&tcell.ModMeta != 0 {
		out = append(out, timeline.NamedKey("cmd"))
	}
	if mods&tcell.ModShift != 0 && k != tcell.KeyRune {
		out = append(out, timeline.NamedKey("shift"))
	}
	return out
}
