package hotkey

import (
	"fmt"
	"strings"
)

type keyDef struct {
	vk        VKey
	canonical string
}

// keyTable maps accepted key names (and aliases) to virtual-key codes.
var keyTable = buildKeyTable()

func buildKeyTable() map[string]keyDef {
	t := make(map[string]keyDef)
	add := func(vk VKey, canonical string, aliases ...string) {
		def := keyDef{vk: vk, canonical: canonical}
		t[canonical] = def
		for _, a := range aliases {
			t[a] = def
		}
	}

	for c := 'a'; c <= 'z'; c++ {
		add(VKey('A'+(c-'a')), string(c))
	}
	for d := '0'; d <= '9'; d++ {
		add(VKey(d), string(d))
		add(VKey(0x60+(d-'0')), fmt.Sprintf("num%c", d), fmt.Sprintf("numpad%c", d))
	}
	for i := 1; i <= 24; i++ {
		add(VKey(0x6F+i), fmt.Sprintf("f%d", i))
	}

	add(0x08, "backspace")
	add(0x09, "tab")
	add(0x0D, "enter", "return")
	add(0x13, "pause", "break")
	add(0x1B, "esc", "escape")
	add(0x20, "space")
	add(0x21, "pageup", "pgup")
	add(0x22, "pagedown", "pgdown")
	add(0x23, "end")
	add(0x24, "home")
	add(0x25, "left")
	add(0x26, "up")
	add(0x27, "right")
	add(0x28, "down")
	add(0x2C, "printscreen", "prtsc")
	add(0x2D, "insert", "ins")
	add(0x2E, "delete", "del")

	add(0xBA, ";", "semicolon")
	add(0xBB, "=", "equal", "plus")
	add(0xBC, ",", "comma")
	add(0xBD, "-", "minus")
	add(0xBE, ".", "period")
	add(0xBF, "/", "slash")
	add(0xC0, "`", "backquote")
	add(0xDB, "[", "bracketleft")
	add(0xDC, `\`, "backslash")
	add(0xDD, "]", "bracketright")
	add(0xDE, "'", "quote")

	return t
}

func lookupKey(name string) (VKey, string, bool) {
	def, ok := keyTable[strings.ToLower(name)]
	if !ok {
		return 0, "", false
	}
	return def.vk, def.canonical, true
}
