// Package hotkey parses key combinations and keeps a single global hotkey
// registered with the operating system.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrInvalidCombination is returned for strings that do not describe
	// exactly one key plus optional modifiers.
	ErrInvalidCombination = errors.New("invalid key combination")

	// ErrOnlyModifiers is returned when a captured combination has no key.
	ErrOnlyModifiers = fmt.Errorf("%w: modifiers need a key", ErrInvalidCombination)
)

// Modifier is a Win32 hotkey modifier bitmask (MOD_ALT, MOD_CONTROL, ...).
type Modifier uint32

const (
	ModAlt   Modifier = 0x1
	ModCtrl  Modifier = 0x2
	ModShift Modifier = 0x4
	ModWin   Modifier = 0x8
)

// modifierOrder fixes the order modifiers appear in normalized strings.
var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModWin, "win"},
}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"shift":   ModShift,
	"win":     ModWin,
	"super":   ModWin,
	"meta":    ModWin,
	"cmd":     ModWin,
}

// VKey is a Win32 virtual-key code.
type VKey uint32

// Binding describes a parsed global hotkey. Construct it with Parse or
// Normalize.
type Binding struct {
	modifiers  Modifier
	key        VKey
	normalized string
}

// Modifiers returns the modifier bitmask.
func (b Binding) Modifiers() Modifier { return b.modifiers }

// Key returns the virtual-key code.
func (b Binding) Key() VKey { return b.key }

// String returns the canonical combination, e.g. "ctrl+alt+k".
func (b Binding) String() string { return b.normalized }

// Display returns the combination the way the status line shows it.
func (b Binding) Display() string { return strings.ToUpper(strings.ReplaceAll(b.normalized, "+", " + ")) }

// IsZero reports whether b is the empty binding.
func (b Binding) IsZero() bool { return b.normalized == "" }

// Parse strictly parses s: modifiers plus exactly one key.
func Parse(s string) (Binding, error) {
	mods, keys, err := split(s)
	if err != nil {
		return Binding{}, err
	}
	switch len(keys) {
	case 0:
		return Binding{}, fmt.Errorf("%w: %q", ErrOnlyModifiers, s)
	case 1:
		return build(mods, keys[0])
	default:
		return Binding{}, fmt.Errorf("%w: %q has %d keys", ErrInvalidCombination, s, len(keys))
	}
}

// Normalize turns a captured key press into a binding. It is more lenient
// than Parse: when several keys are present the last one is kept, and a lone
// upper-case letter means shift plus that letter.
func Normalize(captured string) (Binding, error) {
	if captured == " " {
		captured = "space"
	}
	s := strings.TrimSpace(captured)
	if r := []rune(s); len(r) == 1 && unicode.IsUpper(r[0]) {
		s = "shift+" + string(unicode.ToLower(r[0]))
	}
	if s == "+" {
		s = "shift+="
	}

	mods, keys, err := split(s)
	if err != nil {
		return Binding{}, err
	}
	if len(keys) == 0 {
		return Binding{}, fmt.Errorf("%w: %q", ErrOnlyModifiers, captured)
	}
	return build(mods, keys[len(keys)-1])
}

// IsClearKey reports whether a captured key press means "remove the hotkey".
func IsClearKey(captured string) bool {
	switch strings.ToLower(strings.TrimSpace(captured)) {
	case "esc", "escape", "backspace":
		return true
	}
	return false
}

func split(s string) (Modifier, []string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil, fmt.Errorf("%w: empty", ErrInvalidCombination)
	}

	// The plus key itself can only be written last, as in "ctrl++".
	if s == "+" || strings.HasSuffix(s, "++") {
		s = strings.TrimSuffix(s, "+") + "plus"
		s = strings.TrimPrefix(s, "+")
	}

	var mods Modifier
	var keys []string
	for _, part := range strings.Split(s, "+") {
		part = translateLayout(strings.ToLower(strings.TrimSpace(part)))
		if part == "" {
			return 0, nil, fmt.Errorf("%w: %q", ErrInvalidCombination, s)
		}
		if m, ok := modifierAliases[part]; ok {
			mods |= m
			continue
		}
		keys = append(keys, part)
	}
	return mods, keys, nil
}

func build(mods Modifier, keyName string) (Binding, error) {
	vk, canonical, ok := lookupKey(keyName)
	if !ok {
		return Binding{}, fmt.Errorf("%w: unknown key %q", ErrInvalidCombination, keyName)
	}

	parts := make([]string, 0, 5)
	for _, m := range modifierOrder {
		if mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	parts = append(parts, canonical)

	return Binding{
		modifiers:  mods,
		key:        vk,
		normalized: strings.Join(parts, "+"),
	}, nil
}

// translateLayout maps a single Cyrillic letter to the key at the same
// position on the US layout, so bindings typed on a Russian layout work.
func translateLayout(part string) string {
	if en, ok := ruToEn[part]; ok {
		return en
	}
	return part
}

var ruToEn = map[string]string{
	"й": "q", "ц": "w", "у": "e", "к": "r", "е": "t", "н": "y", "г": "u", "ш": "i", "щ": "o", "з": "p", "х": "[", "ъ": "]",
	"ф": "a", "ы": "s", "в": "d", "а": "f", "п": "g", "р": "h", "о": "j", "л": "k", "д": "l", "ж": ";", "э": "'",
	"я": "z", "ч": "x", "с": "c", "м": "v", "и": "b", "т": "n", "ь": "m", "б": ",", "ю": ".",
}
