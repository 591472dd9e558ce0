package hid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Keycode is a HID keyboard usage ID.
type Keycode uint8

// Selected usages. The full name table is built in init.
const (
	KeyNone      Keycode = 0x00
	KeyA         Keycode = 0x04
	KeyB         Keycode = 0x05
	KeyC         Keycode = 0x06
	KeyZ         Keycode = 0x1D
	Key1         Keycode = 0x1E
	Key0         Keycode = 0x27
	KeyEnter     Keycode = 0x28
	KeyEscape    Keycode = 0x29
	KeyBackspace Keycode = 0x2A
	KeyTab       Keycode = 0x2B
	KeySpace     Keycode = 0x2C
	KeyF1        Keycode = 0x3A

	KeyLeftControl  Keycode = 0xE0
	KeyLeftShift    Keycode = 0xE1
	KeyLeftAlt      Keycode = 0xE2
	KeyLeftGUI      Keycode = 0xE3
	KeyRightControl Keycode = 0xE4
	KeyRightShift   Keycode = 0xE5
	KeyRightAlt     Keycode = 0xE6
	KeyRightGUI     Keycode = 0xE7
)

// firstModifier and lastModifier bound the modifier usage range.
const (
	firstModifier = KeyLeftControl
	lastModifier  = KeyRightGUI
)

// IsModifier reports whether k is one of the eight modifier usages.
func (k Keycode) IsModifier() bool {
	return k >= firstModifier && k <= lastModifier
}

// Valid reports whether k fits a boot report: a key usage below the
// modifiers or a modifier itself.
func (k Keycode) Valid() bool {
	return k <= lastModifier
}

// String returns the canonical name of k, or its hex usage if unnamed.
func (k Keycode) String() string {
	if name, ok := keycodeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(k))
}

var (
	keycodeNames  = make(map[Keycode]string)
	keycodeByName = make(map[string]Keycode)
	fold          = cases.Fold()
)

func register(name string, k Keycode) {
	if _, exists := keycodeNames[k]; !exists {
		keycodeNames[k] = name
	}
	keycodeByName[fold.String(name)] = k
}

func init() {
	register("NoKey", KeyNone)
	for i := 0; i < 26; i++ {
		register(string(rune('A'+i)), KeyA+Keycode(i))
	}
	for i := 1; i <= 9; i++ {
		register(strconv.Itoa(i), Key1+Keycode(i-1))
	}
	register("0", Key0)

	named := []struct {
		name string
		k    Keycode
	}{
		{"Enter", KeyEnter},
		{"Escape", KeyEscape},
		{"Backspace", KeyBackspace},
		{"Tab", KeyTab},
		{"Space", KeySpace},
		{"Minus", 0x2D},
		{"Equals", 0x2E},
		{"LeftBracket", 0x2F},
		{"RightBracket", 0x30},
		{"Backslash", 0x31},
		{"Semicolon", 0x33},
		{"Quote", 0x34},
		{"Backtick", 0x35},
		{"Comma", 0x36},
		{"Period", 0x37},
		{"Slash", 0x38},
		{"CapsLock", 0x39},
		{"PrintScreen", 0x46},
		{"ScrollLock", 0x47},
		{"Pause", 0x48},
		{"Insert", 0x49},
		{"Home", 0x4A},
		{"PageUp", 0x4B},
		{"Delete", 0x4C},
		{"End", 0x4D},
		{"PageDown", 0x4E},
		{"RightArrow", 0x4F},
		{"LeftArrow", 0x50},
		{"DownArrow", 0x51},
		{"UpArrow", 0x52},
		{"LeftControl", KeyLeftControl},
		{"LeftShift", KeyLeftShift},
		{"LeftAlt", KeyLeftAlt},
		{"LeftGUI", KeyLeftGUI},
		{"RightControl", KeyRightControl},
		{"RightShift", KeyRightShift},
		{"RightAlt", KeyRightAlt},
		{"RightGUI", KeyRightGUI},
	}
	for _, n := range named {
		register(n.name, n.k)
	}
	for i := 0; i < 12; i++ {
		register(fmt.Sprintf("F%d", i+1), KeyF1+Keycode(i))
	}

	// Aliases.
	register("Esc", KeyEscape)
	register("Return", KeyEnter)
	register("None", KeyNone)
}

// ParseKeycode resolves a keycode name or a hex usage ("0x04").
func ParseKeycode(name string) (Keycode, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return KeyNone, fmt.Errorf("empty keycode name")
	}

	if k, ok := keycodeByName[fold.String(trimmed)]; ok {
		return k, nil
	}

	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		v, err := strconv.ParseUint(trimmed[2:], 16, 8)
		if err != nil {
			return KeyNone, fmt.Errorf("invalid keycode usage %q: %w", name, err)
		}
		if k := Keycode(v); k.Valid() {
			return k, nil
		}
		return KeyNone, fmt.Errorf("keycode usage %q is past the last modifier 0x%02X", name, uint8(lastModifier))
	}

	return KeyNone, fmt.Errorf("unknown keycode %q", name)
}

// ParseKeycodes resolves a list of names, failing on the first bad one.
func ParseKeycodes(names []string) ([]Keycode, error) {
	out := make([]Keycode, 0, len(names))
	for _, name := range names {
		k, err := ParseKeycode(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// KeycodeNames returns every canonical keycode name ordered by usage.
func KeycodeNames() []string {
	codes := make([]Keycode, 0, len(keycodeNames))
	for k := range keycodeNames {
		codes = append(codes, k)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	names := make([]string, len(codes))
	for i, k := range codes {
		names[i] = keycodeNames[k]
	}
	return names
}
