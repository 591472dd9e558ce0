package hid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeycode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Keycode
		wantErr string
	}{
		{name: "letter", input: "A", want: KeyA},
		{name: "lowercase letter", input: "z", want: KeyZ},
		{name: "digit", input: "1", want: Key1},
		{name: "zero", input: "0", want: Key0},
		{name: "modifier any case", input: "LEFTSHIFT", want: KeyLeftShift},
		{name: "alias", input: "esc", want: KeyEscape},
		{name: "function key", input: "F12", want: KeyF1 + 11},
		{name: "hex usage", input: "0x04", want: KeyA},
		{name: "surrounding space", input: "  Space ", want: KeySpace},
		{name: "empty", input: "", wantErr: "empty keycode name"},
		{name: "unknown", input: "Hyper", wantErr: "unknown keycode"},
		{name: "bad hex", input: "0xZZ", wantErr: "invalid keycode usage"},
		{name: "last modifier hex", input: "0xE7", want: KeyRightGUI},
		{name: "past modifiers", input: "0xE8", wantErr: "past the last modifier"},
		{name: "top usage", input: "0xFF", wantErr: "past the last modifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeycode(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeycodeString(t *testing.T) {
	assert.Equal(t, "A", KeyA.String())
	assert.Equal(t, "LeftShift", KeyLeftShift.String())
	assert.Equal(t, "NoKey", KeyNone.String())
	assert.Equal(t, "Escape", KeyEscape.String(), "canonical name wins over alias")
	assert.Equal(t, "0xA5", Keycode(0xA5).String())
}

func TestParseKeycodes(t *testing.T) {
	keys, err := ParseKeycodes([]string{"A", "b", "LeftAlt"})
	require.NoError(t, err)
	assert.Equal(t, []Keycode{KeyA, KeyA + 1, KeyLeftAlt}, keys)

	_, err = ParseKeycodes([]string{"A", "nope"})
	require.Error(t, err)
}

func TestKeycodeNames_SortedByUsage(t *testing.T) {
	names := KeycodeNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "NoKey", names[0])
	assert.Equal(t, "RightGUI", names[len(names)-1])
	assert.Contains(t, names, "Space")
	assert.NotContains(t, names, "Esc", "aliases are not listed")
}

func TestIsModifier(t *testing.T) {
	assert.True(t, KeyLeftControl.IsModifier())
	assert.True(t, KeyRightGUI.IsModifier())
	assert.False(t, KeyA.IsModifier())
	assert.False(t, Keycode(0xE8).IsModifier())
}

func TestKeycodeValid(t *testing.T) {
	assert.True(t, KeyNone.Valid())
	assert.True(t, Keycode(0xDF).Valid())
	assert.True(t, KeyRightGUI.Valid())
	assert.False(t, Keycode(0xE8).Valid())
	assert.False(t, Keycode(0xFF).Valid())
}
