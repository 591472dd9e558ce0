package hid

import "strings"

// keyBitmapBytes covers usages 0x00-0xDF, one bit each.
const keyBitmapBytes = int(firstModifier) / 8

// Report is one keyboard report as emitted by the device.
type Report struct {
	Modifiers uint8
	Keys      [keyBitmapBytes]uint8
}

// NewReport builds a report with the given keycodes pressed.
func NewReport(keys ...Keycode) Report {
	var r Report
	for _, k := range keys {
		r.Press(k)
	}
	return r
}

// Press marks k as active. KeyNone and usages past the modifiers are
// ignored.
func (r *Report) Press(k Keycode) {
	switch {
	case k == KeyNone || !k.Valid():
	case k.IsModifier():
		r.Modifiers |= 1 << (k - firstModifier)
	default:
		r.Keys[k/8] |= 1 << (k % 8)
	}
}

// Release marks k as inactive.
func (r *Report) Release(k Keycode) {
	switch {
	case k == KeyNone || !k.Valid():
	case k.IsModifier():
		r.Modifiers &^= 1 << (k - firstModifier)
	default:
		r.Keys[k/8] &^= 1 << (k % 8)
	}
}

// IsKeycodeActive reports whether the non-modifier k is set.
func (r Report) IsKeycodeActive(k Keycode) bool {
	if k == KeyNone || k.IsModifier() || !k.Valid() {
		return false
	}
	return r.Keys[k/8]&(1<<(k%8)) != 0
}

// IsModifierActive reports whether the modifier k is set.
func (r Report) IsModifierActive(k Keycode) bool {
	if !k.IsModifier() {
		return false
	}
	return r.Modifiers&(1<<(k-firstModifier)) != 0
}

// ActiveKeycodes returns the active non-modifier keycodes in usage order.
func (r Report) ActiveKeycodes() []Keycode {
	var out []Keycode
	for k := Keycode(1); k < firstModifier; k++ {
		if r.IsKeycodeActive(k) {
			out = append(out, k)
		}
	}
	return out
}

// ActiveModifiers returns the active modifiers in usage order.
func (r Report) ActiveModifiers() []Keycode {
	var out []Keycode
	for k := firstModifier; k <= lastModifier; k++ {
		if r.IsModifierActive(k) {
			out = append(out, k)
		}
	}
	return out
}

// AnyKeycodeActive reports whether at least one non-modifier key is set.
func (r Report) AnyKeycodeActive() bool {
	for _, b := range r.Keys {
		if b != 0 {
			return true
		}
	}
	return false
}

// AnyModifierActive reports whether at least one modifier is set.
func (r Report) AnyModifierActive() bool {
	return r.Modifiers != 0
}

// IsEmpty reports whether nothing at all is pressed.
func (r Report) IsEmpty() bool {
	return !r.AnyModifierActive() && !r.AnyKeycodeActive()
}

// String renders the report as "mods=[...] keys=[...]".
func (r Report) String() string {
	var b strings.Builder
	b.WriteString("mods=[")
	writeKeycodes(&b, r.ActiveModifiers())
	b.WriteString("] keys=[")
	writeKeycodes(&b, r.ActiveKeycodes())
	b.WriteString("]")
	return b.String()
}

func writeKeycodes(b *strings.Builder, keys []Keycode) {
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k.String())
	}
}
