// Package hid defines the keyboard report model observed by the harness.
//
// A Report mirrors the NKRO keyboard report a firmware scan loop hands to
// its USB stack: one byte of modifier bits (usages 0xE0-0xE7) followed by a
// bitmap of every non-modifier usage in 0x00-0xDF. Reports are plain values;
// copying one yields an independent snapshot.
//
// Keycodes are HID keyboard/keypad usage IDs. Names accepted by ParseKeycode
// are matched case-insensitively ("leftshift", "LeftShift", "LEFTSHIFT") and
// raw usages may be written in hex ("0x04").
package hid
