package io

// Device is a memory mapped peripheral. Offsets are relative to the base
// of the device's window, and width is the access size in bytes (1, 2 or 4).
// A false return is reported to the hart as an access fault.
type Device interface {
	// Load reads a value of width bytes at offset.
	Load(offset uint32, width int) (value uint32, ok bool)
	// Store writes the low width bytes of value at offset.
	Store(offset uint32, width int, value uint32) (ok bool)
	// Reset returns the device to its power-on state.
	Reset()
}
