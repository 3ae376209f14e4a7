package xbee

import "time"

// Device is the capability interface a session needs from whatever
// carries bytes to the local radio (or, in direct mode, straight to the
// target). Keeping it an interface rather than a concrete serial port
// lets a session run against a real port or an in-memory fake without
// caring which.
type Device interface {
	// RecvByte blocks for up to the device's configured timeout waiting
	// for one byte. ok is false on timeout.
	RecvByte() (b byte, ok bool, err error)
	// Send writes buf in its entirety.
	Send(buf []byte) error
	// Drain discards any buffered inbound bytes.
	Drain() error
	// SetDTRRTS asserts (true) or releases (false) the device's native
	// DTR/RTS lines, used for direct-mode reset delegation.
	SetDTRRTS(asserted bool) error
	// Close releases the underlying transport.
	Close() error
}

// DefaultSerialTimeout is the default receive timeout for a serial
// Device: wireless-grade round trips need more headroom than a typical
// wired serial line.
const DefaultSerialTimeout = 1000 * time.Millisecond
