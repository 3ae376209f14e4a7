package xbee

// codec.go implements the escaped, length-and-checksum-framed XBee
// API-mode wire format: a 0x7E start delimiter, a big-endian payload
// length, mandatory escaping of 0x7E/0x7D/0x11/0x13, and an
// 0xFF-minus-sum checksum.

const (
	frameDelimiter = 0x7E
	escapeByte     = 0x7D
	escapeXor      = 0x20

	// maxFramePayload bounds the unescaped payload the decoder will
	// accept before giving up and resynchronising on the next 0x7E.
	maxFramePayload = 256
)

func needsEscape(b byte) bool {
	switch b {
	case 0x7E, 0x7D, 0x11, 0x13:
		return true
	}
	return false
}

// escapeAppend appends b to dst, escaping it if required. The checksum
// is computed separately, over unescaped bytes, by checksum.
func escapeAppend(dst []byte, b byte) []byte {
	if needsEscape(b) {
		return append(dst, escapeByte, b^escapeXor)
	}
	return append(dst, b)
}

// checksum computes the 8-bit sum-complement checksum over unescaped
// payload bytes: 0xFF minus the sum mod 256.
func checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return 0xFF - sum
}

// verifyChecksum reports whether payload followed by its checksum byte
// satisfies (1 + sum) mod 256 == 0.
func verifyChecksum(payload []byte, cksum byte) bool {
	sum := byte(1)
	for _, b := range payload {
		sum += b
	}
	sum += cksum
	return sum == 0
}

// encodeFrame produces the full on-wire byte sequence for one API frame:
// delimiter, escaped big-endian length, escaped payload, escaped checksum.
// The start delimiter itself is never escaped — it is the only literal
// 0x7E that appears on the wire, which is exactly what lets the decoder
// treat any other occurrence of 0x7E as a resynchronisation signal.
func encodeFrame(payload []byte) []byte {
	cksum := checksum(payload)

	out := make([]byte, 0, 4+len(payload)*2)
	out = append(out, frameDelimiter)
	out = escapeAppend(out, byte(len(payload)>>8))
	out = escapeAppend(out, byte(len(payload)))
	for _, b := range payload {
		out = escapeAppend(out, b)
	}
	out = escapeAppend(out, cksum)
	return out
}

// decoderState names the states of frameDecoder's state machine.
type decoderState int

const (
	stateAwaitDelim decoderState = iota
	stateLength
	statePayload
	stateChecksum
)

// frameDecoder is a byte-at-a-time state machine that reassembles one API
// frame at a time from a raw, escaped byte stream. It never blocks; the
// caller supplies bytes one at a time (typically from Device.RecvByte)
// and checks the returned (payload, ok) on every call.
type frameDecoder struct {
	state     decoderState
	escaped   bool
	lengthBuf [2]byte
	lengthPos int
	length    int
	payload   []byte
}

func newFrameDecoder() *frameDecoder {
	return &frameDecoder{}
}

func (d *frameDecoder) reset() {
	d.state = stateAwaitDelim
	d.escaped = false
	d.lengthPos = 0
	d.length = 0
	d.payload = d.payload[:0]
}

// feed processes one raw (still-escaped) wire byte. It returns a
// complete, checksum-verified payload when a frame finishes; ok is false
// on any of: mid-frame resynchronisation, an overlong payload, or a
// checksum mismatch. Checksum failures and overlong frames look exactly
// like line noise and are never surfaced as errors: feed simply resets
// and waits for the next frame.
func (d *frameDecoder) feed(b byte) (payload []byte, ok bool) {
	if b == frameDelimiter {
		// Encountering the start delimiter at any time restarts the frame.
		d.reset()
		d.state = stateLength
		return nil, false
	}

	if d.state == stateAwaitDelim {
		return nil, false
	}

	if d.escaped {
		b ^= escapeXor
		d.escaped = false
	} else if b == escapeByte {
		d.escaped = true
		return nil, false
	}

	switch d.state {
	case stateLength:
		d.lengthBuf[d.lengthPos] = b
		d.lengthPos++
		if d.lengthPos == 2 {
			d.length = int(d.lengthBuf[0])<<8 | int(d.lengthBuf[1])
			if d.length > maxFramePayload {
				d.reset()
				return nil, false
			}
			d.payload = make([]byte, 0, d.length)
			if d.length == 0 {
				d.state = stateChecksum
			} else {
				d.state = statePayload
			}
		}
	case statePayload:
		d.payload = append(d.payload, b)
		if len(d.payload) == d.length {
			d.state = stateChecksum
		}
	case stateChecksum:
		complete := d.payload
		valid := verifyChecksum(complete, b)
		d.reset()
		if !valid {
			return nil, false
		}
		return complete, true
	}
	return nil, false
}
