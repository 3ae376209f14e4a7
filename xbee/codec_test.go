package xbee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumRoundTrip(t *testing.T) {
	payload := []byte{0x08, 0x01, 'A', 'P'}
	cksum := checksum(payload)
	assert.True(t, verifyChecksum(payload, cksum))
	assert.False(t, verifyChecksum(payload, cksum^0xFF))
}

func TestEscapeAppendEscapesSpecialBytes(t *testing.T) {
	for _, b := range []byte{0x7E, 0x7D, 0x11, 0x13} {
		out := escapeAppend(nil, b)
		require.Len(t, out, 2)
		assert.Equal(t, byte(escapeByte), out[0])
		assert.Equal(t, b^escapeXor, out[1])
	}
	out := escapeAppend(nil, 0x41)
	require.Len(t, out, 1)
	assert.Equal(t, byte(0x41), out[0])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x08, 0x01, 'A', 'P', 0x7E, 0x7D, 0x11, 0x13, 0x00}
	frame := encodeFrame(payload)
	assert.Equal(t, byte(frameDelimiter), frame[0])

	d := newFrameDecoder()
	var got []byte
	var done bool
	for _, b := range frame {
		got, done = d.feed(b)
		if done {
			break
		}
	}
	require.True(t, done)
	assert.Equal(t, payload, got)
}

func TestDecoderResyncsOnStrayDelimiter(t *testing.T) {
	d := newFrameDecoder()
	garbage := []byte{0x01, 0x02, 0x03}
	for _, b := range garbage {
		_, done := d.feed(b)
		assert.False(t, done)
	}

	payload := []byte{0x08, 0x01, 'A', 'P'}
	frame := encodeFrame(payload)
	var got []byte
	var done bool
	for _, b := range frame {
		got, done = d.feed(b)
		if done {
			break
		}
	}
	require.True(t, done)
	assert.Equal(t, payload, got)
}

func TestDecoderAbsorbsChecksumMismatch(t *testing.T) {
	d := newFrameDecoder()
	payload := []byte{0x08, 0x01, 'A', 'P'}
	frame := encodeFrame(payload)
	frame[len(frame)-1] ^= 0x01 // corrupt the checksum byte

	var done bool
	for _, b := range frame {
		_, done = d.feed(b)
	}
	assert.False(t, done)

	// The decoder must still be usable for the next frame.
	frame2 := encodeFrame(payload)
	var got []byte
	for _, b := range frame2 {
		got, done = d.feed(b)
		if done {
			break
		}
	}
	require.True(t, done)
	assert.Equal(t, payload, got)
}

func TestDecoderRejectsOverlongLength(t *testing.T) {
	d := newFrameDecoder()
	d.feed(frameDelimiter)
	d.feed(0xFF) // length high byte -> length > maxFramePayload
	_, done := d.feed(0xFF)
	assert.False(t, done)
}
