package xbee

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetResetGatewayModeSendsRemoteCommand(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	dev.Inject(encodeFrame(buildRemoteATResponse(1, testTargetAddr, []byte{0xFF, 0xFE}, 0)))
	require.NoError(t, s.SetReset(true))
	require.NotEmpty(t, dev.Sent())
}

func TestSetResetDirectModeDelegatesToDevice(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, true)

	require.NoError(t, s.SetReset(true))
	require.NoError(t, s.SetReset(false))
	require.Empty(t, dev.Sent(), "direct mode must not emit a remote AT frame")
}

func TestDrainDiscardsBufferedBytesAndPartialFrame(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	s.inBuffer.Push('x')
	s.inBuffer.Push('y')
	dev.Inject([]byte{0x7E, 0x00}) // an unfinished frame header

	require.NoError(t, s.Drain())
	require.Equal(t, 0, s.inBuffer.Len())

	_, ok, err := dev.RecvByte()
	require.NoError(t, err)
	require.False(t, ok, "device-side inbox must be empty after Drain")
}
