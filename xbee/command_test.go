package xbee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLocalATResponse(apiSeq byte, status byte) []byte {
	return []byte{apiTypeLocalATResponse, apiSeq, 'A', 'P', status}
}

func buildRemoteATResponse(apiSeq byte, addr64, short []byte, status RemoteStatus) []byte {
	payload := []byte{apiTypeRemoteATResponse, apiSeq}
	payload = append(payload, addr64...)
	payload = append(payload, short...)
	payload = append(payload, 'A', 'P')
	payload = append(payload, byte(status))
	return payload
}

func TestLocalCommandSucceeds(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	dev.Inject(encodeFrame(buildLocalATResponse(1, 0)))

	_, err := s.localCommand("AP", 2)
	require.NoError(t, err)
}

func TestLocalCommandRetriesUntilTimeout(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	_, err := s.localCommand("AP", 2)
	require.Error(t, err)
	xerr := err.(*Error)
	assert.Equal(t, KindTimeout, xerr.Kind)
}

func TestRemoteCommandSucceeds(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	dev.Inject(encodeFrame(buildRemoteATResponse(1, testTargetAddr, []byte{0xFF, 0xFE}, 0)))

	err := s.remoteCommand("AP", 2, true)
	require.NoError(t, err)
}

func TestRemoteCommandReportsNonZeroStatus(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	dev.Inject(encodeFrame(buildRemoteATResponse(1, testTargetAddr, []byte{0xFF, 0xFE}, RemoteStatusInvalidParameter)))

	err := s.remoteCommand("AP", 2, true)
	require.Error(t, err)
	xerr := err.(*Error)
	assert.Equal(t, KindRemoteStatus, xerr.Kind)
	assert.Equal(t, RemoteStatusInvalidParameter, xerr.Status)
}
