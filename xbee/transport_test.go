package xbee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTargetAddr = []byte{0x00, 0x13, 0xA2, 0x00, 0x40, 0x52, 0x2B, 0xAA}

// buildInboundReceivePacket assembles a raw (unescaped) Receive Packet
// payload as the gateway radio would present it on the wire.
func buildInboundReceivePacket(addr64, short []byte, rxOptions byte, appData []byte) []byte {
	payload := []byte{apiTypeReceivePacket}
	payload = append(payload, addr64...)
	payload = append(payload, short...)
	payload = append(payload, rxOptions)
	payload = append(payload, appData...)
	return payload
}

// buildInboundTransmitRequest assembles a raw (unescaped) Transmit Request
// payload as a direct-mode peer radio would present it on the wire.
func buildInboundTransmitRequest(apiSeq byte, addr64, short []byte, radius, txOptions byte, appData []byte) []byte {
	payload := []byte{apiTypeTransmitRequest, apiSeq}
	payload = append(payload, addr64...)
	payload = append(payload, short...)
	payload = append(payload, radius, txOptions)
	payload = append(payload, appData...)
	return payload
}

func TestDirectModeSendWaitsForAckAndSucceeds(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, true)

	ackPayload := buildInboundTransmitRequest(1, testTargetAddr, []byte{0xFF, 0xFE}, 0, 0,
		[]byte{packetTypeAck, 1})
	dev.Inject(encodeFrame(ackPayload))

	err := s.Send([]byte("hi"))
	require.NoError(t, err)
	assert.NotEmpty(t, dev.Sent())
}

func TestDirectModeRecvDeliversAndAcksInboundData(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, true)

	reqPayload := buildInboundTransmitRequest(1, testTargetAddr, []byte{0xFF, 0xFE}, 0, 0,
		[]byte{packetTypeRequest, 1, appTypeFirmwareReply, 'o', 'k'})
	dev.Inject(encodeFrame(reqPayload))

	buf := make([]byte, 2)
	err := s.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), buf)
	assert.NotEmpty(t, dev.Sent())
}

func TestSendWaitsForAckAndSucceeds(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	ackPayload := buildInboundReceivePacket(testTargetAddr, []byte{0xFF, 0xFE}, 0x01,
		[]byte{packetTypeAck, 1})
	dev.Inject(encodeFrame(ackPayload))

	err := s.Send([]byte("hi"))
	require.NoError(t, err)
	assert.NotEmpty(t, dev.Sent())

	summaries := s.Stats()
	for _, sum := range summaries {
		if sum.Group == StatsTransmit {
			assert.Equal(t, uint64(1), sum.Samples)
		}
	}
}

func TestSendTimesOutWithoutAck(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	err := s.Send([]byte("x"))
	assert.Error(t, err)
	xerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, xerr.Kind)
}

func TestRecvDeliversAndAcksInboundData(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	reqPayload := buildInboundReceivePacket(testTargetAddr, []byte{0xFF, 0xFE}, 0x01,
		[]byte{packetTypeRequest, 1, appTypeFirmwareReply, 'o', 'k'})
	dev.Inject(encodeFrame(reqPayload))

	buf := make([]byte, 2)
	err := s.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), buf)

	// The receive path must have sent an ack back.
	assert.NotEmpty(t, dev.Sent())
}

func TestRecvIgnoresOutOfOrderSequence(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)

	// Skip straight to sequence 2 without ever delivering sequence 1.
	badPayload := buildInboundReceivePacket(testTargetAddr, []byte{0xFF, 0xFE}, 0x01,
		[]byte{packetTypeRequest, 2, appTypeFirmwareReply, 'z'})
	dev.Inject(encodeFrame(badPayload))

	buf := make([]byte, 1)
	err := s.Recv(buf)
	assert.Error(t, err, "out-of-order frame must not be accepted")
}

func TestChunkLimitAppliesAcrossMultipleSends(t *testing.T) {
	dev := NewLoopDevice()
	s := newTestSession(dev, false)
	s.route.observe([]byte{0x11, 0x22, 0x33, 0x44}) // 2 hops

	limit := s.route.chunkLimit()
	require.Equal(t, 54-6, limit)

	// Queue enough acks (one per expected chunk) for a payload spanning
	// two chunks.
	data := make([]byte, limit+5)
	for seq := 1; seq <= 2; seq++ {
		ack := buildInboundReceivePacket(testTargetAddr, []byte{0xFF, 0xFE}, 0x01,
			[]byte{packetTypeAck, byte(seq)})
		dev.Inject(encodeFrame(ack))
	}

	err := s.Send(data)
	require.NoError(t, err)
}
