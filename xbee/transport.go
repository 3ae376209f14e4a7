package xbee

import "time"

const maxStreamRetries = 16

// Send reliably delivers data to the target, splitting it into chunks no
// larger than the route's current chunk limit and running a
// stop-and-wait send for each chunk in turn.
func (s *Session) Send(data []byte) error {
	if s.unusable {
		return errUnusable("Send")
	}
	for len(data) > 0 {
		limit := s.route.chunkLimit()
		n := limit
		if n > len(data) {
			n = len(data)
		}
		if err := s.sendStreamChunk(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// sendStreamChunk sends one chunk as an application REQUEST frame and
// waits for its ack, re-sending the chunk under the same stream sequence
// (each send gets a fresh API frame id) up to maxStreamRetries times
// before giving up.
func (s *Session) sendStreamChunk(chunk []byte) error {
	seq := s.nextOutSeq()

	for attempt := 0; attempt < maxStreamRetries; attempt++ {
		if err := s.emitRouteSetIfDirty(); err != nil {
			return err
		}
		if err := s.sendFrame(s.buildStreamPayload(seq, packetTypeRequest, appTypeFirmwareDeliver, chunk)); err != nil {
			return err
		}
		s.stats.recordSend(StatsTransmit, seq, time.Now())

		if s.waitForAck(seq) {
			return nil
		}
	}
	return errTimeout("sendStreamChunk", nil)
}

// waitForAck polls until an ack for seq arrives or the device's receive
// timeout elapses, returning false on timeout.
func (s *Session) waitForAck(seq byte) bool {
	for {
		outcome, err := s.pollOnce(nil)
		if err != nil {
			return false
		}
		if outcome.ackSeq == int(seq) {
			return true
		}
	}
}

// Recv reads exactly len(buf) bytes from the reliable receive stream,
// retrying polls up to maxStreamRetries times once the ring buffer and
// any immediately pending frame are exhausted.
func (s *Session) Recv(buf []byte) error {
	if s.unusable {
		return errUnusable("Recv")
	}
	remaining := buf
	if n := s.inBuffer.Drain(remaining); n > 0 {
		remaining = remaining[n:]
	}
	for attempt := 0; len(remaining) > 0 && attempt < maxStreamRetries; attempt++ {
		filled, err := s.pollForRecv(&remaining)
		if err != nil {
			if s.unusable {
				return err
			}
			continue
		}
		if filled {
			return nil
		}
	}
	if len(remaining) > 0 {
		return errTimeout("Recv", nil)
	}
	return nil
}

func (s *Session) pollForRecv(buf *[]byte) (bool, error) {
	outcome, err := s.pollOnce(buf)
	if err != nil {
		return false, err
	}
	if s.unusable {
		return false, errUnusable("pollForRecv")
	}
	return outcome.filledRecv, nil
}

// sendAck transmits an ACK frame carrying seq, the last sequence this
// session accepted from the target.
func (s *Session) sendAck(seq byte) {
	s.lastAck = int(seq)
	s.emitRouteSetIfDirty()
	s.sendFrame(s.buildStreamPayload(seq, packetTypeAck, -1, nil))
}

// buildStreamPayload assembles the unescaped application-layer stream
// frame (a Transmit Request in gateway mode, or its direct-mode
// equivalent) carrying one ack or request packet.
func (s *Session) buildStreamPayload(seq byte, packetType, appType int, data []byte) []byte {
	appData := make([]byte, 0, 2+len(data))
	appData = append(appData, byte(packetType), seq)
	if appType >= 0 {
		appData = append(appData, byte(appType))
	}
	appData = append(appData, data...)

	s.apiSeq = nextSequence(s.apiSeq)

	if s.directMode {
		// In direct mode there is no gateway to relay a Transmit Request;
		// the host pretends to be an XBee device forwarding data the way a
		// remote radio would, encapsulated in a 0x90 Receive Packet rather
		// than a 0x10 Transmit Request.
		req := newAPIRequest(apiTypeReceivePacket)
		req.address = s.remoteAddress[:] // 64-bit + 16-bit source address
		req.prePayload1 = 0              // receive options: none
		req.data = appData
		return buildAPIPayload(req)
	}
	req := newAPIRequest(apiTypeTransmitRequest)
	req.txSeq = int(s.apiSeq)
	// 64-bit + 16-bit destination address.
	req.address = s.remoteAddress[:]
	req.prePayload1 = 0 // broadcast radius: 0 means use NH
	req.prePayload2 = 0 // transmit options: none
	req.data = appData
	return buildAPIPayload(req)
}

// emitRouteSetIfDirty prepends a Create Source Route frame onto the wire
// ahead of the next payload whenever the cached route has changed since
// the last send, never applied to the route-set frame itself.
func (s *Session) emitRouteSetIfDirty() error {
	if s.directMode || !s.route.consumeDirty() {
		return nil
	}
	req := newAPIRequest(apiTypeCreateSourceRoute)
	req.txSeq = 0
	req.address = s.remoteAddress[:8]
	req.prePayload1 = int(s.remoteAddress[8])
	req.prePayload2 = int(s.remoteAddress[9])
	req.data = s.route.addrs
	return s.sendFrame(buildAPIPayload(req))
}

// sendFrame escapes, checksums, and writes one already-assembled API
// payload to the device.
func (s *Session) sendFrame(payload []byte) error {
	return s.device.Send(encodeFrame(payload))
}

func (s *Session) nextOutSeq() byte {
	s.outSeq = nextSequence(s.outSeq)
	return s.outSeq
}
