package xbee

import "time"

// poll.go demultiplexes inbound frames onto session state: command
// responses, transmit status, route records, and the two inbound stream
// frame types all share one wire, distinguished by the frame's leading
// API type byte. Everything here runs synchronously on the caller's
// goroutine — there is no background reader pumping frames into channels,
// so a caller only ever sees the exact frame it asked for by calling in.

// pollOutcome reports what a single dispatched frame did, so callers in
// transport.go/command.go can decide whether their wait is satisfied.
// ackSeq/cmdSeq are -1 when the frame wasn't an ack / command response at
// all; callers compare them against the sequence they're waiting for.
type pollOutcome struct {
	ackSeq     int
	cmdSeq     int
	cmdStatus  RemoteStatus
	cmdIsLocal bool
	filledRecv bool // an inbound stream read filled the caller's buffer
}

// pollOnce blocks for up to one Device timeout window reading and
// assembling exactly one checksum-valid frame, then dispatches it.
// recvBuf describes an in-progress stream read the caller wants filled;
// it is nil when the caller is waiting on an ack or command response
// instead.
func (s *Session) pollOnce(recvBuf *[]byte) (pollOutcome, error) {
	payload, err := s.readFrame()
	if err != nil {
		return pollOutcome{ackSeq: -1, cmdSeq: -1}, err
	}
	return s.dispatch(payload, recvBuf), nil
}

// readFrame pulls bytes from the device until the decoder completes a
// checksum-valid frame, silently absorbing checksum failures, mid-stream
// resyncs, and overlong frames: these look identical to line noise and are
// never surfaced as errors, only as an unproductive poll.
func (s *Session) readFrame() ([]byte, error) {
	for {
		b, ok, err := s.device.RecvByte()
		if err != nil {
			return nil, errTimeout("readFrame", err)
		}
		if !ok {
			return nil, errTimeout("readFrame", nil)
		}
		if payload, done := s.decoder.feed(b); done {
			return payload, nil
		}
	}
}

// dispatch reads a frame's type byte and routes it: local/remote command
// responses update stats and report their api_seq for the caller to match
// against what it's waiting for; transmit status and route records update
// internal state; the two inbound-data frame types feed handleStreamPayload.
func (s *Session) dispatch(payload []byte, recvBuf *[]byte) pollOutcome {
	out := pollOutcome{ackSeq: -1, cmdSeq: -1}
	if len(payload) == 0 {
		return out
	}
	now := time.Now()
	frameType := payload[0]

	switch frameType {
	case apiTypeLocalATResponse: // 0x88
		if len(payload) < 4 {
			return out
		}
		apiSeq := payload[1]
		s.stats.recordRecv(StatsLocalCommand, apiSeq, now)
		out.cmdSeq = int(apiSeq)
		out.cmdIsLocal = true

	case apiTypeRemoteATResponse: // 0x97: type+frameID+addr64(8)+addr16(2)+ATcmd(2)+status
		if len(payload) < 15 {
			return out
		}
		apiSeq := payload[1]
		status := RemoteStatus(payload[14])
		s.stats.recordRecv(StatsRemoteCommand, apiSeq, now)
		out.cmdSeq = int(apiSeq)
		out.cmdStatus = status

	case apiTypeTransmitStatus: // 0x8B
		if len(payload) < 2 {
			return out
		}
		apiSeq := payload[1]
		s.stats.recordRecv(StatsTransmit, apiSeq, now)

	case apiTypeRouteRecord: // 0xA1
		s.handleRouteRecord(payload)

	case apiTypeReceivePacket: // 0x90, the radio's inbound data indication
		const header = 1 + 8 + 2 + 1 // type+longaddr(8)+shortaddr(2)+rxoptions
		if len(payload) <= header {
			return out
		}
		if !bytesEqual(payload[1:9], s.remoteAddress[0:8]) {
			return out // frame from some other device on the mesh
		}
		s.recordShortAddress(payload[9:11])
		data := payload[header:]
		s.handleStreamPayload(data, &out, recvBuf)

	case apiTypeTransmitRequest: // 0x10, direct-mode inbound: the peer radio
		// forwarding data the way a gateway's Receive Packet would. A
		// point-to-point link has only one possible sender, so there is no
		// address to verify.
		const header = 1 + 1 + 8 + 2 + 1 + 1 // type+apiseq+longaddr(8)+shortaddr(2)+radius+txoptions
		if len(payload) <= header {
			return out
		}
		data := payload[header:]
		s.handleStreamPayload(data, &out, recvBuf)
	}

	return out
}

// handleStreamPayload separates the two application protocol types
// carried inside a stream frame: an ack frame satisfies a pending send's
// wait, while a request frame (firmware-reply data) is the reliable
// receive path and gets acked in turn.
func (s *Session) handleStreamPayload(data []byte, out *pollOutcome, recvBuf *[]byte) {
	if len(data) < 2 {
		return
	}
	protocolType := data[0]
	seq := data[1]
	now := time.Now()

	switch protocolType {
	case packetTypeAck:
		s.stats.recordRecv(StatsTransmit, seq, now)
		out.ackSeq = int(seq)

	case packetTypeRequest:
		if len(data) < 4 || data[2] != appTypeFirmwareReply {
			return
		}
		s.stats.recordRecv(StatsReceive, seq, now)

		nextSeq := nextSequence(s.inSeq)
		if seq != nextSeq {
			if s.inSeq != 0 && seq == s.inSeq {
				// A retransmission of the sequence already accepted: the
				// sender may not have seen our first ack, so ack it again
				// without delivering its bytes a second time.
				s.sendAck(seq)
			}
			// Out-of-order; the sender will retry on its own timeout. Stay
			// silent rather than ack something not accepted.
			return
		}
		s.inSeq = nextSeq

		payload := data[3:]
		s.deliverInbound(payload, recvBuf, out)

		s.sendAck(seq)
	}
}

// deliverInbound copies payload into the caller's outstanding receive
// buffer first, overflowing whatever remains into in_buffer.
func (s *Session) deliverInbound(payload []byte, recvBuf *[]byte, out *pollOutcome) {
	for _, b := range payload {
		if recvBuf != nil && len(*recvBuf) > 0 {
			(*recvBuf)[0] = b
			*recvBuf = (*recvBuf)[1:]
			continue
		}
		if !s.inBuffer.Push(b) {
			s.unusable = true
			return
		}
	}
	if recvBuf != nil && len(*recvBuf) == 0 {
		out.filledRecv = true
	}
}

func (s *Session) handleRouteRecord(payload []byte) {
	const header = 1 + 8 + 2 + 1 + 1 // type+longaddr+shortaddr+rxoptions+hops
	if len(payload) < header {
		return
	}
	if !bytesEqual(payload[1:9], s.remoteAddress[0:8]) {
		return // route record from some other device; ignored
	}
	s.recordShortAddress(payload[9:11])

	hops := int(payload[header-1])
	tableStart := header
	tableEnd := tableStart + hops*2
	if len(payload) < tableEnd {
		return
	}
	s.route.observe(payload[tableStart:tableEnd])
}

func (s *Session) recordShortAddress(short []byte) {
	if !bytesEqual(short, s.remoteAddress[8:10]) {
		copy(s.remoteAddress[8:10], short)
	}
}

// nextSequence advances a stream/API sequence byte, skipping 0: sequence
// numbers cycle 1..255, never landing on the reserved zero value.
func nextSequence(cur byte) byte {
	next := cur + 1
	if next == 0 {
		next = 1
	}
	return next
}
