package xbee

func newTestSession(dev Device, direct bool) *Session {
	s := &Session{
		device:     dev,
		directMode: direct,
		resetPin:   defaultResetPin,
		inBuffer:   newRingBuffer(64),
		route:      newSourceRoute(),
		stats:      newStatsTracker(),
		decoder:    newFrameDecoder(),
		lastAck:    -1,
	}
	s.remoteAddress[8], s.remoteAddress[9] = 0xFF, 0xFE
	if !direct {
		copy(s.remoteAddress[:8], []byte{0x00, 0x13, 0xA2, 0x00, 0x40, 0x52, 0x2B, 0xAA})
	}
	return s
}
