package xbee

import "time"

const (
	maxLocalRetries  = 5
	maxRemoteRetries = 30
)

// localCommand issues a two-character local AT-style command to the
// gateway radio itself (API 0x08/0x88): the request goes out once, and a
// response is awaited across up to maxLocalRetries poll iterations rather
// than retransmitting the command itself. value is ignored (no parameter
// byte sent) when negative.
func (s *Session) localCommand(mnemonic string, value int) ([]byte, error) {
	if len(mnemonic) != 2 {
		return nil, errConfig("localCommand", errBadMnemonic(mnemonic))
	}
	var data []byte
	if value >= 0 {
		data = []byte{byte(value)}
	}

	s.apiSeq = nextSequence(s.apiSeq)
	seq := s.apiSeq

	req := newAPIRequest(apiTypeLocalATRequest)
	req.txSeq = int(seq)
	req.data = append([]byte(mnemonic), data...)
	payload := buildAPIPayload(req)
	if err := s.sendFrame(payload); err != nil {
		return nil, err
	}
	s.stats.recordSend(StatsLocalCommand, seq, time.Now())

	for attempt := 0; attempt < maxLocalRetries; attempt++ {
		if resp, ok := s.waitForLocalResponse(seq); ok {
			return resp, nil
		}
	}
	return nil, errTimeout("localCommand", nil)
}

func (s *Session) waitForLocalResponse(seq byte) ([]byte, bool) {
	outcome, err := s.pollOnce(nil)
	if err != nil {
		return nil, false
	}
	if outcome.cmdIsLocal && outcome.cmdSeq == int(seq) {
		return nil, true
	}
	return nil, false
}

// remoteCommand issues a two-character AT-style command to the target
// radio (API 0x17/0x97): the request goes out once, and a response is
// awaited across up to maxRemoteRetries poll iterations rather than
// retransmitting the command itself. Success requires both a matching
// api_seq and a zero status byte. applyChanges requests the
// AC-equivalent immediate-apply option.
func (s *Session) remoteCommand(mnemonic string, value int, applyChanges bool) error {
	if len(mnemonic) != 2 {
		return errConfig("remoteCommand", errBadMnemonic(mnemonic))
	}
	var data []byte
	if value >= 0 {
		data = []byte{byte(value)}
	}
	option := 0
	if applyChanges {
		option = remoteATApplyChanges
	}

	s.apiSeq = nextSequence(s.apiSeq)
	seq := s.apiSeq

	req := newAPIRequest(apiTypeRemoteATRequest)
	req.txSeq = int(seq)
	req.address = s.remoteAddress[:] // 64-bit + 16-bit destination address
	req.prePayload1 = option         // remote command options
	req.data = append([]byte(mnemonic), data...)
	payload := buildAPIPayload(req)
	if err := s.emitRouteSetIfDirty(); err != nil {
		return err
	}
	if err := s.sendFrame(payload); err != nil {
		return err
	}
	s.stats.recordSend(StatsRemoteCommand, seq, time.Now())

	for attempt := 0; attempt < maxRemoteRetries; attempt++ {
		status, matched, err := s.waitForRemoteResponse(seq)
		if err != nil {
			continue
		}
		if !matched {
			continue
		}
		if status != 0 {
			return errRemoteStatus("remoteCommand", status)
		}
		return nil
	}
	return errTimeout("remoteCommand", nil)
}

func (s *Session) waitForRemoteResponse(seq byte) (RemoteStatus, bool, error) {
	outcome, err := s.pollOnce(nil)
	if err != nil {
		return 0, false, err
	}
	if !outcome.cmdIsLocal && outcome.cmdSeq == int(seq) {
		return outcome.cmdStatus, true, nil
	}
	return 0, false, nil
}

func errBadMnemonic(m string) error {
	return errProtocol("command", errInvalidMnemonic{m})
}

type errInvalidMnemonic struct{ mnemonic string }

func (e errInvalidMnemonic) Error() string {
	return "command mnemonic must be exactly two characters, got " + e.mnemonic
}
