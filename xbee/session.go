package xbee

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	defaultResetPin  = 3
	resetPulseLow    = 250 * time.Millisecond
	resetPulseHigh   = 50 * time.Millisecond
	defaultDirectBaud  = 19200
	defaultGatewayBaud = 9600
)

// Session is one bootloader bridge connection: a gateway or direct-mode
// XBee radio on one end, addressed target firmware on the other. All
// methods run synchronously on the caller's goroutine; there is no
// internal timer or reader thread.
type Session struct {
	device Device

	directMode    bool
	remoteAddress [10]byte // 8-byte 64-bit address, 2-byte cached 16-bit address
	resetPin      int

	outSeq byte // last stream sequence this session sent
	inSeq  byte // last stream sequence accepted from the target
	apiSeq byte // last api_seq issued (commands and stream frames)

	unusable bool

	inBuffer *ringBuffer
	route    *sourceRoute
	stats    *statsTracker
	decoder  *frameDecoder

	lastAck int // last inbound sequence acked, or -1 before any receive
}

// Options configures Open.
type Options struct {
	// Port is "<16 hex digit address>@<device path>" for gateway mode, or
	// "@<device path>" for direct mode.
	Port string
	// Baud overrides the mode-appropriate default (19200 direct, 9600
	// gateway) when non-zero.
	Baud int
	// ResetPin overrides defaultResetPin (1-7) when non-zero.
	ResetPin int
	// InBufferSize bounds the reliable-stream receive ring buffer.
	InBufferSize int
}

const defaultInBufferSize = 256

// Open parses port, opens the underlying serial device, configures the
// local/remote radios, pulses the target's reset line, and confirms the
// bootloader answered with a single unretried GET_SYNC.
func Open(opts Options) (*Session, error) {
	addr, devPath, direct, err := parsePort(opts.Port)
	if err != nil {
		return nil, err
	}

	resetPin := opts.ResetPin
	if resetPin == 0 {
		resetPin = defaultResetPin
	}
	if resetPin < 1 || resetPin > 7 {
		return nil, errConfig("Open", fmt.Errorf("reset pin %d out of range 1-7", resetPin))
	}

	baud := opts.Baud
	if baud == 0 {
		if direct {
			baud = defaultDirectBaud
		} else {
			baud = defaultGatewayBaud
		}
	}

	dev, err := OpenSerialDevice(devPath, baud)
	if err != nil {
		return nil, errConfig("Open", err)
	}

	return openSession(dev, addr, direct, resetPin, opts.InBufferSize)
}

// openSession runs the shared Open sequence against an already-open
// Device, letting tests substitute a LoopDevice for a real serial port.
func openSession(dev Device, addr []byte, direct bool, resetPin, inBufferSize int) (*Session, error) {
	bufSize := inBufferSize
	if bufSize == 0 {
		bufSize = defaultInBufferSize
	}

	s := &Session{
		device:     dev,
		directMode: direct,
		resetPin:   resetPin,
		inBuffer:   newRingBuffer(bufSize),
		route:      newSourceRoute(),
		stats:      newStatsTracker(),
		decoder:    newFrameDecoder(),
		lastAck:    -1,
	}
	copy(s.remoteAddress[:], addr)
	if len(addr) < 10 {
		s.remoteAddress[8], s.remoteAddress[9] = 0xFF, 0xFE // unknown short address sentinel
	}

	if err := s.configureRadios(); err != nil {
		dev.Close()
		return nil, err
	}

	if err := s.Reset(); err != nil {
		dev.Close()
		return nil, err
	}

	return s, nil
}

// Reset pulses the target's reset line and confirms the bootloader
// answered with a single unretried GET_SYNC. Open calls this once as
// part of establishing the session; callers may call it again to
// re-synchronize with the bootloader without tearing down the session.
func (s *Session) Reset() error {
	if err := s.pulseReset(); err != nil {
		return err
	}
	return s.confirmBootloader()
}

// configureRadios issues the local and, in gateway mode, remote AT
// commands that put both ends of the link into the modes this session
// expects: API mode with escaping (AP=2) on the local side; in gateway
// mode also aggregate routing notification (AR=0) on the local side and
// the remote radio's D6 (RTS) line disabled (D6=0).
func (s *Session) configureRadios() error {
	if _, err := s.localCommand("AP", 2); err != nil {
		return err
	}
	if s.directMode {
		return nil
	}
	if _, err := s.localCommand("AR", 0); err != nil {
		return err
	}
	if err := s.remoteCommand("D6", 0, true); err != nil {
		return err
	}
	return nil
}

// pulseReset drives the target's reset line low for resetPulseLow then
// releases it, holding high for resetPulseHigh before returning, giving
// the bootloader time to start listening.
func (s *Session) pulseReset() error {
	if err := s.SetReset(true); err != nil {
		return err
	}
	time.Sleep(resetPulseLow)
	if err := s.SetReset(false); err != nil {
		return err
	}
	time.Sleep(resetPulseHigh)
	return nil
}

// SetReset asserts (true) or releases (false) the target's reset line.
// In gateway mode this is the remote radio's configured digital-IO pin,
// driven output-low when asserted and output-high when released; in
// direct mode there is no remote radio to command, so it delegates to
// the local serial adapter's DTR/RTS line, wired straight to the
// target's reset pin.
func (s *Session) SetReset(asserted bool) error {
	if s.directMode {
		return s.device.SetDTRRTS(asserted)
	}
	mnemonic := fmt.Sprintf("D%d", s.resetPin)
	value := 4 // output-high: released
	if asserted {
		value = 5 // output-low: asserted
	}
	return s.remoteCommand(mnemonic, value, true)
}

// Drain discards any bytes already buffered in the reliable receive
// stream and resets the in-progress frame decoder, then reads and
// discards whatever frames are still in flight on the wire until a poll
// times out. It also flushes the device's own input buffer, best
// effort; a buffered byte-oriented flush alone isn't enough here since
// a half-received frame can still be in flight when Drain is called.
func (s *Session) Drain() error {
	s.inBuffer.Reset()
	s.decoder.reset()
	s.device.Drain()

	for {
		if _, err := s.pollOnce(nil); err != nil {
			return nil
		}
	}
}

// confirmBootloader issues one GET_SYNC with no retry and requires an
// INSYNC/OK reply before Open succeeds.
func (s *Session) confirmBootloader() error {
	const getSync = 0x30
	const inSync = 0x14
	const ok = 0x10

	if err := s.sendStreamChunk([]byte{getSync, 0x20}); err != nil {
		return err
	}
	reply := make([]byte, 2)
	if err := s.Recv(reply); err != nil {
		return err
	}
	if reply[0] != inSync || reply[1] != ok {
		return errProtocol("confirmBootloader", fmt.Errorf("got %#v, want INSYNC/OK", reply))
	}
	return nil
}

// Close issues a full reset (FR) to the remote radio in gateway mode,
// best effort, and releases the underlying device. It does not return the
// accumulated timing stats; call Stats before Close to capture them.
func (s *Session) Close() error {
	if !s.directMode {
		s.remoteCommand("FR", -1, false)
	}
	return s.device.Close()
}

// Stats returns a snapshot of accumulated round-trip timing statistics
// for all four groups.
func (s *Session) Stats() []Summary {
	return s.stats.Summarise()
}

// Unusable reports whether the session has declared itself permanently
// broken (currently: the inbound ring buffer overflowed because the
// caller never drained it).
func (s *Session) Unusable() bool {
	return s.unusable
}

// parsePort splits "[<16 hex digit address>]@<device path>" into its
// address (nil in direct mode), device path, and mode flag.
func parsePort(port string) (addr []byte, devPath string, direct bool, err error) {
	at := strings.IndexByte(port, '@')
	if at < 0 {
		return nil, "", false, errConfig("parsePort", fmt.Errorf("missing '@' in port spec %q", port))
	}
	addrPart, devPart := port[:at], port[at+1:]
	if devPart == "" {
		return nil, "", false, errConfig("parsePort", fmt.Errorf("empty device path in %q", port))
	}
	if addrPart == "" {
		return nil, devPart, true, nil
	}
	if len(addrPart) != 16 {
		return nil, "", false, errConfig("parsePort", fmt.Errorf("address %q must be 16 hex digits", addrPart))
	}
	decoded, err := hex.DecodeString(addrPart)
	if err != nil {
		return nil, "", false, errConfig("parsePort", fmt.Errorf("address %q: %w", addrPart, err))
	}
	full := make([]byte, 10)
	copy(full, decoded)
	full[8], full[9] = 0xFF, 0xFE // cached short address starts at the unknown sentinel
	return full, devPart, false, nil
}

// parseExtraParam extracts an "xbeeresetpin=<n>" style extended
// parameter from a comma-separated parameter string, returning 0 if
// absent.
func parseExtraParam(params string) (int, error) {
	for _, kv := range strings.Split(params, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] != "xbeeresetpin" {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, errConfig("parseExtraParam", err)
		}
		return n, nil
	}
	return 0, nil
}
