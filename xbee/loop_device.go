package xbee

import "sync"

// LoopDevice is an in-memory Device for tests: Inject feeds bytes as
// though received from the wire, and Sent records everything written so
// a test can assert on the exact frames the session emitted.
type LoopDevice struct {
	mu     sync.Mutex
	inbox  []byte
	sent   []byte
	closed bool
}

// NewLoopDevice returns a fresh, open LoopDevice with nothing queued.
func NewLoopDevice() *LoopDevice {
	return &LoopDevice{}
}

// Inject appends bytes to the simulated inbound wire, available to
// subsequent RecvByte calls.
func (l *LoopDevice) Inject(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbox = append(l.inbox, b...)
}

// Sent returns everything written via Send so far.
func (l *LoopDevice) Sent() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]byte, len(l.sent))
	copy(out, l.sent)
	return out
}

// ResetSent clears the recorded outbound history, useful between
// scenario phases in a single test.
func (l *LoopDevice) ResetSent() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = l.sent[:0]
}

func (l *LoopDevice) RecvByte() (byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, false, errClosed
	}
	if len(l.inbox) == 0 {
		return 0, false, nil // simulated timeout
	}
	b := l.inbox[0]
	l.inbox = l.inbox[1:]
	return b, true, nil
}

func (l *LoopDevice) Send(buf []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errClosed
	}
	l.sent = append(l.sent, buf...)
	return nil
}

func (l *LoopDevice) Drain() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbox = l.inbox[:0]
	return nil
}

func (l *LoopDevice) SetDTRRTS(asserted bool) error {
	return nil
}

func (l *LoopDevice) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

var errClosed = &Error{Kind: KindUnusable, Op: "LoopDevice"}
