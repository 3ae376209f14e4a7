// Package stk500 speaks the STK500v1/Optiboot subset of the AVR ISP
// bootloader protocol over any reliable byte-stream transport, without
// any knowledge of how that stream reaches the target.
package stk500

import "fmt"

// Transport is the reliable, ordered byte stream a bootloader session
// rides on. A stk500 exchange never needs to know the stream is actually
// carried over a mesh radio hop by hop.
type Transport interface {
	Send(data []byte) error
	Recv(buf []byte) error
}

const (
	cmdGetSync       = 0x30
	cmdReadSign      = 0x75
	cmdEnterProgmode = 0x50
	cmdLeaveProgmode = 0x51
	cmdLoadAddress   = 0x55
	cmdProgPage      = 0x64
	cmdReadPage      = 0x74
	crcEOP           = 0x20

	respInSync = 0x14
	respOK     = 0x10
)

// Error reports a protocol mismatch: a response that wasn't the expected
// INSYNC/OK handshake.
type Error struct {
	Op   string
	Got  []byte
	Want string
}

func (e *Error) Error() string {
	return fmt.Sprintf("stk500: %s: got %#v, want %s", e.Op, e.Got, e.Want)
}

func exchange(t Transport, op string, request []byte, replyLen int) ([]byte, error) {
	if err := t.Send(request); err != nil {
		return nil, err
	}
	reply := make([]byte, 2+replyLen)
	if err := t.Recv(reply); err != nil {
		return nil, err
	}
	if reply[0] != respInSync {
		return nil, &Error{Op: op, Got: reply, Want: "INSYNC prefix"}
	}
	if reply[len(reply)-1] != respOK {
		return nil, &Error{Op: op, Got: reply, Want: "OK suffix"}
	}
	return reply[1 : len(reply)-1], nil
}

// GetSync issues a Cmnd_STK_GET_SYNC and confirms the bootloader answers
// INSYNC/OK.
func GetSync(t Transport) error {
	_, err := exchange(t, "GetSync", []byte{cmdGetSync, crcEOP}, 0)
	return err
}

// EnterProgmode issues Cmnd_STK_ENTER_PROGMODE.
func EnterProgmode(t Transport) error {
	_, err := exchange(t, "EnterProgmode", []byte{cmdEnterProgmode, crcEOP}, 0)
	return err
}

// LeaveProgmode issues Cmnd_STK_LEAVE_PROGMODE.
func LeaveProgmode(t Transport) error {
	_, err := exchange(t, "LeaveProgmode", []byte{cmdLeaveProgmode, crcEOP}, 0)
	return err
}

// ReadSignature returns the target's 3-byte device signature.
func ReadSignature(t Transport) ([3]byte, error) {
	var sig [3]byte
	reply, err := exchange(t, "ReadSignature", []byte{cmdReadSign, crcEOP}, 3)
	if err != nil {
		return sig, err
	}
	copy(sig[:], reply)
	return sig, nil
}

// LoadAddress issues Cmnd_STK_LOAD_ADDRESS with a word address (byte
// address / 2), little-endian as the protocol requires.
func LoadAddress(t Transport, wordAddr uint16) error {
	_, err := exchange(t, "LoadAddress", []byte{
		cmdLoadAddress,
		byte(wordAddr), byte(wordAddr >> 8),
		crcEOP,
	}, 0)
	return err
}

// FlashMemType is the memtype byte ProgramPage/ReadPage use for flash
// (as opposed to EEPROM) pages.
const FlashMemType = 'F'

// ProgramPage writes one page of up to 256 bytes at the address set by
// the preceding LoadAddress call.
func ProgramPage(t Transport, memType byte, data []byte) error {
	req := make([]byte, 0, 5+len(data)+1)
	req = append(req, cmdProgPage, byte(len(data)>>8), byte(len(data)), memType)
	req = append(req, data...)
	req = append(req, crcEOP)
	_, err := exchange(t, "ProgramPage", req, 0)
	return err
}

// ReadPage reads back n bytes at the address set by the preceding
// LoadAddress call, for post-program verification.
func ReadPage(t Transport, memType byte, n int) ([]byte, error) {
	req := []byte{cmdReadPage, byte(n >> 8), byte(n), memType, crcEOP}
	return exchange(t, "ReadPage", req, n)
}
