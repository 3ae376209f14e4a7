package xbee

import (
	"errors"
	"io"
	"time"

	"go.bug.st/serial"
)

// serialDevice implements Device over a real host serial port using
// go.bug.st/serial, chosen for its direct SetDTR/SetRTS support needed by
// direct-mode reset delegation.
type serialDevice struct {
	port    serial.Port
	timeout time.Duration
}

// OpenSerialDevice opens path at baud with 8N1 framing and the shared
// DefaultSerialTimeout receive window.
func OpenSerialDevice(path string, baud int) (Device, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(DefaultSerialTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return &serialDevice{port: port, timeout: DefaultSerialTimeout}, nil
}

func (d *serialDevice) RecvByte() (byte, bool, error) {
	var buf [1]byte
	n, err := d.port.Read(buf[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if n == 0 {
		// go.bug.st/serial returns (0, nil) on read-timeout expiry.
		return 0, false, nil
	}
	return buf[0], true, nil
}

func (d *serialDevice) Send(buf []byte) error {
	_, err := d.port.Write(buf)
	return err
}

func (d *serialDevice) Drain() error {
	return d.port.ResetInputBuffer()
}

func (d *serialDevice) SetDTRRTS(asserted bool) error {
	if err := d.port.SetDTR(asserted); err != nil {
		return err
	}
	return d.port.SetRTS(asserted)
}

func (d *serialDevice) Close() error {
	return d.port.Close()
}
