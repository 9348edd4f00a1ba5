package dlt645

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Transport moves raw bytes to and from the meter bus. Framing, timing
// and retries belong to the engine, not the transport.
type Transport interface {
	Open() error
	Close() error
	Write(p []byte) error
	// ReadAvailable fills p with whatever the line has buffered,
	// waiting at most a short polling window. n == 0 means the line
	// was silent for that window.
	ReadAvailable(p []byte) (n int, err error)
	// Flush drops any unread receive bytes.
	Flush() error
}

// SpeedSwitcher is implemented by transports whose line speed can change
// at runtime. Used by discovery when cycling through standard baud rates.
type SpeedSwitcher interface {
	SetSpeed(baud int) error
}

// serialPollWindow bounds a single ReadAvailable wait on a real port. It
// must stay below the inter-byte gap or the gap detection goes blind.
const serialPollWindow = 5 * time.Millisecond

// SerialTransport drives a DL/T 645 bus over a serial device at 8E1.
type SerialTransport struct {
	device string
	mode   serial.Mode
	port   serial.Port
}

func NewSerialTransport(device string, baud int) *SerialTransport {
	return &SerialTransport{
		device: device,
		mode: serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.EvenParity,
			StopBits: serial.OneStopBit,
		},
	}
}

func (t *SerialTransport) Open() error {
	port, err := serial.Open(t.device, &t.mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.device, err)
	}
	if err := port.SetReadTimeout(serialPollWindow); err != nil {
		port.Close()
		return err
	}
	t.port = port
	return nil
}

func (t *SerialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

func (t *SerialTransport) Write(p []byte) error {
	if t.port == nil {
		return fmt.Errorf("serial port %s is not open", t.device)
	}
	for len(p) > 0 {
		n, err := t.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return t.port.Drain()
}

func (t *SerialTransport) ReadAvailable(p []byte) (int, error) {
	if t.port == nil {
		return 0, fmt.Errorf("serial port %s is not open", t.device)
	}
	return t.port.Read(p)
}

func (t *SerialTransport) Flush() error {
	if t.port == nil {
		return nil
	}
	return t.port.ResetInputBuffer()
}

func (t *SerialTransport) SetSpeed(baud int) error {
	t.mode.BaudRate = baud
	if t.port == nil {
		return nil
	}
	return t.port.SetMode(&t.mode)
}
