package transport

import (
	"context"
	"fmt"

	"go.bug.st/serial"

	"github.com/bft-labs/llmbridge/internal/ports"
)

// DefaultBaudRate matches the device firmware.
const DefaultBaudRate = 115200

// Serial opens a UART device with 8N1 framing.
type Serial struct {
	Device   string
	BaudRate int

	// open is swapped in tests.
	open func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewSerial creates an opener for device.
func NewSerial(device string, baud int) *Serial {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &Serial{Device: device, BaudRate: baud, open: serial.Open}
}

// Name implements ports.TransportOpener.
func (s *Serial) Name() string {
	return "serial:" + s.Device
}

// Open implements ports.TransportOpener.
func (s *Serial) Open(ctx context.Context) (ports.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := s.open(s.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Device, err)
	}
	// Drop bytes buffered before we attached.
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("reset input %s: %w", s.Device, err)
	}
	return port, nil
}

// Ports lists the serial devices present on the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
