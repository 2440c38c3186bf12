package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const DefaultBaud = 9600

type PortConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// OpenPort opens the host side of the node's serial link.
func OpenPort(cfg PortConfig) (io.ReadWriteCloser, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("serial port name is required")
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Name, err)
	}
	return port, nil
}
