// Package serial opens the byte sources an SBUS receiver reads from: a
// serial port configured for the SBUS line settings, or a TCP stream from
// a serial-to-TCP bridge or simulator.
package serial

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Port is an open byte source.
type Port interface {
	io.ReadWriteCloser
}

// SBUS line settings.
const (
	DefaultBaud     = 100000
	DefaultDataBits = 8
	DefaultParity   = "even"
	DefaultStopBits = "2"
)

// TCPPrefix selects a TCP source when Device starts with it.
const TCPPrefix = "tcp://"

// Config holds serial port configuration.
type Config struct {
	// Device is a serial device path (e.g. /dev/ttyAMA0, COM3) or
	// tcp://host:port.
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	DataBits int    `yaml:"data_bits"`
	// Parity is one of none, odd, even, mark, space.
	Parity string `yaml:"parity"`
	// StopBits is one of 1, 1.5, 2.
	StopBits string `yaml:"stop_bits"`
	// ReadTimeout makes reads return empty when no data arrives in time.
	// 0 blocks.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// DefaultConfig returns the SBUS line settings for device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:   device,
		Baud:     DefaultBaud,
		DataBits: DefaultDataBits,
		Parity:   DefaultParity,
		StopBits: DefaultStopBits,
	}
}

// IsTCP tells if the device is a TCP address.
func (c *Config) IsTCP() bool {
	return strings.HasPrefix(c.Device, TCPPrefix)
}

// Mode converts the line settings.
func (c *Config) Mode() (*serial.Mode, error) {
	parity, err := ParseParity(c.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := ParseStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: c.Baud,
		DataBits: c.DataBits,
		Parity:   parity,
		StopBits: stopBits,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = DefaultBaud
	}
	if mode.DataBits == 0 {
		mode.DataBits = DefaultDataBits
	}
	return mode, nil
}

// Open opens the port described by cfg.
func Open(cfg *Config) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, fmt.Errorf("serial device not specified")
	}
	if cfg.IsTCP() {
		return DialTCP(strings.TrimPrefix(cfg.Device, TCPPrefix), cfg.ReadTimeout)
	}
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Device, err)
		}
	}
	return port, nil
}

// ParseParity parses a parity name. Empty means none.
func ParseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serial.NoParity, nil
	case "odd", "o":
		return serial.OddParity, nil
	case "even", "e":
		return serial.EvenParity, nil
	case "mark", "m":
		return serial.MarkParity, nil
	case "space", "s":
		return serial.SpaceParity, nil
	}
	return serial.NoParity, fmt.Errorf("invalid parity %q", s)
}

// ParseStopBits parses the number of stop bits. Empty means 1.
func ParseStopBits(s string) (serial.StopBits, error) {
	switch strings.ToLower(s) {
	case "", "1", "one":
		return serial.OneStopBit, nil
	case "1.5", "onepointfive":
		return serial.OnePointFiveStopBits, nil
	case "2", "two":
		return serial.TwoStopBits, nil
	}
	return serial.OneStopBit, fmt.Errorf("invalid stop bits %q", s)
}

// Ports lists the serial ports found on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
