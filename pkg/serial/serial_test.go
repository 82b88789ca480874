package serial

import (
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestDefaultConfigMode(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyAMA0")
	require.False(t, cfg.IsTCP())
	mode, err := cfg.Mode()
	require.NoError(t, err)
	require.Equal(t, &serial.Mode{
		BaudRate: 100000,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.TwoStopBits,
	}, mode)
}

func TestModeErrors(t *testing.T) {
	cfg := DefaultConfig("/dev/null")
	cfg.Parity = "sometimes"
	_, err := cfg.Mode()
	require.Error(t, err)

	cfg = DefaultConfig("/dev/null")
	cfg.StopBits = "3"
	_, err = cfg.Mode()
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	parityCases := map[string]serial.Parity{
		"":      serial.NoParity,
		"None":  serial.NoParity,
		"E":     serial.EvenParity,
		"odd":   serial.OddParity,
		"Mark":  serial.MarkParity,
		"space": serial.SpaceParity,
	}
	for in, expected := range parityCases {
		p, err := ParseParity(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, p, in)
	}
	stopCases := map[string]serial.StopBits{
		"":    serial.OneStopBit,
		"1":   serial.OneStopBit,
		"1.5": serial.OnePointFiveStopBits,
		"Two": serial.TwoStopBits,
	}
	for in, expected := range stopCases {
		s, err := ParseStopBits(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, s, in)
	}
}

func TestOpenNoDevice(t *testing.T) {
	_, err := Open(nil)
	require.Error(t, err)
	_, err = Open(&Config{})
	require.Error(t, err)
}

func TestOpenTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte{0x0f, 0x00})
		time.Sleep(100 * time.Millisecond)
		conn.Close()
	}()

	cfg := DefaultConfig(TCPPrefix + ln.Addr().String())
	cfg.ReadTimeout = 20 * time.Millisecond
	require.True(t, cfg.IsTCP())
	port, err := Open(cfg)
	require.NoError(t, err)
	defer port.Close()

	buf := make([]byte, 8)
	n, err := io.ReadFull(port, buf[:2])
	require.NoError(t, err)
	require.Equal(t, []byte{0x0f, 0x00}, buf[:n])

	_, err = port.Read(buf)
	require.True(t, os.IsTimeout(err))
}
