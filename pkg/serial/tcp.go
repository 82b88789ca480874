package serial

import (
	"fmt"
	"net"
	"time"
)

// tcpPort applies a read deadline before each read so a TCP source
// behaves like a serial port with a read timeout.
type tcpPort struct {
	net.Conn
	timeout time.Duration
}

// DialTCP connects to a serial-to-TCP bridge. With a non-zero timeout,
// Read returns a timeout error when no data arrives in time.
func DialTCP(addr string, timeout time.Duration) (Port, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &tcpPort{Conn: conn, timeout: timeout}, nil
}

func (p *tcpPort) Read(b []byte) (int, error) {
	if p.timeout > 0 {
		if err := p.Conn.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
			return 0, err
		}
	}
	return p.Conn.Read(b)
}
