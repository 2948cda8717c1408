package link

import (
	"net"
	"time"
)

// UDPSocket is the subset of *net.UDPConn the receiver uses.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// SocketFactory opens receive sockets.
type SocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// NetFactory opens real sockets with net.ListenUDP.
type NetFactory struct{}

func (NetFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// MockSocket replays queued datagrams and reports a timeout once they run out.
type MockSocket struct {
	Datagrams      [][]byte
	ReadIndex      int
	Closed         bool
	ReadBufferSize int
	Deadlines      []time.Time
	ReadError      error
	LocalAddress   *net.UDPAddr
}

// NewMockSocket returns a mock holding the given datagrams.
func NewMockSocket(datagrams ...[]byte) *MockSocket {
	return &MockSocket{
		Datagrams:    datagrams,
		LocalAddress: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7070},
	}
}

func (m *MockSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	if m.Closed {
		return 0, nil, net.ErrClosed
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.ReadError = nil
		return 0, nil, err
	}
	if m.ReadIndex >= len(m.Datagrams) {
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}}
	}
	d := m.Datagrams[m.ReadIndex]
	m.ReadIndex++
	return copy(b, d), m.LocalAddress, nil
}

func (m *MockSocket) SetReadBuffer(bytes int) error {
	m.ReadBufferSize = bytes
	return nil
}

func (m *MockSocket) SetReadDeadline(t time.Time) error {
	m.Deadlines = append(m.Deadlines, t)
	return nil
}

func (m *MockSocket) Close() error {
	m.Closed = true
	return nil
}

func (m *MockSocket) LocalAddr() net.Addr { return m.LocalAddress }

// MockFactory hands out a single prepared socket.
type MockFactory struct {
	Socket *MockSocket
	Err    error
	Addrs  []*net.UDPAddr
}

func (f *MockFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.Addrs = append(f.Addrs, laddr)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Socket, nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
