package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const (
	// LocalBufferSize bounds datagrams sent over loopback.
	LocalBufferSize = 4096
	// RemoteBufferSize bounds datagrams sent across a network to stay under a typical MTU.
	RemoteBufferSize = 1500
)

var (
	ErrSenderClosed = errors.New("transport: sender closed")
	ErrOversized    = errors.New("transport: datagram exceeds buffer size")
)

// UDPSender writes datagrams to one fixed destination.
type UDPSender struct {
	addr    string
	conn    *net.UDPConn
	local   bool
	running atomic.Bool
	sent    atomic.Uint64
	failed  atomic.Uint64
}

// DialUDP resolves host:port and opens a connected UDP socket.
func DialUDP(host string, port int) (*UDPSender, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %q: %w", addr, err)
	}
	s := &UDPSender{
		addr:  addr,
		conn:  conn,
		local: raddr.IP.IsLoopback(),
	}
	s.running.Store(true)
	log.Info().Str("addr", addr).Bool("local", s.local).Int("buffer", s.BufferSize()).Msg("transport.udp sender ready")
	return s, nil
}

// Send writes one datagram. Failures are counted and returned but never retried.
func (s *UDPSender) Send(b []byte) error {
	if !s.running.Load() {
		return ErrSenderClosed
	}
	if len(b) > s.BufferSize() {
		s.failed.Add(1)
		return fmt.Errorf("%w: %d > %d", ErrOversized, len(b), s.BufferSize())
	}
	if _, err := s.conn.Write(b); err != nil {
		s.failed.Add(1)
		log.Debug().Err(err).Str("addr", s.addr).Msg("transport.udp send failed")
		return err
	}
	s.sent.Add(1)
	return nil
}

// BufferSize is the largest datagram this sender emits.
func (s *UDPSender) BufferSize() int {
	if s.local {
		return LocalBufferSize
	}
	return RemoteBufferSize
}

// IsLocal reports whether the destination is a loopback address.
func (s *UDPSender) IsLocal() bool {
	return s.local
}

func (s *UDPSender) Running() bool {
	return s.running.Load()
}

func (s *UDPSender) Addr() string {
	return s.addr
}

// Stats returns sent and failed datagram counts.
func (s *UDPSender) Stats() (sent, failed uint64) {
	return s.sent.Load(), s.failed.Load()
}

func (s *UDPSender) Close() error {
	if !s.running.Swap(false) {
		return nil
	}
	return s.conn.Close()
}
