package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultWriteTimeout = 250 * time.Millisecond
)

// DefaultDelimiter terminates each XMLSocket message.
var DefaultDelimiter = []byte{0}

var (
	ErrServerNotListening = errors.New("transport: tcp server not listening")
)

// TCPServer broadcasts frames to every connected stream client.
type TCPServer struct {
	addr         string
	delimiter    []byte
	writeTimeout time.Duration

	ln      net.Listener
	running atomic.Bool

	clientsMu sync.Mutex
	clients   map[net.Conn]struct{}

	// sendMu keeps broadcasts whole when several producers share the server.
	sendMu sync.Mutex
}

type TCPOption func(*TCPServer)

// WithDelimiter replaces the per-message terminator. An empty delimiter disables it.
func WithDelimiter(d []byte) TCPOption {
	return func(s *TCPServer) {
		s.delimiter = append([]byte(nil), d...)
	}
}

// WithWriteTimeout bounds how long one slow client can hold a broadcast.
func WithWriteTimeout(d time.Duration) TCPOption {
	return func(s *TCPServer) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

func NewTCPServer(addr string, opts ...TCPOption) *TCPServer {
	s := &TCPServer{
		addr:         addr,
		delimiter:    DefaultDelimiter,
		writeTimeout: DefaultWriteTimeout,
		clients:      make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the server address. Serve must be called to accept clients.
func (s *TCPServer) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("transport: listen %q: %w", s.addr, err)
	}
	s.ln = ln
	s.running.Store(true)
	log.Info().Str("addr", ln.Addr().String()).Msg("transport.tcp listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *TCPServer) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts clients until ctx is cancelled or the listener is closed.
func (s *TCPServer) Serve(ctx context.Context) error {
	if s.ln == nil {
		return ErrServerNotListening
	}
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.drainConn(conn)
	}
}

// drainConn discards client input and untracks the client when it hangs up.
func (s *TCPServer) drainConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	log.Info().Str("remote", remote).Int("active_clients", s.ClientCount()).Msg("transport.tcp client connected")
	_, _ = io.Copy(io.Discard, conn)
	if s.untrackConn(conn) {
		_ = conn.Close()
		log.Info().Str("remote", remote).Int("active_clients", s.ClientCount()).Msg("transport.tcp client disconnected")
	}
}

// SendToAll writes msg plus the delimiter to every client. A client whose write
// fails is dropped; the rest still receive the message. It returns the number of
// clients reached and the joined per-client errors.
func (s *TCPServer) SendToAll(msg []byte) (int, error) {
	if !s.running.Load() {
		return 0, ErrServerNotListening
	}
	payload := make([]byte, 0, len(msg)+len(s.delimiter))
	payload = append(payload, msg...)
	payload = append(payload, s.delimiter...)

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	var (
		delivered int
		errs      []error
	)
	for _, conn := range s.snapshotConns() {
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if _, err := conn.Write(payload); err != nil {
			remote := conn.RemoteAddr().String()
			errs = append(errs, fmt.Errorf("transport: write %s: %w", remote, err))
			if s.untrackConn(conn) {
				_ = conn.Close()
			}
			log.Warn().Err(err).Str("remote", remote).Msg("transport.tcp client dropped")
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

func (s *TCPServer) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func (s *TCPServer) Running() bool {
	return s.running.Load()
}

// Close stops accepting and disconnects every client.
func (s *TCPServer) Close() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.closeAllConns()
	return s.ln.Close()
}

func (s *TCPServer) trackConn(conn net.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[conn] = struct{}{}
}

func (s *TCPServer) untrackConn(conn net.Conn) bool {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[conn]; !ok {
		return false
	}
	delete(s.clients, conn)
	return true
}

func (s *TCPServer) snapshotConns() []net.Conn {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	out := make([]net.Conn, 0, len(s.clients))
	for conn := range s.clients {
		out = append(out, conn)
	}
	return out
}

func (s *TCPServer) closeAllConns() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		_ = conn.Close()
		delete(s.clients, conn)
	}
}
