package transport

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/touch2tuio/internal/testutil/testlog"
)

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestUDPSenderLoopbackDelivery(t *testing.T) {
	testlog.Start(t)
	rx := listenUDP(t)
	port := rx.LocalAddr().(*net.UDPAddr).Port

	s, err := DialUDP("127.0.0.1", port)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer s.Close()

	if !s.IsLocal() || s.BufferSize() != LocalBufferSize {
		t.Fatalf("loopback sender: local=%v buffer=%d", s.IsLocal(), s.BufferSize())
	}
	if err := s.Send([]byte("frame")); err != nil {
		t.Fatalf("send: %v", err)
	}

	_ = rx.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := rx.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "frame" {
		t.Fatalf("payload=%q", buf[:n])
	}
	if sent, failed := s.Stats(); sent != 1 || failed != 0 {
		t.Fatalf("stats sent=%d failed=%d", sent, failed)
	}
}

func TestUDPSenderRejectsOversizedAndClosed(t *testing.T) {
	testlog.Start(t)
	rx := listenUDP(t)
	s, err := DialUDP("127.0.0.1", rx.LocalAddr().(*net.UDPAddr).Port)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := s.Send(make([]byte, LocalBufferSize+1)); !errors.Is(err, ErrOversized) {
		t.Fatalf("expected ErrOversized, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.Running() {
		t.Fatalf("sender still running after close")
	}
	if err := s.Send([]byte("x")); !errors.Is(err, ErrSenderClosed) {
		t.Fatalf("expected ErrSenderClosed, got %v", err)
	}
}
