package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/touch2tuio/internal/protocol"
	"github.com/danmuck/touch2tuio/internal/protocol/osc"
	"github.com/danmuck/touch2tuio/internal/protocol/xmlosc"
)

var errFakeSend = errors.New("fake send failure")

type fakeUDP struct {
	mu      sync.Mutex
	bundles [][]byte
	local   bool
	buffer  int
	fail    bool
	stopped bool
}

func newFakeUDP() *fakeUDP {
	return &fakeUDP{local: true, buffer: 4096}
}

func (f *fakeUDP) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errFakeSend
	}
	f.bundles = append(f.bundles, append([]byte(nil), b...))
	return nil
}

func (f *fakeUDP) BufferSize() int { return f.buffer }
func (f *fakeUDP) IsLocal() bool   { return f.local }
func (f *fakeUDP) Running() bool   { return !f.stopped }

func (f *fakeUDP) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bundles)
}

// frames decodes every bundle received since index from.
func (f *fakeUDP) frames(t *testing.T, from int) []protocol.CursorFrame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.CursorFrame, 0, len(f.bundles)-from)
	for _, raw := range f.bundles[from:] {
		b, err := osc.ParseBundle(raw)
		if err != nil {
			t.Fatalf("parse bundle: %v", err)
		}
		frame, err := protocol.DecodeCursorFrame(b.Messages)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		out = append(out, frame)
	}
	return out
}

type fakeTCP struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
}

func (f *fakeTCP) SendToAll(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packets = append(f.packets, append([]byte(nil), b...))
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func (f *fakeTCP) Running() bool { return true }

func (f *fakeTCP) frame(t *testing.T, i int) (xmlosc.Packet, protocol.CursorFrame) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.packets) {
		t.Fatalf("tcp packet %d missing, have %d", i, len(f.packets))
	}
	p, err := xmlosc.Parse(f.packets[i])
	if err != nil {
		t.Fatalf("parse xml: %v", err)
	}
	frame, err := protocol.DecodeCursorFrame(p.Messages)
	if err != nil {
		t.Fatalf("decode xml frame: %v", err)
	}
	return p, frame
}

type fakeObserver struct {
	committed int
	sent      map[Channel]int
	failed    map[Channel]int
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{sent: map[Channel]int{}, failed: map[Channel]int{}}
}

func (o *fakeObserver) FrameCommitted(int64, bool)     { o.committed++ }
func (o *fakeObserver) BundleSent(ch Channel)          { o.sent[ch]++ }
func (o *fakeObserver) SendFailed(ch Channel, _ error) { o.failed[ch]++ }

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration { return c.now }
