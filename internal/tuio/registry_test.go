package tuio

import (
	"sync"
	"testing"
	"time"

	"github.com/danmuck/touch2tuio/internal/testutil/testlog"
)

func TestSubscribersNotifiedInRegistrationOrder(t *testing.T) {
	testlog.Start(t)
	m := NewManager()
	order := make([]string, 0)
	first := &SubscriberFuncs{OnAdd: func(Cursor) { order = append(order, "first") }}
	second := &SubscriberFuncs{OnAdd: func(Cursor) { order = append(order, "second") }}
	m.Registry().AddSubscriber(first)
	m.Registry().AddSubscriber(second)
	m.Registry().AddSubscriber(first)

	m.InitFrame(time.Millisecond)
	m.AddCursor(0.5, 0.5)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected notification order: %v", order)
	}

	m.Registry().RemoveSubscriber(first)
	if subs := m.Registry().Subscribers(); len(subs) != 1 || subs[0] != second {
		t.Fatalf("unexpected subscribers after remove: %v", subs)
	}
	m.Registry().RemoveAllSubscribers()
	if len(m.Registry().Subscribers()) != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	testlog.Start(t)
	m := NewManager()
	m.InitFrame(0)
	c := m.AddCursor(0.2, 0.2)

	snap := m.Registry().SnapshotCursors()
	m.InitFrame(10 * time.Millisecond)
	m.UpdateCursor(c.SessionID, 0.4, 0.2)

	if snap[0].X != 0.2 {
		t.Fatalf("snapshot mutated by later update: %+v", snap[0])
	}
	found, ok := m.Registry().FindCursorBySessionID(c.SessionID)
	if !ok || found.X != 0.4 {
		t.Fatalf("unexpected lookup result: %+v ok=%v", found, ok)
	}
	if _, ok := m.Registry().FindCursorBySessionID(99); ok {
		t.Fatalf("expected lookup miss for unknown session")
	}
}

func TestConcurrentSnapshotReaders(t *testing.T) {
	testlog.Start(t)
	m := NewManager()
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					for _, c := range m.Registry().SnapshotCursors() {
						_, _ = m.Registry().FindCursorBySessionID(c.SessionID)
					}
				}
			}
		}()
	}

	ids := make([]int64, 0)
	for frame := 1; frame <= 200; frame++ {
		m.InitFrame(time.Duration(frame) * time.Millisecond)
		if frame%3 == 0 && len(ids) > 0 {
			m.RemoveCursor(ids[0])
			ids = ids[1:]
		} else {
			ids = append(ids, m.AddCursor(0.5, 0.5).SessionID)
		}
		m.CommitFrame()
	}
	close(done)
	wg.Wait()
}
