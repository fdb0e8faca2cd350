package bridge

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/danmuck/touch2tuio/internal/tuio"
	"github.com/rs/zerolog/log"
)

const (
	DefaultIdleTimeout  = 300 * time.Millisecond
	DefaultTickInterval = 100 * time.Millisecond
)

// EventKind is the phase of a pointer event.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerUpdate
	PointerUp
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerUpdate:
		return "update"
	case PointerUp:
		return "up"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// PointerEvent is one raw event from an input source.
type PointerEvent struct {
	Kind      EventKind
	PointerID uint32
	X         float64
	Y         float64
}

// Engine is the cursor lifecycle surface a Listener drives.
type Engine interface {
	InitFrame(t time.Duration)
	AddCursor(x, y float64) tuio.Cursor
	UpdateCursor(sessionID int64, x, y float64)
	RemoveCursor(sessionID int64)
	CommitFrame()
	Cursor(sessionID int64) (tuio.Cursor, bool)
}

// Listener translates pointer events into cursor frames. Its methods are safe to
// call from several producers; they are serialized so the engine sees one writer.
type Listener struct {
	mu       sync.Mutex
	engine   Engine
	screen   Screen
	pointers map[uint32]int64
	closed   bool

	clock        func() time.Duration
	idleTimeout  time.Duration
	tickInterval time.Duration
	keepalive    bool
}

type Option func(*Listener)

// WithClock sets the session clock used to stamp frames.
func WithClock(clock func() time.Duration) Option {
	return func(l *Listener) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.idleTimeout = d
		}
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.tickInterval = d
		}
	}
}

// WithKeepalive commits an empty frame on every quiet tick so the engine can
// decide whether a periodic resend is due.
func WithKeepalive(on bool) Option {
	return func(l *Listener) {
		l.keepalive = on
	}
}

func NewListener(engine Engine, screen Screen, opts ...Option) *Listener {
	started := time.Now()
	l := &Listener{
		engine:       engine,
		screen:       screen,
		pointers:     make(map[uint32]int64),
		clock:        func() time.Duration { return time.Since(started) },
		idleTimeout:  DefaultIdleTimeout,
		tickInterval: DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Listener) Screen() Screen {
	return l.screen
}

// Handle dispatches ev by kind.
func (l *Listener) Handle(ev PointerEvent) {
	switch ev.Kind {
	case PointerDown:
		l.PointerDown(ev.PointerID, ev.X, ev.Y)
	case PointerUpdate:
		l.PointerUpdate(ev.PointerID, ev.X, ev.Y)
	case PointerUp:
		l.PointerUp(ev.PointerID)
	default:
		log.Debug().Str("kind", ev.Kind.String()).Msg("bridge.Listener unknown event kind")
	}
}

// PointerDown adds a cursor for id. A pointer that is already down is replaced
// within the same frame.
func (l *Listener) PointerDown(id uint32, rawX, rawY float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	l.engine.InitFrame(l.clock())
	if stale, ok := l.pointers[id]; ok {
		log.Debug().Uint32("pointer_id", id).Int64("session_id", stale).Msg("bridge.Listener replacing stale pointer")
		l.engine.RemoveCursor(stale)
	}
	c := l.engine.AddCursor(l.screen.ScaledX(rawX), l.screen.ScaledY(rawY))
	l.pointers[id] = c.SessionID
	l.engine.CommitFrame()
}

// PointerUpdate moves the cursor mapped to id. Unmapped ids are dropped.
func (l *Listener) PointerUpdate(id uint32, rawX, rawY float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	sessionID, ok := l.pointers[id]
	if !ok {
		log.Debug().Uint32("pointer_id", id).Msg("bridge.Listener update for unmapped pointer")
		return
	}
	l.engine.InitFrame(l.clock())
	l.engine.UpdateCursor(sessionID, l.screen.ScaledX(rawX), l.screen.ScaledY(rawY))
	l.engine.CommitFrame()
}

// PointerUp removes the cursor mapped to id. Unmapped ids are dropped.
func (l *Listener) PointerUp(id uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	sessionID, ok := l.pointers[id]
	if !ok {
		log.Debug().Uint32("pointer_id", id).Msg("bridge.Listener up for unmapped pointer")
		return
	}
	l.engine.InitFrame(l.clock())
	l.engine.RemoveCursor(sessionID)
	delete(l.pointers, id)
	l.engine.CommitFrame()
}

// Reap removes every cursor idle for at least the idle timeout, all within one
// frame, and returns how many were removed.
func (l *Listener) Reap() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}

	now := l.clock()
	removed := 0
	for _, id := range l.sortedPointerIDs() {
		sessionID := l.pointers[id]
		c, ok := l.engine.Cursor(sessionID)
		if ok && now-c.Time < l.idleTimeout {
			continue
		}
		if removed == 0 {
			l.engine.InitFrame(now)
		}
		if ok {
			l.engine.RemoveCursor(sessionID)
		}
		delete(l.pointers, id)
		removed++
	}
	if removed > 0 {
		l.engine.CommitFrame()
		log.Debug().Int("removed", removed).Msg("bridge.Listener reaped idle cursors")
	}
	return removed
}

// Idle commits a frame with no cursor changes.
func (l *Listener) Idle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.engine.InitFrame(l.clock())
	l.engine.CommitFrame()
}

// ReleaseAll lifts every mapped pointer in one frame.
func (l *Listener) ReleaseAll() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0
	}

	if len(l.pointers) == 0 {
		return 0
	}
	l.engine.InitFrame(l.clock())
	n := 0
	for _, id := range l.sortedPointerIDs() {
		l.engine.RemoveCursor(l.pointers[id])
		delete(l.pointers, id)
		n++
	}
	l.engine.CommitFrame()
	return n
}

// Pointers returns the number of pointers currently down.
func (l *Listener) Pointers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pointers)
}

// Mapped reports whether id is currently down. A reaped pointer is no longer mapped.
func (l *Listener) Mapped(id uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pointers[id]
	return ok
}

// Close detaches the listener. finish, if set, runs before any producer can
// reach the engine again; events after Close are dropped.
func (l *Listener) Close(finish func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	clear(l.pointers)
	if finish != nil {
		finish()
	}
}

// Run sweeps idle cursors every tick until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()
	log.Info().
		Dur("idle_timeout", l.idleTimeout).
		Dur("tick", l.tickInterval).
		Msg("bridge.Listener reaper started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if l.Reap() == 0 && l.keepalive {
				l.Idle()
			}
		}
	}
}

func (l *Listener) sortedPointerIDs() []uint32 {
	ids := make([]uint32, 0, len(l.pointers))
	for id := range l.pointers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
