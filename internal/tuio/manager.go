package tuio

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// freeSlot is a reclaimable cursor id with the last position of its previous owner.
type freeSlot struct {
	cursorID int
	x, y     float64
}

// Manager enforces cursor identity and frame sequencing on top of a Registry.
//
// Manager is a single-writer type: InitFrame through CommitFrame must be driven
// from one goroutine at a time. Read accessors backed by the Registry are safe
// from any goroutine.
type Manager struct {
	registry *Registry

	frameTime   atomic.Int64
	frameID     atomic.Int64
	sessionID   int64
	maxCursorID int
	free        []freeSlot
	dirty       bool
}

// NewManager creates a Manager over a fresh Registry.
func NewManager() *Manager {
	return NewManagerWithRegistry(NewRegistry())
}

// NewManagerWithRegistry creates a Manager over an existing Registry.
func NewManagerWithRegistry(reg *Registry) *Manager {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Manager{
		registry:    reg,
		sessionID:   -1,
		maxCursorID: -1,
		free:        make([]freeSlot, 0),
	}
}

// Registry exposes the underlying registry for snapshot readers and subscriber management.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// InitFrame starts a new frame at t on the session clock.
func (m *Manager) InitFrame(t time.Duration) {
	m.frameTime.Store(int64(t))
	m.frameID.Add(1)
}

// FrameTime returns the current frame's timestamp.
func (m *Manager) FrameTime() time.Duration {
	return time.Duration(m.frameTime.Load())
}

// FrameID returns the current frame sequence number.
func (m *Manager) FrameID() int64 {
	return m.frameID.Load()
}

// Dirty reports whether any add, update or remove happened since the last ClearDirty.
func (m *Manager) Dirty() bool {
	return m.dirty
}

func (m *Manager) ClearDirty() {
	m.dirty = false
}

// MaxCursorID returns the highest cursor id currently reachable, or -1.
func (m *Manager) MaxCursorID() int {
	return m.maxCursorID
}

func (m *Manager) nextSessionID() int64 {
	m.sessionID++
	return m.sessionID
}

// AddCursor creates a cursor at (x, y) and notifies subscribers.
func (m *Manager) AddCursor(x, y float64) Cursor {
	sessionID := m.nextSessionID()

	active := m.registry.Len()
	cursorID := active
	if active <= m.maxCursorID && len(m.free) > 0 {
		closest := 0
		best := math.Hypot(m.free[0].x-x, m.free[0].y-y)
		for i := 1; i < len(m.free); i++ {
			if d := math.Hypot(m.free[i].x-x, m.free[i].y-y); d < best {
				closest = i
				best = d
			}
		}
		cursorID = m.free[closest].cursorID
		m.free = append(m.free[:closest], m.free[closest+1:]...)
	} else {
		m.maxCursorID = cursorID
	}

	rec := newCursorRecord(m.FrameTime(), sessionID, cursorID, x, y)
	m.registry.insert(rec)
	m.dirty = true

	c := rec.snapshot()
	for _, s := range m.registry.Subscribers() {
		s.AddCursor(c)
	}
	log.Debug().
		Int64("session_id", c.SessionID).
		Int("cursor_id", c.CursorID).
		Float64("x", c.X).
		Float64("y", c.Y).
		Msg("tuio.Manager.AddCursor")
	return c
}

// UpdateCursor moves an active cursor. Repeated calls within one frame are ignored.
func (m *Manager) UpdateCursor(sessionID int64, x, y float64) {
	rec, ok := m.registry.lookup(sessionID)
	if !ok {
		log.Debug().Int64("session_id", sessionID).Msg("tuio.Manager.UpdateCursor unknown cursor")
		return
	}
	now := m.FrameTime()
	if rec.Time == now {
		return
	}
	c := m.registry.mutate(rec, func(r *cursorRecord) {
		r.update(now, x, y)
	})
	m.dirty = true

	if !c.IsMoving() {
		return
	}
	for _, s := range m.registry.Subscribers() {
		s.UpdateCursor(c)
	}
	log.Trace().
		Int64("session_id", c.SessionID).
		Float64("x", c.X).
		Float64("y", c.Y).
		Float64("vx", c.XSpeed).
		Float64("vy", c.YSpeed).
		Msg("tuio.Manager.UpdateCursor")
}

// RemoveCursor deletes an active cursor and reclaims its cursor id.
func (m *Manager) RemoveCursor(sessionID int64) {
	rec, ok := m.registry.lookup(sessionID)
	if !ok {
		log.Debug().Int64("session_id", sessionID).Msg("tuio.Manager.RemoveCursor unknown cursor")
		return
	}
	m.registry.delete(sessionID)
	c := m.registry.mutate(rec, func(r *cursorRecord) {
		r.removed = true
		r.Time = m.FrameTime()
	})
	m.dirty = true

	for _, s := range m.registry.Subscribers() {
		s.RemoveCursor(c)
	}
	log.Debug().
		Int64("session_id", c.SessionID).
		Int("cursor_id", c.CursorID).
		Msg("tuio.Manager.RemoveCursor")

	switch {
	case c.CursorID == m.maxCursorID:
		m.maxCursorID = -1
		for _, other := range m.registry.records() {
			if other.CursorID > m.maxCursorID {
				m.maxCursorID = other.CursorID
			}
		}
		kept := m.free[:0]
		for _, slot := range m.free {
			if slot.cursorID <= m.maxCursorID {
				kept = append(kept, slot)
			}
		}
		m.free = kept
	case c.CursorID < m.maxCursorID:
		m.free = append(m.free, freeSlot{cursorID: c.CursorID, x: c.X, y: c.Y})
	}
}

// CommitFrame notifies subscribers that the frame is complete.
func (m *Manager) CommitFrame() {
	now := m.FrameTime()
	for _, s := range m.registry.Subscribers() {
		s.Refresh(now)
	}
}

// Cursor returns the active cursor with the given session id.
func (m *Manager) Cursor(sessionID int64) (Cursor, bool) {
	return m.registry.FindCursorBySessionID(sessionID)
}

// Cursors returns a snapshot of all active cursors.
func (m *Manager) Cursors() []Cursor {
	return m.registry.SnapshotCursors()
}

// ClosestCursor returns the cursor nearest to (x, y) within a normalized distance of 1.
func (m *Manager) ClosestCursor(x, y float64) (Cursor, bool) {
	var (
		closest Cursor
		found   bool
	)
	best := 1.0
	for _, c := range m.registry.SnapshotCursors() {
		if d := c.Distance(x, y); d < best {
			closest = c
			best = d
			found = true
		}
	}
	return closest, found
}

// UntouchedCursors returns the cursors that were not added or updated in the current frame.
func (m *Manager) UntouchedCursors() []Cursor {
	now := m.FrameTime()
	out := make([]Cursor, 0)
	for _, c := range m.registry.SnapshotCursors() {
		if c.Time != now {
			out = append(out, c)
		}
	}
	return out
}

// StopUntouchedMovingCursors brings every untouched moving cursor to rest.
func (m *Manager) StopUntouchedMovingCursors() {
	now := m.FrameTime()
	for _, rec := range m.registry.records() {
		if rec.Time == now || !rec.IsMoving() {
			continue
		}
		c := m.registry.mutate(rec, func(r *cursorRecord) {
			r.stop(now)
		})
		m.dirty = true
		for _, s := range m.registry.Subscribers() {
			s.UpdateCursor(c)
		}
	}
}

// RemoveUntouchedStoppedCursors removes every untouched cursor that is at rest.
func (m *Manager) RemoveUntouchedStoppedCursors() {
	now := m.FrameTime()
	for _, rec := range m.registry.records() {
		if rec.Time != now && !rec.IsMoving() {
			m.RemoveCursor(rec.SessionID)
		}
	}
}

// ResetCursors removes every active cursor.
func (m *Manager) ResetCursors() {
	for _, rec := range m.registry.records() {
		m.RemoveCursor(rec.SessionID)
	}
}
