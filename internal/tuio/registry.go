package tuio

import "sync"

// Registry stores active cursor records and subscribers.
//
// The ordered list and the session index are guarded by independent locks so
// that list traversal and index lookup never wait on each other.
type Registry struct {
	listMu  sync.RWMutex
	cursors []*cursorRecord

	indexMu sync.RWMutex
	index   map[int64]*cursorRecord

	subMu       sync.RWMutex
	subscribers []Subscriber
}

// NewRegistry creates an empty cursor registry.
func NewRegistry() *Registry {
	return &Registry{
		cursors: make([]*cursorRecord, 0),
		index:   make(map[int64]*cursorRecord),
	}
}

func (r *Registry) AddSubscriber(s Subscriber) {
	if s == nil {
		return
	}
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, existing := range r.subscribers {
		if existing == s {
			return
		}
	}
	r.subscribers = append(r.subscribers, s)
}

func (r *Registry) RemoveSubscriber(s Subscriber) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for i, existing := range r.subscribers {
		if existing == s {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			return
		}
	}
}

func (r *Registry) RemoveAllSubscribers() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subscribers = nil
}

// Subscribers returns a copy of the subscriber list in registration order.
func (r *Registry) Subscribers() []Subscriber {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	out := make([]Subscriber, len(r.subscribers))
	copy(out, r.subscribers)
	return out
}

// SnapshotCursors returns a point-in-time copy of the active cursors in insertion order.
func (r *Registry) SnapshotCursors() []Cursor {
	r.listMu.RLock()
	defer r.listMu.RUnlock()
	out := make([]Cursor, 0, len(r.cursors))
	for _, rec := range r.cursors {
		out = append(out, rec.snapshot())
	}
	return out
}

// FindCursorBySessionID returns the cursor with the given session id, if active.
func (r *Registry) FindCursorBySessionID(id int64) (Cursor, bool) {
	rec, ok := r.lookup(id)
	if !ok {
		return Cursor{}, false
	}
	return rec.snapshot(), true
}

// Len returns the number of active cursors.
func (r *Registry) Len() int {
	r.listMu.RLock()
	defer r.listMu.RUnlock()
	return len(r.cursors)
}

func (r *Registry) lookup(id int64) (*cursorRecord, bool) {
	r.indexMu.RLock()
	defer r.indexMu.RUnlock()
	rec, ok := r.index[id]
	return rec, ok
}

func (r *Registry) insert(rec *cursorRecord) {
	r.listMu.Lock()
	r.cursors = append(r.cursors, rec)
	r.listMu.Unlock()

	r.indexMu.Lock()
	r.index[rec.SessionID] = rec
	r.indexMu.Unlock()
}

func (r *Registry) delete(id int64) {
	r.indexMu.Lock()
	delete(r.index, id)
	r.indexMu.Unlock()

	r.listMu.Lock()
	defer r.listMu.Unlock()
	for i, rec := range r.cursors {
		if rec.SessionID == id {
			r.cursors = append(r.cursors[:i], r.cursors[i+1:]...)
			return
		}
	}
}

// mutate applies fn to a record under the list write lock so snapshots never see a torn cursor.
func (r *Registry) mutate(rec *cursorRecord, fn func(*cursorRecord)) Cursor {
	r.listMu.Lock()
	defer r.listMu.Unlock()
	fn(rec)
	return rec.snapshot()
}

// records returns the live record pointers in insertion order. Writer-side only.
func (r *Registry) records() []*cursorRecord {
	r.listMu.RLock()
	defer r.listMu.RUnlock()
	out := make([]*cursorRecord, len(r.cursors))
	copy(out, r.cursors)
	return out
}
