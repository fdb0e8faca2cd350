package tuio

import "time"

// Subscriber receives cursor lifecycle notifications synchronously.
// Handlers must not call back into the Manager.
type Subscriber interface {
	AddCursor(c Cursor)
	UpdateCursor(c Cursor)
	RemoveCursor(c Cursor)
	Refresh(frameTime time.Duration)
}

// SubscriberFuncs adapts optional callbacks to Subscriber. Nil callbacks are skipped.
type SubscriberFuncs struct {
	OnAdd     func(Cursor)
	OnUpdate  func(Cursor)
	OnRemove  func(Cursor)
	OnRefresh func(time.Duration)
}

var _ Subscriber = (*SubscriberFuncs)(nil)

func (f *SubscriberFuncs) AddCursor(c Cursor) {
	if f.OnAdd != nil {
		f.OnAdd(c)
	}
}

func (f *SubscriberFuncs) UpdateCursor(c Cursor) {
	if f.OnUpdate != nil {
		f.OnUpdate(c)
	}
}

func (f *SubscriberFuncs) RemoveCursor(c Cursor) {
	if f.OnRemove != nil {
		f.OnRemove(c)
	}
}

func (f *SubscriberFuncs) Refresh(frameTime time.Duration) {
	if f.OnRefresh != nil {
		f.OnRefresh(frameTime)
	}
}
