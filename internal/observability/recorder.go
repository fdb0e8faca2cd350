package observability

import (
	"sync/atomic"
	"time"

	"github.com/danmuck/touch2tuio/internal/server"
	"github.com/danmuck/touch2tuio/internal/tuio"
)

// Recorder feeds engine activity into Prometheus. Register it as a
// tuio.Subscriber and pass it as the server.Observer.
type Recorder struct {
	active atomic.Int64
}

var (
	_ tuio.Subscriber = (*Recorder)(nil)
	_ server.Observer = (*Recorder)(nil)
)

func NewRecorder() *Recorder {
	RegisterMetrics()
	return &Recorder{}
}

func (r *Recorder) AddCursor(tuio.Cursor) {
	RecordCursorEvent("add")
	SetActiveCursors(int(r.active.Add(1)))
}

func (r *Recorder) UpdateCursor(tuio.Cursor) {
	RecordCursorEvent("update")
}

func (r *Recorder) RemoveCursor(tuio.Cursor) {
	RecordCursorEvent("remove")
	SetActiveCursors(int(r.active.Add(-1)))
}

func (r *Recorder) Refresh(time.Duration) {}

func (r *Recorder) FrameCommitted(fseq int64, dirty bool) {
	RecordFrame(fseq, dirty)
}

func (r *Recorder) BundleSent(ch server.Channel) {
	RecordBundleSent(ch.String())
}

func (r *Recorder) SendFailed(ch server.Channel, _ error) {
	RecordSendError(ch.String())
}

// Active returns the cursor count seen through notifications.
func (r *Recorder) Active() int64 {
	return r.active.Load()
}
