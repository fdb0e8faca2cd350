package tuio

import (
	"math"
	"time"
)

// MovementState is the coarse motion classification of a cursor.
type MovementState int

const (
	Stationary MovementState = iota
	Moving
)

func (s MovementState) String() string {
	if s == Moving {
		return "moving"
	}
	return "stationary"
}

func (s MovementState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// motionEpsilon is the speed (normalized units per second) below which a cursor is at rest.
const motionEpsilon = 1e-6

// Cursor is a point-in-time view of one active touch point.
type Cursor struct {
	SessionID   int64         `json:"session_id"`
	CursorID    int           `json:"cursor_id"`
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
	XSpeed      float64       `json:"x_speed"`
	YSpeed      float64       `json:"y_speed"`
	MotionSpeed float64       `json:"motion_speed"`
	MotionAccel float64       `json:"motion_accel"`
	Time        time.Duration `json:"time"`
	State       MovementState `json:"state"`
}

// IsMoving reports whether the last update carried non-negligible motion.
func (c Cursor) IsMoving() bool {
	return c.State == Moving
}

// Distance is the Euclidean distance to (x, y) in normalized coordinates.
func (c Cursor) Distance(x, y float64) float64 {
	return math.Hypot(c.X-x, c.Y-y)
}

// cursorRecord is the mutable registry entry behind a Cursor.
type cursorRecord struct {
	Cursor
	removed bool
}

func newCursorRecord(t time.Duration, sessionID int64, cursorID int, x, y float64) *cursorRecord {
	return &cursorRecord{Cursor: Cursor{
		SessionID: sessionID,
		CursorID:  cursorID,
		X:         x,
		Y:         y,
		Time:      t,
		State:     Stationary,
	}}
}

// update recomputes velocity and acceleration from the previous sample.
func (r *cursorRecord) update(t time.Duration, x, y float64) {
	dt := (t - r.Time).Seconds()
	dx := x - r.X
	dy := y - r.Y
	lastSpeed := r.MotionSpeed

	r.X = x
	r.Y = y
	r.Time = t
	if dt <= 0 {
		r.XSpeed, r.YSpeed, r.MotionSpeed, r.MotionAccel = 0, 0, 0, 0
		r.State = Stationary
		return
	}

	r.XSpeed = dx / dt
	r.YSpeed = dy / dt
	r.MotionSpeed = math.Hypot(dx, dy) / dt
	r.MotionAccel = (r.MotionSpeed - lastSpeed) / dt
	if r.MotionSpeed > motionEpsilon {
		r.State = Moving
	} else {
		r.State = Stationary
	}
}

// stop samples the current position again at t, which zeroes velocity.
func (r *cursorRecord) stop(t time.Duration) {
	r.update(t, r.X, r.Y)
	r.XSpeed, r.YSpeed, r.MotionSpeed = 0, 0, 0
	r.State = Stationary
}

func (r *cursorRecord) snapshot() Cursor {
	return r.Cursor
}
