// Package hookinput turns global mouse hook events into pointer events, so a
// mouse can stand in for a single touch point.
package hookinput

import (
	"context"
	"errors"
	"sync"

	"github.com/danmuck/touch2tuio/internal/bridge"
	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog/log"
)

// PointerID is the pointer id reported for the hooked mouse.
const PointerID uint32 = 0

var ErrAlreadyRunning = errors.New("hookinput: source already running")

// Handler consumes translated pointer events. Mapped reports whether a
// pointer is still down on the handler side.
type Handler interface {
	Handle(bridge.PointerEvent)
	Mapped(id uint32) bool
}

// Translator is the press/drag/release state machine for one mouse button.
// gohook reports a press as MouseHold and the matching release as MouseDown.
type Translator struct {
	Button uint16
	down   bool
}

// NewTranslator follows the left mouse button.
func NewTranslator() *Translator {
	return &Translator{Button: hook.MouseMap["left"]}
}

// Translate returns the pointer event for ev, if any.
func (t *Translator) Translate(ev hook.Event) (bridge.PointerEvent, bool) {
	pe := bridge.PointerEvent{PointerID: PointerID, X: float64(ev.X), Y: float64(ev.Y)}
	switch ev.Kind {
	case hook.MouseHold:
		if ev.Button != t.Button || t.down {
			return pe, false
		}
		t.down = true
		pe.Kind = bridge.PointerDown
		return pe, true
	case hook.MouseDrag, hook.MouseMove:
		if !t.down {
			return pe, false
		}
		pe.Kind = bridge.PointerUpdate
		return pe, true
	case hook.MouseDown:
		if ev.Button != t.Button || !t.down {
			return pe, false
		}
		t.down = false
		pe.Kind = bridge.PointerUp
		return pe, true
	default:
		return pe, false
	}
}

// Down reports whether the followed button is pressed.
func (t *Translator) Down() bool {
	return t.down
}

// Source owns the process-wide hook. Only one Source may run at a time.
type Source struct {
	handler Handler

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(handler Handler) *Source {
	return &Source{handler: handler}
}

// Run installs the hook and forwards events until ctx is done or Release is called.
func (s *Source) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}()

	events := hook.Start()
	defer hook.End()
	log.Info().Msg("hookinput.Source hook installed")
	return s.forward(ctx, events)
}

func (s *Source) forward(ctx context.Context, events <-chan hook.Event) error {
	tr := NewTranslator()
	for {
		select {
		case <-ctx.Done():
			if tr.Down() {
				s.handler.Handle(bridge.PointerEvent{Kind: bridge.PointerUp, PointerID: PointerID})
			}
			log.Info().Msg("hookinput.Source hook released")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.dispatch(tr, ev)
		}
	}
}

// dispatch forwards the translation of ev. gohook is silent while the mouse
// holds still, so the reaper may lift a pointer whose button is still down;
// the next drag presses it again.
func (s *Source) dispatch(tr *Translator, ev hook.Event) {
	pe, ok := tr.Translate(ev)
	if !ok {
		return
	}
	if pe.Kind == bridge.PointerUpdate && !s.handler.Mapped(pe.PointerID) {
		log.Debug().Uint32("pointer_id", pe.PointerID).Msg("hookinput.Source pressing reaped pointer again")
		pe.Kind = bridge.PointerDown
	}
	s.handler.Handle(pe)
}

// Release stops a running Source. It reports whether a hook was active.
func (s *Source) Release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Running reports whether the hook is installed.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
