package bridge

import (
	"errors"
	"fmt"
)

var ErrInvalidScreen = errors.New("bridge: screen extent must be positive")

// Screen describes the touch surface in raw device pixels. Mirrored screens map
// raw x directly; side-by-side screens sit one Width to the right of the origin.
type Screen struct {
	OffsetX  int  `json:"offset_x"`
	OffsetY  int  `json:"offset_y"`
	Width    int  `json:"width"`
	Height   int  `json:"height"`
	Mirrored bool `json:"mirrored"`
}

func (s Screen) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidScreen, s.Width, s.Height)
	}
	if s.Width+s.OffsetX == 0 || s.Height+s.OffsetY == 0 {
		return fmt.Errorf("%w: offset cancels extent", ErrInvalidScreen)
	}
	return nil
}

// ScaledX normalizes a raw x coordinate.
func (s Screen) ScaledX(rawX float64) float64 {
	x := rawX + float64(s.OffsetX)
	if !s.Mirrored {
		x -= float64(s.Width)
	}
	return x / float64(s.Width+s.OffsetX)
}

// ScaledY normalizes a raw y coordinate.
func (s Screen) ScaledY(rawY float64) float64 {
	return (rawY + float64(s.OffsetY)) / float64(s.Height+s.OffsetY)
}

// RawX is the inverse of ScaledX.
func (s Screen) RawX(x float64) float64 {
	raw := x*float64(s.Width+s.OffsetX) - float64(s.OffsetX)
	if !s.Mirrored {
		raw += float64(s.Width)
	}
	return raw
}

// RawY is the inverse of ScaledY.
func (s Screen) RawY(y float64) float64 {
	return y*float64(s.Height+s.OffsetY) - float64(s.OffsetY)
}

func (s Screen) String() string {
	return fmt.Sprintf("offset=(%d, %d) size=%dx%d mirrored=%t", s.OffsetX, s.OffsetY, s.Width, s.Height, s.Mirrored)
}
