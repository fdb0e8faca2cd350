package protocol

// CursorSet is the payload of one /tuio/2Dcur set message.
type CursorSet struct {
	SessionID   int32
	X           float32
	Y           float32
	XSpeed      float32
	YSpeed      float32
	MotionAccel float32
}

// Inverted returns s mirrored on the requested axes: x' = 1-x, vx' = -vx.
func (s CursorSet) Inverted(invertX, invertY bool) CursorSet {
	if invertX {
		s.X = 1 - s.X
		s.XSpeed = -s.XSpeed
	}
	if invertY {
		s.Y = 1 - s.Y
		s.YSpeed = -s.YSpeed
	}
	return s
}

// SourceMessage identifies the sending application.
func SourceMessage(name string) Message {
	return NewMessage(CursorAddress, String(CommandSource), String(name))
}

// AliveMessage lists the session ids of every active cursor.
func AliveMessage(sessionIDs []int32) Message {
	args := make([]Arg, 0, len(sessionIDs)+1)
	args = append(args, String(CommandAlive))
	for _, id := range sessionIDs {
		args = append(args, Int(id))
	}
	return Message{Address: CursorAddress, Args: args}
}

// SetMessage carries one cursor's position and motion.
func SetMessage(s CursorSet) Message {
	return NewMessage(CursorAddress,
		String(CommandSet),
		Int(s.SessionID),
		Float(s.X),
		Float(s.Y),
		Float(s.XSpeed),
		Float(s.YSpeed),
		Float(s.MotionAccel),
	)
}

// FseqMessage closes a bundle with the frame sequence number.
func FseqMessage(fseq int32) Message {
	return NewMessage(CursorAddress, String(CommandFseq), Int(fseq))
}
