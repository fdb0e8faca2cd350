package protocol

import "fmt"

// CursorFrame is the decoded content of one bundle.
type CursorFrame struct {
	Source   string
	HasAlive bool
	Alive    []int32
	Sets     []CursorSet
	Fseq     int32
}

// DecodeCursorFrame validates a bundle's messages against the 2Dcur profile.
func DecodeCursorFrame(msgs []Message) (CursorFrame, error) {
	var (
		frame    CursorFrame
		haveFseq bool
	)
	for i, msg := range msgs {
		if msg.Address != CursorAddress {
			return CursorFrame{}, fmt.Errorf("%w: message %d address %q", ErrAddressMismatch, i, msg.Address)
		}
		cmd, ok := msg.Command()
		if !ok {
			return CursorFrame{}, fmt.Errorf("%w: message %d", ErrEmptyMessage, i)
		}
		args := msg.Args[1:]
		switch cmd {
		case CommandSource:
			if err := expectTypes(args, TypeString); err != nil {
				return CursorFrame{}, fmt.Errorf("source: %w", err)
			}
			frame.Source = args[0].String
		case CommandAlive:
			frame.HasAlive = true
			frame.Alive = make([]int32, 0, len(args))
			for _, a := range args {
				if a.Type != TypeInt32 {
					return CursorFrame{}, fmt.Errorf("alive: %w: got %s", ErrArgumentMismatch, a.Type)
				}
				frame.Alive = append(frame.Alive, a.Int)
			}
		case CommandSet:
			if err := expectTypes(args, TypeInt32, TypeFloat32, TypeFloat32, TypeFloat32, TypeFloat32, TypeFloat32); err != nil {
				return CursorFrame{}, fmt.Errorf("set: %w", err)
			}
			frame.Sets = append(frame.Sets, CursorSet{
				SessionID:   args[0].Int,
				X:           args[1].Float,
				Y:           args[2].Float,
				XSpeed:      args[3].Float,
				YSpeed:      args[4].Float,
				MotionAccel: args[5].Float,
			})
		case CommandFseq:
			if err := expectTypes(args, TypeInt32); err != nil {
				return CursorFrame{}, fmt.Errorf("fseq: %w", err)
			}
			frame.Fseq = args[0].Int
			haveFseq = true
		default:
			return CursorFrame{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
		}
	}
	if !haveFseq {
		return CursorFrame{}, ErrMissingFseq
	}
	return frame, nil
}

func expectTypes(args []Arg, types ...ArgType) error {
	if len(args) != len(types) {
		return fmt.Errorf("%w: got %d want %d", ErrArgumentCount, len(args), len(types))
	}
	for i, want := range types {
		if args[i].Type != want {
			return fmt.Errorf("%w: arg %d got %s want %s", ErrArgumentMismatch, i, args[i].Type, want)
		}
	}
	return nil
}
