package osc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/danmuck/touch2tuio/internal/protocol"
)

const (
	// BundleTag opens every OSC bundle.
	BundleTag = "#bundle"
	// BundleHeaderLen is the padded bundle tag plus the 64-bit timetag.
	BundleHeaderLen = 16
	// ElementSizeLen prefixes every bundle element.
	ElementSizeLen = 4
	// TimetagImmediate asks the receiver to process the bundle on arrival.
	TimetagImmediate uint64 = 1
)

var (
	ErrUnsupportedArg = errors.New("osc: unsupported argument type")
	ErrTruncated      = errors.New("osc: truncated data")
	ErrNotBundle      = errors.New("osc: missing #bundle tag")
	ErrBadString      = errors.New("osc: unterminated or misaligned string")
	ErrBadTypeTags    = errors.New("osc: type tag string must start with ','")
	ErrBadElementSize = errors.New("osc: invalid bundle element size")
)

// Bundle is one decoded OSC bundle. Nested bundles are flattened into Messages.
type Bundle struct {
	Timetag  uint64
	Messages []protocol.Message
}

// paddedLen returns the 4-byte aligned length of an OSC string including its terminator.
func paddedLen(s string) int {
	return (len(s) + 4) &^ 3
}

// MessageSize returns the encoded size of msg without the bundle element prefix.
func MessageSize(msg protocol.Message) (int, error) {
	n := paddedLen(msg.Address) + paddedLen(","+msg.TypeTags())
	for _, a := range msg.Args {
		switch a.Type {
		case protocol.TypeInt32, protocol.TypeFloat32:
			n += 4
		case protocol.TypeString:
			n += paddedLen(a.String)
		default:
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedArg, byte(a.Type))
		}
	}
	return n, nil
}

// AppendMessage appends the binary encoding of msg to dst.
func AppendMessage(dst []byte, msg protocol.Message) ([]byte, error) {
	if _, err := MessageSize(msg); err != nil {
		return dst, err
	}
	dst = appendString(dst, msg.Address)
	dst = appendString(dst, ","+msg.TypeTags())
	for _, a := range msg.Args {
		switch a.Type {
		case protocol.TypeInt32:
			dst = binary.BigEndian.AppendUint32(dst, uint32(a.Int))
		case protocol.TypeFloat32:
			dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(a.Float))
		case protocol.TypeString:
			dst = appendString(dst, a.String)
		}
	}
	return dst, nil
}

// EncodeMessage returns the binary encoding of msg.
func EncodeMessage(msg protocol.Message) ([]byte, error) {
	return AppendMessage(nil, msg)
}

func appendString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	pad := paddedLen(s) - len(s)
	for i := 0; i < pad; i++ {
		dst = append(dst, 0)
	}
	return dst
}

func appendBundleHeader(dst []byte, timetag uint64) []byte {
	dst = appendString(dst, BundleTag)
	return binary.BigEndian.AppendUint64(dst, timetag)
}

// ParseBundle decodes an OSC bundle.
func ParseBundle(b []byte) (Bundle, error) {
	if len(b) < BundleHeaderLen {
		return Bundle{}, ErrTruncated
	}
	tag, _, err := readString(b, 0)
	if err != nil || tag != BundleTag {
		return Bundle{}, ErrNotBundle
	}
	out := Bundle{Timetag: binary.BigEndian.Uint64(b[8:16])}
	i := BundleHeaderLen
	for i < len(b) {
		if len(b)-i < ElementSizeLen {
			return Bundle{}, ErrTruncated
		}
		size := int(binary.BigEndian.Uint32(b[i : i+ElementSizeLen]))
		i += ElementSizeLen
		if size <= 0 || size%4 != 0 || size > len(b)-i {
			return Bundle{}, ErrBadElementSize
		}
		elem := b[i : i+size]
		i += size
		if strings.HasPrefix(string(elem), BundleTag) {
			nested, err := ParseBundle(elem)
			if err != nil {
				return Bundle{}, err
			}
			out.Messages = append(out.Messages, nested.Messages...)
			continue
		}
		msg, err := ParseMessage(elem)
		if err != nil {
			return Bundle{}, err
		}
		out.Messages = append(out.Messages, msg)
	}
	return out, nil
}

// ParseMessage decodes one OSC message.
func ParseMessage(b []byte) (protocol.Message, error) {
	addr, i, err := readString(b, 0)
	if err != nil {
		return protocol.Message{}, err
	}
	tags, i, err := readString(b, i)
	if err != nil {
		return protocol.Message{}, err
	}
	if !strings.HasPrefix(tags, ",") {
		return protocol.Message{}, ErrBadTypeTags
	}

	msg := protocol.Message{Address: addr, Args: make([]protocol.Arg, 0, len(tags)-1)}
	for _, tag := range []byte(tags[1:]) {
		switch protocol.ArgType(tag) {
		case protocol.TypeInt32:
			if len(b)-i < 4 {
				return protocol.Message{}, ErrTruncated
			}
			msg.Args = append(msg.Args, protocol.Int(int32(binary.BigEndian.Uint32(b[i:i+4]))))
			i += 4
		case protocol.TypeFloat32:
			if len(b)-i < 4 {
				return protocol.Message{}, ErrTruncated
			}
			msg.Args = append(msg.Args, protocol.Float(math.Float32frombits(binary.BigEndian.Uint32(b[i:i+4]))))
			i += 4
		case protocol.TypeString:
			s, next, err := readString(b, i)
			if err != nil {
				return protocol.Message{}, err
			}
			msg.Args = append(msg.Args, protocol.String(s))
			i = next
		default:
			return protocol.Message{}, fmt.Errorf("%w: %q", ErrUnsupportedArg, tag)
		}
	}
	return msg, nil
}

func readString(b []byte, start int) (string, int, error) {
	if start >= len(b) {
		return "", start, ErrTruncated
	}
	end := start
	for end < len(b) && b[end] != 0 {
		end++
	}
	if end == len(b) {
		return "", start, ErrBadString
	}
	s := string(b[start:end])
	next := start + paddedLen(s)
	if next > len(b) {
		return "", start, ErrBadString
	}
	return s, next, nil
}
