package xmlosc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/danmuck/touch2tuio/internal/protocol"
)

var (
	ErrUnsupportedArg = errors.New("xmlosc: unsupported argument type")
	ErrMalformed      = errors.New("xmlosc: malformed document")
)

// Packet is one <OSCPACKET> document.
type Packet struct {
	Address  string
	Port     int
	Time     float32
	Messages []protocol.Message
}

// PacketTime converts a frame time to the seconds value carried in TIME.
func PacketTime(frameTime time.Duration) float32 {
	return float32(frameTime.Milliseconds()) / 1000
}

// FormatFloat renders v with six significant digits and no trailing zeros.
func FormatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', 6, 32)
}

// Append writes the encoded packet to dst.
func (p Packet) Append(dst []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	buf.WriteString(`<OSCPACKET ADDRESS="`)
	escape(buf, p.Address)
	buf.WriteString(`" PORT="`)
	buf.WriteString(strconv.Itoa(p.Port))
	buf.WriteString(`" TIME="`)
	buf.WriteString(FormatFloat(p.Time))
	buf.WriteString(`">`)
	for _, msg := range p.Messages {
		buf.WriteString(`<MESSAGE NAME="`)
		escape(buf, msg.Address)
		buf.WriteString(`">`)
		for _, a := range msg.Args {
			buf.WriteString(`<ARGUMENT TYPE="`)
			buf.WriteByte(byte(a.Type))
			buf.WriteString(`" VALUE="`)
			switch a.Type {
			case protocol.TypeInt32:
				buf.WriteString(strconv.FormatInt(int64(a.Int), 10))
			case protocol.TypeFloat32:
				buf.WriteString(FormatFloat(a.Float))
			case protocol.TypeString:
				escape(buf, a.String)
			default:
				return dst, fmt.Errorf("%w: %q", ErrUnsupportedArg, byte(a.Type))
			}
			buf.WriteString(`"/>`)
		}
		buf.WriteString(`</MESSAGE>`)
	}
	buf.WriteString(`</OSCPACKET>`)
	return buf.Bytes(), nil
}

// Encode returns the packet as a standalone document.
func (p Packet) Encode() ([]byte, error) {
	return p.Append(nil)
}

func escape(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}

type xmlPacket struct {
	XMLName  xml.Name     `xml:"OSCPACKET"`
	Address  string       `xml:"ADDRESS,attr"`
	Port     string       `xml:"PORT,attr"`
	Time     string       `xml:"TIME,attr"`
	Messages []xmlMessage `xml:"MESSAGE"`
}

type xmlMessage struct {
	Name string        `xml:"NAME,attr"`
	Args []xmlArgument `xml:"ARGUMENT"`
}

type xmlArgument struct {
	Type  string `xml:"TYPE,attr"`
	Value string `xml:"VALUE,attr"`
}

// Parse decodes one document. Trailing frame delimiters are ignored.
func Parse(data []byte) (Packet, error) {
	data = bytes.TrimRight(data, "\x00\r\n ")
	var raw xmlPacket
	if err := xml.Unmarshal(data, &raw); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	port, err := strconv.Atoi(raw.Port)
	if err != nil {
		return Packet{}, fmt.Errorf("%w: port %q", ErrMalformed, raw.Port)
	}
	ts, err := strconv.ParseFloat(raw.Time, 32)
	if err != nil {
		return Packet{}, fmt.Errorf("%w: time %q", ErrMalformed, raw.Time)
	}

	p := Packet{Address: raw.Address, Port: port, Time: float32(ts)}
	for _, m := range raw.Messages {
		msg := protocol.Message{Address: m.Name, Args: make([]protocol.Arg, 0, len(m.Args))}
		for _, a := range m.Args {
			arg, err := parseArg(a)
			if err != nil {
				return Packet{}, err
			}
			msg.Args = append(msg.Args, arg)
		}
		p.Messages = append(p.Messages, msg)
	}
	return p, nil
}

func parseArg(a xmlArgument) (protocol.Arg, error) {
	if len(a.Type) != 1 {
		return protocol.Arg{}, fmt.Errorf("%w: %q", ErrUnsupportedArg, a.Type)
	}
	switch protocol.ArgType(a.Type[0]) {
	case protocol.TypeInt32:
		v, err := strconv.ParseInt(a.Value, 10, 32)
		if err != nil {
			return protocol.Arg{}, fmt.Errorf("%w: int %q", ErrMalformed, a.Value)
		}
		return protocol.Int(int32(v)), nil
	case protocol.TypeFloat32:
		v, err := strconv.ParseFloat(a.Value, 32)
		if err != nil {
			return protocol.Arg{}, fmt.Errorf("%w: float %q", ErrMalformed, a.Value)
		}
		return protocol.Float(float32(v)), nil
	case protocol.TypeString:
		return protocol.String(a.Value), nil
	default:
		return protocol.Arg{}, fmt.Errorf("%w: %q", ErrUnsupportedArg, a.Type)
	}
}
