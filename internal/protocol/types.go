package protocol

// CursorAddress is the OSC address of the 2D cursor profile.
const CursorAddress = "/tuio/2Dcur"

// 2Dcur command names carried as the first string argument.
const (
	CommandSource = "source"
	CommandAlive  = "alive"
	CommandSet    = "set"
	CommandFseq   = "fseq"
)

// ArgType is an OSC type tag.
type ArgType byte

const (
	TypeInt32   ArgType = 'i'
	TypeFloat32 ArgType = 'f'
	TypeString  ArgType = 's'
)

func (t ArgType) String() string {
	return string(rune(t))
}

// Arg is one typed OSC argument.
type Arg struct {
	Type   ArgType
	Int    int32
	Float  float32
	String string
}

// Message is one OSC message independent of its wire encoding.
type Message struct {
	Address string
	Args    []Arg
}

// TypeTags returns the OSC type tag string without the leading comma.
func (m Message) TypeTags() string {
	tags := make([]byte, len(m.Args))
	for i, a := range m.Args {
		tags[i] = byte(a.Type)
	}
	return string(tags)
}

// Command returns the leading string argument, if any.
func (m Message) Command() (string, bool) {
	if len(m.Args) == 0 || m.Args[0].Type != TypeString {
		return "", false
	}
	return m.Args[0].String, true
}
