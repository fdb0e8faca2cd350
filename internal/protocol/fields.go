package protocol

// Int creates an int32 argument.
func Int(v int32) Arg {
	return Arg{Type: TypeInt32, Int: v}
}

// Float creates a float32 argument.
func Float(v float32) Arg {
	return Arg{Type: TypeFloat32, Float: v}
}

// String creates a string argument.
func String(v string) Arg {
	return Arg{Type: TypeString, String: v}
}

// NewMessage builds a message for address with args.
func NewMessage(address string, args ...Arg) Message {
	return Message{Address: address, Args: args}
}
