package protocol

import "errors"

var (
	ErrAddressMismatch  = errors.New("protocol: address mismatch")
	ErrEmptyMessage     = errors.New("protocol: message has no command argument")
	ErrUnknownCommand   = errors.New("protocol: unknown 2Dcur command")
	ErrArgumentMismatch = errors.New("protocol: argument type mismatch")
	ErrArgumentCount    = errors.New("protocol: wrong argument count")
	ErrMissingFseq      = errors.New("protocol: frame has no fseq message")
)
