package server

import (
	"errors"
	"fmt"
	"strings"
)

// Channel identifies one outbound transport.
type Channel int

const (
	ChannelUDPOne Channel = iota
	ChannelUDPTwo
	ChannelTCP
	channelCount
)

var ErrUnknownChannel = errors.New("server: unknown channel")

// Channels lists every channel in dispatch order.
func Channels() []Channel {
	return []Channel{ChannelUDPOne, ChannelUDPTwo, ChannelTCP}
}

func (c Channel) String() string {
	switch c {
	case ChannelUDPOne:
		return "udp1"
	case ChannelUDPTwo:
		return "udp2"
	case ChannelTCP:
		return "tcp"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

func (c Channel) valid() bool {
	return c >= ChannelUDPOne && c < channelCount
}

// ParseChannel accepts the String form of a channel.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "udp1", "udp_one", "udp-one":
		return ChannelUDPOne, nil
	case "udp2", "udp_two", "udp-two":
		return ChannelUDPTwo, nil
	case "tcp", "xml", "flash":
		return ChannelTCP, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
}

// ChannelStatus is a point-in-time view of one channel.
type ChannelStatus struct {
	Channel string `json:"channel"`
	Enabled bool   `json:"enabled"`
	Running bool   `json:"running"`
}
