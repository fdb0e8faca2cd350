package config

import (
	"github.com/danmuck/touch2tuio/internal/bridge"
	"github.com/danmuck/touch2tuio/internal/server"
)

// BridgeScreen converts screen settings for the input bridge.
func (s Settings) BridgeScreen() bridge.Screen {
	return bridge.Screen{
		OffsetX:  s.Screen.OffsetX,
		OffsetY:  s.Screen.OffsetY,
		Width:    s.Screen.Width,
		Height:   s.Screen.Height,
		Mirrored: s.Screen.Mirrored,
	}
}

// ServerConfig fills the encoding and channel flags of a server.Config.
// Transports, clock and observer are left to the caller.
func (s Settings) ServerConfig() server.Config {
	return server.Config{
		EnableUDPOne:   s.Network.UseUDPOne,
		EnableUDPTwo:   s.Network.UseUDPTwo,
		EnableTCP:      s.Network.UseXML,
		FullUpdate:     s.TUIO.FullUpdate,
		PeriodicUpdate: s.TUIO.PeriodicUpdate,
		UpdateInterval: s.TUIO.UpdateInterval,
		InvertX:        s.TUIO.InvertX,
		InvertY:        s.TUIO.InvertY,
		XMLPort:        s.Network.XMLPort,
	}
}

// ListenerOptions converts bridge timing settings. Periodic updates need
// quiet frames, so they also turn on the listener keepalive.
func (s Settings) ListenerOptions() []bridge.Option {
	return []bridge.Option{
		bridge.WithIdleTimeout(s.Bridge.IdleTimeout),
		bridge.WithTickInterval(s.Bridge.TickInterval),
		bridge.WithKeepalive(s.TUIO.PeriodicUpdate),
	}
}

// SetChannel records a channel toggle so it survives a save.
func (s *Settings) SetChannel(ch server.Channel, on bool) {
	switch ch {
	case server.ChannelUDPOne:
		s.Network.UseUDPOne = on
	case server.ChannelUDPTwo:
		s.Network.UseUDPTwo = on
	case server.ChannelTCP:
		s.Network.UseXML = on
	}
}
