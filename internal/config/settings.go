package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidSettings = errors.New("config: invalid settings")

// Settings is the full runtime configuration of touch2tuio.
type Settings struct {
	Hooks   HooksSettings
	Network NetworkSettings
	Screen  ScreenSettings
	TUIO    TUIOSettings
	Bridge  BridgeSettings
	Service ServiceSettings
}

type HooksSettings struct {
	UseGlobalHook bool
}

type NetworkSettings struct {
	Host         string
	UDPOnePort   int
	UDPTwoPort   int
	XMLPort      int
	UseUDPOne    bool
	UseUDPTwo    bool
	UseXML       bool
	XMLDelimiter string
}

type ScreenSettings struct {
	OffsetX  int
	OffsetY  int
	Width    int
	Height   int
	Mirrored bool
}

type TUIOSettings struct {
	Source         string
	FullUpdate     bool
	PeriodicUpdate bool
	UpdateInterval time.Duration
	InvertX        bool
	InvertY        bool
}

type BridgeSettings struct {
	IdleTimeout  time.Duration
	TickInterval time.Duration
}

// ServiceSettings configures the diagnostics and control endpoints. A
// non-empty ControlToken must accompany every control request.
type ServiceSettings struct {
	StatusAddr   string
	ControlAddr  string
	ControlToken string
	Heartbeat    time.Duration
	CorsOrigins  []string
}

// Defaults mirrors the stock TouchHooks2Tuio settings file.
func Defaults() Settings {
	return Settings{
		Hooks: HooksSettings{UseGlobalHook: false},
		Network: NetworkSettings{
			Host:         "127.0.0.1",
			UDPOnePort:   3333,
			UDPTwoPort:   3334,
			XMLPort:      3000,
			UseUDPOne:    true,
			UseUDPTwo:    true,
			UseXML:       true,
			XMLDelimiter: DelimiterNUL,
		},
		Screen: ScreenSettings{
			Width:    1920,
			Height:   1080,
			Mirrored: true,
		},
		TUIO: TUIOSettings{
			Source:         "touch2tuio",
			UpdateInterval: time.Second,
		},
		Bridge: BridgeSettings{
			IdleTimeout:  300 * time.Millisecond,
			TickInterval: 100 * time.Millisecond,
		},
		Service: ServiceSettings{
			StatusAddr:  "127.0.0.1:9330",
			ControlAddr: "127.0.0.1:9331",
			Heartbeat:   30 * time.Second,
			CorsOrigins: []string{"http://localhost:3000"},
		},
	}
}

// Named frame delimiters for network.xml_delimiter. Any other value is used literally.
const (
	DelimiterNUL     = "nul"
	DelimiterNewline = "newline"
	DelimiterNone    = "none"
	DelimiterTCP     = "tcp"
)

// Delimiter resolves XMLDelimiter to the bytes written after each XML packet.
func (n NetworkSettings) Delimiter() []byte {
	switch strings.ToLower(strings.TrimSpace(n.XMLDelimiter)) {
	case DelimiterNUL:
		return []byte{0}
	case DelimiterNewline:
		return []byte("\n")
	case DelimiterNone, "":
		return nil
	case DelimiterTCP:
		return []byte("[/TCP]")
	default:
		return []byte(n.XMLDelimiter)
	}
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.Network.Host) == "" {
		errs = append(errs, errors.New("network.host is required"))
	}
	for name, port := range map[string]int{
		"network.udp_one_port": s.Network.UDPOnePort,
		"network.udp_two_port": s.Network.UDPTwoPort,
		"network.xml_port":     s.Network.XMLPort,
	} {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s out of range: %d", name, port))
		}
	}
	if s.Screen.Width <= 0 || s.Screen.Height <= 0 {
		errs = append(errs, fmt.Errorf("screen size must be positive: %dx%d", s.Screen.Width, s.Screen.Height))
	} else if s.Screen.Width+s.Screen.OffsetX == 0 || s.Screen.Height+s.Screen.OffsetY == 0 {
		errs = append(errs, errors.New("screen offset cancels screen size"))
	}
	if s.TUIO.UpdateInterval <= 0 {
		errs = append(errs, errors.New("tuio.update_interval must be positive"))
	}
	if s.Bridge.IdleTimeout <= 0 {
		errs = append(errs, errors.New("bridge.idle_timeout must be positive"))
	}
	if s.Bridge.TickInterval <= 0 {
		errs = append(errs, errors.New("bridge.tick_interval must be positive"))
	}
	if s.Service.Heartbeat < 0 {
		errs = append(errs, errors.New("service.heartbeat must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}
