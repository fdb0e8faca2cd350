package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	gotoml "github.com/pelletier/go-toml/v2"
)

// fileSettings is the on-disk shape. Durations are Go duration strings.
type fileSettings struct {
	Hooks   fileHooks   `toml:"hooks"`
	Network fileNetwork `toml:"network"`
	Screen  fileScreen  `toml:"screen"`
	TUIO    fileTUIO    `toml:"tuio"`
	Bridge  fileBridge  `toml:"bridge"`
	Service fileService `toml:"service"`
}

type fileHooks struct {
	UseGlobalHook bool `toml:"use_global_hook"`
}

type fileNetwork struct {
	Host         string `toml:"host"`
	UDPOnePort   int    `toml:"udp_one_port"`
	UDPTwoPort   int    `toml:"udp_two_port"`
	XMLPort      int    `toml:"xml_port"`
	UseUDPOne    bool   `toml:"use_udp_one"`
	UseUDPTwo    bool   `toml:"use_udp_two"`
	UseXML       bool   `toml:"use_xml"`
	XMLDelimiter string `toml:"xml_delimiter"`
}

type fileScreen struct {
	OffsetX  int  `toml:"offset_x"`
	OffsetY  int  `toml:"offset_y"`
	Width    int  `toml:"width"`
	Height   int  `toml:"height"`
	Mirrored bool `toml:"mirrored"`
}

type fileTUIO struct {
	Source         string `toml:"source"`
	FullUpdate     bool   `toml:"full_update"`
	PeriodicUpdate bool   `toml:"periodic_update"`
	UpdateInterval string `toml:"update_interval"`
	InvertX        bool   `toml:"invert_x"`
	InvertY        bool   `toml:"invert_y"`
}

type fileBridge struct {
	IdleTimeout  string `toml:"idle_timeout"`
	TickInterval string `toml:"tick_interval"`
}

type fileService struct {
	StatusAddr   string   `toml:"status_addr"`
	ControlAddr  string   `toml:"control_addr"`
	ControlToken string   `toml:"control_token"`
	Heartbeat    string   `toml:"heartbeat"`
	CorsOrigins  []string `toml:"cors_origins"`
}

// Load reads path over Defaults. Keys absent from the file keep their default.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	s, err := Parse(string(data))
	if err != nil {
		return Settings{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return s, nil
}

// Parse decodes TOML text over Defaults and validates the result.
func Parse(text string) (Settings, error) {
	cfg := Defaults()

	var raw fileSettings
	meta, err := toml.Decode(text, &raw)
	if err != nil {
		return Settings{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSettings, undecoded[0].String())
	}

	if meta.IsDefined("hooks", "use_global_hook") {
		cfg.Hooks.UseGlobalHook = raw.Hooks.UseGlobalHook
	}

	if meta.IsDefined("network", "host") {
		cfg.Network.Host = strings.TrimSpace(raw.Network.Host)
	}
	if meta.IsDefined("network", "udp_one_port") {
		cfg.Network.UDPOnePort = raw.Network.UDPOnePort
	}
	if meta.IsDefined("network", "udp_two_port") {
		cfg.Network.UDPTwoPort = raw.Network.UDPTwoPort
	}
	if meta.IsDefined("network", "xml_port") {
		cfg.Network.XMLPort = raw.Network.XMLPort
	}
	if meta.IsDefined("network", "use_udp_one") {
		cfg.Network.UseUDPOne = raw.Network.UseUDPOne
	}
	if meta.IsDefined("network", "use_udp_two") {
		cfg.Network.UseUDPTwo = raw.Network.UseUDPTwo
	}
	if meta.IsDefined("network", "use_xml") {
		cfg.Network.UseXML = raw.Network.UseXML
	}
	if meta.IsDefined("network", "xml_delimiter") {
		cfg.Network.XMLDelimiter = raw.Network.XMLDelimiter
	}

	if meta.IsDefined("screen", "offset_x") {
		cfg.Screen.OffsetX = raw.Screen.OffsetX
	}
	if meta.IsDefined("screen", "offset_y") {
		cfg.Screen.OffsetY = raw.Screen.OffsetY
	}
	if meta.IsDefined("screen", "width") {
		cfg.Screen.Width = raw.Screen.Width
	}
	if meta.IsDefined("screen", "height") {
		cfg.Screen.Height = raw.Screen.Height
	}
	if meta.IsDefined("screen", "mirrored") {
		cfg.Screen.Mirrored = raw.Screen.Mirrored
	}

	if meta.IsDefined("tuio", "source") {
		cfg.TUIO.Source = strings.TrimSpace(raw.TUIO.Source)
	}
	if meta.IsDefined("tuio", "full_update") {
		cfg.TUIO.FullUpdate = raw.TUIO.FullUpdate
	}
	if meta.IsDefined("tuio", "periodic_update") {
		cfg.TUIO.PeriodicUpdate = raw.TUIO.PeriodicUpdate
	}
	if meta.IsDefined("tuio", "update_interval") {
		if cfg.TUIO.UpdateInterval, err = parseDuration("tuio.update_interval", raw.TUIO.UpdateInterval); err != nil {
			return Settings{}, err
		}
	}
	if meta.IsDefined("tuio", "invert_x") {
		cfg.TUIO.InvertX = raw.TUIO.InvertX
	}
	if meta.IsDefined("tuio", "invert_y") {
		cfg.TUIO.InvertY = raw.TUIO.InvertY
	}

	if meta.IsDefined("bridge", "idle_timeout") {
		if cfg.Bridge.IdleTimeout, err = parseDuration("bridge.idle_timeout", raw.Bridge.IdleTimeout); err != nil {
			return Settings{}, err
		}
	}
	if meta.IsDefined("bridge", "tick_interval") {
		if cfg.Bridge.TickInterval, err = parseDuration("bridge.tick_interval", raw.Bridge.TickInterval); err != nil {
			return Settings{}, err
		}
	}

	if meta.IsDefined("service", "status_addr") {
		cfg.Service.StatusAddr = strings.TrimSpace(raw.Service.StatusAddr)
	}
	if meta.IsDefined("service", "control_addr") {
		cfg.Service.ControlAddr = strings.TrimSpace(raw.Service.ControlAddr)
	}
	if meta.IsDefined("service", "control_token") {
		cfg.Service.ControlToken = strings.TrimSpace(raw.Service.ControlToken)
	}
	if meta.IsDefined("service", "heartbeat") {
		if cfg.Service.Heartbeat, err = parseDuration("service.heartbeat", raw.Service.Heartbeat); err != nil {
			return Settings{}, err
		}
	}
	if meta.IsDefined("service", "cors_origins") {
		cfg.Service.CorsOrigins = normalizeList(raw.Service.CorsOrigins)
	}

	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func toFile(s Settings) fileSettings {
	return fileSettings{
		Hooks: fileHooks{UseGlobalHook: s.Hooks.UseGlobalHook},
		Network: fileNetwork{
			Host:         s.Network.Host,
			UDPOnePort:   s.Network.UDPOnePort,
			UDPTwoPort:   s.Network.UDPTwoPort,
			XMLPort:      s.Network.XMLPort,
			UseUDPOne:    s.Network.UseUDPOne,
			UseUDPTwo:    s.Network.UseUDPTwo,
			UseXML:       s.Network.UseXML,
			XMLDelimiter: s.Network.XMLDelimiter,
		},
		Screen: fileScreen(s.Screen),
		TUIO: fileTUIO{
			Source:         s.TUIO.Source,
			FullUpdate:     s.TUIO.FullUpdate,
			PeriodicUpdate: s.TUIO.PeriodicUpdate,
			UpdateInterval: s.TUIO.UpdateInterval.String(),
			InvertX:        s.TUIO.InvertX,
			InvertY:        s.TUIO.InvertY,
		},
		Bridge: fileBridge{
			IdleTimeout:  s.Bridge.IdleTimeout.String(),
			TickInterval: s.Bridge.TickInterval.String(),
		},
		Service: fileService{
			StatusAddr:   s.Service.StatusAddr,
			ControlAddr:  s.Service.ControlAddr,
			ControlToken: s.Service.ControlToken,
			Heartbeat:    s.Service.Heartbeat.String(),
			CorsOrigins:  s.Service.CorsOrigins,
		},
	}
}

// Encode renders s as TOML.
func Encode(s Settings) ([]byte, error) {
	out, err := gotoml.Marshal(toFile(s))
	if err != nil {
		return nil, fmt.Errorf("config encode failed: %w", err)
	}
	return out, nil
}

// WriteFile validates s and writes it to path.
func WriteFile(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
