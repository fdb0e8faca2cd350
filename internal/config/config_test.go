package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/touch2tuio/internal/server"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestParseOverlaysDefinedKeysOnly(t *testing.T) {
	s, err := Parse(`
[network]
host = "10.0.0.5"
use_udp_two = false

[screen]
width = 1280
mirrored = false

[tuio]
periodic_update = true
update_interval = "250ms"

[bridge]
idle_timeout = "1s"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d := Defaults()
	if s.Network.Host != "10.0.0.5" || s.Network.UseUDPTwo || !s.Network.UseUDPOne {
		t.Fatalf("network=%+v", s.Network)
	}
	if s.Network.UDPOnePort != d.Network.UDPOnePort || s.Network.XMLPort != d.Network.XMLPort {
		t.Fatalf("ports lost defaults: %+v", s.Network)
	}
	if s.Screen.Width != 1280 || s.Screen.Height != 1080 || s.Screen.Mirrored {
		t.Fatalf("screen=%+v", s.Screen)
	}
	if !s.TUIO.PeriodicUpdate || s.TUIO.UpdateInterval != 250*time.Millisecond {
		t.Fatalf("tuio=%+v", s.TUIO)
	}
	if s.Bridge.IdleTimeout != time.Second || s.Bridge.TickInterval != d.Bridge.TickInterval {
		t.Fatalf("bridge=%+v", s.Bridge)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"empty host":   "[network]\nhost = \"  \"\n",
		"port":         "[network]\nxml_port = 70000\n",
		"screen":       "[screen]\nheight = 0\n",
		"interval":     "[tuio]\nupdate_interval = \"0s\"\n",
		"unknown key":  "[network]\nhostname = \"x\"\n",
		"bad duration": "[bridge]\ntick_interval = \"soon\"\n",
	}
	for name, text := range cases {
		if _, err := Parse(text); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Parse("[screen]\nwidth = -5\n"); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	want := Defaults()
	want.Network.UseXML = false
	want.TUIO.InvertY = true
	want.Bridge.IdleTimeout = 450 * time.Millisecond
	want.Service.ControlToken = "s3cret"

	if err := WriteFile(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Network != want.Network || got.TUIO != want.TUIO || got.Bridge != want.Bridge || got.Screen != want.Screen {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, want)
	}
	if got.Service.ControlToken != "s3cret" || got.Service.ControlAddr != want.Service.ControlAddr {
		t.Fatalf("service round trip: %+v", got.Service)
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if !strings.HasPrefix(string(data), "# touch2tuio settings") || !strings.Contains(string(data), "udp_one_port = 3333") {
		t.Fatalf("template content:\n%s", data)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}

func TestConversions(t *testing.T) {
	s := Defaults()
	s.SetChannel(server.ChannelTCP, false)
	cfg := s.ServerConfig()
	if !cfg.EnableUDPOne || !cfg.EnableUDPTwo || cfg.EnableTCP || cfg.XMLPort != 3000 {
		t.Fatalf("server config=%+v", cfg)
	}
	screen := s.BridgeScreen()
	if screen.Width != 1920 || !screen.Mirrored {
		t.Fatalf("screen=%+v", screen)
	}
	if len(s.ListenerOptions()) != 3 {
		t.Fatalf("listener options")
	}
}

func TestDelimiterNames(t *testing.T) {
	cases := map[string]string{"nul": "\x00", "NEWLINE": "\n", "none": "", "tcp": "[/TCP]", "|": "|"}
	for name, want := range cases {
		n := NetworkSettings{XMLDelimiter: name}
		if got := string(n.Delimiter()); got != want {
			t.Fatalf("Delimiter(%q)=%q want=%q", name, got, want)
		}
	}
}
