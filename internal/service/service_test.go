package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/touch2tuio/internal/bridge"
	"github.com/danmuck/touch2tuio/internal/config"
	"github.com/danmuck/touch2tuio/internal/protocol"
	"github.com/danmuck/touch2tuio/internal/protocol/osc"
	"github.com/danmuck/touch2tuio/internal/protocol/xmlosc"
	"github.com/danmuck/touch2tuio/internal/server"
	"github.com/danmuck/touch2tuio/internal/testutil/testlog"
)

type testRig struct {
	svc    *Service
	udpOne *net.UDPConn
	udpTwo *net.UDPConn
	cancel context.CancelFunc
	done   chan error
}

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen tcp: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func newTestSettings(t *testing.T, udpOne, udpTwo *net.UDPConn) config.Settings {
	t.Helper()
	s := config.Defaults()
	s.Network.Host = "127.0.0.1"
	s.Network.UDPOnePort = udpOne.LocalAddr().(*net.UDPAddr).Port
	s.Network.UDPTwoPort = udpTwo.LocalAddr().(*net.UDPAddr).Port
	s.Network.XMLPort = freeTCPPort(t)
	s.Network.UseUDPTwo = false
	s.TUIO.Source = "test"
	s.TUIO.PeriodicUpdate = false
	s.Bridge.IdleTimeout = time.Hour
	s.Service.StatusAddr = "127.0.0.1:0"
	s.Service.ControlAddr = "127.0.0.1:0"
	s.Service.Heartbeat = 0
	return s
}

func startRig(t *testing.T, configPath string, adjust func(*config.Settings), opts ...Option) *testRig {
	t.Helper()
	testlog.Start(t)
	rig := &testRig{udpOne: listenUDP(t), udpTwo: listenUDP(t), done: make(chan error, 1)}
	settings := newTestSettings(t, rig.udpOne, rig.udpTwo)
	if adjust != nil {
		adjust(&settings)
	}
	rig.svc = New(settings, configPath, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	rig.cancel = cancel
	go func() { rig.done <- rig.svc.RunContext(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for !rig.svc.Ready() {
		select {
		case err := <-rig.done:
			t.Fatalf("service exited during startup: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("service not ready")
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Cleanup(func() { rig.stop(t) })
	return rig
}

func (r *testRig) stop(t *testing.T) {
	t.Helper()
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil
	select {
	case err := <-r.done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop")
	}
}

func readUDPFrame(t *testing.T, conn *net.UDPConn) protocol.CursorFrame {
	t.Helper()
	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read udp: %v", err)
	}
	b, err := osc.ParseBundle(buf[:n])
	if err != nil {
		t.Fatalf("parse bundle: %v", err)
	}
	frame, err := protocol.DecodeCursorFrame(b.Messages)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

func TestServiceStreamsPointerFramesOnAllChannels(t *testing.T) {
	rig := startRig(t, "", nil)

	startup := readUDPFrame(t, rig.udpOne)
	if startup.Fseq != -1 || !startup.HasAlive || len(startup.Alive) != 0 || startup.Source != "test" {
		t.Fatalf("startup frame=%+v", startup)
	}

	client, err := net.Dial("tcp", rig.svc.XMLAddr())
	if err != nil {
		t.Fatalf("dial xml: %v", err)
	}
	defer client.Close()
	deadline := time.Now().Add(2 * time.Second)
	for rig.svc.tcp.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rig.svc.tcp.ClientCount() != 1 {
		t.Fatalf("xml client not tracked")
	}

	rig.svc.Listener().PointerDown(1, 960, 540)

	added := readUDPFrame(t, rig.udpOne)
	if added.Fseq != 1 || len(added.Alive) != 1 || len(added.Sets) != 1 {
		t.Fatalf("add frame=%+v", added)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(client)
	raw, err := reader.ReadBytes(0)
	if err != nil {
		t.Fatalf("read xml: %v", err)
	}
	packet, err := xmlosc.Parse(raw)
	if err != nil {
		t.Fatalf("parse xml: %v", err)
	}
	frame, err := protocol.DecodeCursorFrame(packet.Messages)
	if err != nil {
		t.Fatalf("decode xml frame: %v", err)
	}
	if frame.Fseq != 1 || len(frame.Sets) != 1 || packet.Port != rig.svc.Settings().Network.XMLPort {
		t.Fatalf("xml frame=%+v port=%d", frame, packet.Port)
	}

	rig.stop(t)

	final := readUDPFrame(t, rig.udpOne)
	if final.Fseq != -1 || len(final.Alive) != 0 {
		t.Fatalf("final frame=%+v", final)
	}
	if _, err := reader.ReadBytes(0); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("read final xml: %v", err)
	}
}

func TestServiceRejectsInvalidSettings(t *testing.T) {
	testlog.Start(t)
	settings := config.Defaults()
	settings.Network.Host = ""
	svc := New(settings, "")

	err := svc.RunContext(context.Background())
	if !errors.Is(err, config.ErrInvalidSettings) {
		t.Fatalf("err=%v want ErrInvalidSettings", err)
	}
	if err := svc.RunContext(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second run err=%v want ErrAlreadyStarted", err)
	}
}

type controlClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialControl(t *testing.T, addr string) *controlClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial control: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &controlClient{conn: conn, reader: bufio.NewReader(conn)}
}

func (c *controlClient) call(t *testing.T, line string) map[string]any {
	t.Helper()
	_ = c.conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := c.reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func TestControlActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "touch2tuio.toml")
	rig := startRig(t, path, nil)
	c := dialControl(t, rig.svc.ControlAddr())

	status := c.call(t, `{"action":"status"}`)
	if status["ok"] != true || status["run_id"] != rig.svc.RunID() {
		t.Fatalf("status=%v", status)
	}
	data, _ := status["data"].(map[string]any)
	if data["source"] != "test" || data["ready"] != true {
		t.Fatalf("status data=%v", data)
	}

	resp := c.call(t, `{"action":"set_channel","channel":"udp2","enabled":true}`)
	if resp["ok"] != true || !rig.svc.Server().ChannelEnabled(server.ChannelUDPTwo) || !rig.svc.Settings().Network.UseUDPTwo {
		t.Fatalf("set_channel=%v", resp)
	}
	resp = c.call(t, `{"action":"set_channel","channel":"udp9","enabled":true}`)
	if resp["ok"] != false || !strings.Contains(resp["error"].(string), "udp9") {
		t.Fatalf("bad channel=%v", resp)
	}

	rig.svc.Listener().PointerDown(3, 10, 10)
	resp = c.call(t, `{"action":"cursors"}`)
	if cursors, _ := resp["data"].([]any); len(cursors) != 1 {
		t.Fatalf("cursors=%v", resp)
	}
	resp = c.call(t, `{"action":"release_hooks"}`)
	release, _ := resp["data"].(map[string]any)
	if resp["ok"] != true || release["pointers_released"] != float64(1) || release["hook_released"] != false {
		t.Fatalf("release_hooks=%v", resp)
	}
	if rig.svc.Listener().Pointers() != 0 {
		t.Fatalf("pointers still down")
	}

	resp = c.call(t, `{"action":"save_settings"}`)
	if resp["ok"] != true {
		t.Fatalf("save_settings=%v", resp)
	}
	saved, err := config.Load(path)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if !saved.Network.UseUDPTwo || saved.TUIO.Source != "test" {
		t.Fatalf("saved settings=%+v", saved)
	}

	resp = c.call(t, `{"action":"reboot"}`)
	if resp["ok"] != false || !strings.Contains(resp["error"].(string), "unknown control action") {
		t.Fatalf("unknown action=%v", resp)
	}
	resp = c.call(t, `not json`)
	if resp["ok"] != false || resp["error"] != "invalid json request" {
		t.Fatalf("invalid json=%v", resp)
	}
}

type fakeInput struct {
	listener *bridge.Listener
	started  chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (f *fakeInput) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()
	close(f.started)
	<-ctx.Done()
	f.mu.Lock()
	f.cancel = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeInput) Release() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel == nil {
		return false
	}
	f.cancel()
	return true
}

func (f *fakeInput) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

func TestGlobalHookUsesInputFactory(t *testing.T) {
	input := &fakeInput{started: make(chan struct{})}
	factory := WithInputFactory(func(l *bridge.Listener) InputSource {
		input.listener = l
		return input
	})
	rig := startRig(t, "", func(s *config.Settings) { s.Hooks.UseGlobalHook = true }, factory)

	select {
	case <-input.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("input source not started")
	}
	if input.listener != rig.svc.Listener() {
		t.Fatalf("factory got a different listener")
	}
	if !rig.svc.Status().GlobalHook {
		t.Fatalf("status does not report the hook")
	}

	c := dialControl(t, rig.svc.ControlAddr())
	resp := c.call(t, `{"action":"release_hooks"}`)
	release, _ := resp["data"].(map[string]any)
	if resp["ok"] != true || release["hook_released"] != true {
		t.Fatalf("release_hooks=%v", resp)
	}
	deadline := time.Now().Add(2 * time.Second)
	for input.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if input.Running() {
		t.Fatalf("input source still running after release")
	}
}

func TestGlobalHookWithoutFactory(t *testing.T) {
	rig := startRig(t, "", func(s *config.Settings) { s.Hooks.UseGlobalHook = true })
	if rig.svc.Status().GlobalHook {
		t.Fatalf("hook reported without a factory")
	}
}

func TestSaveSettingsWithoutPath(t *testing.T) {
	rig := startRig(t, "", nil)
	if _, err := rig.svc.SaveSettings(); !errors.Is(err, ErrNoConfigPath) {
		t.Fatalf("err=%v want ErrNoConfigPath", err)
	}
}

func TestStatusRoutes(t *testing.T) {
	rig := startRig(t, "", nil)
	base := "http://" + rig.svc.StatusAddr()
	client := &http.Client{Timeout: 2 * time.Second}

	for _, path := range []string{"/health", "/ready", "/metrics", "/channels", "/cursors"} {
		resp, err := client.Get(base + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status=%d", path, resp.StatusCode)
		}
	}

	resp, err := client.Get(base + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	var view StatusView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if view.RunID != rig.svc.RunID() || !view.Ready || len(view.Channels) != 3 {
		t.Fatalf("status=%+v", view)
	}
	if !strings.Contains(view.ServerInfo, "TUIO/UDP 127.0.0.1") || !strings.Contains(view.ScreenInfo, "1920x1080") {
		t.Fatalf("info server=%q screen=%q", view.ServerInfo, view.ScreenInfo)
	}
}

func TestControlTokenRequired(t *testing.T) {
	rig := startRig(t, "", func(s *config.Settings) { s.Service.ControlToken = "s3cret" })
	c := dialControl(t, rig.svc.ControlAddr())

	resp := c.call(t, `{"action":"status"}`)
	if resp["ok"] != false || !strings.Contains(resp["error"].(string), "unauthorized") {
		t.Fatalf("missing token=%v", resp)
	}
	resp = c.call(t, `{"action":"status","token":"s3cret"}`)
	if resp["ok"] != true {
		t.Fatalf("valid token=%v", resp)
	}
}
