package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/touch2tuio/internal/auth"
	"github.com/danmuck/touch2tuio/internal/bridge"
	"github.com/danmuck/touch2tuio/internal/config"
	"github.com/danmuck/touch2tuio/internal/observability"
	"github.com/danmuck/touch2tuio/internal/server"
	"github.com/danmuck/touch2tuio/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	AppName         = "touch2tuio"
	shutdownTimeout = 2 * time.Second
)

var ErrAlreadyStarted = errors.New("service: already started")

// InputSource is an extra pointer producer feeding the listener, such as the
// global mouse hook.
type InputSource interface {
	Run(ctx context.Context) error
	Release() bool
	Running() bool
}

// InputFactory builds the global hook source when use_global_hook is on.
type InputFactory func(listener *bridge.Listener) InputSource

type Option func(*Service)

func WithInputFactory(f InputFactory) Option {
	return func(s *Service) {
		s.newInput = f
	}
}

// Service owns the transports, the cursor server and the input side for one
// process lifetime.
type Service struct {
	configPath string
	runID      string

	settingsMu sync.RWMutex
	settings   config.Settings

	started  atomic.Bool
	ready    atomic.Bool
	appeared time.Time

	recorder *observability.Recorder
	udp      [2]*transport.UDPSender
	tcp      *transport.TCPServer
	srv      *server.CursorServer
	listener *bridge.Listener
	hooks    InputSource
	newInput InputFactory

	statusLn   net.Listener
	statusHTTP *http.Server
	controlLn  net.Listener
	auth       auth.Validator

	controlClients atomic.Int64
}

// New builds a Service from validated settings. configPath is where
// save_settings writes; it may be empty.
func New(settings config.Settings, configPath string, opts ...Option) *Service {
	s := &Service{
		configPath: configPath,
		runID:      uuid.NewString(),
		settings:   settings,
		auth:       auth.FromToken(settings.Service.ControlToken),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext bootstraps and serves until ctx is done.
func (s *Service) RunContext(ctx context.Context) error {
	if err := s.bootstrap(); err != nil {
		return err
	}
	return s.serve(ctx)
}

func (s *Service) RunID() string {
	return s.runID
}

func (s *Service) Settings() config.Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// Server returns the cursor server, or nil before bootstrap.
func (s *Service) Server() *server.CursorServer {
	return s.srv
}

// Listener returns the input bridge, or nil before bootstrap.
func (s *Service) Listener() *bridge.Listener {
	return s.listener
}

// Ready reports whether bootstrap finished and the service has not begun shutdown.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// StatusAddr returns the bound diagnostics address, or "" when disabled.
func (s *Service) StatusAddr() string {
	if s.statusLn == nil {
		return ""
	}
	return s.statusLn.Addr().String()
}

// ControlAddr returns the bound control address, or "" when disabled.
func (s *Service) ControlAddr() string {
	if s.controlLn == nil {
		return ""
	}
	return s.controlLn.Addr().String()
}

// XMLAddr returns the bound XMLSocket address, or "" when the server is down.
func (s *Service) XMLAddr() string {
	if s.tcp == nil || s.tcp.Addr() == nil {
		return ""
	}
	return s.tcp.Addr().String()
}

// bootstrap opens every channel and endpoint. Channel failures are logged and
// leave the channel not running; endpoint failures abort startup.
func (s *Service) bootstrap() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	settings := s.Settings()
	if err := settings.Validate(); err != nil {
		return err
	}
	s.appeared = time.Now()
	s.recorder = observability.NewRecorder()

	ports := [2]int{settings.Network.UDPOnePort, settings.Network.UDPTwoPort}
	for i, port := range ports {
		sender, err := transport.DialUDP(settings.Network.Host, port)
		if err != nil {
			log.Warn().Err(err).Str("host", settings.Network.Host).Int("port", port).Msg("service.Service udp channel unavailable")
			continue
		}
		s.udp[i] = sender
	}

	tcp := transport.NewTCPServer(
		fmt.Sprintf(":%d", settings.Network.XMLPort),
		transport.WithDelimiter(settings.Network.Delimiter()),
	)
	if err := tcp.Listen(); err != nil {
		log.Warn().Err(err).Int("port", settings.Network.XMLPort).Msg("service.Service xml channel unavailable")
	} else {
		s.tcp = tcp
	}

	cfg := settings.ServerConfig()
	if s.udp[0] != nil {
		cfg.UDPOne = s.udp[0]
	}
	if s.udp[1] != nil {
		cfg.UDPTwo = s.udp[1]
	}
	if s.tcp != nil {
		cfg.TCP = s.tcp
	}
	cfg.Observer = s.recorder
	s.srv = server.New(cfg)
	s.srv.Registry().AddSubscriber(s.recorder)
	s.srv.ConfigureSource(settings.TUIO.Source, nil)

	opts := append(settings.ListenerOptions(), bridge.WithClock(s.srv.SessionTime))
	s.listener = bridge.NewListener(s.srv, settings.BridgeScreen(), opts...)
	if settings.Hooks.UseGlobalHook {
		if s.newInput != nil {
			s.hooks = s.newInput(s.listener)
		} else {
			log.Warn().Msg("service.Service global hook requested but not built in")
		}
	}

	if err := s.openEndpoints(settings.Service); err != nil {
		s.closeTransports()
		return err
	}

	s.srv.Start()
	s.ready.Store(true)
	log.Info().
		Str("run_id", s.runID).
		Str("source", s.srv.SourceName()).
		Str("server", s.serverInfo()).
		Str("screen", s.listener.Screen().String()).
		Bool("global_hook", s.hooks != nil).
		Msg("service.Service bootstrap ready")
	return nil
}

func (s *Service) openEndpoints(cfg config.ServiceSettings) error {
	if addr := strings.TrimSpace(cfg.StatusAddr); addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("service: status listen %q: %w", addr, err)
		}
		s.statusLn = ln
		s.statusHTTP = &http.Server{
			Handler:           s.newRouter(cfg.CorsOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	if addr := strings.TrimSpace(cfg.ControlAddr); addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			if s.statusLn != nil {
				_ = s.statusLn.Close()
			}
			return fmt.Errorf("service: control listen %q: %w", addr, err)
		}
		s.controlLn = ln
	}
	return nil
}

// serve runs the endpoints and input producers until ctx is done or an
// endpoint fails, then shuts down in dependency order: input first, then the
// cursor server's final frame, then the transports.
func (s *Service) serve(ctx context.Context) error {
	netCtx, stopNet := context.WithCancel(context.Background())
	defer stopNet()

	var netWG sync.WaitGroup
	errs := make(chan error, 3)
	if s.tcp != nil {
		netWG.Add(1)
		go func() {
			defer netWG.Done()
			if err := s.tcp.Serve(netCtx); err != nil {
				errs <- fmt.Errorf("service: xml server: %w", err)
			}
		}()
	}
	if s.statusHTTP != nil {
		netWG.Add(1)
		go func() {
			defer netWG.Done()
			log.Info().Str("addr", s.StatusAddr()).Msg("service.status listening")
			if err := s.statusHTTP.Serve(s.statusLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("service: status server: %w", err)
			}
		}()
	}
	if s.controlLn != nil {
		netWG.Add(1)
		go func() {
			defer netWG.Done()
			if err := s.serveControl(netCtx, s.controlLn); err != nil {
				errs <- fmt.Errorf("service: control: %w", err)
			}
		}()
	}

	inputCtx, stopInput := context.WithCancel(ctx)
	defer stopInput()
	var inputWG sync.WaitGroup
	inputWG.Add(1)
	go func() {
		defer inputWG.Done()
		_ = s.listener.Run(inputCtx)
	}()
	if s.hooks != nil {
		inputWG.Add(1)
		go func() {
			defer inputWG.Done()
			if err := s.hooks.Run(inputCtx); err != nil {
				log.Warn().Err(err).Msg("service.Service global hook stopped")
			}
		}()
	}

	var heartbeat <-chan time.Time
	if interval := s.Settings().Service.Heartbeat; interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("run_id", s.runID).Msg("service.Service.serve shutdown")
			break loop
		case err := <-errs:
			log.Error().Err(err).Msg("service.Service.serve endpoint failed")
			runErr = err
			break loop
		case <-heartbeat:
			s.heartbeat()
		}
	}

	s.ready.Store(false)
	stopInput()
	inputWG.Wait()
	s.listener.Close(s.srv.Close)

	stopNet()
	if s.statusHTTP != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := s.statusHTTP.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("service.status shutdown")
		}
		cancel()
	}
	netWG.Wait()
	s.closeTransports()
	return runErr
}

func (s *Service) heartbeat() {
	clients := 0
	if s.tcp != nil {
		clients = s.tcp.ClientCount()
	}
	observability.SetTCPClients(clients)
	log.Info().
		Str("run_id", s.runID).
		Int64("frame", s.srv.FrameID()).
		Int("cursors", s.srv.Registry().Len()).
		Int("pointers", s.listener.Pointers()).
		Int("xml_clients", clients).
		Int64("control_clients", s.controlClients.Load()).
		Msg("service.Service.heartbeat")
}

func (s *Service) closeTransports() {
	for i, sender := range s.udp {
		if sender == nil {
			continue
		}
		if err := sender.Close(); err != nil {
			log.Warn().Err(err).Int("channel", i+1).Msg("service.Service udp close")
		}
	}
	if s.tcp != nil {
		_ = s.tcp.Close()
	}
	if s.controlLn != nil {
		_ = s.controlLn.Close()
	}
}

// serverInfo describes the configured channels the way the status view shows them.
func (s *Service) serverInfo() string {
	settings := s.Settings()
	parts := make([]string, 0, 3)
	for i, port := range []int{settings.Network.UDPOnePort, settings.Network.UDPTwoPort} {
		state := "off"
		if s.udp[i] != nil && s.udp[i].Running() {
			state = "on"
		}
		parts = append(parts, fmt.Sprintf("TUIO/UDP %s:%d (%s)", settings.Network.Host, port, state))
	}
	state := "off"
	if s.tcp != nil && s.tcp.Running() {
		state = "on"
	}
	parts = append(parts, fmt.Sprintf("TUIO/XML :%d (%s)", settings.Network.XMLPort, state))
	return strings.Join(parts, ", ")
}
