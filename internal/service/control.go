package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/danmuck/touch2tuio/internal/config"
	"github.com/danmuck/touch2tuio/internal/server"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownAction = errors.New("service: unknown control action")
	ErrNoConfigPath  = errors.New("service: no config path to save to")
)

const controlReadTimeout = 30 * time.Second

// controlRequest is one line on the control endpoint.
type controlRequest struct {
	Action  string `json:"action"`
	Channel string `json:"channel,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
	Token   string `json:"token,omitempty"`
}

// controlResponse answers one controlRequest.
type controlResponse struct {
	OK    bool   `json:"ok"`
	RunID string `json:"run_id"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// ReleaseResult reports what ReleaseInput lifted.
type ReleaseResult struct {
	HookReleased     bool `json:"hook_released"`
	PointersReleased int  `json:"pointers_released"`
}

type saveResult struct {
	Path string `json:"path"`
}

// serveControl accepts JSON-lines clients until ctx is done.
func (s *Service) serveControl(ctx context.Context, ln net.Listener) error {
	log.Info().Str("addr", ln.Addr().String()).Msg("service.control listening")
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleControlConn(ctx, conn)
	}
}

// handleControlConn decodes one request per line and writes one response per line.
func (s *Service) handleControlConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	active := s.controlClients.Add(1)
	log.Info().Str("remote", remote).Int64("active_clients", active).Msg("service.control client connected")
	defer func() {
		remaining := s.controlClients.Add(-1)
		log.Info().Str("remote", remote).Int64("active_clients", remaining).Msg("service.control client disconnected")
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	reader := bufio.NewReader(conn)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(controlReadTimeout))
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Debug().Err(err).Str("remote", remote).Msg("service.control read")
			}
			return
		}
		line = []byte(strings.TrimSpace(string(line)))
		if len(line) == 0 {
			continue
		}

		var req controlRequest
		if err := json.Unmarshal(line, &req); err != nil {
			_ = s.writeControlResponse(conn, controlResponse{OK: false, Error: "invalid json request"})
			continue
		}
		if err := s.writeControlResponse(conn, s.handleControlRequest(req)); err != nil {
			return
		}
	}
}

func (s *Service) handleControlRequest(req controlRequest) controlResponse {
	if err := s.auth.Validate(req.Token); err != nil {
		return controlResponse{OK: false, Error: err.Error()}
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case "status":
		return controlResponse{OK: true, Data: s.Status()}
	case "channels":
		return controlResponse{OK: true, Data: s.srv.ChannelStatuses()}
	case "cursors":
		return controlResponse{OK: true, Data: s.srv.Cursors()}
	case "set_channel":
		ch, err := server.ParseChannel(req.Channel)
		if err != nil {
			return controlResponse{OK: false, Error: err.Error()}
		}
		if err := s.SetChannel(ch, req.Enabled); err != nil {
			return controlResponse{OK: false, Error: err.Error()}
		}
		return controlResponse{OK: true, Data: s.srv.ChannelStatuses()}
	case "release_hooks":
		return controlResponse{OK: true, Data: s.ReleaseInput()}
	case "save_settings":
		path, err := s.SaveSettings()
		if err != nil {
			return controlResponse{OK: false, Error: err.Error()}
		}
		return controlResponse{OK: true, Data: saveResult{Path: path}}
	default:
		return controlResponse{OK: false, Error: fmt.Sprintf("%v: %q", ErrUnknownAction, req.Action)}
	}
}

func (s *Service) writeControlResponse(w io.Writer, resp controlResponse) error {
	resp.RunID = s.runID
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// SetChannel toggles a channel at runtime and records it in the settings.
func (s *Service) SetChannel(ch server.Channel, on bool) error {
	if err := s.srv.SetChannelEnabled(ch, on); err != nil {
		return err
	}
	s.settingsMu.Lock()
	s.settings.SetChannel(ch, on)
	s.settingsMu.Unlock()
	log.Info().Str("channel", ch.String()).Bool("enabled", on).Msg("service.Service channel toggled")
	return nil
}

// ReleaseInput stops the global hook, if any, and lifts every pointer.
func (s *Service) ReleaseInput() ReleaseResult {
	var out ReleaseResult
	if s.hooks != nil {
		out.HookReleased = s.hooks.Release()
	}
	out.PointersReleased = s.listener.ReleaseAll()
	log.Info().
		Bool("hook_released", out.HookReleased).
		Int("pointers_released", out.PointersReleased).
		Msg("service.Service input released")
	return out
}

// SaveSettings writes the current settings to the config path.
func (s *Service) SaveSettings() (string, error) {
	if strings.TrimSpace(s.configPath) == "" {
		return "", ErrNoConfigPath
	}
	if err := config.WriteFile(s.configPath, s.Settings()); err != nil {
		return "", err
	}
	log.Info().Str("path", s.configPath).Msg("service.Service settings saved")
	return s.configPath, nil
}
