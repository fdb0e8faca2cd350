package service

import (
	"net/http"
	"time"

	"github.com/danmuck/touch2tuio/internal/observability"
	"github.com/danmuck/touch2tuio/internal/server"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StatusView is the combined runtime state served by /status and the status action.
type StatusView struct {
	RunID       string                 `json:"run_id"`
	Uptime      string                 `json:"uptime"`
	Ready       bool                   `json:"ready"`
	Source      string                 `json:"source"`
	ServerInfo  string                 `json:"server_info"`
	ScreenInfo  string                 `json:"screen_info"`
	FrameID     int64                  `json:"frame_id"`
	FrameTimeMS int64                  `json:"frame_time_ms"`
	Cursors     int                    `json:"cursors"`
	Pointers    int                    `json:"pointers"`
	GlobalHook  bool                   `json:"global_hook"`
	XMLClients  int                    `json:"xml_clients"`
	Channels    []server.ChannelStatus `json:"channels"`
}

// Status snapshots the service. It must not be called before bootstrap.
func (s *Service) Status() StatusView {
	clients := 0
	if s.tcp != nil {
		clients = s.tcp.ClientCount()
	}
	return StatusView{
		RunID:       s.runID,
		Uptime:      time.Since(s.appeared).String(),
		Ready:       s.Ready(),
		Source:      s.srv.SourceName(),
		ServerInfo:  s.serverInfo(),
		ScreenInfo:  s.listener.Screen().String(),
		FrameID:     s.srv.FrameID(),
		FrameTimeMS: s.srv.FrameTime().Milliseconds(),
		Cursors:     s.srv.Registry().Len(),
		Pointers:    s.listener.Pointers(),
		GlobalHook:  s.hooks != nil && s.hooks.Running(),
		XMLClients:  clients,
		Channels:    s.srv.ChannelStatuses(),
	}
}

func (s *Service) newRouter(corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger, "/health", "/ready", "/metrics"))
	r.Use(observability.RequestMetricsMiddleware(AppName))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.registerRoutes(r)
	return r
}

func (s *Service) registerRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.appeared).String(),
			"component": AppName,
			"run_id":    s.runID,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !s.Ready() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":     s.Ready(),
			"uptime":    time.Since(s.appeared).String(),
			"component": AppName,
			"run_id":    s.runID,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	})

	s.srv.RegisterRoutes(r)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
