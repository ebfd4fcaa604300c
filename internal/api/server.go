// Package api exposes the scanner state over HTTP: health, recent
// alerts, scan status and a manual scan trigger.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"market-scanner/internal/auth"
	"market-scanner/internal/events"
	"market-scanner/internal/pipeline"
	"market-scanner/internal/storage"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`
	// JWTSecret guards the mutating endpoints; empty disables auth
	JWTSecret string `json:"jwt_secret"`
}

// AlertReader is the slice of the repository the API needs
type AlertReader interface {
	RecentAlerts(ctx context.Context, limit int, asset string) ([]storage.AlertRecord, error)
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	engine     *pipeline.Engine
	alerts     AlertReader
	bus        *events.Bus
	jwtManager *auth.JWTManager
	upgrader   websocket.Upgrader
	config     ServerConfig
	logger     zerolog.Logger
	startedAt  time.Time
}

// NewServer creates a new API server. alerts may be nil when no
// database is configured; the alerts endpoint then serves the last
// in-memory scan result only. bus may be nil, disabling the event
// stream endpoint.
func NewServer(config ServerConfig, engine *pipeline.Engine, alerts AlertReader, bus *events.Bus, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8090"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router: router,
		engine: engine,
		alerts: alerts,
		bus:    bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		config:    config,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}
	if config.JWTSecret != "" {
		server.jwtManager = auth.NewJWTManager(config.JWTSecret, 24*time.Hour)
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/api/alerts", s.handleGetAlerts)
	s.router.GET("/api/status", s.handleGetStatus)
	s.router.GET("/ws/events", s.handleEventStream)

	protected := s.router.Group("/api")
	protected.Use(s.authMiddleware())
	protected.POST("/scan", s.handleTriggerScan)
}

// authMiddleware validates the bearer token when a secret is set. With
// no secret configured the endpoints are open, matching single-user
// local deployments.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.jwtManager == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := s.jwtManager.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleGetAlerts(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	asset := c.Query("asset")

	if s.alerts == nil {
		c.JSON(http.StatusOK, gin.H{"alerts": s.lastScanAlerts(limit, asset)})
		return
	}

	records, err := s.alerts.RecentAlerts(c.Request.Context(), limit, asset)
	if err != nil {
		s.logger.Error().Err(err).Msg("alert query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": records})
}

func (s *Server) lastScanAlerts(limit int, asset string) []pipeline.Alert {
	result := s.engine.LastResult()
	if result == nil {
		return nil
	}
	var out []pipeline.Alert
	for _, a := range result.Alerts {
		if asset != "" && a.Instrument != asset {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *Server) handleGetStatus(c *gin.Context) {
	result := s.engine.LastResult()
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"status": "waiting for first scan"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleEventStream upgrades the connection and forwards bus events
// until the client disconnects.
func (s *Server) handleEventStream(c *gin.Context) {
	if s.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream not enabled"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	eventCh, cancel := s.bus.Subscribe(64)
	defer cancel()

	// Read pump: the client sends nothing we care about, but reads
	// detect the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleTriggerScan(c *gin.Context) {
	result := s.engine.ScanOnce()
	c.JSON(http.StatusOK, result)
}

// Start begins serving; it blocks until shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
