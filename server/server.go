package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/soocke/xr-mirror-go/assets"
	"github.com/soocke/xr-mirror-go/config"
	"github.com/soocke/xr-mirror-go/domain/mirror"
)

const (
	shutdownTimeout = 5 * time.Second
	writeTimeout    = 2 * time.Second
)

// StatusProvider is satisfied by *mirror.Pipeline.
type StatusProvider interface {
	Status() mirror.Status
}

// Server exposes the mirror over HTTP: a browser viewer, a websocket JPEG
// stream, a snapshot, pipeline status and Prometheus metrics.
type Server struct {
	cfg    config.Server
	log    zerolog.Logger
	hub    *StreamHub
	status StatusProvider
	engine *gin.Engine

	upgrader websocket.Upgrader
}

func New(cfg config.Server, status StatusProvider, hub *StreamHub, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:    cfg,
		log:    log.With().Str("component", "http").Logger(),
		hub:    hub,
		status: status,
		engine: gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// Local OBS browser sources send arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.engine.Use(gin.Recovery(), s.requestLog())
	s.engine.GET("/", s.viewer)
	s.engine.GET("/status", s.statusHandler)
	s.engine.GET("/snapshot.jpg", s.snapshot)
	s.engine.GET("/stream", s.stream)
	if gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) viewer(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", assets.ViewerHTML)
}

func (s *Server) statusHandler(c *gin.Context) {
	body, err := json.Marshal(s.status.Status())
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Server) snapshot(c *gin.Context) {
	data, err := s.hub.Snapshot()
	if errors.Is(err, ErrNoFrame) {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (s *Server) stream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	cl := s.hub.register()
	defer s.hub.unregister(cl)
	defer conn.Close()

	// Drain client messages so close frames are noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case data, ok := <-cl.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		}
	}
}
