// Package frontdoor is a loopback HTTP surface for debugging the agent
// without a browser.
package frontdoor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/agent/session"
	commonmw "github.com/Diwakar-Gupta/pepper/internal/common/http/middleware"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config configures the front door.
type Config struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	Advertise    bool          `yaml:"advertise"`
}

// NewRouter wires the endpoints.
func NewRouter(ctrl *Controller) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())

	router.GET("/healthz", ctrl.Health)
	api := router.Group("/api/v1")
	api.GET("/session", ctrl.Session)
	api.POST("/rpc", ctrl.RPC)
	api.GET("/submissions/backup", ctrl.Backup)
	return router
}

// Server runs the front door until its context ends.
type Server struct {
	cfg     Config
	session *session.Session
	http    *http.Server
}

// NewServer creates a server for ctrl.
func NewServer(cfg Config, sess *session.Session, ctrl *Controller) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8790"
	}
	return &Server{
		cfg:     cfg,
		session: sess,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(ctrl),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Run listens, optionally advertises over mDNS, and shuts down when ctx ends.
// Bind and serve failures are logged, not returned.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		logger.Warn(ctx, "front door disabled, listen failed", zap.String("addr", s.cfg.Addr), zap.Error(err))
		return nil
	}
	addr := listener.Addr().String()

	if s.cfg.Advertise {
		if _, portStr, err := net.SplitHostPort(addr); err == nil {
			port, _ := strconv.Atoi(portStr)
			adv, err := Advertise(s.session.Code(), port)
			if err != nil {
				logger.Warn(ctx, "mdns advertisement failed", zap.Error(err))
			} else {
				defer adv.Shutdown()
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "front door started", zap.String("addr", addr))
		errCh <- s.http.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn(ctx, "front door stopped", zap.Error(err))
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "front door shutdown failed", zap.Error(err))
	}
	return nil
}
