package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"greenery/internal/config"
	"greenery/internal/greenery"
)

const (
	serverReadHeaderTimeout = 5 * time.Second
	serverReadTimeout       = 10 * time.Second
	serverWriteTimeout      = 30 * time.Second
	serverIdleTimeout       = 60 * time.Second
	serverMaxHeaderBytes    = 1 << 20
	shutdownTimeout         = 5 * time.Second
)

// Records is the record service the HTTP surface delegates to.
type Records interface {
	Read(ctx context.Context, id string) ([]byte, error)
	Create(ctx context.Context, info greenery.GeneralInfo) error
	Ready(ctx context.Context) error
}

type Server struct {
	addr         string
	allowOrigin  string
	maxBodyBytes int64
	records      Records
	logger       logrus.FieldLogger
	metrics      *metrics
	handler      http.Handler
}

func New(cfg *config.Config, records Records, logger logrus.FieldLogger) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if records == nil {
		return nil, errors.New("records service is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	maxBody, err := cfg.HTTP.MaxBodyBytes()
	if err != nil {
		return nil, err
	}

	s := &Server{
		addr:         cfg.ListenAddr,
		allowOrigin:  cfg.HTTP.AllowOrigin,
		maxBodyBytes: maxBody,
		records:      records,
		logger:       logger,
		metrics:      newMetrics(),
	}
	if s.addr == "" {
		s.addr = config.DefaultListenAddr
	}
	if s.allowOrigin == "" {
		s.allowOrigin = "*"
	}
	s.handler = s.newHandler()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. Cancelling ctx drains in-flight requests
// for up to shutdownTimeout before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := s.newHTTPServer()
	s.logger.WithField("addr", ln.Addr().String()).Info("greenery listening")

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownErr; err != nil {
		return errors.Wrap(err, "shutdown")
	}
	s.logger.Info("greenery stopped")
	return nil
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
		MaxHeaderBytes:    serverMaxHeaderBytes,
	}
}
