// Package mirror exposes the board to browsers and other remote views: the
// current frame over HTTP and a live frame stream over a websocket.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type Config struct {
	Addr             string
	AllowedOrigins   []string
	ShutdownTimeout  time.Duration
	ConnectionConfig ConnectionConfig
}

func DefaultConfig() Config {
	return Config{
		Addr:             ":17890",
		AllowedOrigins:   []string{"*"},
		ShutdownTimeout:  5 * time.Second,
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// Service wires the connection manager and handlers to an HTTP server.
type Service struct {
	config            Config
	control           Controller
	connectionManager *ConnectionManager
	handler           *BoardHandler
}

func NewService(config Config, control Controller) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, control)
	return &Service{
		config:            config,
		control:           control,
		connectionManager: cm,
		handler:           NewBoardHandler(control, cm),
	}
}

// Handler returns the routes wrapped with CORS and h2c.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handler.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

// Start serves until ctx is done, then shuts the server down.
func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	cmCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.connectionManager.Start(cmCtx)

	unsubscribe := s.control.Subscribe(s.connectionManager)
	defer unsubscribe()

	server := &http.Server{Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("board mirror listening")
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mirror server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown mirror server")
		return err
	}
	log.Info().Msg("board mirror stopped")
	return nil
}

func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
