package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Gangireddy387/OnlineNotebook/internal/bootstrap"
	"github.com/Gangireddy387/OnlineNotebook/internal/config"
	"github.com/Gangireddy387/OnlineNotebook/internal/seed"
)

// Server holds the state for the HTTP server and the realtime hub.
type Server struct {
	config *config.Config
	router *gin.Engine
	deps   *bootstrap.Dependencies
	logger zerolog.Logger
	http   *http.Server

	// cancels the hub and relay loops
	stopBackground context.CancelFunc
	background     sync.WaitGroup
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer() (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	ctx := context.Background()
	store, writer, err := bootstrap.SetupStore(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup store: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, store, lgr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	if cfg.Seed.Enabled {
		var issuer seed.TokenIssuer
		if strings.ToLower(cfg.Server.Mode) != "production" {
			issuer = deps.JWTService
		}
		if err := seed.CreateDefaultData(ctx, writer, issuer, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	if _, err := bootstrap.ResetStalePresence(ctx, cfg, store, lgr); err != nil {
		lgr.Warn().Err(err).Msg("Presence left from a previous run may be stale")
	}

	return &Server{
		config: cfg,
		router: bootstrap.SetupRouter(cfg, deps, lgr),
		deps:   deps,
		logger: lgr,
	}, nil
}

// startBackground runs the hub and, when configured, the cross-node relay.
func (s *Server) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel

	go s.deps.Hub.Run(ctx)

	if s.deps.Relay != nil {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			if err := s.deps.Relay.Run(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Relay stopped with error")
			}
		}()
	}
}

// Run starts the HTTP server and handles graceful shutdown.
func (s *Server) Run() error {
	s.startBackground()

	s.logger.Info().Str("port", s.config.Server.Port).Str("node", s.deps.Hub.NodeID()).Msg("Starting server...")

	// WriteTimeout stays unset: hijacked websocket connections manage their own deadlines
	s.http = &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Received OS signal, initiating shutdown...")
	}

	return s.Shutdown(context.Background())
}

// Shutdown stops accepting requests, closes every realtime connection (which
// records the principals as offline) and then releases the backing services.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var shutdownErr error

	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = errors.Join(shutdownErr, err)
		} else {
			s.logger.Info().Msg("HTTP server gracefully stopped.")
		}
	}

	if s.stopBackground != nil {
		s.logger.Info().Msg("Stopping realtime hub...")
		s.stopBackground()
		select {
		case <-s.deps.Hub.Stopped():
			s.logger.Info().Msg("Realtime hub stopped.")
		case <-ctx.Done():
			s.logger.Warn().Msg("Timed out waiting for the realtime hub")
		}
		s.background.Wait()
	}

	if s.deps.RedisBroker != nil {
		if err := s.deps.RedisBroker.Close(); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}
	if err := s.deps.Publisher.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Event publisher close error")
		shutdownErr = errors.Join(shutdownErr, err)
	}

	s.logger.Info().Msg("Closing store...")
	if err := s.deps.Store.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Store close error")
		shutdownErr = errors.Join(shutdownErr, err)
	}

	s.logger.Info().Msg("Server shutdown process complete.")
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown completed with errors: %w", shutdownErr)
	}
	return nil
}
