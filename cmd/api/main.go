package main

import (
	"os"

	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/logger"
	"github.com/Gangireddy387/OnlineNotebook/internal/server"
)

// @title OnlineNotebook Chat API
// @version 1.0
// @description Realtime chat between students and admins of the note-sharing platform
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run blocks until a shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
