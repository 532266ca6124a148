package main

import (
	"os"

	"github.com/yigit/motobuddies/internal/bootstrap"
	"github.com/yigit/motobuddies/internal/pkg/logger"
	"github.com/yigit/motobuddies/internal/server"
)

// @title MotoBuddies API
// @version 1.0
// @description API for planning group motorcycle rides: groups, rides, RSVPs, tracks, weather and notifications

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Server key for trusted callers of POST /api/notifications

func main() {
	srv, err := server.NewServer(bootstrap.ConfigPath())
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Blocks until a shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
