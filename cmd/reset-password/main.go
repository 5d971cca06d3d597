package main

import (
	"context"
	"errors"
	"flag"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/config"
	"go-scan-pos/internal/observability"
	"go-scan-pos/internal/repository"
	"go-scan-pos/internal/service"
	"go-scan-pos/pkg/database"

	"github.com/rs/zerolog/log"
)

func main() {
	email := flag.String("email", "", "operator email (defaults to ADMIN_EMAIL)")
	password := flag.String("password", "", "new password, at least 8 characters")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	observability.SetupLogger(cfg.LogLevel, true)
	if cfg.StoreDriver != config.DriverPostgres {
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("Password reset needs the postgres store")
	}
	if *email == "" {
		*email = cfg.AdminEmail
	}
	if *password == "" {
		log.Fatal().Msg("-password is required")
	}

	// 2. Setup database
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	store := repository.NewGormStore(db, cfg.LockTimeout)
	defer store.Close()

	// 3. Reset
	auth := service.NewAuthService(store.Users(), store.Roles())
	if err := auth.ResetPassword(context.Background(), *email, *password); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			log.Fatal().Str("email", *email).Msg(err.Error())
		}
		log.Fatal().Err(err).Str("email", *email).Msg("Failed to reset password")
	}

	log.Info().Str("email", *email).Msg("Password has been reset")
}
