package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/stevenvinci05/portfolio/internal/config"
	"github.com/stevenvinci05/portfolio/internal/portfolio"
	"github.com/stevenvinci05/portfolio/internal/store"
)

func main() {
	fs := pflag.NewFlagSet("portfolio-initdb", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		log.Fatal(err)
	}
	logger.Info().Msg("database schema up to date")

	svc := portfolio.NewService(st, nil)
	created, err := svc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if errors.Is(err, portfolio.ErrNoAdminPassword) {
		log.Fatal("no admin account exists; set PORTFOLIO_ADMIN_PASSWORD or --admin-password")
	}
	if err != nil {
		log.Fatal(err)
	}
	if created {
		logger.Info().Str("username", cfg.Admin.Username).Msg("admin account created")
	} else {
		logger.Info().Str("username", cfg.Admin.Username).Msg("admin account already exists")
	}
}
