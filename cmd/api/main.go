package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"

	"github.com/stevenvinci05/portfolio/internal/auth"
	"github.com/stevenvinci05/portfolio/internal/codepreview"
	"github.com/stevenvinci05/portfolio/internal/config"
	"github.com/stevenvinci05/portfolio/internal/github"
	"github.com/stevenvinci05/portfolio/internal/portfolio"
	"github.com/stevenvinci05/portfolio/internal/store"
	"github.com/stevenvinci05/portfolio/internal/web"
)

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("portfolio-api", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	logger.Info().Str("log_level", cfg.LogLevel).Int("port", cfg.Port).Msg("starting portfolio api")

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Optional Redis for revoking sessions on logout
	var revoker auth.Revoker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid redis url: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable; sessions will not be revocable")
		} else {
			revoker = auth.NewRedisRevoker(rdb)
			logger.Info().Msg("session revocation enabled")
		}
		cancel()
	}

	secret := cfg.Auth.JwtSecret
	if secret == "" {
		secret = auth.GenerateSecret()
		logger.Warn().Msg("no jwt secret configured; generated one, sessions will not survive a restart")
	}
	am := auth.NewManager(secret, cfg.Auth.SessionTTL, st, revoker)

	gh, err := github.NewClient(cfg.Github.APIURL, cfg.Github.Timeout)
	if err != nil {
		log.Fatalf("Failed to create GitHub client: %v", err)
	}
	fetcher := codepreview.NewFetcher(gh)
	fetcher.PrimaryBranch = cfg.Github.PrimaryBranch
	fetcher.FallbackBranch = cfg.Github.FallbackBranch
	fetcher.Timeout = cfg.Github.Timeout
	resolver := codepreview.NewResolver(fetcher)
	resolver.Limit = cfg.Github.PreviewLimit
	logger.Info().Str("api", cfg.Github.APIURL).Int("preview_limit", resolver.Limit).Msg("code preview configured")

	svc := portfolio.NewService(st, resolver)
	if cfg.Admin.Password != "" {
		created, err := svc.EnsureAdmin(logger.WithContext(ctx), cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.Fatalf("Failed to ensure admin account: %v", err)
		}
		logger.Info().Bool("created", created).Str("username", cfg.Admin.Username).Msg("admin account checked")
	}

	tpl, err := web.LoadTemplates(cfg.TemplatesDir)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	srv := web.NewServer(svc, am, tpl, web.Options{
		StaticDir:    cfg.StaticDir,
		CookieSecure: cfg.Auth.CookieSecure,
	})

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(srv.Routes()),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}
