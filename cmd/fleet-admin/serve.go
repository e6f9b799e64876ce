package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fleet-admin/internal/auth"
	"fleet-admin/internal/config"
	httphandler "fleet-admin/internal/http"
	"fleet-admin/internal/http/middleware"
	"fleet-admin/internal/logger"
	"fleet-admin/internal/repository"
	"fleet-admin/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger := logger.New(cfg.Environment)

	stateRepo, closeStorage, err := openStateRepository(cfg, appLogger)
	if err != nil {
		appLogger.Error().Err(err).Msg("failed to open state storage")
		return err
	}
	defer closeStorage()

	stateService := service.NewStateService(stateRepo, logger.WithComponent(appLogger, "state"))
	if err := stateService.Initialize(ctx); err != nil {
		appLogger.Error().Err(err).Msg("failed to initialize state storage")
		return err
	}

	sessions, err := newSessionRepository(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error().Err(err).Msg("failed to set up session storage")
		return err
	}

	authService, err := newAuthService(cfg, sessions, appLogger)
	if err != nil {
		return err
	}

	handler := httphandler.NewHandler(stateService, authService, logger.WithComponent(appLogger, "http"))
	authMiddleware := middleware.Auth(authService)
	router := httphandler.NewRouter(handler, authMiddleware, httphandler.RouterConfig{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	}, logger.WithComponent(appLogger, "access"))

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", addr).Str("storage", cfg.Storage.Driver).Msg("starting fleet-admin server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error().Err(err).Msg("failed to start server")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLogger.Info().Msg("shutting down")
	return server.Shutdown(shutdownCtx)
}

func newSessionRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.SessionRepository, error) {
	if cfg.Auth.SessionStore == config.SessionStoreRedis {
		rdb, err := repository.NewRedisClient(ctx, cfg.Auth.RedisURL)
		if err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			rdb.Close()
		}()
		log.Info().Msg("using redis session storage")
		return repository.NewRedisSessionRepository(rdb), nil
	}

	sessions := repository.NewMemorySessionRepository()
	go sessions.RunJanitor(ctx, janitorInterval(cfg.Auth.SessionTTL))
	return sessions, nil
}

// janitorInterval sweeps four times per session lifetime, but at most once a
// minute.
func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func newAuthService(cfg *config.Config, sessions repository.SessionRepository, log zerolog.Logger) (*service.AuthService, error) {
	secret := cfg.Auth.AccessSecret
	if secret == "" {
		generated, err := auth.RandomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		secret = generated
		log.Warn().Msg("JWT_ACCESS_SECRET is not set; generated a random secret, sessions will not survive a restart")
	}

	var credentials *auth.Credentials
	if cfg.Auth.Enabled {
		var err error
		credentials, err = auth.NewCredentials(cfg.Auth.Username, cfg.Auth.Password, cfg.Auth.PasswordHash)
		if err != nil {
			return nil, err
		}
		if cfg.Auth.UsingDefaultCredentials() {
			log.Warn().Msg("authentication credentials not configured, using default admin/admin; set AUTH_USERNAME and AUTH_PASSWORD for production")
		}
	} else {
		log.Warn().Msg("authentication is disabled")
	}

	return service.NewAuthService(
		cfg.Auth.Enabled,
		cfg.Auth.Username,
		credentials,
		auth.NewIssuer(secret, cfg.Auth.SessionTTL),
		auth.NewParser(secret),
		sessions,
	), nil
}
