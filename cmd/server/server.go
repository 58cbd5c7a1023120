package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"gracechat-server/internal/config"
	"gracechat-server/internal/domain/guidance"
	"gracechat-server/internal/infrastructure/aiprovider"
	"gracechat-server/internal/infrastructure/auth"
	"gracechat-server/internal/infrastructure/database"
	"gracechat-server/internal/infrastructure/logger"
	"gracechat-server/internal/infrastructure/observability"
	conversationrepo "gracechat-server/internal/infrastructure/repository/conversation"
	"gracechat-server/internal/interfaces/httpserver"
)

type Application struct {
	httpServer *httpserver.HTTPServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HTTPServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	conversationRepository := conversationrepo.NewRepository(db)
	messageRepository := conversationrepo.NewMessageRepository(db)

	guide, providerName := buildProvider(cfg, log)

	httpServer := httpserver.New(cfg, log, guide, providerName, conversationRepository, messageRepository, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// buildProvider chooses the live upstream when a key is configured and the
// canned mock otherwise, so the server always starts.
func buildProvider(cfg *config.Config, log zerolog.Logger) (guidance.Provider, string) {
	if cfg.HasCredential() {
		live := aiprovider.NewLiveProvider(aiprovider.LiveConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.GuidanceModel,
			Timeout: cfg.UpstreamTimeout,
		}, log)
		return live, "live"
	}
	log.Warn().Msg("no upstream API key configured, serving mock guidance")
	return aiprovider.NewMockProvider(cfg.MockDelay), "mock"
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
