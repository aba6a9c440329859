package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/antoniostano/echoroom/internal/admission"
	"github.com/antoniostano/echoroom/internal/config"
	"github.com/antoniostano/echoroom/internal/httpapi"
	"github.com/antoniostano/echoroom/internal/knowledge"
	"github.com/antoniostano/echoroom/internal/llm"
	"github.com/antoniostano/echoroom/internal/memory"
	"github.com/antoniostano/echoroom/internal/observability"
	"github.com/antoniostano/echoroom/internal/persona"
	"github.com/antoniostano/echoroom/internal/planner"
	"github.com/antoniostano/echoroom/internal/turn"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	facts, err := knowledge.NewFactSource(ctx, cfg.KnowledgeDir, cfg.KnowledgeDatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("fact source init failed")
	}
	defer facts.Close()

	client, err := llm.NewClient(llm.Config{
		Mode:            cfg.LLMProvider,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		HTTPURL:         cfg.LLMHTTPURL,
		MaxTokens:       cfg.MaxCompletionTokens,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("completion client init failed")
	}

	admit := admission.New(admission.Config{
		Paused:        cfg.Paused,
		AccessCode:    cfg.AccessCode,
		MinInterval:   cfg.MinSessionInterval,
		MaxPerWindow:  cfg.MaxRequestsPer10m,
		DailyTokenCap: cfg.DailyTokenCap,
	})

	pipeline := turn.New(
		planner.New(nil),
		memory.NewStore(),
		facts,
		client,
		admit,
		metrics,
		log.Logger,
		cfg.MaxSessionTurns,
		cfg.MaxResponseWords,
	)

	api := httpapi.New(cfg, persona.NewLibrary(cfg.PersonasDir), admit, pipeline, metrics, log.Logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	log.Info().Msg("shutdown complete")
}
