package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bakkerme/polaris/internal/agentic"
	"github.com/bakkerme/polaris/internal/api"
	"github.com/bakkerme/polaris/internal/config"
	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
	"github.com/bakkerme/polaris/internal/llm/openai"
	"github.com/bakkerme/polaris/internal/observability/otelx"
	"github.com/bakkerme/polaris/internal/relay"
	"github.com/bakkerme/polaris/internal/sentiment"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := otelx.Init(ctx, logger, cfg.OTel)
			if err != nil {
				// Tracing is optional; the relay still serves without it.
				logger.Warn("tracing disabled", "error", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := shutdownTracing(sctx); err != nil {
					logger.Warn("tracing shutdown", "error", err)
				}
			}()

			chat := openai.NewClient(cfg.OpenAI)
			r := relay.New(chat, relay.Config{
				Model:        cfg.OpenAI.Model,
				SystemPrompt: cfg.Relay.SystemPrompt,
				Temperature:  cfg.Relay.Temperature,
				MaxTokens:    cfg.Relay.MaxTokens,
			})
			inference := openai.NewInferenceClient(cfg.OpenAI)
			index := buildEventIndex(core.WithLogger(ctx, logger), inference, cfg.Agentic)
			agent := agentic.New(chat, index, agentic.Config{Model: cfg.Agentic.Model, TopK: cfg.Agentic.TopK})
			analyzer := sentiment.New(inference, sentiment.Config{
				Model:    cfg.Sentiment.Model,
				Comments: cfg.Sentiment.Comments,
			})
			server := api.NewServer(cfg.Server, r, logger, api.WithAgent(agent), api.WithSentiment(analyzer))

			if addr == "" {
				addr = ":" + cfg.Server.Port
			}
			logger.Info("starting relay", "model", cfg.OpenAI.Model, "base_url", cfg.OpenAI.BaseURL)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down relay")
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(sctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":$PORT\")")
	return cmd
}

// buildEventIndex loads and embeds the configured events. Failures leave the
// agent without events rather than stopping the server.
func buildEventIndex(ctx context.Context, embedder llm.Embedder, cfg config.AgenticEnvConfig) *agentic.Index {
	logger := core.LoggerFromContext(ctx)
	events, err := agentic.LoadEvents(cfg.EventsFile)
	if err != nil {
		logger.Warn("event search disabled", "error", err)
		return nil
	}
	if len(events) == 0 {
		logger.Info("no events configured", "events_file", cfg.EventsFile)
		return nil
	}
	index, err := agentic.NewIndex(ctx, embedder, cfg.EmbeddingModel, events)
	if err != nil {
		logger.Warn("event search disabled", "error", err)
		return nil
	}
	return index
}
