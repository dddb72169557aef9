package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/bakkerme/polaris/internal/composer"
	"github.com/bakkerme/polaris/internal/config"
	"github.com/bakkerme/polaris/internal/logging"
)

func main() {
	root := &cobra.Command{
		Use:           "polaris",
		Short:         "Polaris: multimodal chat relay",
		Long:          "Polaris relays prompts with image and file attachments to an OpenAI-compatible chat API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(askCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the process logger. The returned
// closer flushes the log file, if any.
func setup() (config.EnvConfig, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.EnvConfig{}, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return config.EnvConfig{}, nil, nil, fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(logger)
	if cfg.ConfigPath != "" {
		logger.Debug("configuration loaded", "config", cfg.ConfigPath)
	}
	return cfg, logger, closer, nil
}

func newComposer(cfg config.ComposerEnvConfig, url string, logger *slog.Logger, notifier composer.Notifier) *composer.Composer {
	if url == "" {
		url = cfg.URL
	}
	return composer.New(composer.Config{
		URL:        url,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Notifier:   notifier,
		Logger:     logger,
	})
}

// stderrNotifier prints notifications where a terminal user will see them
// without mixing them into answers on stdout.
func stderrNotifier(w io.Writer) composer.Notifier {
	return composer.NotifierFunc(func(n composer.Notification) {
		fmt.Fprintf(w, "%s: %s\n", n.Title, n.Description)
	})
}
