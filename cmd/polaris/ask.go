package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bakkerme/polaris/internal/composer"
)

func askCmd() *cobra.Command {
	var (
		url         string
		attachments []string
	)

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a single prompt with optional attachments and print the answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			atts := make([]composer.Attachment, 0, len(attachments))
			for _, path := range attachments {
				att, err := composer.LoadAttachment(path)
				if err != nil {
					return err
				}
				atts = append(atts, att)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := newComposer(cfg.Composer, url, logger, stderrNotifier(cmd.ErrOrStderr()))
			turn, err := c.Send(ctx, strings.Join(args, " "), atts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), turn.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "relay chat endpoint (default $POLARIS_URL)")
	cmd.Flags().StringArrayVarP(&attachments, "attach", "a", nil, "file or image to attach (repeatable)")
	return cmd
}
