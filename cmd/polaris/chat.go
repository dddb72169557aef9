package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/bakkerme/polaris/internal/composer"
)

const chatHelp = `commands:
  /attach <path>  add a file or image to the next message
  /detach <n>     remove pending attachment n
  /list           show pending attachments
  /clear          forget the conversation
  /quit           exit
anything else is sent as a prompt`

func chatCmd() *cobra.Command {
	var (
		url            string
		transcriptHTML string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat with the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "you> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "/quit",
			})
			if err != nil {
				return fmt.Errorf("init terminal: %w", err)
			}
			defer rl.Close()

			c := newComposer(cfg.Composer, url, logger, stderrNotifier(rl.Stderr()))
			session := &chatSession{composer: c, out: rl.Stdout()}
			fmt.Fprintln(session.out, chatHelp)

			for ctx.Err() == nil {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				if session.handle(ctx, line) {
					break
				}
			}

			if transcriptHTML != "" {
				return writeTranscript(c.Transcript(), transcriptHTML)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "relay chat endpoint (default $POLARIS_URL)")
	cmd.Flags().StringVar(&transcriptHTML, "transcript-html", "", "write the conversation as HTML to this path on exit")
	return cmd
}

// chatSession interprets REPL input against a Composer.
type chatSession struct {
	composer *composer.Composer
	out      io.Writer
}

// handle runs one input line and reports whether the session should end.
func (s *chatSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		s.send(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true
	case "/attach":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: /attach <path>")
			return false
		}
		att, err := composer.LoadAttachment(arg)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return false
		}
		s.composer.Pending().Add(att)
		fmt.Fprintf(s.out, "attached [%s] %s (%s)\n", att.Kind, att.Name, att.MIMEType)
	case "/detach":
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(s.out, "usage: /detach <n>")
			return false
		}
		removed, err := s.composer.Pending().Remove(n - 1)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return false
		}
		fmt.Fprintf(s.out, "detached %s\n", removed.Name)
	case "/list":
		atts := s.composer.Pending().Attachments()
		if len(atts) == 0 {
			fmt.Fprintln(s.out, "no pending attachments")
		}
		for i, att := range atts {
			fmt.Fprintf(s.out, "%d. [%s] %s (%s)\n", i+1, att.Kind, att.Name, att.MIMEType)
		}
	case "/clear":
		s.composer.Transcript().Reset()
		s.composer.Pending().Clear()
		fmt.Fprintln(s.out, "conversation cleared")
	case "/help":
		fmt.Fprintln(s.out, chatHelp)
	default:
		fmt.Fprintf(s.out, "unknown command %s\n", name)
	}
	return false
}

func (s *chatSession) send(ctx context.Context, prompt string) {
	turn, err := s.composer.Submit(ctx, prompt)
	if err != nil {
		// Empty and busy sends are no-ops; failures were already notified.
		return
	}
	fmt.Fprintf(s.out, "polaris> %s\n", turn.Content)
}

func writeTranscript(t *composer.Transcript, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	if err := t.WriteHTML(f); err != nil {
		f.Close()
		return fmt.Errorf("write transcript: %w", err)
	}
	return f.Close()
}
