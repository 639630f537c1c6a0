package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/claude-meet/internal/config"
)

// conversation is the part of assistant.Relay the chat loop drives.
type conversation interface {
	Turn(ctx context.Context, text string) (string, error)
	Reset()
}

func newChatCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive scheduling session",
		Long: `Start an interactive session with Claude. Describe what you need in
plain language; Claude checks your calendar and creates events for you.

Commands understood locally:
  help                       Show this list
  clear                      Forget the conversation so far
  config, settings, timezone Show the current settings
  exit, quit, q              End the session`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runChat(ctx, cmd, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and health probes on this address (e.g. 127.0.0.1:9090)")

	return cmd
}

func runChat(ctx context.Context, cmd *cobra.Command, metricsAddr string) error {
	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	out := cmd.OutOrStdout()
	printBanner(out, a.cfg)

	stopMetrics, err := startMetricsServer(a, metricsAddr, nil)
	if err != nil {
		return err
	}
	defer stopMetrics(ctx)

	client, err := connectCalendar(ctx, a, out)
	if err != nil {
		return err
	}
	if info, err := client.GetPrimaryCalendar(ctx); err == nil {
		fmt.Fprintf(out, "Connected to calendar: %s\n\n", info.Summary)
	} else {
		a.logger.Debug("could not read primary calendar", "error", err)
	}

	session := &chatSession{
		conv:   a.relay(client),
		cfg:    a.cfg,
		in:     cmd.InOrStdin(),
		out:    out,
		errOut: cmd.ErrOrStderr(),
	}
	return session.run(ctx)
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "claude-meet: schedule meetings in plain language")
	fmt.Fprintf(w, "Timezone: %s | Model: %s\n", cfg.Timezone, cfg.Model)
	fmt.Fprintln(w, "Type 'help' for commands, 'exit' to quit.")
	fmt.Fprintln(w)
}

// chatSession reads user lines and hands everything that is not a local
// command to the conversation.
type chatSession struct {
	conv   conversation
	cfg    *config.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// run loops until exit, end of input or ctx cancellation. A failed turn is
// reported and the session continues.
func (s *chatSession) run(ctx context.Context) error {
	lines := readLines(ctx, s.in)

	for {
		fmt.Fprint(s.out, "You: ")

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			s.goodbye()
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			s.goodbye()
			return nil
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}

		if isLocalCommand(text) {
			if s.handleCommand(text) {
				return nil
			}
			continue
		}

		reply, err := s.conv.Turn(ctx, text)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				s.goodbye()
				return nil
			}
			printError(s.errOut, err, s.cfg.Debug)
			fmt.Fprintln(s.errOut)
			continue
		}
		fmt.Fprintf(s.out, "\nClaude: %s\n\n", reply)
	}
}

func (s *chatSession) goodbye() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Goodbye!")
}

func isLocalCommand(text string) bool {
	switch strings.ToLower(text) {
	case "help", "clear", "exit", "quit", "q", "config", "settings", "timezone":
		return true
	}
	return false
}

// handleCommand runs a local command. It reports whether the session should end.
func (s *chatSession) handleCommand(text string) bool {
	switch strings.ToLower(text) {
	case "exit", "quit", "q":
		fmt.Fprintln(s.out, "Goodbye!")
		return true
	case "help":
		printChatHelp(s.out)
	case "clear":
		s.conv.Reset()
		fmt.Fprintln(s.out, "Conversation cleared.")
		fmt.Fprintln(s.out)
	case "config", "settings":
		printSettings(s.out, s.cfg)
		fmt.Fprintln(s.out)
	case "timezone":
		fmt.Fprintf(s.out, "Current timezone: %s\n", s.cfg.Timezone)
		fmt.Fprintln(s.out, "Run 'claude-meet setup' to change it.")
		fmt.Fprintln(s.out)
	}
	return false
}

func printChatHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  help                        Show this list")
	fmt.Fprintln(w, "  clear                       Forget the conversation so far")
	fmt.Fprintln(w, "  config, settings, timezone  Show the current settings")
	fmt.Fprintln(w, "  exit, quit, q               End the session")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Anything else is sent to Claude, for example:")
	fmt.Fprintln(w, "  What's on my calendar this week?")
	fmt.Fprintln(w, "  Find 30 minutes with alice@example.com tomorrow")
	fmt.Fprintln(w, "  Schedule a meeting with bob@example.com on Friday at 2pm")
	fmt.Fprintln(w)
}

// readLines delivers input lines on a channel that is closed at end of input.
// The reader goroutine exits once ctx is done and its pending read returns.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
