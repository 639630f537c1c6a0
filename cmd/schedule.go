package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <request...>",
		Short: "Send a single scheduling request",
		Long: `Send one request to Claude and print the reply, for example:

  claude-meet schedule "Schedule a meeting with alice@example.com tomorrow at 2pm"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			request := strings.TrimSpace(strings.Join(args, " "))
			if request == "" {
				return fmt.Errorf("request must not be empty")
			}

			a, err := newApp(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			client, err := connectCalendar(ctx, a, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			reply, err := a.relay(client).Turn(ctx, request)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}
