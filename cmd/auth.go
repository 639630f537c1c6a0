package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Connect your Google Calendar",
		Long: `Run the Google OAuth consent flow in your browser and store the
resulting token. The OAuth client is read from credentials.json in the
configuration directory or from config/client_secret*.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			out := cmd.OutOrStdout()
			if err := a.authorize(ctx, out); err != nil {
				return err
			}

			client, err := connectCalendar(ctx, a, out)
			if err != nil {
				return err
			}
			info, err := client.GetPrimaryCalendar(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Connected to calendar: %s\n", info.Summary)
			return nil
		},
	}
}
