package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/claude-meet/internal/config"
	"github.com/teemow/claude-meet/internal/google"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Google credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadSettings()
			if err := google.NewTokenStore(cfg.TokenPath()).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials cleared. Run 'claude-meet auth' to re-authenticate.")
			return nil
		},
	}
}
