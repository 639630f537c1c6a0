package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/claude-meet/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "config",
		Aliases: []string{"settings"},
		Short:   "Show the resolved settings",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printSettings(cmd.OutOrStdout(), config.LoadSettings())
		},
	}
}

func printSettings(w io.Writer, cfg *config.Config) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range cfg.Settings() {
		fmt.Fprintf(tw, "%s:\t%s\n", s.Key, s.Value)
	}
	_ = tw.Flush()
}
