package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/claude-meet/internal/config"
)

func newSetupCmd() *cobra.Command {
	var timezone string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Set your timezone",
		Long: `Save the timezone used to interpret and display meeting times.
Without --timezone you are prompted for an IANA name such as
Europe/Berlin or America/New_York.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadSettings()
			out := cmd.OutOrStdout()

			if !cmd.Flags().Changed("timezone") {
				var err error
				timezone, err = promptTimezone(cmd.InOrStdin(), out, cfg.Timezone)
				if err != nil {
					return err
				}
			}

			if err := cfg.SaveTimezone(timezone); err != nil {
				return err
			}
			fmt.Fprintf(out, "Timezone set to %s (saved to %s)\n", strings.TrimSpace(timezone), cfg.SettingsPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone name, e.g. Europe/Berlin")

	return cmd
}

// promptTimezone asks for a timezone; an empty answer keeps current.
func promptTimezone(in io.Reader, out io.Writer, current string) (string, error) {
	fmt.Fprintf(out, "Timezone [%s]: ", current)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read timezone: %w", err)
	}

	if tz := strings.TrimSpace(line); tz != "" {
		return tz, nil
	}
	return current, nil
}
