package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the claude-meet application
var rootCmd = &cobra.Command{
	Use:   "claude-meet",
	Short: "Schedule Google Calendar meetings in plain language",
	Long: `claude-meet lets you talk to your Google Calendar. Requests such as
"find 30 minutes with alice@example.com next week" are answered by Claude,
which checks availability and creates events on your behalf.

It can run as:
  - An interactive chat session (chat)
  - A one-shot request (schedule)
  - An MCP (Model Context Protocol) server exposing the calendar tools (serve)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// version will be set by main
var version = "dev"

// debugFlag is bound to the persistent --debug flag.
var debugFlag bool

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "claude-meet version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		printError(stderr, err, debugEnabled())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging and print full error chains")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newUpcomingCmd())
	rootCmd.AddCommand(newSetupCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
