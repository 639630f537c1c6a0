package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/claude-meet/internal/calendar"
)

const defaultUpcomingCount = 10

func newUpcomingCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List your next calendar events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			client, err := connectCalendar(ctx, a, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			events, err := client.ListUpcoming(ctx, count)
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout(), events, a.cfg.Location())
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", defaultUpcomingCount, "Number of events to show")

	return cmd
}

func printEvents(w io.Writer, events []calendar.EventSummary, loc *time.Location) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No upcoming events found.")
		return
	}

	fmt.Fprintf(w, "Upcoming events (%s):\n\n", loc)
	for _, ev := range events {
		title := ev.Summary
		if title == "" {
			title = "(no title)"
		}
		fmt.Fprintf(w, "  %s  %s\n", formatWhen(ev, loc), title)
		if len(ev.Attendees) > 0 {
			fmt.Fprintf(w, "      with %s\n", strings.Join(ev.Attendees, ", "))
		}
		if ev.MeetLink != "" {
			fmt.Fprintf(w, "      %s\n", ev.MeetLink)
		}
	}
}

func formatWhen(ev calendar.EventSummary, loc *time.Location) string {
	start := ev.Start.In(loc)
	if ev.AllDay {
		return start.Format("Mon Jan 02") + "  all day    "
	}
	return start.Format("Mon Jan 02 15:04") + "-" + ev.End.In(loc).Format("15:04")
}
