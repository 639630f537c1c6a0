package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/claude-meet/internal/calendar"
	"github.com/teemow/claude-meet/internal/server"
	"github.com/teemow/claude-meet/internal/tools/common"
)

const defaultSearchDays = 7

// RegisterSchedulingTools registers scheduling and availability tools with the MCP server
func RegisterSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	checkAvailabilityTool := mcp.NewTool("check_availability",
		mcp.WithDescription("Return the busy periods of one or more calendars within a time range"),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start of the range (RFC3339 or local 'YYYY-MM-DDTHH:MM')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End of the range (RFC3339 or local 'YYYY-MM-DDTHH:MM')"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of email addresses to check (default: your own calendar)"),
		),
	)

	s.AddTool(checkAvailabilityTool, common.InstrumentedToolHandler("check_availability", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCheckAvailability(ctx, request, sc)
		}))

	findSlotsTool := mcp.NewTool("find_available_slots",
		mcp.WithDescription("Suggest free time slots within business hours when all attendees are available"),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithNumber("duration_minutes",
			mcp.Description("Meeting duration in minutes (default: configured meeting duration)"),
		),
		mcp.WithString("start",
			mcp.Description("Earliest slot start (default: now)"),
		),
		mcp.WithString("end",
			mcp.Description("Latest slot end (default: seven days after start)"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of suggestions"),
		),
	)

	s.AddTool(findSlotsTool, common.InstrumentedToolHandler("find_available_slots", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindSlots(ctx, request, sc)
		}))

	return nil
}

func handleCheckAvailability(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	loc := sc.Location()

	start, err := common.TimeArg(args, "start", true, loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := common.TimeArg(args, "end", true, loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !end.After(start) {
		return mcp.NewToolResultError("end must be after start"), nil
	}

	infos, err := sc.Calendar().CheckAvailability(ctx, calendar.TimeRange{Start: start, End: end}, common.ParseEmailList(args["attendees"]))
	if err != nil {
		return toolError("check availability", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Availability from %s to %s:\n\n", start.Format("Mon Jan 2 15:04"), end.Format("Mon Jan 2 15:04 MST"))
	for _, info := range infos {
		fmt.Fprintf(&b, "%s:\n", info.Calendar)
		for _, e := range info.Errors {
			fmt.Fprintf(&b, "  Error: %s\n", e)
		}
		if len(info.Busy) == 0 && len(info.Errors) == 0 {
			b.WriteString("  Free for the whole range\n")
		}
		for _, busy := range info.Busy {
			fmt.Fprintf(&b, "  Busy: %s - %s\n", busy.Start.Format("Mon Jan 2 15:04"), busy.End.Format("15:04"))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleFindSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	loc := sc.Location()

	q := calendar.SlotQuery{
		Attendees:  common.ParseEmailList(args["attendees"]),
		Duration:   sc.DefaultDuration(),
		MaxResults: common.IntArg(args, "max_results", sc.MaxSuggestions()),
	}
	if minutes := common.IntArg(args, "duration_minutes", 0); minutes != 0 {
		if minutes < 0 {
			return mcp.NewToolResultError("duration_minutes must be positive"), nil
		}
		q.Duration = time.Duration(minutes) * time.Minute
	}

	var err error
	if q.From, err = common.TimeArg(args, "start", false, loc); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if q.From.IsZero() {
		q.From = sc.Now()
	}
	if q.To, err = common.TimeArg(args, "end", false, loc); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if q.To.IsZero() {
		q.To = q.From.AddDate(0, 0, defaultSearchDays)
	}

	slots, err := sc.Calendar().FindAvailableSlots(ctx, q)
	if err != nil {
		return toolError("find available slots", err), nil
	}

	if len(slots) == 0 {
		return mcp.NewToolResultText("No available slots found in the requested range."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d available slot(s) of %d minutes:\n\n", len(slots), int(q.Duration.Minutes()))
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, slot.Start.Format("Mon Jan 2, 2006 15:04"), slot.End.Format("15:04 MST"))
	}
	return mcp.NewToolResultText(b.String()), nil
}
