package calendar_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/claude-meet/internal/calendar"
	"github.com/teemow/claude-meet/internal/server"
	"github.com/teemow/claude-meet/internal/tools/common"
)

const defaultListCount = 10

// RegisterEventTools registers event-related tools with the MCP server
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listUpcomingTool := mcp.NewTool("list_upcoming_events",
		mcp.WithDescription("List upcoming events on the primary calendar, soonest first"),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of events to return (default: 10)"),
		),
	)

	s.AddTool(listUpcomingTool, common.InstrumentedToolHandler("list_upcoming_events", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListUpcoming(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	createEventTool := mcp.NewTool("create_event",
		mcp.WithDescription("Create an event on the primary calendar and send invitations to the attendees"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time (RFC3339, e.g. '2025-01-15T14:00:00+01:00', or local 'YYYY-MM-DDTHH:MM')"),
		),
		mcp.WithString("end",
			mcp.Description("End time. Defaults to start plus the default meeting duration"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("location",
			mcp.Description("Event location"),
		),
		mcp.WithBoolean("add_meet",
			mcp.Description("Attach a Google Meet link to the event"),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandler("create_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	return nil
}

func handleListUpcoming(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	maxResults := common.IntArg(args, "max_results", defaultListCount)
	if maxResults < 1 {
		return mcp.NewToolResultError("max_results must be at least 1"), nil
	}

	events, err := sc.Calendar().ListUpcoming(ctx, maxResults)
	if err != nil {
		return toolError("list upcoming events", err), nil
	}

	if len(events) == 0 {
		return mcp.NewToolResultText("No upcoming events found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Upcoming %d event(s):\n\n", len(events))
	for _, ev := range events {
		formatEvent(&b, ev)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	loc := sc.Location()

	title := common.StringArg(args, "title")
	if title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}

	start, err := common.TimeArg(args, "start", true, loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := common.TimeArg(args, "end", false, loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if end.IsZero() {
		end = start.Add(sc.DefaultDuration())
	}

	ev, err := sc.Calendar().CreateEvent(ctx, calendar.EventInput{
		Summary:     title,
		Description: common.StringArg(args, "description"),
		Location:    common.StringArg(args, "location"),
		Start:       start,
		End:         end,
		Attendees:   common.ParseEmailList(args["attendees"]),
		AddMeet:     common.BoolArg(args, "add_meet"),
	})
	if err != nil {
		return toolError("create event", err), nil
	}

	var b strings.Builder
	b.WriteString("Event created successfully.\n\n")
	formatEvent(&b, *ev)
	if ev.HTMLLink != "" {
		fmt.Fprintf(&b, "  Link: %s\n", ev.HTMLLink)
	}
	return mcp.NewToolResultText(b.String()), nil
}
