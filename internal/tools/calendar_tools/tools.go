package calendar_tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/claude-meet/internal/calendar"
	"github.com/teemow/claude-meet/internal/server"
)

// RegisterCalendarTools registers all Calendar-related tools with the MCP server.
// In read-only mode create_event is not registered.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc.Calendar() == nil {
		return fmt.Errorf("calendar gateway is required")
	}

	if err := RegisterEventTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}

	if err := RegisterSchedulingTools(s, sc); err != nil {
		return fmt.Errorf("failed to register scheduling tools: %w", err)
	}

	return nil
}

// toolError turns a handler failure into an MCP error result. Calendar API
// errors keep their status code in the message.
func toolError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}

func formatEvent(b *strings.Builder, ev calendar.EventSummary) {
	fmt.Fprintf(b, "- %s\n", orDefault(ev.Summary, "(no title)"))
	if ev.AllDay {
		fmt.Fprintf(b, "  When: %s (all day)\n", ev.Start.Format("Mon Jan 2, 2006"))
	} else {
		fmt.Fprintf(b, "  When: %s - %s\n", ev.Start.Format("Mon Jan 2, 2006 15:04"), ev.End.Format("15:04 MST"))
	}
	fmt.Fprintf(b, "  ID: %s\n", ev.ID)
	if ev.Location != "" {
		fmt.Fprintf(b, "  Location: %s\n", ev.Location)
	}
	if len(ev.Attendees) > 0 {
		fmt.Fprintf(b, "  Attendees: %s\n", strings.Join(ev.Attendees, ", "))
	}
	if ev.MeetLink != "" {
		fmt.Fprintf(b, "  Meet: %s\n", ev.MeetLink)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
