package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/claude-meet/internal/calendar"
	"github.com/teemow/claude-meet/internal/server"
)

const (
	PrimaryCalendarURI = "calendar://primary"
	SettingsURI        = "calendar://settings"
)

// primaryCalendarReader is implemented by gateways that can describe the
// calendar they operate on.
type primaryCalendarReader interface {
	GetPrimaryCalendar(ctx context.Context) (*calendar.CalendarInfo, error)
}

// RegisterCalendarResources registers the calendar resources. The primary
// calendar resource is only added when the gateway can describe its calendar.
func RegisterCalendarResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Calendar() == nil {
		return fmt.Errorf("calendar gateway is required")
	}

	settingsResource := mcp.NewResource(
		SettingsURI,
		"Scheduling Settings",
		mcp.WithResourceDescription("Timezone and defaults applied by the calendar tools"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(settingsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSettings(ctx, request, sc)
	})

	if _, ok := sc.Calendar().(primaryCalendarReader); ok {
		primaryResource := mcp.NewResource(
			PrimaryCalendarURI,
			"Primary Calendar",
			mcp.WithResourceDescription("The Google calendar events are listed from and created in"),
			mcp.WithMIMEType("application/json"),
		)
		s.AddResource(primaryResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return handlePrimaryCalendar(ctx, request, sc)
		})
	}

	return nil
}

func handlePrimaryCalendar(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	reader, ok := sc.Calendar().(primaryCalendarReader)
	if !ok {
		return nil, fmt.Errorf("calendar gateway cannot describe its calendar")
	}

	info, err := reader.GetPrimaryCalendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary calendar: %w", err)
	}

	return jsonContents(request.Params.URI, map[string]any{
		"id":       info.ID,
		"summary":  info.Summary,
		"timeZone": info.TimeZone,
		"primary":  info.Primary,
	})
}

func handleSettings(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	return jsonContents(request.Params.URI, map[string]any{
		"timezone":               sc.Location().String(),
		"now":                    sc.Now().Format(time.RFC3339),
		"defaultDurationMinutes": int(sc.DefaultDuration().Minutes()),
		"maxSuggestions":         sc.MaxSuggestions(),
		"localTimeFormat":        "YYYY-MM-DDTHH:MM",
	})
}

func jsonContents(uri string, data map[string]any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
