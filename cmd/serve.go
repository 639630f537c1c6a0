package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/claude-meet/internal/resources"
	"github.com/teemow/claude-meet/internal/server"
	"github.com/teemow/claude-meet/internal/tools/calendar_tools"
)

func newServeCmd() *cobra.Command {
	var (
		readOnly    bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start a Model Context Protocol (MCP) server on stdin/stdout that exposes
the calendar tools (list_upcoming_events, check_availability,
find_available_slots and create_event) to MCP clients, along with the
calendar://primary and calendar://settings resources.

Logs are written to stderr so they never interleave with the protocol stream.
Run 'claude-meet auth' first; the server does not start a consent flow.

Safety Mode:
  Use --read-only to leave out create_event.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, cmd, readOnly, metricsAddr)
		},
	}

	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Only register tools that do not modify the calendar")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and health probes on this address (e.g. 127.0.0.1:9090). Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, readOnly bool, metricsAddr string) error {
	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	if metricsAddr == "" {
		metricsAddr = os.Getenv("METRICS_ADDR")
	}

	if !a.tokenStore().Exists() {
		return fmt.Errorf("no Google credentials found; run 'claude-meet auth' first")
	}
	// Consent prompts would corrupt the stdio stream, so they go to stderr.
	client, err := connectCalendar(ctx, a, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	serverContext := server.NewServerContext(ctx, client, server.Options{
		Location:        a.cfg.Location(),
		DefaultDuration: a.cfg.DefaultMeetingDuration(),
		MaxSuggestions:  a.cfg.MaxSuggestions,
		Metrics:         a.metrics(),
		AuditLogger:     a.audit,
		Logger:          a.logger,
	})
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := newMCPServer()
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, serverContext, readOnly); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}
	if err := resources.RegisterCalendarResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register calendar resources: %w", err)
	}

	stopMetrics, err := startMetricsServer(a, metricsAddr, serverContext)
	if err != nil {
		return fmt.Errorf("failed to create metrics server: %w", err)
	}
	defer stopMetrics(ctx)

	a.logger.Info("starting MCP server", "transport", "stdio", "read_only", readOnly)
	return runStdioServer(ctx, mcpSrv)
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("claude-meet", version,
		mcpserver.WithToolCapabilities(true),
	)
}

// runStdioServer serves until stdin closes or ctx is cancelled.
func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
