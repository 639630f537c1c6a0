package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/teemow/claude-meet/internal/logging"
	"github.com/teemow/claude-meet/internal/server"
)

// startMetricsServer serves /metrics and the health probes on addr in the
// background. An empty addr disables it. The returned function stops the server.
func startMetricsServer(a *app, addr string, sc *server.ServerContext) (func(context.Context), error) {
	if addr == "" {
		return func(context.Context) {}, nil
	}

	health := server.NewHealthChecker(sc, version)
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: a.provider,
		Health:                  health,
		Logger:                  a.logger,
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	health.SetReady(true)

	return func(ctx context.Context) {
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}, nil
}
