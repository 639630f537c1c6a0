package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/teemow/claude-meet/internal/assistant"
	"github.com/teemow/claude-meet/internal/calendar"
	"github.com/teemow/claude-meet/internal/config"
	"github.com/teemow/claude-meet/internal/google"
	"github.com/teemow/claude-meet/internal/instrumentation"
	"github.com/teemow/claude-meet/internal/logging"
	"github.com/teemow/claude-meet/internal/server"
)

// app carries what every command needs once settings are resolved.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	audit    *instrumentation.AuditLogger
}

// newApp resolves settings, builds the logger and starts instrumentation.
// requireAPIKey makes a missing Anthropic key a configuration error.
func newApp(ctx context.Context, cmd *cobra.Command, requireAPIKey bool) (*app, error) {
	var cfg *config.Config
	if requireAPIKey {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, err
		}
	} else {
		cfg = config.LoadSettings()
	}
	if debugFlag {
		cfg.Debug = true
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.Debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		audit:    instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging),
	}, nil
}

func (a *app) metrics() *instrumentation.Metrics {
	return a.provider.Metrics()
}

// close flushes instrumentation. It still flushes when ctx was cancelled by
// Ctrl-C. Errors are logged, not returned.
func (a *app) close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
	defer cancel()
	if err := a.provider.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("instrumentation shutdown failed", logging.Err(err))
	}
}

func (a *app) tokenStore() *google.TokenStore {
	return google.NewTokenStore(a.cfg.TokenPath())
}

// authorize runs the browser consent flow and saves the resulting token.
func (a *app) authorize(ctx context.Context, out io.Writer) error {
	conf, err := google.LoadClientConfig(a.cfg.ClientSecretPaths()...)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Opening your browser to connect Google Calendar...")
	tok, err := google.Authorize(ctx, conf, openBrowser, out)
	if err != nil {
		a.metrics().RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return err
	}
	a.metrics().RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	if err := a.tokenStore().Save(tok); err != nil {
		return &google.AuthenticationError{Op: "save token", Err: err}
	}
	a.logger.Debug("saved OAuth token", "path", a.tokenStore().Path())
	return nil
}

// calendarClient returns an authenticated Calendar client. Without a stored
// token it runs the consent flow first, writing its prompts to out.
func (a *app) calendarClient(ctx context.Context, out io.Writer) (*calendar.Client, error) {
	conf, err := google.LoadClientConfig(a.cfg.ClientSecretPaths()...)
	if err != nil {
		return nil, err
	}

	if !a.tokenStore().Exists() {
		if err := a.authorize(ctx, out); err != nil {
			return nil, err
		}
	}

	metrics := a.metrics()
	httpClient, err := google.NewClient(ctx, conf, a.tokenStore(),
		google.WithRefreshObserver(func(result string) {
			metrics.RecordOAuthTokenRefresh(ctx, result)
		}))
	if err != nil {
		return nil, err
	}

	return calendar.NewClient(ctx, httpClient, calendar.Options{
		Location: a.cfg.Location(),
		Preferences: calendar.Preferences{
			BusinessHoursStart: a.cfg.BusinessHoursStart,
			BusinessHoursEnd:   a.cfg.BusinessHoursEnd,
			MaxSuggestions:     a.cfg.MaxSuggestions,
			PreferMorning:      a.cfg.PreferMorning,
			AvoidLunch:         a.cfg.AvoidLunch,
		},
		Metrics: metrics,
		Logger:  a.logger,
	})
}

// calendarService is what the commands use from calendar.Client.
type calendarService interface {
	assistant.CalendarGateway
	GetPrimaryCalendar(ctx context.Context) (*calendar.CalendarInfo, error)
}

// connectCalendar is swapped out in tests.
var connectCalendar = func(ctx context.Context, a *app, out io.Writer) (calendarService, error) {
	return a.calendarClient(ctx, out)
}

// relay builds a conversation relay over gateway from the resolved settings.
func (a *app) relay(gateway assistant.CalendarGateway) *assistant.Relay {
	return assistant.New(assistant.NewAnthropicClient(a.cfg.APIKey, anthropicOptions...), gateway, assistant.Options{
		Model:              a.cfg.Model,
		MaxTokens:          int64(a.cfg.MaxTokens),
		Location:           a.cfg.Location(),
		BusinessHoursStart: a.cfg.BusinessHoursStart,
		BusinessHoursEnd:   a.cfg.BusinessHoursEnd,
		DefaultDuration:    a.cfg.DefaultMeetingDuration(),
		MaxSuggestions:     a.cfg.MaxSuggestions,
		MaxToolRounds:      a.cfg.MaxToolRounds,
		Metrics:            a.metrics(),
		Audit:              a.audit,
		Logger:             a.logger,
	})
}

// anthropicOptions are appended to every Messages API client; tests point it
// at a fake server.
var anthropicOptions []option.RequestOption

// openBrowser is swapped out in tests.
var openBrowser google.URLOpener = func(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}

// printError writes err for the user. With debug set, every wrapped cause is
// listed on its own line.
func printError(w io.Writer, err error, debug bool) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if !debug {
		return
	}
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(w, "  caused by: %v\n", cause)
	}
}

func debugEnabled() bool {
	if debugFlag {
		return true
	}
	return config.LoadSettings().Debug
}

var stderr io.Writer = os.Stderr
