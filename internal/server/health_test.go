package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/claude-meet/internal/calendar"
)

type nopGateway struct{}

func (nopGateway) ListUpcoming(context.Context, int) ([]calendar.EventSummary, error) {
	return nil, nil
}

func (nopGateway) CheckAvailability(context.Context, calendar.TimeRange, []string) ([]calendar.FreeBusyInfo, error) {
	return nil, nil
}

func (nopGateway) CreateEvent(context.Context, calendar.EventInput) (*calendar.EventSummary, error) {
	return &calendar.EventSummary{}, nil
}

func (nopGateway) FindAvailableSlots(context.Context, calendar.SlotQuery) ([]calendar.AvailableSlot, error) {
	return nil, nil
}

func probe(t *testing.T, h http.Handler) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, resp
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(nil, "1.2.3")

	code, resp := probe(t, h.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthStatusOK, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		gateway    CalendarGateway
		ready      bool
		shutdown   bool
		wantCode   int
		wantChecks map[string]string
	}{
		{
			name:     "ready",
			gateway:  nopGateway{},
			ready:    true,
			wantCode: http.StatusOK,
			wantChecks: map[string]string{
				"ready": healthStatusOK, "shutdown": healthStatusOK, "calendar": healthStatusOK,
			},
		},
		{
			name:     "not marked ready",
			gateway:  nopGateway{},
			wantCode: http.StatusServiceUnavailable,
			wantChecks: map[string]string{
				"ready": healthStatusNotReady, "shutdown": healthStatusOK, "calendar": healthStatusOK,
			},
		},
		{
			name:     "shutting down",
			gateway:  nopGateway{},
			ready:    true,
			shutdown: true,
			wantCode: http.StatusServiceUnavailable,
			wantChecks: map[string]string{
				"ready": healthStatusOK, "shutdown": healthStatusShuttingDown, "calendar": healthStatusOK,
			},
		},
		{
			name:     "no calendar",
			ready:    true,
			wantCode: http.StatusServiceUnavailable,
			wantChecks: map[string]string{
				"ready": healthStatusOK, "shutdown": healthStatusOK, "calendar": healthStatusMissing,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewServerContext(context.Background(), tt.gateway, Options{})
			if tt.shutdown {
				require.NoError(t, sc.Shutdown())
			}
			h := NewHealthChecker(sc, "test")
			h.SetReady(tt.ready)

			code, resp := probe(t, h.ReadinessHandler())
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestReadinessHandler_WithoutServerContext(t *testing.T) {
	h := NewHealthChecker(nil, "test")
	assert.False(t, h.IsReady())

	h.SetReady(true)
	code, resp := probe(t, h.ReadinessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"ready": healthStatusOK}, resp.Checks)
}
