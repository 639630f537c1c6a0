package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/claude-meet/internal/calendar"
	"github.com/teemow/claude-meet/internal/logging"
)

type cannedResponse struct {
	status int
	body   string
}

// fakeAnthropic serves canned Messages API responses in order and records
// every request body.
type fakeAnthropic struct {
	mu        sync.Mutex
	responses []cannedResponse
	requests  [][]byte
}

func (f *fakeAnthropic) RoundTrip(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, body)
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("unexpected request %d", len(f.requests))
	}
	next := f.responses[0]
	f.responses = f.responses[1:]

	resp := &http.Response{
		StatusCode: next.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(next.body))),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (f *fakeAnthropic) request(t *testing.T, i int) sentRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, len(f.requests), i)
	var r sentRequest
	require.NoError(t, json.Unmarshal(f.requests[i], &r), string(f.requests[i]))
	return r
}

type sentRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type      string          `json:"type"`
			Text      string          `json:"text"`
			ID        string          `json:"id"`
			Name      string          `json:"name"`
			ToolUseID string          `json:"tool_use_id"`
			IsError   bool            `json:"is_error"`
			Content   json.RawMessage `json:"content"`
		} `json:"content"`
	} `json:"messages"`
}

func textReply(text string) cannedResponse {
	b, _ := json.Marshal(map[string]any{
		"id":          "msg_text",
		"type":        "message",
		"role":        "assistant",
		"model":       DefaultModel,
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 100, "output_tokens": 20},
	})
	return cannedResponse{status: http.StatusOK, body: string(b)}
}

func toolUseReply(id, name string, input any, text string) cannedResponse {
	content := []map[string]any{}
	if text != "" {
		content = append(content, map[string]any{"type": "text", "text": text})
	}
	content = append(content, map[string]any{"type": "tool_use", "id": id, "name": name, "input": input})
	b, _ := json.Marshal(map[string]any{
		"id":          "msg_" + id,
		"type":        "message",
		"role":        "assistant",
		"model":       DefaultModel,
		"content":     content,
		"stop_reason": "tool_use",
		"usage":       map[string]any{"input_tokens": 120, "output_tokens": 40},
	})
	return cannedResponse{status: http.StatusOK, body: string(b)}
}

// parallelToolUseReply returns one response carrying a tool_use block per call.
func parallelToolUseReply(calls ...map[string]any) cannedResponse {
	content := make([]map[string]any, 0, len(calls))
	for _, c := range calls {
		content = append(content, map[string]any{"type": "tool_use", "id": c["id"], "name": c["name"], "input": c["input"]})
	}
	b, _ := json.Marshal(map[string]any{
		"id":          "msg_parallel",
		"type":        "message",
		"role":        "assistant",
		"model":       DefaultModel,
		"content":     content,
		"stop_reason": "tool_use",
		"usage":       map[string]any{"input_tokens": 120, "output_tokens": 60},
	})
	return cannedResponse{status: http.StatusOK, body: string(b)}
}

type fakeGateway struct {
	created   []calendar.EventInput
	queries   []calendar.SlotQuery
	ranges    []calendar.TimeRange
	listed    []int
	createErr error
	events    []calendar.EventSummary
	slots     []calendar.AvailableSlot
}

func (g *fakeGateway) ListUpcoming(_ context.Context, maxResults int) ([]calendar.EventSummary, error) {
	g.listed = append(g.listed, maxResults)
	return g.events, nil
}

func (g *fakeGateway) CheckAvailability(_ context.Context, tr calendar.TimeRange, attendees []string) ([]calendar.FreeBusyInfo, error) {
	g.ranges = append(g.ranges, tr)
	out := make([]calendar.FreeBusyInfo, 0, len(attendees))
	for _, a := range attendees {
		out = append(out, calendar.FreeBusyInfo{Calendar: a})
	}
	return out, nil
}

func (g *fakeGateway) CreateEvent(_ context.Context, in calendar.EventInput) (*calendar.EventSummary, error) {
	g.created = append(g.created, in)
	if g.createErr != nil {
		return nil, g.createErr
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &calendar.EventSummary{
		ID:        "evt123",
		Summary:   in.Summary,
		Start:     in.Start,
		End:       in.End,
		Attendees: in.Attendees,
	}, nil
}

func (g *fakeGateway) FindAvailableSlots(_ context.Context, q calendar.SlotQuery) ([]calendar.AvailableSlot, error) {
	g.queries = append(g.queries, q)
	return g.slots, nil
}

var berlin = mustLoad("Europe/Berlin")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// monday is 2025-01-13 10:00 in Berlin.
var monday = time.Date(2025, 1, 13, 10, 0, 0, 0, berlin)

func newTestRelay(t *testing.T, gw CalendarGateway, opts Options, responses ...cannedResponse) (*Relay, *fakeAnthropic) {
	t.Helper()
	fake := &fakeAnthropic{responses: responses}
	client := NewAnthropicClient("test-key", option.WithHTTPClient(&http.Client{Transport: fake}))
	if opts.Location == nil {
		opts.Location = berlin
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return monday }
	}
	opts.Logger = logging.Discard()
	return New(client, gw, opts), fake
}

func TestTurn_TextReply(t *testing.T) {
	r, fake := newTestRelay(t, &fakeGateway{}, Options{}, textReply("Hello! How can I help with your calendar?"))

	reply, err := r.Turn(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help with your calendar?", reply)
	assert.Equal(t, 2, r.History().Len())

	req := fake.request(t, 0)
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "hi", req.Messages[0].Content[0].Text)

	names := make([]string, 0, len(req.Tools))
	for _, tl := range req.Tools {
		names = append(names, tl.Name)
	}
	assert.ElementsMatch(t, []string{ToolListUpcoming, ToolCheckAvailability, ToolCreateEvent, ToolFindSlots}, names)

	require.Len(t, req.System, 1)
	assert.Contains(t, req.System[0].Text, "Monday, January 13, 2025 10:00")
	assert.Contains(t, req.System[0].Text, "Europe/Berlin")
}

func TestTurn_ScheduleMeetingCreatesEvent(t *testing.T) {
	gw := &fakeGateway{}
	r, fake := newTestRelay(t, gw, Options{},
		toolUseReply("toolu_1", ToolCreateEvent, map[string]any{
			"title":     "Meeting with Alice",
			"start":     "2025-01-14T14:00",
			"attendees": []string{"alice@example.com"},
		}, ""),
		textReply("I've scheduled a meeting with alice@example.com tomorrow, January 14, at 14:00."),
	)

	reply, err := r.Turn(context.Background(), "Schedule a meeting with alice@example.com tomorrow at 2pm")
	require.NoError(t, err)
	assert.Contains(t, reply, "alice@example.com")
	assert.Contains(t, reply, "14:00")

	require.Len(t, gw.created, 1)
	in := gw.created[0]
	assert.Equal(t, "Meeting with Alice", in.Summary)
	assert.Equal(t, []string{"alice@example.com"}, in.Attendees)
	assert.True(t, in.Start.Equal(time.Date(2025, 1, 14, 14, 0, 0, 0, berlin)), "start = %v", in.Start)
	assert.Equal(t, time.Hour, in.End.Sub(in.Start))

	// user, assistant tool_use, user tool_result, assistant text
	assert.Equal(t, 4, r.History().Len())

	second := fake.request(t, 1)
	assert.Empty(t, second.Tools, "the capped round is sent without tools")
	require.Len(t, second.Messages, 3)
	assert.Equal(t, "tool_use", second.Messages[1].Content[0].Type)
	result := second.Messages[2].Content[0]
	assert.Equal(t, "tool_result", result.Type)
	assert.Equal(t, "toolu_1", result.ToolUseID)
	assert.False(t, result.IsError)
	assert.Contains(t, string(result.Content), "evt123")
}

func TestTurn_GatewayFailureLeavesOnlyUserMessage(t *testing.T) {
	gw := &fakeGateway{createErr: &calendar.APIError{Op: calendar.OpCreateEvent, StatusCode: http.StatusForbidden, Err: errors.New("forbidden")}}
	r, fake := newTestRelay(t, gw, Options{},
		toolUseReply("toolu_1", ToolCreateEvent, map[string]any{
			"title": "Sync",
			"start": "2025-01-14T14:00",
		}, ""),
	)

	_, err := r.Turn(context.Background(), "Schedule a sync tomorrow at 2pm")
	require.Error(t, err)

	var apiErr *calendar.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, err.Error(), ToolCreateEvent)

	assert.Equal(t, 1, r.History().Len())
	assert.Len(t, fake.requests, 1)
}

func TestTurn_OnlyFirstToolCallRuns(t *testing.T) {
	gw := &fakeGateway{}
	r, fake := newTestRelay(t, gw, Options{},
		parallelToolUseReply(
			map[string]any{"id": "toolu_1", "name": ToolCreateEvent, "input": map[string]any{
				"title": "Sync",
				"start": "2025-01-14T14:00",
			}},
			map[string]any{"id": "toolu_2", "name": ToolListUpcoming, "input": map[string]any{}},
		),
		textReply("Your sync is booked for tomorrow at 14:00."),
	)

	reply, err := r.Turn(context.Background(), "Book a sync tomorrow at 2pm and show my week")
	require.NoError(t, err)
	assert.Equal(t, "Your sync is booked for tomorrow at 14:00.", reply)

	require.Len(t, gw.created, 1)
	assert.Empty(t, gw.listed, "second tool call must not reach the calendar")
	assert.Equal(t, 4, r.History().Len())

	results := fake.request(t, 1).Messages[2].Content
	require.Len(t, results, 2)
	assert.Equal(t, "toolu_1", results[0].ToolUseID)
	assert.False(t, results[0].IsError)
	assert.Contains(t, string(results[0].Content), "evt123")
	assert.Equal(t, "toolu_2", results[1].ToolUseID)
	assert.True(t, results[1].IsError)
	assert.Contains(t, string(results[1].Content), "only one calendar operation")
}

func TestTurn_UnknownToolReportedToModel(t *testing.T) {
	r, fake := newTestRelay(t, &fakeGateway{}, Options{},
		toolUseReply("toolu_9", "delete_calendar", map[string]any{}, ""),
		textReply("Sorry, I can't do that."),
	)

	reply, err := r.Turn(context.Background(), "delete everything")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I can't do that.", reply)

	result := fake.request(t, 1).Messages[2].Content[0]
	assert.Equal(t, "toolu_9", result.ToolUseID)
	assert.True(t, result.IsError)
	assert.Contains(t, string(result.Content), "tool not found")
}

func TestTurn_MalformedInputReportedToModel(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantMsg string
	}{
		{
			name:    "unparseable start",
			input:   map[string]any{"title": "Sync", "start": "tomorrow-ish"},
			wantMsg: "invalid time",
		},
		{
			name:    "wrong type",
			input:   map[string]any{"title": 42, "start": "2025-01-14T14:00"},
			wantMsg: "invalid arguments for create_event",
		},
		{
			name:    "end before start",
			input:   map[string]any{"title": "Sync", "start": "2025-01-14T14:00", "end": "2025-01-14T13:00"},
			wantMsg: "invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			r, fake := newTestRelay(t, gw, Options{},
				toolUseReply("toolu_1", ToolCreateEvent, tt.input, ""),
				textReply("Could you give me a precise time?"),
			)

			_, err := r.Turn(context.Background(), "book something")
			require.NoError(t, err)

			result := fake.request(t, 1).Messages[2].Content[0]
			assert.True(t, result.IsError)
			assert.Contains(t, string(result.Content), tt.wantMsg)
			assert.Equal(t, 4, r.History().Len())
		})
	}
}

func TestTurn_LLMError(t *testing.T) {
	r, _ := newTestRelay(t, &fakeGateway{}, Options{}, cannedResponse{
		status: http.StatusUnauthorized,
		body:   `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
	})

	_, err := r.Turn(context.Background(), "hi")
	require.Error(t, err)

	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, http.StatusUnauthorized, llmErr.StatusCode)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.Equal(t, 1, r.History().Len())
}

func TestTurn_LLMErrorAfterToolRoundKeepsRound(t *testing.T) {
	gw := &fakeGateway{}
	r, _ := newTestRelay(t, gw, Options{},
		toolUseReply("toolu_1", ToolListUpcoming, map[string]any{"max_results": 3}, ""),
		cannedResponse{status: http.StatusInternalServerError, body: `{"type":"error","error":{"type":"api_error","message":"boom"}}`},
	)

	_, err := r.Turn(context.Background(), "what's next?")
	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, http.StatusInternalServerError, llmErr.StatusCode)
	assert.Equal(t, []int{3}, gw.listed)
	assert.Equal(t, 3, r.History().Len())
}

func TestTurn_HistoryAccumulatesAcrossTurns(t *testing.T) {
	r, fake := newTestRelay(t, &fakeGateway{}, Options{}, textReply("first"), textReply("second"))

	_, err := r.Turn(context.Background(), "one")
	require.NoError(t, err)
	_, err = r.Turn(context.Background(), "two")
	require.NoError(t, err)

	req := fake.request(t, 1)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "one", req.Messages[0].Content[0].Text)
	assert.Equal(t, "first", req.Messages[1].Content[0].Text)
	assert.Equal(t, "two", req.Messages[2].Content[0].Text)
}

func TestReset(t *testing.T) {
	r, fake := newTestRelay(t, &fakeGateway{}, Options{}, textReply("first"), textReply("fresh"))

	_, err := r.Turn(context.Background(), "one")
	require.NoError(t, err)
	require.Equal(t, 2, r.History().Len())

	r.Reset()
	assert.Equal(t, 0, r.History().Len())

	_, err = r.Turn(context.Background(), "two")
	require.NoError(t, err)
	assert.Len(t, fake.request(t, 1).Messages, 1)
}

func TestTurn_MaxToolRounds(t *testing.T) {
	gw := &fakeGateway{}
	r, fake := newTestRelay(t, gw, Options{MaxToolRounds: 2},
		toolUseReply("toolu_1", ToolListUpcoming, map[string]any{}, ""),
		toolUseReply("toolu_2", ToolListUpcoming, map[string]any{"max_results": 2}, ""),
		textReply("done"),
	)

	reply, err := r.Turn(context.Background(), "check twice")
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
	assert.Equal(t, []int{defaultListCount, 2}, gw.listed)

	assert.NotEmpty(t, fake.request(t, 0).Tools)
	assert.NotEmpty(t, fake.request(t, 1).Tools)
	assert.Empty(t, fake.request(t, 2).Tools)
	assert.Equal(t, 6, r.History().Len())
}

func TestTurn_ToolUseAfterCapKeepsTextOnly(t *testing.T) {
	gw := &fakeGateway{}
	r, _ := newTestRelay(t, gw, Options{},
		toolUseReply("toolu_1", ToolListUpcoming, map[string]any{}, ""),
		toolUseReply("toolu_2", ToolListUpcoming, map[string]any{}, "You have no events."),
	)

	reply, err := r.Turn(context.Background(), "anything on?")
	require.NoError(t, err)
	assert.Equal(t, "You have no events.", reply)
	assert.Len(t, gw.listed, 1)

	msgs := r.History().Messages()
	require.Len(t, msgs, 4)
	last := msgs[3]
	require.Len(t, last.Content, 1)
	require.NotNil(t, last.Content[0].OfText)
	assert.Equal(t, "You have no events.", last.Content[0].OfText.Text)
}

func TestTurn_FindSlotsDefaults(t *testing.T) {
	gw := &fakeGateway{slots: []calendar.AvailableSlot{{
		Start: time.Date(2025, 1, 14, 9, 0, 0, 0, berlin),
		End:   time.Date(2025, 1, 14, 9, 30, 0, 0, berlin),
	}}}
	r, fake := newTestRelay(t, gw, Options{DefaultDuration: 30 * time.Minute, MaxSuggestions: 3},
		toolUseReply("toolu_1", ToolFindSlots, map[string]any{"attendees": []string{"bob@example.com"}}, ""),
		textReply("Bob is free Tuesday at 09:00."),
	)

	_, err := r.Turn(context.Background(), "find time with bob")
	require.NoError(t, err)

	require.Len(t, gw.queries, 1)
	q := gw.queries[0]
	assert.Equal(t, 30*time.Minute, q.Duration)
	assert.Equal(t, 3, q.MaxResults)
	assert.True(t, q.From.Equal(monday))
	assert.True(t, q.To.Equal(monday.AddDate(0, 0, 7)))
	assert.Equal(t, []string{"bob@example.com"}, q.Attendees)

	result := fake.request(t, 1).Messages[2].Content[0]
	assert.Contains(t, string(result.Content), "duration_minutes")
}

func TestTurn_CheckAvailability(t *testing.T) {
	gw := &fakeGateway{}
	r, fake := newTestRelay(t, gw, Options{},
		toolUseReply("toolu_1", ToolCheckAvailability, map[string]any{
			"attendees": []string{"alice@example.com"},
			"start":     "2025-01-14T09:00:00+01:00",
			"end":       "2025-01-14T17:00:00+01:00",
		}, ""),
		textReply("Alice is free all day."),
	)

	_, err := r.Turn(context.Background(), "is alice free tomorrow?")
	require.NoError(t, err)

	require.Len(t, gw.ranges, 1)
	assert.Equal(t, 8*time.Hour, gw.ranges[0].End.Sub(gw.ranges[0].Start))
	assert.Contains(t, string(fake.request(t, 1).Messages[2].Content[0].Content), "alice@example.com")
}

func TestSystemPrompt(t *testing.T) {
	opts := Options{
		Location:           berlin,
		BusinessHoursStart: 8,
		BusinessHoursEnd:   16,
		DefaultDuration:    45 * time.Minute,
		MaxSuggestions:     4,
	}.withDefaults()

	prompt := systemPrompt(monday.UTC(), opts)
	assert.Contains(t, prompt, "Monday, January 13, 2025 10:00")
	assert.Contains(t, prompt, "2025-01-13T10:00:00+01:00")
	assert.Contains(t, prompt, "08:00 to 16:00")
	assert.Contains(t, prompt, "45 minutes")
	assert.Contains(t, prompt, "at most 4")
	assert.True(t, strings.HasPrefix(prompt, "You are a meeting scheduling assistant"))
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema[CreateEventInput]()
	assert.ElementsMatch(t, []string{"title", "start"}, schema.Required)
	assert.NotNil(t, schema.Properties)
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, DefaultModel, opts.Model)
	assert.EqualValues(t, DefaultMaxTokens, opts.MaxTokens)
	assert.Equal(t, time.UTC, opts.Location)
	assert.Equal(t, 9, opts.BusinessHoursStart)
	assert.Equal(t, 17, opts.BusinessHoursEnd)
	assert.Equal(t, time.Hour, opts.DefaultDuration)
	assert.Equal(t, DefaultMaxSuggestions, opts.MaxSuggestions)
	assert.Equal(t, 1, opts.MaxToolRounds)
	assert.NotNil(t, opts.Now)
	assert.NotNil(t, opts.Logger)
}

func TestLLMError(t *testing.T) {
	err := &LLMError{Err: context.Canceled}
	assert.Equal(t, "anthropic request failed: context canceled", err.Error())
	assert.ErrorIs(t, err, context.Canceled)
}
