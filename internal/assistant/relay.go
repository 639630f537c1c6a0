package assistant

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/teemow/claude-meet/internal/instrumentation"
	"github.com/teemow/claude-meet/internal/logging"
)

// Defaults applied by New to zero-valued Options fields.
const (
	DefaultModel           = "claude-sonnet-4-20250514"
	DefaultMaxTokens       = 2000
	DefaultMaxToolRounds   = 1
	DefaultMeetingDuration = time.Hour
	DefaultMaxSuggestions  = 5
)

// Options configure a Relay.
type Options struct {
	Model     string
	MaxTokens int64

	// Location is the user's timezone, used in the system prompt and to
	// interpret times in tool arguments.
	Location *time.Location

	BusinessHoursStart int
	BusinessHoursEnd   int
	DefaultDuration    time.Duration
	MaxSuggestions     int

	// MaxToolRounds caps the tool round-trips in one turn. When reached, the
	// next request is sent without tools so the model has to answer in text.
	MaxToolRounds int

	// Now overrides the clock, for tests.
	Now func() time.Time

	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.BusinessHoursStart == 0 && o.BusinessHoursEnd == 0 {
		o.BusinessHoursStart, o.BusinessHoursEnd = 9, 17
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = DefaultMeetingDuration
	}
	if o.MaxSuggestions <= 0 {
		o.MaxSuggestions = DefaultMaxSuggestions
	}
	if o.MaxToolRounds <= 0 {
		o.MaxToolRounds = DefaultMaxToolRounds
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Relay runs conversation turns for one session.
type Relay struct {
	client  anthropic.Client
	opts    Options
	tools   *toolbox
	history History
}

// NewAnthropicClient builds a Messages API client. Automatic retries are
// disabled: a failed request fails the turn.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) anthropic.Client {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return anthropic.NewClient(append(base, opts...)...)
}

// New creates a Relay with an empty history.
func New(client anthropic.Client, gateway CalendarGateway, opts Options) *Relay {
	opts = opts.withDefaults()
	return &Relay{
		client: client,
		opts:   opts,
		tools: &toolbox{
			gateway:         gateway,
			loc:             opts.Location,
			defaultDuration: opts.DefaultDuration,
			maxSuggestions:  opts.MaxSuggestions,
			now:             opts.Now,
			metrics:         opts.Metrics,
			audit:           opts.Audit,
			logger:          opts.Logger,
		},
	}
}

// History returns the session history.
func (r *Relay) History() *History {
	return &r.history
}

// Reset clears the conversation.
func (r *Relay) Reset() {
	r.history.Reset()
}

// Turn sends one user message and returns the model's final text reply.
//
// On error the history keeps the user message and every tool round that
// completed before the failure.
func (r *Relay) Turn(ctx context.Context, text string) (reply string, err error) {
	ctx, span := instrumentation.StartTurnSpan(ctx, r.opts.Model)
	defer span.End()

	start := time.Now()
	rounds := 0
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		r.opts.Metrics.RecordTurn(ctx, status, rounds, time.Since(start))
	}()

	r.history.append(anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
	system := systemPrompt(r.opts.Now(), r.opts)

	for {
		withTools := rounds < r.opts.MaxToolRounds
		msg, err := r.send(ctx, system, withTools, rounds)
		if err != nil {
			return "", err
		}

		uses := toolUses(msg)
		if len(uses) == 0 || !withTools {
			if p, ok := finalParam(msg, len(uses) > 0); ok {
				r.history.append(p)
			}
			return replyText(msg), nil
		}

		results, err := r.runTools(ctx, uses)
		if err != nil {
			return "", err
		}
		r.history.append(msg.ToParam(), anthropic.NewUserMessage(results...))
		rounds++
	}
}

func (r *Relay) send(ctx context.Context, system string, withTools bool, round int) (*anthropic.Message, error) {
	ctx, span := instrumentation.StartLLMSpan(ctx, r.opts.Model, round)
	defer span.End()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.opts.Model),
		MaxTokens: r.opts.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  r.history.Messages(),
	}
	if withTools {
		params.Tools = r.tools.params()
	}

	start := time.Now()
	msg, err := r.client.Messages.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		r.opts.Metrics.RecordLLMRequest(ctx, r.opts.Model, instrumentation.StatusError, duration)
		instrumentation.SetSpanError(span, err)
		return nil, newLLMError(err)
	}

	r.opts.Metrics.RecordLLMRequest(ctx, r.opts.Model, instrumentation.StatusSuccess, duration)
	r.opts.Metrics.RecordLLMTokens(ctx, r.opts.Model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
	instrumentation.SetSpanSuccess(span)

	r.opts.Logger.Debug("model replied",
		logging.Model(r.opts.Model),
		slog.String("stop_reason", string(msg.StopReason)),
		slog.Int("round", round),
		slog.Int64("input_tokens", msg.Usage.InputTokens),
		slog.Int64("output_tokens", msg.Usage.OutputTokens),
		slog.Duration(logging.KeyDuration, duration))

	return msg, nil
}

// runTools executes the first tool_use block of one response and returns the
// paired tool_result blocks. Further blocks are answered with an error result
// and never reach the calendar, so a failed round cannot hide a completed write.
func (r *Relay) runTools(ctx context.Context, uses []anthropic.ToolUseBlock) ([]anthropic.ContentBlockParamUnion, error) {
	results := make([]anthropic.ContentBlockParamUnion, 0, len(uses))
	for i, u := range uses {
		if i > 0 {
			r.opts.Logger.Debug("extra tool call skipped", logging.Tool(u.Name))
			results = append(results, anthropic.NewToolResultBlock(u.ID, errOneOperation, true))
			continue
		}

		input := json.RawMessage(u.JSON.Input.Raw())
		out, err := r.tools.execute(ctx, u.Name, input)
		switch {
		case err == nil:
			results = append(results, anthropic.NewToolResultBlock(u.ID, out, false))
		case isInputError(err):
			r.opts.Logger.Debug("tool input rejected", logging.Tool(u.Name), logging.Err(err))
			results = append(results, anthropic.NewToolResultBlock(u.ID, err.Error(), true))
		default:
			return nil, err
		}
	}
	return results, nil
}

func toolUses(msg *anthropic.Message) []anthropic.ToolUseBlock {
	var uses []anthropic.ToolUseBlock
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			uses = append(uses, v)
		}
	}
	return uses
}

func replyText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok && v.Text != "" {
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// finalParam converts the closing reply for the history. A tool_use without
// its result would invalidate the next request, so when tools were not
// offered only the text is kept.
func finalParam(msg *anthropic.Message, hasToolUse bool) (anthropic.MessageParam, bool) {
	if !hasToolUse {
		if len(msg.Content) == 0 {
			return anthropic.MessageParam{}, false
		}
		return msg.ToParam(), true
	}
	text := replyText(msg)
	if text == "" {
		return anthropic.MessageParam{}, false
	}
	return anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)), true
}
