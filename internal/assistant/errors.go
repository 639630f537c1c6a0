package assistant

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/teemow/claude-meet/internal/calendar"
)

// LLMError reports a failed Messages API request. StatusCode is zero when
// no HTTP response was received (network failure, cancelled context).
type LLMError struct {
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("anthropic request failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("anthropic request failed: %v", e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func newLLMError(err error) *LLMError {
	llmErr := &LLMError{Err: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		llmErr.StatusCode = apiErr.StatusCode
	}
	return llmErr
}

// inputError marks tool arguments the model got wrong. These are reported
// back to the model instead of failing the turn.
type inputError struct {
	err error
}

func (e *inputError) Error() string {
	return e.err.Error()
}

func (e *inputError) Unwrap() error {
	return e.err
}

func invalidInput(format string, args ...any) error {
	return &inputError{err: fmt.Errorf(format, args...)}
}

// isInputError reports whether err was caused by the tool arguments rather
// than by the calendar backend.
func isInputError(err error) bool {
	var ie *inputError
	return errors.As(err, &ie) ||
		errors.Is(err, calendar.ErrInvalidInput) ||
		errors.Is(err, calendar.ErrInvalidTime)
}
