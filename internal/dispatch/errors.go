package dispatch

import (
	"fmt"
	"strings"
)

// TranslateError maps a raw gateway error string to something a person can
// act on. Unrecognized errors are passed through with context.
func TranslateError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case msg == "":
		return "The agent run failed for an unknown reason."
	case strings.Contains(lower, "rate limit"):
		return "The model provider is rate limiting requests. Wait a moment and try again."
	case strings.Contains(lower, "overloaded"):
		return "The model provider is overloaded right now. Try again shortly."
	case strings.Contains(lower, "context length"), strings.Contains(lower, "too many tokens"):
		return "The conversation is too long for the model's context window. Start a new session or summarize."
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "api key"), strings.Contains(lower, "forbidden"):
		return "The gateway rejected the provider credentials. Check the configured API keys."
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return "The model provider timed out. Try again."
	default:
		return fmt.Sprintf("The agent run failed: %s", msg)
	}
}
