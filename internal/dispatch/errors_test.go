package dispatch

import (
	"strings"
	"testing"
)

func TestTranslateError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "unknown reason"},
		{"rate limit", "429: Rate limit exceeded", "rate limiting"},
		{"overloaded", "upstream overloaded", "overloaded"},
		{"context length", "maximum context length is 128000 tokens", "context window"},
		{"too many tokens", "request has too many tokens", "context window"},
		{"auth", "401 Unauthorized", "credentials"},
		{"api key", "invalid API key provided", "credentials"},
		{"forbidden", "403 Forbidden", "credentials"},
		{"timeout", "request timed out after 60s", "timed out"},
		{"passthrough", "segfault in tool runner", "The agent run failed: segfault in tool runner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.in)
			if !strings.Contains(got, tt.want) {
				t.Errorf("TranslateError(%q) = %q, want it to contain %q", tt.in, got, tt.want)
			}
		})
	}
}
