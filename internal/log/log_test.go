package log

import "testing"

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", "***EMPTY***"},
		{"tiny", "abcd", "****"},
		{"short", "abcdefgh", "ab****gh"},
		{"long", "sk-1234567890abcdef", "sk-12*********bcdef"},
		{"bearer prefix", "Bearer abcdefgh", "ab****gh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskToken(tt.token); got != tt.want {
				t.Errorf("MaskToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}
