package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestScopeKey(t *testing.T) {
	tc := []struct {
		name   string
		scopes []string
		want   string
	}{
		{
			name:   "sorted",
			scopes: []string{"user-read-private", "user-read-email"},
			want:   "user-read-email user-read-private",
		},
		{
			name:   "space separated entries",
			scopes: []string{"user-read-private user-read-email"},
			want:   "user-read-email user-read-private",
		},
		{
			name:   "duplicates",
			scopes: []string{"a", "b", "a", " b "},
			want:   "a b",
		},
		{
			name:   "empty",
			scopes: nil,
			want:   "",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScopeKey(tt.scopes); got != tt.want {
				t.Errorf("ScopeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, _ := GenerateState()

	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d (%s)", len(a), a)
	}
	if a == b {
		t.Error("expected distinct state tokens")
	}
	if strings.Contains(a, "-") {
		t.Error("expected dashes to be stripped")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	SetLogLevel(logger, log.DebugLevel)

	WithLogger(logger, "run", "abc").Debug("step started")

	out := buf.String()
	if !strings.Contains(out, "step started") || !strings.Contains(out, "run=abc") {
		t.Errorf("expected contextual log line, got %q", out)
	}
}
