package cli

import (
	"strings"
	"testing"

	"github.com/lorekeep/lorekeep/internal/session"
)

func TestRenderMarkdown(t *testing.T) {
	sessions := []session.Session{
		{
			ID:    "aaaa-1111",
			Title: "Auth service notes",
			Messages: []session.Message{
				{Role: session.RoleUser, Content: "How does login work?"},
				{Role: session.RoleAssistant, Content: "Sessions are cookie based."},
			},
		},
		{
			ID:    "bbbb-2222",
			Title: "",
		},
	}

	out := renderMarkdown(sessions)

	if !strings.Contains(out, "# Auth service notes") {
		t.Error("missing first session title heading")
	}
	if !strings.Contains(out, "**You:**\n\nHow does login work?") {
		t.Error("missing user message")
	}
	if !strings.Contains(out, "**Assistant:**\n\nSessions are cookie based.") {
		t.Error("missing assistant message")
	}
	if !strings.Contains(out, "\n---\n") {
		t.Error("missing session separator")
	}
	if !strings.Contains(out, "# (untitled)") {
		t.Error("empty title should render as (untitled)")
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 40, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a definitely too long session title", 20, "a definitely too..."},
	}
	for _, tt := range tests {
		if got := truncateTitle(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateTitle(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
