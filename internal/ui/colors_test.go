package ui

import (
	"strings"
	"testing"

	"github.com/desertthunder/playsync/internal/tasks"
)

func TestPalette(t *testing.T) {
	p := DefaultPalette()

	tests := []struct {
		name  string
		event tasks.ProgressEvent
		want  []string
	}{
		{
			name:  "status",
			event: tasks.ProgressEvent{Kind: tasks.EventStatus, Message: "Found 3 tracks", Percent: 25},
			want:  []string{"[ 25.0%]", "Found 3 tracks"},
		},
		{
			name:  "status with detail",
			event: tasks.ProgressEvent{Kind: tasks.EventStatus, Message: "Syncing: A - B", Detail: "1/3: A", Percent: 51.7},
			want:  []string{"[ 51.7%]", "Syncing: A - B", "1/3: A"},
		},
		{
			name:  "track",
			event: tasks.ProgressEvent{Kind: tasks.EventTrack, Message: "Not found: A", Severity: tasks.SeverityWarning},
			want:  []string{"  ", "Not found: A"},
		},
		{
			name:  "complete",
			event: tasks.ProgressEvent{Kind: tasks.EventComplete, Message: "Complete! 2 synced, 1 failed"},
			want:  []string{"Complete! 2 synced, 1 failed"},
		},
		{
			name:  "error",
			event: tasks.ProgressEvent{Kind: tasks.EventError, Message: "boom"},
			want:  []string{"Error: boom"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Event(tc.event)
			for _, want := range tc.want {
				if !strings.Contains(got, want) {
					t.Errorf("expected %q to contain %q", got, want)
				}
			}
			if strings.Contains(got, "\n") {
				t.Errorf("expected a single line, got %q", got)
			}
		})
	}

	t.Run("unknown severity is unstyled", func(t *testing.T) {
		if got := p.Severity("", "plain"); got != "plain" {
			t.Errorf("expected plain text, got %q", got)
		}
	})
}
