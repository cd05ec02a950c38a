package signals

import (
	"strings"
	"testing"

	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/task"
)

func TestRepeatedFailures(t *testing.T) {
	d := NewRepeatedFailures()

	tests := []struct {
		name   string
		events []task.Event
		want   bool
	}{
		{
			"three failures same tool",
			[]task.Event{toolError("web_fetch", "500"), toolError("web_fetch", "500"), toolError("web_fetch", "timeout")},
			true,
		},
		{
			"two failures below threshold",
			[]task.Event{toolError("web_fetch", "500"), toolError("web_fetch", "500")},
			false,
		},
		{
			"related tools share a streak",
			[]task.Event{toolError("web_fetch", "x"), toolError("web_search", "x"), toolError("web_fetch", "x")},
			true,
		},
		{
			"unrelated tools do not accumulate",
			[]task.Event{toolError("web_fetch", "x"), toolError("run_command", "x"), toolError("db_query", "x")},
			false,
		},
		{
			"successful calls between failures do not reset",
			[]task.Event{
				toolError("run_command", "x"),
				toolCall("run_command", "ls"),
				toolError("run_command", "x"),
				toolCall("bash", "cat go.mod"),
				toolError("run_tests", "x"),
			},
			true,
		},
		{
			"no events",
			nil,
			false,
		},
		{
			"blank tool names ignored",
			[]task.Event{toolError("", "x"), toolError("", "x"), toolError("", "x")},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := d.Detect(&risk.Input{Events: tt.events})
			if f.Triggered != tt.want {
				t.Errorf("Triggered = %v, want %v (details: %s)", f.Triggered, tt.want, f.Details)
			}
		})
	}
}

func TestRepeatedFailuresDetails(t *testing.T) {
	d := NewRepeatedFailures()
	events := []task.Event{
		toolError("web_fetch", "a"),
		toolError("web_fetch", "b"),
		toolError("web_fetch", "c"),
	}
	f := d.Detect(&risk.Input{Events: events})
	if !f.Triggered {
		t.Fatal("expected trigger")
	}
	if !strings.Contains(f.Details, "web") {
		t.Errorf("details %q should name the failing family", f.Details)
	}
}

func TestToolFamily(t *testing.T) {
	tests := []struct {
		tool string
		want string
	}{
		{"web_fetch", "web"},
		{"web_search", "web"},
		{"run_command", "run"},
		{"bash", "bash"},
		{"DB.query", "db"},
		{"http-get", "http"},
		{"  Shell  ", "shell"},
		{"_private", "_private"},
	}
	for _, tt := range tests {
		if got := toolFamily(tt.tool); got != tt.want {
			t.Errorf("toolFamily(%q) = %q, want %q", tt.tool, got, tt.want)
		}
	}
}
