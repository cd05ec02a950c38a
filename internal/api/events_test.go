package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/CoWork-OS/warden/internal/chread"
	"github.com/CoWork-OS/warden/internal/storage"
)

func TestEventRowToResp_TaskAssessment(t *testing.T) {
	row := chread.EventRow{
		RequestID:                "req_1",
		ProjectID:                "proj_1",
		Timestamp:                time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Kind:                     storage.KindTaskAssessment,
		TaskID:                   "task_1",
		RiskScore:                5,
		RiskLevel:                "medium",
		SignalNames:              []string{"shell_or_git_mutation", "repeated_tool_failures"},
		SignalTriggered:          []uint8{1, 0},
		SignalWeights:            []int32{2, 1},
		SignalDetails:            []string{"git push", ""},
		IsMutating:               1,
		ReviewPolicy:             "balanced",
		RunQualityPass:           1,
		StrictCompletionContract: 1,
		LatencyMs:                0.42,
		Source:                   "api",
	}

	resp := eventRowToResp(row)
	if resp.TaskID == nil || *resp.TaskID != "task_1" {
		t.Error("task_id not mapped")
	}
	if resp.RiskLevel == nil || *resp.RiskLevel != "medium" {
		t.Error("risk_level not mapped")
	}
	if resp.Decision == nil || !resp.Decision.RunQualityPass || !resp.Decision.StrictCompletionContract {
		t.Errorf("decision = %+v", resp.Decision)
	}
	if resp.Decision.RunVerificationAgent {
		t.Error("unset decision bit should stay false")
	}
	if !resp.IsMutating {
		t.Error("is_mutating not mapped")
	}

	// Trigger fields stay nil on assessments.
	if resp.RuleID != nil || resp.Matched != nil || resp.ActionPreview != nil {
		t.Error("trigger fields should be nil for assessments")
	}

	if len(resp.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(resp.Signals))
	}
	first := resp.Signals[0]
	if first.Signal != "shell_or_git_mutation" || !first.Triggered || first.Weight != 2 {
		t.Errorf("signal[0] = %+v", first)
	}
	if first.Details == nil || *first.Details != "git push" {
		t.Error("signal details not mapped")
	}
	if resp.Signals[1].Triggered || resp.Signals[1].Details != nil {
		t.Errorf("signal[1] = %+v, want silent with nil details", resp.Signals[1])
	}
}

func TestEventRowToResp_TriggerEvaluation(t *testing.T) {
	row := chread.EventRow{
		RequestID:     "req_2",
		ProjectID:     "proj_1",
		Kind:          storage.KindTriggerEvaluation,
		RuleID:        "rule_1",
		EventID:       "ev_1",
		Matched:       1,
		ActionPreview: "Notify: Bug",
		LatencyMs:     0.1,
		Source:        "api",
	}

	resp := eventRowToResp(row)
	if resp.RuleID == nil || *resp.RuleID != "rule_1" {
		t.Error("rule_id not mapped")
	}
	if resp.Matched == nil || !*resp.Matched {
		t.Error("matched not mapped")
	}
	if resp.ActionPreview == nil || *resp.ActionPreview != "Notify: Bug" {
		t.Error("action_preview not mapped")
	}

	// Assessment fields stay nil on trigger rows.
	if resp.TaskID != nil || resp.RiskLevel != nil || resp.Decision != nil || resp.Signals != nil {
		t.Error("assessment fields should be nil for trigger evaluations")
	}
}

func TestEventRowToResp_InlineTriggerHasNilRuleID(t *testing.T) {
	row := chread.EventRow{
		RequestID: "req_3",
		Kind:      storage.KindTriggerEvaluation,
	}

	resp := eventRowToResp(row)
	if resp.RuleID != nil {
		t.Error("inline evaluation should have nil rule_id")
	}
	if resp.Matched == nil || *resp.Matched {
		t.Error("matched should be present and false")
	}
}

func TestSignalArraysToResp_RaggedArrays(t *testing.T) {
	// A row with truncated parallel arrays must not panic.
	row := chread.EventRow{
		SignalNames:     []string{"a", "b", "c"},
		SignalTriggered: []uint8{1},
		SignalWeights:   []int32{2, 1},
	}

	signals := signalArraysToResp(row)
	if len(signals) != 3 {
		t.Fatalf("expected 3 signals, got %d", len(signals))
	}
	if !signals[0].Triggered || signals[1].Triggered {
		t.Error("triggered flags misaligned")
	}
	if signals[2].Weight != 0 {
		t.Error("missing weight should default to 0")
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name string
		q    url.Values
		want int
	}{
		{"present", url.Values{"days": {"30"}}, 30},
		{"missing", url.Values{}, 7},
		{"not a number", url.Values{"days": {"week"}}, 7},
		{"empty value", url.Values{"days": {""}}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queryInt(tt.q, "days", 7); got != tt.want {
				t.Errorf("queryInt = %d, want %d", got, tt.want)
			}
		})
	}
}
