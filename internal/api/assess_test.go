package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/CoWork-OS/warden/internal/gate"
	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/risk/signals"
	"github.com/CoWork-OS/warden/internal/storage"
	"github.com/CoWork-OS/warden/internal/task"
)

// captureWriter records decision events in memory for assertions.
type captureWriter struct {
	mu     sync.Mutex
	events []*storage.DecisionEvent
}

func (w *captureWriter) Write(e *storage.DecisionEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, e)
}

func (w *captureWriter) Close() {}

func (w *captureWriter) last() *storage.DecisionEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.events) == 0 {
		return nil
	}
	return w.events[len(w.events)-1]
}

func newTestDeps() (*Dependencies, *captureWriter) {
	writer := &captureWriter{}
	return &Dependencies{
		Scorer:        risk.NewScorer(signals.Catalog(signals.Config{}), nil),
		Writer:        writer,
		DefaultPolicy: gate.PolicyBalanced,
		Logger:        zap.NewNop(),
		CacheTTL:      30 * time.Second,
	}, writer
}

func postJSON(t *testing.T, path string, body any, proj *authProject) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	if proj != nil {
		r = r.WithContext(context.WithValue(r.Context(), projectCtxKey, proj))
	}
	return r
}

// riskyEvents builds an event log that fires every signal: a mutating
// install, six distinct file edits and a run_command failure streak.
func riskyEvents() []TaskEventReq {
	events := []TaskEventReq{
		{Type: "tool_call", Tool: "bash", Input: "npm install left-pad"},
	}
	for i := 0; i < 6; i++ {
		events = append(events, TaskEventReq{Type: "file_modified", Path: fmt.Sprintf("src/mod_%d.go", i)})
	}
	for i := 0; i < 3; i++ {
		events = append(events, TaskEventReq{Type: "tool_error", Tool: "run_command", Message: "exit status 1"})
	}
	return events
}

func TestHandleAssess_QuietTask(t *testing.T) {
	deps, _ := newTestDeps()
	proj := &authProject{ID: "proj_1", Mode: "enforce", Policy: gate.PolicyBalanced}

	req := postJSON(t, "/v1/assess", AssessRequest{
		TaskID: "task_1",
		Intent: IntentReq{Title: "Rename a variable"},
	}, proj)
	rec := httptest.NewRecorder()
	deps.handleAssess(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp AssessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.RequestID == "" {
		t.Error("expected non-empty request_id")
	}
	if resp.Risk.Score != 0 || resp.Risk.Level != risk.LevelLow {
		t.Errorf("risk = %d/%s, want 0/low", resp.Risk.Score, resp.Risk.Level)
	}
	if len(resp.Risk.Reasons) != 0 {
		t.Errorf("expected no reasons, got %v", resp.Risk.Reasons)
	}
	if resp.Decision != (gate.Decision{}) {
		t.Errorf("expected zero decision, got %+v", resp.Decision)
	}
	if resp.IsMutating {
		t.Error("quiet task should not classify as mutating")
	}
	if resp.IsShadow {
		t.Error("enforce mode should never shadow")
	}
	if len(resp.Signals) != len(risk.KnownSignals()) {
		t.Errorf("expected %d signal results, got %d", len(risk.KnownSignals()), len(resp.Signals))
	}
}

func TestHandleAssess_HighRiskTask(t *testing.T) {
	deps, writer := newTestDeps()
	proj := &authProject{ID: "proj_1", Mode: "enforce", Policy: gate.PolicyBalanced}

	req := postJSON(t, "/v1/assess", AssessRequest{
		TaskID: "task_2",
		Intent: IntentReq{
			Title:  "Fix flaky integration tests",
			Prompt: "Update retry logic and make sure the tests pass",
		},
		Events: riskyEvents(),
	}, proj)
	rec := httptest.NewRecorder()
	deps.handleAssess(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp AssessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Risk.Score != 7 || resp.Risk.Level != risk.LevelHigh {
		t.Errorf("risk = %d/%s, want 7/high", resp.Risk.Score, resp.Risk.Level)
	}
	if len(resp.Risk.Reasons) != 4 {
		t.Errorf("expected all 4 signals in reasons, got %v", resp.Risk.Reasons)
	}
	if !resp.IsMutating {
		t.Error("file-changing task should classify as mutating")
	}
	want := gate.Decision{
		RunQualityPass:           true,
		StrictCompletionContract: true,
		RunVerificationAgent:     true,
		ExplicitEvidenceRequired: true,
	}
	if resp.Decision != want {
		t.Errorf("decision = %+v, want all steps", resp.Decision)
	}

	// Persisted event mirrors the response
	event := writer.last()
	if event == nil {
		t.Fatal("expected a persisted decision event")
	}
	if event.Kind != storage.KindTaskAssessment {
		t.Errorf("kind = %q, want task_assessment", event.Kind)
	}
	if event.RiskScore != 7 || event.RiskLevel != "high" {
		t.Errorf("persisted risk = %d/%s, want 7/high", event.RiskScore, event.RiskLevel)
	}
	if len(event.SignalNames) != 4 || len(event.SignalTriggered) != 4 {
		t.Errorf("expected 4 parallel signal entries, got %d/%d",
			len(event.SignalNames), len(event.SignalTriggered))
	}
	if event.IntentHash == "" {
		t.Error("expected intent hash")
	}
}

func TestHandleAssess_ShadowModeSuppressesDecision(t *testing.T) {
	deps, writer := newTestDeps()
	proj := &authProject{ID: "proj_1", Mode: "shadow", Policy: gate.PolicyBalanced}

	req := postJSON(t, "/v1/assess", AssessRequest{
		TaskID: "task_3",
		Intent: IntentReq{Title: "Fix flaky integration tests"},
		Events: riskyEvents(),
	}, proj)
	rec := httptest.NewRecorder()
	deps.handleAssess(rec, req)

	var resp AssessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.IsShadow {
		t.Error("expected is_shadow=true when a decision was suppressed")
	}
	if resp.Decision != (gate.Decision{}) {
		t.Errorf("shadow mode should return zero decision, got %+v", resp.Decision)
	}

	// The real decision is still recorded for the shadow report.
	event := writer.last()
	if event == nil {
		t.Fatal("expected a persisted decision event")
	}
	if !event.IsShadow {
		t.Error("persisted event should be marked shadow")
	}
	if !event.RunQualityPass || !event.RunVerificationAgent {
		t.Error("persisted event should carry the suppressed decision")
	}
}

func TestHandleAssess_ShadowModeQuietTaskNotShadow(t *testing.T) {
	deps, _ := newTestDeps()
	proj := &authProject{ID: "proj_1", Mode: "shadow", Policy: gate.PolicyBalanced}

	req := postJSON(t, "/v1/assess", AssessRequest{
		TaskID: "task_4",
		Intent: IntentReq{Title: "Rename a variable"},
	}, proj)
	rec := httptest.NewRecorder()
	deps.handleAssess(rec, req)

	var resp AssessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	// Nothing to suppress, so the response is not flagged.
	if resp.IsShadow {
		t.Error("zero decision should not be marked shadow")
	}
}

func TestHandleAssess_IsMutatingOverride(t *testing.T) {
	deps, _ := newTestDeps()
	proj := &authProject{ID: "proj_1", Mode: "enforce", Policy: gate.PolicyBalanced}

	mutating := true
	req := postJSON(t, "/v1/assess", AssessRequest{
		TaskID:     "task_5",
		Intent:     IntentReq{Title: "Rename a variable"},
		IsMutating: &mutating,
	}, proj)
	rec := httptest.NewRecorder()
	deps.handleAssess(rec, req)

	var resp AssessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.IsMutating {
		t.Error("caller's is_mutating should override classification")
	}
	if !resp.Decision.RunQualityPass {
		t.Error("balanced policy requires a quality pass for mutating tasks")
	}
}

func TestHandleAssess_MissingTaskID(t *testing.T) {
	deps, _ := newTestDeps()
	proj := &authProject{ID: "proj_1", Mode: "enforce", Policy: gate.PolicyBalanced}

	req := postJSON(t, "/v1/assess", AssessRequest{
		Intent: IntentReq{Title: "No task id"},
	}, proj)
	rec := httptest.NewRecorder()
	deps.handleAssess(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAssess_InvalidJSON(t *testing.T) {
	deps, _ := newTestDeps()
	proj := &authProject{ID: "proj_1", Mode: "enforce", Policy: gate.PolicyBalanced}

	r := httptest.NewRequest(http.MethodPost, "/v1/assess", bytes.NewReader([]byte(`{not json`)))
	r = r.WithContext(context.WithValue(r.Context(), projectCtxKey, proj))
	rec := httptest.NewRecorder()
	deps.handleAssess(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestConvertTaskEvents(t *testing.T) {
	reqs := []TaskEventReq{
		{ID: "ev_1", Type: "tool_call", Tool: "bash", Input: "ls"},
		{ID: "ev_2", Type: "tool_error", Tool: "web_fetch", Message: "timeout"},
		{ID: "ev_3", Type: "file_created", Path: "main.go"},
		{ID: "ev_4", Type: "file_modified", Path: "main.go"},
		{ID: "ev_5", Type: "file_deleted", Path: "old.go"},
		{ID: "ev_6", Type: "heartbeat"},
	}

	events := convertTaskEvents(reqs, "task_1")
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}

	for _, e := range events {
		if e.TaskID != "task_1" {
			t.Errorf("event %s: task id not propagated", e.ID)
		}
	}

	if events[0].ToolCall == nil || events[0].ToolCall.Tool != "bash" {
		t.Error("tool_call payload not converted")
	}
	if events[1].ToolError == nil || events[1].ToolError.Message != "timeout" {
		t.Error("tool_error payload not converted")
	}
	for i := 2; i <= 4; i++ {
		if events[i].File == nil {
			t.Errorf("event %d: file payload not converted", i)
		}
	}
	if events[5].ToolCall != nil || events[5].ToolError != nil || events[5].File != nil {
		t.Error("unknown event type should carry no payload")
	}
	if events[2].Type != task.EventFileCreated {
		t.Errorf("type = %q, want file_created", events[2].Type)
	}
}

func TestSignalResults(t *testing.T) {
	in := []risk.SignalResult{
		{Signal: risk.SignalShellOrGitMutation, Triggered: true, Weight: 2, Details: "git commit"},
		{Signal: risk.SignalRepeatedToolFailures, Triggered: false, Weight: 1},
	}

	out := signalResults(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].Details == nil || *out[0].Details != "git commit" {
		t.Error("triggered signal should carry details")
	}
	if out[1].Details != nil {
		t.Error("silent signal should have nil details")
	}
}
