package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/CoWork-OS/warden/internal/gate"
	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/risk/signals"
	"github.com/CoWork-OS/warden/internal/storage"
	"github.com/CoWork-OS/warden/internal/task"
)

// handleAssess implements POST /v1/assess.
// Auth middleware has already validated the Bearer token and injected the project.
func (d *Dependencies) handleAssess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req AssessRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.TaskID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "task_id is required"})
		return
	}

	proj := projectFromContext(r.Context())
	if proj == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "missing project context"})
		return
	}

	intent := task.Intent{Title: req.Intent.Title, Prompt: req.Intent.Prompt}
	events := convertTaskEvents(req.Events, req.TaskID)

	results := d.Scorer.Evaluate(intent, events, proj.Overrides)
	assessment := risk.Aggregate(results)

	isMutating := signals.IsMutatingTask(events)
	if req.IsMutating != nil {
		isMutating = *req.IsMutating
	}

	realDecision := gate.Derive(proj.Policy, assessment.Level, isMutating)

	// Shadow mode override: record the real decision, require nothing.
	responseDecision := realDecision
	isShadow := false
	if proj.Mode == "shadow" && realDecision != (gate.Decision{}) {
		isShadow = true
		responseDecision = gate.Decision{}
	}

	requestID := uuid.New().String()
	engineLatencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	// Fire-and-forget: write decision event to ClickHouse
	d.writeAssessEvent(req, intent, proj, requestID, assessment, results,
		isMutating, realDecision, isShadow, float32(engineLatencyMs))

	d.Metrics.ObserveAssessment(string(assessment.Level), string(proj.Policy), time.Since(start))

	writeJSON(w, http.StatusOK, AssessResponse{
		RequestID:  requestID,
		Risk:       assessment,
		Signals:    signalResults(results),
		IsMutating: isMutating,
		Policy:     string(proj.Policy),
		Decision:   responseDecision,
		IsShadow:   isShadow,
		LatencyMs:  float64(time.Since(start)) / float64(time.Millisecond),
	})
}

// convertTaskEvents maps request events onto the task event log. Unknown
// event types survive with no payload so detectors skip them.
func convertTaskEvents(reqs []TaskEventReq, taskID string) []task.Event {
	events := make([]task.Event, 0, len(reqs))
	for _, e := range reqs {
		ev := task.Event{
			ID:        e.ID,
			TaskID:    taskID,
			Timestamp: e.Timestamp,
			Type:      task.EventType(e.Type),
		}
		switch ev.Type {
		case task.EventToolCall:
			ev.ToolCall = &task.ToolCallPayload{Tool: e.Tool, Input: e.Input}
		case task.EventToolError:
			ev.ToolError = &task.ToolErrorPayload{Tool: e.Tool, Message: e.Message}
		case task.EventFileCreated, task.EventFileModified, task.EventFileDeleted:
			ev.File = &task.FileChangePayload{Path: e.Path}
		}
		events = append(events, ev)
	}
	return events
}

// signalResults converts scorer results to response DTOs.
func signalResults(results []risk.SignalResult) []SignalResultResp {
	out := make([]SignalResultResp, 0, len(results))
	for _, r := range results {
		var details *string
		if r.Details != "" {
			s := r.Details
			details = &s
		}
		out = append(out, SignalResultResp{
			Signal:    string(r.Signal),
			Triggered: r.Triggered,
			Weight:    r.Weight,
			Details:   details,
		})
	}
	return out
}

// writeAssessEvent builds a DecisionEvent and fires it to the async writer.
func (d *Dependencies) writeAssessEvent(
	req AssessRequest,
	intent task.Intent,
	proj *authProject,
	requestID string,
	assessment risk.Assessment,
	results []risk.SignalResult,
	isMutating bool,
	decision gate.Decision,
	isShadow bool,
	latencyMs float32,
) {
	names := make([]string, len(results))
	triggered := make([]bool, len(results))
	weights := make([]int32, len(results))
	details := make([]string, len(results))
	for i, r := range results {
		names[i] = string(r.Signal)
		triggered[i] = r.Triggered
		weights[i] = int32(r.Weight)
		details[i] = r.Details
	}

	intentText := intent.Title + "\n" + intent.Prompt
	hashBytes := sha256.Sum256([]byte(intentText))

	source := req.Source
	if source == "" {
		source = "api"
	}

	event := &storage.DecisionEvent{
		RequestID:                requestID,
		ProjectID:                proj.ID,
		Timestamp:                time.Now(),
		Kind:                     storage.KindTaskAssessment,
		TaskID:                   req.TaskID,
		IntentPreview:            storage.TruncatePreview(intentText, storage.IntentPreviewLength),
		IntentHash:               hex.EncodeToString(hashBytes[:]),
		EventCount:               uint32(len(req.Events)),
		RiskScore:                int32(assessment.Score),
		RiskLevel:                string(assessment.Level),
		SignalNames:              names,
		SignalTriggered:          triggered,
		SignalWeights:            weights,
		SignalDetails:            details,
		IsMutating:               isMutating,
		ReviewPolicy:             string(proj.Policy),
		RunQualityPass:           decision.RunQualityPass,
		StrictCompletionContract: decision.StrictCompletionContract,
		RunVerificationAgent:     decision.RunVerificationAgent,
		ExplicitEvidenceRequired: decision.ExplicitEvidenceRequired,
		IsShadow:                 isShadow,
		LatencyMs:                latencyMs,
		Source:                   source,
	}

	d.Writer.Write(event)
}
