package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/CoWork-OS/warden/internal/storage"
	"github.com/CoWork-OS/warden/internal/trigger"
)

// handleTriggerEval implements POST /v1/triggers/evaluate. The request
// either names a stored rule or carries conditions inline; stored rules are
// evaluated even when disabled so callers can dry-run them.
func (d *Dependencies) handleTriggerEval(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req TriggerEvalRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Event.Fields == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "event.fields is required"})
		return
	}

	proj := projectFromContext(r.Context())
	if proj == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "missing project context"})
		return
	}

	var (
		conditions []trigger.Condition
		logic      trigger.Logic
		template   string
		ruleID     string
	)

	if req.RuleID != "" {
		rule, err := d.Store.GetRule(r.Context(), req.RuleID)
		if err != nil {
			d.Logger.Error("rule lookup failed", zapError(err))
			writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "rule lookup failed"})
			return
		}
		if rule == nil || rule.ProjectID != proj.ID {
			writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Rule not found"})
			return
		}
		if err := json.Unmarshal(rule.Conditions, &conditions); err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "stored rule has malformed conditions"})
			return
		}
		// Stored rules were validated at write time; a legacy bad value
		// falls back to requiring every condition.
		logic, _ = trigger.ParseLogic(rule.Logic)
		if logic == "" {
			logic = trigger.LogicAll
		}
		template = rule.ActionTemplate
		ruleID = rule.ID
	} else {
		var err error
		conditions, err = convertConditions(req.Conditions)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
			return
		}
		logic, err = trigger.ParseLogic(req.Logic)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
			return
		}
		template = req.ActionTemplate
	}

	ev := trigger.Event{ID: req.Event.ID, Fields: req.Event.Fields}
	matched := trigger.EvaluateConditions(ev, conditions, logic)

	var action *string
	if matched && template != "" {
		rendered := trigger.SubstituteEventVariables(template, ev)
		action = &rendered
	}

	requestID := uuid.New().String()
	latencyMs := float32(float64(time.Since(start)) / float64(time.Millisecond))

	d.writeTriggerEvent(req, proj.ID, requestID, ruleID, len(conditions), logic, matched, action, latencyMs)
	d.Metrics.ObserveTriggerEval(matched, time.Since(start))

	writeJSON(w, http.StatusOK, TriggerEvalResponse{
		RequestID: requestID,
		Matched:   matched,
		Action:    action,
		LatencyMs: float64(time.Since(start)) / float64(time.Millisecond),
	})
}

// convertConditions validates inline conditions at the API boundary.
// Unknown operators are rejected here; evaluation itself fails closed.
func convertConditions(reqs []ConditionReq) ([]trigger.Condition, error) {
	conditions := make([]trigger.Condition, 0, len(reqs))
	for _, c := range reqs {
		op, err := trigger.ParseOperator(c.Operator)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, trigger.Condition{
			Field:    c.Field,
			Operator: op,
			Value:    c.Value,
		})
	}
	return conditions, nil
}

// writeTriggerEvent builds a DecisionEvent and fires it to the async writer.
func (d *Dependencies) writeTriggerEvent(
	req TriggerEvalRequest,
	projectID, requestID, ruleID string,
	conditionCount int,
	logic trigger.Logic,
	matched bool,
	action *string,
	latencyMs float32,
) {
	source := req.Source
	if source == "" {
		source = "api"
	}

	var actionPreview string
	if action != nil {
		actionPreview = storage.TruncatePreview(*action, storage.IntentPreviewLength)
	}

	event := &storage.DecisionEvent{
		RequestID:      requestID,
		ProjectID:      projectID,
		Timestamp:      time.Now(),
		Kind:           storage.KindTriggerEvaluation,
		RuleID:         ruleID,
		EventID:        req.Event.ID,
		ConditionCount: uint32(conditionCount),
		Logic:          string(logic),
		Matched:        matched,
		ActionPreview:  actionPreview,
		LatencyMs:      latencyMs,
		Source:         source,
	}

	d.Writer.Write(event)
}
