package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/CoWork-OS/warden/internal/store"
	"github.com/CoWork-OS/warden/internal/trigger"
)

func (d *Dependencies) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")

	var req CreateRuleReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.Name == "" || len(req.Name) > 255 {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name must be 1-255 characters"})
		return
	}
	if req.EventType == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "event_type is required"})
		return
	}
	logic, err := trigger.ParseLogic(req.Logic)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "logic must be 'all' or 'any'"})
		return
	}
	if req.Conditions != nil {
		if err := validateConditions(req.Conditions); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
			return
		}
	}

	project, err := d.Store.GetProject(r.Context(), projectID)
	if err != nil {
		d.Logger.Error("failed to get project", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to create rule"})
		return
	}
	if project == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Project not found."})
		return
	}

	rule, err := d.Store.CreateRule(r.Context(), store.CreateRuleParams{
		ProjectID:      projectID,
		Name:           req.Name,
		EventType:      req.EventType,
		Conditions:     req.Conditions,
		Logic:          string(logic),
		ActionTemplate: req.ActionTemplate,
	})
	if err != nil {
		d.Logger.Error("failed to create rule", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to create rule"})
		return
	}
	writeJSON(w, http.StatusCreated, ruleToResp(rule))
}

func (d *Dependencies) handleListRules(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	rules, err := d.Store.ListRules(r.Context(), projectID)
	if err != nil {
		d.Logger.Error("failed to list rules", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list rules"})
		return
	}

	resp := RuleListResp{Rules: make([]RuleResp, 0, len(rules)), Total: len(rules)}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, ruleToResp(rule))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetRule(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	ruleID := r.PathValue("rule_id")

	rule, err := d.Store.GetRule(r.Context(), ruleID)
	if err != nil {
		d.Logger.Error("failed to get rule", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get rule"})
		return
	}
	if rule == nil || rule.ProjectID != projectID {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Rule not found."})
		return
	}
	writeJSON(w, http.StatusOK, ruleToResp(rule))
}

func (d *Dependencies) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	ruleID := r.PathValue("rule_id")

	var req UpdateRuleReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	params := store.UpdateRuleParams{
		EventType:      req.EventType,
		ActionTemplate: req.ActionTemplate,
		Enabled:        req.Enabled,
	}
	if req.Name != nil {
		if *req.Name == "" || len(*req.Name) > 255 {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "name must be 1-255 characters"})
			return
		}
		params.Name = req.Name
	}
	if req.EventType != nil && *req.EventType == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "event_type is required"})
		return
	}
	if req.Logic != nil {
		logic, err := trigger.ParseLogic(*req.Logic)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "logic must be 'all' or 'any'"})
			return
		}
		normalized := string(logic)
		params.Logic = &normalized
	}
	if req.Conditions != nil {
		if err := validateConditions(*req.Conditions); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
			return
		}
		params.Conditions = req.Conditions
	}

	existing, err := d.Store.GetRule(r.Context(), ruleID)
	if err != nil {
		d.Logger.Error("failed to get rule", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to update rule"})
		return
	}
	if existing == nil || existing.ProjectID != projectID {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Rule not found."})
		return
	}

	rule, err := d.Store.UpdateRule(r.Context(), ruleID, params)
	if err != nil {
		d.Logger.Error("failed to update rule", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to update rule"})
		return
	}
	if rule == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Rule not found."})
		return
	}
	writeJSON(w, http.StatusOK, ruleToResp(rule))
}

func (d *Dependencies) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	ruleID := r.PathValue("rule_id")

	existing, err := d.Store.GetRule(r.Context(), ruleID)
	if err != nil {
		d.Logger.Error("failed to get rule", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to delete rule"})
		return
	}
	if existing == nil || existing.ProjectID != projectID {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Rule not found."})
		return
	}

	err = d.Store.DeleteRule(r.Context(), ruleID)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Rule not found."})
		return
	}
	if err != nil {
		d.Logger.Error("failed to delete rule", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to delete rule"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ruleToResp(rule *store.AutomationRule) RuleResp {
	conditions := rule.Conditions
	if conditions == nil {
		conditions = json.RawMessage(`[]`)
	}
	return RuleResp{
		ID:             rule.ID,
		ProjectID:      rule.ProjectID,
		Name:           rule.Name,
		EventType:      rule.EventType,
		Conditions:     conditions,
		Logic:          rule.Logic,
		ActionTemplate: rule.ActionTemplate,
		Enabled:        rule.Enabled,
		CreatedAt:      rule.CreatedAt,
		UpdatedAt:      rule.UpdatedAt,
	}
}
