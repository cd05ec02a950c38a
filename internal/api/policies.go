package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/CoWork-OS/warden/internal/gate"
	"github.com/CoWork-OS/warden/internal/store"
)

func (d *Dependencies) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	policy, err := d.Store.GetReviewPolicy(r.Context(), projectID)
	if err != nil {
		d.Logger.Error("failed to get policy", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get policy"})
		return
	}
	if policy == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Policy not found."})
		return
	}
	writeJSON(w, http.StatusOK, policyToResp(policy))
}

func (d *Dependencies) handleReplacePolicy(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")

	var req UpdatePolicyReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	if _, err := gate.ParsePolicy(req.ReviewPolicy); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "review_policy must be 'off', 'balanced' or 'strict'"})
		return
	}

	sc := req.SignalConfig
	if sc == nil {
		sc = json.RawMessage(`{}`)
	}
	if err := validateSignalConfig(sc); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
		return
	}

	policy, err := d.Store.ReplaceReviewPolicy(r.Context(), projectID, store.ReplaceReviewPolicyParams{
		ReviewPolicy: req.ReviewPolicy,
		SignalConfig: sc,
	})
	if err != nil {
		d.Logger.Error("failed to replace policy", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to replace policy"})
		return
	}
	if policy == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Policy not found."})
		return
	}
	writeJSON(w, http.StatusOK, policyToResp(policy))
}

func (d *Dependencies) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")

	var req UpdatePolicyReq
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}

	params := store.UpdateReviewPolicyParams{}
	if req.ReviewPolicy != "" {
		if _, err := gate.ParsePolicy(req.ReviewPolicy); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "review_policy must be 'off', 'balanced' or 'strict'"})
			return
		}
		params.ReviewPolicy = &req.ReviewPolicy
	}
	if req.SignalConfig != nil {
		if err := validateSignalConfig(req.SignalConfig); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: err.Error()})
			return
		}
		params.SignalConfig = &req.SignalConfig
	}

	policy, err := d.Store.UpdateReviewPolicy(r.Context(), projectID, params)
	if err != nil {
		d.Logger.Error("failed to update policy", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to update policy"})
		return
	}
	if policy == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Policy not found."})
		return
	}
	writeJSON(w, http.StatusOK, policyToResp(policy))
}

func policyToResp(p *store.ReviewPolicy) PolicyResp {
	sc := p.SignalConfig
	if sc == nil {
		sc = json.RawMessage(`{}`)
	}
	return PolicyResp{
		ID:           p.ID,
		ProjectID:    p.ProjectID,
		ReviewPolicy: p.ReviewPolicy,
		SignalConfig: sc,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
