package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleReplacePolicy_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"missing review_policy", `{}`, "review_policy must be 'off', 'balanced' or 'strict'"},
		{"unknown review_policy", `{"review_policy": "paranoid"}`, "review_policy must be 'off', 'balanced' or 'strict'"},
		{"unknown signal", `{"review_policy": "balanced", "signal_config": {"cosmic_rays": {}}}`, "unknown signal"},
	}

	deps, _ := newTestDeps()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPut, "/api/warden/projects/proj_1/policy", bytes.NewReader([]byte(tt.body)))
			r.SetPathValue("project_id", "proj_1")
			rec := httptest.NewRecorder()
			deps.handleReplacePolicy(rec, r)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			var resp ErrorResp
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			if !strings.Contains(resp.Detail, tt.wantDetail) {
				t.Errorf("detail = %q, want substring %q", resp.Detail, tt.wantDetail)
			}
		})
	}
}

func TestHandleUpdatePolicy_Validation(t *testing.T) {
	deps, _ := newTestDeps()

	r := httptest.NewRequest(http.MethodPatch, "/api/warden/projects/proj_1/policy",
		bytes.NewReader([]byte(`{"review_policy": "paranoid"}`)))
	r.SetPathValue("project_id", "proj_1")
	rec := httptest.NewRecorder()
	deps.handleUpdatePolicy(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
