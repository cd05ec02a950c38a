package api

import (
	"encoding/json"
	"time"

	"github.com/CoWork-OS/warden/internal/gate"
	"github.com/CoWork-OS/warden/internal/risk"
)

// --- POST /v1/assess request/response ---

// IntentReq is the declared goal of the task under assessment.
type IntentReq struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt,omitempty"`
}

// TaskEventReq is one execution log entry. Type selects which of the
// payload fields apply.
type TaskEventReq struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Type      string    `json:"type"`
	Tool      string    `json:"tool,omitempty"`
	Input     string    `json:"input,omitempty"`
	Message   string    `json:"message,omitempty"`
	Path      string    `json:"path,omitempty"`
}

// AssessRequest is the JSON body for POST /v1/assess.
type AssessRequest struct {
	TaskID     string         `json:"task_id"`
	Intent     IntentReq      `json:"intent"`
	Events     []TaskEventReq `json:"events,omitempty"`
	IsMutating *bool          `json:"is_mutating,omitempty"` // omitted: classified from events
	Source     string         `json:"source,omitempty"`
}

// SignalResultResp is one signal's outcome in an assessment response.
type SignalResultResp struct {
	Signal    string  `json:"signal"`
	Triggered bool    `json:"triggered"`
	Weight    int     `json:"weight"`
	Details   *string `json:"details"`
}

// AssessResponse is the JSON body returned by POST /v1/assess.
type AssessResponse struct {
	RequestID  string             `json:"request_id"`
	Risk       risk.Assessment    `json:"risk"`
	Signals    []SignalResultResp `json:"signals"`
	IsMutating bool               `json:"is_mutating"`
	Policy     string             `json:"policy"`
	Decision   gate.Decision      `json:"decision"`
	IsShadow   bool               `json:"is_shadow"`
	LatencyMs  float64            `json:"latency_ms"`
}

// --- POST /v1/triggers/evaluate request/response ---

// ConditionReq is one rule condition in an inline evaluation request.
type ConditionReq struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// TriggerEventReq is the platform event to evaluate, flattened into a
// scalar field map.
type TriggerEventReq struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

// TriggerEvalRequest is the JSON body for POST /v1/triggers/evaluate.
// Either RuleID references a stored rule, or Conditions/Logic/
// ActionTemplate define one inline.
type TriggerEvalRequest struct {
	RuleID         string          `json:"rule_id,omitempty"`
	Conditions     []ConditionReq  `json:"conditions,omitempty"`
	Logic          string          `json:"logic,omitempty"`
	ActionTemplate string          `json:"action_template,omitempty"`
	Event          TriggerEventReq `json:"event"`
	Source         string          `json:"source,omitempty"`
}

// TriggerEvalResponse is the JSON body returned by POST /v1/triggers/evaluate.
type TriggerEvalResponse struct {
	RequestID string  `json:"request_id"`
	Matched   bool    `json:"matched"`
	Action    *string `json:"action"` // rendered template, only on match
	LatencyMs float64 `json:"latency_ms"`
}

// --- Project CRUD ---

// CreateProjectReq is the JSON body for POST /api/warden/projects.
type CreateProjectReq struct {
	Name string `json:"name"`
}

// CreateProjectResp includes the plaintext API key (shown once).
type CreateProjectResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	APIKey       string    `json:"api_key"`
	APIKeyPrefix string    `json:"api_key_prefix"`
	Mode         string    `json:"mode"`
	ReviewPolicy string    `json:"review_policy"`
	CreatedAt    time.Time `json:"created_at"`
}

// UpdateProjectReq is the JSON body for PATCH /api/warden/projects/{id}.
type UpdateProjectReq struct {
	Name *string `json:"name,omitempty"`
	Mode *string `json:"mode,omitempty"`
}

// ProjectResp is a project without its plaintext key.
type ProjectResp struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	APIKeyPrefix string    `json:"api_key_prefix"`
	Mode         string    `json:"mode"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RotateKeyResp includes the new plaintext API key (shown once).
type RotateKeyResp struct {
	APIKey       string `json:"api_key"`
	APIKeyPrefix string `json:"api_key_prefix"`
}

// --- Review policy CRUD ---

// UpdatePolicyReq is the JSON body for PATCH/PUT policy endpoints.
type UpdatePolicyReq struct {
	ReviewPolicy string          `json:"review_policy,omitempty"`
	SignalConfig json.RawMessage `json:"signal_config,omitempty"`
}

// PolicyResp is a project's stored review policy.
type PolicyResp struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	ReviewPolicy string          `json:"review_policy"`
	SignalConfig json.RawMessage `json:"signal_config"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// --- Automation rule CRUD ---

// CreateRuleReq is the JSON body for POST /api/warden/projects/{id}/rules.
type CreateRuleReq struct {
	Name           string          `json:"name"`
	EventType      string          `json:"event_type"`
	Conditions     json.RawMessage `json:"conditions,omitempty"`
	Logic          string          `json:"logic,omitempty"`
	ActionTemplate string          `json:"action_template,omitempty"`
}

// UpdateRuleReq is the JSON body for PATCH .../rules/{rule_id}. All fields
// are optional; omitted fields keep their stored values.
type UpdateRuleReq struct {
	Name           *string          `json:"name,omitempty"`
	EventType      *string          `json:"event_type,omitempty"`
	Conditions     *json.RawMessage `json:"conditions,omitempty"`
	Logic          *string          `json:"logic,omitempty"`
	ActionTemplate *string          `json:"action_template,omitempty"`
	Enabled        *bool            `json:"enabled,omitempty"`
}

// RuleResp is a stored automation rule.
type RuleResp struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	Name           string          `json:"name"`
	EventType      string          `json:"event_type"`
	Conditions     json.RawMessage `json:"conditions"`
	Logic          string          `json:"logic"`
	ActionTemplate string          `json:"action_template"`
	Enabled        bool            `json:"enabled"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// RuleListResp wraps a project's rules.
type RuleListResp struct {
	Rules []RuleResp `json:"rules"`
	Total int        `json:"total"`
}

// --- Decision events ---

// DecisionEventResp is one persisted decision.
type DecisionEventResp struct {
	RequestID     string             `json:"request_id"`
	ProjectID     string             `json:"project_id"`
	Kind          string             `json:"kind"`
	TaskID        *string            `json:"task_id"`
	RiskScore     int                `json:"risk_score"`
	RiskLevel     *string            `json:"risk_level"`
	Signals       []SignalResultResp `json:"signals"`
	IsMutating    bool               `json:"is_mutating"`
	ReviewPolicy  *string            `json:"review_policy"`
	Decision      *gate.Decision     `json:"decision"`
	IsShadow      bool               `json:"is_shadow"`
	RuleID        *string            `json:"rule_id"`
	EventID       *string            `json:"event_id"`
	Matched       *bool              `json:"matched"`
	ActionPreview *string            `json:"action_preview"`
	LatencyMs     float32            `json:"latency_ms"`
	Source        string             `json:"source"`
	Timestamp     time.Time          `json:"timestamp"`
}

// EventListResp is a page of persisted decisions.
type EventListResp struct {
	Events   []DecisionEventResp `json:"events"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// --- Analytics ---

// AnalyticsResp aggregates decision history for dashboards.
type AnalyticsResp struct {
	Summary            SummaryStatsResp       `json:"summary"`
	DecisionsOverTime  []TimeSeriesBucketResp `json:"decisions_over_time"`
	TopSignals         []SignalCountResp      `json:"top_signals"`
	GateReport         GateReportResp         `json:"gate_report"`
	ShadowReport       ShadowReportResp       `json:"shadow_report"`
	TriggerReport      TriggerReportResp      `json:"trigger_report"`
	LatencyPercentiles LatencyPercentilesResp `json:"latency_percentiles"`
}

// SummaryStatsResp holds aggregate counts.
type SummaryStatsResp struct {
	TotalDecisions     int `json:"total_decisions"`
	Assessments        int `json:"assessments"`
	TriggerEvaluations int `json:"trigger_evaluations"`
	HighRisk           int `json:"high_risk"`
	MediumRisk         int `json:"medium_risk"`
	LowRisk            int `json:"low_risk"`
}

// TimeSeriesBucketResp holds an hourly count.
type TimeSeriesBucketResp struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// SignalCountResp holds a signal and how often it fired.
type SignalCountResp struct {
	Signal string `json:"signal"`
	Count  int    `json:"count"`
}

// GateReportResp counts how often each verification step was required.
type GateReportResp struct {
	QualityPasses      int `json:"quality_passes"`
	StrictContracts    int `json:"strict_contracts"`
	VerificationAgents int `json:"verification_agents"`
	EvidenceRequired   int `json:"evidence_required"`
}

// ShadowReportResp summarizes decisions suppressed by shadow mode.
type ShadowReportResp struct {
	Total            int `json:"total"`
	WouldQualityPass int `json:"would_quality_pass"`
	WouldVerify      int `json:"would_verify"`
}

// TriggerReportResp holds trigger evaluation analysis.
type TriggerReportResp struct {
	Total   int `json:"total"`
	Matched int `json:"matched"`
}

// LatencyPercentilesResp holds latency percentiles.
type LatencyPercentilesResp struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// ErrorResp is a standard error response body.
type ErrorResp struct {
	Detail string `json:"detail"`
}
