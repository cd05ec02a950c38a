package chread

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Reader provides read access to the ClickHouse decision_events table.
type Reader struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewReader opens a ClickHouse connection for read queries.
func NewReader(dsn string, logger *zap.Logger) (*Reader, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}

	return &Reader{conn: conn, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// EventRow represents a single row from the decision_events table.
type EventRow struct {
	RequestID string
	ProjectID string
	Timestamp time.Time
	Kind      string

	TaskID                   string
	IntentPreview            string
	IntentHash               string
	EventCount               uint32
	RiskScore                int32
	RiskLevel                string
	SignalNames              []string
	SignalTriggered          []uint8
	SignalWeights            []int32
	SignalDetails            []string
	IsMutating               uint8
	ReviewPolicy             string
	RunQualityPass           uint8
	StrictCompletionContract uint8
	RunVerificationAgent     uint8
	ExplicitEvidenceRequired uint8
	IsShadow                 uint8

	RuleID         string
	EventID        string
	ConditionCount uint32
	Logic          string
	Matched        uint8
	ActionPreview  string

	LatencyMs float32
	Source    string
}

const eventColumns = "request_id, project_id, timestamp, kind, " +
	"task_id, intent_preview, intent_hash, event_count, " +
	"risk_score, risk_level, " +
	"signal_names, signal_triggered, signal_weights, signal_details, " +
	"is_mutating, review_policy, " +
	"run_quality_pass, strict_completion_contract, run_verification_agent, explicit_evidence_required, " +
	"is_shadow, " +
	"rule_id, event_id, condition_count, logic, matched, action_preview, " +
	"latency_ms, source"

func scanEventRow(row driver.Row, e *EventRow) error {
	return row.Scan(
		&e.RequestID, &e.ProjectID, &e.Timestamp, &e.Kind,
		&e.TaskID, &e.IntentPreview, &e.IntentHash, &e.EventCount,
		&e.RiskScore, &e.RiskLevel,
		&e.SignalNames, &e.SignalTriggered, &e.SignalWeights, &e.SignalDetails,
		&e.IsMutating, &e.ReviewPolicy,
		&e.RunQualityPass, &e.StrictCompletionContract, &e.RunVerificationAgent, &e.ExplicitEvidenceRequired,
		&e.IsShadow,
		&e.RuleID, &e.EventID, &e.ConditionCount, &e.Logic, &e.Matched, &e.ActionPreview,
		&e.LatencyMs, &e.Source,
	)
}

// ListEventsParams holds filters and pagination for decision listing.
type ListEventsParams struct {
	ProjectID string
	Kind      *string
	RiskLevel *string
	Signal    *string
	Matched   *bool
	IsShadow  *bool
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

// ListEvents returns paginated, filtered decision events and the total count.
func (r *Reader) ListEvents(ctx context.Context, params ListEventsParams) ([]EventRow, int, error) {
	conditions := []string{"project_id = @project_id"}
	args := []any{
		clickhouse.Named("project_id", params.ProjectID),
	}

	if params.Kind != nil {
		conditions = append(conditions, "kind = @kind")
		args = append(args, clickhouse.Named("kind", *params.Kind))
	}
	if params.RiskLevel != nil {
		conditions = append(conditions, "risk_level = @risk_level")
		args = append(args, clickhouse.Named("risk_level", *params.RiskLevel))
	}
	if params.Signal != nil {
		conditions = append(conditions, "has(signal_names, @signal)")
		args = append(args, clickhouse.Named("signal", *params.Signal))
	}
	if params.Matched != nil {
		var v uint8
		if *params.Matched {
			v = 1
		}
		conditions = append(conditions, "matched = @matched")
		args = append(args, clickhouse.Named("matched", v))
	}
	if params.IsShadow != nil {
		var v uint8
		if *params.IsShadow {
			v = 1
		}
		conditions = append(conditions, "is_shadow = @is_shadow")
		args = append(args, clickhouse.Named("is_shadow", v))
	}
	if params.StartTime != nil {
		conditions = append(conditions, "timestamp >= @start_time")
		args = append(args, clickhouse.Named("start_time", *params.StartTime))
	}
	if params.EndTime != nil {
		conditions = append(conditions, "timestamp <= @end_time")
		args = append(args, clickhouse.Named("end_time", *params.EndTime))
	}

	where := strings.Join(conditions, " AND ")
	offset := (params.Page - 1) * params.PageSize

	// Count query
	var total uint64
	countQuery := fmt.Sprintf("SELECT count() FROM decision_events WHERE %s", where)
	if err := r.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListEvents count: %w", err)
	}

	// Data query
	dataQuery := fmt.Sprintf(
		"SELECT "+eventColumns+" FROM decision_events WHERE %s "+
			"ORDER BY timestamp DESC "+
			"LIMIT @limit OFFSET @offset",
		where,
	)
	args = append(args,
		clickhouse.Named("limit", uint32(params.PageSize)),
		clickhouse.Named("offset", uint32(offset)),
	)

	rows, err := r.conn.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListEvents query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.RequestID, &e.ProjectID, &e.Timestamp, &e.Kind,
			&e.TaskID, &e.IntentPreview, &e.IntentHash, &e.EventCount,
			&e.RiskScore, &e.RiskLevel,
			&e.SignalNames, &e.SignalTriggered, &e.SignalWeights, &e.SignalDetails,
			&e.IsMutating, &e.ReviewPolicy,
			&e.RunQualityPass, &e.StrictCompletionContract, &e.RunVerificationAgent, &e.ExplicitEvidenceRequired,
			&e.IsShadow,
			&e.RuleID, &e.EventID, &e.ConditionCount, &e.Logic, &e.Matched, &e.ActionPreview,
			&e.LatencyMs, &e.Source,
		); err != nil {
			return nil, 0, fmt.Errorf("ListEvents scan: %w", err)
		}
		events = append(events, e)
	}

	return events, int(total), rows.Err()
}

// GetEvent returns a single decision by project ID and request ID, or nil if not found.
func (r *Reader) GetEvent(ctx context.Context, projectID, requestID string) (*EventRow, error) {
	row := r.conn.QueryRow(ctx,
		"SELECT "+eventColumns+" FROM decision_events "+
			"WHERE project_id = @project_id AND request_id = @request_id",
		clickhouse.Named("project_id", projectID),
		clickhouse.Named("request_id", requestID),
	)

	var e EventRow
	if err := scanEventRow(row, &e); err != nil {
		// ClickHouse doesn't return sql.ErrNoRows, so check for empty result
		return nil, fmt.Errorf("GetEvent: %w", err)
	}
	if e.RequestID == "" {
		return nil, nil
	}
	return &e, nil
}

// SummaryStats holds aggregate decision counts.
type SummaryStats struct {
	TotalDecisions     int `json:"total_decisions"`
	Assessments        int `json:"assessments"`
	TriggerEvaluations int `json:"trigger_evaluations"`
	HighRisk           int `json:"high_risk"`
	MediumRisk         int `json:"medium_risk"`
	LowRisk            int `json:"low_risk"`
}

// TimeSeriesBucket holds an hourly count.
type TimeSeriesBucket struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// SignalCount holds a signal name and how often it fired.
type SignalCount struct {
	Signal string `json:"signal"`
	Count  int    `json:"count"`
}

// GateReportStats counts how often each verification step was required.
type GateReportStats struct {
	QualityPasses      int `json:"quality_passes"`
	StrictContracts    int `json:"strict_contracts"`
	VerificationAgents int `json:"verification_agents"`
	EvidenceRequired   int `json:"evidence_required"`
}

// ShadowReportStats summarizes decisions suppressed by shadow mode.
type ShadowReportStats struct {
	Total            int `json:"total"`
	WouldQualityPass int `json:"would_quality_pass"`
	WouldVerify      int `json:"would_verify"`
}

// TriggerReportStats summarizes trigger evaluations.
type TriggerReportStats struct {
	Total   int `json:"total"`
	Matched int `json:"matched"`
}

// LatencyStats holds latency percentiles.
type LatencyStats struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// AnalyticsResult holds all analytics aggregations.
type AnalyticsResult struct {
	Summary            SummaryStats       `json:"summary"`
	DecisionsOverTime  []TimeSeriesBucket `json:"decisions_over_time"`
	TopSignals         []SignalCount      `json:"top_signals"`
	GateReport         GateReportStats    `json:"gate_report"`
	ShadowReport       ShadowReportStats  `json:"shadow_report"`
	TriggerReport      TriggerReportStats `json:"trigger_report"`
	LatencyPercentiles LatencyStats       `json:"latency_percentiles"`
}

// GetAnalytics returns aggregated analytics for a project over the given number of days.
func (r *Reader) GetAnalytics(ctx context.Context, projectID string, days int) (*AnalyticsResult, error) {
	now := time.Now().UTC()
	rangeStart := now.Add(-time.Duration(days) * 24 * time.Hour)
	dayStart := now.Add(-24 * time.Hour)

	baseArgs := []any{
		clickhouse.Named("project_id", projectID),
		clickhouse.Named("range_start", rangeStart),
	}

	result := &AnalyticsResult{}

	// Summary counts. Trigger rows carry an empty risk_level so the
	// level countIfs only see assessments.
	var total, assessments, triggerEvals, highRisk, mediumRisk, lowRisk uint64
	err := r.conn.QueryRow(ctx,
		"SELECT count() as total, "+
			"countIf(kind = 'task_assessment') as assessments, "+
			"countIf(kind = 'trigger_evaluation') as trigger_evals, "+
			"countIf(risk_level = 'high') as high_risk, "+
			"countIf(risk_level = 'medium') as medium_risk, "+
			"countIf(risk_level = 'low') as low_risk "+
			"FROM decision_events "+
			"WHERE project_id = @project_id AND timestamp >= @range_start",
		baseArgs...,
	).Scan(&total, &assessments, &triggerEvals, &highRisk, &mediumRisk, &lowRisk)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics summary: %w", err)
	}
	result.Summary = SummaryStats{
		TotalDecisions:     int(total),
		Assessments:        int(assessments),
		TriggerEvaluations: int(triggerEvals),
		HighRisk:           int(highRisk),
		MediumRisk:         int(mediumRisk),
		LowRisk:            int(lowRisk),
	}

	// Decisions over time (hourly)
	dotRows, err := r.conn.Query(ctx,
		"SELECT toStartOfHour(timestamp) as hour, count() as count "+
			"FROM decision_events "+
			"WHERE project_id = @project_id AND timestamp >= @range_start "+
			"GROUP BY hour ORDER BY hour",
		baseArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics decisions_over_time: %w", err)
	}
	defer func() { _ = dotRows.Close() }()
	for dotRows.Next() {
		var hour time.Time
		var count uint64
		if err := dotRows.Scan(&hour, &count); err != nil {
			return nil, fmt.Errorf("GetAnalytics decisions_over_time scan: %w", err)
		}
		result.DecisionsOverTime = append(result.DecisionsOverTime, TimeSeriesBucket{
			Hour:  hour.Format(time.RFC3339),
			Count: int(count),
		})
	}

	// Top triggered signals
	sigRows, err := r.conn.Query(ctx,
		"SELECT arrayJoin(arrayFilter((name, trig) -> trig = 1, signal_names, signal_triggered)) as signal, "+
			"count() as count "+
			"FROM decision_events "+
			"WHERE project_id = @project_id AND kind = 'task_assessment' "+
			"AND timestamp >= @range_start "+
			"GROUP BY signal ORDER BY count DESC LIMIT 10",
		baseArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics top_signals: %w", err)
	}
	defer func() { _ = sigRows.Close() }()
	for sigRows.Next() {
		var sig string
		var count uint64
		if err := sigRows.Scan(&sig, &count); err != nil {
			return nil, fmt.Errorf("GetAnalytics top_signals scan: %w", err)
		}
		result.TopSignals = append(result.TopSignals, SignalCount{
			Signal: sig, Count: int(count),
		})
	}

	// Gate report
	var qualityPasses, strictContracts, verificationAgents, evidenceRequired uint64
	err = r.conn.QueryRow(ctx,
		"SELECT countIf(run_quality_pass = 1) as quality_passes, "+
			"countIf(strict_completion_contract = 1) as strict_contracts, "+
			"countIf(run_verification_agent = 1) as verification_agents, "+
			"countIf(explicit_evidence_required = 1) as evidence_required "+
			"FROM decision_events "+
			"WHERE project_id = @project_id AND kind = 'task_assessment' "+
			"AND timestamp >= @range_start",
		baseArgs...,
	).Scan(&qualityPasses, &strictContracts, &verificationAgents, &evidenceRequired)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics gate_report: %w", err)
	}
	result.GateReport = GateReportStats{
		QualityPasses:      int(qualityPasses),
		StrictContracts:    int(strictContracts),
		VerificationAgents: int(verificationAgents),
		EvidenceRequired:   int(evidenceRequired),
	}

	// Shadow report
	var shadowTotal, wouldQualityPass, wouldVerify uint64
	err = r.conn.QueryRow(ctx,
		"SELECT count() as total, "+
			"countIf(run_quality_pass = 1) as would_quality_pass, "+
			"countIf(run_verification_agent = 1) as would_verify "+
			"FROM decision_events "+
			"WHERE project_id = @project_id AND is_shadow = 1 "+
			"AND timestamp >= @range_start",
		baseArgs...,
	).Scan(&shadowTotal, &wouldQualityPass, &wouldVerify)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics shadow_report: %w", err)
	}
	result.ShadowReport = ShadowReportStats{
		Total: int(shadowTotal), WouldQualityPass: int(wouldQualityPass), WouldVerify: int(wouldVerify),
	}

	// Trigger report
	var trigTotal, trigMatched uint64
	err = r.conn.QueryRow(ctx,
		"SELECT count() as total, "+
			"countIf(matched = 1) as matched_count "+
			"FROM decision_events "+
			"WHERE project_id = @project_id AND kind = 'trigger_evaluation' "+
			"AND timestamp >= @range_start",
		baseArgs...,
	).Scan(&trigTotal, &trigMatched)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics trigger_report: %w", err)
	}
	result.TriggerReport = TriggerReportStats{
		Total: int(trigTotal), Matched: int(trigMatched),
	}

	// Latency percentiles (last 24h)
	var p50, p95, p99 float64
	err = r.conn.QueryRow(ctx,
		"SELECT quantile(0.5)(latency_ms) as p50, "+
			"quantile(0.95)(latency_ms) as p95, "+
			"quantile(0.99)(latency_ms) as p99 "+
			"FROM decision_events "+
			"WHERE project_id = @project_id AND timestamp >= @day_start",
		clickhouse.Named("project_id", projectID),
		clickhouse.Named("day_start", dayStart),
	).Scan(&p50, &p95, &p99)
	if err != nil {
		return nil, fmt.Errorf("GetAnalytics latency: %w", err)
	}
	result.LatencyPercentiles = LatencyStats{
		P50: safeFloat(p50), P95: safeFloat(p95), P99: safeFloat(p99),
	}

	// Ensure slices are non-nil for JSON serialization
	if result.DecisionsOverTime == nil {
		result.DecisionsOverTime = []TimeSeriesBucket{}
	}
	if result.TopSignals == nil {
		result.TopSignals = []SignalCount{}
	}

	return result, nil
}

// safeFloat replaces NaN/Inf with 0.0.
// ClickHouse returns NaN for quantile() on empty result sets.
func safeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0.0
	}
	return f
}
