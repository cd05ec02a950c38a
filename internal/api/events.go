package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/CoWork-OS/warden/internal/chread"
	"github.com/CoWork-OS/warden/internal/gate"
	"github.com/CoWork-OS/warden/internal/storage"
)

func (d *Dependencies) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "ClickHouse not configured"})
		return
	}

	q := r.URL.Query()
	projectID := q.Get("project_id")
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "project_id query parameter is required"})
		return
	}

	params := chread.ListEventsParams{
		ProjectID: projectID,
		Page:      queryInt(q, "page", 1),
		PageSize:  queryInt(q, "page_size", 50),
	}
	if params.PageSize > 200 {
		params.PageSize = 200
	}
	if params.Page < 1 {
		params.Page = 1
	}

	if v := q.Get("kind"); v != "" {
		params.Kind = &v
	}
	if v := q.Get("risk_level"); v != "" {
		params.RiskLevel = &v
	}
	if v := q.Get("signal"); v != "" {
		params.Signal = &v
	}
	if v := q.Get("matched"); v != "" {
		b := v == "true" || v == "1"
		params.Matched = &b
	}
	if v := q.Get("is_shadow"); v != "" {
		b := v == "true" || v == "1"
		params.IsShadow = &b
	}
	if v := q.Get("start_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.StartTime = &t
		}
	}
	if v := q.Get("end_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			params.EndTime = &t
		}
	}

	events, total, err := d.Reader.ListEvents(r.Context(), params)
	if err != nil {
		d.Logger.Error("failed to list events", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to list events"})
		return
	}

	resp := EventListResp{
		Events:   make([]DecisionEventResp, 0, len(events)),
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	for _, e := range events {
		resp.Events = append(resp.Events, eventRowToResp(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (d *Dependencies) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "ClickHouse not configured"})
		return
	}

	requestID := r.PathValue("request_id")
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "project_id query parameter is required"})
		return
	}

	event, err := d.Reader.GetEvent(r.Context(), projectID, requestID)
	if err != nil {
		d.Logger.Error("failed to get event", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get event"})
		return
	}
	if event == nil {
		writeJSON(w, http.StatusNotFound, ErrorResp{Detail: "Event not found."})
		return
	}

	writeJSON(w, http.StatusOK, eventRowToResp(*event))
}

func (d *Dependencies) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	if d.Reader == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResp{Detail: "ClickHouse not configured"})
		return
	}

	q := r.URL.Query()
	projectID := q.Get("project_id")
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "project_id query parameter is required"})
		return
	}

	days := queryInt(q, "days", 7)
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}

	result, err := d.Reader.GetAnalytics(r.Context(), projectID, days)
	if err != nil {
		d.Logger.Error("failed to get analytics", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "Failed to get analytics"})
		return
	}

	writeJSON(w, http.StatusOK, AnalyticsResp{
		Summary: SummaryStatsResp{
			TotalDecisions:     result.Summary.TotalDecisions,
			Assessments:        result.Summary.Assessments,
			TriggerEvaluations: result.Summary.TriggerEvaluations,
			HighRisk:           result.Summary.HighRisk,
			MediumRisk:         result.Summary.MediumRisk,
			LowRisk:            result.Summary.LowRisk,
		},
		DecisionsOverTime: toTimeSeriesResp(result.DecisionsOverTime),
		TopSignals:        toSignalCountResp(result.TopSignals),
		GateReport: GateReportResp{
			QualityPasses:      result.GateReport.QualityPasses,
			StrictContracts:    result.GateReport.StrictContracts,
			VerificationAgents: result.GateReport.VerificationAgents,
			EvidenceRequired:   result.GateReport.EvidenceRequired,
		},
		ShadowReport: ShadowReportResp{
			Total:            result.ShadowReport.Total,
			WouldQualityPass: result.ShadowReport.WouldQualityPass,
			WouldVerify:      result.ShadowReport.WouldVerify,
		},
		TriggerReport: TriggerReportResp{
			Total:   result.TriggerReport.Total,
			Matched: result.TriggerReport.Matched,
		},
		LatencyPercentiles: LatencyPercentilesResp{
			P50: result.LatencyPercentiles.P50,
			P95: result.LatencyPercentiles.P95,
			P99: result.LatencyPercentiles.P99,
		},
	})
}

// eventRowToResp converts a ClickHouse EventRow to the API response.
// Signal results are stored as parallel arrays and reconstructed here;
// only the field group matching Kind is populated.
func eventRowToResp(e chread.EventRow) DecisionEventResp {
	resp := DecisionEventResp{
		RequestID:  e.RequestID,
		ProjectID:  e.ProjectID,
		Kind:       e.Kind,
		RiskScore:  int(e.RiskScore),
		IsMutating: e.IsMutating == 1,
		IsShadow:   e.IsShadow == 1,
		LatencyMs:  e.LatencyMs,
		Source:     e.Source,
		Timestamp:  e.Timestamp,
	}

	switch e.Kind {
	case storage.KindTaskAssessment:
		resp.TaskID = nilIfEmpty(e.TaskID)
		resp.RiskLevel = nilIfEmpty(e.RiskLevel)
		resp.ReviewPolicy = nilIfEmpty(e.ReviewPolicy)
		resp.Signals = signalArraysToResp(e)
		resp.Decision = &gate.Decision{
			RunQualityPass:           e.RunQualityPass == 1,
			StrictCompletionContract: e.StrictCompletionContract == 1,
			RunVerificationAgent:     e.RunVerificationAgent == 1,
			ExplicitEvidenceRequired: e.ExplicitEvidenceRequired == 1,
		}
	case storage.KindTriggerEvaluation:
		resp.RuleID = nilIfEmpty(e.RuleID)
		resp.EventID = nilIfEmpty(e.EventID)
		matched := e.Matched == 1
		resp.Matched = &matched
		resp.ActionPreview = nilIfEmpty(e.ActionPreview)
	}

	return resp
}

func signalArraysToResp(e chread.EventRow) []SignalResultResp {
	signals := make([]SignalResultResp, 0, len(e.SignalNames))
	for i, name := range e.SignalNames {
		var triggered bool
		if i < len(e.SignalTriggered) {
			triggered = e.SignalTriggered[i] == 1
		}
		var weight int
		if i < len(e.SignalWeights) {
			weight = int(e.SignalWeights[i])
		}
		var details *string
		if i < len(e.SignalDetails) && e.SignalDetails[i] != "" {
			s := e.SignalDetails[i]
			details = &s
		}
		signals = append(signals, SignalResultResp{
			Signal:    name,
			Triggered: triggered,
			Weight:    weight,
			Details:   details,
		})
	}
	return signals
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func queryInt(q url.Values, key string, defaultVal int) int {
	v := q.Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func toTimeSeriesResp(buckets []chread.TimeSeriesBucket) []TimeSeriesBucketResp {
	out := make([]TimeSeriesBucketResp, len(buckets))
	for i, b := range buckets {
		out[i] = TimeSeriesBucketResp{Hour: b.Hour, Count: b.Count}
	}
	return out
}

func toSignalCountResp(signals []chread.SignalCount) []SignalCountResp {
	out := make([]SignalCountResp, len(signals))
	for i, s := range signals {
		out[i] = SignalCountResp{Signal: s.Signal, Count: s.Count}
	}
	return out
}
