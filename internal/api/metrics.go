package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision endpoints. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Assessments by resulting risk level and review policy
	Assessments *prometheus.CounterVec

	// Trigger evaluations by match outcome
	TriggerEvaluations *prometheus.CounterVec

	// Engine latencies
	AssessmentLatency  prometheus.Histogram
	TriggerEvalLatency prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all engine metrics registered
// on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Assessments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_assessments_total",
			Help: "Total task assessments by risk level and review policy",
		}, []string{"risk_level", "policy"}),

		TriggerEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_trigger_evaluations_total",
			Help: "Total trigger evaluations by match outcome",
		}, []string{"matched"}),

		AssessmentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_assessment_duration_seconds",
			Help:    "Duration of task assessment including signal evaluation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		TriggerEvalLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_trigger_evaluation_duration_seconds",
			Help:    "Duration of trigger condition evaluation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

// ObserveAssessment records one completed assessment.
func (m *Metrics) ObserveAssessment(riskLevel, policy string, d time.Duration) {
	if m != nil {
		m.Assessments.WithLabelValues(riskLevel, policy).Inc()
		m.AssessmentLatency.Observe(d.Seconds())
	}
}

// ObserveTriggerEval records one completed trigger evaluation.
func (m *Metrics) ObserveTriggerEval(matched bool, d time.Duration) {
	if m != nil {
		m.TriggerEvaluations.WithLabelValues(strconv.FormatBool(matched)).Inc()
		m.TriggerEvalLatency.Observe(d.Seconds())
	}
}
