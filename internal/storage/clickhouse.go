package storage

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

const (
	bufferSize    = 10_000
	flushInterval = 100 * time.Millisecond
	flushBatch    = 1000
	drainTimeout  = 2 * time.Second
)

// ClickHouseWriter writes decision events to ClickHouse asynchronously.
// Write() is non-blocking — events are buffered and batch-inserted in a
// background goroutine.
type ClickHouseWriter struct {
	conn    driver.Conn
	buffer  chan *DecisionEvent
	done    chan struct{}
	flushed chan struct{} // closed by flushLoop when it returns
	logger  *zap.Logger
}

// NewClickHouseWriter creates a ClickHouseWriter and starts the background
// flush loop.
func NewClickHouseWriter(dsn string, logger *zap.Logger) (*ClickHouseWriter, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	// ParseDSN enables TLS when ?secure=true is in the DSN; enforce it
	// here so managed deployments (port 9440) work without the flag.
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	w := &ClickHouseWriter{
		conn:    conn,
		buffer:  make(chan *DecisionEvent, bufferSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		logger:  logger,
	}

	go w.flushLoop()
	return w, nil
}

// Write queues a decision event for async insertion.
// Non-blocking: drops the event if the buffer is full.
func (w *ClickHouseWriter) Write(event *DecisionEvent) {
	select {
	case w.buffer <- event:
	default:
		w.logger.Warn("clickhouse buffer full, dropping event",
			zap.String("request_id", event.RequestID),
		)
	}
}

// Close signals the flush loop to drain remaining events, waits for it to
// finish (up to drainTimeout), and then returns. Safe to call once.
func (w *ClickHouseWriter) Close() {
	close(w.done)
	<-w.flushed
}

func (w *ClickHouseWriter) flushLoop() {
	defer close(w.flushed)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*DecisionEvent, 0, flushBatch)

	for {
		select {
		case event := <-w.buffer:
			batch = append(batch, event)
			if len(batch) >= flushBatch {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-w.done:
			// Drain remaining events from buffer
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
		drainLoop:
			for {
				select {
				case event := <-w.buffer:
					batch = append(batch, event)
				case <-drainCtx.Done():
					break drainLoop
				default:
					break drainLoop
				}
			}
			if len(batch) > 0 {
				w.flush(batch)
			}
			return
		}
	}
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (w *ClickHouseWriter) flush(events []*DecisionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := w.conn.PrepareBatch(ctx, `
		INSERT INTO decision_events (
			request_id, project_id, timestamp, kind,
			task_id, intent_preview, intent_hash, event_count,
			risk_score, risk_level,
			signal_names, signal_triggered, signal_weights, signal_details,
			is_mutating, review_policy,
			run_quality_pass, strict_completion_contract, run_verification_agent, explicit_evidence_required,
			is_shadow,
			rule_id, event_id, condition_count, logic, matched, action_preview,
			latency_ms, source
		)
	`)
	if err != nil {
		w.logger.Error("clickhouse prepare batch failed", zap.Error(err))
		return
	}

	for _, e := range events {
		// Convert []bool to []uint8 for ClickHouse
		triggeredUint8 := make([]uint8, len(e.SignalTriggered))
		for i, t := range e.SignalTriggered {
			if t {
				triggeredUint8[i] = 1
			}
		}

		if err := batch.Append(
			e.RequestID,
			e.ProjectID,
			e.Timestamp,
			e.Kind,
			e.TaskID,
			e.IntentPreview,
			e.IntentHash,
			e.EventCount,
			e.RiskScore,
			e.RiskLevel,
			e.SignalNames,
			triggeredUint8,
			e.SignalWeights,
			e.SignalDetails,
			boolToUint8(e.IsMutating),
			e.ReviewPolicy,
			boolToUint8(e.RunQualityPass),
			boolToUint8(e.StrictCompletionContract),
			boolToUint8(e.RunVerificationAgent),
			boolToUint8(e.ExplicitEvidenceRequired),
			boolToUint8(e.IsShadow),
			e.RuleID,
			e.EventID,
			e.ConditionCount,
			e.Logic,
			boolToUint8(e.Matched),
			e.ActionPreview,
			e.LatencyMs,
			e.Source,
		); err != nil {
			w.logger.Error("clickhouse append event failed",
				zap.String("request_id", e.RequestID),
				zap.Error(err),
			)
		}
	}

	if err := batch.Send(); err != nil {
		w.logger.Error("clickhouse batch send failed",
			zap.Int("batch_size", len(events)),
			zap.Error(err),
		)
	}
}

// LogWriter is a fallback EventWriter for local development.
// It logs events as structured JSON to stdout via zap.
type LogWriter struct {
	logger *zap.Logger
}

// NewLogWriter creates a LogWriter that outputs events to the given logger.
func NewLogWriter(logger *zap.Logger) *LogWriter {
	return &LogWriter{logger: logger}
}

func (w *LogWriter) Write(event *DecisionEvent) {
	w.logger.Info("decision_event",
		zap.String("request_id", event.RequestID),
		zap.String("project_id", event.ProjectID),
		zap.String("kind", event.Kind),
		zap.String("task_id", event.TaskID),
		zap.Int32("risk_score", event.RiskScore),
		zap.String("risk_level", event.RiskLevel),
		zap.Strings("signal_names", event.SignalNames),
		zap.String("review_policy", event.ReviewPolicy),
		zap.Bool("is_shadow", event.IsShadow),
		zap.String("rule_id", event.RuleID),
		zap.Bool("matched", event.Matched),
		zap.Float32("latency_ms", event.LatencyMs),
	)
}

func (w *LogWriter) Close() {}
