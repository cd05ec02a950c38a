package risk

import "github.com/CoWork-OS/warden/internal/task"

// defaultWeights is the signal catalog's declarative weight table. Adding a
// signal means writing its detector and adding a row here; the aggregation
// loop never changes.
var defaultWeights = map[Signal]int{
	SignalShellOrGitMutation:      2,
	SignalRepeatedToolFailures:    1,
	SignalManyFilesChanged:        2,
	SignalTestsExpectedNoEvidence: 2,
}

// DefaultWeights returns a copy of the built-in signal weight table.
func DefaultWeights() map[Signal]int {
	w := make(map[Signal]int, len(defaultWeights))
	for sig, weight := range defaultWeights {
		w[sig] = weight
	}
	return w
}

// SignalResult is one detector's outcome together with the weight it
// carries when triggered.
type SignalResult struct {
	Signal    Signal
	Triggered bool
	Weight    int
	Details   string
}

// Scorer runs a fixed detector catalog over task snapshots. The catalog and
// base weights are set once at construction; per-project adjustments flow
// through Overrides on each call.
type Scorer struct {
	detectors []Detector
	weights   map[Signal]int
}

// NewScorer builds a Scorer over the given detectors. A nil weights map
// selects the built-in table. Detectors whose signal has no weight row
// contribute zero but still report, so a miswired catalog stays visible in
// results instead of silently vanishing.
func NewScorer(detectors []Detector, weights map[Signal]int) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{detectors: detectors, weights: weights}
}

// Evaluate runs every enabled detector against the snapshot and returns the
// per-signal results in catalog order. Signals disabled by the overrides
// are skipped entirely and do not appear in the results.
func (s *Scorer) Evaluate(intent task.Intent, events []task.Event, o Overrides) []SignalResult {
	in := &Input{Intent: intent, Events: events}
	results := make([]SignalResult, 0, len(s.detectors))
	for _, d := range s.detectors {
		sig := d.Name()
		weight, enabled := o.effectiveWeight(sig, s.weights[sig])
		if !enabled {
			continue
		}
		f := d.Detect(in)
		results = append(results, SignalResult{
			Signal:    sig,
			Triggered: f.Triggered,
			Weight:    weight,
			Details:   f.Details,
		})
	}
	return results
}

// Aggregate folds per-signal results into an Assessment. Each triggered
// signal contributes its weight exactly once and appends its name to
// Reasons; the level follows from the cumulative score. Reasons is always
// non-nil so an all-clear assessment serializes as an empty list.
func Aggregate(results []SignalResult) Assessment {
	score := 0
	reasons := make([]Signal, 0, len(results))
	for _, r := range results {
		if !r.Triggered {
			continue
		}
		score += r.Weight
		reasons = append(reasons, r.Signal)
	}
	return Assessment{
		Score:   score,
		Level:   LevelForScore(score),
		Reasons: reasons,
	}
}

// ScoreTask evaluates the full catalog with no overrides and aggregates the
// results. This is the one-call form used when no project policy applies.
func (s *Scorer) ScoreTask(intent task.Intent, events []task.Event) Assessment {
	return Aggregate(s.Evaluate(intent, events, Overrides{}))
}
