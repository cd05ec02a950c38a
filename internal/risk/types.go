package risk

// Signal names one risk heuristic. Signal names are part of the wire and
// storage format: they appear in assessment reasons, per-project overrides
// and persisted decision events.
type Signal string

const (
	SignalShellOrGitMutation      Signal = "shell_or_git_mutation"
	SignalRepeatedToolFailures    Signal = "repeated_tool_failures"
	SignalManyFilesChanged        Signal = "more_than_five_files_changed"
	SignalTestsExpectedNoEvidence Signal = "tests_expected_without_evidence"
)

// KnownSignals lists every signal the catalog can produce, in evaluation
// order.
func KnownSignals() []Signal {
	return []Signal{
		SignalShellOrGitMutation,
		SignalRepeatedToolFailures,
		SignalManyFilesChanged,
		SignalTestsExpectedNoEvidence,
	}
}

// Level is the discrete risk tier derived from a cumulative score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Rank orders levels for comparisons: low < medium < high. Unknown levels
// rank below low.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	}
	return 0
}

// AtLeast reports whether l is min or a higher tier.
func (l Level) AtLeast(min Level) bool {
	return l.Rank() >= min.Rank()
}

// Level thresholds. A score of zero is low, anything positive is at least
// medium, and highFloor upward is high. Weights are tuned against these
// boundaries, so changing either side without the other shifts every
// downstream review decision.
const (
	mediumFloor = 1
	highFloor   = 6
)

// LevelForScore maps a cumulative score onto its risk level.
func LevelForScore(score int) Level {
	switch {
	case score >= highFloor:
		return LevelHigh
	case score >= mediumFloor:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Assessment is the outcome of scoring one task: the cumulative score, the
// level it lands in and the signals that fired, in evaluation order.
type Assessment struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Reasons []Signal `json:"reasons"`
}
