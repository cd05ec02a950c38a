package risk

import "github.com/CoWork-OS/warden/internal/task"

// Input is the read-only snapshot a detector inspects: the task's declared
// intent plus its execution events in log order.
type Input struct {
	Intent task.Intent
	Events []task.Event
}

// Finding is the outcome of one detector run. Details is a short
// human-readable note for persisted events and API responses; it never
// feeds back into scoring.
type Finding struct {
	Triggered bool
	Details   string
}

// Detector implements one risk signal. Detectors are pure: they read the
// snapshot, keep no state between calls and never fail. Anything in the
// snapshot a detector does not understand it ignores.
type Detector interface {
	// Name returns the signal this detector reports as.
	Name() Signal

	// Detect inspects the snapshot and reports whether the signal fires.
	Detect(in *Input) Finding
}
