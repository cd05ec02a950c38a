package signals

import "github.com/CoWork-OS/warden/internal/risk"

// Config tunes the built-in signal catalog. The zero value uses the default
// keyword tables unchanged; every field extends a table, none replaces one.
type Config struct {
	ExtraCommandRunners []string
	ExtraMutatingVerbs  []string
	ExtraTestKeywords   []string
	ExtraTestCommands   []string
}

// Catalog returns the full detector set in canonical evaluation order. The
// order fixes the ordering of assessment reasons and persisted signal
// columns.
func Catalog(cfg Config) []risk.Detector {
	return []risk.Detector{
		NewCommandMutation(cfg.ExtraCommandRunners, cfg.ExtraMutatingVerbs),
		NewRepeatedFailures(),
		NewFileFanout(),
		NewTestEvidence(cfg.ExtraTestKeywords, cfg.ExtraTestCommands),
	}
}
