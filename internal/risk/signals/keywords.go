package signals

import (
	"regexp"
	"strings"
)

// Tools whose input is shell-like command text. Shared by the mutation
// signal, the test-evidence signal and task mutation classification.
var defaultCommandRunners = map[string]bool{
	"bash":              true,
	"sh":                true,
	"zsh":               true,
	"shell":             true,
	"terminal":          true,
	"exec":              true,
	"cmd":               true,
	"powershell":        true,
	"git":               true,
	"run_command":       true,
	"run_shell_command": true,
	"execute_command":   true,
}

const detailPreviewLength = 120

// preview truncates command text for finding details, rune-safe.
func preview(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= detailPreviewLength {
		return s
	}
	return string(runes[:detailPreviewLength]) + "..."
}

// mergeRunners extends the default command-runner set with configured tool
// names, lowercased. Returns the default map untouched when there is
// nothing to add.
func mergeRunners(extra []string) map[string]bool {
	if len(extra) == 0 {
		return defaultCommandRunners
	}
	runners := make(map[string]bool, len(defaultCommandRunners)+len(extra))
	for tool := range defaultCommandRunners {
		runners[tool] = true
	}
	for _, tool := range extra {
		tool = strings.ToLower(strings.TrimSpace(tool))
		if tool != "" {
			runners[tool] = true
		}
	}
	return runners
}

// wordPattern builds a case-insensitive whole-word alternation from
// configured keywords. Returns nil when no usable words remain.
func wordPattern(words []string) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(w)))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}
