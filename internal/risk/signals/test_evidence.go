package signals

import (
	"regexp"
	"strings"

	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/task"
)

// Intent wording that implies the task is expected to verify its work.
var verificationKeywordPattern = regexp.MustCompile(
	`(?i)\b(test|tests|tested|testing|verify|verified|verification|validate|validated|validation)\b`)

// Command text that counts as test execution.
var testCommandPattern = regexp.MustCompile(
	`(?i)\b(go test|pytest|py\.test|jest|vitest|mocha|rspec|phpunit|cargo test|npm (run )?test|yarn test|pnpm test|make (test|check)|ctest|tox|mvn test|gradle test|python -m (unittest|pytest))\b`)

// Tool names that run tests directly, without shell command text.
var testRunnerTools = map[string]bool{
	"run_test":    true,
	"run_tests":   true,
	"test_runner": true,
}

// TestEvidence fires when the intent expects testing or verification but
// the event stream holds no test execution.
type TestEvidence struct {
	runners       map[string]bool
	extraKeywords *regexp.Regexp
	extraCommands *regexp.Regexp
}

// NewTestEvidence builds the signal with optional extensions: extraKeywords
// widens the intent wording table, extraCommands widens what counts as a
// test run.
func NewTestEvidence(extraKeywords, extraCommands []string) *TestEvidence {
	return &TestEvidence{
		runners:       defaultCommandRunners,
		extraKeywords: wordPattern(extraKeywords),
		extraCommands: wordPattern(extraCommands),
	}
}

func (d *TestEvidence) Name() risk.Signal { return risk.SignalTestsExpectedNoEvidence }

func (d *TestEvidence) Detect(in *risk.Input) risk.Finding {
	intentText := in.Intent.Title + "\n" + in.Intent.Prompt
	if !d.expectsTests(intentText) {
		return risk.Finding{}
	}
	for i := range in.Events {
		ev := &in.Events[i]
		if ev.Type != task.EventToolCall || ev.ToolCall == nil {
			continue
		}
		tool := strings.ToLower(ev.ToolCall.Tool)
		if testRunnerTools[tool] {
			return risk.Finding{}
		}
		if d.runners[tool] && d.isTestCommand(ev.ToolCall.Input) {
			return risk.Finding{}
		}
	}
	return risk.Finding{
		Triggered: true,
		Details:   "intent expects testing but no test execution found",
	}
}

func (d *TestEvidence) expectsTests(intentText string) bool {
	if verificationKeywordPattern.MatchString(intentText) {
		return true
	}
	return d.extraKeywords != nil && d.extraKeywords.MatchString(intentText)
}

func (d *TestEvidence) isTestCommand(input string) bool {
	if testCommandPattern.MatchString(input) {
		return true
	}
	return d.extraCommands != nil && d.extraCommands.MatchString(input)
}
