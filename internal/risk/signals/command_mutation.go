package signals

import (
	"regexp"
	"strings"

	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/task"
)

// Verbs that change workspace or repository state: version-control writes,
// deletions and moves, permission changes, package installs and shell
// output redirection. Matching is whole-word so "committed" in prose-like
// input does not fire.
var mutatingCommandPattern = regexp.MustCompile(
	`(?i)\b(commit|push|merge|rebase|rm|rmdir|del|mv|chmod|chown|install|uninstall|purge|mkfs|dd|tee|truncate)\b` +
		`|(^|[^-=>])>{1,2}`)

// CommandMutation fires when any command-runner tool call carries mutating
// command text.
type CommandMutation struct {
	runners map[string]bool
	extra   *regexp.Regexp
}

// NewCommandMutation builds the signal with optional extensions: extraTools
// adds command-runner tool names, extraVerbs adds whole-word mutating verbs.
func NewCommandMutation(extraTools, extraVerbs []string) *CommandMutation {
	return &CommandMutation{
		runners: mergeRunners(extraTools),
		extra:   wordPattern(extraVerbs),
	}
}

func (d *CommandMutation) Name() risk.Signal { return risk.SignalShellOrGitMutation }

func (d *CommandMutation) Detect(in *risk.Input) risk.Finding {
	for i := range in.Events {
		ev := &in.Events[i]
		if ev.Type != task.EventToolCall || ev.ToolCall == nil {
			continue
		}
		if !d.runners[strings.ToLower(ev.ToolCall.Tool)] {
			continue
		}
		input := ev.ToolCall.Input
		if mutatingCommandPattern.MatchString(input) || (d.extra != nil && d.extra.MatchString(input)) {
			return risk.Finding{Triggered: true, Details: "mutating command: " + preview(input)}
		}
	}
	return risk.Finding{}
}

// IsMutatingTask classifies a task as mutating when its events include a
// workspace file change or a mutating command invocation. Callers that use
// their own change tracking pass their classification instead.
func IsMutatingTask(events []task.Event) bool {
	for i := range events {
		ev := &events[i]
		if ev.Type.IsFileChange() && ev.File != nil {
			return true
		}
		if ev.Type != task.EventToolCall || ev.ToolCall == nil {
			continue
		}
		if defaultCommandRunners[strings.ToLower(ev.ToolCall.Tool)] && mutatingCommandPattern.MatchString(ev.ToolCall.Input) {
			return true
		}
	}
	return false
}
