package signals

import (
	"fmt"
	"strings"

	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/task"
)

// failureThreshold is the number of errors from one tool family that marks
// the stream as repeatedly failing.
const failureThreshold = 3

// RepeatedFailures fires when failureThreshold or more tool errors come
// from the same tool family.
type RepeatedFailures struct {
	threshold int
}

func NewRepeatedFailures() *RepeatedFailures {
	return &RepeatedFailures{threshold: failureThreshold}
}

func (d *RepeatedFailures) Name() risk.Signal { return risk.SignalRepeatedToolFailures }

// toolFamily collapses a tool name to its leading segment so closely
// related tools (web_fetch, web_search) share one failure streak.
func toolFamily(tool string) string {
	tool = strings.ToLower(strings.TrimSpace(tool))
	if i := strings.IndexAny(tool, "_.-"); i > 0 {
		return tool[:i]
	}
	return tool
}

func (d *RepeatedFailures) Detect(in *risk.Input) risk.Finding {
	counts := make(map[string]int)
	for i := range in.Events {
		ev := &in.Events[i]
		if ev.Type != task.EventToolError || ev.ToolError == nil {
			continue
		}
		family := toolFamily(ev.ToolError.Tool)
		if family == "" {
			continue
		}
		counts[family]++
		if counts[family] >= d.threshold {
			return risk.Finding{
				Triggered: true,
				Details:   fmt.Sprintf("%d failures from %s tools", counts[family], family),
			}
		}
	}
	return risk.Finding{}
}
