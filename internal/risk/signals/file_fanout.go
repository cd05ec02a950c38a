package signals

import (
	"fmt"

	"github.com/CoWork-OS/warden/internal/risk"
)

// fileChangeLimit is the number of distinct touched paths a task may reach
// before its change surface counts as risky. The signal fires strictly
// above the limit.
const fileChangeLimit = 5

// FileFanout fires when a task touches more distinct workspace paths than
// fileChangeLimit. Repeated changes to one path count once.
type FileFanout struct {
	limit int
}

func NewFileFanout() *FileFanout {
	return &FileFanout{limit: fileChangeLimit}
}

func (d *FileFanout) Name() risk.Signal { return risk.SignalManyFilesChanged }

func (d *FileFanout) Detect(in *risk.Input) risk.Finding {
	touched := make(map[string]struct{})
	for i := range in.Events {
		ev := &in.Events[i]
		if !ev.Type.IsFileChange() || ev.File == nil || ev.File.Path == "" {
			continue
		}
		touched[ev.File.Path] = struct{}{}
	}
	if len(touched) > d.limit {
		return risk.Finding{
			Triggered: true,
			Details:   fmt.Sprintf("%d distinct files changed", len(touched)),
		}
	}
	return risk.Finding{}
}
