package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressReporter shows a progress bar over the targets of a scan.
// A nil *progressReporter is valid and reports nothing.
type progressReporter struct {
	out       io.Writer
	bar       *progressbar.ProgressBar
	startTime time.Time
}

// newProgressReporter returns nil when progress output is disabled.
func newProgressReporter(enabled bool, out io.Writer) *progressReporter {
	if !enabled {
		return nil
	}
	return &progressReporter{out: out, startTime: time.Now()}
}

func (p *progressReporter) OnScanStart(totalTargets int) {
	if p == nil {
		return
	}
	p.bar = progressbar.NewOptions(totalTargets,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Scanning targets"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("targets/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.out)
		}),
	)
}

func (p *progressReporter) OnTargetDone() {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.Add(1)
}

func (p *progressReporter) OnComplete(totals scanTotals) {
	if p == nil {
		return
	}
	if p.bar != nil {
		p.bar.Finish()
	}
	fmt.Fprintf(p.out, "✓ Scanned %d target(s) in %s: %d declaration(s), %d skipped, %d failed\n",
		totals.Targets, time.Since(p.startTime).Round(time.Millisecond),
		totals.Declarations, totals.Skipped, totals.Failed)
}
