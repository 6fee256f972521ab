package workgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/hhkbp2/go-strftime"
)

const TimestampFormat = "%Y-%m-%d %H:%M:%S"

func Timestamp(t time.Time) string {
	return strftime.Format(TimestampFormat, t)
}

// ProgressBar shows the operations done out of a known total.
type ProgressBar struct {
	*pb.ProgressBar
}

func NewProgressBar(total int64) *ProgressBar {
	bar := pb.New64(total)
	bar.SetWriter(os.Stderr)
	bar.SetRefreshRate(time.Millisecond * 125)
	bar.SetTemplateString(`{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }}`)
	bar.Start()
	return &ProgressBar{ProgressBar: bar}
}

func (self *ProgressBar) SetCaption(caption string) *ProgressBar {
	self.ProgressBar.Set("prefix", caption+" ")
	return self
}

// OnStatus is a status callback for a workload.
func (self *ProgressBar) OnStatus(s Status) {
	self.ProgressBar.SetCurrent(s.Operations)
}

var (
	statusColor  = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed, color.Bold)
)

// NewStatusPrinter returns a status callback writing one line per report.
func NewStatusPrinter(w io.Writer) func(Status) {
	return func(s Status) {
		statusColor.Fprintf(w, "%s %s", Timestamp(time.Now()), s)
		if s.Failures > 0 {
			failureColor.Fprintf(w, " [%d FAILED]", s.Failures)
		}
		fmt.Fprintln(w)
	}
}

// PrintSummary writes the one line summary of a finished run.
func PrintSummary(w io.Writer, stats *WorkloadStats) {
	c := statusColor
	if stats.Failures > 0 || stats.Aborted > 0 {
		c = failureColor
	}
	c.Fprintf(w, "%s run %s: %s", Timestamp(stats.Start.Add(stats.Duration)), stats.RunID, stats.Summary())
	fmt.Fprintln(w)
}
