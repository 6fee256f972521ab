package workgen

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hhkbp2/workgen/engine"
)

// KindUnexpectedState counts reads whose value failed verification.
const KindUnexpectedState = "unexpected_state"

// ThreadStats is what one thread did during a run. Operations counts every
// request the thread executed once, whatever its outcome and however many
// times it was retried.
type ThreadStats struct {
	Name string
	// Err is set when the thread aborted on a fatal error.
	Err error

	operations int64
	failures   int64

	NotFound     int64
	Retries      int64
	Skipped      int64
	Errors       map[string]int64
	Measurements *Measurements
}

func newThreadStats(name string, config MeasurementConfig) *ThreadStats {
	return &ThreadStats{
		Name:         name,
		Errors:       make(map[string]int64),
		Measurements: NewMeasurements(config),
	}
}

func (self *ThreadStats) Operations() int64 {
	return atomic.LoadInt64(&self.operations)
}

func (self *ThreadStats) Failures() int64 {
	return atomic.LoadInt64(&self.failures)
}

// Count returns the requests of the kind the thread executed.
func (self *ThreadStats) Count(kind engine.OpKind) int64 {
	return countOf(self.Measurements, kind)
}

func countOf(m *Measurements, kind engine.OpKind) int64 {
	one := m.Get(kind.String())
	if one == nil {
		return 0
	}
	total := int64(0)
	for _, n := range one.returnCodes {
		total += n
	}
	return total
}

// record accounts for the final outcome of one request.
func (self *ThreadStats) record(kind engine.OpKind, latency time.Duration, err error) {
	name := kind.String()
	status := StatusOf(err)
	self.Measurements.Measure(name, NanosecondToMicrosecond(int64(latency)))
	self.Measurements.ReportStatus(name, status)
	switch status {
	case StatusOK:
	case StatusNotFound:
		self.NotFound++
	default:
		self.fail(engine.KindName(err))
	}
	atomic.AddInt64(&self.operations, 1)
}

func (self *ThreadStats) recordUnexpected(kind engine.OpKind, latency time.Duration) {
	name := kind.String()
	self.Measurements.Measure(name, NanosecondToMicrosecond(int64(latency)))
	self.Measurements.ReportStatus(name, StatusUnexpectedState)
	self.fail(KindUnexpectedState)
	atomic.AddInt64(&self.operations, 1)
}

// recordSkip accounts for a request not issued because its table is
// unusable.
func (self *ThreadStats) recordSkip(kind engine.OpKind) {
	self.Measurements.ReportStatus(kind.String(), StatusSkipped)
	self.Skipped++
	self.fail(engine.KindName(engine.ErrSchema))
	atomic.AddInt64(&self.operations, 1)
}

func (self *ThreadStats) fail(kind string) {
	self.Errors[kind]++
	atomic.AddInt64(&self.failures, 1)
}

// WorkloadStats is the merged report of every thread of a run.
type WorkloadStats struct {
	RunID    string
	Start    time.Time
	Duration time.Duration

	Operations int64
	NotFound   int64
	Failures   int64
	Retries    int64
	Skipped    int64
	// Errors counts failures by kind name.
	Errors map[string]int64
	// Aborted is the number of threads stopped by a fatal error.
	Aborted int

	Threads      []*ThreadStats
	Measurements *Measurements
}

func newWorkloadStats(config MeasurementConfig) *WorkloadStats {
	return &WorkloadStats{
		RunID:        uuid.NewString(),
		Start:        time.Now(),
		Errors:       make(map[string]int64),
		Measurements: NewMeasurements(config),
	}
}

func (self *WorkloadStats) add(t *ThreadStats) {
	self.Threads = append(self.Threads, t)
	self.Operations += t.Operations()
	self.NotFound += t.NotFound
	self.Failures += t.Failures()
	self.Retries += t.Retries
	self.Skipped += t.Skipped
	for kind, n := range t.Errors {
		self.Errors[kind] += n
	}
	if t.Err != nil {
		self.Aborted++
	}
	self.Measurements.Merge(t.Measurements)
}

// Count returns the requests of the kind executed by every thread.
func (self *WorkloadStats) Count(kind engine.OpKind) int64 {
	return countOf(self.Measurements, kind)
}

// Throughput returns operations per second over the run.
func (self *WorkloadStats) Throughput() float64 {
	if self.Duration <= 0 {
		return 0
	}
	return float64(self.Operations) / self.Duration.Seconds()
}

func (self *WorkloadStats) errorKinds() []string {
	kinds := make([]string, 0, len(self.Errors))
	for k := range self.Errors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (self *WorkloadStats) Summary() string {
	parts := []string{
		fmt.Sprintf("%d operations", self.Operations),
		fmt.Sprintf("%.1f ops/sec", self.Throughput()),
		fmt.Sprintf("%d not found", self.NotFound),
		fmt.Sprintf("%d failures", self.Failures),
	}
	for _, kind := range self.errorKinds() {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, self.Errors[kind]))
	}
	if self.Aborted > 0 {
		parts = append(parts, fmt.Sprintf("%d threads aborted", self.Aborted))
	}
	return strings.Join(parts, ", ")
}

func (self *WorkloadStats) Export(exporter MeasurementExporter) (err error) {
	defer catch(&err)
	try(exporter.Write("OVERALL", "RunID", self.RunID))
	try(exporter.Write("OVERALL", "RunTime(ms)", self.Duration.Milliseconds()))
	try(exporter.Write("OVERALL", "Throughput(ops/sec)", self.Throughput()))
	try(exporter.Write("OVERALL", "Operations", self.Operations))
	try(exporter.Write("OVERALL", "Failures", self.Failures))
	try(exporter.Write("OVERALL", "Retries", self.Retries))
	for _, kind := range self.errorKinds() {
		try(exporter.Write("OVERALL", "Errors="+kind, self.Errors[kind]))
	}
	try(self.Measurements.ExportMeasurements(exporter))
	return
}

// Status is a periodic progress report of a running workload.
type Status struct {
	Elapsed    time.Duration
	Operations int64
	Failures   int64
	// Throughput is measured over the last report interval.
	Throughput float64
}

func (self Status) String() string {
	return fmt.Sprintf("%d sec: %d operations; %.1f current ops/sec; %d failures",
		int64(self.Elapsed.Seconds()), self.Operations, self.Throughput, self.Failures)
}
