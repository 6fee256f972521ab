package workgen

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/hhkbp2/workgen/engine"
	"github.com/pkg/errors"
)

type StatusType uint8

const (
	StatusOK StatusType = 1 + iota
	StatusError
	StatusNotFound
	StatusUnexpectedState
	StatusConflict
	StatusSchema
	StatusConnection
	StatusInvalidState
	StatusServiceUnavailable
	StatusSkipped
)

func (self StatusType) String() string {
	switch self {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusUnexpectedState:
		return "UNEXPECTED_STATE"
	case StatusConflict:
		return "CONFLICT"
	case StatusSchema:
		return "SCHEMA"
	case StatusConnection:
		return "CONNECTION"
	case StatusInvalidState:
		return "INVALID_STATE"
	case StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "UNKNOW_STATUS"
	}
}

// StatusOf maps the outcome of a request to a status.
func StatusOf(err error) StatusType {
	switch engine.KindOf(err) {
	case nil:
		return StatusOK
	case engine.ErrNotFound:
		return StatusNotFound
	case engine.ErrConflict:
		return StatusConflict
	case engine.ErrSchema:
		return StatusSchema
	case engine.ErrConnection:
		return StatusConnection
	case engine.ErrInvalidState:
		return StatusInvalidState
	case engine.ErrUnavailable:
		return StatusServiceUnavailable
	}
	return StatusError
}

// Used to export the collected measurements into a useful format, for example
// human readable text or machine readable JSON.
type MeasurementExporter interface {
	// Write a measurement to the exported format. v should be int64 or float64
	Write(metric string, measurement string, v interface{}) error
	io.Closer
}

type MakeMeasurementExporterFunc func(w io.WriteCloser) MeasurementExporter

var (
	MeasurementExporters = map[string]MakeMeasurementExporterFunc{
		"TextMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewTextMeasurementExporter(w)
		},
		"JSONMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewJSONMeasurementExporter(w)
		},
		"JSONArrayMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewJSONArrayMeasurementExporter(w)
		},
	}
)

func NewMeasurementExporter(className string, w io.WriteCloser) (MeasurementExporter, error) {
	f, ok := MeasurementExporters[className]
	if !ok {
		return nil, errors.Errorf("unsupported measurement exporter: %s", className)
	}
	return f(w), nil
}

// MeasurementConfig controls the latency histograms.
type MeasurementConfig struct {
	Percentiles []int64
	// Highest trackable latency in microseconds. Longer latencies are
	// recorded as this value.
	Max int64
	Sig int
}

func DefaultMeasurementConfig() MeasurementConfig {
	return MeasurementConfig{
		Percentiles: parsePercentileValues(PropertyPercentilesDefault, PropertyPercentilesDefault),
		Max:         60 * 1000 * 1000,
		Sig:         3,
	}
}

// Helper function to parse the given percentile value string.
func parsePercentileValues(prop, defaultValue string) []int64 {
	parts := strings.Split(prop, ",")
	ret := make([]int64, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.ParseInt(strings.TrimSpace(p), 0, 64)
		if err != nil {
			return parsePercentileValues(defaultValue, defaultValue)
		}
		ret = append(ret, i)
	}
	return ret
}

func NewMeasurementConfig(props Properties) (MeasurementConfig, error) {
	config := DefaultMeasurementConfig()
	prop := props.GetDefault(PropertyPercentiles, PropertyPercentilesDefault)
	config.Percentiles = parsePercentileValues(prop, PropertyPercentilesDefault)
	max, err := props.GetInt(PropertyHdrHistogramMax, PropertyHdrHistogramMaxDefault)
	if err != nil {
		return config, err
	}
	sig, err := props.GetInt(PropertyHdrHistogramSig, PropertyHdrHistogramSigDefault)
	if err != nil {
		return config, err
	}
	if max < 2 || sig < 1 || sig > 5 {
		return config, errors.Errorf("invalid histogram bounds max=%d sig=%d", max, sig)
	}
	config.Max = max
	config.Sig = int(sig)
	return config, nil
}

// A single measured metric (such as READ LATENCY), kept in an HdrHistogram.
type OneMeasurementHdrHistogram struct {
	name        string
	histogram   *hdrhistogram.Histogram
	percentiles []int64
	returnCodes map[StatusType]int64
}

func NewOneMeasurementHdrHistogram(name string, config MeasurementConfig) *OneMeasurementHdrHistogram {
	return &OneMeasurementHdrHistogram{
		name:        name,
		histogram:   hdrhistogram.New(1, config.Max, config.Sig),
		percentiles: config.Percentiles,
		returnCodes: make(map[StatusType]int64),
	}
}

func (self *OneMeasurementHdrHistogram) GetName() string {
	return self.name
}

// Measure records a latency in microseconds.
func (self *OneMeasurementHdrHistogram) Measure(latency int64) {
	if latency < 1 {
		latency = 1
	}
	if max := self.histogram.HighestTrackableValue(); latency > max {
		latency = max
	}
	self.histogram.RecordValue(latency)
}

func (self *OneMeasurementHdrHistogram) ReportStatus(status StatusType) {
	self.returnCodes[status]++
}

func (self *OneMeasurementHdrHistogram) Histogram() *hdrhistogram.Histogram {
	return self.histogram
}

// Count returns the number of reports of the status.
func (self *OneMeasurementHdrHistogram) Count(status StatusType) int64 {
	return self.returnCodes[status]
}

func (self *OneMeasurementHdrHistogram) merge(other *OneMeasurementHdrHistogram) {
	self.histogram.Merge(other.histogram)
	for status, count := range other.returnCodes {
		self.returnCodes[status] += count
	}
}

func (self *OneMeasurementHdrHistogram) GetSummary() string {
	format := "[%s: Count=%d, Max=%d, Min=%d, Avg=%.2f, 90=%d, 99=%d, 99.9=%d, 99.99=%d]"
	return fmt.Sprintf(format,
		self.GetName(),
		self.histogram.TotalCount(),
		self.histogram.Max(),
		self.histogram.Min(),
		self.histogram.Mean(),
		self.histogram.ValueAtQuantile(90),
		self.histogram.ValueAtQuantile(99),
		self.histogram.ValueAtQuantile(99.9),
		self.histogram.ValueAtQuantile(99.99))
}

var (
	Suffixes = []string{"th", "st", "nd", "rd", "th", "th", "th", "th", "th", "th"}
)

func ordinal(p int64) string {
	switch p % 100 {
	case 11, 12, 13:
		return fmt.Sprintf("%dth", p)
	default:
		return fmt.Sprintf("%d%s", p, Suffixes[p%10])
	}
}

func (self *OneMeasurementHdrHistogram) ExportStatusCounts(exporter MeasurementExporter) error {
	statuses := make([]StatusType, 0, len(self.returnCodes))
	for status := range self.returnCodes {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i] < statuses[j]
	})
	for _, status := range statuses {
		err := exporter.Write(self.GetName(), fmt.Sprintf("Return=%s", status), self.returnCodes[status])
		if err != nil {
			return err
		}
	}
	return nil
}

func (self *OneMeasurementHdrHistogram) ExportMeasurements(exporter MeasurementExporter) (err error) {
	defer catch(&err)
	name := self.GetName()
	try(exporter.Write(name, "Operations", self.histogram.TotalCount()))
	try(exporter.Write(name, "AverageLatency(us)", self.histogram.Mean()))
	try(exporter.Write(name, "MinLatency(us)", self.histogram.Min()))
	try(exporter.Write(name, "MaxLatency(us)", self.histogram.Max()))
	for _, p := range self.percentiles {
		try(exporter.Write(name, ordinal(p)+"PercentileLatency(us)", self.histogram.ValueAtQuantile(float64(p))))
	}
	try(self.ExportStatusCounts(exporter))
	return
}

// Measurements collects one measurement per operation kind.
type Measurements struct {
	config             MeasurementConfig
	lock               sync.Mutex
	opToMeasurementMap map[string]*OneMeasurementHdrHistogram
}

func NewMeasurements(config MeasurementConfig) *Measurements {
	return &Measurements{
		config:             config,
		opToMeasurementMap: make(map[string]*OneMeasurementHdrHistogram),
	}
}

func (self *Measurements) getOpMeasurement(operation string) *OneMeasurementHdrHistogram {
	m, ok := self.opToMeasurementMap[operation]
	if !ok {
		m = NewOneMeasurementHdrHistogram(operation, self.config)
		self.opToMeasurementMap[operation] = m
	}
	return m
}

// Report a single value of a single metric. E.g. for read latency,
// operation="READ" and latency is the measured value.
func (self *Measurements) Measure(operation string, latency int64) {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.getOpMeasurement(operation).Measure(latency)
}

func (self *Measurements) ReportStatus(operation string, status StatusType) {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.getOpMeasurement(operation).ReportStatus(status)
}

// Get returns the measurement of the operation, or nil.
func (self *Measurements) Get(operation string) *OneMeasurementHdrHistogram {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.opToMeasurementMap[operation]
}

// Operations returns the measured operation names in order.
func (self *Measurements) Operations() []string {
	self.lock.Lock()
	defer self.lock.Unlock()
	ret := make([]string, 0, len(self.opToMeasurementMap))
	for name := range self.opToMeasurementMap {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Merge adds the measurements of other into this one.
func (self *Measurements) Merge(other *Measurements) {
	for _, name := range other.Operations() {
		m := other.Get(name)
		self.lock.Lock()
		self.getOpMeasurement(name).merge(m)
		self.lock.Unlock()
	}
}

func (self *Measurements) GetSummary() string {
	parts := make([]string, 0)
	for _, name := range self.Operations() {
		parts = append(parts, self.Get(name).GetSummary())
	}
	return strings.Join(parts, " ")
}

func (self *Measurements) ExportMeasurements(exporter MeasurementExporter) (err error) {
	defer catch(&err)
	for _, name := range self.Operations() {
		try(self.Get(name).ExportMeasurements(exporter))
	}
	return
}

func try(err error) {
	if err != nil {
		panic(errors.WithMessage(err, "export"))
	}
}

func catch(err *error) {
	if p := recover(); p != nil {
		e, ok := p.(error)
		if !ok {
			panic(p)
		}
		*err = e
	}
}

// Write human readable text. Tries to emulate the previous print report method.
type TextMeasurementExporter struct {
	io.WriteCloser
	buf *bufio.Writer
}

func NewTextMeasurementExporter(w io.WriteCloser) *TextMeasurementExporter {
	return &TextMeasurementExporter{
		WriteCloser: w,
		buf:         bufio.NewWriter(w),
	}
}

func (self *TextMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	_, err := fmt.Fprintf(self.buf, "[%s], %s, %v\n", metric, measurement, v)
	return err
}

func (self *TextMeasurementExporter) Close() error {
	err := self.buf.Flush()
	err2 := self.WriteCloser.Close()
	if err != nil {
		return err
	}
	return err2
}

type innerJSONMeasurement struct {
	Metric      string      `json:"metric"`
	Measurement string      `json:"measurement"`
	Value       interface{} `json:"value"`
}

// Export measurements into a machine readable JSON file, one object
// per line.
type JSONMeasurementExporter struct {
	io.WriteCloser
	buf *bufio.Writer
}

func NewJSONMeasurementExporter(w io.WriteCloser) *JSONMeasurementExporter {
	return &JSONMeasurementExporter{
		WriteCloser: w,
		buf:         bufio.NewWriter(w),
	}
}

func (self *JSONMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	if _, err = self.buf.Write(b); err != nil {
		return err
	}
	return self.buf.WriteByte('\n')
}

func (self *JSONMeasurementExporter) Close() error {
	err := self.buf.Flush()
	err2 := self.WriteCloser.Close()
	if err != nil {
		return err
	}
	return err2
}

// Export measurements into a machine readable JSON Array of measurement objects.
type JSONArrayMeasurementExporter struct {
	io.WriteCloser
	buf        *bufio.Writer
	afterFirst bool
}

func NewJSONArrayMeasurementExporter(w io.WriteCloser) *JSONArrayMeasurementExporter {
	object := &JSONArrayMeasurementExporter{
		WriteCloser: w,
		buf:         bufio.NewWriter(w),
		afterFirst:  false,
	}
	object.buf.WriteString("[")
	return object
}

func (self *JSONArrayMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	if self.afterFirst {
		_, err = self.buf.WriteString(",")
		if err != nil {
			return err
		}
	} else {
		self.afterFirst = true
	}
	_, err = self.buf.Write(b)
	return err
}

func (self *JSONArrayMeasurementExporter) Close() error {
	_, err := self.buf.WriteString("]")
	if err != nil {
		return err
	}
	err = self.buf.Flush()
	err2 := self.WriteCloser.Close()
	if err != nil {
		return err
	}
	return err2
}
