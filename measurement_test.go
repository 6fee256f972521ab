package workgen

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hhkbp2/workgen/engine"
	"github.com/stretchr/testify/require"
)

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (self *closingBuffer) Close() error {
	self.closed = true
	return nil
}

func TestOrdinal(t *testing.T) {
	cases := map[int64]string{
		1:   "1st",
		2:   "2nd",
		3:   "3rd",
		4:   "4th",
		11:  "11th",
		12:  "12th",
		13:  "13th",
		21:  "21st",
		95:  "95th",
		99:  "99th",
		101: "101st",
		111: "111th",
	}
	for p, expected := range cases {
		require.Equal(t, expected, ordinal(p))
	}
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, StatusOK, StatusOf(nil))
	require.Equal(t, StatusNotFound, StatusOf(engine.Errorf(engine.ErrNotFound, "k")))
	require.Equal(t, StatusConflict, StatusOf(engine.Errorf(engine.ErrConflict, "busy")))
	require.Equal(t, StatusSchema, StatusOf(engine.ErrSchema))
	require.Equal(t, StatusServiceUnavailable, StatusOf(engine.ErrUnavailable))
	require.Equal(t, StatusError, StatusOf(bytes.ErrTooLarge))
	require.Equal(t, "NOT_FOUND", StatusNotFound.String())
}

func TestMeasurementConfig(t *testing.T) {
	config, err := NewMeasurementConfig(NewProperties())
	require.Nil(t, err)
	require.Equal(t, DefaultMeasurementConfig(), config)
	require.Equal(t, []int64{95, 99}, config.Percentiles)

	p := NewProperties()
	p.Add(PropertyPercentiles, "50, 90,99")
	p.Add(PropertyHdrHistogramMax, "1000")
	config, err = NewMeasurementConfig(p)
	require.Nil(t, err)
	require.Equal(t, []int64{50, 90, 99}, config.Percentiles)
	require.Equal(t, int64(1000), config.Max)

	p.Add(PropertyPercentiles, "fifty")
	config, err = NewMeasurementConfig(p)
	require.Nil(t, err)
	require.Equal(t, []int64{95, 99}, config.Percentiles)

	p.Add(PropertyHdrHistogramSig, "9")
	_, err = NewMeasurementConfig(p)
	require.NotNil(t, err)
}

func TestMeasurements(t *testing.T) {
	config := DefaultMeasurementConfig()
	config.Max = 1000
	m := NewMeasurements(config)
	m.Measure("READ", 10)
	m.Measure("READ", 0)
	m.Measure("READ", 5000)
	m.ReportStatus("READ", StatusOK)
	m.ReportStatus("READ", StatusNotFound)
	m.Measure("UPDATE", 20)
	m.ReportStatus("UPDATE", StatusOK)
	require.Equal(t, []string{"READ", "UPDATE"}, m.Operations())

	read := m.Get("READ")
	require.Equal(t, int64(3), read.Histogram().TotalCount())
	require.Equal(t, int64(1), read.Histogram().Min())
	require.True(t, read.Histogram().Max() <= read.Histogram().HighestTrackableValue())
	require.Nil(t, m.Get("REMOVE"))

	other := NewMeasurements(config)
	other.Measure("READ", 30)
	other.ReportStatus("READ", StatusOK)
	other.Measure("REMOVE", 40)
	other.ReportStatus("REMOVE", StatusNotFound)
	m.Merge(other)
	require.Equal(t, int64(4), m.Get("READ").Histogram().TotalCount())
	require.Equal(t, int64(2), m.Get("READ").Count(StatusOK))
	require.Equal(t, int64(1), m.Get("REMOVE").Count(StatusNotFound))
	require.Equal(t, []string{"READ", "REMOVE", "UPDATE"}, m.Operations())
	require.True(t, strings.HasPrefix(m.GetSummary(), "[READ: Count=4"))
}

func TestExporters(t *testing.T) {
	m := NewMeasurements(DefaultMeasurementConfig())
	m.Measure("INSERT", 100)
	m.ReportStatus("INSERT", StatusOK)

	var text closingBuffer
	exporter, err := NewMeasurementExporter("TextMeasurementExporter", &text)
	require.Nil(t, err)
	require.Nil(t, m.ExportMeasurements(exporter))
	require.Nil(t, exporter.Close())
	require.True(t, text.closed)
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Equal(t, "[INSERT], Operations, 1", lines[0])
	require.Equal(t, "[INSERT], Return=OK, 1", lines[len(lines)-1])

	var lined closingBuffer
	exporter, err = NewMeasurementExporter("JSONMeasurementExporter", &lined)
	require.Nil(t, err)
	require.Nil(t, m.ExportMeasurements(exporter))
	require.Nil(t, exporter.Close())
	for _, line := range strings.Split(strings.TrimSpace(lined.String()), "\n") {
		var object map[string]interface{}
		require.Nil(t, json.Unmarshal([]byte(line), &object))
		require.Equal(t, "INSERT", object["metric"])
	}

	var array closingBuffer
	exporter, err = NewMeasurementExporter("JSONArrayMeasurementExporter", &array)
	require.Nil(t, err)
	require.Nil(t, m.ExportMeasurements(exporter))
	require.Nil(t, exporter.Close())
	var objects []map[string]interface{}
	require.Nil(t, json.Unmarshal(array.Bytes(), &objects))
	require.Equal(t, len(lines), len(objects))
	require.Equal(t, "Operations", objects[0]["measurement"])
	require.Equal(t, float64(1), objects[0]["value"])

	_, err = NewMeasurementExporter("XMLMeasurementExporter", &array)
	require.NotNil(t, err)
}
