package workgen

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const simplePlan = `
seed: 42
tables:
  - uri: table:simple
    config: key_format=S,value_format=S
  - uri: table:counters
    config: key_format=q,value_format=S,block_compressor=snappy
threads:
  - name: writer
    count: 2
    retry_limit: 5
    retry_interval: 2ms
    op:
      kind: insert
      table: table:simple
      key: {mode: append, size: 10}
      value: {size: 40}
      times: 5
  - name: mixed
    throttle: 1000
    op:
      times: 4
      sequence:
        - kind: insert
          table: table:counters
          value: {size: 8, mode: random}
        - mix:
            - weight: 3
              kind: read
              table: table:counters
              key: {mode: latest}
            - weight: 1
              kind: update
              table: table:counters
              key: {mode: uniform}
              value: {size: 8, distribution: uniform}
options:
  repeat: 2
  report_interval: 1s
`

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan([]byte(simplePlan))
	require.Nil(t, err)
	require.Equal(t, int64(42), plan.Seed)
	require.Equal(t, 2, len(plan.Tables))
	require.Equal(t, 2, len(plan.Threads))
	writer := plan.Threads[0]
	require.Equal(t, 2, writer.Count)
	require.Equal(t, 5, *writer.RetryLimit)
	require.Equal(t, 2*time.Millisecond, writer.RetryInterval)
	require.Equal(t, "insert", writer.Op.Kind)
	require.Equal(t, 10, writer.Op.Key.Size)
	require.Equal(t, 2, len(plan.Threads[1].Op.Sequence))
	require.Equal(t, 0, plan.Threads[1].Op.Sequence[0].Key.Size)
	require.Equal(t, 2, *plan.Options.Repeat)
	require.Equal(t, time.Second, plan.Options.ReportInterval)

	_, err = ParsePlan([]byte("threads: [1, 2"))
	require.NotNil(t, err)
}

func TestBuildPlan(t *testing.T) {
	plan, err := ParsePlan([]byte(simplePlan))
	require.Nil(t, err)
	w, err := plan.Build()
	require.Nil(t, err)
	require.Equal(t, int64(42), w.Context.Seed)
	require.Equal(t, 3, len(w.Threads))
	require.Equal(t, "writer-0", w.Threads[0].Options.Name)
	require.Equal(t, "writer-1", w.Threads[1].Options.Name)
	require.Equal(t, 5, w.Threads[0].Options.RetryLimit)
	require.Equal(t, int64(5), w.Threads[0].Op.Count())
	require.Equal(t, "mixed", w.Threads[2].Options.Name)
	require.Equal(t, float64(1000), w.Threads[2].Options.Throttle)
	require.Equal(t, RetryLimitDefault, w.Threads[2].Options.RetryLimit)
	require.Equal(t, 2, w.Options.RepeatCount)
	require.Equal(t, time.Second, w.Options.ReportInterval)

	conn := openMemory(t)
	session, err := conn.OpenSession()
	require.Nil(t, err)
	require.Nil(t, plan.CreateTables(session))
	require.Nil(t, plan.CreateTables(session))
	require.Nil(t, session.Close())

	stats, err := w.Run(conn)
	require.Nil(t, err)
	require.Equal(t, int64(0), stats.Failures)
	require.Equal(t, 20, len(tableRows(t, conn, "table:simple")))
	require.Equal(t, 8, len(tableRows(t, conn, "table:counters")))
	require.Equal(t, int64(20+16), stats.Operations)
}

func TestBuildPlanErrors(t *testing.T) {
	cases := []string{
		`threads: [{op: {kind: scan, table: "table:t"}}]`,
		`threads: [{op: {table: "table:t"}}]`,
		`threads: [{op: {kind: read, table: "table:t", key: {mode: custom}}}]`,
		`threads: [{op: {kind: read, table: "table:t", key: {mode: gaussian}}}]`,
		`threads: [{op: {kind: insert, table: "table:t", value: {mode: zero}}}]`,
		`threads: [{op: {kind: insert, table: "table:t", value: {size: 8, distribution: normal}}}]`,
		`threads: [{op: {kind: insert, table: t}}]`,
		`{threads: [{op: {kind: insert, table: "table:t"}}], options: {repeat: 0}}`,
	}
	for _, c := range cases {
		plan, err := ParsePlan([]byte(c))
		require.Nil(t, err, c)
		_, err = plan.Build()
		require.NotNil(t, err, c)
	}
}

func TestLoadPlan(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "plan.yaml")
	require.Nil(t, os.WriteFile(filename, []byte(simplePlan), 0644))
	plan, err := LoadPlan(filename)
	require.Nil(t, err)
	require.Equal(t, 2, len(plan.Threads))

	class := NewPlanWorkload(nil)
	p := NewProperties()
	p.Add(PropertyPlan, filename)
	require.Nil(t, class.Init(p))
	require.Equal(t, plan.Tables, class.Tables())
	w, err := class.Transactions()
	require.Nil(t, err)
	require.Equal(t, 3, len(w.Threads))

	_, err = LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)
	require.NotNil(t, NewPlanWorkload(nil).Init(NewProperties()))
}
