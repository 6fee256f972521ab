package workgen

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func shellArgs(t *testing.T, home string) *Arguments {
	args, err := ParseArgs([]string{"shell", "memory", "-home", home})
	require.Nil(t, err)
	return args
}

func runShell(t *testing.T, args *Arguments, script string) string {
	var output bytes.Buffer
	shell := &Shell{
		args:   args,
		input:  strings.NewReader(script),
		output: &output,
	}
	require.Nil(t, shell.Main())
	return output.String()
}

func TestShell(t *testing.T) {
	openMemory(t)
	script := strings.Join([]string{
		"help",
		"create people",
		"table people",
		"insert k1 v1",
		"read k1",
		"scan",
		"remove k1",
		"read k1",
		"read",
		"scan zero",
		"bogus",
		"",
		"quit",
		"insert k2 v2",
	}, "\n")
	output := runShell(t, shellArgs(t, t.Name()), script)
	require.True(t, strings.HasPrefix(output, "workgen command line client\n"))
	require.Contains(t, output, "Connected.")
	require.Contains(t, output, "read key - Read a record")
	require.Contains(t, output, `Using table "people"`)
	require.Contains(t, output, "Result: OK")
	require.Contains(t, output, "value: v1")
	require.Contains(t, output, "key: k1")
	require.Contains(t, output, "1 records")
	require.Contains(t, output, "Result: NOT_FOUND")
	require.Contains(t, output, `Error: syntax is "read key"`)
	require.Contains(t, output, "invalid scanlength: zero")
	require.Contains(t, output, `Error: unknown command "bogus"`)
	require.Contains(t, output, " ms\n")
	require.Equal(t, 0, len(tableRows(t, reopenMemory(t), "table:people")))
}

func TestShellIntegerTable(t *testing.T) {
	openMemory(t)
	script := strings.Join([]string{
		"create counters key_format=q,value_format=q",
		"table counters",
		"insert 7 42",
		"update 7 44",
		"read 7",
		"insert x 1",
		"tables",
		"show",
	}, "\n")
	output := runShell(t, shellArgs(t, t.Name()), script)
	require.Contains(t, output, "value: 44")
	require.Contains(t, output, `Error: "x" is not an integer`)
	require.Contains(t, output, "table:counters")
	require.Contains(t, output, "<><><><> table:counters <><><><>")
	require.Contains(t, output, "key: 7")
	require.Equal(t, 1, len(tableRows(t, reopenMemory(t), "table:counters")))
}

func TestShellMissingTable(t *testing.T) {
	openMemory(t)
	output := runShell(t, shellArgs(t, t.Name()), "read k1\nscan\n")
	require.Contains(t, output, "Result: SCHEMA")
}

func TestLoadAndRun(t *testing.T) {
	openMemory(t)
	dir := t.TempDir()
	planFile := filepath.Join(dir, "plan.yaml")
	require.Nil(t, os.WriteFile(planFile, []byte(simplePlan), 0644))

	loadReport := filepath.Join(dir, "load.txt")
	args, err := ParseArgs([]string{"load", "memory", "-home", t.Name(), "-plan", planFile, "-export", loadReport})
	require.Nil(t, err)
	require.Nil(t, NewLoader(args).Main())
	conn := reopenMemory(t)
	require.Equal(t, 20, len(tableRows(t, conn, "table:simple")))
	report, err := os.ReadFile(loadReport)
	require.Nil(t, err)
	require.Contains(t, string(report), "[OVERALL], Operations, 36")

	runReport := filepath.Join(dir, "run.json")
	args, err = ParseArgs([]string{"run", "memory", "-home", t.Name(), "-plan", planFile,
		"-export", runReport, "-p", "exporter=JSONArrayMeasurementExporter", "-p", "target=5000"})
	require.Nil(t, err)
	require.Nil(t, NewRunner(args).Main())
	require.Equal(t, 40, len(tableRows(t, conn, "table:simple")))
	report, err = os.ReadFile(runReport)
	require.Nil(t, err)
	require.True(t, strings.HasPrefix(string(report), "["))

	args, err = ParseArgs([]string{"run", "memory", "-home", t.Name(), "-plan", filepath.Join(dir, "missing.yaml")})
	require.Nil(t, err)
	require.NotNil(t, NewRunner(args).Main())
	args, err = ParseArgs([]string{"run", "memory", "-home", t.Name(), "-p", "workload=nosuchworkload"})
	require.Nil(t, err)
	require.NotNil(t, NewRunner(args).Main())
}

func TestShower(t *testing.T) {
	conn := openMemory(t)
	createTable(t, conn, "table:people", stringTable)
	createTable(t, conn, "table:pets", stringTable)
	shell := runShell(t, shellArgs(t, t.Name()), "table people\ninsert alice 30\ninsert bob 40\n")
	require.Contains(t, shell, "Result: OK")

	saved := OutputDest
	defer func() {
		OutputDest = saved
	}()
	dump := func(argv ...string) string {
		f, err := os.Create(filepath.Join(t.TempDir(), "show.txt"))
		require.Nil(t, err)
		defer f.Close()
		OutputDest = f
		args, err := ParseArgs(append([]string{"show", "memory", "-home", t.Name()}, argv...))
		require.Nil(t, err)
		require.Nil(t, NewShower(args).Main())
		content, err := os.ReadFile(f.Name())
		require.Nil(t, err)
		return string(content)
	}

	output := dump("-table", "people")
	require.Contains(t, output, "<><><><> table:people <><><><>")
	require.Equal(t, 2, strings.Count(output, "key: "))
	require.NotContains(t, output, "table:pets")

	output = dump()
	require.Contains(t, output, "table:people")
	require.Contains(t, output, "table:pets")
}

func TestClearHome(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	require.Nil(t, os.MkdirAll(home, 0755))
	require.Nil(t, os.WriteFile(filepath.Join(home, "data"), []byte("x"), 0644))

	p := NewProperties()
	p.Add(PropertyDriver, "pebble")
	p.Add(PropertyHome, home)
	require.Nil(t, clearHome(p))
	_, err := os.Stat(home)
	require.Nil(t, err)

	p.Add(PropertyKeepHome, "false")
	p.Add(PropertyDriver, "memory")
	require.Nil(t, clearHome(p))
	_, err = os.Stat(home)
	require.Nil(t, err)

	p.Add(PropertyDriver, "pebble")
	require.Nil(t, clearHome(p))
	_, err = os.Stat(home)
	require.True(t, os.IsNotExist(err))
	require.Nil(t, clearHome(p))

	require.Nil(t, os.WriteFile(home, []byte("x"), 0644))
	require.NotNil(t, clearHome(p))
}

func TestExpectedOperations(t *testing.T) {
	insert := Insert(NewTable("table:t"), NewKey(KeyAppend, 8), NewValue(8))
	read := Read(NewTable("table:t"), NewKey(KeyUniform, 8))
	w := NewWorkload(NewContext(), NewThread(insert.Times(5)), NewThread(Sequence(insert, read)))
	w.Options.RepeatCount = 3
	require.Equal(t, int64(21), expectedOperations(w))

	w.Options.MaxOperations = 10
	require.Equal(t, int64(10), expectedOperations(w))

	w = NewWorkload(NewContext(), NewThread(Mix(Weighted(1, insert), Weighted(1, read))))
	require.Equal(t, int64(0), expectedOperations(w))
	w = NewWorkload(NewContext(), NewThread(insert))
	w.Options.RepeatCount = 0
	require.Equal(t, int64(0), expectedOperations(w))
}
