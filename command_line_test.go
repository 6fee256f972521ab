package workgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestParseArgsErrors(t *testing.T) {
	_, err := ParseArgs([]string{"-h"})
	require.Equal(t, pflag.ErrHelp, err)
	_, err = ParseArgs([]string{"--help"})
	require.Equal(t, pflag.ErrHelp, err)

	cases := [][]string{
		{},
		{"load"},
		{"bench", "memory"},
		{"load", "nosuchdriver"},
		{"run", "memory", "extra"},
		{"run", "memory", "-p", "novalue"},
		{"run", "memory", "-p", "=1"},
		{"run", "memory", "--nosuchflag"},
		{"run", "memory", "-P", filepath.Join(t.TempDir(), "missing.properties")},
	}
	for _, c := range cases {
		_, err := ParseArgs(c)
		require.NotNil(t, err, "%v", c)
	}
}

func TestParseArgs(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "workload.properties")
	content := "recordcount=1000\noperationcount=2000\ntable=fromfile\n"
	require.Nil(t, os.WriteFile(filename, []byte(content), 0644))

	args, err := ParseArgs([]string{
		"run", "memory",
		"-P", filename,
		"-p", "operationcount=10",
		"-p", "tableconfig=key_format=q,value_format=S",
		"-table", "people",
		"-home", "bench",
		"-export", "report.txt",
		"-log-level", "debug",
		"-s",
		"--progress",
	})
	require.Nil(t, err)
	require.Equal(t, "run", args.Command)
	require.Equal(t, "memory", args.Driver)
	require.True(t, args.Status)
	require.True(t, args.Progress)
	p := args.Properties
	require.Equal(t, "memory", p.Get(PropertyDriver))
	require.Equal(t, "1000", p.Get(PropertyRecordCount))
	require.Equal(t, "10", p.Get(PropertyOperationCount))
	require.Equal(t, "key_format=q,value_format=S", p.Get(PropertyTableConfig))
	require.Equal(t, "people", p.Get(PropertyTableName))
	require.Equal(t, "bench", p.Get(PropertyHome))
	require.Equal(t, "report.txt", p.Get(PropertyExportFile))
	require.Equal(t, "debug", p.Get(PropertyLogLevel))
	_, ok := p[PropertyPlan]
	require.False(t, ok)

	args, err = ParseArgs([]string{"load", "memory", "--plan=plan.yaml"})
	require.Nil(t, err)
	require.False(t, args.Status)
	require.Equal(t, "plan.yaml", args.Properties.Get(PropertyPlan))
}
