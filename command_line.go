package workgen

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hhkbp2/workgen/engine"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

var (
	Commands = map[string]string{
		"load":  "Execute the load phase",
		"run":   "Execute the transaction phase",
		"shell": "Interactive mode",
		"show":  "Dump the rows of a table",
	}
	ProgramName = filepath.Base(os.Args[0])
)

type Arguments struct {
	Command string
	Driver  string
	// Status asks for periodic status lines on stderr.
	Status   bool
	Progress bool
	Properties
}

func Usage() {
	usageFormat := `usage: %s command driver [options]

Commands:
  load               Execute the load phase
  run                Execute the transaction phase
  shell              Interactive mode
  show               Dump the rows of a table

Drivers:
  %s

Options:
  -P filename        : specify a property file (repeatable)
  -p name=value      : specify a property value (repeatable)
  -plan filename     : run a YAML workload plan instead of the core workload
  -home path         : the home of the connection (default %s)
  -config string     : the connection configuration (default "%s")
  -table tablename   : use the table name instead of the default %s
  -s                 : print status to stderr
  -progress          : show a progress bar
  -export filename   : write the report to this file instead of stdout
  -log-level level   : verbose, debug, info, warn, error or quiet

optional arguments:
  -h, --help         show this help message and exit`
	EPrintf(usageFormat, ProgramName, strings.Join(engine.Drivers(), ", "),
		PropertyHomeDefault, PropertyConnectionConfigDefault, PropertyTableNameDefault)
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(ProgramName, pflag.ContinueOnError)
	flags.Usage = func() {}
	flags.StringArrayP("properties", "P", nil, "specify a property file")
	flags.StringArrayP("property", "p", nil, "specify a property value")
	flags.String("plan", "", "run a YAML workload plan")
	flags.String("home", "", "the home of the connection")
	flags.String("config", "", "the connection configuration")
	flags.String("table", "", "use the table name instead of the default")
	flags.BoolP("status", "s", false, "print status to stderr")
	flags.Bool("progress", false, "show a progress bar")
	flags.String("export", "", "write the report to this file")
	flags.String("log-level", "", "log level")
	return flags
}

// normalizeArgs accepts long options with a single dash, e.g. -table.
func normalizeArgs(flags *pflag.FlagSet, args []string) []string {
	ret := make([]string, 0, len(args))
	for _, a := range args {
		if strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--") && len(a) > 2 {
			name := strings.SplitN(a[1:], "=", 2)[0]
			if flags.Lookup(name) != nil {
				a = "-" + a
			}
		}
		ret = append(ret, a)
	}
	return ret
}

// ParseArgs parses "command driver [options]". It returns pflag.ErrHelp
// when help is asked for.
func ParseArgs(argv []string) (*Arguments, error) {
	if len(argv) > 0 && (argv[0] == "-h" || argv[0] == "--help") {
		return nil, pflag.ErrHelp
	}
	if len(argv) < 2 {
		return nil, errors.New("no enough argument")
	}
	command, driver := argv[0], argv[1]
	if _, ok := Commands[command]; !ok {
		return nil, errors.Errorf("unsupported command: %s", command)
	}
	drivers := engine.Drivers()
	if i := sort.SearchStrings(drivers, driver); i == len(drivers) || drivers[i] != driver {
		return nil, errors.Errorf("unsupported driver: %s", driver)
	}

	flags := newFlagSet()
	if err := flags.Parse(normalizeArgs(flags, argv[2:])); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, errors.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	props := NewProperties()
	props.Add(PropertyDriver, driver)
	files, _ := flags.GetStringArray("properties")
	for _, f := range files {
		propsFromFile, err := LoadProperties(f)
		if err != nil {
			return nil, err
		}
		props.Merge(propsFromFile)
	}
	values, _ := flags.GetStringArray("property")
	for _, v := range values {
		// it's a property, should be in `k=v` form
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 || len(parts[0]) == 0 {
			return nil, errors.Errorf("invalid property: %s", v)
		}
		props.Add(parts[0], parts[1])
	}
	for flag, property := range map[string]string{
		"plan":      PropertyPlan,
		"home":      PropertyHome,
		"config":    PropertyConnectionConfig,
		"table":     PropertyTableName,
		"export":    PropertyExportFile,
		"log-level": PropertyLogLevel,
	} {
		if v, _ := flags.GetString(flag); len(v) > 0 {
			props.Add(property, v)
		}
	}
	status, _ := flags.GetBool("status")
	progress, _ := flags.GetBool("progress")
	return &Arguments{
		Command:    command,
		Driver:     driver,
		Status:     status,
		Progress:   progress,
		Properties: props,
	}, nil
}

func Main() {
	args, err := ParseArgs(os.Args[1:])
	if err == pflag.ErrHelp {
		Usage()
		os.Exit(0)
	}
	if err != nil {
		Usage()
		ExitOnError("%s", err)
	}
	if name, ok := args.Properties[PropertyLogLevel]; ok {
		level, err := ParseLogLevel(name)
		if err != nil {
			ExitOnError("%s", err)
		}
		SetLogLevel(level)
	}
	var client Client
	switch args.Command {
	case "shell":
		client = NewShell(args)
	case "load":
		client = NewLoader(args)
	case "run":
		client = NewRunner(args)
	case "show":
		client = NewShower(args)
	default:
		ExitOnError("invalid command: %s", args.Command)
	}
	if err := client.Main(); err != nil {
		ExitOnError("%s: %s", args.Command, err)
	}
	logger.Sync()
}

