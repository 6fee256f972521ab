package workgen

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hhkbp2/go-strftime"
	"github.com/hhkbp2/workgen/engine"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type Client interface {
	Main() error
}

// embeddedDrivers keep their data in a directory at home.
var embeddedDrivers = map[string]bool{
	"pebble":  true,
	"sqlite3": true,
}

func openConnection(props Properties) (*engine.Connection, error) {
	driver := props.GetDefault(PropertyDriver, PropertyDriverDefault)
	home := props.GetDefault(PropertyHome, PropertyHomeDefault)
	config := props.GetDefault(PropertyConnectionConfig, PropertyConnectionConfigDefault)
	Debugf("open %s at %s with %q", driver, home, config)
	return engine.Open(driver, home, config)
}

// clearHome removes the home of an embedded driver unless it is kept.
func clearHome(props Properties) error {
	driver := props.GetDefault(PropertyDriver, PropertyDriverDefault)
	keep, err := props.GetBool(PropertyKeepHome, PropertyKeepHomeDefault)
	if err != nil {
		return err
	}
	if !embeddedDrivers[driver] || keep {
		return nil
	}
	home := props.GetDefault(PropertyHome, PropertyHomeDefault)
	info, err := os.Stat(home)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.Errorf("home %s is not a directory", home)
	}
	Infof("clear home %s", home)
	return os.RemoveAll(home)
}

func newWorkloadClass(props Properties) (WorkloadClass, error) {
	className := props.GetDefault(PropertyWorkload, PropertyWorkloadDefault)
	if _, ok := props[PropertyPlan]; ok {
		className = "plan"
	}
	class, err := NewWorkloadClass(className)
	if err != nil {
		return nil, err
	}
	if err := class.Init(props); err != nil {
		return nil, errors.WithMessagef(err, "init workload %s", className)
	}
	return class, nil
}

func createTables(conn *engine.Connection, tables []PlanTable) error {
	session, err := conn.OpenSession()
	if err != nil {
		return err
	}
	defer session.Close()
	for _, t := range tables {
		Debugf("create %s with %q", t.URI, t.Config)
		if err := session.Create(t.URI, t.Config); err != nil {
			return err
		}
	}
	return nil
}

// expectedOperations returns the operations of a run bounded by a repeat
// count, or zero when it is not known up front.
func expectedOperations(w *Workload) int64 {
	if w.Options.MaxOperations > 0 {
		return w.Options.MaxOperations
	}
	if w.Options.RepeatCount == 0 {
		return 0
	}
	total := int64(0)
	for _, t := range w.Threads {
		n := t.Op.Count()
		if n < 0 {
			return 0
		}
		total += n * int64(w.Options.RepeatCount)
	}
	return total
}

// applyOptions overrides the workload options with the client properties.
func applyOptions(args *Arguments, w *Workload) error {
	props := args.Properties
	target, err := props.GetFloat(PropertyTarget, PropertyTargetDefault)
	if err != nil {
		return err
	}
	if target > 0 {
		w.Options.Throttle = target
	}
	runTime, err := props.GetSeconds(PropertyMaxExecutionTime, PropertyMaxExecutionTimeDefault)
	if err != nil {
		return err
	}
	if runTime > 0 {
		w.Options.RunTime = runTime
	}
	interval, err := props.GetSeconds(PropertyStatusInterval, PropertyStatusIntervalDefault)
	if err != nil {
		return err
	}
	if interval > 0 {
		w.Options.ReportInterval = interval
	}
	config, err := NewMeasurementConfig(props)
	if err != nil {
		return err
	}
	w.Options.Measurement = config
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// exportMeasurements writes the report to the export file, or to stdout.
func exportMeasurements(props Properties, stats *WorkloadStats) (err error) {
	var w io.WriteCloser = nopWriteCloser{OutputDest}
	if filename := props.GetDefault(PropertyExportFile, ""); len(filename) > 0 {
		filename = strftime.Format(filename, stats.Start)
		f, err := os.Create(filename)
		if err != nil {
			return errors.Wrap(err, "create export file")
		}
		w = f
	}
	exporter, err := NewMeasurementExporter(props.GetDefault(PropertyExporter, PropertyExporterDefault), w)
	if err != nil {
		w.Close()
		return err
	}
	defer func() {
		err = multierr.Append(err, exporter.Close())
	}()
	return stats.Export(exporter)
}

// runPhase runs the workload of one phase, then reports it.
func runPhase(args *Arguments, conn *engine.Connection, w *Workload, phase string) error {
	if err := applyOptions(args, w); err != nil {
		return err
	}
	if err := RaiseOpenFileLimit(); err != nil {
		Warnf("fail to raise the open file limit: %s", err)
	}
	var callbacks []func(Status)
	if args.Status {
		callbacks = append(callbacks, NewStatusPrinter(os.Stderr))
	}
	var bar *ProgressBar
	if args.Progress {
		bar = NewProgressBar(expectedOperations(w)).SetCaption(phase)
		callbacks = append(callbacks, bar.OnStatus)
	}
	if len(callbacks) > 0 {
		w.Options.OnStatus = func(s Status) {
			for _, f := range callbacks {
				f(s)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	Infof("%s phase: %d threads", phase, len(w.Threads))
	stats, err := w.RunContext(ctx, conn)
	if bar != nil {
		if stats != nil {
			bar.SetCurrent(stats.Operations)
		}
		bar.Finish()
	}
	if stats == nil {
		return err
	}
	if exportErr := exportMeasurements(args.Properties, stats); exportErr != nil {
		err = multierr.Append(err, exportErr)
	}
	PrintSummary(os.Stderr, stats)
	return err
}

// Loader creates the tables of the workload and runs its load phase.
type Loader struct {
	args *Arguments
}

func NewLoader(args *Arguments) *Loader {
	return &Loader{
		args: args,
	}
}

func (self *Loader) Main() (err error) {
	props := self.args.Properties
	class, err := newWorkloadClass(props)
	if err != nil {
		return err
	}
	if err := clearHome(props); err != nil {
		return err
	}
	conn, err := openConnection(props)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()
	if err := createTables(conn, class.Tables()); err != nil {
		return err
	}
	w, err := class.Load()
	if err != nil {
		return err
	}
	return runPhase(self.args, conn, w, "load")
}

// Runner runs the transaction phase of the workload.
type Runner struct {
	args *Arguments
}

func NewRunner(args *Arguments) *Runner {
	return &Runner{
		args: args,
	}
}

func (self *Runner) Main() (err error) {
	props := self.args.Properties
	class, err := newWorkloadClass(props)
	if err != nil {
		return err
	}
	conn, err := openConnection(props)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()
	w, err := class.Transactions()
	if err != nil {
		return err
	}
	return runPhase(self.args, conn, w, "run")
}

// Shower dumps a table, or every table when none is named.
type Shower struct {
	args *Arguments
}

func NewShower(args *Arguments) *Shower {
	return &Shower{
		args: args,
	}
}

func (self *Shower) Main() (err error) {
	props := self.args.Properties
	conn, err := openConnection(props)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()
	var uris []string
	if name, ok := props[PropertyTableName]; ok {
		uris = []string{engine.TableURI(name)}
	} else if uris, err = conn.Tables(); err != nil {
		return err
	}
	session, err := conn.OpenSession()
	if err != nil {
		return err
	}
	defer session.Close()
	for _, uri := range uris {
		if _, err := Show(OutputDest, session, uri); err != nil {
			return err
		}
	}
	return nil
}

// Shell runs single requests typed on the command line.
type Shell struct {
	args   *Arguments
	input  io.Reader
	output io.Writer
}

func NewShell(args *Arguments) *Shell {
	return &Shell{
		args:   args,
		input:  os.Stdin,
		output: OutputDest,
	}
}

var (
	regexCmd = regexp.MustCompile(`\s+`)
)

func (self *Shell) println(format string, args ...interface{}) {
	fmt.Fprintf(self.output, format, args...)
	fmt.Fprintln(self.output, "")
}

func (self *Shell) Main() (err error) {
	self.println("workgen command line client")
	self.println(`Type "help" for command line help`)

	conn, err := openConnection(self.args.Properties)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()
	session, err := conn.OpenSession()
	if err != nil {
		return err
	}
	defer session.Close()

	self.println("Connected.")
	scanner := bufio.NewScanner(self.input)
	tableName := self.args.Properties.GetDefault(PropertyTableName, PropertyTableNameDefault)
	ctx := context.Background()
	for {
		fmt.Fprint(self.output, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		startTime := time.Now()
		switch line {
		case "":
			continue
		case "help":
			self.help()
			continue
		case "quit":
			return nil
		}
		parts := regexCmd.Split(line, -1)
		uri := engine.TableURI(tableName)
		switch parts[0] {
		case "table":
			switch len(parts) {
			case 1:
				self.println(`Using table "%s"`, tableName)
			case 2:
				tableName = parts[1]
				self.println(`Using table "%s"`, tableName)
			default:
				self.println(`Error: syntax is "table tablename"`)
			}
		case "tables":
			tables, err := conn.Tables()
			if err != nil {
				self.println("Error: %s", err)
				break
			}
			for _, t := range tables {
				if schema, err := conn.Schema(t); err == nil {
					self.println("%s %s", t, schema)
				}
			}
		case "create":
			if len(parts) != 2 && len(parts) != 3 {
				self.println(`Error: syntax is "create tablename [config]"`)
				break
			}
			config := PropertyTableConfigDefault
			if len(parts) == 3 {
				config = parts[2]
			}
			self.result(session.Create(engine.TableURI(parts[1]), config))
		case "read":
			if len(parts) != 2 {
				self.println(`Error: syntax is "read key"`)
				break
			}
			self.request(ctx, session, uri, engine.OpRead, parts[1], "")
		case "insert", "update":
			if len(parts) != 3 {
				self.println(`Error: syntax is "%s key value"`, parts[0])
				break
			}
			kind := engine.OpInsert
			if parts[0] == "update" {
				kind = engine.OpUpdate
			}
			self.request(ctx, session, uri, kind, parts[1], parts[2])
		case "remove", "delete":
			if len(parts) != 2 {
				self.println(`Error: syntax is "remove key"`)
				break
			}
			self.request(ctx, session, uri, engine.OpRemove, parts[1], "")
		case "scan":
			limit := int64(-1)
			if len(parts) == 2 {
				n, err := strconv.ParseInt(parts[1], 0, 64)
				if err != nil || n <= 0 {
					self.println("invalid scanlength: %s", parts[1])
					break
				}
				limit = n
			} else if len(parts) > 2 {
				self.println(`Error: syntax is "scan [scanlength]"`)
				break
			}
			self.scan(session, uri, limit)
		case "show":
			if _, err := Show(self.output, session, uri); err != nil {
				self.println("Error: %s", err)
			}
		default:
			self.println(`Error: unknown command "%s"`, parts[0])
			continue
		}
		self.println("%d ms", time.Since(startTime).Milliseconds())
	}
	return scanner.Err()
}

func (self *Shell) result(err error) {
	if err != nil {
		self.println("Result: %s (%s)", StatusOf(err), err)
		return
	}
	self.println("Result: %s", StatusOK)
}

// parseItem converts what was typed into an item of the format.
func parseItem(format engine.Format, s string) ([]byte, error) {
	if !format.IsInteger() {
		return []byte(s), nil
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return nil, errors.Errorf("%q is not an integer", s)
	}
	return format.PackInt(n), nil
}

func (self *Shell) request(ctx context.Context, session *engine.Session, uri string, kind engine.OpKind, key, value string) {
	schema, err := session.Connection().Schema(uri)
	if err != nil {
		self.result(err)
		return
	}
	req := engine.Request{Kind: kind}
	if req.Key, err = parseItem(schema.KeyFormat, key); err != nil {
		self.println("Error: %s", err)
		return
	}
	if kind == engine.OpInsert || kind == engine.OpUpdate {
		if req.Value, err = parseItem(schema.ValueFormat, value); err != nil {
			self.println("Error: %s", err)
			return
		}
	}
	ret, err := session.Execute(ctx, uri, req)
	self.result(err)
	if err == nil && kind == engine.OpRead {
		self.println("value: %s", schema.ValueFormat.Display(ret.Value))
	}
}

func (self *Shell) scan(session *engine.Session, uri string, limit int64) {
	cursor, err := session.OpenCursor(uri)
	if err != nil {
		self.result(err)
		return
	}
	defer cursor.Close()
	schema := cursor.Schema()
	count := int64(0)
	self.println("--------------------------------")
	for (limit < 0 || count < limit) && cursor.Next() {
		self.println("Record %d", count)
		self.println("key: %s", schema.KeyFormat.Display(cursor.Key()))
		self.println("value: %s", schema.ValueFormat.Display(cursor.Value()))
		self.println("--------------------------------")
		count++
	}
	if err := cursor.Err(); err != nil {
		self.result(err)
		return
	}
	self.println("%d records", count)
}

func (self *Shell) help() {
	helpFormat := `Commands
  read key - Read a record
  scan [scanlength] - Scan the table from its first record
  insert key value - Insert a new record
  update key value - Update a record
  remove key - Remove a record
  show - Dump the table
  create tablename [config] - Create a table
  tables - List the tables
  table [tablename] - Get or [set] the name of the table
  quit - Quit`
	self.println(helpFormat)
}
