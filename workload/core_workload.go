package workload

import (
	"strconv"
	"time"

	"github.com/hhkbp2/workgen"
	"github.com/hhkbp2/workgen/engine"
	g "github.com/hhkbp2/workgen/generator"
	"github.com/pkg/errors"
)

// CoreWorkload represents the core benchmark scenario.
// It's a set of threads doing simple CRUD operations on one table. The
// relative proportion of different kinds of operations, and other
// properties of the workload, are controlled by parameters specified at
// runtime.
// Properties to control the client:
//
//	table: the name of the table (default: usertable)
//	tableconfig: the configuration the table is created with
//	             (default: key_format=S,value_format=S)
//	keylength: the minimum width of a string key (default: 10)
//	recordcount: the number of records inserted by the load phase
//	operationcount: the number of operations of the run phase
//	threadcount: the number of threads of both phases (default: 1)
//	fieldlength: the size of a value (default: 100)
//	fieldlengthdistribution: constant, uniform, zipfian or histogram
//	                         (default: constant)
//	readproportion: what proportion of operations should be reads
//	                (default: 0.95)
//	updateproportion: what proportion of operations should be updates
//	                  (default: 0.05)
//	insertproportion: what proportion of operations should be inserts
//	                  (default: 0)
//	removeproportion: what proportion of operations should be removes
//	                  (default: 0)
//	readmodifywriteproportion: what proportion of operations should read a
//	                           record, then write one (default: 0)
//	requestdistribution: what distribution should be used to select the
//	                     records to operate on - uniform, zipfian, hotspot,
//	                     exponential, pareto or latest (default: uniform)
//	insertorder: should records be inserted in order by key ("ordered"), or
//	             in hashed order ("hashed") (default: ordered)
//	dataintegrity: fill values from their key and verify every read
//	               (default: false)
type CoreWorkload struct {
	table          workgen.Table
	tableConfig    string
	keyLength      int
	recordCount    int64
	operationCount int64
	runTime        time.Duration
	threadCount    int
	seed           int64

	fieldLength          int
	fieldLengthGenerator func() g.IntegerGenerator
	dataIntegrity        bool
	orderedInserts       bool

	readProportion            float64
	updateProportion          float64
	insertProportion          float64
	removeProportion          float64
	readModifyWriteProportion float64

	requestMode    workgen.KeyMode
	hotsetFraction float64
	hotOpnFraction float64
	percentile     float64
	fraction       float64
	paretoParam    float64

	retryLimit    int
	retryInterval time.Duration
}

func NewCoreWorkload() *CoreWorkload {
	return &CoreWorkload{}
}

var requestModes = map[string]workgen.KeyMode{
	"uniform":     workgen.KeyUniform,
	"zipfian":     workgen.KeyZipfian,
	"hotspot":     workgen.KeyHotspot,
	"exponential": workgen.KeyExponential,
	"pareto":      workgen.KeyPareto,
	"latest":      workgen.KeyLatest,
}

func parseFloats(p workgen.Properties, names []string, defaults []string) ([]float64, error) {
	ret := make([]float64, 0, len(names))
	for i, name := range names {
		f, err := p.GetFloat(name, defaults[i])
		if err != nil {
			return nil, err
		}
		ret = append(ret, f)
	}
	return ret, nil
}

func (self *CoreWorkload) Init(p workgen.Properties) error {
	tableName := p.GetDefault(workgen.PropertyTableName, workgen.PropertyTableNameDefault)
	table := workgen.NewTable(engine.TableURI(tableName))
	if _, err := engine.ParseURI(table.URI); err != nil {
		return err
	}
	tableConfig := p.GetDefault(workgen.PropertyTableConfig, workgen.PropertyTableConfigDefault)
	if _, err := engine.ParseSchema(tableConfig); err != nil {
		return err
	}
	keyLength, err := p.GetInt(workgen.PropertyKeyLength, workgen.PropertyKeyLengthDefault)
	if err != nil {
		return err
	}
	recordCount, err := p.GetInt(workgen.PropertyRecordCount, workgen.PropertyRecordCountDefault)
	if err != nil {
		return err
	}
	operationCount, err := p.GetInt(workgen.PropertyOperationCount, workgen.PropertyOperationCountDefault)
	if err != nil {
		return err
	}
	runTime, err := p.GetSeconds(workgen.PropertyMaxExecutionTime, workgen.PropertyMaxExecutionTimeDefault)
	if err != nil {
		return err
	}
	threadCount, err := p.GetInt(workgen.PropertyThreadCount, workgen.PropertyThreadCountDefault)
	if err != nil {
		return err
	}
	if threadCount <= 0 {
		return errors.Errorf("invalid thread count %d", threadCount)
	}
	seed, err := p.GetInt(workgen.PropertySeed, workgen.PropertySeedDefault)
	if err != nil {
		return err
	}

	fieldLength, err := p.GetInt(workgen.PropertyFieldLength, workgen.PropertyFieldLengthDefault)
	if err != nil {
		return err
	}
	fieldLengthDistribution := p.GetDefault(workgen.PropertyFieldLengthDistribution,
		workgen.PropertyFieldLengthDistributionDefault)
	var fieldLengthGenerator func() g.IntegerGenerator
	if fieldLengthDistribution != "constant" {
		fieldLengthGenerator, err = workgen.ValueSizes(fieldLengthDistribution, fieldLength,
			p.GetDefault(workgen.PropertyFieldLengthHistogramFile, workgen.PropertyFieldLengthHistogramFileDefault))
		if err != nil {
			return err
		}
	}
	dataIntegrity, err := p.GetBool(workgen.PropertyDataIntegrity, workgen.PropertyDataIntegrityDefault)
	if err != nil {
		return err
	}
	var orderedInserts bool
	switch insertOrder := p.GetDefault(workgen.PropertyInsertOrder, workgen.PropertyInsertOrderDefault); insertOrder {
	case "ordered":
		orderedInserts = true
	case "hashed":
		orderedInserts = false
	default:
		return errors.Errorf("unknown insert order %s", insertOrder)
	}

	proportions, err := parseFloats(p, []string{
		workgen.PropertyReadProportion,
		workgen.PropertyUpdateProportion,
		workgen.PropertyInsertProportion,
		workgen.PropertyRemoveProportion,
		workgen.PropertyReadModifyWriteProportion,
	}, []string{
		workgen.PropertyReadProportionDefault,
		workgen.PropertyUpdateProportionDefault,
		workgen.PropertyInsertProportionDefault,
		workgen.PropertyRemoveProportionDefault,
		workgen.PropertyReadModifyWriteProportionDefault,
	})
	if err != nil {
		return err
	}

	requestDistrib := p.GetDefault(workgen.PropertyRequestDistribution, workgen.PropertyRequestDistributionDefault)
	requestMode, ok := requestModes[requestDistrib]
	if !ok {
		return errors.Errorf("unknown request distribution %s", requestDistrib)
	}
	distrib, err := parseFloats(p, []string{
		workgen.HotspotDataFraction,
		workgen.HotspotOpnFraction,
		workgen.PropertyExponentialPercentile,
		workgen.PropertyExponentialFraction,
		workgen.PropertyParetoParam,
	}, []string{
		workgen.HotspotDataFractionDefault,
		workgen.HotspotOpnFractionDefault,
		workgen.PropertyExponentialPercentileDefault,
		workgen.PropertyExponentialFractionDefault,
		workgen.PropertyParetoParamDefault,
	})
	if err != nil {
		return err
	}

	retryLimit, err := p.GetInt(workgen.PropertyRetryLimit, workgen.PropertyRetryLimitDefault)
	if err != nil {
		return err
	}
	retryInterval, err := p.GetInt(workgen.PropertyRetryInterval, workgen.PropertyRetryIntervalDefault)
	if err != nil {
		return err
	}

	// set all fields
	self.table = table
	self.tableConfig = tableConfig
	self.keyLength = int(keyLength)
	self.recordCount = recordCount
	self.operationCount = operationCount
	self.runTime = runTime
	self.threadCount = int(threadCount)
	self.seed = seed
	self.fieldLength = int(fieldLength)
	self.fieldLengthGenerator = fieldLengthGenerator
	self.dataIntegrity = dataIntegrity
	self.orderedInserts = orderedInserts
	self.readProportion = proportions[0]
	self.updateProportion = proportions[1]
	self.insertProportion = proportions[2]
	self.removeProportion = proportions[3]
	self.readModifyWriteProportion = proportions[4]
	self.requestMode = requestMode
	self.hotsetFraction = distrib[0]
	self.hotOpnFraction = distrib[1]
	self.percentile = distrib[2]
	self.fraction = distrib[3]
	self.paretoParam = distrib[4]
	self.retryLimit = int(retryLimit)
	self.retryInterval = time.Duration(workgen.MillisecondToNanosecond(retryInterval))
	return nil
}

func (self *CoreWorkload) Tables() []workgen.PlanTable {
	return []workgen.PlanTable{
		{URI: self.table.URI, Config: self.tableConfig},
	}
}

func (self *CoreWorkload) newContext() *workgen.Context {
	if self.seed != 0 {
		return workgen.NewContextWithSeed(self.seed)
	}
	return workgen.NewContext()
}

func (self *CoreWorkload) newThread(name string, op *workgen.Operation) *workgen.Thread {
	t := workgen.NewThread(op)
	t.Options.Name = name
	t.Options.RetryLimit = self.retryLimit
	t.Options.RetryInterval = self.retryInterval
	return t
}

func (self *CoreWorkload) value() workgen.Value {
	value := workgen.NewRandomValue(self.fieldLength)
	if self.dataIntegrity {
		value = workgen.NewValue(self.fieldLength)
	}
	if self.fieldLengthGenerator != nil {
		value = value.WithSizes(self.fieldLengthGenerator)
	}
	return value
}

func (self *CoreWorkload) insertKey() workgen.Key {
	if self.orderedInserts {
		return workgen.NewKey(workgen.KeyAppend, self.keyLength)
	}
	return workgen.NewKey(workgen.KeyHashed, self.keyLength)
}

// requestKey returns the key of reads, updates and removes. Hashed rows
// cannot be found from the last key of the table, so their requests stay
// in the loaded records.
func (self *CoreWorkload) requestKey() workgen.Key {
	key := workgen.NewKey(self.requestMode, self.keyLength).
		WithHotspot(self.hotsetFraction, self.hotOpnFraction)
	key.Percentile = self.percentile
	key.Fraction = self.fraction
	key.ParetoParam = self.paretoParam
	if !self.orderedInserts {
		key = key.WithRange(1, self.recordCount)
		key.Hashed = true
	}
	return key
}

// Load returns the workload inserting recordcount records, spread over
// threadcount threads.
func (self *CoreWorkload) Load() (*workgen.Workload, error) {
	threads := make([]*workgen.Thread, 0, self.threadCount)
	per := self.recordCount / int64(self.threadCount)
	extra := self.recordCount % int64(self.threadCount)
	for i := 0; i < self.threadCount; i++ {
		n := per
		if int64(i) < extra {
			n++
		}
		if n == 0 {
			continue
		}
		op := workgen.Insert(self.table, self.insertKey(), self.value()).Times(int(n))
		threads = append(threads, self.newThread("load-"+strconv.Itoa(i), op))
	}
	w := workgen.NewWorkload(self.newContext(), threads...)
	if self.runTime > 0 {
		w.Options.RunTime = self.runTime
	}
	return w, nil
}

// Transactions returns the workload running operationcount operations of
// the configured mix, or running it for maxexecutiontime.
func (self *CoreWorkload) Transactions() (*workgen.Workload, error) {
	if self.operationCount <= 0 && self.runTime <= 0 {
		return nil, errors.Errorf("either %s or %s is needed",
			workgen.PropertyOperationCount, workgen.PropertyMaxExecutionTime)
	}
	read := workgen.Read(self.table, self.requestKey())
	if self.dataIntegrity {
		read = read.Verify()
	}
	op := workgen.Mix(
		workgen.Weighted(self.readProportion, read),
		workgen.Weighted(self.updateProportion, workgen.Update(self.table, self.requestKey(), self.value())),
		workgen.Weighted(self.insertProportion, workgen.Insert(self.table, self.insertKey(), self.value())),
		workgen.Weighted(self.removeProportion, workgen.Remove(self.table, self.requestKey())),
		workgen.Weighted(self.readModifyWriteProportion,
			read.Then(workgen.Update(self.table, self.requestKey(), self.value()))),
	)
	threads := make([]*workgen.Thread, 0, self.threadCount)
	for i := 0; i < self.threadCount; i++ {
		threads = append(threads, self.newThread("run-"+strconv.Itoa(i), op))
	}
	ctx := self.newContext()
	if !self.orderedInserts {
		ctx.Skip(self.table.URI, self.recordCount)
	}
	w := workgen.NewWorkload(ctx, threads...)
	w.Options.RepeatCount = 0
	w.Options.MaxOperations = self.operationCount
	w.Options.RunTime = self.runTime
	return w, nil
}

// AddWorkloads registers the workload classes of this package.
func AddWorkloads() {
	workgen.RegisterWorkload("core", func() workgen.WorkloadClass {
		return NewCoreWorkload()
	})
	workgen.RegisterWorkload("CoreWorkload", func() workgen.WorkloadClass {
		return NewCoreWorkload()
	})
}
