package workgen

const (
	// Client
	// The driver to run against.
	PropertyDriver        = "driver"
	PropertyDriverDefault = "memory"
	// The home of the connection: a directory for embedded engines, a
	// database name for remote ones.
	PropertyHome        = "home"
	PropertyHomeDefault = "WT_TEST"
	// The connection configuration string.
	PropertyConnectionConfig        = "config"
	PropertyConnectionConfigDefault = "create"
	// Keep the home of an embedded engine between runs instead of
	// clearing it before the load phase.
	PropertyKeepHome        = "keephome"
	PropertyKeepHomeDefault = "true"
	// The number of records to load into the table initially.
	PropertyRecordCount        = "recordcount"
	PropertyRecordCountDefault = "0"
	// The target number of operations to perform.
	PropertyOperationCount        = "operationcount"
	PropertyOperationCountDefault = "0"
	// The exporter to be used. The default is TextMeasurementExporter.
	PropertyExporter        = "exporter"
	PropertyExporterDefault = "TextMeasurementExporter"
	// If set to the path of a file, this file will be written instead of
	// stdout. Strftime directives are expanded.
	PropertyExportFile = "exportfile"
	// The number of client goroutines to run.
	PropertyThreadCount        = "threadcount"
	PropertyThreadCountDefault = "1"
	// Target number of operations per second.
	PropertyTarget        = "target"
	PropertyTargetDefault = "0"
	// The maximum amount of time (in seconds) for which the benchmark will
	// be run.
	PropertyMaxExecutionTime        = "maxexecutiontime"
	PropertyMaxExecutionTimeDefault = "0"
	// Status report interval in seconds.
	PropertyStatusInterval        = "status.interval"
	PropertyStatusIntervalDefault = "10"
	// The seed of the run. Zero picks one from the clock.
	PropertySeed        = "seed"
	PropertySeedDefault = "0"
	// A YAML workload plan to run instead of the core workload.
	PropertyPlan = "plan"
	// The workload class of the load and run phases.
	PropertyWorkload        = "workload"
	PropertyWorkloadDefault = "core"
	PropertyLogLevel        = "log.level"

	// workload
	// The name of the table to run operations against.
	PropertyTableName        = "table"
	PropertyTableNameDefault = "usertable"
	// The configuration of the table created by the load phase.
	PropertyTableConfig        = "tableconfig"
	PropertyTableConfigDefault = "key_format=S,value_format=S"
	// The minimum width of a rendered string key.
	PropertyKeyLength        = "keylength"
	PropertyKeyLengthDefault = "10"
	// The name of the property for the value length distribution.
	// Options are "uniform", "zipfian"(favoring short records), "constant",
	// and "histogram".
	// If "uniform", "zipfian" or "constant", the maximum value length will
	// be that specified by the fieldlength property. If "histogram", then
	// the histogram will be read from the filename specified in the
	// "fieldlengthhistogram" property.
	PropertyFieldLengthDistribution        = "fieldlengthdistribution"
	PropertyFieldLengthDistributionDefault = "constant"
	// The length of a value in bytes.
	PropertyFieldLength        = "fieldlength"
	PropertyFieldLengthDefault = "100"
	// The file containing the value length histogram.
	PropertyFieldLengthHistogramFile        = "fieldlengthhistogram"
	PropertyFieldLengthHistogramFileDefault = "hist.txt"
	// Fill values deterministically from their key and check every read
	// against it.
	PropertyDataIntegrity        = "dataintegrity"
	PropertyDataIntegrityDefault = "false"
	PropertyReadProportion              = "readproportion"
	PropertyReadProportionDefault       = "0.95"
	PropertyUpdateProportion            = "updateproportion"
	PropertyUpdateProportionDefault     = "0.05"
	PropertyInsertProportion            = "insertproportion"
	PropertyInsertProportionDefault     = "0.0"
	PropertyRemoveProportion            = "removeproportion"
	PropertyRemoveProportionDefault     = "0.0"
	PropertyReadModifyWriteProportion        = "readmodifywriteproportion"
	PropertyReadModifyWriteProportionDefault = "0.0"
	// The distribution of requests across the keyspace. Options are
	// "uniform", "zipfian", "hotspot", "exponential", "pareto" and "latest".
	PropertyRequestDistribution        = "requestdistribution"
	PropertyRequestDistributionDefault = "uniform"
	// The order to insert records. Options are "ordered" or "hashed".
	PropertyInsertOrder        = "insertorder"
	PropertyInsertOrderDefault = "ordered"
	// Percentage data items that constitute the hot set.
	HotspotDataFraction        = "hotspotdatafraction"
	HotspotDataFractionDefault = "0.2"
	// Percentage operations that access the hot set.
	HotspotOpnFraction        = "hotspotopnfraction"
	HotspotOpnFractionDefault = "0.8"
	// How many times to retry an operation that conflicts.
	PropertyRetryLimit        = "retrylimit"
	PropertyRetryLimitDefault = "3"
	// On average, how long to wait between the retries, in milliseconds.
	PropertyRetryInterval        = "retryinterval"
	PropertyRetryIntervalDefault = "10"

	// measurement
	// The percentile values to output.
	PropertyPercentiles        = "hdrhistogram.percentiles"
	PropertyPercentilesDefault = "95,99"
	// The highest trackable latency in microseconds.
	PropertyHdrHistogramMax        = "hdrhistogram.max"
	PropertyHdrHistogramMaxDefault = "60000000"
	PropertyHdrHistogramSig        = "hdrhistogram.sig"
	PropertyHdrHistogramSigDefault = "3"

	// generator
	// What percentage of the readings should be within the most recent
	// exponential.frac portion of the dataset?
	PropertyExponentialPercentile        = "exponential.percentile"
	PropertyExponentialPercentileDefault = "95"
	// What fraction of the dataset should be accessed
	// exponential.percentile of the time?
	PropertyExponentialFraction        = "exponential.frac"
	PropertyExponentialFractionDefault = "0.8571428571" // 1/7
	PropertyParetoParam                = "pareto.param"
	PropertyParetoParamDefault         = "20"
)
