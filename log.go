package workgen

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevelType uint8

const (
	LevelVerbose LogLevelType = 50
	LevelDebug   LogLevelType = 40
	LevelInfo    LogLevelType = 30
	LevelWarn    LogLevelType = 20
	LevelError   LogLevelType = 10
	LevelQuiet   LogLevelType = 0
)

var (
	nameToLevels = map[string]LogLevelType{
		"verbose": LevelVerbose,
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"quiet":   LevelQuiet,
	}
)

var (
	logLevel LogLevelType = LevelWarn
	logger   *zap.SugaredLogger
)

func init() {
	SetLogger(newLogger())
}

func newLogger() *zap.Logger {
	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(config),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel)
	return zap.New(core)
}

// SetLogger replaces the logger behind this package and the drivers.
func SetLogger(l *zap.Logger) {
	zap.ReplaceGlobals(l)
	logger = l.Sugar()
}

func ParseLogLevel(name string) (LogLevelType, error) {
	level, ok := nameToLevels[strings.ToLower(name)]
	if !ok {
		return LevelQuiet, errors.Errorf("unknown log level: %s", name)
	}
	return level, nil
}

func SetLogLevel(level LogLevelType) {
	logLevel = level
}

func GetLogLevel() LogLevelType {
	return logLevel
}

func Logf(level LogLevelType, format string, args ...interface{}) {
	if level > logLevel {
		return
	}
	switch level {
	case LevelError:
		logger.Errorf(format, args...)
	case LevelWarn:
		logger.Warnf(format, args...)
	case LevelInfo:
		logger.Infof(format, args...)
	default:
		logger.Debugf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	Logf(LevelError, format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logf(LevelWarn, format, args...)
}

func Infof(format string, args ...interface{}) {
	Logf(LevelInfo, format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logf(LevelDebug, format, args...)
}

func Verbosef(format string, args ...interface{}) {
	Logf(LevelVerbose, format, args...)
}

func PromptPrintf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

func Println(format string, args ...interface{}) {
	fmt.Printf(format, args...)
	fmt.Println("")
}

func EPrintf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintln(os.Stderr, "")
}

func ExitOnError(format string, args ...interface{}) {
	logger.Sync()
	EPrintf(format, args...)
	os.Exit(1)
}
