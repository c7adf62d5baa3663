package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ********************************************************
// ********* LOGGING **************************************
// ********************************************************

var showDateTime bool
var defaultLogger *Logger
var logFile *os.File
var logFilePath = "/tmp/footcast.log"

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	INFORM
	HIGHLIGHT
	WARN
	ERROR
	FATAL
)

type Logger struct {
	zl    zerolog.Logger
	out   io.Writer
	level LogLevel
}

func init() {
	showDateTime = false
	defaultLogger = NewLogger(INFO, os.Stderr)
}

// NewLogger builds a console logger writing to w
func NewLogger(level LogLevel, w io.Writer) *Logger {
	l := &Logger{out: w, level: level}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	cw := zerolog.ConsoleWriter{Out: l.out, NoColor: l.out != os.Stderr && l.out != os.Stdout}
	if showDateTime {
		cw.TimeFormat = time.DateTime
	} else {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	l.zl = zerolog.New(cw).With().Timestamp().Logger().Level(l.level.zerolog())
}

func SetShowDateTime(value bool) {
	showDateTime = value
	defaultLogger.rebuild()
}

// SetLevel changes the minimum level of the default logger
func SetLevel(level LogLevel) {
	defaultLogger.level = level
	defaultLogger.rebuild()
}

// SetLogOutput sets the output destination for logs
// 'c' for console, 'f' for file, 'b' for both
func SetLogOutput(outputType rune) error {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	switch outputType {
	case 'c':
		defaultLogger.out = os.Stderr
	case 'f', 'b':
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		if outputType == 'f' {
			defaultLogger.out = f
		} else {
			defaultLogger.out = io.MultiWriter(os.Stderr, f)
		}
	default:
		return fmt.Errorf("invalid log output type: %c", outputType)
	}
	defaultLogger.rebuild()
	return nil
}

// SetOutput points the default logger at an arbitrary writer, mostly for tests
func SetOutput(w io.Writer) {
	defaultLogger.out = w
	defaultLogger.rebuild()
}

// ParseLevel converts a level name such as "debug" or "warn" to a LogLevel
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO, INFORM, HIGHLIGHT:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case INFORM:
		return "INFORM"
	case HIGHLIGHT:
		return "HIGHLIGHT"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l *Logger) log(level LogLevel, format string, v ...any) {
	if level < l.level {
		return
	}

	var ev *zerolog.Event
	switch level {
	case DEBUG:
		ev = l.zl.Debug()
	case WARN:
		ev = l.zl.Warn()
	case ERROR:
		ev = l.zl.Error()
	case FATAL:
		// WithLevel so zerolog does not exit before we flush, Fatal() below exits
		ev = l.zl.WithLevel(zerolog.FatalLevel)
	default:
		ev = l.zl.Info()
	}
	if level == INFORM || level == HIGHLIGHT {
		ev = ev.Str("tag", strings.ToLower(level.String()))
	}

	msg := format
	if len(v) > 0 {
		primitives, objects := processArgs(v...)
		if len(primitives) > 0 {
			msg = format + " " + strings.Join(primitives, " ")
		}
		for i, obj := range objects {
			ev = ev.RawJSON(fmt.Sprintf("obj%d", i), obj)
		}
	}
	ev.CallerSkipFrame(2).Caller().Msg(msg)
}

// processArgs processes arguments, converting non-primitives to JSON
// Returns a slice of string representations for primitive types and a slice of JSON documents for complex types
func processArgs(args ...any) ([]string, [][]byte) {
	var primitives []string
	var jsonObjects [][]byte

	for _, arg := range args {
		if isPrimitive(arg) {
			switch v := arg.(type) {
			case float32:
				primitives = append(primitives, fmt.Sprintf("%.4f", v))
			case float64:
				primitives = append(primitives, fmt.Sprintf("%.4f", v))
			case error:
				primitives = append(primitives, v.Error())
			case nil:
				primitives = append(primitives, "nil")
			default:
				primitives = append(primitives, fmt.Sprintf("%v", v))
			}
			continue
		}
		jsonBytes, err := json.Marshal(arg)
		if err != nil {
			primitives = append(primitives, fmt.Sprintf("%v", arg))
			continue
		}
		primitives = append(primitives, fmt.Sprintf("[Object of type %s]", reflect.TypeOf(arg)))
		jsonObjects = append(jsonObjects, jsonBytes)
	}
	return primitives, jsonObjects
}

// isPrimitive checks if a value is a primitive type
func isPrimitive(v any) bool {
	if v == nil {
		return true
	}

	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, error, time.Time, time.Duration, fmt.Stringer:
		return true
	default:
		return false
	}
}

// Convenience methods using the default logger
func Debug(format string, v ...any) {
	defaultLogger.log(DEBUG, format, v...)
}

func Info(format string, v ...any) {
	defaultLogger.log(INFO, format, v...)
}

func Inform(format string, v ...any) {
	defaultLogger.log(INFORM, format, v...)
}

func Highlight(format string, v ...any) {
	defaultLogger.log(HIGHLIGHT, format, v...)
}

func Warn(format string, v ...any) {
	defaultLogger.log(WARN, format, v...)
}

func Error(format string, v ...any) {
	defaultLogger.log(ERROR, format, v...)
}

func Fatal(format string, v ...any) {
	defaultLogger.log(FATAL, format, v...)
	if logFile != nil {
		logFile.Close()
	}
	os.Exit(1)
}
