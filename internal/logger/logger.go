package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// rotating is the active file writer, closed by Sync.
var (
	rotating   io.Closer
	rotatingMu sync.Mutex
)

// Logger wraps logrus.Entry to provide structured logging with context support.
type Logger struct {
	*logrus.Entry
}

// Options controls how a Logger is built.
type Options struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // explicit destination, wins over file settings
	ServiceName string
	Environment string // local, dev, prod

	File     string // rotated log file, ignored in local environment
	FileOnly bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultOptions returns options for a stdout JSON logger.
func DefaultOptions() Options {
	return Options{
		Level:       "info",
		Format:      "json",
		ServiceName: "repobrief",
		Environment: "local",
		MaxSizeMB:   100,
		MaxBackups:  7,
		MaxAgeDays:  30,
		Compress:    true,
	}
}

// OptionsFromEnv reads LOG_* variables on top of DefaultOptions.
func OptionsFromEnv() Options {
	opts := DefaultOptions()
	opts.Level = envString("LOG_LEVEL", opts.Level)
	opts.Format = envString("LOG_FORMAT", opts.Format)
	opts.ServiceName = envString("SERVICE_NAME", opts.ServiceName)
	opts.Environment = envString("APP_ENV", opts.Environment)
	opts.File = envString("LOG_FILE", "")
	opts.FileOnly = envBool("LOG_FILE_ONLY", false)
	opts.MaxSizeMB = envInt("LOG_MAX_SIZE", opts.MaxSizeMB)
	opts.MaxBackups = envInt("LOG_MAX_BACKUPS", opts.MaxBackups)
	opts.MaxAgeDays = envInt("LOG_MAX_AGE", opts.MaxAgeDays)
	opts.Compress = envBool("LOG_COMPRESS", opts.Compress)
	return opts
}

// New builds a Logger.
// Parameters:
//   - opts: logger options; zero values fall back to DefaultOptions.
// Returns:
//   - *Logger: logger tagged with the service name.
func New(opts Options) *Logger {
	defaults := DefaultOptions()
	if opts.Level == "" {
		opts.Level = defaults.Level
	}
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ServiceName
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetReportCaller(true)
	log.SetFormatter(newFormatter(opts.Format))
	log.SetOutput(newOutput(opts))

	return &Logger{Entry: log.WithField("service", opts.ServiceName)}
}

// NewDefault creates a Logger from the environment. Intended for main().
func NewDefault() *Logger {
	return New(OptionsFromEnv())
}

func newFormatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampFormat,
			CallerPrettyfier: callerPrettyfier,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: callerPrettyfier,
	}
}

func newOutput(opts Options) io.Writer {
	if opts.Output != nil {
		return opts.Output
	}

	var writers []io.Writer
	useFile := opts.Environment != "local" && opts.File != ""
	if !useFile || !opts.FileOnly {
		writers = append(writers, os.Stdout)
	}
	if useFile {
		fw := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		writers = append(writers, fw)

		rotatingMu.Lock()
		rotating = fw
		rotatingMu.Unlock()
	}
	return io.MultiWriter(writers...)
}

// Sync closes the rotated log file, if any. Call before exit.
func Sync() error {
	rotatingMu.Lock()
	defer rotatingMu.Unlock()

	if rotating == nil {
		return nil
	}
	err := rotating.Close()
	rotating = nil
	return err
}

// WithFields returns a derived Logger carrying fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a derived Logger carrying one field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a derived Logger carrying err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

// callerPrettyfier reduces the caller to "pkg.Func" and "file.go:line".
func callerPrettyfier(frame *runtime.Frame) (string, string) {
	fn := frame.Function
	if idx := strings.LastIndex(fn, "/"); idx != -1 {
		fn = fn[idx+1:]
	}
	return fn, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return i
}

// Info logs through the default logger.
func Info(format string, args ...interface{}) {
	GetDefault().Infof(format, args...)
}

// Warn logs through the default logger.
func Warn(format string, args ...interface{}) {
	GetDefault().Warnf(format, args...)
}

// Error logs through the default logger.
func Error(format string, args ...interface{}) {
	GetDefault().Errorf(format, args...)
}

// Fatal logs through the default logger and exits.
func Fatal(format string, args ...interface{}) {
	GetDefault().Fatalf(format, args...)
}

// CtxDebug logs at Debug level with the fields carried by ctx.
func CtxDebug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debugf(format, args...)
}

// CtxInfo logs at Info level with the fields carried by ctx.
func CtxInfo(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Infof(format, args...)
}

// CtxWarn logs at Warn level with the fields carried by ctx.
func CtxWarn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warnf(format, args...)
}

// CtxError logs at Error level with the fields carried by ctx.
func CtxError(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Errorf(format, args...)
}
