package logging

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// FileConfig 日志滚动（lumberjack）配置
type FileConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config 日志级别与输出配置
type Config struct {
	Level  string
	Format string // console | json
	File   FileConfig
}

// Logger is handed out at package init time and keeps pointing at whatever
// core Init installs later.
type Logger struct {
	sugar atomic.Pointer[zap.SugaredLogger]
	level zap.AtomicLevel
}

var defaultLogger = newDefault()

func newDefault() *Logger {
	l := &Logger{level: zap.NewAtomicLevelAt(InfoLevel)}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), l.level)
	l.sugar.Store(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar())
	return l
}

// GetDefaultLogger returns the process wide logger.
func GetDefaultLogger() *Logger {
	return defaultLogger
}

// Init 初始化 zap 日志器，控制台 + 文件（lumberjack 滚动）双写
func Init(cfg Config) {
	defaultLogger.level.SetLevel(ParseLevel(cfg.Level))

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig())
	}

	ws := zapcore.AddSync(os.Stdout)
	if cfg.File.Filename != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		ws = zapcore.NewMultiWriteSyncer(ws, zapcore.AddSync(lj))
	}
	core := zapcore.NewCore(encoder, ws, defaultLogger.level)
	old := defaultLogger.sugar.Swap(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar())
	if old != nil {
		_ = old.Sync()
	}
}

// ParseLevel falls back to info for anything it does not recognize.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format("2006-01-02 15:04:05.000")) },
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func (l *Logger) SetLevel(level Level) { l.level.SetLevel(level) }

func (l *Logger) Enabled(level Level) bool { return l.level.Enabled(level) }

func (l *Logger) Debugf(template string, args ...interface{}) {
	l.sugar.Load().Debugf(template, args...)
}

func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Load().Infof(template, args...)
}

func (l *Logger) Warnf(template string, args ...interface{}) {
	l.sugar.Load().Warnf(template, args...)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Load().Errorf(template, args...)
}

// Logf logs at the given level.
func (l *Logger) Logf(level Level, template string, args ...interface{}) {
	l.sugar.Load().Logf(level, template, args...)
}

func (l *Logger) Sync() error {
	return l.sugar.Load().Sync()
}
