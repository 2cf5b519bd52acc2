package logging

import (
	"os"
	"sync"
	"time"
)

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// Logger 日志接口（类似于 .NET Core ILogger）
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// LoggerFactory 日志工厂接口
type LoggerFactory interface {
	CreateLogger(category string) Logger
	AddProvider(provider LoggerProvider)
	SetMinimumLevel(level LogLevel)
}

// LoggerProvider 日志提供者接口
type LoggerProvider interface {
	CreateLogger(category string) Logger
	SetMinimumLevel(level LogLevel)
}

// Sink 接收格式化前的完整日志条目
type Sink interface {
	WriteLog(entry *LogEntry)
}

// loggerFactory 日志工厂实现
type loggerFactory struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	mu           sync.RWMutex
}

func (f *loggerFactory) CreateLogger(category string) Logger {
	f.mu.RLock()
	defer f.mu.RUnlock()

	loggers := make([]Logger, 0, len(f.providers))
	for _, provider := range f.providers {
		loggers = append(loggers, provider.CreateLogger(category))
	}

	return &compositeLogger{
		loggers:      loggers,
		minimumLevel: f.minimumLevel,
		category:     category,
	}
}

func (f *loggerFactory) AddProvider(provider LoggerProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	provider.SetMinimumLevel(f.minimumLevel)
	f.providers = append(f.providers, provider)
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minimumLevel = level
	for _, provider := range f.providers {
		provider.SetMinimumLevel(level)
	}
}

// compositeLogger 把日志分发到多个提供者的记录器
type compositeLogger struct {
	loggers      []Logger
	minimumLevel LogLevel
	category     string
	fields       []Field
}

func (l *compositeLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *compositeLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *compositeLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *compositeLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *compositeLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *compositeLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *compositeLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.minimumLevel {
		return
	}
	merged := mergeFields(l.fields, fields)
	for _, logger := range l.loggers {
		logger.Log(level, msg, merged...)
	}
}

func (l *compositeLogger) WithFields(fields ...Field) Logger {
	return &compositeLogger{
		loggers:      l.loggers,
		minimumLevel: l.minimumLevel,
		category:     l.category,
		fields:       mergeFields(l.fields, fields),
	}
}

func (l *compositeLogger) WithCategory(category string) Logger {
	loggers := make([]Logger, 0, len(l.loggers))
	for _, inner := range l.loggers {
		loggers = append(loggers, inner.WithCategory(category))
	}
	return &compositeLogger{
		loggers:      loggers,
		minimumLevel: l.minimumLevel,
		category:     category,
		fields:       l.fields,
	}
}

// sinkLogger 单一记录器实现，所有提供者共用
// 级别判定交给 enabled，条目投递交给 Sink
type sinkLogger struct {
	category string
	fields   []Field
	enabled  func(LogLevel) bool
	sink     Sink
}

func newSinkLogger(category string, enabled func(LogLevel) bool, sink Sink) *sinkLogger {
	return &sinkLogger{category: category, enabled: enabled, sink: sink}
}

func (l *sinkLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *sinkLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *sinkLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *sinkLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *sinkLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *sinkLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *sinkLogger) Log(level LogLevel, msg string, fields ...Field) {
	if !l.enabled(level) {
		return
	}
	l.sink.WriteLog(&LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
		Fields:   mergeFields(l.fields, fields),
	})
}

func (l *sinkLogger) WithFields(fields ...Field) Logger {
	return &sinkLogger{
		category: l.category,
		fields:   mergeFields(l.fields, fields),
		enabled:  l.enabled,
		sink:     l.sink,
	}
}

func (l *sinkLogger) WithCategory(category string) Logger {
	return &sinkLogger{
		category: category,
		fields:   l.fields,
		enabled:  l.enabled,
		sink:     l.sink,
	}
}

// mergeFields 合并字段，返回独立切片避免共享底层数组
func mergeFields(base, extra []Field) []Field {
	if len(extra) == 0 {
		return base
	}
	merged := make([]Field, 0, len(base)+len(extra))
	merged = append(merged, base...)
	merged = append(merged, extra...)
	return merged
}
