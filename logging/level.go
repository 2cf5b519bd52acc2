package logging

import (
	"fmt"
	"strings"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	if l < LogLevelTrace || l > LogLevelFatal {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel 解析日志级别字符串，大小写不敏感
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LogLevelTrace, nil
	case "DEBUG":
		return LogLevelDebug, nil
	case "INFO":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	case "FATAL":
		return LogLevelFatal, nil
	}
	return LogLevelInfo, fmt.Errorf("logging: unknown level '%s'", s)
}
