package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// LogEntry 日志条目
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}

// Formatter 日志格式化接口，输出写入 buf，须以换行结尾
type Formatter interface {
	Format(entry *LogEntry, buf *bytes.Buffer) error
}

// bufPool 格式化缓冲复用
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func getBuffer() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufPool.Put(buf)
}

// TextFormatter 文本格式化器
type TextFormatter struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
	}
}

// Format 格式化日志
func (f *TextFormatter) Format(entry *LogEntry, buf *bytes.Buffer) error {
	if f.IncludeTimestamp {
		format := f.TimestampFormat
		if format == "" {
			format = "2006-01-02 15:04:05"
		}
		buf.WriteString(entry.Time.Format(format))
		buf.WriteByte(' ')
	}

	levelStr := entry.Level.String()
	if f.ColorOutput {
		buf.WriteString(colorize(entry.Level, levelStr))
	} else {
		buf.WriteString(levelStr)
	}

	if entry.Category != "" {
		buf.WriteString(" [")
		buf.WriteString(entry.Category)
		buf.WriteByte(']')
	}

	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		buf.WriteString(" {")
		for i, field := range entry.Fields {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(field.Key)
			buf.WriteByte('=')
			fmt.Fprintf(buf, "%v", field.Value)
		}
		buf.WriteByte('}')
	}

	buf.WriteByte('\n')
	return nil
}

// colorize 为日志级别添加 ANSI 颜色
func colorize(level LogLevel, text string) string {
	const reset = "\033[0m"

	var color string
	switch level {
	case LogLevelTrace:
		color = "\033[90m"
	case LogLevelDebug:
		color = "\033[36m"
	case LogLevelInfo:
		color = "\033[32m"
	case LogLevelWarn:
		color = "\033[33m"
	case LogLevelError:
		color = "\033[31m"
	case LogLevelFatal:
		color = "\033[35m"
	default:
		return text
	}
	return color + text + reset
}

// JsonFormatter JSON 格式化器
type JsonFormatter struct {
	TimestampFormat string
}

// NewJsonFormatter 创建 JSON 格式化器
func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// Format 格式化日志，Encode 自带换行
func (f *JsonFormatter) Format(entry *LogEntry, buf *bytes.Buffer) error {
	data := map[string]any{
		"time":  entry.Time.Format(f.TimestampFormat),
		"level": entry.Level.String(),
		"msg":   entry.Message,
	}
	if entry.Category != "" {
		data["category"] = entry.Category
	}
	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			fields[field.Key] = field.Value
		}
		data["fields"] = fields
	}

	return json.NewEncoder(buf).Encode(data)
}
