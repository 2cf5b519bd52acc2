package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// ConsoleLoggerProvider 控制台日志提供者，同步写出
type ConsoleLoggerProvider struct {
	formatter    *TextFormatter
	output       io.Writer
	minimumLevel LogLevel
	mu           sync.Mutex
}

func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *ConsoleLoggerProvider {
	output := options.Output
	if output == nil {
		output = os.Stdout
	}
	return &ConsoleLoggerProvider{
		formatter: &TextFormatter{
			IncludeTimestamp: options.IncludeTimestamp,
			TimestampFormat:  options.TimestampFormat,
			ColorOutput:      options.ColorOutput,
		},
		output:       output,
		minimumLevel: LogLevelInfo,
	}
}

func (p *ConsoleLoggerProvider) CreateLogger(category string) Logger {
	return newSinkLogger(category, p.levelEnabled, p)
}

func (p *ConsoleLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

func (p *ConsoleLoggerProvider) levelEnabled(level LogLevel) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return level >= p.minimumLevel
}

// WriteLog 格式化并写出条目，锁保证多 Logger 下的行完整性
func (p *ConsoleLoggerProvider) WriteLog(entry *LogEntry) {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := p.formatter.Format(entry, buf); err != nil {
		fmt.Fprintf(os.Stderr, "logging: console format error: %v\n", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.output.Write(buf.Bytes())
}
