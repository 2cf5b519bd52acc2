package logging

// NewLogger 创建一个默认的控制台 Logger（便于测试使用）
func NewLogger() Logger {
	return NewLoggingBuilder().AddConsole().Build().CreateLogger("default")
}

// NewNopLogger 创建丢弃所有输出的 Logger
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Trace(string, ...Field)          {}
func (nopLogger) Debug(string, ...Field)          {}
func (nopLogger) Info(string, ...Field)           {}
func (nopLogger) Warn(string, ...Field)           {}
func (nopLogger) Error(string, ...Field)          {}
func (nopLogger) Fatal(string, ...Field)          {}
func (nopLogger) Log(LogLevel, string, ...Field)  {}
func (nopLogger) WithFields(...Field) Logger      { return nopLogger{} }
func (nopLogger) WithCategory(string) Logger      { return nopLogger{} }
