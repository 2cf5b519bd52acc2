package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncWriter 异步日志写入器，后台协程串行格式化并写出
type AsyncWriter struct {
	writer     io.Writer
	formatter  Formatter
	entryCh    chan *LogEntry
	wg         sync.WaitGroup
	closeOnce  sync.Once
	mu         sync.RWMutex
	errHandler func(error)
}

// NewAsyncWriter 创建异步写入器，bufferSize 为待写队列容量
func NewAsyncWriter(writer io.Writer, formatter Formatter, bufferSize int) *AsyncWriter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	w := &AsyncWriter{
		writer:    writer,
		formatter: formatter,
		entryCh:   make(chan *LogEntry, bufferSize),
	}

	w.wg.Add(1)
	go w.process()

	return w
}

// WriteLog 入队日志条目，队列满时阻塞，保证不丢日志
func (w *AsyncWriter) WriteLog(entry *LogEntry) {
	w.entryCh <- entry
}

// Close 排空队列并停止后台协程
func (w *AsyncWriter) Close() error {
	w.closeOnce.Do(func() {
		close(w.entryCh)
	})
	w.wg.Wait()
	return nil
}

// SetErrorHandler 设置写出错误回调，默认打印到 stderr
func (w *AsyncWriter) SetErrorHandler(handler func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errHandler = handler
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()

	buf := getBuffer()
	defer putBuffer(buf)

	for entry := range w.entryCh {
		buf.Reset()
		if err := w.formatter.Format(entry, buf); err != nil {
			w.reportError(fmt.Errorf("logging: format entry: %w", err))
			continue
		}
		if _, err := w.writer.Write(buf.Bytes()); err != nil {
			w.reportError(fmt.Errorf("logging: write entry: %w", err))
		}
	}
}

func (w *AsyncWriter) reportError(err error) {
	w.mu.RLock()
	handler := w.errHandler
	w.mu.RUnlock()

	if handler != nil {
		handler(err)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
