package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sync"
)

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path       string
	MaxSize    int64 // 字节，超过后轮转，0 表示不轮转
	MaxBackups int
	Compress   bool
	Json       bool
	BufferSize int
}

// FileLoggerProvider 文件日志提供者，经 AsyncWriter 异步写出
type FileLoggerProvider struct {
	options      FileLoggerOptions
	minimumLevel LogLevel
	writer       *AsyncWriter
	file         *rotatingFile
	initOnce     sync.Once
	initErr      error
	mu           sync.Mutex
}

func NewFileLoggerProvider(options FileLoggerOptions) *FileLoggerProvider {
	return &FileLoggerProvider{
		options:      options,
		minimumLevel: LogLevelInfo,
	}
}

func (p *FileLoggerProvider) CreateLogger(category string) Logger {
	return newSinkLogger(category, p.levelEnabled, p)
}

func (p *FileLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minimumLevel = level
}

func (p *FileLoggerProvider) levelEnabled(level LogLevel) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return level >= p.minimumLevel
}

// WriteLog 首次写入时惰性打开文件
func (p *FileLoggerProvider) WriteLog(entry *LogEntry) {
	p.initOnce.Do(p.open)
	if p.initErr != nil {
		return
	}
	p.writer.WriteLog(entry)
}

// Close 排空待写日志并关闭文件
func (p *FileLoggerProvider) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return err
	}
	return p.file.Close()
}

func (p *FileLoggerProvider) open() {
	file, err := newRotatingFile(p.options.Path, p.options.MaxSize, p.options.MaxBackups, p.options.Compress)
	if err != nil {
		p.initErr = err
		fmt.Fprintf(os.Stderr, "logging: open log file: %v\n", err)
		return
	}
	p.file = file

	var formatter Formatter
	if p.options.Json {
		formatter = NewJsonFormatter()
	} else {
		formatter = NewTextFormatter()
	}
	p.writer = NewAsyncWriter(file, formatter, p.options.BufferSize)
}

// rotatingFile 按大小轮转的文件写入器
// 轮转时现有备份依次后移，path.1 最新，超出 maxBackups 的删除
type rotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int
	compress   bool

	mu   sync.Mutex
	file *os.File
	size int64
}

func newRotatingFile(path string, maxSize int64, maxBackups int, compress bool) (*rotatingFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &rotatingFile{
		path:       path,
		maxSize:    maxSize,
		maxBackups: maxBackups,
		compress:   compress,
		file:       file,
		size:       info.Size(),
	}, nil
}

func (f *rotatingFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.maxSize > 0 && f.size+int64(len(p)) > f.maxSize {
		if err := f.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := f.file.Write(p)
	f.size += int64(n)
	return n, err
}

func (f *rotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

func (f *rotatingFile) rotate() error {
	if err := f.file.Close(); err != nil {
		return err
	}

	backups := f.maxBackups
	if backups < 1 {
		backups = 1
	}

	// 最老的备份删除，其余依次后移
	os.Remove(f.backupPath(backups))
	for i := backups - 1; i >= 1; i-- {
		src := f.backupPath(i)
		if _, err := os.Stat(src); err == nil {
			os.Rename(src, f.backupPath(i+1))
		}
	}

	first := f.path + ".1"
	if f.compress {
		first += ".gz"
		if err := compressFile(f.path, first); err != nil {
			return err
		}
		os.Remove(f.path)
	} else {
		if err := os.Rename(f.path, first); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	f.file = file
	f.size = 0
	return nil
}

func (f *rotatingFile) backupPath(n int) string {
	path := fmt.Sprintf("%s.%d", f.path, n)
	if f.compress {
		path += ".gz"
	}
	return path
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
