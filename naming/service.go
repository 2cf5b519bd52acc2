package naming

import (
	"context"
	"fmt"
	"sync"
)

// Service 命名服务：按全局名称查找外部托管的资源
type Service interface {
	// Lookup 按名称查找资源
	Lookup(ctx context.Context, name string) (any, error)
	// Bind 绑定名称到资源
	Bind(ctx context.Context, name string, value any) error
	// Unbind 解除绑定
	Unbind(ctx context.Context, name string) error
}

// NotBoundError 名称未绑定
type NotBoundError struct {
	Name string
}

func (e *NotBoundError) Error() string {
	return fmt.Sprintf("naming: name '%s' is not bound", e.Name)
}

// MemoryService 进程内命名服务
type MemoryService struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewMemoryService 创建空的进程内命名服务
func NewMemoryService() *MemoryService {
	return &MemoryService{entries: make(map[string]any)}
}

// Lookup 按名称查找
func (s *MemoryService) Lookup(ctx context.Context, name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.entries[name]; ok {
		return v, nil
	}
	return nil, &NotBoundError{Name: name}
}

// Bind 绑定名称
func (s *MemoryService) Bind(ctx context.Context, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = value
	return nil
}

// Unbind 解除绑定
func (s *MemoryService) Unbind(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return &NotBoundError{Name: name}
	}
	delete(s.entries, name)
	return nil
}
