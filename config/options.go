package config

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Option 静态配置选项（应用生命周期内不变）
type Option[T any] interface {
	Value() T
}

// OptionSnapshot 快照配置选项（作用域内不变）
type OptionSnapshot[T any] interface {
	Value() T
}

// OptionMonitor 监听配置选项，总是返回最新的配置值
type OptionMonitor[T any] interface {
	Value() T
}

// optionFunc 统一承载三种选项形态
type optionFunc[T any] func() T

func (f optionFunc[T]) Value() T { return f() }

// NewOption 创建静态配置选项
func NewOption[T any](value T) Option[T] {
	return optionFunc[T](func() T { return value })
}

// NewOptionSnapshot 创建快照配置选项
func NewOptionSnapshot[T any](snapshot T) OptionSnapshot[T] {
	return optionFunc[T](func() T { return snapshot })
}

// NewOptionMonitor 创建监听配置选项
func NewOptionMonitor[T any](cache *OptionsCache[T]) OptionMonitor[T] {
	return optionFunc[T](cache.Get)
}

// OptionsCache 配置节的绑定缓存，配置重载时自动重新绑定
type OptionsCache[T any] struct {
	config  Configuration
	section string
	current T
	mu      sync.RWMutex
}

// NewOptionsCache 创建配置缓存并完成首次绑定
// 配置节不存在时保持零值
func NewOptionsCache[T any](config Configuration, section string) *OptionsCache[T] {
	cache := &OptionsCache[T]{
		config:  config,
		section: section,
	}
	cache.reload()

	if rc, ok := config.(interface{ OnReload(func()) }); ok {
		rc.OnReload(func() { cache.reload() })
	}

	return cache
}

func (c *OptionsCache[T]) reload() error {
	var next T
	if err := c.config.Bind(c.section, &next); err != nil {
		return fmt.Errorf("config: bind section '%s': %w", c.section, err)
	}

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()
	return nil
}

// Get 获取当前配置值
func (c *OptionsCache[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Snapshot 返回当前配置的深拷贝
// 经 JSON 往返复制，不可序列化的类型退化为直接副本
func (c *OptionsCache[T]) Snapshot() T {
	current := c.Get()

	data, err := json.Marshal(current)
	if err != nil {
		return current
	}

	var snapshot T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return current
	}
	return snapshot
}
