package config

import (
	"strings"
	"sync"
	"sync/atomic"
)

// ValueStore 配置数据的原子快照存储，读取无锁
type ValueStore struct {
	value atomic.Pointer[map[string]any]
}

// NewValueStore 创建新的 ValueStore
func NewValueStore() *ValueStore {
	s := &ValueStore{}
	empty := make(map[string]any)
	s.value.Store(&empty)
	return s
}

// Load 加载当前配置快照
func (s *ValueStore) Load() map[string]any {
	return *s.value.Load()
}

// Store 原子替换配置数据
func (s *ValueStore) Store(data map[string]any) {
	s.value.Store(&data)
}

// PathCache 缓存配置路径的分段结果
// 路径支持 : 和 . 作为分隔符，空段丢弃
type PathCache struct {
	cache sync.Map
}

// Segments 返回路径分段，未命中缓存时解析并缓存
func (c *PathCache) Segments(path string) []string {
	if v, ok := c.cache.Load(path); ok {
		return v.([]string)
	}

	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == ':'
	})
	c.cache.Store(path, segments)
	return segments
}

var globalPathCache = &PathCache{}
