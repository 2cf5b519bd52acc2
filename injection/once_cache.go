package injection

import "sync"

// OnceCache 计算一次、并发安全、按身份失效的通用缓存
// 注入元数据与构造函数候选共用同一套实现：
// 无锁快路径读，未命中/过期时才进入本缓存范围的锁重算，
// 保证竞争下每个键最多一个线程承担扫描成本
type OnceCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewOnceCache 创建缓存
func NewOnceCache[K comparable, V any]() *OnceCache[K, V] {
	return &OnceCache[K, V]{entries: make(map[K]V)}
}

// Get 取值；valid 判断现值是否仍然有效（nil 表示永远有效），
// 无效或未命中时在锁内经 compute 重算并发布
func (c *OnceCache[K, V]) Get(key K, valid func(V) bool, compute func() V) V {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && (valid == nil || valid(v)) {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// 双重检查：竞争线程可能已经重算完毕
	if v, ok := c.entries[key]; ok && (valid == nil || valid(v)) {
		return v
	}
	v = compute()
	c.entries[key] = v
	return v
}

// Peek 只读探测，不触发重算
func (c *OnceCache[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Invalidate 定向失效单个键
func (c *OnceCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear 整体清空
func (c *OnceCache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]V)
	c.mu.Unlock()
}
