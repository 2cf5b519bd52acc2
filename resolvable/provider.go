package resolvable

import (
	"fmt"
	"reflect"
	"sync"
)

// Provider 描述类型的反射来源（结构体字段或函数参数）
type Provider interface {
	// Source 返回来源的身份标识，用于相等性比较
	Source() any
	// Type 返回来源处声明的类型
	Type() reflect.Type
}

// VariableResolver 在还原描述符时解析未注册的命名类型
type VariableResolver interface {
	// ResolveVariable 按名称解析类型；无法解析时返回 nil
	ResolveVariable(name string) reflect.Type
	// Source 返回解析器的身份标识，用于相等性比较
	Source() any
}

type fieldProvider struct {
	owner reflect.Type
	index int
}

func (p fieldProvider) Source() any {
	return fmt.Sprintf("%v#%d", p.owner, p.index)
}

func (p fieldProvider) Type() reflect.Type {
	return p.owner.Field(p.index).Type
}

type paramProvider struct {
	fn    reflect.Type
	index int
}

func (p paramProvider) Source() any {
	return fmt.Sprintf("%v@%d", p.fn, p.index)
}

func (p paramProvider) Type() reflect.Type {
	return p.fn.In(p.index)
}

func providerSource(p Provider) any {
	if p == nil {
		return nil
	}
	return p.Source()
}

func resolverSource(r VariableResolver) any {
	if r == nil {
		return nil
	}
	return r.Source()
}

// ForType 从原始 reflect.Type 构造
func ForType(typ reflect.Type) *Type {
	if typ == nil {
		return None
	}
	return cached(typ)
}

// ForValue 从任意值的动态类型构造
func ForValue(v any) *Type {
	if v == nil {
		return None
	}
	return ForType(reflect.TypeOf(v))
}

// ForField 从结构体字段构造（携带来源信息）
// owner 为 nil 或字段越界时返回 None
func ForField(owner reflect.Type, index int) *Type {
	if owner == nil {
		return None
	}
	if owner.Kind() == reflect.Ptr {
		owner = owner.Elem()
	}
	if owner.Kind() != reflect.Struct || index < 0 || index >= owner.NumField() {
		return None
	}
	p := fieldProvider{owner: owner, index: index}
	return &Type{typ: p.Type(), provider: p}
}

// ForParameter 从函数参数构造（携带来源信息）
func ForParameter(fn reflect.Type, index int) *Type {
	if fn == nil || fn.Kind() != reflect.Func || index < 0 || index >= fn.NumIn() {
		return None
	}
	p := paramProvider{fn: fn, index: index}
	return &Type{typ: p.Type(), provider: p}
}

// WithResolver 返回携带指定变量解析器的副本
func (t *Type) WithResolver(r VariableResolver) *Type {
	if t.IsNone() {
		return None
	}
	return &Type{typ: t.typ, provider: t.provider, resolver: r, component: t.component}
}

// 无来源包装的进程级缓存：同一 reflect.Type 重复包装的开销可观
// 仅追加，整体清空，条目不单独失效
var typeCache = struct {
	mu      sync.RWMutex
	entries map[reflect.Type]*Type
}{entries: make(map[reflect.Type]*Type)}

func cached(typ reflect.Type) *Type {
	typeCache.mu.RLock()
	t, ok := typeCache.entries[typ]
	typeCache.mu.RUnlock()
	if ok {
		return t
	}
	typeCache.mu.Lock()
	defer typeCache.mu.Unlock()
	if t, ok := typeCache.entries[typ]; ok {
		return t
	}
	t = &Type{typ: typ}
	typeCache.entries[typ] = t
	return t
}

// ClearCache 清空包装缓存（测试隔离用）
func ClearCache() {
	typeCache.mu.Lock()
	typeCache.entries = make(map[reflect.Type]*Type)
	typeCache.mu.Unlock()
}
