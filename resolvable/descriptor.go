package resolvable

import (
	"fmt"
	"reflect"
	"sync"
)

// Descriptor 是类型签名的可序列化表示（带标签的变体类型）
// 每个变体天然可序列化，还原时由小型解释器逐层 resolve，
// 从而完全避开对不可序列化反射对象的动态代理
type Descriptor struct {
	Kind string        `yaml:"kind" json:"kind"`
	Name string        `yaml:"name,omitempty" json:"name,omitempty"`
	Len  int           `yaml:"len,omitempty" json:"len,omitempty"`
	Key  *Descriptor   `yaml:"key,omitempty" json:"key,omitempty"`
	Elem *Descriptor   `yaml:"elem,omitempty" json:"elem,omitempty"`
	In   []*Descriptor `yaml:"in,omitempty" json:"in,omitempty"`
	Out  []*Descriptor `yaml:"out,omitempty" json:"out,omitempty"`
}

// 变体标签
const (
	KindNamed = "named"
	KindPtr   = "ptr"
	KindSlice = "slice"
	KindArray = "array"
	KindMap   = "map"
	KindChan  = "chan"
	KindFunc  = "func"
	KindNone  = "none"
)

// DescriptorOf 将 Type 转为可序列化描述符
func DescriptorOf(t *Type) *Descriptor {
	if t.IsNone() {
		return &Descriptor{Kind: KindNone}
	}
	return descriptorOfRaw(t.typ)
}

func descriptorOfRaw(typ reflect.Type) *Descriptor {
	switch typ.Kind() {
	case reflect.Ptr:
		return &Descriptor{Kind: KindPtr, Elem: descriptorOfRaw(typ.Elem())}
	case reflect.Slice:
		return &Descriptor{Kind: KindSlice, Elem: descriptorOfRaw(typ.Elem())}
	case reflect.Array:
		return &Descriptor{Kind: KindArray, Len: typ.Len(), Elem: descriptorOfRaw(typ.Elem())}
	case reflect.Map:
		return &Descriptor{Kind: KindMap, Key: descriptorOfRaw(typ.Key()), Elem: descriptorOfRaw(typ.Elem())}
	case reflect.Chan:
		return &Descriptor{Kind: KindChan, Elem: descriptorOfRaw(typ.Elem())}
	case reflect.Func:
		d := &Descriptor{Kind: KindFunc}
		for i := 0; i < typ.NumIn(); i++ {
			d.In = append(d.In, descriptorOfRaw(typ.In(i)))
		}
		for i := 0; i < typ.NumOut(); i++ {
			d.Out = append(d.Out, descriptorOfRaw(typ.Out(i)))
		}
		return d
	default:
		return &Descriptor{Kind: KindNamed, Name: typeName(typ)}
	}
}

// Resolve 用注册表把描述符还原为 Type
// 未注册的命名类型先问 resolver，仍无果则降级为 None（不报错，见错误策略）
func (d *Descriptor) Resolve(reg *TypeRegistry, resolver VariableResolver) *Type {
	raw := d.resolveRaw(reg, resolver)
	if raw == nil {
		return None
	}
	t := ForType(raw)
	if resolver != nil {
		t = t.WithResolver(resolver)
	}
	return t
}

func (d *Descriptor) resolveRaw(reg *TypeRegistry, resolver VariableResolver) reflect.Type {
	if d == nil {
		return nil
	}
	switch d.Kind {
	case KindNamed:
		if raw := reg.Lookup(d.Name); raw != nil {
			return raw
		}
		if resolver != nil {
			return resolver.ResolveVariable(d.Name)
		}
		return nil
	case KindPtr:
		if elem := d.Elem.resolveRaw(reg, resolver); elem != nil {
			return reflect.PointerTo(elem)
		}
	case KindSlice:
		if elem := d.Elem.resolveRaw(reg, resolver); elem != nil {
			return reflect.SliceOf(elem)
		}
	case KindArray:
		if elem := d.Elem.resolveRaw(reg, resolver); elem != nil {
			return reflect.ArrayOf(d.Len, elem)
		}
	case KindMap:
		key := d.Key.resolveRaw(reg, resolver)
		elem := d.Elem.resolveRaw(reg, resolver)
		if key != nil && elem != nil {
			return reflect.MapOf(key, elem)
		}
	case KindChan:
		if elem := d.Elem.resolveRaw(reg, resolver); elem != nil {
			return reflect.ChanOf(reflect.BothDir, elem)
		}
	case KindFunc:
		in := make([]reflect.Type, 0, len(d.In))
		for _, p := range d.In {
			raw := p.resolveRaw(reg, resolver)
			if raw == nil {
				return nil
			}
			in = append(in, raw)
		}
		out := make([]reflect.Type, 0, len(d.Out))
		for _, p := range d.Out {
			raw := p.resolveRaw(reg, resolver)
			if raw == nil {
				return nil
			}
			out = append(out, raw)
		}
		return reflect.FuncOf(in, out, false)
	}
	return nil
}

// TypeRegistry 命名类型注册表，支撑描述符的往返还原
type TypeRegistry struct {
	mu    sync.RWMutex
	named map[string]reflect.Type
}

// NewTypeRegistry 创建注册表，内建基础类型已登记
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{named: make(map[string]reflect.Type)}
	for _, t := range builtinTypes {
		r.named[typeName(t)] = t
	}
	return r
}

// Register 登记一个命名类型
func (r *TypeRegistry) Register(typ reflect.Type) {
	if typ == nil {
		return
	}
	r.mu.Lock()
	r.named[typeName(typ)] = typ
	r.mu.Unlock()
}

// RegisterValue 登记值的动态类型
func (r *TypeRegistry) RegisterValue(v any) {
	r.Register(reflect.TypeOf(v))
}

// Lookup 按名称查找已登记类型；未登记返回 nil
func (r *TypeRegistry) Lookup(name string) reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.named[name]
}

var builtinTypes = []reflect.Type{
	reflect.TypeOf(""),
	reflect.TypeOf(0),
	reflect.TypeOf(int8(0)),
	reflect.TypeOf(int16(0)),
	reflect.TypeOf(int32(0)),
	reflect.TypeOf(int64(0)),
	reflect.TypeOf(uint(0)),
	reflect.TypeOf(uint8(0)),
	reflect.TypeOf(uint16(0)),
	reflect.TypeOf(uint32(0)),
	reflect.TypeOf(uint64(0)),
	reflect.TypeOf(float32(0)),
	reflect.TypeOf(float64(0)),
	reflect.TypeOf(false),
	reflect.TypeOf((*error)(nil)).Elem(),
	reflect.TypeOf((*any)(nil)).Elem(),
}

// typeName 返回类型的规范名称（含包路径）
func typeName(typ reflect.Type) string {
	if typ.PkgPath() != "" {
		return typ.PkgPath() + "." + typ.Name()
	}
	if typ.Name() != "" {
		return typ.Name()
	}
	return typ.String()
}

// defaultRegistry 进程级默认注册表，带显式 Reset 以便测试隔离
var (
	defaultRegistry   = NewTypeRegistry()
	defaultRegistryMu sync.Mutex
)

// DefaultRegistry 返回默认命名类型注册表
func DefaultRegistry() *TypeRegistry {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	return defaultRegistry
}

// ResetDefaultRegistry 重建默认注册表（测试隔离用）
func ResetDefaultRegistry() {
	defaultRegistryMu.Lock()
	defaultRegistry = NewTypeRegistry()
	defaultRegistryMu.Unlock()
}

// String 便于诊断输出
func (d *Descriptor) String() string {
	switch d.Kind {
	case KindNamed:
		return d.Name
	case KindPtr:
		return "*" + d.Elem.String()
	case KindSlice:
		return "[]" + d.Elem.String()
	case KindArray:
		return fmt.Sprintf("[%d]%s", d.Len, d.Elem.String())
	case KindMap:
		return fmt.Sprintf("map[%s]%s", d.Key.String(), d.Elem.String())
	case KindChan:
		return "chan " + d.Elem.String()
	case KindFunc:
		return "func"
	default:
		return "<none>"
	}
}
