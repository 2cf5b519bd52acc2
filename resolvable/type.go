package resolvable

import (
	"reflect"
)

// Type 封装一个可导航的类型签名（类似 Java 泛型元数据的 Go 对应物）
// 不可变值：所有导航操作返回新的 Type，原值不受影响
//
// Go 的"泛型参数"映射规则：
//   - map[K]V     -> [K, V]
//   - []T / [N]T  -> [T]
//   - chan T      -> [T]
//   - *T          -> [T]
//   - func(...)(...) -> [入参..., 出参...]
type Type struct {
	typ      reflect.Type
	provider Provider
	resolver VariableResolver
	// component 数组分量类型的显式覆盖（用于描述符还原的数组场景）
	component *Type
}

// None 哨兵值，表示"无类型可用"
// 所有派生操作在 None 上都返回 None 或零值，绝不 panic
var None = &Type{}

// IsNone 判断是否为 None 哨兵
func (t *Type) IsNone() bool {
	return t == nil || t.typ == nil
}

// Resolve 坍缩为原始 reflect.Type；None 返回 nil
func (t *Type) Resolve() reflect.Type {
	if t.IsNone() {
		return nil
	}
	return t.typ
}

// ResolveOr 坍缩为原始类型，不可解析时返回 fallback
func (t *Type) ResolveOr(fallback reflect.Type) reflect.Type {
	if t.IsNone() {
		return fallback
	}
	return t.typ
}

// Provider 返回类型的来源（字段或函数参数），可能为 nil
func (t *Type) Provider() Provider {
	if t == nil {
		return nil
	}
	return t.provider
}

// derive 以相同的 resolver 派生出子类型
func (t *Type) derive(raw reflect.Type) *Type {
	if raw == nil {
		return None
	}
	return &Type{typ: raw, resolver: t.resolver}
}

// Generics 返回全部泛型槽位
func (t *Type) Generics() []*Type {
	if t.IsNone() {
		return nil
	}
	raws := genericSlots(t.typ)
	out := make([]*Type, len(raws))
	for i, r := range raws {
		out[i] = t.derive(r)
	}
	return out
}

// Generic 按位置索引路径导航嵌套泛型参数
// 例如对 map[int][]string：Generic(1, 0) 得到 string
// 越界索引返回 None，绝不 panic
func (t *Type) Generic(indexes ...int) *Type {
	cur := t
	if len(indexes) == 0 {
		indexes = []int{0}
	}
	for _, idx := range indexes {
		if cur.IsNone() {
			return None
		}
		slots := genericSlots(cur.typ)
		if idx < 0 || idx >= len(slots) {
			return None
		}
		cur = cur.derive(slots[idx])
	}
	return cur
}

// Nested 逐层深入嵌套泛型/数组层级
// indexes 指定每一层下降到哪个槽位；缺省取最后一个槽位（如 map 的值）
func (t *Type) Nested(level int, indexes map[int]int) *Type {
	cur := t
	for i := 2; i <= level; i++ {
		if cur.IsNone() {
			return None
		}
		slots := genericSlots(cur.typ)
		if len(slots) == 0 {
			return None
		}
		idx, ok := indexes[i]
		if !ok {
			idx = len(slots) - 1
		}
		if idx < 0 || idx >= len(slots) {
			return None
		}
		cur = cur.derive(slots[idx])
	}
	return cur
}

// As 将此类型重新解释为祖先类型
// 接口实现优先于内嵌链（接口上的参数化往往比裸声明更具体）
func (t *Type) As(target reflect.Type) *Type {
	if t.IsNone() || target == nil {
		return None
	}
	if t.typ == target {
		return t
	}
	// 1. 接口优先
	if target.Kind() == reflect.Interface && t.typ.Implements(target) {
		return t.derive(target)
	}
	// 2. 沿内嵌链上溯
	for _, sup := range t.Supers() {
		if res := sup.As(target); !res.IsNone() {
			return res
		}
	}
	return None
}

// Supers 返回内嵌（匿名字段）类型，即 Go 的"父类链"
func (t *Type) Supers() []*Type {
	if t.IsNone() {
		return nil
	}
	st := t.typ
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil
	}
	var out []*Type
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous {
			out = append(out, t.derive(f.Type))
		}
	}
	return out
}

// AssignableFrom 近似赋值兼容性判断
// 覆盖：原始类型兼容、数组/切片分量协变递归、泛型槽位精确匹配递归
func (t *Type) AssignableFrom(other *Type) bool {
	return t.assignableFrom(other, nil)
}

type matchPair struct {
	a, b reflect.Type
}

func (t *Type) assignableFrom(other *Type, matchedBefore map[matchPair]bool) bool {
	// None 可赋值给 None，其余一概不行
	if t.IsNone() || other.IsNone() {
		return t.IsNone() && other.IsNone()
	}
	pair := matchPair{t.typ, other.typ}
	if matchedBefore[pair] {
		// 自引用类型：已在匹配路径上，视为匹配以终止递归
		return true
	}
	if t.typ == other.typ {
		return true
	}
	// 接口目标：走 Go 自身的实现关系
	if t.typ.Kind() == reflect.Interface {
		return other.typ.Implements(t.typ)
	}
	// 数组/切片协变：递归比较分量
	if isElemKind(t.typ.Kind()) && t.typ.Kind() == other.typ.Kind() {
		if t.typ.Kind() == reflect.Array && t.typ.Len() != other.typ.Len() {
			return false
		}
		if matchedBefore == nil {
			matchedBefore = make(map[matchPair]bool)
		}
		matchedBefore[pair] = true
		return t.Generic(0).assignableFrom(other.Generic(0), matchedBefore)
	}
	// map：参数化槽位要求精确匹配（map[string]io.Reader 不接受 map[string]*os.File）
	if t.typ.Kind() == reflect.Map && other.typ.Kind() == reflect.Map {
		return t.typ.Key() == other.typ.Key() && t.typ.Elem() == other.typ.Elem()
	}
	// 其余情况交给 reflect 的可赋值规则
	return other.typ.AssignableTo(t.typ)
}

// Equal 比较底层类型加来源身份（非包装器身份）
// 经不同反射路径到达的同一签名必须相等，以支持安全缓存
func (t *Type) Equal(other *Type) bool {
	if t.IsNone() || other.IsNone() {
		return t.IsNone() && other.IsNone()
	}
	if t.typ != other.typ {
		return false
	}
	return providerSource(t.provider) == providerSource(other.provider) &&
		resolverSource(t.resolver) == resolverSource(other.resolver)
}

// String 返回类型签名的字符串表示
func (t *Type) String() string {
	if t.IsNone() {
		return "<none>"
	}
	return t.typ.String()
}

// genericSlots 返回类型的泛型槽位（原始 reflect.Type 形式）
func genericSlots(typ reflect.Type) []reflect.Type {
	switch typ.Kind() {
	case reflect.Map:
		return []reflect.Type{typ.Key(), typ.Elem()}
	case reflect.Slice, reflect.Array, reflect.Chan, reflect.Ptr:
		return []reflect.Type{typ.Elem()}
	case reflect.Func:
		out := make([]reflect.Type, 0, typ.NumIn()+typ.NumOut())
		for i := 0; i < typ.NumIn(); i++ {
			out = append(out, typ.In(i))
		}
		for i := 0; i < typ.NumOut(); i++ {
			out = append(out, typ.Out(i))
		}
		return out
	}
	return nil
}

func isElemKind(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array || k == reflect.Chan || k == reflect.Ptr
}
