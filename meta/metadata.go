package meta

import (
	"reflect"
	"sort"
	"sync"
)

// Annotated 类型通过实现此接口自带注解（"实时反射"路径）
// 与 Registry 的编程式登记（"静态元数据"路径）暴露同一查询面
type Annotated interface {
	Annotations() []Annotation
}

// TypeMetadata 类型结构元数据的统一查询面
type TypeMetadata interface {
	// Type 返回底层类型
	Type() reflect.Type
	// ClassName 返回规范类名（含包路径）
	ClassName() string
	// Annotations 返回全部类型级注解
	Annotations() []Annotation
	// HasAnnotation 判断注解是否存在（含元注解展开）
	HasAnnotation(atype string) bool
	// Get 取第一个指定类型的注解
	Get(atype string) (Annotation, bool)
	// GetAll 取全部指定类型的注解
	GetAll(atype string) []Annotation
	// MethodAnnotations 取全部指定类型的方法级注解
	MethodAnnotations(atype string) []Annotation
	// Methods 返回声明的方法名（确定性顺序）
	Methods() []string
	// EmbeddedTypes 返回内嵌类型（Go 的"父类链"）
	EmbeddedTypes() []reflect.Type
}

var annotatedType = reflect.TypeOf((*Annotated)(nil)).Elem()

// Registry 注解注册表：编程式登记 + 元注解展开缓存
type Registry struct {
	mu sync.RWMutex
	// annotations 按类型登记的注解
	annotations map[reflect.Type][]Annotation
	// stereotypes 构造型 -> 元注解类型集
	stereotypes map[string][]string
	// expansionCache 注解类型 -> 含自身的元注解闭包
	expansionCache map[string][]string
}

// NewRegistry 创建注册表，内建构造型已登记
func NewRegistry() *Registry {
	r := &Registry{
		annotations:    make(map[reflect.Type][]Annotation),
		stereotypes:    make(map[string][]string),
		expansionCache: make(map[string][]string),
	}
	// 内建构造型层级
	r.stereotypes[TypeService] = []string{TypeComponent}
	r.stereotypes[TypeRepository] = []string{TypeComponent}
	r.stereotypes[TypeController] = []string{TypeComponent}
	r.stereotypes[TypeConfiguration] = []string{TypeComponent}
	return r
}

// Register 为类型登记注解
func (r *Registry) Register(typ reflect.Type, anns ...Annotation) {
	if typ == nil {
		return
	}
	r.mu.Lock()
	r.annotations[typ] = append(r.annotations[typ], anns...)
	r.mu.Unlock()
}

// RegisterFor 泛型登记辅助
func RegisterFor[T any](r *Registry, anns ...Annotation) {
	r.Register(TypeOf[T](), anns...)
}

// RegisterStereotype 登记自定义构造型及其元注解类型
func (r *Registry) RegisterStereotype(atype string, metaTypes ...string) {
	r.mu.Lock()
	r.stereotypes[atype] = append(r.stereotypes[atype], metaTypes...)
	// 构造型变化使展开缓存失效
	r.expansionCache = make(map[string][]string)
	r.mu.Unlock()
}

// expand 返回注解类型的元注解闭包（含自身），结果缓存
func (r *Registry) expand(atype string) []string {
	r.mu.RLock()
	cached, ok := r.expansionCache[atype]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.expansionCache[atype]; ok {
		return cached
	}
	seen := map[string]bool{atype: true}
	queue := []string{atype}
	var closure []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		closure = append(closure, cur)
		for _, m := range r.stereotypes[cur] {
			if !seen[m] {
				seen[m] = true
				queue = append(queue, m)
			}
		}
	}
	r.expansionCache[atype] = closure
	return closure
}

// MetadataFor 生成类型的元数据视图
// 合并注册表登记与 Annotated 接口声明，二者可互换使用
func (r *Registry) MetadataFor(typ reflect.Type) TypeMetadata {
	var anns []Annotation

	r.mu.RLock()
	anns = append(anns, r.annotations[typ]...)
	if typ != nil {
		// 指针登记与值登记视为同一类
		if typ.Kind() == reflect.Ptr {
			anns = append(anns, r.annotations[typ.Elem()]...)
		} else {
			anns = append(anns, r.annotations[reflect.PointerTo(typ)]...)
		}
	}
	r.mu.RUnlock()

	if typ != nil {
		anns = append(anns, selfDeclared(typ)...)
	}

	return &typeMetadata{typ: typ, anns: anns, registry: r}
}

// MetadataForValue 从实例生成元数据视图
func (r *Registry) MetadataForValue(v any) TypeMetadata {
	return r.MetadataFor(reflect.TypeOf(v))
}

// selfDeclared 读取类型自带的 Annotations() 声明
func selfDeclared(typ reflect.Type) []Annotation {
	ptr := typ
	if ptr.Kind() != reflect.Ptr {
		ptr = reflect.PointerTo(ptr)
	}
	if !ptr.Implements(annotatedType) {
		return nil
	}
	// 实例化零值以调用声明方法
	inst := reflect.New(deref(typ)).Interface()
	if a, ok := inst.(Annotated); ok {
		return a.Annotations()
	}
	return nil
}

func deref(typ reflect.Type) reflect.Type {
	if typ.Kind() == reflect.Ptr {
		return typ.Elem()
	}
	return typ
}

type typeMetadata struct {
	typ      reflect.Type
	anns     []Annotation
	registry *Registry
}

func (m *typeMetadata) Type() reflect.Type {
	return m.typ
}

func (m *typeMetadata) ClassName() string {
	return ClassName(m.typ)
}

func (m *typeMetadata) Annotations() []Annotation {
	return m.anns
}

func (m *typeMetadata) HasAnnotation(atype string) bool {
	for _, a := range m.anns {
		if a.Method != "" {
			continue
		}
		for _, expanded := range m.registry.expand(a.Type) {
			if expanded == atype {
				return true
			}
		}
	}
	return false
}

func (m *typeMetadata) Get(atype string) (Annotation, bool) {
	for _, a := range m.anns {
		if a.Method == "" && a.Type == atype {
			return a, true
		}
	}
	return Annotation{}, false
}

func (m *typeMetadata) GetAll(atype string) []Annotation {
	var out []Annotation
	for _, a := range m.anns {
		if a.Method == "" && a.Type == atype {
			out = append(out, a)
		}
	}
	return out
}

func (m *typeMetadata) MethodAnnotations(atype string) []Annotation {
	var out []Annotation
	for _, a := range m.anns {
		if a.Method != "" && a.Type == atype {
			out = append(out, a)
		}
	}
	return out
}

// Methods 返回方法集的方法名
// Go 反射的方法顺序按名称排序，天然确定，无需字节码回退
func (m *typeMetadata) Methods() []string {
	if m.typ == nil {
		return nil
	}
	ptr := m.typ
	if ptr.Kind() != reflect.Ptr {
		ptr = reflect.PointerTo(ptr)
	}
	names := make([]string, 0, ptr.NumMethod())
	for i := 0; i < ptr.NumMethod(); i++ {
		names = append(names, ptr.Method(i).Name)
	}
	sort.Strings(names)
	return names
}

func (m *typeMetadata) EmbeddedTypes() []reflect.Type {
	st := deref(m.typ)
	if st == nil || st.Kind() != reflect.Struct {
		return nil
	}
	var out []reflect.Type
	for i := 0; i < st.NumField(); i++ {
		if st.Field(i).Anonymous {
			out = append(out, st.Field(i).Type)
		}
	}
	return out
}

// ClassName 返回类型的规范名称
func ClassName(typ reflect.Type) string {
	if typ == nil {
		return "<nil>"
	}
	if typ.Kind() == reflect.Ptr {
		return ClassName(typ.Elem())
	}
	if typ.PkgPath() != "" {
		return typ.PkgPath() + "." + typ.Name()
	}
	return typ.String()
}

// defaultRegistry 进程级默认注册表，带显式重置
var (
	defaultRegistry   = NewRegistry()
	defaultRegistryMu sync.Mutex
)

// Default 返回默认注册表
func Default() *Registry {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	return defaultRegistry
}

// ResetDefault 重建默认注册表（测试隔离用）
func ResetDefault() {
	defaultRegistryMu.Lock()
	defaultRegistry = NewRegistry()
	defaultRegistryMu.Unlock()
}
