package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gocrud/ioc/injection"
)

// Scope 表示作用域生命周期上下文。
// 单例委托根容器，作用域实例在本作用域内双重检查创建。
type Scope interface {
	injection.DependencyResolver

	// Get 按类型检索实例。
	Get(typ reflect.Type) (any, error)

	// GetNamed 按 Bean 名检索实例。
	GetNamed(name string) (any, error)

	// Dispose 销毁作用域实例并释放引用。
	Dispose()
}

type scopeEntry struct {
	val atomic.Value
	mu  sync.Mutex
}

type scope struct {
	parent *container
	// entries 按 ServiceDefinition.ID 索引，指针稳定
	entries []scopeEntry
}

func newScope(parent *container) *scope {
	return &scope{
		parent:  parent,
		entries: make([]scopeEntry, parent.serviceCount()),
	}
}

func (s *scope) Get(typ reflect.Type) (any, error) {
	name, err := s.parent.electCandidate(typ)
	if err != nil {
		return nil, err
	}
	return s.GetNamed(name)
}

func (s *scope) GetNamed(name string) (any, error) {
	if !s.parent.built.Load() {
		return nil, fmt.Errorf("di: container is not built")
	}
	def, ok := s.parent.definitions[name]
	if !ok {
		return nil, fmt.Errorf("di: no bean named '%s': %w", name, injection.ErrNoSuchBean)
	}

	switch def.Scope {
	case ScopeSingleton:
		return s.parent.GetNamed(name)

	case ScopeTransient:
		// 以本作用域为解析上下文，瞬态实例的依赖优先命中作用域实例
		return s.parent.resolver.createInstance(s, def)

	case ScopeScoped:
		if def.ID < 0 || def.ID >= len(s.entries) {
			return nil, fmt.Errorf("di: invalid service ID %d for bean '%s'", def.ID, name)
		}
		entry := &s.entries[def.ID]

		if val := entry.val.Load(); val != nil {
			return val, nil
		}

		entry.mu.Lock()
		defer entry.mu.Unlock()
		if val := entry.val.Load(); val != nil {
			return val, nil
		}

		instance, err := s.parent.resolver.createInstance(s, def)
		if err != nil {
			return nil, err
		}
		entry.val.Store(instance)
		return instance, nil
	}
	return nil, fmt.Errorf("di: unknown scope %v", def.Scope)
}

// ResolveDependency 与根容器同一套路线，但实例检索经过本作用域。
func (s *scope) ResolveDependency(d injection.Descriptor, requestingBean string) (any, string, error) {
	if d.BeanName != "" {
		return s.resolveNamed(d.BeanName, d.Type)
	}
	if d.Qualifier != "" {
		return s.resolveNamed(d.Qualifier, d.Type)
	}
	name, err := s.parent.electCandidate(d.Type)
	if err != nil {
		return nil, "", err
	}
	v, err := s.GetNamed(name)
	if err != nil {
		return nil, "", err
	}
	return v, name, nil
}

func (s *scope) resolveNamed(name string, typ reflect.Type) (any, string, error) {
	v, err := s.GetNamed(name)
	if err != nil {
		return nil, "", err
	}
	if typ != nil && !reflect.TypeOf(v).AssignableTo(typ) {
		return nil, "", fmt.Errorf("di: bean '%s' is %T, not assignable to %v: %w",
			name, v, typ, injection.ErrNoSuchBean)
	}
	return v, name, nil
}

// RegisterDependentBean 作用域实例的依赖关系同样汇入根容器。
func (s *scope) RegisterDependentBean(beanName string, dependentBean string) {
	s.parent.RegisterDependentBean(beanName, dependentBean)
}

// Dispose 调用作用域实例的销毁方法并清空槽位。
func (s *scope) Dispose() {
	for _, name := range s.parent.ordered {
		def := s.parent.definitions[name]
		if def.Scope != ScopeScoped || def.ID < 0 || def.ID >= len(s.entries) {
			continue
		}
		if val := s.entries[def.ID].val.Load(); val != nil {
			_ = s.parent.resolver.destroyInstance(val, def)
		}
	}
	s.entries = nil
}
