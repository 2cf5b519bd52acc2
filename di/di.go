package di

import (
	"fmt"
	"reflect"
)

func typeFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// serviceType 结构体类型一律按指针注册，Bean 是引用语义
func serviceType[T any]() reflect.Type {
	typ := typeFor[T]()
	if typ.Kind() == reflect.Struct {
		return reflect.PtrTo(typ)
	}
	return typ
}

// Register registers a service of type T with the container.
// Struct types are registered as pointers. If T is an interface, use
// di.Use[Impl]() to specify the implementation.
func Register[T any](c Container, opts ...Option) {
	typ := serviceType[T]()

	def := &ServiceDefinition{
		Type:     typ,
		Scope:    ScopeSingleton,
		ImplType: typ,
	}
	for _, opt := range opts {
		opt(def)
	}

	if err := c.Add(def); err != nil {
		panic(fmt.Sprintf("di: failed to register %v: %v", typ, err))
	}
}

// RegisterInstance registers a pre-built instance as a named singleton.
func RegisterInstance(c Container, name string, instance any, opts ...Option) error {
	if instance == nil {
		return fmt.Errorf("di: cannot register a nil instance as '%s'", name)
	}
	def := &ServiceDefinition{
		Name:    name,
		Type:    reflect.TypeOf(instance),
		Scope:   ScopeSingleton,
		Value:   instance,
		IsValue: true,
	}
	for _, opt := range opts {
		opt(def)
	}
	return c.Add(def)
}

// RegisterFactory registers a factory function; the service type is its
// first return value.
func RegisterFactory(c Container, fn any, opts ...Option) error {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return fmt.Errorf("di: factory must be a function, got %T", fn)
	}
	if fnType.NumOut() == 0 {
		return fmt.Errorf("di: factory function must return at least one value")
	}
	def := &ServiceDefinition{
		Type:    fnType.Out(0),
		Scope:   ScopeSingleton,
		Factory: fn,
	}
	for _, opt := range opts {
		opt(def)
	}
	return c.Add(def)
}

// Resolve resolves an instance of type T from the container or scope.
func Resolve[T any](c Container) (T, error) {
	var zero T
	val, err := c.Get(serviceType[T]())
	if err != nil {
		return zero, err
	}
	return assertResolved[T](val)
}

// ResolveNamed resolves the named instance and asserts it to T.
func ResolveNamed[T any](c Container, name string) (T, error) {
	var zero T
	val, err := c.GetNamed(name)
	if err != nil {
		return zero, err
	}
	return assertResolved[T](val)
}

// ResolveScoped resolves an instance of type T from a scope.
func ResolveScoped[T any](s Scope) (T, error) {
	var zero T
	val, err := s.Get(serviceType[T]())
	if err != nil {
		return zero, err
	}
	return assertResolved[T](val)
}

func assertResolved[T any](val any) (T, error) {
	var zero T
	if val == nil {
		return zero, nil
	}
	if v, ok := val.(T); ok {
		return v, nil
	}
	// 结构体按指针注册：允许 T 为值类型时解引用
	if pv, ok := val.(*T); ok {
		return *pv, nil
	}
	return zero, fmt.Errorf("di: resolved value is %T, expected %v", val, typeFor[T]())
}
