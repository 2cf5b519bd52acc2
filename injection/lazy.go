package injection

import "sync"

// Lazy 延迟解析持有器
// 注入时不做任何查找，首次 Get 才触发解析并缓存结果：
// 以推迟失败发现换取零前期解析成本（动态代理的 Go 对应物）
type Lazy[T any] struct {
	once    sync.Once
	resolve func() (any, error)
	val     T
	err     error
}

// Get 首次调用触发解析，之后返回缓存结果
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		if l.resolve == nil {
			return
		}
		v, err := l.resolve()
		if err != nil {
			l.err = err
			return
		}
		if typed, ok := v.(T); ok {
			l.val = typed
			return
		}
		l.err = &UnsatisfiedDependencyError{Point: "lazy resource", Err: ErrNoSuchBean}
	})
	return l.val, l.err
}

// MustGet 解析失败时 panic
func (l *Lazy[T]) MustGet() T {
	v, err := l.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// lazyBinder 供注入器反射创建后绑定解析闭包
type lazyBinder interface {
	bind(resolve func() (any, error))
}

func (l *Lazy[T]) bind(resolve func() (any, error)) {
	l.resolve = resolve
}

// NewLazy 手工构造（测试与注册器场景）
func NewLazy[T any](resolve func() (any, error)) *Lazy[T] {
	return &Lazy[T]{resolve: resolve}
}
