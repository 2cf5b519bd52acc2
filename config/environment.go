package config

import (
	"fmt"
	"sync"
)

// compositeSource 同名属性源的合并体
// 成员按声明顺序加载，后声明者覆盖先声明者
type compositeSource struct {
	name    string
	members []ConfigurationSource
}

func (c *compositeSource) Name() string {
	return fmt.Sprintf("Composite(%s)", c.name)
}

func (c *compositeSource) Load() (map[string]any, error) {
	data, err := loadAll(c.members)
	if err != nil {
		return nil, fmt.Errorf("composite %s: %w", c.name, err)
	}
	return data, nil
}

// PropertySources 命名属性源注册表
// 重复名称并入同名合并体；注册表整体按首次声明顺序加载
type PropertySources struct {
	mu     sync.Mutex
	order  []string
	byName map[string]*compositeSource
}

func NewPropertySources() *PropertySources {
	return &PropertySources{byName: make(map[string]*compositeSource)}
}

// Add 注册属性源；同名并入既有合并体
func (ps *PropertySources) Add(name string, src ConfigurationSource) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if existing, ok := ps.byName[name]; ok {
		existing.members = append(existing.members, src)
		return
	}
	ps.byName[name] = &compositeSource{name: name, members: []ConfigurationSource{src}}
	ps.order = append(ps.order, name)
}

// Names 首次声明顺序的全部名称
func (ps *PropertySources) Names() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]string, len(ps.order))
	copy(out, ps.order)
	return out
}

// Contains 判断名称是否已注册
func (ps *PropertySources) Contains(name string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	_, ok := ps.byName[name]
	return ok
}

// load 按声明顺序合并全部源，后声明者优先
func (ps *PropertySources) load() (map[string]any, error) {
	ps.mu.Lock()
	sources := make([]ConfigurationSource, len(ps.order))
	for i, name := range ps.order {
		sources[i] = ps.byName[name]
	}
	ps.mu.Unlock()

	return loadAll(sources)
}

// Environment 可重载的配置环境
// 属性源集合加一份原子快照；读路径无锁
type Environment struct {
	sources *PropertySources
	store   *ValueStore

	mu       sync.Mutex
	onReload []func()
}

// NewEnvironment 创建空环境
func NewEnvironment() *Environment {
	return &Environment{
		sources: NewPropertySources(),
		store:   NewValueStore(),
	}
}

// NewEnvironmentFrom 从既有构建器的配置数据创建环境（名称 "default"）
func NewEnvironmentFrom(b *ConfigurationBuilder) (*Environment, error) {
	env := NewEnvironment()
	b.mu.RLock()
	for _, src := range b.sources {
		env.sources.Add("default", src)
	}
	b.mu.RUnlock()
	if err := env.Refresh(); err != nil {
		return nil, err
	}
	return env, nil
}

// AddSource 注册属性源并立即重载
func (e *Environment) AddSource(name string, src ConfigurationSource) error {
	e.sources.Add(name, src)
	return e.Refresh()
}

// Sources 属性源注册表
func (e *Environment) Sources() *PropertySources {
	return e.sources
}

// Refresh 重新加载全部源并替换快照，随后触发重载回调
func (e *Environment) Refresh() error {
	data, err := e.sources.load()
	if err != nil {
		return err
	}
	e.store.Store(data)

	e.mu.Lock()
	callbacks := append([]func(){}, e.onReload...)
	e.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// OnReload 注册快照替换后的回调
func (e *Environment) OnReload(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReload = append(e.onReload, fn)
}

// snapshot 当前快照的只读视图
func (e *Environment) snapshot() Values {
	data := e.store.Load()
	if data == nil {
		return Values{}
	}
	return Values(data)
}

// Get 获取配置值
func (e *Environment) Get(key string) string {
	return e.snapshot().Get(key)
}

// GetWithDefault 获取配置值，不存在时返回默认值
func (e *Environment) GetWithDefault(key, defaultValue string) string {
	return e.snapshot().GetWithDefault(key, defaultValue)
}

// GetInt 获取整数配置值
func (e *Environment) GetInt(key string) (int, error) {
	return e.snapshot().GetInt(key)
}

// GetBool 获取布尔配置值
func (e *Environment) GetBool(key string) (bool, error) {
	return e.snapshot().GetBool(key)
}

// GetSection 获取配置节
func (e *Environment) GetSection(key string) Configuration {
	return e.snapshot().GetSection(key)
}

// Bind 绑定配置到结构体
func (e *Environment) Bind(key string, target any) error {
	return e.snapshot().Bind(key, target)
}

// GetAll 获取当前快照的副本
func (e *Environment) GetAll() map[string]any {
	return e.snapshot().GetAll()
}

// Has 判断键是否存在且非空
func (e *Environment) Has(key string) bool {
	return e.snapshot().lookup(key) != nil
}

var _ Configuration = (*Environment)(nil)
