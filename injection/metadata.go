package injection

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNoSuchBean 容器中没有匹配的 Bean
var ErrNoSuchBean = errors.New("injection: no such bean")

// ErrAmbiguousBean 多个候选且无法裁决
var ErrAmbiguousBean = errors.New("injection: ambiguous bean candidates")

// Descriptor 依赖描述符：类型 + 必需性 + 注入点上下文
type Descriptor struct {
	// Type 需要的类型
	Type reflect.Type
	// Required 是否必需
	Required bool
	// Qualifier 按名称限定候选（可空）
	Qualifier string
	// BeanName 快路径绑定的 Bean 名；非空时跳过类型匹配搜索
	BeanName string
	// Point 注入点描述（字段/方法参数），用于诊断
	Point string
	// Declarer 注入点所在类型
	Declarer reflect.Type
}

// DependencyResolver 依赖解析协作者（由容器实现）
type DependencyResolver interface {
	// ResolveDependency 解析一个依赖，返回实例与命中的 Bean 名
	// 无候选返回 ErrNoSuchBean，多候选无首选返回 ErrAmbiguousBean
	ResolveDependency(d Descriptor, requestingBean string) (any, string, error)
	// RegisterDependentBean 登记依赖关系，供销毁顺序计算
	RegisterDependentBean(beanName string, dependentBean string)
}

// UnsatisfiedDependencyError 必需依赖未满足
// 携带出错的 Bean 名与注入点，向上抛给该 Bean 的创建调用方
type UnsatisfiedDependencyError struct {
	BeanName string
	Point    string
	Err      error
}

func (e *UnsatisfiedDependencyError) Error() string {
	return fmt.Sprintf("injection: unsatisfied dependency of bean '%s' at %s: %v", e.BeanName, e.Point, e.Err)
}

func (e *UnsatisfiedDependencyError) Unwrap() error {
	return e.Err
}

// Element 一个可注入元素（字段或方法）
type Element interface {
	// Point 返回注入点描述
	Point() string
	// Inject 向目标实例注入解析值
	Inject(target reflect.Value, beanName string, resolver DependencyResolver) error
}

// Metadata 一个目标类型的注入元素集合
// 顺序约定：内嵌（父类）元素在前，本类型元素在后；字段先于方法
type Metadata struct {
	targetType reflect.Type
	elements   []Element
}

// NewMetadata 创建注入元数据
func NewMetadata(targetType reflect.Type, elements []Element) *Metadata {
	return &Metadata{targetType: targetType, elements: elements}
}

// NeedsRefresh 判断元数据是否因类型身份变化而过期
// 比较的是类型对象身份，不只是名称
func (m *Metadata) NeedsRefresh(typ reflect.Type) bool {
	return m == nil || m.targetType != typ
}

// Elements 返回元素列表
func (m *Metadata) Elements() []Element {
	if m == nil {
		return nil
	}
	return m.elements
}

// Inject 对目标实例执行全部元素的注入
func (m *Metadata) Inject(target any, beanName string, resolver DependencyResolver) error {
	if m == nil || len(m.elements) == 0 {
		return nil
	}
	val := reflect.ValueOf(target)
	for _, el := range m.elements {
		if err := el.Inject(val, beanName, resolver); err != nil {
			return err
		}
	}
	return nil
}

// MetadataCache 按 Bean 名（或类名）缓存注入元数据
// 类型身份校验 + 定向失效，重建走 OnceCache 的双重检查路径
type MetadataCache struct {
	cache *OnceCache[string, *Metadata]
}

// NewMetadataCache 创建缓存
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{cache: NewOnceCache[string, *Metadata]()}
}

// Get 取元数据；类型身份不匹配触发重建
func (c *MetadataCache) Get(cacheKey string, typ reflect.Type, build func() *Metadata) *Metadata {
	return c.cache.Get(cacheKey,
		func(m *Metadata) bool { return !m.NeedsRefresh(typ) },
		build)
}

// Invalidate 定向失效（Bean 定义重置时）
func (c *MetadataCache) Invalidate(cacheKey string) {
	c.cache.Invalidate(cacheKey)
}

// Clear 整体清空
func (c *MetadataCache) Clear() {
	c.cache.Clear()
}
