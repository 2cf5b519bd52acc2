package beans

import (
	"reflect"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/meta"
	"github.com/gocrud/ioc/scan"
)

// ConditionPhase 条件求值的时机
type ConditionPhase int

const (
	// PhaseParseConfiguration 解析配置类时求值
	PhaseParseConfiguration ConditionPhase = iota
	// PhaseRegisterBean 物化 Bean 定义时求值
	PhaseRegisterBean
)

// DefinitionRegistry 条件可见的 Bean 定义查询面
type DefinitionRegistry interface {
	Contains(name string) bool
	ContainsType(typ reflect.Type) bool
}

// ConditionContext 条件求值的环境视图
type ConditionContext struct {
	// Environment 当前配置环境，可能为 nil
	Environment *config.Environment
	// Registry 已注册定义的查询面，可能为 nil
	Registry DefinitionRegistry
}

// Condition 注册门控条件
type Condition interface {
	Matches(ctx ConditionContext) bool
}

// ConfigurationCondition 声明了求值时机的条件
type ConfigurationCondition interface {
	Condition
	Phase() ConditionPhase
}

// ConditionEvaluator 按阶段求值 Conditional 注解
type ConditionEvaluator struct {
	ctx ConditionContext
}

// NewConditionEvaluator 创建条件求值器
func NewConditionEvaluator(env *config.Environment, registry DefinitionRegistry) *ConditionEvaluator {
	return &ConditionEvaluator{ctx: ConditionContext{Environment: env, Registry: registry}}
}

// ShouldSkip 判断携带该元数据的类/方法在给定阶段是否应跳过
// 未声明时机的条件在任何阶段都参与求值
func (e *ConditionEvaluator) ShouldSkip(md meta.TypeMetadata, phase ConditionPhase) bool {
	if md == nil {
		return false
	}
	for _, ann := range md.GetAll(meta.TypeConditional) {
		if e.shouldSkipAnnotation(ann, phase) {
			return true
		}
	}
	return false
}

// ShouldSkipMethod 对方法级 Conditional 注解做同样的判断
func (e *ConditionEvaluator) ShouldSkipMethod(md meta.TypeMetadata, method string, phase ConditionPhase) bool {
	if md == nil {
		return false
	}
	for _, ann := range md.MethodAnnotations(meta.TypeConditional) {
		if ann.Method != method {
			continue
		}
		if e.shouldSkipAnnotation(ann, phase) {
			return true
		}
	}
	return false
}

func (e *ConditionEvaluator) shouldSkipAnnotation(ann meta.Annotation, phase ConditionPhase) bool {
	for _, raw := range ann.Values("conditions") {
		cond, ok := raw.(Condition)
		if !ok {
			continue
		}
		if cc, ok := cond.(ConfigurationCondition); ok && cc.Phase() != phase {
			continue
		}
		if !cond.Matches(e.ctx) {
			return true
		}
	}
	return false
}

// OnProperty 配置属性存在（且等于期望值）时匹配
type OnProperty struct {
	// Key 属性键
	Key string
	// HavingValue 非空时要求属性等于该值
	HavingValue string
	// MatchIfMissing 属性缺失时视为匹配
	MatchIfMissing bool
}

func (c OnProperty) Matches(ctx ConditionContext) bool {
	if ctx.Environment == nil {
		return c.MatchIfMissing
	}
	if !ctx.Environment.Has(c.Key) {
		return c.MatchIfMissing
	}
	if c.HavingValue == "" {
		return true
	}
	return ctx.Environment.Get(c.Key) == c.HavingValue
}

// OnMissingBean 指定名称或类型的 Bean 不存在时匹配
// 物化阶段求值，解析阶段注册表尚不完整
type OnMissingBean struct {
	Name string
	Type reflect.Type
}

func (c OnMissingBean) Matches(ctx ConditionContext) bool {
	return !beanPresent(ctx, c.Name, c.Type)
}

func (c OnMissingBean) Phase() ConditionPhase {
	return PhaseRegisterBean
}

// OnBean 指定名称或类型的 Bean 存在时匹配
type OnBean struct {
	Name string
	Type reflect.Type
}

func (c OnBean) Matches(ctx ConditionContext) bool {
	return beanPresent(ctx, c.Name, c.Type)
}

func (c OnBean) Phase() ConditionPhase {
	return PhaseRegisterBean
}

func beanPresent(ctx ConditionContext, name string, typ reflect.Type) bool {
	if ctx.Registry == nil {
		return false
	}
	if name != "" && ctx.Registry.Contains(name) {
		return true
	}
	if typ != nil && ctx.Registry.ContainsType(typ) {
		return true
	}
	return false
}

// OnCatalog 命名组件目录存在且非空时匹配
type OnCatalog struct {
	Name string
}

func (c OnCatalog) Matches(ctx ConditionContext) bool {
	catalog, ok := scan.Lookup(c.Name)
	return ok && len(catalog.Components()) > 0
}
