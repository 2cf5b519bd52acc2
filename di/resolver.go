package di

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/gocrud/ioc/injection"
)

// resolutionContext 实例创建期间的解析上下文（根容器或作用域）。
type resolutionContext interface {
	injection.DependencyResolver
	Get(typ reflect.Type) (any, error)
	GetNamed(name string) (any, error)
}

var (
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
	containerType = reflect.TypeOf((*Container)(nil)).Elem()
)

type resolver struct {
	c *container
}

func newResolver(c *container) *resolver {
	return &resolver{c: c}
}

// createInstance 创建 def 描述的服务实例并走注入流水线。
func (r *resolver) createInstance(ctx resolutionContext, def *ServiceDefinition) (any, error) {
	inst, err := r.construct(ctx, def)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("di: bean '%s' constructed to nil", def.Name)
	}
	if def.SkipInjection {
		return inst, nil
	}
	if err := r.postProcess(ctx, inst, def); err != nil {
		return nil, err
	}
	return inst, nil
}

func (r *resolver) construct(ctx resolutionContext, def *ServiceDefinition) (any, error) {
	if def.IsValue {
		return def.Value, nil
	}
	if def.Factory != nil {
		return r.invokeFunction(ctx, def.Name, def.Factory)
	}
	if len(def.Constructors) > 0 {
		return r.constructFromCandidates(ctx, def)
	}
	return r.createStruct(def)
}

// constructFromCandidates 按裁决次序尝试构造函数候选。
// 非必需候选的依赖缺失向后退让，必需候选的失败直接上抛。
func (r *resolver) constructFromCandidates(ctx resolutionContext, def *ServiceDefinition) (any, error) {
	ctorType := def.ImplType
	if ctorType == nil {
		ctorType = def.Type
	}
	candidates, err := r.c.autowired.DetermineCandidateConstructors(ctorType, def.Constructors, nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return r.createStruct(def)
	}

	var lastErr error
	for _, cand := range candidates {
		inst, err := r.invokeFunction(ctx, def.Name, cand.Fn)
		if err == nil {
			return inst, nil
		}
		if cand.Required || !errors.Is(err, injection.ErrNoSuchBean) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// invokeFunction 调用工厂或构造函数，参数经容器解析。
func (r *resolver) invokeFunction(ctx resolutionContext, beanName string, fn any) (any, error) {
	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("di: factory of bean '%s' is %T, not a function", beanName, fn)
	}
	fnType := fnVal.Type()

	args := make([]reflect.Value, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		argType := fnType.In(i)
		// 容器自身可以作为参数出现
		if argType == containerType {
			args[i] = reflect.ValueOf(Container(r.c))
			continue
		}
		v, matched, err := ctx.ResolveDependency(injection.Descriptor{
			Type:     argType,
			Required: true,
			Point:    fmt.Sprintf("factory of bean '%s' arg %d", beanName, i),
		}, beanName)
		if err != nil {
			return nil, fmt.Errorf("di: factory of bean '%s' arg %d: %w", beanName, i, err)
		}
		if matched != "" {
			ctx.RegisterDependentBean(matched, beanName)
		}
		args[i] = reflect.ValueOf(v)
	}

	results := fnVal.Call(args)
	if len(results) == 0 {
		return nil, fmt.Errorf("di: factory of bean '%s' returns no value", beanName)
	}
	if last := results[len(results)-1]; len(results) > 1 && last.Type().Implements(errorType) {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}
	return results[0].Interface(), nil
}

// createStruct 反射实例化结构体，字段注入交给后续流水线。
func (r *resolver) createStruct(def *ServiceDefinition) (any, error) {
	implType := def.ImplType
	if implType == nil {
		implType = def.Type
	}
	if implType.Kind() == reflect.Ptr {
		return reflect.New(implType.Elem()).Interface(), nil
	}
	if implType.Kind() == reflect.Struct {
		return reflect.New(implType).Interface(), nil
	}
	return nil, fmt.Errorf("di: cannot instantiate bean '%s' of kind %v without a factory", def.Name, implType.Kind())
}

// postProcess 注入流水线：autowired 字段与方法、资源注入、
// 附加后处理器、初始化方法，按此次序。
func (r *resolver) postProcess(ctx resolutionContext, inst any, def *ServiceDefinition) error {
	if v := reflect.ValueOf(inst); v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		// 非结构体指针没有可注入面
		return r.initialize(inst, def)
	}

	if err := r.c.autowired.InjectInto(inst, def.Name, ctx); err != nil {
		return err
	}
	if err := r.c.resource.InjectInto(inst, def.Name, ctx); err != nil {
		return err
	}
	for _, pp := range r.c.postProcessors {
		if err := pp.PostProcess(inst, def.Name); err != nil {
			return fmt.Errorf("di: post-processing of bean '%s' failed: %w", def.Name, err)
		}
	}
	return r.initialize(inst, def)
}

func (r *resolver) initialize(inst any, def *ServiceDefinition) error {
	if def.InitMethod == "" {
		return nil
	}
	return invokeLifecycleMethod(inst, def.InitMethod, def.Name, "init")
}

// destroyInstance 调用销毁方法；未声明时回退 io.Closer。
func (r *resolver) destroyInstance(inst any, def *ServiceDefinition) error {
	if def.DestroyMethod != "" {
		return invokeLifecycleMethod(inst, def.DestroyMethod, def.Name, "destroy")
	}
	if closer, ok := inst.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func invokeLifecycleMethod(inst any, method, beanName, phase string) error {
	m := reflect.ValueOf(inst).MethodByName(method)
	if !m.IsValid() {
		return fmt.Errorf("di: %s method '%s' not found on bean '%s'", phase, method, beanName)
	}
	if m.Type().NumIn() != 0 {
		return fmt.Errorf("di: %s method '%s' of bean '%s' must take no arguments", phase, method, beanName)
	}
	results := m.Call(nil)
	if len(results) > 0 {
		if last := results[len(results)-1]; last.Type().Implements(errorType) && !last.IsNil() {
			return last.Interface().(error)
		}
	}
	return nil
}
