package di

import (
	"fmt"
	"reflect"
	"strings"
)

// graphBuilder 依赖图的构建与循环校验。
type graphBuilder struct {
	definitions map[string]*ServiceDefinition
	ordered     []string
	typeIndex   map[reflect.Type][]string
}

func newGraphBuilder(defs map[string]*ServiceDefinition, ordered []string, typeIndex map[reflect.Type][]string) *graphBuilder {
	return &graphBuilder{definitions: defs, ordered: ordered, typeIndex: typeIndex}
}

// buildOrder 返回单例的急切构建顺序并校验循环。
func (g *graphBuilder) buildOrder() ([]string, error) {
	dependencies := make(map[string][]string)
	for _, name := range g.ordered {
		def := g.definitions[name]
		deps, err := g.inspectDependencies(def)
		if err != nil {
			return nil, fmt.Errorf("di: failed to inspect dependencies of bean '%s': %w", name, err)
		}
		dependencies[name] = deps
	}

	// DFS 拓扑排序；注册顺序起步保证确定性
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var order []string
	var stack []string

	var visit func(string) error
	visit = func(u string) error {
		visited[u] = true
		onStack[u] = true
		stack = append(stack, u)

		for _, v := range dependencies[u] {
			if _, exists := g.definitions[v]; !exists {
				// 未注册的依赖留给运行时解析报错
				continue
			}
			if !visited[v] {
				if err := visit(v); err != nil {
					return err
				}
			} else if onStack[v] {
				return fmt.Errorf("di: circular dependency: %s -> %s", strings.Join(stack, " -> "), v)
			}
		}

		onStack[u] = false
		stack = stack[:len(stack)-1]
		order = append(order, u)
		return nil
	}

	for _, name := range g.ordered {
		if !visited[name] {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// inspectDependencies 提取一个定义的依赖 Bean 名并填充 Schema。
func (g *graphBuilder) inspectDependencies(def *ServiceDefinition) ([]string, error) {
	def.Schema = &InjectionSchema{}
	deps := append([]string(nil), def.DependsOn...)

	if def.IsValue {
		return deps, nil
	}

	if def.Factory != nil {
		argDeps, err := g.analyzeFunction(def.Factory, def.Schema)
		if err != nil {
			return nil, err
		}
		return append(deps, argDeps...), nil
	}

	for _, cand := range def.Constructors {
		argDeps, err := g.analyzeFunction(cand.Fn, def.Schema)
		if err != nil {
			return nil, err
		}
		deps = append(deps, argDeps...)
	}

	implType := def.ImplType
	if implType == nil {
		implType = def.Type
	}
	return append(deps, g.analyzeStruct(implType, def.Schema)...), nil
}

func (g *graphBuilder) analyzeFunction(fn any, schema *InjectionSchema) ([]string, error) {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("expected a function, got %v", fnType)
	}

	var deps []string
	for i := 0; i < fnType.NumIn(); i++ {
		argType := fnType.In(i)
		if argType == containerType {
			continue
		}
		schema.Args = append(schema.Args, DependencyRef{Type: argType})
		if name, ok := g.uniqueCandidate(argType); ok {
			deps = append(deps, name)
		}
	}
	return deps, nil
}

// analyzeStruct 走 autowired 标签（与运行时注入同一套约定）。
func (g *graphBuilder) analyzeStruct(typ reflect.Type, schema *InjectionSchema) []string {
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil
	}

	var deps []string
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			deps = append(deps, g.analyzeStruct(field.Type, schema)...)
			continue
		}
		tag, ok := field.Tag.Lookup("autowired")
		if !ok {
			continue
		}
		name, optional := parseGraphTag(tag)
		schema.Fields = append(schema.Fields, DependencyRef{
			Type:     field.Type,
			Name:     name,
			Optional: optional,
		})
		if optional {
			continue
		}
		if name != "" {
			deps = append(deps, name)
		} else if cand, ok := g.uniqueCandidate(field.Type); ok {
			deps = append(deps, cand)
		}
	}
	return deps
}

// uniqueCandidate 类型的唯一候选；多候选或无候选不进图。
func (g *graphBuilder) uniqueCandidate(typ reflect.Type) (string, bool) {
	if names, ok := g.typeIndex[typ]; ok && len(names) == 1 {
		return names[0], true
	}
	var found []string
	for _, name := range g.ordered {
		def := g.definitions[name]
		if def.Type != typ && def.Type.AssignableTo(typ) {
			found = append(found, name)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return "", false
}

func parseGraphTag(tag string) (name string, optional bool) {
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	if name == "?" || name == "optional" {
		name = ""
		optional = true
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "optional" || part == "?" {
			optional = true
		}
	}
	return name, optional
}
