package beans

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/di"
	"github.com/gocrud/ioc/logging"
	"github.com/gocrud/ioc/meta"
	"github.com/gocrud/ioc/scan"
)

// Candidate 一个待解析的显式配置类候选
type Candidate struct {
	// Name 显式 Bean 名，可空
	Name string
	// Type 候选类型
	Type reflect.Type
}

// CandidateOf 从原型实例构造候选
func CandidateOf(prototype any, name string) Candidate {
	return Candidate{Name: name, Type: reflect.TypeOf(prototype)}
}

// Parser 配置类解析器
// 单线程使用，跑在应用引导期
type Parser struct {
	registry       *meta.Registry
	environment    *config.Environment
	logger         logging.Logger
	reporter       ProblemReporter
	evaluator      *ConditionEvaluator
	resourceLoader ResourceLoader

	// classes 类名 -> 配置类，处理完成后登记
	classes map[string]*ConfigurationClass
	// order 登记顺序的类名
	order []string
	// knownSuperclasses 已处理的嵌入类型 -> 首个认领的配置类名
	knownSuperclasses map[string]string

	stack    *importStack
	deferred *deferredHandler
}

// ParserOption 解析器选项
type ParserOption func(*Parser)

// WithMetaRegistry 指定注解注册表
func WithMetaRegistry(r *meta.Registry) ParserOption {
	return func(p *Parser) { p.registry = r }
}

// WithReporter 指定问题汇报器
func WithReporter(r ProblemReporter) ParserOption {
	return func(p *Parser) { p.reporter = r }
}

// WithParserLogger 指定日志器
func WithParserLogger(l logging.Logger) ParserOption {
	return func(p *Parser) { p.logger = l }
}

// WithDefinitionRegistry 指定条件可见的定义注册表
func WithDefinitionRegistry(reg DefinitionRegistry) ParserOption {
	return func(p *Parser) { p.evaluator = NewConditionEvaluator(p.environment, reg) }
}

// WithResourceLoader 指定资源加载器
func WithResourceLoader(l ResourceLoader) ParserOption {
	return func(p *Parser) { p.resourceLoader = l }
}

// NewParser 创建配置类解析器
func NewParser(env *config.Environment, opts ...ParserOption) *Parser {
	p := &Parser{
		registry:          meta.Default(),
		environment:       env,
		logger:            logging.NewLogger(),
		reporter:          NewFailFastReporter(),
		resourceLoader:    fileResourceLoader{},
		classes:           make(map[string]*ConfigurationClass),
		knownSuperclasses: make(map[string]string),
		stack:             newImportStack(),
		deferred:          &deferredHandler{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.evaluator == nil {
		p.evaluator = NewConditionEvaluator(env, nil)
	}
	return p
}

// Parse 解析全部候选，随后统一处理延迟导入
func (p *Parser) Parse(candidates []Candidate) error {
	for _, c := range candidates {
		md := p.registry.MetadataFor(c.Type)
		if CheckConfigurationCandidate(md) == KindNone {
			p.logger.Debug("not a configuration candidate, skipping",
				logging.Field{Key: "class", Value: md.ClassName()})
			continue
		}
		name := c.Name
		if name == "" {
			derived, err := stereotypeBeanName(md)
			if err != nil {
				p.reporter.Report(Problem{Message: err.Error(), Location: md.ClassName()})
				continue
			}
			name = derived
		}
		p.processConfigurationClass(newConfigurationClass(md, name), nil)
	}

	p.deferred.process(p, nil)
	return p.reporter.Err()
}

// ConfigurationClasses 返回登记顺序的解析结果
func (p *Parser) ConfigurationClasses() []*ConfigurationClass {
	out := make([]*ConfigurationClass, 0, len(p.order))
	for _, name := range p.order {
		if cc, ok := p.classes[name]; ok {
			out = append(out, cc)
		}
	}
	return out
}

func (p *Parser) processConfigurationClass(cc *ConfigurationClass, filter exclusionFilter) {
	if p.evaluator.ShouldSkip(cc.Metadata(), PhaseParseConfiguration) {
		return
	}

	className := cc.ClassName()
	if existing, ok := p.classes[className]; ok {
		if cc.IsImported() {
			if existing.IsImported() {
				// 同为导入：并导入方集合，不重复处理
				existing.mergeImportedBy(cc)
			}
			// 显式登记优先于导入登记
			return
		}
		// 显式登记替换纯导入登记并重新处理
		p.removeClass(className)
	}

	p.doProcess(cc, cc.Metadata(), filter)
	p.putClass(cc)
}

// doProcess 处理一个配置类的全部注解贡献，嵌入链递归展开
func (p *Parser) doProcess(cc *ConfigurationClass, md meta.TypeMetadata, filter exclusionFilter) {
	p.processMemberClasses(cc, md, filter)
	p.processPropertySources(md)
	p.processComponentScans(cc, md)

	if targets := collectImportTargets(md); len(targets) > 0 {
		p.processImports(cc, targets, filter, true)
	}

	for _, ann := range md.GetAll(meta.TypeImportResource) {
		cc.addImportedResource(ann.String("location"), ann.String("reader"))
	}

	p.processBeanMethods(cc, md)
	p.processEmbedded(cc, md, filter)
}

// processMemberClasses 处理 Members 声明的成员配置类
func (p *Parser) processMemberClasses(cc *ConfigurationClass, md meta.TypeMetadata, filter exclusionFilter) {
	ann, ok := md.Get(meta.TypeMembers)
	if !ok {
		return
	}
	for _, t := range ann.Targets("targets") {
		mmd := p.registry.MetadataFor(t)
		if CheckConfigurationCandidate(mmd) == KindNone || mmd.ClassName() == cc.ClassName() {
			continue
		}
		if p.stack.contains(mmd.ClassName()) {
			p.reportCircular(mmd.ClassName())
			continue
		}
		p.stack.push(cc)
		p.processConfigurationClass(newImportedConfigurationClass(mmd, cc), filter)
		p.stack.pop()
	}
}

// processPropertySources 把属性源声明并入环境，立即生效
func (p *Parser) processPropertySources(md meta.TypeMetadata) {
	if p.environment == nil {
		return
	}
	for _, ann := range md.GetAll(meta.TypePropertySource) {
		name := ann.String("name")
		location := ann.String("location")
		optional := ann.Bool("optional")

		src, err := sourceForLocation(location, optional)
		if err != nil {
			p.reporter.Report(Problem{Message: err.Error(), Location: md.ClassName()})
			continue
		}
		if name == "" {
			name = location
		}
		if err := p.environment.AddSource(name, src); err != nil {
			if optional {
				p.logger.Debug("optional property source skipped",
					logging.Field{Key: "location", Value: location},
					logging.Field{Key: "error", Value: err})
				continue
			}
			p.reporter.Report(Problem{
				Message:  fmt.Sprintf("failed to load property source '%s': %v", location, err),
				Location: md.ClassName(),
			})
		}
	}
}

func sourceForLocation(location string, optional bool) (config.ConfigurationSource, error) {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".yaml", ".yml":
		return &config.YamlFileSource{Path: location, Optional: optional}, nil
	case ".json":
		return &config.JsonFileSource{Path: location, Optional: optional}, nil
	default:
		return nil, fmt.Errorf("unsupported property source location '%s'", location)
	}
}

// processComponentScans 处理组件目录扫描
// 扫描结果中自身是配置类候选的递归解析，其余记为待注册组件
func (p *Parser) processComponentScans(cc *ConfigurationClass, md meta.TypeMetadata) {
	for _, ann := range md.GetAll(meta.TypeComponentScan) {
		for _, catalogName := range ann.Strings("catalogs") {
			catalog, ok := scan.Lookup(catalogName)
			if !ok {
				p.reporter.Report(Problem{
					Message:  fmt.Sprintf("unknown component catalog '%s'", catalogName),
					Location: md.ClassName(),
				})
				continue
			}
			for _, comp := range catalog.Components() {
				compMD := p.registry.MetadataFor(comp.Type)
				if CheckConfigurationCandidate(compMD) != KindNone {
					name := comp.Name
					if name == "" {
						derived, err := stereotypeBeanName(compMD)
						if err != nil {
							p.reporter.Report(Problem{Message: err.Error(), Location: compMD.ClassName()})
							continue
						}
						name = derived
					}
					p.processConfigurationClass(newConfigurationClass(compMD, name), nil)
				} else {
					cc.addScannedComponent(comp)
				}
			}
		}
	}
}

// processImports 分类处理导入目标：选择器、注册器或普通配置类
func (p *Parser) processImports(cc *ConfigurationClass, targets []any, filter exclusionFilter, checkForCircular bool) {
	if len(targets) == 0 {
		return
	}
	if checkForCircular && p.isChainedImportOnStack(cc) {
		p.reportCircular(cc.ClassName())
		return
	}

	p.stack.push(cc)
	defer p.stack.pop()

	for _, raw := range targets {
		instance := instantiateTarget(raw)
		if instance == nil {
			continue
		}
		className := meta.ClassName(reflect.TypeOf(instance))
		if filter.matches(className) {
			continue
		}

		switch target := instance.(type) {
		case ImportSelector:
			p.invokeAware(target)
			if provider, ok := target.(ExclusionFilterProvider); ok {
				filter = filter.or(provider.ExclusionFilter())
			}
			if deferred, ok := target.(DeferredImportSelector); ok {
				p.deferred.add(cc, deferred)
			} else {
				selected := target.SelectImports(cc.Metadata())
				p.processImports(cc, selected, filter, false)
			}
		case ImportRegistrar:
			p.invokeAware(target)
			cc.addRegistrar(target, cc.Metadata())
		default:
			p.stack.registerImport(cc.Metadata(), className)
			targetMD := p.registry.MetadataFor(reflect.TypeOf(instance))
			p.processConfigurationClass(newImportedConfigurationClass(targetMD, cc), filter)
		}
	}
}

// isChainedImportOnStack 沿"谁导入了谁"链回溯，命中自身即为导入环
func (p *Parser) isChainedImportOnStack(cc *ConfigurationClass) bool {
	className := cc.ClassName()
	if !p.stack.contains(className) {
		return false
	}
	seen := map[string]bool{}
	importers := p.stack.imports[className]
	for len(importers) > 0 {
		importer := importers[len(importers)-1]
		name := importer.ClassName()
		if name == className {
			return true
		}
		if seen[name] {
			return false
		}
		seen[name] = true
		importers = p.stack.imports[name]
	}
	return false
}

func (p *Parser) reportCircular(className string) {
	p.reporter.Report(Problem{
		Message:  fmt.Sprintf("circular import detected: %s", strings.Join(append(p.stack.path(), className), " -> ")),
		Location: className,
	})
}

// processBeanMethods 收集声明顺序的 Bean 方法
func (p *Parser) processBeanMethods(cc *ConfigurationClass, md meta.TypeMetadata) {
	for _, ann := range md.MethodAnnotations(meta.TypeBean) {
		if p.evaluator.ShouldSkipMethod(md, ann.Method, PhaseParseConfiguration) {
			cc.SkipMethod(ann.Method)
			continue
		}
		cc.addBeanMethod(&BeanMethod{
			ConfigClass:   cc,
			Name:          ann.Method,
			Annotation:    ann,
			DeclaringType: md.Type(),
		})
	}
}

// processEmbedded 沿嵌入链展开"父类"贡献
// 标准库类型不展开；已被其他配置类认领的嵌入类型只处理一次
func (p *Parser) processEmbedded(cc *ConfigurationClass, md meta.TypeMetadata, filter exclusionFilter) {
	for _, et := range md.EmbeddedTypes() {
		if isStdType(et) {
			continue
		}
		emd := p.registry.MetadataFor(et)
		className := emd.ClassName()
		if owner, known := p.knownSuperclasses[className]; known && owner != cc.ClassName() {
			continue
		}
		p.knownSuperclasses[className] = cc.ClassName()
		p.doProcess(cc, emd, filter)
	}
}

// isStdType 标准库与无名类型不具有配置类语义
func isStdType(typ reflect.Type) bool {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	pkg := typ.PkgPath()
	if pkg == "" {
		return true
	}
	root := pkg
	if i := strings.Index(pkg, "/"); i >= 0 {
		root = pkg[:i]
	}
	return !strings.Contains(root, ".")
}

func (p *Parser) putClass(cc *ConfigurationClass) {
	className := cc.ClassName()
	if _, exists := p.classes[className]; !exists {
		p.order = append(p.order, className)
	}
	p.classes[className] = cc
}

func (p *Parser) removeClass(className string) {
	delete(p.classes, className)
	for i, name := range p.order {
		if name == className {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// collectImportTargets 展平全部 Import 注解的目标
func collectImportTargets(md meta.TypeMetadata) []any {
	var out []any
	for _, ann := range md.GetAll(meta.TypeImport) {
		out = append(out, ann.Values("targets")...)
	}
	return out
}

// instantiateTarget 把导入目标归一化为实例：类型目标取其零值指针
func instantiateTarget(raw any) any {
	if raw == nil {
		return nil
	}
	if t, ok := raw.(reflect.Type); ok {
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		return reflect.New(t).Interface()
	}
	return raw
}

// stereotypeBeanName 从构造型注解推导 Bean 名
// 多个构造型声明了互相矛盾的显式名称时报错
func stereotypeBeanName(md meta.TypeMetadata) (string, error) {
	name := ""
	for _, atype := range []string{
		meta.TypeComponent,
		meta.TypeService,
		meta.TypeRepository,
		meta.TypeController,
	} {
		for _, ann := range md.GetAll(atype) {
			v := ann.String("value")
			if v == "" {
				continue
			}
			if name != "" && name != v {
				return "", fmt.Errorf("stereotype annotations declare inconsistent bean names '%s' and '%s'", name, v)
			}
			name = v
		}
	}
	if name == "" {
		name = di.DefaultBeanName(md.Type())
	}
	return name, nil
}
