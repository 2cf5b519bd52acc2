package beans_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/meta"
)

type selectorConfig struct{}

type targetOne struct{}

func (t *targetOne) ServiceA() *svcA { return &svcA{} }

type targetTwo struct{}

func (t *targetTwo) ServiceB() *svcB { return &svcB{} }

// plainSelector 直选 targetOne
type plainSelector struct {
	env *config.Environment
}

func (s *plainSelector) SetEnvironment(env *config.Environment) {
	s.env = env
}

func (s *plainSelector) SelectImports(meta.TypeMetadata) []any {
	return []any{(*targetOne)(nil)}
}

// excludingSelector 选 targetOne 同时排除 targetTwo
type excludingSelector struct{}

func (s *excludingSelector) SelectImports(meta.TypeMetadata) []any {
	return []any{(*targetOne)(nil)}
}

func (s *excludingSelector) ExclusionFilter() func(string) bool {
	return func(className string) bool {
		return className == meta.ClassName(meta.TypeOf[targetTwo]())
	}
}

// deferredSelector 延迟导入 targetTwo
type deferredSelector struct{}

func (s *deferredSelector) SelectImports(meta.TypeMetadata) []any {
	return []any{(*targetTwo)(nil)}
}

func (s *deferredSelector) Group() beans.Group { return nil }

func deferredFixtureRegistry() *meta.Registry {
	reg := meta.NewRegistry()
	meta.RegisterFor[targetOne](reg, meta.Configuration(), meta.Bean("ServiceA"))
	meta.RegisterFor[targetTwo](reg, meta.Configuration(), meta.Bean("ServiceB"))
	return reg
}

func TestSelectorImportsAndAwareCallback(t *testing.T) {
	reg := deferredFixtureRegistry()
	sel := &plainSelector{}
	meta.RegisterFor[selectorConfig](reg, meta.Configuration(), meta.Import(sel))

	env := newEnv(t)
	p := beans.NewParser(env, beans.WithMetaRegistry(reg))
	require.NoError(t, p.Parse([]beans.Candidate{{Name: "selectorConfig", Type: meta.TypeOf[selectorConfig]()}}))

	names := classNames(p.ConfigurationClasses())
	assert.Contains(t, names, meta.ClassName(meta.TypeOf[targetOne]()))
	assert.Same(t, env, sel.env, "selector should receive the environment before selection")
}

func TestDeferredSelectorRunsAfterRegularCandidates(t *testing.T) {
	reg := deferredFixtureRegistry()
	meta.RegisterFor[selectorConfig](reg,
		meta.Configuration(),
		meta.Import(&deferredSelector{}, (*targetOne)(nil)),
	)

	p := beans.NewParser(newEnv(t), beans.WithMetaRegistry(reg))
	require.NoError(t, p.Parse([]beans.Candidate{{Name: "selectorConfig", Type: meta.TypeOf[selectorConfig]()}}))

	names := classNames(p.ConfigurationClasses())
	require.Len(t, names, 3)
	// 延迟导入的类排在常规候选之后
	assert.Equal(t, meta.ClassName(meta.TypeOf[targetTwo]()), names[len(names)-1])
}

func TestSelectorExclusionFilterBlocksLaterImports(t *testing.T) {
	reg := deferredFixtureRegistry()
	meta.RegisterFor[selectorConfig](reg,
		meta.Configuration(),
		meta.Import(&excludingSelector{}, (*targetTwo)(nil)),
	)

	p := beans.NewParser(newEnv(t), beans.WithMetaRegistry(reg))
	require.NoError(t, p.Parse([]beans.Candidate{{Name: "selectorConfig", Type: meta.TypeOf[selectorConfig]()}}))

	names := classNames(p.ConfigurationClasses())
	assert.Contains(t, names, meta.ClassName(meta.TypeOf[targetOne]()))
	assert.NotContains(t, names, meta.ClassName(meta.TypeOf[targetTwo]()))
}
