package autoconfigure_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/ioc/autoconfigure"
	"github.com/gocrud/ioc/beans"
	"github.com/gocrud/ioc/config"
	"github.com/gocrud/ioc/meta"
	"github.com/gocrud/ioc/scan"
)

type cacheService struct{}

type cacheAutoConfig struct{}

func (c *cacheAutoConfig) Cache() *cacheService {
	return &cacheService{}
}

type queueService struct{}

type queueAutoConfig struct{}

func (c *queueAutoConfig) Queue() *queueService {
	return &queueService{}
}

type rootConfig struct{}

func newTestRegistry() *meta.Registry {
	reg := meta.NewRegistry()
	meta.RegisterFor[rootConfig](reg,
		meta.Configuration(),
		meta.Import(autoconfigure.NewSelector()))
	meta.RegisterFor[cacheAutoConfig](reg,
		meta.Configuration(),
		meta.Order(2),
		meta.Bean("Cache"))
	meta.RegisterFor[queueAutoConfig](reg,
		meta.Configuration(),
		meta.Order(1),
		meta.Bean("Queue"))
	return reg
}

func registerCatalog(t *testing.T) {
	t.Helper()
	scan.Reset()
	t.Cleanup(scan.Reset)
	autoconfigure.Register((*cacheAutoConfig)(nil))
	autoconfigure.Register((*queueAutoConfig)(nil))
}

func newEnv(t *testing.T, data map[string]any) *config.Environment {
	t.Helper()
	b := config.NewConfigurationBuilder()
	if data != nil {
		b.AddInMemory(data)
	}
	env, err := config.NewEnvironmentFrom(b)
	require.NoError(t, err)
	return env
}

func classNames(classes []*beans.ConfigurationClass) []string {
	out := make([]string, 0, len(classes))
	for _, cc := range classes {
		out = append(out, cc.ClassName())
	}
	return out
}

func TestSelectorImportsCatalogOrdered(t *testing.T) {
	registerCatalog(t)
	reg := newTestRegistry()

	parser := beans.NewParser(newEnv(t, nil), beans.WithMetaRegistry(reg))
	require.NoError(t, parser.Parse([]beans.Candidate{
		beans.CandidateOf(&rootConfig{}, ""),
	}))

	classes := parser.ConfigurationClasses()
	require.Len(t, classes, 3)

	names := classNames(classes)
	// 自动配置类在用户配置类之后展开，且按 Order 注解排序
	assert.Equal(t, meta.ClassName(typeOf[rootConfig]()), names[0])
	queueAt := indexOf(names, meta.ClassName(typeOf[queueAutoConfig]()))
	cacheAt := indexOf(names, meta.ClassName(typeOf[cacheAutoConfig]()))
	assert.True(t, queueAt > 0)
	assert.True(t, cacheAt > queueAt)
}

func TestExcludePropertySkipsClasses(t *testing.T) {
	registerCatalog(t)
	reg := newTestRegistry()

	env := newEnv(t, map[string]any{
		"autoconfigure": map[string]any{
			"exclude": meta.ClassName(typeOf[cacheAutoConfig]()),
		},
	})

	parser := beans.NewParser(env, beans.WithMetaRegistry(reg))
	require.NoError(t, parser.Parse([]beans.Candidate{
		beans.CandidateOf(&rootConfig{}, ""),
	}))

	names := classNames(parser.ConfigurationClasses())
	assert.Contains(t, names, meta.ClassName(typeOf[queueAutoConfig]()))
	assert.NotContains(t, names, meta.ClassName(typeOf[cacheAutoConfig]()))
}

func TestSelectorWithoutCatalogSelectsNothing(t *testing.T) {
	scan.Reset()
	t.Cleanup(scan.Reset)
	reg := newTestRegistry()

	parser := beans.NewParser(newEnv(t, nil), beans.WithMetaRegistry(reg))
	require.NoError(t, parser.Parse([]beans.Candidate{
		beans.CandidateOf(&rootConfig{}, ""),
	}))
	assert.Len(t, parser.ConfigurationClasses(), 1)
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func indexOf(items []string, target string) int {
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}
