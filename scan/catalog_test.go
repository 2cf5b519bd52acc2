package scan_test

import (
	"reflect"
	"testing"

	"github.com/gocrud/ioc/scan"
	"github.com/stretchr/testify/assert"
)

type orderService struct{}
type orderRepo struct{}

func TestCatalogRegisterAndList(t *testing.T) {
	scan.Reset()
	t.Cleanup(scan.Reset)

	cat := scan.Of("orders")
	cat.Register((*orderService)(nil))
	cat.RegisterNamed("repo", (*orderRepo)(nil))

	comps := cat.Components()
	assert.Len(t, comps, 2)
	assert.Equal(t, reflect.TypeOf((*orderService)(nil)), comps[0].Type)
	assert.Equal(t, "", comps[0].Name)
	assert.Equal(t, "repo", comps[1].Name)
}

func TestCatalogLookup(t *testing.T) {
	scan.Reset()
	t.Cleanup(scan.Reset)

	_, ok := scan.Lookup("missing")
	assert.False(t, ok)

	scan.Of("a")
	scan.Of("b")
	got, ok := scan.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, "a", got.Name())
	assert.Equal(t, []string{"a", "b"}, scan.Names())
}

func TestCatalogOfIsStable(t *testing.T) {
	scan.Reset()
	t.Cleanup(scan.Reset)

	c1 := scan.Of("shared")
	c2 := scan.Of("shared")
	assert.Same(t, c1, c2)
}
