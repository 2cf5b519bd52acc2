package naming_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gocrud/ioc/naming"
	"github.com/stretchr/testify/assert"
)

func TestMemoryServiceBindLookup(t *testing.T) {
	s := naming.NewMemoryService()
	ctx := context.Background()

	assert.NoError(t, s.Bind(ctx, "jdbc/primary", "dsn://main"))

	v, err := s.Lookup(ctx, "jdbc/primary")
	assert.NoError(t, err)
	assert.Equal(t, "dsn://main", v)
}

func TestMemoryServiceNotBound(t *testing.T) {
	s := naming.NewMemoryService()

	_, err := s.Lookup(context.Background(), "missing")
	var nb *naming.NotBoundError
	assert.True(t, errors.As(err, &nb))
	assert.Equal(t, "missing", nb.Name)
}

func TestMemoryServiceUnbind(t *testing.T) {
	s := naming.NewMemoryService()
	ctx := context.Background()

	assert.NoError(t, s.Bind(ctx, "cache", 42))
	assert.NoError(t, s.Unbind(ctx, "cache"))

	_, err := s.Lookup(ctx, "cache")
	assert.Error(t, err)
	// 再次解绑同样报未绑定
	assert.Error(t, s.Unbind(ctx, "cache"))
}

func TestMemoryServiceRebind(t *testing.T) {
	s := naming.NewMemoryService()
	ctx := context.Background()

	assert.NoError(t, s.Bind(ctx, "flag", false))
	assert.NoError(t, s.Bind(ctx, "flag", true))

	v, err := s.Lookup(ctx, "flag")
	assert.NoError(t, err)
	assert.Equal(t, true, v)
}
