package etcd

import (
	"fmt"

	"github.com/gocrud/ioc/core"
	"github.com/gocrud/ioc/logging"
)

// Builder Etcd 客户端配置构建器
type Builder struct {
	core.BaseBuilder
	configs map[string]EtcdClientOptions
	order   []string
	errors  []error
}

// NewBuilder 创建 Etcd 构建器
func NewBuilder(ctx *core.BuildContext) *Builder {
	return &Builder{
		BaseBuilder: core.NewBaseBuilder(ctx),
		configs:     make(map[string]EtcdClientOptions),
	}
}

// AddClient 添加一个命名客户端配置
func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("etcd: client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, err)
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// Build 构建客户端工厂；没有任何配置时返回 nil 工厂
func (b *Builder) Build(logger logging.Logger) (*EtcdClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("etcd: configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewEtcdClientFactory()
	for _, name := range b.order {
		opts := b.configs[name]
		if err := factory.Register(opts); err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("Etcd client registered",
				logging.Field{Key: "name", Value: opts.Name},
				logging.Field{Key: "endpoints", Value: fmt.Sprintf("%v", opts.Endpoints)})
		}
	}
	return factory, nil
}
