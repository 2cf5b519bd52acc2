package redis

import (
	"fmt"

	"github.com/gocrud/ioc/logging"
)

// Builder Redis 客户端配置构建器
type Builder struct {
	configs map[string]RedisClientOptions
	order   []string
	errors  []error
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{configs: make(map[string]RedisClientOptions)}
}

// AddClient 添加一个命名客户端配置
func (b *Builder) AddClient(name string, configure func(*RedisClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("redis: client '%s' already configured", name))
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
func (b *Builder) Build(logger logging.Logger) (*RedisClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("redis: configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewRedisClientFactory()
	for _, name := range b.order {
		opts := b.configs[name]
		if err := factory.Register(opts); err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("Redis client registered",
				logging.Field{Key: "name", Value: opts.Name},
				logging.Field{Key: "addr", Value: opts.Addr},
				logging.Field{Key: "db", Value: opts.DB})
		}
	}
	return factory, nil
}
