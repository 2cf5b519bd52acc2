package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClientOptions 单个 Redis 客户端的配置
type RedisClientOptions struct {
	Name         string        // 客户端名称
	Addr         string        // 服务器地址 (host:port)
	Password     string        // 密码（可选）
	DB           int           // 数据库编号
	DialTimeout  time.Duration // 连接超时
	ReadTimeout  time.Duration // 读取超时
	WriteTimeout time.Duration // 写入超时
	PoolSize     int           // 连接池大小
	MinIdleConns int           // 最小空闲连接数
	MaxRetries   int           // 最大重试次数
	LazyConnect  bool          // 跳过注册时的连通性检查
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *RedisClientOptions {
	return &RedisClientOptions{
		Name:         name,
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}
}

// Validate 验证配置
func (o *RedisClientOptions) Validate() error {
	if o.Name == "" {
		return errors.New("redis: client name is required")
	}
	if o.Addr == "" {
		return fmt.Errorf("redis: address is required for '%s'", o.Name)
	}
	if o.DB < 0 {
		return fmt.Errorf("redis: database number must be non-negative for '%s'", o.Name)
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("redis: dial timeout must be positive for '%s'", o.Name)
	}
	return nil
}

// clientOptions 转换成驱动配置
func (o *RedisClientOptions) clientOptions() *redis.Options {
	return &redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
		MaxRetries:   o.MaxRetries,
	}
}

// RedisClientFactory 管理命名的 Redis 客户端
type RedisClientFactory struct {
	clients map[string]*redis.Client
	mu      sync.RWMutex
}

// NewRedisClientFactory 创建客户端工厂
func NewRedisClientFactory() *RedisClientFactory {
	return &RedisClientFactory{clients: make(map[string]*redis.Client)}
}

// Register 创建客户端并按需做连通性检查
func (f *RedisClientFactory) Register(opts RedisClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[opts.Name]; exists {
		return fmt.Errorf("redis: client '%s' already registered", opts.Name)
	}

	client := redis.NewClient(opts.clientOptions())
	if !opts.LazyConnect {
		ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("redis: connect '%s': %w", opts.Name, err)
		}
	}

	f.clients[opts.Name] = client
	return nil
}

// Get 按名称取客户端
func (f *RedisClientFactory) Get(name string) (*redis.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("redis: client '%s' not found", name)
	}
	return client, nil
}

// Names 返回已注册的客户端名
func (f *RedisClientFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.clients))
	for name := range f.clients {
		names = append(names, name)
	}
	return names
}

// Each 遍历所有客户端
func (f *RedisClientFactory) Each(fn func(name string, client *redis.Client)) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for name, client := range f.clients {
		fn(name, client)
	}
}

// Close 关闭所有客户端，返回聚合的错误
func (f *RedisClientFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, client := range f.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: close '%s': %w", name, err))
		}
	}
	f.clients = make(map[string]*redis.Client)

	return errors.Join(errs...)
}
