package config

import (
	"fmt"
	"sync"
	"time"
)

// Configuration 配置读取面
// Environment 与快照 Values 共用同一套方法集
type Configuration interface {
	// Get 获取配置值
	Get(key string) string
	// GetWithDefault 获取配置值，不存在时返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetSection 获取配置节
	GetSection(key string) Configuration
	// Bind 绑定配置到结构体
	Bind(key string, target any) error
	// GetAll 获取所有配置
	GetAll() map[string]any
}

// ConfigurationSource 配置源接口
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// ConfigurationBuilder 配置构建器
// 源按注册顺序加载，后注册者覆盖先注册者
type ConfigurationBuilder struct {
	mu      sync.RWMutex
	sources []ConfigurationSource
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&JsonFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	return b.Add(&YamlFileSource{Path: path, Optional: len(optional) > 0 && optional[0]})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

// Build 加载全部源并返回不可变快照
func (b *ConfigurationBuilder) Build() (Configuration, error) {
	b.mu.RLock()
	sources := make([]ConfigurationSource, len(b.sources))
	copy(sources, b.sources)
	b.mu.RUnlock()

	data, err := loadAll(sources)
	if err != nil {
		return nil, err
	}
	return Values(data), nil
}

// loadAll 按序加载并深度合并一组配置源
func loadAll(sources []ConfigurationSource) (map[string]any, error) {
	result := make(map[string]any)
	for _, source := range sources {
		data, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("config: load source %s: %w", source.Name(), err)
		}
		mergeMaps(result, data)
	}
	return result, nil
}
