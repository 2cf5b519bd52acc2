package etcd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdClientOptions 单个 etcd 客户端的配置
type EtcdClientOptions struct {
	Name               string        // 客户端名称
	Endpoints          []string      // 服务器地址列表
	DialTimeout        time.Duration // 拨号超时
	Username           string        // 用户名（可选）
	Password           string        // 密码（可选）
	AutoSyncInterval   time.Duration // 成员自动同步间隔（可选）
	MaxCallSendMsgSize int           // 最大发送消息字节数（可选）
	MaxCallRecvMsgSize int           // 最大接收消息字节数（可选）
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *EtcdClientOptions {
	return &EtcdClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *EtcdClientOptions) Validate() error {
	if o.Name == "" {
		return errors.New("etcd: client name is required")
	}
	if len(o.Endpoints) == 0 {
		return fmt.Errorf("etcd: endpoints are required for '%s'", o.Name)
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("etcd: dial timeout must be positive for '%s'", o.Name)
	}
	return nil
}

// clientConfig 转换成驱动配置
func (o *EtcdClientOptions) clientConfig() clientv3.Config {
	cfg := clientv3.Config{
		Endpoints:   o.Endpoints,
		DialTimeout: o.DialTimeout,
		Username:    o.Username,
		Password:    o.Password,
	}
	if o.AutoSyncInterval > 0 {
		cfg.AutoSyncInterval = o.AutoSyncInterval
	}
	if o.MaxCallSendMsgSize > 0 {
		cfg.MaxCallSendMsgSize = o.MaxCallSendMsgSize
	}
	if o.MaxCallRecvMsgSize > 0 {
		cfg.MaxCallRecvMsgSize = o.MaxCallRecvMsgSize
	}
	return cfg
}

// EtcdClientFactory 管理命名的 etcd 客户端
type EtcdClientFactory struct {
	clients map[string]*clientv3.Client
	mu      sync.RWMutex
}

// NewEtcdClientFactory 创建客户端工厂
func NewEtcdClientFactory() *EtcdClientFactory {
	return &EtcdClientFactory{clients: make(map[string]*clientv3.Client)}
}

// Register 创建客户端并登记
func (f *EtcdClientFactory) Register(opts EtcdClientOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.clients[opts.Name]; exists {
		return fmt.Errorf("etcd: client '%s' already registered", opts.Name)
	}

	client, err := clientv3.New(opts.clientConfig())
	if err != nil {
		return fmt.Errorf("etcd: create client '%s': %w", opts.Name, err)
	}

	f.clients[opts.Name] = client
	return nil
}

// Get 按名称取客户端
func (f *EtcdClientFactory) Get(name string) (*clientv3.Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	client, ok := f.clients[name]
	if !ok {
		return nil, fmt.Errorf("etcd: client '%s' not found", name)
	}
	return client, nil
}

// Names 返回已注册的客户端名
func (f *EtcdClientFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.clients))
	for name := range f.clients {
		names = append(names, name)
	}
	return names
}

// Each 遍历所有客户端
func (f *EtcdClientFactory) Each(fn func(name string, client *clientv3.Client)) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for name, client := range f.clients {
		fn(name, client)
	}
}

// Close 关闭所有客户端，返回聚合的错误
func (f *EtcdClientFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for name, client := range f.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("etcd: close '%s': %w", name, err))
		}
	}
	f.clients = make(map[string]*clientv3.Client)

	return errors.Join(errs...)
}
