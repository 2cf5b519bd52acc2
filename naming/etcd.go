package naming

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdOptions etcd 命名服务选项
type EtcdOptions struct {
	// Prefix 键前缀，默认 "/naming"
	Prefix string
	// Timeout 单次操作超时，默认 5 秒
	Timeout time.Duration
}

// EtcdService 基于 etcd 的命名服务
// 值存储为 JSON；非 JSON 的历史值按原始字符串返回
type EtcdService struct {
	client  *clientv3.Client
	prefix  string
	timeout time.Duration
}

// NewEtcdService 用既有客户端创建命名服务
func NewEtcdService(client *clientv3.Client, opts EtcdOptions) *EtcdService {
	if opts.Prefix == "" {
		opts.Prefix = "/naming"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return &EtcdService{client: client, prefix: opts.Prefix, timeout: opts.Timeout}
}

func (s *EtcdService) key(name string) string {
	return s.prefix + "/" + name
}

// Lookup 按名称查找
func (s *EtcdService) Lookup(ctx context.Context, name string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Get(ctx, s.key(name))
	if err != nil {
		return nil, fmt.Errorf("naming: etcd lookup of '%s' failed: %w", name, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, &NotBoundError{Name: name}
	}

	raw := resp.Kvs[0].Value
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw), nil
	}
	return value, nil
}

// Bind 绑定名称；值序列化为 JSON
func (s *EtcdService) Bind(ctx context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("naming: cannot serialize value for '%s': %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.client.Put(ctx, s.key(name), string(data)); err != nil {
		return fmt.Errorf("naming: etcd bind of '%s' failed: %w", name, err)
	}
	return nil
}

// Unbind 解除绑定
func (s *EtcdService) Unbind(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Delete(ctx, s.key(name))
	if err != nil {
		return fmt.Errorf("naming: etcd unbind of '%s' failed: %w", name, err)
	}
	if resp.Deleted == 0 {
		return &NotBoundError{Name: name}
	}
	return nil
}
