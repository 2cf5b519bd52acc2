package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// loadFile 读取并解码配置文件；可选文件缺失时返回空树
func loadFile(path string, optional bool, decode func([]byte, any) error) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var result map[string]any
	if err := decode(data, &result); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return result, nil
}

// JsonFileSource JSON 文件配置源
type JsonFileSource struct {
	Path     string
	Optional bool
}

func (s *JsonFileSource) Name() string {
	return fmt.Sprintf("JsonFile(%s)", s.Path)
}

func (s *JsonFileSource) Load() (map[string]any, error) {
	return loadFile(s.Path, s.Optional, json.Unmarshal)
}

// YamlFileSource YAML 文件配置源
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string {
	return fmt.Sprintf("YamlFile(%s)", s.Path)
}

func (s *YamlFileSource) Load() (map[string]any, error) {
	return loadFile(s.Path, s.Optional, func(data []byte, out any) error {
		return yaml.Unmarshal(data, out)
	})
}

// InMemorySource 内存配置源
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string {
	return "InMemory"
}

func (s *InMemorySource) Load() (map[string]any, error) {
	result := make(map[string]any, len(s.Data))
	mergeMaps(result, s.Data)
	return result, nil
}

// EnvironmentVariableSource 环境变量配置源
// PREFIX_SERVER_PORT=8080 -> server:port = 8080（键小写，_ 作层级分隔）
type EnvironmentVariableSource struct {
	Prefix string
}

func (s *EnvironmentVariableSource) Name() string {
	return fmt.Sprintf("EnvironmentVariables(%s)", s.Prefix)
}

func (s *EnvironmentVariableSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if s.Prefix != "" {
			if !strings.HasPrefix(key, s.Prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.Prefix)
		}
		key = strings.ReplaceAll(strings.ToLower(key), "_", ":")
		setNested(result, key, coerceScalar(value))
	}
	return result, nil
}

// EtcdOptions etcd 配置源选项
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 读取超时（默认 5 秒）
	DialTimeout time.Duration // 拨号超时（默认 5 秒）
}

// EtcdSource etcd 配置源
// 每个键的值依次按 JSON、YAML、原始字符串解释
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("config: create etcd client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("config: read etcd prefix %q: %w", prefix, err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		key := s.normalizeKey(string(kv.Key))
		if key == "" {
			continue
		}
		setNested(result, key, decodeEtcdValue(kv.Value))
	}
	return result, nil
}

// normalizeKey 去掉前缀与首斜杠，路径分隔符换成层级分隔符
func (s *EtcdSource) normalizeKey(key string) string {
	if s.Options.Prefix != "" {
		key = strings.TrimPrefix(key, s.Options.Prefix)
	}
	key = strings.TrimPrefix(key, "/")
	return strings.ReplaceAll(key, "/", ":")
}

func decodeEtcdValue(raw []byte) any {
	var jsonValue any
	if err := json.Unmarshal(raw, &jsonValue); err == nil {
		return jsonValue
	}
	var yamlValue any
	if err := yaml.Unmarshal(raw, &yamlValue); err == nil {
		return yamlValue
	}
	return string(raw)
}

// setNested 沿 ":" 分隔路径写入；中间节点冲突时放弃该键
func setNested(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			if _, exists := current[part]; exists {
				return
			}
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// coerceScalar 把环境变量字符串尽量还原成数值或布尔
func coerceScalar(value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
