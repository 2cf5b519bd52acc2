package config

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Values 不可变配置快照
// 构建后不再写入，读路径无锁；层级键支持 ":" 与 "." 分隔
type Values map[string]any

var _ Configuration = Values(nil)

// lookup 沿分段路径下钻；空路径返回整棵树
func (v Values) lookup(key string) any {
	if key == "" {
		return map[string]any(v)
	}
	current := any(map[string]any(v))
	for _, seg := range globalPathCache.Segments(key) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[seg]
	}
	return current
}

// Get 获取配置值
func (v Values) Get(key string) string {
	return coerceString(v.lookup(key))
}

// GetWithDefault 获取配置值，不存在时返回默认值
func (v Values) GetWithDefault(key, defaultValue string) string {
	if s := v.Get(key); s != "" {
		return s
	}
	return defaultValue
}

// GetInt 获取整数配置值
func (v Values) GetInt(key string) (int, error) {
	raw := v.lookup(key)
	if raw == nil {
		return 0, fmt.Errorf("config: key %q not found", key)
	}
	return coerceInt(raw)
}

// GetBool 获取布尔配置值
func (v Values) GetBool(key string) (bool, error) {
	raw := v.lookup(key)
	if raw == nil {
		return false, fmt.Errorf("config: key %q not found", key)
	}
	return coerceBool(raw)
}

// GetSection 获取配置节；非映射节点按空节处理
func (v Values) GetSection(key string) Configuration {
	if m, ok := v.lookup(key).(map[string]any); ok {
		return Values(m)
	}
	return Values{}
}

// Bind 经 JSON 往返把配置节绑定到结构体
func (v Values) Bind(key string, target any) error {
	data := v.lookup(key)
	if data == nil {
		return fmt.Errorf("config: key %q not found", key)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: marshal section %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: bind section %q: %w", key, err)
	}
	return nil
}

// GetAll 获取整棵树的顶层副本
func (v Values) GetAll() map[string]any {
	result := make(map[string]any, len(v))
	mergeMaps(result, v)
	return result
}

// coerceString 标量转字符串；缺失值得空串
func coerceString(raw any) string {
	switch val := raw.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func coerceInt(raw any) (int, error) {
	switch val := raw.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		return strconv.Atoi(val)
	default:
		return 0, fmt.Errorf("config: cannot convert %v to int", raw)
	}
}

func coerceBool(raw any) (bool, error) {
	switch val := raw.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(val)
	default:
		return false, fmt.Errorf("config: cannot convert %v to bool", raw)
	}
}

// mergeMaps 深度合并：同键映射递归并入，标量由 src 覆盖
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
}
