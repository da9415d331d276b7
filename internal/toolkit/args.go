package toolkit

import (
	"encoding/json"
	"strconv"
)

// Args 是通过了 schema 校验的工具参数。JSON 解码来的数字是 float64，
// 这里统一做宽松的类型提取。
type Args map[string]any

// String 返回字符串参数及其是否存在。非字符串类型按缺失处理。
func (a Args) String(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

// Bool 返回布尔参数。
func (a Args) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

// Uint64 返回无符号整数参数及其是否存在。
func (a Args) Uint64(key string) (uint64, bool) {
	switch v := a[key].(type) {
	case uint64:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// chainIDKey 是全体工具约定的链参数名。
const chainIDKey = "chainId"

// ChainID 返回请求限定的链 ID，未限定时为 0。
func (a Args) ChainID() uint64 {
	id, _ := a.Uint64(chainIDKey)
	return id
}
