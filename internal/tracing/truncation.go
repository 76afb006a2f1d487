package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200

	// MaxRedisLength Redis键最大长度
	MaxRedisLength = 100

	// MaxPromptLength 日志中提示词与模型输出的预览长度
	MaxPromptLength = 300

	// MaxFilenameLength 上传文件名最大长度
	MaxFilenameLength = 150
)

// piiKeywords 字段名包含这些关键字时，其值需要掩码
var piiKeywords = []string{
	"email", "phone", "password", "id_card", "address", "location",
	"name", "age", "secret", "token", "身份证", "地址", "姓名", "年龄",
}

// IsPIIField 判断字段名是否指向个人敏感信息
func IsPIIField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, keyword := range piiKeywords {
		if strings.Contains(lowerName, keyword) {
			return true
		}
	}
	return false
}

// SafeAttributeValue 敏感字段返回掩码值，其他字段按 maxLength 截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	if IsPIIField(name) {
		return MaskPII(value)
	}
	return TruncateString(value, maxLength)
}

// MaskPII 对个人敏感信息进行掩码处理
// "张三" -> "张*"，"王小明" -> "王*明"，"13812345678" -> "13*******78"
func MaskPII(value string) string {
	runes := []rune(value)
	n := len(runes)
	switch {
	case n == 0:
		return ""
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	case n <= 4:
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	default:
		return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
	}
}

// MaskRecord 返回结构化记录的脱敏副本，仅用于日志输出
func MaskRecord(v any) any {
	return maskValue("", v)
}

func maskValue(key string, v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = maskValue(k, child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = maskValue(key, child)
		}
		return out
	case string:
		if IsPIIField(key) {
			return MaskPII(val)
		}
		return val
	default:
		return v
	}
}

// TruncateString 截断字符串，保留首尾并以省略号连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	half := max((maxLength-3)/2, 1)
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeRedisKey 安全处理Redis键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafePreview 提示词或模型输出的日志预览
func SafePreview(text string) string {
	return TruncateString(text, MaxPromptLength)
}
