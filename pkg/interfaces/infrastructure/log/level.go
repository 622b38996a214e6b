package log

import "github.com/weisyn/noirzk/pkg/types"

// LogLevel 日志级别（定义位于 pkg/types，便于配置层直接引用）
type LogLevel = types.LogLevel

const (
	DebugLevel = types.DebugLevel
	InfoLevel  = types.InfoLevel
	WarnLevel  = types.WarnLevel
	ErrorLevel = types.ErrorLevel
	FatalLevel = types.FatalLevel
)

// ParseLevel 将字符串解析为日志级别，无法识别时返回 InfoLevel
func ParseLevel(s string) LogLevel {
	switch LogLevel(s) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, FatalLevel:
		return LogLevel(s)
	default:
		return InfoLevel
	}
}
