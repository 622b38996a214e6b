package log

import "go.uber.org/zap/zapcore"

// 日志配置默认值
const (
	// defaultLogLevel 默认日志级别
	defaultLogLevel = "info"

	// defaultToConsole 命令行工具默认输出到控制台
	defaultToConsole = true

	// defaultFilePath 默认不写文件
	defaultFilePath = ""

	// === 日志轮转配置 ===
	defaultMaxSize    = 50 // MB
	defaultMaxBackups = 5
	defaultMaxAge     = 14 // 天
	defaultCompress   = true

	// === 调试配置 ===
	defaultEnableCaller     = false
	defaultEnableStacktrace = true
)

var levelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"panic": zapcore.PanicLevel,
	"fatal": zapcore.FatalLevel,
}
