// Package types provides configuration type definitions.
package types

// AppConfig 应用程序根配置
// 只包含JSON配置文件解析所需的结构，不包含任何内部字段
// 默认值和完整配置结构在 internal/config/*/defaults.go 和 internal/config/*/config.go 中定义
type AppConfig struct {
	// 应用程序基本信息
	AppName *string `json:"app_name,omitempty"` // 应用名称
	DataDir *string `json:"data_dir,omitempty"` // 数据目录路径（SRS缓存默认位于其下）

	// 日志配置
	Log *UserLogConfig `json:"log,omitempty"`

	// 零知识证明配置 - 对应配置文件中的 zkproof 字段
	ZKProof *UserZKProofConfig `json:"zkproof,omitempty"`
}

// UserLogConfig 用户日志配置
// 只包含JSON配置文件中实际出现的字段
type UserLogConfig struct {
	Level     *string `json:"level,omitempty"`      // 日志级别：debug, info, warn, error, fatal
	FilePath  *string `json:"file_path,omitempty"`  // 日志文件路径（stdout/stderr 表示控制台）
	ToConsole *bool   `json:"to_console,omitempty"` // 是否同时输出到控制台
}

// UserZKProofConfig 用户零知识证明配置
// 只包含JSON配置文件中实际出现的字段
type UserZKProofConfig struct {
	// SRS 相关
	SRSDir            *string `json:"srs_dir,omitempty"`            // SRS缓存目录
	SRSSource         *string `json:"srs_source,omitempty"`         // SRS来源：derived | http
	SRSBaseURL        *string `json:"srs_base_url,omitempty"`       // http 来源的下载前缀
	SRSSeed           *string `json:"srs_seed,omitempty"`           // derived 来源的确定性种子
	MaxSRSSize        *uint32 `json:"max_srs_size,omitempty"`       // 允许的最大SRS规模
	RecursionOverhead *uint32 `json:"recursion_overhead,omitempty"` // 递归验证所需的额外门数

	// 调度相关
	Workers   *int `json:"workers,omitempty"`    // 阻塞任务工作线程数
	QueueSize *int `json:"queue_size,omitempty"` // 任务队列容量

	// 缓存相关
	CircuitCacheSize    *int `json:"circuit_cache_size,omitempty"`     // 编译电路缓存容量
	ProvingKeyCacheSize *int `json:"proving_key_cache_size,omitempty"` // 证明密钥缓存容量
}

// LogLevel 日志级别类型
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)
