// Package zkproof 提供零知识证明生命周期管理器的配置
package zkproof

import (
	"strings"
	"time"

	"github.com/weisyn/noirzk/pkg/types"
)

// SRS 来源类型
const (
	SourceDerived = "derived" // 由种子确定性派生（开发/测试用）
	SourceHTTP    = "http"    // 从远端下载已序列化的SRS
)

// ZKOptions 零知识证明配置选项
type ZKOptions struct {
	// === SRS 配置 ===
	SRSDir            string        `json:"srs_dir"`            // SRS缓存目录
	SRSSource         string        `json:"srs_source"`         // SRS来源：derived | http
	SRSBaseURL        string        `json:"srs_base_url"`       // http 来源的下载前缀
	SRSSeed           string        `json:"srs_seed"`           // derived 来源的种子
	MaxSRSSize        uint32        `json:"max_srs_size"`       // 允许的最大SRS规模
	RecursionOverhead uint32        `json:"recursion_overhead"` // 递归验证的额外门数
	DownloadTimeout   time.Duration `json:"download_timeout"`   // http 来源的超时时间

	// === 调度配置 ===
	Workers   int `json:"workers"`    // 阻塞任务工作线程数
	QueueSize int `json:"queue_size"` // 任务队列容量

	// === 缓存配置 ===
	CircuitCacheSize    int `json:"circuit_cache_size"`     // 编译电路缓存容量
	ProvingKeyCacheSize int `json:"proving_key_cache_size"` // 证明密钥缓存容量
}

// Config 零知识证明配置实现
type Config struct {
	options *ZKOptions
}

// New 创建零知识证明配置，用户配置覆盖默认值
func New(userConfig *types.UserZKProofConfig) *Config {
	options := createDefaultZKOptions()
	if userConfig != nil {
		applyUserZKConfig(options, userConfig)
	}
	return &Config{options: options}
}

func createDefaultZKOptions() *ZKOptions {
	return &ZKOptions{
		SRSDir:              defaultSRSDir,
		SRSSource:           defaultSRSSource,
		SRSBaseURL:          defaultSRSBaseURL,
		SRSSeed:             defaultSRSSeed,
		MaxSRSSize:          defaultMaxSRSSize,
		RecursionOverhead:   defaultRecursionOverhead,
		DownloadTimeout:     defaultDownloadTimeout,
		Workers:             defaultWorkers(),
		QueueSize:           defaultQueueSize,
		CircuitCacheSize:    defaultCircuitCacheSize,
		ProvingKeyCacheSize: defaultProvingKeyCacheSize,
	}
}

// applyUserZKConfig 只处理JSON配置文件中实际出现的字段
func applyUserZKConfig(options *ZKOptions, u *types.UserZKProofConfig) {
	if u.SRSDir != nil && *u.SRSDir != "" {
		options.SRSDir = *u.SRSDir
	}
	if u.SRSSource != nil {
		switch s := strings.ToLower(*u.SRSSource); s {
		case SourceDerived, SourceHTTP:
			options.SRSSource = s
		}
	}
	if u.SRSBaseURL != nil {
		options.SRSBaseURL = strings.TrimRight(*u.SRSBaseURL, "/")
	}
	if u.SRSSeed != nil && *u.SRSSeed != "" {
		options.SRSSeed = *u.SRSSeed
	}
	if u.MaxSRSSize != nil && *u.MaxSRSSize > 0 {
		options.MaxSRSSize = *u.MaxSRSSize
	}
	if u.RecursionOverhead != nil {
		options.RecursionOverhead = *u.RecursionOverhead
	}
	if u.Workers != nil && *u.Workers > 0 {
		options.Workers = *u.Workers
	}
	if u.QueueSize != nil && *u.QueueSize > 0 {
		options.QueueSize = *u.QueueSize
	}
	if u.CircuitCacheSize != nil && *u.CircuitCacheSize > 0 {
		options.CircuitCacheSize = *u.CircuitCacheSize
	}
	if u.ProvingKeyCacheSize != nil && *u.ProvingKeyCacheSize > 0 {
		options.ProvingKeyCacheSize = *u.ProvingKeyCacheSize
	}
}

// GetOptions 获取完整的配置选项
func (c *Config) GetOptions() *ZKOptions {
	return c.options
}
