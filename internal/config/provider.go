package config

import (
	"path/filepath"

	"github.com/weisyn/noirzk/internal/config/log"
	"github.com/weisyn/noirzk/internal/config/zkproof"
	"github.com/weisyn/noirzk/pkg/interfaces/config"
	"github.com/weisyn/noirzk/pkg/types"
)

const defaultAppName = "noirzk"

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	return &Provider{appConfig: appConfig}
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	var userLogConfig *types.UserLogConfig
	if p.appConfig != nil {
		userLogConfig = p.appConfig.Log
	}
	return log.New(userLogConfig).GetOptions()
}

// GetZKProof 获取零知识证明配置
func (p *Provider) GetZKProof() *zkproof.ZKOptions {
	var userZKConfig *types.UserZKProofConfig
	if p.appConfig != nil {
		userZKConfig = p.appConfig.ZKProof
	}
	options := zkproof.New(userZKConfig).GetOptions()

	// 未显式指定 srs_dir 时，SRS 缓存放在 data_dir/srs 下
	explicitDir := userZKConfig != nil && userZKConfig.SRSDir != nil && *userZKConfig.SRSDir != ""
	if !explicitDir && p.appConfig != nil && p.appConfig.DataDir != nil && *p.appConfig.DataDir != "" {
		options.SRSDir = filepath.Join(*p.appConfig.DataDir, "srs")
	}
	return options
}

// GetAppName 获取应用名称
func (p *Provider) GetAppName() string {
	if p.appConfig != nil && p.appConfig.AppName != nil && *p.appConfig.AppName != "" {
		return *p.appConfig.AppName
	}
	return defaultAppName
}
