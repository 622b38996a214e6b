// Package config provides configuration provider interfaces.
package config

import (
	logconfig "github.com/weisyn/noirzk/internal/config/log"
	zkconfig "github.com/weisyn/noirzk/internal/config/zkproof"
)

// Provider 配置提供者接口
// 各模块通过它获取已应用默认值的配置选项
type Provider interface {
	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetZKProof 获取零知识证明配置
	GetZKProof() *zkconfig.ZKOptions

	// GetAppName 获取应用名称
	GetAppName() string
}
