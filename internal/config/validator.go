package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/weisyn/noirzk/pkg/types"
)

// ValidationError 配置验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("配置验证失败 [%s]: %s", e.Field, e.Message)
}

// ValidateAppConfig 在启动时校验用户配置
//
// 📋 **校验项**：
// - zkproof.srs_source 只能是 derived 或 http
// - http 来源必须配置合法的 srs_base_url
// - zkproof.max_srs_size 必须是2的幂
// - log.level 必须是已知级别
func ValidateAppConfig(cfg *types.AppConfig) error {
	if cfg == nil {
		return nil
	}

	if cfg.Log != nil && cfg.Log.Level != nil {
		switch strings.ToLower(*cfg.Log.Level) {
		case "debug", "info", "warn", "error", "fatal":
		default:
			return &ValidationError{Field: "log.level", Message: fmt.Sprintf("未知日志级别 %q", *cfg.Log.Level)}
		}
	}

	zk := cfg.ZKProof
	if zk == nil {
		return nil
	}

	source := "derived"
	if zk.SRSSource != nil {
		source = strings.ToLower(*zk.SRSSource)
	}
	switch source {
	case "derived":
	case "http":
		if zk.SRSBaseURL == nil || *zk.SRSBaseURL == "" {
			return &ValidationError{Field: "zkproof.srs_base_url", Message: "http 来源必须配置下载地址"}
		}
		u, err := url.Parse(*zk.SRSBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "zkproof.srs_base_url", Message: fmt.Sprintf("非法地址 %q", *zk.SRSBaseURL)}
		}
	default:
		return &ValidationError{Field: "zkproof.srs_source", Message: fmt.Sprintf("未知SRS来源 %q", source)}
	}

	if zk.MaxSRSSize != nil {
		n := *zk.MaxSRSSize
		if n == 0 || n&(n-1) != 0 {
			return &ValidationError{Field: "zkproof.max_srs_size", Message: fmt.Sprintf("%d 不是2的幂", n)}
		}
	}
	return nil
}
