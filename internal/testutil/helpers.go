package testutil

import (
	"testing"

	zkconfig "github.com/weisyn/noirzk/internal/config/zkproof"
	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/noirzk/pkg/types"
)

// NewTestLogger 创建测试用日志记录器
func NewTestLogger() log.Logger {
	return &MockLogger{}
}

// NewTestBehavioralLogger 创建记录调用的日志记录器
func NewTestBehavioralLogger() *BehavioralMockLogger {
	return &BehavioralMockLogger{}
}

// NewTestZKOptions 创建使用临时SRS目录的配置
func NewTestZKOptions(t testing.TB) *zkconfig.ZKOptions {
	t.Helper()
	dir := t.TempDir()
	workers := 2
	cacheSize := 4
	opts := zkconfig.New(&types.UserZKProofConfig{
		SRSDir:              &dir,
		Workers:             &workers,
		CircuitCacheSize:    &cacheSize,
		ProvingKeyCacheSize: &cacheSize,
	}).GetOptions()
	// 测试中递归额外开销保持很小，避免派生大规模SRS
	opts.RecursionOverhead = 16
	return opts
}
