package zkproof

import (
	"runtime"
	"time"
)

const (
	// defaultSRSDir 默认SRS缓存目录（相对于工作目录，配置了 data_dir 时由 Provider 改写）
	defaultSRSDir = "./data/srs"

	// defaultSRSSource 默认使用确定性派生的SRS
	defaultSRSSource = SourceDerived

	defaultSRSBaseURL = ""

	// defaultSRSSeed 派生SRS的默认种子
	defaultSRSSeed = "noirzk-dev-srs"

	// defaultMaxSRSSize 最大 2^23
	defaultMaxSRSSize = 1 << 23

	// defaultRecursionOverhead 递归验证额外需要的门数
	defaultRecursionOverhead = 1 << 16

	defaultDownloadTimeout = 10 * time.Minute

	defaultQueueSize = 64

	defaultCircuitCacheSize    = 16
	defaultProvingKeyCacheSize = 8
)

// defaultWorkers 默认工作线程数：CPU核数的一半，至少2个
func defaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	return n
}
