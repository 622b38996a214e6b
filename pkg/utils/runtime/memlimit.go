// Package runtime 提供与Go运行时相关的辅助函数
package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroupLimitFiles cgroup v2 与 v1 的内存上限文件（相对 cgroup 根目录）
var cgroupLimitFiles = []string{
	"memory.max",
	filepath.Join("memory", "memory.limit_in_bytes"),
}

// 超过该值视为未限制（部分内核用极大值表示 unlimited）
const unlimitedThreshold = 1 << 60

// 内存上限来源
const (
	LimitSourceCgroup   = "cgroup"
	LimitSourcePhysical = "physical"
)

// MemoryLimit 内存上限设置结果
type MemoryLimit struct {
	Applied     bool   // 是否调用了 debug.SetMemoryLimit
	Source      string // cgroup | physical
	LimitBytes  uint64 // 检测到的上限，0 表示未检测到
	TargetBytes int64  // 设置的Go运行时上限
}

// ApplyMemoryLimit 按 cgroup 内存上限的 reserveRatio 比例设置Go运行时软上限
//
// 证明生成的峰值内存主要来自FFT与多标量乘法，容器中不设置软上限时容易被 OOM 直接终止。
// 未检测到 cgroup 上限时以物理内存为准。
// 用户显式设置 GOMEMLIMIT 时不做任何修改；reserveRatio 不在 (0,1) 内时取 0.8。
func ApplyMemoryLimit(reserveRatio float64) (MemoryLimit, error) {
	return applyMemoryLimit("/sys/fs/cgroup", memory.TotalMemory, reserveRatio)
}

func applyMemoryLimit(cgroupRoot string, physical func() uint64, reserveRatio float64) (MemoryLimit, error) {
	var res MemoryLimit
	if os.Getenv("GOMEMLIMIT") != "" {
		return res, nil
	}
	if reserveRatio <= 0 || reserveRatio >= 1 {
		reserveRatio = 0.8
	}

	limit, ok, err := cgroupMemoryLimit(cgroupRoot)
	if err != nil {
		return res, err
	}
	res.Source = LimitSourceCgroup
	if !ok {
		limit = physical()
		res.Source = LimitSourcePhysical
	}
	if limit == 0 {
		return res, nil
	}
	res.LimitBytes = limit

	res.TargetBytes = int64(float64(limit) * reserveRatio)
	if res.TargetBytes <= 0 {
		return res, nil
	}
	debug.SetMemoryLimit(res.TargetBytes)
	res.Applied = true
	return res, nil
}

// cgroupMemoryLimit 依次读取 v2、v1 的上限文件，第一个存在的文件决定结果
func cgroupMemoryLimit(root string) (uint64, bool, error) {
	for _, name := range cgroupLimitFiles {
		b, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		s := strings.TrimSpace(string(b))
		if s == "" || s == "max" {
			return 0, false, nil
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("parse %s: %w", name, err)
		}
		if v > unlimitedThreshold {
			return 0, false, nil
		}
		return v, true, nil
	}
	return 0, false, nil
}
