package zkproof

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"golang.org/x/sync/singleflight"

	zkconfig "github.com/weisyn/noirzk/internal/config/zkproof"
	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
)

// ============================================================================
//                              SRS 准备与缓存
// ============================================================================
//
// 缓存布局：<dir>/bn254_g1_<tier>.srs，tier 为2的幂，文件包含 tier+3 个G1点。
// 文件写入采用 临时文件 + fsync + rename，并由目录级 flock 串行化跨进程写入；
// 同一进程内对同一目标的并发请求由 singleflight 合并。

// srsExtraPoints canonical SRS 比 tier 多出的点数（与 gnark plonk 的 SRSSize 一致）
const srsExtraPoints = 3

var srsFilePattern = regexp.MustCompile(`^bn254_g1_(\d+)\.srs$`)

func srsFileName(tier uint32) string {
	return fmt.Sprintf("bn254_g1_%d.srs", tier)
}

// TierFor 计算覆盖 size 的SRS档位（不小于 size 的2的幂）
func TierFor(size uint64) uint64 {
	if size <= 1 {
		return 1
	}
	return ecc.NextPowerOfTwo(size)
}

// LoadedSRS 已加载的SRS
type LoadedSRS struct {
	srs      *kzg.SRS
	tier     uint32
	location string // 文件路径
	source   string

	mu       sync.Mutex
	lagrange map[int][]bn254.G1Affine
}

// Tier SRS档位
func (s *LoadedSRS) Tier() uint32 { return s.tier }

// Location 文件路径
func (s *LoadedSRS) Location() string { return s.location }

// id 用于证明密钥缓存的标识
func (s *LoadedSRS) id() string {
	return fmt.Sprintf("%s#%d", s.location, s.tier)
}

// canonical 截取前 size 个点的视图
func (s *LoadedSRS) canonical(size int) (*kzg.SRS, error) {
	if size > len(s.srs.Pk.G1) {
		return nil, fmt.Errorf("SRS has %d points, circuit needs %d", len(s.srs.Pk.G1), size)
	}
	return &kzg.SRS{Pk: kzg.ProvingKey{G1: s.srs.Pk.G1[:size]}, Vk: s.srs.Vk}, nil
}

// lagrangeForm 计算（并可选缓存）size 点的拉格朗日基SRS
func (s *LoadedSRS) lagrangeForm(size int, useCache bool) (*kzg.SRS, error) {
	if size > len(s.srs.Pk.G1) {
		return nil, fmt.Errorf("SRS has %d points, circuit needs %d", len(s.srs.Pk.G1), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if g1, ok := s.lagrange[size]; ok {
		return &kzg.SRS{Pk: kzg.ProvingKey{G1: g1}, Vk: s.srs.Vk}, nil
	}
	g1, err := kzg.ToLagrangeG1(s.srs.Pk.G1[:size])
	if err != nil {
		return nil, err
	}
	if useCache {
		if s.lagrange == nil {
			s.lagrange = make(map[int][]bn254.G1Affine)
		}
		s.lagrange[size] = g1
	}
	return &kzg.SRS{Pk: kzg.ProvingKey{G1: g1}, Vk: s.srs.Vk}, nil
}

// SRSStore SRS准备器，持有进程级的当前SRS
type SRSStore struct {
	opts   *zkconfig.ZKOptions
	source SRSSource
	logger log.Logger

	group singleflight.Group

	mu     sync.RWMutex
	active *LoadedSRS
}

// NewSRSStore 创建SRS准备器
func NewSRSStore(opts *zkconfig.ZKOptions, source SRSSource, logger log.Logger) *SRSStore {
	return &SRSStore{opts: opts, source: source, logger: logger}
}

// Active 返回当前SRS
func (s *SRSStore) Active() (*LoadedSRS, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, ErrSrsNotLoaded
	}
	return s.active, nil
}

// srsTarget 解析后的缓存目标
type srsTarget struct {
	dir  string
	file string // 非空表示调用方指定了具体文件
}

// resolveTarget path 为空使用默认目录；以 .srs 结尾或指向已有普通文件时视为具体文件，否则视为目录
func (s *SRSStore) resolveTarget(path *string) (srsTarget, error) {
	p := s.opts.SRSDir
	if path != nil && *path != "" {
		p = *path
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return srsTarget{}, err
	}

	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return srsTarget{dir: filepath.Dir(abs), file: abs}, nil
	}
	if filepath.Ext(abs) == ".srs" {
		return srsTarget{dir: filepath.Dir(abs), file: abs}, nil
	}
	return srsTarget{dir: abs}, nil
}

// Ensure 保证当前SRS至少覆盖 tier，必要时从缓存加载或从来源获取
func (s *SRSStore) Ensure(ctx context.Context, tier uint64, path *string) (*LoadedSRS, error) {
	if tier > uint64(s.opts.MaxSRSSize) {
		zkSrsProvisionTotal.WithLabelValues("limit", "error").Inc()
		return nil, WrapSrsProvisionError("srs.ensure", nil, "size %d exceeds maximum %d", tier, s.opts.MaxSRSSize)
	}

	target, err := s.resolveTarget(path)
	if err != nil {
		return nil, WrapSrsProvisionError("srs.ensure", err, "resolve SRS path")
	}

	// 快速路径：当前SRS已覆盖且来自同一位置
	s.mu.RLock()
	active := s.active
	s.mu.RUnlock()
	if active != nil && uint64(active.tier) >= tier && target.covers(active.location) {
		zkSrsProvisionTotal.WithLabelValues("active", "hit").Inc()
		return active, nil
	}

	key := fmt.Sprintf("%s|%s|%d", target.dir, target.file, tier)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.provision(ctx, target, uint32(tier))
	})
	if err != nil {
		return nil, err
	}

	loaded := v.(*LoadedSRS)
	s.mu.Lock()
	s.active = loaded
	s.mu.Unlock()
	return loaded, nil
}

// covers 判断已加载的文件是否属于该目标
func (t srsTarget) covers(location string) bool {
	if t.file != "" {
		return location == t.file
	}
	return filepath.Dir(location) == t.dir
}

// provision 在文件锁内加载已有缓存或获取并写入新的SRS
func (s *SRSStore) provision(ctx context.Context, target srsTarget, tier uint32) (*LoadedSRS, error) {
	if err := os.MkdirAll(target.dir, 0o755); err != nil {
		return nil, WrapSrsProvisionError("srs.provision", err, "create SRS directory %s", target.dir)
	}

	lock, err := acquireFileLock(filepath.Join(target.dir, ".srs.lock"))
	if err != nil {
		return nil, WrapSrsProvisionError("srs.provision", err, "lock SRS directory")
	}
	defer lock.release()

	// 1. 查找已有缓存（锁内再次检查，其他进程可能刚写完）
	if target.file != "" {
		// 指定文件：点数不足或无法解析时重新获取并覆盖该文件
		loaded, err := loadSRSFile(target.file, tier)
		if err == nil {
			zkSrsProvisionTotal.WithLabelValues("cache", "hit").Inc()
			return loaded, nil
		}
		if !os.IsNotExist(err) && s.logger != nil {
			s.logger.Infof("指定的SRS文件不可用，重新获取: path=%s, tier=%d, reason=%v", target.file, tier, err)
		}
	} else if existing, existingTier, ok := s.findCached(target, tier); ok {
		loaded, err := loadSRSFile(existing, existingTier)
		if err != nil {
			zkSrsProvisionTotal.WithLabelValues("cache", "error").Inc()
			return nil, WrapSrsProvisionError("srs.provision", err, "load cached SRS %s", existing)
		}
		zkSrsProvisionTotal.WithLabelValues("cache", "hit").Inc()
		if s.logger != nil {
			s.logger.Debugf("复用已缓存的SRS: path=%s, tier=%d", existing, existingTier)
		}
		return loaded, nil
	}

	// 2. 从来源获取
	start := time.Now()
	size := uint64(tier) + srsExtraPoints
	srs, err := s.source.Fetch(ctx, tier, size)
	if err != nil {
		zkSrsProvisionTotal.WithLabelValues(s.source.Name(), "error").Inc()
		return nil, WrapSrsProvisionError("srs.provision", err, "fetch SRS tier %d from %s source", tier, s.source.Name())
	}
	if uint64(len(srs.Pk.G1)) < size {
		zkSrsProvisionTotal.WithLabelValues(s.source.Name(), "error").Inc()
		return nil, WrapSrsProvisionError("srs.provision", nil, "source returned %d points, need %d", len(srs.Pk.G1), size)
	}
	srs.Pk.G1 = srs.Pk.G1[:size]

	// 3. 原子写入
	dest := target.file
	if dest == "" {
		dest = filepath.Join(target.dir, srsFileName(tier))
	}
	if err := writeSRSAtomic(dest, srs); err != nil {
		zkSrsProvisionTotal.WithLabelValues(s.source.Name(), "error").Inc()
		return nil, WrapSrsProvisionError("srs.provision", err, "persist SRS to %s", dest)
	}
	zkSrsProvisionTotal.WithLabelValues(s.source.Name(), "fetched").Inc()

	if s.logger != nil {
		s.logger.Infof("SRS已写入缓存: path=%s, tier=%d, source=%s, 耗时=%s", dest, tier, s.source.Name(), time.Since(start))
	}
	return &LoadedSRS{srs: srs, tier: tier, location: dest, source: s.source.Name()}, nil
}

// findCached 在缓存目录中查找覆盖 tier 的最小缓存文件
func (s *SRSStore) findCached(target srsTarget, tier uint32) (string, uint32, bool) {
	entries, err := os.ReadDir(target.dir)
	if err != nil {
		return "", 0, false
	}

	var (
		best     string
		bestTier uint32
	)
	for _, e := range entries {
		m := srsFilePattern.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		t, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil || uint32(t) < tier {
			continue
		}
		if best == "" || uint32(t) < bestTier {
			best, bestTier = filepath.Join(target.dir, e.Name()), uint32(t)
		}
	}
	return best, bestTier, best != ""
}

// loadSRSFile 读取SRS文件并校验点数
func loadSRSFile(path string, tier uint32) (*LoadedSRS, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var srs kzg.SRS
	if _, err := srs.ReadFrom(bufio.NewReaderSize(f, 1<<20)); err != nil {
		return nil, fmt.Errorf("decode SRS: %w", err)
	}
	if uint64(len(srs.Pk.G1)) < uint64(tier)+srsExtraPoints {
		return nil, fmt.Errorf("SRS file holds %d points, tier %d needs %d", len(srs.Pk.G1), tier, uint64(tier)+srsExtraPoints)
	}

	// 指定文件可能大于请求档位，按实际点数确定档位
	actual := uint32(1)
	for uint64(actual)*2+srsExtraPoints <= uint64(len(srs.Pk.G1)) {
		actual *= 2
	}
	return &LoadedSRS{srs: &srs, tier: actual, location: path, source: "cache"}, nil
}

// writeSRSAtomic 写入临时文件、fsync 后重命名，读者不会看到半写入的文件
func writeSRSAtomic(dest string, srs *kzg.SRS) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".bn254_g1_*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriterSize(tmp, 1<<20)
	if _, err = srs.WriteRawTo(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
