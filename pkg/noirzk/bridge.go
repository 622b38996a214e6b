// Package noirzk 提供零知识证明生命周期的边界接口
//
// 每个操作都在后台工作线程上执行并立即返回 Future；失败时的错误带有稳定的操作前缀，
// 同时保留结构化类别，可用 errors.Is(err, zkproof.ErrProving) 等方式判断。
package noirzk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"github.com/weisyn/noirzk/internal/config"
	logconfig "github.com/weisyn/noirzk/internal/config/log"
	corelog "github.com/weisyn/noirzk/internal/core/infrastructure/log"
	"github.com/weisyn/noirzk/internal/core/zkproof"
	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/noirzk/pkg/types"
)

var initOnce sync.Once

// Init 配置进程级诊断状态，只生效一次，可重复调用
//
// gnark 内部的 zerolog 输出被丢弃，诊断信息统一走本库的日志。
func Init() {
	initOnce.Do(func() {
		gnarklogger.Set(zerolog.New(io.Discard))
	})
}

// Bridge 边界接口
type Bridge struct {
	manager *zkproof.Manager
	pool    *zkproof.WorkerPool
	logger  log.Logger
	owned   bool // 由 NewFromConfig 创建的工作线程池需要由 Close 停止
}

// New 使用已有的管理器与工作线程池创建边界接口
func New(manager *zkproof.Manager, pool *zkproof.WorkerPool, logger log.Logger) *Bridge {
	return &Bridge{manager: manager, pool: pool, logger: logger}
}

// NewFromConfig 按应用配置组装全部组件（不依赖 fx）
func NewFromConfig(appConfig *types.AppConfig) (*Bridge, error) {
	Init()

	provider := config.NewProvider(appConfig)
	logger, err := corelog.New(logconfig.NewFromOptions(provider.GetLog()))
	if err != nil {
		return nil, fmt.Errorf("创建日志记录器失败: %w", err)
	}

	opts := provider.GetZKProof()
	source, err := zkproof.NewSRSSource(opts)
	if err != nil {
		return nil, err
	}
	manager, err := zkproof.NewManager(opts, source, logger)
	if err != nil {
		return nil, err
	}

	pool := zkproof.NewWorkerPool(opts.Workers, opts.QueueSize, logger)
	pool.Start()

	b := New(manager, pool, logger)
	b.owned = true
	return b, nil
}

// Close 停止自有的工作线程池（等待已提交的任务完成）并释放电路缓存
func (b *Bridge) Close() error {
	if b.owned {
		b.pool.Stop()
		b.manager.ReleaseCaches()
	}
	if b.logger != nil {
		_ = b.logger.Sync()
	}
	return nil
}

// Manager 返回底层管理器
func (b *Bridge) Manager() *zkproof.Manager { return b.manager }

// submit 在工作线程上执行 fn；调度器层面的错误（已停止、panic）同样带上操作前缀
func submit[T any](b *Bridge, label, op string, fn func() (T, error)) *zkproof.Future[T] {
	return zkproof.Then(zkproof.Submit(b.pool, op, fn), func(v T, err error) (T, error) {
		if err == nil {
			return v, nil
		}
		if _, ok := LabelOf(err); ok {
			return v, err
		}
		return v, labeled(label, err)
	})
}

// SetupSrs 为电路准备SRS，结果为电路规模
func (b *Bridge) SetupSrs(bytecode string, srsPath *string, recursion bool) *zkproof.Future[uint32] {
	srsPath = clonePath(srsPath)
	return submit(b, LabelSetupSrs, "setup_srs", func() (uint32, error) {
		return b.manager.SetupSrs(context.Background(), bytecode, srsPath, recursion)
	})
}

// SetupSrsWithSize 准备指定规模的SRS
func (b *Bridge) SetupSrsWithSize(circuitSize uint32, srsPath *string) *zkproof.Future[struct{}] {
	srsPath = clonePath(srsPath)
	return submit(b, LabelSetupSrsWithSize, "setup_srs_with_size", func() (struct{}, error) {
		return struct{}{}, b.manager.SetupSrsWithSize(context.Background(), circuitSize, srsPath)
	})
}

// GetVerificationKey 生成验证密钥
func (b *Bridge) GetVerificationKey(bytecode string, disableZk, lowMemoryMode bool) *zkproof.Future[[]byte] {
	return submit(b, LabelVerificationKey, "verification_key", func() ([]byte, error) {
		return b.manager.GetVerificationKey(context.Background(), bytecode, zkproof.ZkFlags{
			DisableZk:     disableZk,
			LowMemoryMode: lowMemoryMode,
		})
	})
}

// WitnessFromStrings 将有序字符串列表转换为序列化见证
func (b *Bridge) WitnessFromStrings(values []string) *zkproof.Future[[]byte] {
	values = append([]string(nil), values...)
	return submit(b, LabelConvertWitness, "witness_from_strings", func() ([]byte, error) {
		w, err := b.manager.WitnessFromStrings(values)
		if err != nil {
			return nil, err
		}
		data, err := zkproof.SerializeWitness(w)
		if err != nil {
			return nil, labeled(LabelSerializeWitness, err)
		}
		return data, nil
	})
}

// Prove 生成证明
func (b *Bridge) Prove(bytecode string, serializedWitness, verificationKey []byte, disableZk, lowMemoryMode bool) *zkproof.Future[[]byte] {
	serializedWitness = bytes.Clone(serializedWitness)
	verificationKey = bytes.Clone(verificationKey)
	return submit(b, LabelProving, "prove", func() ([]byte, error) {
		w, err := zkproof.DeserializeWitness(serializedWitness)
		if err != nil {
			return nil, labeled(LabelDeserializeWitness, err)
		}
		return b.manager.Prove(context.Background(), bytecode, w, verificationKey, zkproof.ZkFlags{
			DisableZk:     disableZk,
			LowMemoryMode: lowMemoryMode,
		})
	})
}

// VerifyProof 验证证明
func (b *Bridge) VerifyProof(proof, verificationKey []byte, disableZk bool) *zkproof.Future[bool] {
	proof = bytes.Clone(proof)
	verificationKey = bytes.Clone(verificationKey)
	return submit(b, LabelProofVerification, "verify", func() (bool, error) {
		return b.manager.Verify(context.Background(), proof, verificationKey, disableZk)
	})
}

func clonePath(p *string) *string {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
