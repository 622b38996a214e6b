package zkproof

import (
	"bytes"
	"context"
	"runtime/debug"
	"time"

	zkconfig "github.com/weisyn/noirzk/internal/config/zkproof"
	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
)

// 操作名称（用于指标与日志）
const (
	opSetupSrs         = "setup_srs"
	opSetupSrsWithSize = "setup_srs_with_size"
	opVerificationKey  = "verification_key"
	opWitness          = "witness_from_strings"
	opProve            = "prove"
	opVerify           = "verify"
)

// Manager 零知识证明管理器
//
// 🎯 **设计理念**：薄实现，专注依赖注入和接口协调
// 🏗️ **架构原则**：Manager只做组装，业务逻辑委托给子组件
type Manager struct {
	// ==================== 基础设施服务 ====================
	logger log.Logger
	opts   *zkconfig.ZKOptions

	// ==================== 专门的子组件 ====================
	circuits  *CircuitManager // 电路管理器
	srs       *SRSStore       // SRS准备器
	prover    *Prover         // ZK证明生成器
	validator *Validator      // ZK证明验证器
}

// CircuitInfo 电路概要信息
type CircuitInfo struct {
	Digest        [32]byte
	Constraints   int
	PublicInputs  int
	CircuitSize   int // 2的幂域大小
	RequiredInput []uint32
}

// NewManager 创建零知识证明管理器
//
// 🏗️ **初始化顺序**：配置 → 子组件 → 组装Manager
func NewManager(opts *zkconfig.ZKOptions, source SRSSource, logger log.Logger) (*Manager, error) {
	if logger != nil {
		logger = logger.With("module", "zkproof")
	}

	circuits, err := NewCircuitManager(logger, opts.CircuitCacheSize, opts.ProvingKeyCacheSize)
	if err != nil {
		return nil, err
	}
	srs := NewSRSStore(opts, source, logger)

	return &Manager{
		logger:    logger,
		opts:      opts,
		circuits:  circuits,
		srs:       srs,
		prover:    NewProver(logger, circuits, srs),
		validator: NewValidator(logger),
	}, nil
}

// ==================== SRS ====================

// SetupSrs 为字节码对应的电路准备SRS，返回电路规模（SRS档位）
func (m *Manager) SetupSrs(ctx context.Context, bytecode string, srsPath *string, recursion bool) (size uint32, err error) {
	defer func(start time.Time) { observeOperation(opSetupSrs, start, err) }(time.Now())

	compiled, err := m.circuits.Load(bytecode, true)
	if err != nil {
		return 0, WrapSrsProvisionError("srs.setup", err, "load circuit")
	}

	required := uint64(compiled.SizeLagrange())
	if recursion {
		required += uint64(m.opts.RecursionOverhead)
	}
	loaded, err := m.srs.Ensure(ctx, TierFor(required), srsPath)
	if err != nil {
		return 0, err
	}

	size = uint32(TierFor(required))
	m.infof("SRS setup complete, circuit size: %d", size)
	m.debugf("SRS位置: path=%s, tier=%d", loaded.Location(), loaded.Tier())
	return size, nil
}

// SetupSrsWithSize 准备覆盖指定规模的SRS
func (m *Manager) SetupSrsWithSize(ctx context.Context, circuitSize uint32, srsPath *string) (err error) {
	defer func(start time.Time) { observeOperation(opSetupSrsWithSize, start, err) }(time.Now())

	if _, err = m.srs.Ensure(ctx, TierFor(uint64(circuitSize)), srsPath); err != nil {
		return err
	}
	m.infof("SRS with size %d setup complete", circuitSize)
	return nil
}

// ActiveSRS 返回当前SRS
func (m *Manager) ActiveSRS() (*LoadedSRS, error) {
	return m.srs.Active()
}

// ==================== 验证密钥 ====================

// GetVerificationKey 生成验证密钥（需先准备SRS）
func (m *Manager) GetVerificationKey(_ context.Context, bytecode string, flags ZkFlags) (key []byte, err error) {
	defer func(start time.Time) { observeOperation(opVerificationKey, start, err) }(time.Now())

	useCache := !flags.LowMemoryMode
	if flags.LowMemoryMode {
		defer debug.FreeOSMemory()
	}

	srs, err := m.srs.Active()
	if err != nil {
		return nil, WrapVerificationKeyError(err, "")
	}
	compiled, err := m.circuits.Load(bytecode, useCache)
	if err != nil {
		return nil, WrapVerificationKeyError(err, "load circuit")
	}
	_, vk, err := m.circuits.SetupKeys(compiled, srs, useCache)
	if err != nil {
		return nil, WrapVerificationKeyError(err, "")
	}

	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return nil, WrapVerificationKeyError(err, "serialize")
	}
	return encodeVKEnvelope(flags, compiled.Digest(), buf.Bytes()), nil
}

// ==================== 见证 ====================

// WitnessFromStrings 解析见证字符串
func (m *Manager) WitnessFromStrings(values []string) (w WitnessMap, err error) {
	defer func(start time.Time) { observeOperation(opWitness, start, err) }(time.Now())
	return WitnessFromStrings(values)
}

// ==================== 证明与验证 ====================

// Prove 生成证明
func (m *Manager) Prove(ctx context.Context, bytecode string, witness WitnessMap, vk []byte, flags ZkFlags) (proof []byte, err error) {
	defer func(start time.Time) { observeOperation(opProve, start, err) }(time.Now())
	return m.prover.Prove(ctx, bytecode, witness, vk, flags)
}

// Verify 验证证明
func (m *Manager) Verify(ctx context.Context, proof, vk []byte, disableZk bool) (valid bool, err error) {
	defer func(start time.Time) { observeVerification(start, valid, err) }(time.Now())
	return m.validator.Verify(ctx, proof, vk, disableZk)
}

// CircuitInfo 解析并编译电路，返回概要信息
func (m *Manager) CircuitInfo(bytecode string) (*CircuitInfo, error) {
	compiled, err := m.circuits.Load(bytecode, true)
	if err != nil {
		return nil, err
	}
	required := make([]uint32, len(compiled.layout.inputs))
	for i, idx := range compiled.layout.inputs {
		required[i] = uint32(idx)
	}
	return &CircuitInfo{
		Digest:        compiled.Digest(),
		Constraints:   compiled.NbConstraints(),
		PublicInputs:  compiled.NbPublic(),
		CircuitSize:   compiled.SizeLagrange(),
		RequiredInput: required,
	}, nil
}

// ReleaseCaches 释放已编译电路与密钥缓存，之后的请求按需重新编译
func (m *Manager) ReleaseCaches() {
	m.circuits.Purge()
	m.debugf("电路与密钥缓存已释放")
}

func (m *Manager) infof(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Infof(format, args...)
	}
}

func (m *Manager) debugf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Debugf(format, args...)
	}
}
