package zkproof

import (
	"crypto/sha256"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
)

// CompiledCircuit 编译后的电路
type CompiledCircuit struct {
	layout        *circuitLayout
	ccs           constraint.ConstraintSystem
	sizeCanonical int
	sizeLagrange  int
}

// Digest 电路摘要（规范化程序编码的SHA-256）
func (c *CompiledCircuit) Digest() [32]byte { return c.layout.digest }

// SizeLagrange 电路域大小（2的幂）
func (c *CompiledCircuit) SizeLagrange() int { return c.sizeLagrange }

// NbConstraints 约束数量
func (c *CompiledCircuit) NbConstraints() int { return c.ccs.GetNbConstraints() }

// NbPublic 公开输入数量
func (c *CompiledCircuit) NbPublic() int { return len(c.layout.public) }

// keyPair 证明密钥与验证密钥
type keyPair struct {
	pk plonk.ProvingKey
	vk plonk.VerifyingKey
}

type keyCacheKey struct {
	digest [32]byte
	srs    string
}

// CircuitManager 电路管理器
//
// 🎯 **专门职责**：
//   - 解析字节码并构建电路布局
//   - 将电路编译为 PLONK 稀疏约束系统，按字节码摘要缓存
//   - 基于当前SRS生成证明/验证密钥，按（电路, SRS）缓存
type CircuitManager struct {
	logger log.Logger

	layouts  *lru.Cache[[32]byte, *circuitLayout]
	circuits *lru.Cache[[32]byte, *CompiledCircuit]
	keys     *lru.Cache[keyCacheKey, *keyPair]

	group singleflight.Group
}

// NewCircuitManager 创建电路管理器
func NewCircuitManager(logger log.Logger, circuitCacheSize, keyCacheSize int) (*CircuitManager, error) {
	if circuitCacheSize <= 0 {
		circuitCacheSize = 1
	}
	if keyCacheSize <= 0 {
		keyCacheSize = 1
	}

	layouts, err := lru.New[[32]byte, *circuitLayout](circuitCacheSize * 4)
	if err != nil {
		return nil, fmt.Errorf("创建布局缓存失败: %w", err)
	}
	circuits, err := lru.New[[32]byte, *CompiledCircuit](circuitCacheSize)
	if err != nil {
		return nil, fmt.Errorf("创建电路缓存失败: %w", err)
	}
	keys, err := lru.New[keyCacheKey, *keyPair](keyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("创建密钥缓存失败: %w", err)
	}

	return &CircuitManager{
		logger:   logger,
		layouts:  layouts,
		circuits: circuits,
		keys:     keys,
	}, nil
}

// parseLayout 解码字节码并构建布局（不编译）
func (m *CircuitManager) parseLayout(bytecode string, useCache bool) (*circuitLayout, error) {
	key := sha256.Sum256([]byte(bytecode))
	if useCache {
		if l, ok := m.layouts.Get(key); ok {
			return l, nil
		}
	}

	p, err := DecodeBytecode(bytecode)
	if err != nil {
		return nil, err
	}
	l, err := newCircuitLayout(p)
	if err != nil {
		return nil, err
	}
	if useCache {
		m.layouts.Add(key, l)
	}
	return l, nil
}

// compile 编译电路布局
func (m *CircuitManager) compile(l *circuitLayout, useCache bool) (*CompiledCircuit, error) {
	if useCache {
		if c, ok := m.circuits.Get(l.digest); ok {
			return c, nil
		}
	}

	v, err, _ := m.group.Do(fmt.Sprintf("compile/%x", l.digest), func() (interface{}, error) {
		ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, newProgramCircuit(l))
		if err != nil {
			return nil, fmt.Errorf("编译电路失败: %w", err)
		}
		sizeCanonical, sizeLagrange := plonk.SRSSize(ccs)
		return &CompiledCircuit{
			layout:        l,
			ccs:           ccs,
			sizeCanonical: sizeCanonical,
			sizeLagrange:  sizeLagrange,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	c := v.(*CompiledCircuit)
	if useCache {
		m.circuits.Add(l.digest, c)
	}
	if m.logger != nil {
		m.logger.Debugf("电路已编译: digest=%x, constraints=%d, domain=%d", l.digest[:8], c.NbConstraints(), c.sizeLagrange)
	}
	return c, nil
}

// Load 解析并编译字节码
func (m *CircuitManager) Load(bytecode string, useCache bool) (*CompiledCircuit, error) {
	l, err := m.parseLayout(bytecode, useCache)
	if err != nil {
		return nil, err
	}
	return m.compile(l, useCache)
}

// SetupKeys 基于SRS生成电路的证明密钥与验证密钥
func (m *CircuitManager) SetupKeys(c *CompiledCircuit, srs *LoadedSRS, useCache bool) (plonk.ProvingKey, plonk.VerifyingKey, error) {
	if int(srs.tier) < c.sizeLagrange {
		return nil, nil, fmt.Errorf("SRS size %d is smaller than circuit size %d, run SRS setup for this circuit first", srs.tier, c.sizeLagrange)
	}

	key := keyCacheKey{digest: c.layout.digest, srs: srs.id()}
	if useCache {
		if kp, ok := m.keys.Get(key); ok {
			return kp.pk, kp.vk, nil
		}
	}

	canonical, err := srs.canonical(c.sizeCanonical)
	if err != nil {
		return nil, nil, err
	}
	lagrange, err := srs.lagrangeForm(c.sizeLagrange, useCache)
	if err != nil {
		return nil, nil, fmt.Errorf("计算拉格朗日基SRS失败: %w", err)
	}

	pk, vk, err := plonk.Setup(c.ccs, canonical, lagrange)
	if err != nil {
		return nil, nil, fmt.Errorf("PLONK密钥生成失败: %w", err)
	}
	if useCache {
		m.keys.Add(key, &keyPair{pk: pk, vk: vk})
	}
	return pk, vk, nil
}

// Purge 清空所有缓存
func (m *CircuitManager) Purge() {
	m.layouts.Purge()
	m.circuits.Purge()
	m.keys.Purge()
}
