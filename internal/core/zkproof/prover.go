package zkproof

import (
	"bytes"
	"context"
	"runtime/debug"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"
	"golang.org/x/crypto/sha3"

	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
)

// Prover ZK证明生成器
//
// 🎯 **专门职责**：
//   - 在任何密码学计算之前检查见证是否提供了全部输入
//   - 校验验证密钥与电路、标志一致
//   - 求解中间见证，生成 PLONK 证明（Keccak-256 Fiat-Shamir）并封装
type Prover struct {
	logger   log.Logger
	circuits *CircuitManager
	srs      *SRSStore
}

// NewProver 创建证明生成器
func NewProver(logger log.Logger, circuits *CircuitManager, srs *SRSStore) *Prover {
	return &Prover{logger: logger, circuits: circuits, srs: srs}
}

// Prove 生成证明
func (p *Prover) Prove(_ context.Context, bytecode string, witness WitnessMap, vkBytes []byte, flags ZkFlags) ([]byte, error) {
	useCache := !flags.LowMemoryMode
	if flags.LowMemoryMode {
		defer debug.FreeOSMemory()
	}

	// 1. 解析电路并检查输入完整性（无密码学计算）
	layout, err := p.circuits.parseLayout(bytecode, useCache)
	if err != nil {
		return nil, WrapProvingError(err, "decode circuit")
	}
	if missing := layout.missingInputs(witness); len(missing) > 0 {
		return nil, WrapIncompleteWitnessError(missing)
	}

	// 2. 校验验证密钥
	env, err := decodeVKEnvelope(vkBytes)
	if err != nil {
		return nil, WrapKeyMismatchError("verification key cannot be parsed: %v", err)
	}
	if env.flags != flags.encode() {
		return nil, WrapKeyMismatchError("verification key was generated with different flags, prove called with %s", flags)
	}
	if env.digest != layout.digest {
		return nil, WrapKeyMismatchError("verification key belongs to a different circuit")
	}

	// 3. 求解中间见证
	solved, err := solveWitness(layout, witness)
	if err != nil {
		return nil, err
	}

	// 4. 编译电路并准备密钥
	compiled, err := p.circuits.compile(layout, useCache)
	if err != nil {
		return nil, WrapProvingError(err, "compile circuit")
	}
	srs, err := p.srs.Active()
	if err != nil {
		return nil, WrapProvingError(err, "")
	}
	pk, vk, err := p.circuits.SetupKeys(compiled, srs, useCache)
	if err != nil {
		return nil, WrapProvingError(err, "setup keys")
	}
	var vkBuf bytes.Buffer
	if _, err := vk.WriteTo(&vkBuf); err != nil {
		return nil, WrapProvingError(err, "serialize verification key")
	}
	if !bytes.Equal(vkBuf.Bytes(), env.key) {
		return nil, WrapKeyMismatchError("verification key does not match the loaded SRS")
	}

	// 5. 生成证明
	start := time.Now()
	fullWitness, err := frontend.NewWitness(newAssignment(layout, solved), ecc.BN254.ScalarField())
	if err != nil {
		return nil, WrapProvingError(err, "build witness")
	}
	proof, err := plonk.Prove(compiled.ccs, pk, fullWitness,
		backend.WithProverChallengeHashFunction(sha3.NewLegacyKeccak256()))
	if err != nil {
		return nil, WrapProvingError(err, "")
	}

	var body bytes.Buffer
	if _, err := proof.WriteTo(&body); err != nil {
		return nil, WrapProvingError(err, "serialize proof")
	}

	publicValues := layout.publicValuesOf(solved)
	public := make([][]byte, len(publicValues))
	for i := range publicValues {
		public[i] = fieldToBytes(&publicValues[i])
	}

	if p.logger != nil {
		p.logger.Debugf("证明生成完成: digest=%x, public=%d, 耗时=%s", layout.digest[:8], len(public), time.Since(start))
	}
	return encodeProofEnvelope(flags, layout.digest, public, body.Bytes()), nil
}
