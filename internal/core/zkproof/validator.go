package zkproof

import (
	"bytes"
	"context"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/backend/witness"
	"golang.org/x/crypto/sha3"

	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
)

// Validator ZK证明验证器
//
// 验证是输入的纯函数：封装层面无法解析的字节返回 ProofFormatError，
// 其余任何不一致（标志、电路摘要、群元素、公开值、配对检查）都返回 false。
type Validator struct {
	logger log.Logger
}

// NewValidator 创建验证器
func NewValidator(logger log.Logger) *Validator {
	return &Validator{logger: logger}
}

// Verify 验证证明
func (v *Validator) Verify(_ context.Context, proofBytes, vkBytes []byte, disableZk bool) (valid bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			v.debugf("验证过程中解码失败: %v", r)
			valid, err = false, nil
		}
	}()

	venv, err := decodeVKEnvelope(vkBytes)
	if err != nil {
		return false, WrapProofFormatError("verify", "verification key: %v", err)
	}
	penv, err := decodeProofEnvelope(proofBytes)
	if err != nil {
		return false, WrapProofFormatError("verify", "proof: %v", err)
	}

	vk := plonk.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(venv.key)); err != nil {
		return false, WrapProofFormatError("verify", "verification key body: %v", err)
	}

	if (venv.flags&flagDisableZk != 0) != disableZk || penv.flags != venv.flags {
		v.debugf("标志不一致: vk=%#x, proof=%#x, disableZk=%t", venv.flags, penv.flags, disableZk)
		return false, nil
	}
	if penv.digest != venv.digest {
		v.debugf("证明与验证密钥的电路摘要不一致")
		return false, nil
	}

	proof := plonk.NewProof(ecc.BN254)
	n, err := proof.ReadFrom(bytes.NewReader(penv.body))
	if err != nil || n != int64(len(penv.body)) {
		v.debugf("证明主体无法解码: %v", err)
		return false, nil
	}

	publicWitness, err := buildPublicWitness(penv.public)
	if err != nil {
		v.debugf("公开值无效: %v", err)
		return false, nil
	}

	if err := plonk.Verify(proof, vk, publicWitness,
		backend.WithVerifierChallengeHashFunction(sha3.NewLegacyKeccak256())); err != nil {
		v.debugf("配对检查失败: %v", err)
		return false, nil
	}
	return true, nil
}

// buildPublicWitness 由封装中的公开值构造gnark公开见证
func buildPublicWitness(values [][]byte) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	ch := make(chan any, len(values))
	for i, b := range values {
		e, err := fieldFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("public value %d: %w", i, err)
		}
		ch <- e
	}
	close(ch)

	if err := w.Fill(len(values), 0, ch); err != nil {
		return nil, err
	}
	return w, nil
}

func (v *Validator) debugf(format string, args ...interface{}) {
	if v.logger != nil {
		v.logger.Debugf(format, args...)
	}
}
