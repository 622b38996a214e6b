package zkproof

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// proveMultiply 为 x·y=15 准备SRS与验证密钥并生成证明
func proveMultiply(t *testing.T, m *Manager, flags ZkFlags, values ...string) (bytecode string, vk, proof []byte) {
	t.Helper()
	ctx := context.Background()
	bytecode = mustBytecode(t, multiplyProgram())

	_, err := m.SetupSrs(ctx, bytecode, nil, false)
	require.NoError(t, err)
	vk, err = m.GetVerificationKey(ctx, bytecode, flags)
	require.NoError(t, err)

	w, err := m.WitnessFromStrings(values)
	require.NoError(t, err)
	proof, err = m.Prove(ctx, bytecode, w, vk, flags)
	require.NoError(t, err)
	return bytecode, vk, proof
}

func TestManagerProveAndVerify(t *testing.T) {
	m, _ := newTestManager(t)
	_, vk, proof := proveMultiply(t, m, ZkFlags{}, "3", "5")

	valid, err := m.Verify(context.Background(), proof, vk, false)
	require.NoError(t, err)
	assert.True(t, valid)

	// 公开值 y=5 位于证明封装中
	env, err := decodeProofEnvelope(proof)
	require.NoError(t, err)
	require.Len(t, env.public, 1)
	assert.Equal(t, byte(5), env.public[0][fieldBytes-1])
}

func TestManagerReleaseCaches(t *testing.T) {
	m, _ := newTestManager(t)
	bytecode, vk, _ := proveMultiply(t, m, ZkFlags{}, "3", "5")
	require.Positive(t, m.circuits.layouts.Len())
	require.Positive(t, m.circuits.circuits.Len())
	require.Positive(t, m.circuits.keys.Len())

	m.ReleaseCaches()
	assert.Zero(t, m.circuits.layouts.Len())
	assert.Zero(t, m.circuits.circuits.Len())
	assert.Zero(t, m.circuits.keys.Len())

	// 释放后按需重新编译，密钥保持一致
	w, err := m.WitnessFromStrings([]string{"3", "5"})
	require.NoError(t, err)
	proof, err := m.Prove(context.Background(), bytecode, w, vk, ZkFlags{})
	require.NoError(t, err)
	valid, err := m.Verify(context.Background(), proof, vk, false)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestManagerProveWithReturnValue(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	bc := mustBytecode(t, sumProgram())

	_, err := m.SetupSrs(ctx, bc, nil, false)
	require.NoError(t, err)
	vk, err := m.GetVerificationKey(ctx, bc, ZkFlags{})
	require.NoError(t, err)

	proof, err := m.Prove(ctx, bc, mustWitness(t, "200", "55"), vk, ZkFlags{})
	require.NoError(t, err)

	valid, err := m.Verify(ctx, proof, vk, false)
	require.NoError(t, err)
	assert.True(t, valid)

	_, err = m.Prove(ctx, bc, mustWitness(t, "300", "55"), vk, ZkFlags{})
	assert.ErrorIs(t, err, ErrProving)
}

func TestManagerProveUnsatisfied(t *testing.T) {
	m, _ := newTestManager(t)
	bc, vk, _ := proveMultiply(t, m, ZkFlags{}, "3", "5")

	_, err := m.Prove(context.Background(), bc, mustWitness(t, "3", "6"), vk, ZkFlags{})
	require.ErrorIs(t, err, ErrProving)
	kind, _ := KindOf(err)
	assert.Equal(t, KindProving, kind)
}

func TestManagerProveIncompleteWitness(t *testing.T) {
	m, _ := newTestManager(t)
	bc, vk, _ := proveMultiply(t, m, ZkFlags{}, "3", "5")

	_, err := m.Prove(context.Background(), bc, mustWitness(t, "3"), vk, ZkFlags{})
	require.ErrorIs(t, err, ErrIncompleteWitness)

	var zkErr *Error
	require.ErrorAs(t, err, &zkErr)
	assert.Equal(t, []uint32{2}, zkErr.Missing)
}

func TestManagerProveIncompleteWitnessChecksBeforeKey(t *testing.T) {
	m, _ := newTestManager(t)
	bc := mustBytecode(t, multiplyProgram())

	// 未准备SRS、密钥为垃圾：仍然先报告见证不完整
	_, err := m.Prove(context.Background(), bc, WitnessMap{}, []byte("junk"), ZkFlags{})
	assert.ErrorIs(t, err, ErrIncompleteWitness)
}

func TestManagerProveKeyMismatch(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	bc, vk, _ := proveMultiply(t, m, ZkFlags{}, "3", "5")
	w := mustWitness(t, "3", "5")

	t.Run("flags", func(t *testing.T) {
		_, err := m.Prove(ctx, bc, w, vk, ZkFlags{DisableZk: true})
		assert.ErrorIs(t, err, ErrKeyMismatch)
		assert.ErrorIs(t, err, ErrProving)
	})

	t.Run("other circuit", func(t *testing.T) {
		other := mustBytecode(t, sumProgram())
		_, err := m.SetupSrs(ctx, other, nil, false)
		require.NoError(t, err)
		otherVK, err := m.GetVerificationKey(ctx, other, ZkFlags{})
		require.NoError(t, err)

		_, err = m.Prove(ctx, bc, w, otherVK, ZkFlags{})
		assert.ErrorIs(t, err, ErrKeyMismatch)
	})

	t.Run("unparsable", func(t *testing.T) {
		_, err := m.Prove(ctx, bc, w, []byte("not a key"), ZkFlags{})
		assert.ErrorIs(t, err, ErrKeyMismatch)
	})
}

func TestManagerVerificationKeyDeterministic(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	bc := mustBytecode(t, multiplyProgram())
	_, err := m.SetupSrs(ctx, bc, nil, false)
	require.NoError(t, err)

	a, err := m.GetVerificationKey(ctx, bc, ZkFlags{})
	require.NoError(t, err)
	b, err := m.GetVerificationKey(ctx, bc, ZkFlags{})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	low, err := m.GetVerificationKey(ctx, bc, ZkFlags{LowMemoryMode: true})
	require.NoError(t, err)
	venv, err := decodeVKEnvelope(a)
	require.NoError(t, err)
	lenv, err := decodeVKEnvelope(low)
	require.NoError(t, err)
	assert.Equal(t, venv.key, lenv.key)
	assert.NotEqual(t, venv.flags, lenv.flags)
}

func TestManagerVerificationKeyRequiresSRS(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.GetVerificationKey(context.Background(), mustBytecode(t, multiplyProgram()), ZkFlags{})
	assert.ErrorIs(t, err, ErrVerificationKey)
	assert.ErrorIs(t, err, ErrSrsNotLoaded)
}

func TestManagerLowMemoryMode(t *testing.T) {
	m, _ := newTestManager(t)
	flags := ZkFlags{LowMemoryMode: true}
	_, vk, proof := proveMultiply(t, m, flags, "5", "3")

	valid, err := m.Verify(context.Background(), proof, vk, false)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestManagerVerifyRejectsTampering(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, vk, proof := proveMultiply(t, m, ZkFlags{}, "3", "5")

	bodyStart := envelopeHeaderLen + 4 + fieldBytes + 4
	require.Greater(t, len(proof), bodyStart)

	t.Run("body bit flips", func(t *testing.T) {
		for _, off := range []int{0, 17, (len(proof) - bodyStart) / 2, len(proof) - bodyStart - 1} {
			tampered := append([]byte(nil), proof...)
			tampered[bodyStart+off] ^= 0x01
			valid, err := m.Verify(ctx, tampered, vk, false)
			require.NoError(t, err, "offset %d", off)
			assert.False(t, valid, "offset %d", off)
		}
	})

	t.Run("public value", func(t *testing.T) {
		tampered := append([]byte(nil), proof...)
		tampered[envelopeHeaderLen+4+fieldBytes-1] = 6
		valid, err := m.Verify(ctx, tampered, vk, false)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("non-canonical public value", func(t *testing.T) {
		tampered := append([]byte(nil), proof...)
		for i := 0; i < fieldBytes; i++ {
			tampered[envelopeHeaderLen+4+i] = 0xff
		}
		valid, err := m.Verify(ctx, tampered, vk, false)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("digest", func(t *testing.T) {
		tampered := append([]byte(nil), proof...)
		tampered[6] ^= 0x80
		valid, err := m.Verify(ctx, tampered, vk, false)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("disableZk mismatch", func(t *testing.T) {
		valid, err := m.Verify(ctx, proof, vk, true)
		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func TestManagerVerifyMalformedInput(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, vk, proof := proveMultiply(t, m, ZkFlags{}, "3", "5")

	_, err := m.Verify(ctx, proof[:len(proof)-1], vk, false)
	assert.ErrorIs(t, err, ErrProofFormat)

	_, err = m.Verify(ctx, proof, vk[:10], false)
	assert.ErrorIs(t, err, ErrProofFormat)

	_, err = m.Verify(ctx, []byte("garbage"), vk, false)
	assert.ErrorIs(t, err, ErrProofFormat)

	// 封装完整但密钥主体无法解析
	venv, err := decodeVKEnvelope(vk)
	require.NoError(t, err)
	broken := encodeVKEnvelope(ZkFlags{}, venv.digest, []byte{1, 2, 3})
	_, err = m.Verify(ctx, proof, broken, false)
	assert.ErrorIs(t, err, ErrProofFormat)
}

func TestManagerSetupSrs(t *testing.T) {
	m, source := newTestManager(t)
	ctx := context.Background()
	bc := mustBytecode(t, multiplyProgram())

	info, err := m.CircuitInfo(bc)
	require.NoError(t, err)
	assert.Equal(t, 1, info.PublicInputs)
	assert.Equal(t, []uint32{1, 2}, info.RequiredInput)

	size, err := m.SetupSrs(ctx, bc, nil, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(TierFor(uint64(info.CircuitSize))), size)

	again, err := m.SetupSrs(ctx, bc, nil, false)
	require.NoError(t, err)
	assert.Equal(t, size, again)
	assert.Equal(t, int32(1), source.calls.Load())

	withRecursion, err := m.SetupSrs(ctx, bc, nil, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(TierFor(uint64(info.CircuitSize)+16)), withRecursion)

	active, err := m.ActiveSRS()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, active.Tier(), withRecursion)
}

func TestManagerSetupSrsErrors(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.SetupSrs(ctx, "%%%", nil, false)
	assert.ErrorIs(t, err, ErrSrsProvision)
	assert.ErrorIs(t, err, ErrInvalidBytecode)

	err = m.SetupSrsWithSize(ctx, 1<<30, nil)
	assert.ErrorIs(t, err, ErrSrsProvision)

	require.NoError(t, m.SetupSrsWithSize(ctx, 100, nil))
	active, err := m.ActiveSRS()
	require.NoError(t, err)
	assert.Equal(t, uint32(128), active.Tier())
}
