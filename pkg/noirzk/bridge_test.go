package noirzk

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/noirzk/internal/core/zkproof"
	"github.com/weisyn/noirzk/internal/testutil"
	"github.com/weisyn/noirzk/pkg/types"
)

// multiplyBytecode x·y = 15，x 私有，y 公开
func multiplyBytecode(t *testing.T) string {
	t.Helper()
	bc, err := zkproof.EncodeBytecode(&zkproof.Program{
		Version:             1,
		CurrentWitnessIndex: 2,
		PrivateParameters:   []uint32{1},
		PublicParameters:    []uint32{2},
		Opcodes: []zkproof.Opcode{{
			AssertZero: &zkproof.Expression{
				MulTerms: []zkproof.MulTerm{{Coefficient: "1", Left: 1, Right: 2}},
				Constant: "-15",
			},
		}},
	})
	require.NoError(t, err)
	return bc
}

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	Init()
	opts := testutil.NewTestZKOptions(t)
	logger := testutil.NewTestLogger()

	manager, err := zkproof.NewManager(opts, zkproof.NewDerivedSource("bridge-test"), logger)
	require.NoError(t, err)
	pool := zkproof.NewWorkerPool(2, 8, logger)
	pool.Start()
	t.Cleanup(pool.Stop)
	return New(manager, pool, logger)
}

func TestInitIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestBridgeFullFlow(t *testing.T) {
	b := newTestBridge(t)
	bc := multiplyBytecode(t)

	size, err := b.SetupSrs(bc, nil, false).Get()
	require.NoError(t, err)
	assert.NotZero(t, size)

	vk, err := b.GetVerificationKey(bc, false, false).Get()
	require.NoError(t, err)

	witness, err := b.WitnessFromStrings([]string{"3", "5"}).Get()
	require.NoError(t, err)

	proof, err := b.Prove(bc, witness, vk, false, false).Get()
	require.NoError(t, err)

	ok, err := b.VerifyProof(proof, vk, false).Get()
	require.NoError(t, err)
	assert.True(t, ok)

	// 不同的 disableZk 标志：不报错，结果为 false
	ok, err = b.VerifyProof(proof, vk, true).Get()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBridgeErrorLabels(t *testing.T) {
	b := newTestBridge(t)
	bc := multiplyBytecode(t)

	requireLabel := func(t *testing.T, err error, label string, sentinel error) {
		t.Helper()
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), label+": "), "got %q", err.Error())
		got, ok := LabelOf(err)
		require.True(t, ok)
		assert.Equal(t, label, got)
		if sentinel != nil {
			assert.ErrorIs(t, err, sentinel)
		}
	}

	t.Run("verification key before setup", func(t *testing.T) {
		_, err := b.GetVerificationKey(bc, false, false).Get()
		requireLabel(t, err, LabelVerificationKey, zkproof.ErrVerificationKey)
	})

	t.Run("setup srs with bad bytecode", func(t *testing.T) {
		_, err := b.SetupSrs("not-bytecode", nil, false).Get()
		requireLabel(t, err, LabelSetupSrs, zkproof.ErrSrsProvision)
	})

	t.Run("setup srs with size above maximum", func(t *testing.T) {
		_, err := b.SetupSrsWithSize(1<<30, nil).Get()
		requireLabel(t, err, LabelSetupSrsWithSize, zkproof.ErrSrsProvision)
	})

	t.Run("witness out of range", func(t *testing.T) {
		_, err := b.WitnessFromStrings([]string{"1", "x"}).Get()
		requireLabel(t, err, LabelConvertWitness, zkproof.ErrWitnessParse)
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, zkproof.KindWitnessParse, kind)
	})

	t.Run("prove with corrupt witness", func(t *testing.T) {
		_, err := b.Prove(bc, []byte{0x01, 0x02}, nil, false, false).Get()
		requireLabel(t, err, LabelDeserializeWitness, nil)
	})

	t.Run("prove incomplete witness", func(t *testing.T) {
		witness, err := b.WitnessFromStrings([]string{"3"}).Get()
		require.NoError(t, err)
		_, err = b.Prove(bc, witness, nil, false, false).Get()
		requireLabel(t, err, LabelProving, zkproof.ErrIncompleteWitness)
	})

	t.Run("verify truncated proof", func(t *testing.T) {
		_, err := b.VerifyProof([]byte("NZPF"), []byte("NZVK"), false).Get()
		requireLabel(t, err, LabelProofVerification, zkproof.ErrProofFormat)
	})

	t.Run("stopped pool", func(t *testing.T) {
		pool := zkproof.NewWorkerPool(1, 4, testutil.NewTestLogger())
		pool.Start()
		pool.Stop()
		stopped := New(b.Manager(), pool, testutil.NewTestLogger())

		_, err := stopped.VerifyProof([]byte("NZPF"), []byte("NZVK"), false).Get()
		requireLabel(t, err, LabelProofVerification, zkproof.ErrDispatcherStopped)

		_, err = stopped.SetupSrsWithSize(8, nil).Get()
		requireLabel(t, err, LabelSetupSrsWithSize, zkproof.ErrDispatcherStopped)
	})

	t.Run("panicking task", func(t *testing.T) {
		pool := zkproof.NewWorkerPool(1, 4, testutil.NewTestLogger())
		pool.Start()
		t.Cleanup(pool.Stop)
		broken := New(nil, pool, testutil.NewTestLogger())

		_, err := broken.VerifyProof([]byte("NZPF"), []byte("NZVK"), false).Get()
		requireLabel(t, err, LabelProofVerification, zkproof.ErrTaskPanicked)
	})
}

func TestBridgeWitnessIsCopied(t *testing.T) {
	b := newTestBridge(t)
	values := []string{"1", "2"}
	f := b.WitnessFromStrings(values)
	values[0] = "bad"

	_, err := f.Get()
	assert.NoError(t, err)
}

// holdWorkers 占满全部工作线程，使后续任务保持排队，直到调用返回的函数
func holdWorkers(b *Bridge) func() {
	release := make(chan struct{})
	for i := 0; i < b.pool.Size(); i++ {
		zkproof.Submit(b.pool, "hold", func() (struct{}, error) {
			<-release
			return struct{}{}, nil
		})
	}
	return func() { close(release) }
}

func TestBridgeProveAndVerifyInputsAreCopied(t *testing.T) {
	b := newTestBridge(t)
	bc := multiplyBytecode(t)

	_, err := b.SetupSrs(bc, nil, false).Get()
	require.NoError(t, err)
	vk, err := b.GetVerificationKey(bc, false, false).Get()
	require.NoError(t, err)
	witness, err := b.WitnessFromStrings([]string{"3", "5"}).Get()
	require.NoError(t, err)

	release := holdWorkers(b)

	vkCopy := append([]byte(nil), vk...)
	proveFuture := b.Prove(bc, witness, vkCopy, false, false)
	clear(witness)
	clear(vkCopy)
	release()

	proof, err := proveFuture.Get()
	require.NoError(t, err)

	release = holdWorkers(b)

	vkCopy = append([]byte(nil), vk...)
	proofCopy := append([]byte(nil), proof...)
	verifyFuture := b.VerifyProof(proofCopy, vkCopy, false)
	clear(proofCopy)
	clear(vkCopy)
	release()

	ok, err := verifyFuture.Get()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewFromConfig(t *testing.T) {
	dataDir := t.TempDir()
	logFile := filepath.Join(dataDir, "logs", "noirzk.log")
	level := "debug"
	workers := 1

	b, err := NewFromConfig(&types.AppConfig{
		DataDir: &dataDir,
		Log:     &types.UserLogConfig{Level: &level, FilePath: &logFile},
		ZKProof: &types.UserZKProofConfig{Workers: &workers},
	})
	require.NoError(t, err)

	_, err = b.SetupSrsWithSize(8, nil).Get()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, "srs", "bn254_g1_8.srs"))
	require.NoError(t, b.Close())

	// 关闭后提交的任务立即失败
	_, err = b.SetupSrsWithSize(8, nil).Get()
	assert.True(t, errors.Is(err, zkproof.ErrDispatcherStopped))
}
