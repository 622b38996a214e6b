package zkproof

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/noirzk/internal/testutil"
)

// multiplyProgram x·y = 15，x(1) 私有，y(2) 公开
func multiplyProgram() *Program {
	return &Program{
		Version:             programVersion,
		CurrentWitnessIndex: 2,
		PrivateParameters:   []uint32{1},
		PublicParameters:    []uint32{2},
		Opcodes: []Opcode{{
			AssertZero: &Expression{
				MulTerms: []MulTerm{{Coefficient: "1", Left: 1, Right: 2}},
				Constant: "-15",
			},
		}},
	}
}

// sumProgram z = x + y，z(3) 作为返回值由求解器补全，x 需要小于 2^8
func sumProgram() *Program {
	return &Program{
		Version:             programVersion,
		CurrentWitnessIndex: 3,
		PrivateParameters:   []uint32{1, 2},
		ReturnValues:        []uint32{3},
		Opcodes: []Opcode{
			{AssertZero: &Expression{
				LinearTerms: []LinearTerm{
					{Coefficient: "1", Witness: 1},
					{Coefficient: "1", Witness: 2},
					{Coefficient: "-1", Witness: 3},
				},
			}},
			{Range: &RangeOp{Witness: 1, NumBits: 8}},
		},
	}
}

func mustBytecode(t testing.TB, p *Program) string {
	t.Helper()
	bc, err := EncodeBytecode(p)
	require.NoError(t, err)
	return bc
}

func mustLayout(t testing.TB, p *Program) *circuitLayout {
	t.Helper()
	l, err := newCircuitLayout(p)
	require.NoError(t, err)
	return l
}

func mustWitness(t testing.TB, values ...string) WitnessMap {
	t.Helper()
	w, err := WitnessFromStrings(values)
	require.NoError(t, err)
	return w
}

// countingSource 记录获取次数的派生来源
type countingSource struct {
	inner *DerivedSource
	calls atomic.Int32
}

func newCountingSource() *countingSource {
	return &countingSource{inner: NewDerivedSource("test-seed")}
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Fetch(ctx context.Context, tier uint32, size uint64) (*kzg.SRS, error) {
	s.calls.Add(1)
	return s.inner.Fetch(ctx, tier, size)
}

func newTestManager(t testing.TB) (*Manager, *countingSource) {
	t.Helper()
	source := newCountingSource()
	m, err := NewManager(testutil.NewTestZKOptions(t), source, testutil.NewTestLogger())
	require.NoError(t, err)
	return m, source
}
