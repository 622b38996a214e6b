package zkproof

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveWitnessFillsReturnValue(t *testing.T) {
	l := mustLayout(t, sumProgram())
	input := mustWitness(t, "7", "35")

	solved, err := solveWitness(l, input)
	require.NoError(t, err)

	want := fr.NewElement(42)
	got := solved[3]
	assert.True(t, got.Equal(&want))

	_, touched := input[3]
	assert.False(t, touched, "input witness must not be modified")
}

func TestSolveWitnessChecksSatisfiedConstraint(t *testing.T) {
	l := mustLayout(t, multiplyProgram())

	_, err := solveWitness(l, mustWitness(t, "3", "5"))
	require.NoError(t, err)

	_, err = solveWitness(l, mustWitness(t, "3", "6"))
	require.ErrorIs(t, err, ErrProving)
	assert.NotErrorIs(t, err, ErrKeyMismatch)
}

func TestSolveWitnessSolvesUnknownMulOperand(t *testing.T) {
	// 只给 x=3 的子集：y 在 x·y - 15 中只以线性方式出现
	p := multiplyProgram()
	p.PublicParameters = nil
	p.ReturnValues = []uint32{2}
	l := mustLayout(t, p)

	solved, err := solveWitness(l, mustWitness(t, "3"))
	require.NoError(t, err)
	want := fr.NewElement(5)
	got := solved[2]
	assert.True(t, got.Equal(&want))
}

func TestSolveWitnessRejectsUnsolvable(t *testing.T) {
	p := &Program{
		Version:             programVersion,
		CurrentWitnessIndex: 3,
		PrivateParameters:   []uint32{1},
		ReturnValues:        []uint32{3},
		Opcodes: []Opcode{{AssertZero: &Expression{
			LinearTerms: []LinearTerm{
				{Coefficient: "1", Witness: 1},
				{Coefficient: "1", Witness: 2},
				{Coefficient: "-1", Witness: 3},
			},
		}}},
	}
	l := mustLayout(t, p)
	_, err := solveWitness(l, mustWitness(t, "1"))
	assert.ErrorIs(t, err, ErrProving)
}

func TestSolveWitnessRangeCheck(t *testing.T) {
	l := mustLayout(t, sumProgram())

	_, err := solveWitness(l, mustWitness(t, "255", "1"))
	require.NoError(t, err)

	_, err = solveWitness(l, mustWitness(t, "256", "1"))
	assert.ErrorIs(t, err, ErrProving)
}
