package zkproof

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKindSentinel(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
		kind     ErrorKind
	}{
		{WrapSrsProvisionError("srs.ensure", nil, "too big"), ErrSrsProvision, KindSrsProvision},
		{WrapVerificationKeyError(ErrSrsNotLoaded, ""), ErrVerificationKey, KindVerificationKey},
		{WrapWitnessParseError(2, errOutOfRange), ErrWitnessParse, KindWitnessParse},
		{WrapIncompleteWitnessError([]uint32{1}), ErrIncompleteWitness, KindIncompleteWitness},
		{WrapProvingError(nil, "unsatisfied"), ErrProving, KindProving},
		{WrapKeyMismatchError("flags"), ErrKeyMismatch, KindKeyMismatch},
		{WrapProofFormatError("verify", "truncated"), ErrProofFormat, KindProofFormat},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.sentinel)
			kind, ok := KindOf(fmt.Errorf("outer: %w", tc.err))
			require.True(t, ok)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestKeyMismatchIsAlsoProving(t *testing.T) {
	err := WrapKeyMismatchError("different circuit")
	assert.ErrorIs(t, err, ErrKeyMismatch)
	assert.ErrorIs(t, err, ErrProving)
	assert.NotErrorIs(t, WrapProvingError(nil, "x"), ErrKeyMismatch)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid witness value at index 3: value exceeds scalar field modulus",
		WrapWitnessParseError(3, errOutOfRange).Error())
	assert.Equal(t, "incomplete witness, missing indices [2 5]",
		WrapIncompleteWitnessError([]uint32{2, 5}).Error())
	assert.Equal(t, "verification key generation failed: srs not loaded, run srs setup first",
		WrapVerificationKeyError(ErrSrsNotLoaded, "").Error())
}

func TestErrorUnwrap(t *testing.T) {
	err := WrapVerificationKeyError(ErrSrsNotLoaded, "")
	assert.True(t, errors.Is(err, ErrSrsNotLoaded))

	var zkErr *Error
	require.ErrorAs(t, WrapWitnessParseError(7, errNotANumber), &zkErr)
	assert.Equal(t, 7, zkErr.Index)

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestInvalidBytecodeError(t *testing.T) {
	assert.ErrorIs(t, WrapInvalidBytecodeError("cbor", errors.New("eof")), ErrInvalidBytecode)
	assert.Equal(t, "invalid circuit bytecode: gzip", WrapInvalidBytecodeError("gzip", nil).Error())
}
