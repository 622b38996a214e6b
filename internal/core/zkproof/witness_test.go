package zkproof

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWitnessFromStringsAssignsSequentialIndices(t *testing.T) {
	w, err := WitnessFromStrings([]string{"3", "0x05", "0"})
	require.NoError(t, err)
	require.Len(t, w, 3)

	expected := map[WitnessIndex]uint64{1: 3, 2: 5, 3: 0}
	for idx, v := range expected {
		got := w[idx]
		var want fr.Element
		want.SetUint64(v)
		assert.True(t, got.Equal(&want), "index %d", idx)
	}
}

func TestWitnessFromStringsEmpty(t *testing.T) {
	w, err := WitnessFromStrings(nil)
	require.NoError(t, err)
	assert.Empty(t, w)

	data, err := SerializeWitness(w)
	require.NoError(t, err)
	back, err := DeserializeWitness(data)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestWitnessFromStringsRejectsBadValues(t *testing.T) {
	modulus := fr.Modulus()
	rMinusOne := new(big.Int).Sub(modulus, big.NewInt(1))

	_, err := WitnessFromStrings([]string{rMinusOne.String()})
	require.NoError(t, err)

	cases := map[string][]string{
		"modulus":       {"1", modulus.String()},
		"not a number":  {"1", "abc"},
		"empty hex":     {"1", "0x"},
		"negative":      {"1", "-4"},
		"empty string":  {"1", ""},
		"hex garbage":   {"1", "0xzz"},
		"modulus (hex)": {"1", "0x" + modulus.Text(16)},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := WitnessFromStrings(values)
			require.ErrorIs(t, err, ErrWitnessParse)

			var zkErr *Error
			require.ErrorAs(t, err, &zkErr)
			assert.Equal(t, 1, zkErr.Index)
		})
	}
}

func TestSerializeWitnessIsDeterministic(t *testing.T) {
	w := mustWitness(t, "10", "20", "30", "40")
	a, err := SerializeWitness(w)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := SerializeWitness(w.clone())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestWitnessRoundTripHexAndDecimal(t *testing.T) {
	w := mustWitness(t, "0xff", "255", "0x0", fr.Modulus().Sub(fr.Modulus(), big.NewInt(1)).String())
	data, err := SerializeWitness(w)
	require.NoError(t, err)

	back, err := DeserializeWitness(data)
	require.NoError(t, err)
	if diff := cmp.Diff(w, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	hexVal, decVal := back[1], back[2]
	assert.True(t, hexVal.Equal(&decVal))
}

func TestWitnessRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("deserialize(serialize(w)) == w", prop.ForAll(
		func(values []uint64) bool {
			strs := make([]string, len(values))
			for i, v := range values {
				strs[i] = new(big.Int).SetUint64(v).String()
			}
			w, err := WitnessFromStrings(strs)
			if err != nil {
				return false
			}
			data, err := SerializeWitness(w)
			if err != nil {
				return false
			}
			back, err := DeserializeWitness(data)
			return err == nil && back.Equal(w)
		},
		gen.SliceOf(gen.UInt64()),
	))

	properties.TestingRun(t)
}

func TestDeserializeWitnessRejectsMalformed(t *testing.T) {
	one := make([]byte, fieldBytes)
	one[fieldBytes-1] = 1
	tooBig := fr.Modulus().FillBytes(make([]byte, fieldBytes))

	encode := func(env witnessEnvelope) []byte {
		data, err := witnessEncMode.Marshal(env)
		require.NoError(t, err)
		return data
	}

	cases := map[string][]byte{
		"garbage":       {0xff, 0x00, 0x13},
		"bad version":   encode(witnessEnvelope{Version: 9}),
		"zero index":    encode(witnessEnvelope{Version: witnessFormatVersion, Entries: []witnessEntry{{Index: 0, Value: one}}}),
		"duplicate":     encode(witnessEnvelope{Version: witnessFormatVersion, Entries: []witnessEntry{{Index: 1, Value: one}, {Index: 1, Value: one}}}),
		"short value":   encode(witnessEnvelope{Version: witnessFormatVersion, Entries: []witnessEntry{{Index: 1, Value: one[:4]}}}),
		"non-canonical": encode(witnessEnvelope{Version: witnessFormatVersion, Entries: []witnessEntry{{Index: 1, Value: tooBig}}}),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DeserializeWitness(data)
			assert.Error(t, err)
		})
	}
}

func TestWitnessIndicesSorted(t *testing.T) {
	w := WitnessMap{}
	for _, idx := range []WitnessIndex{9, 2, 5} {
		w[idx] = fr.NewElement(uint64(idx))
	}
	assert.Equal(t, []WitnessIndex{2, 5, 9}, w.Indices())
}

func TestWitnessSizeLimitSharedByEncoderAndDecoder(t *testing.T) {
	assert.NoError(t, checkWitnessSize(0))
	assert.NoError(t, checkWitnessSize(maxWitnessEntries))
	assert.Error(t, checkWitnessSize(maxWitnessEntries+1))

	// 解码器接受编码器允许的全部规模
	assert.Equal(t, maxWitnessEntries, witnessDecMode.DecOptions().MaxArrayElements)
}

func TestParseCoefficientAllowsNegative(t *testing.T) {
	e, err := parseCoefficient("-15")
	require.NoError(t, err)

	var sum fr.Element
	fifteen := fr.NewElement(15)
	sum.Add(&e, &fifteen)
	assert.True(t, sum.IsZero())
}
