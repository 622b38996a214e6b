package zkproof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDigest() [32]byte {
	var d [32]byte
	for i := range d {
		d[i] = byte(i)
	}
	return d
}

func TestVKEnvelopeRoundTrip(t *testing.T) {
	data := encodeVKEnvelope(ZkFlags{DisableZk: true}, testDigest(), []byte("key-bytes"))
	env, err := decodeVKEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, flagDisableZk, env.flags)
	assert.Equal(t, testDigest(), env.digest)
	assert.Equal(t, []byte("key-bytes"), env.key)
}

func TestProofEnvelopeRoundTrip(t *testing.T) {
	pub := [][]byte{make([]byte, fieldBytes), make([]byte, fieldBytes)}
	pub[1][fieldBytes-1] = 9
	data := encodeProofEnvelope(ZkFlags{LowMemoryMode: true}, testDigest(), pub, []byte("proof"))

	env, err := decodeProofEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, flagLowMemoryMode, env.flags)
	assert.Equal(t, pub, env.public)
	assert.Equal(t, []byte("proof"), env.body)
}

func TestEnvelopeFramingErrors(t *testing.T) {
	vk := encodeVKEnvelope(ZkFlags{}, testDigest(), []byte("key"))
	proof := encodeProofEnvelope(ZkFlags{}, testDigest(), [][]byte{make([]byte, fieldBytes)}, []byte("body"))

	t.Run("truncated", func(t *testing.T) {
		for n := 0; n < len(vk); n++ {
			_, err := decodeVKEnvelope(vk[:n])
			assert.Error(t, err, "vk prefix %d", n)
		}
		for n := 0; n < len(proof); n++ {
			_, err := decodeProofEnvelope(proof[:n])
			assert.Error(t, err, "proof prefix %d", n)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		_, err := decodeVKEnvelope(proof)
		assert.ErrorIs(t, err, errBadMagic)
		_, err = decodeProofEnvelope(vk)
		assert.ErrorIs(t, err, errBadMagic)
	})

	t.Run("bad version", func(t *testing.T) {
		bad := append([]byte(nil), vk...)
		bad[4] = 99
		_, err := decodeVKEnvelope(bad)
		assert.ErrorIs(t, err, errBadVersion)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := decodeVKEnvelope(append(append([]byte(nil), vk...), 0))
		assert.ErrorIs(t, err, errTrailing)
		_, err = decodeProofEnvelope(append(append([]byte(nil), proof...), 0))
		assert.ErrorIs(t, err, errTrailing)
	})
}

func TestZkFlagsEncode(t *testing.T) {
	assert.Equal(t, uint8(0), ZkFlags{}.encode())
	assert.Equal(t, uint8(3), ZkFlags{DisableZk: true, LowMemoryMode: true}.encode())
	assert.Equal(t, "disableZk=true lowMemoryMode=false", ZkFlags{DisableZk: true}.String())
}
