package zkproof

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ============================================================================
//                         验证密钥与证明的封装格式
// ============================================================================
//
// VK:    "NZVK" | version(1) | flags(1) | digest(32) | len(4) | gnark VK
// Proof: "NZPF" | version(1) | flags(1) | digest(32) | nPublic(4) | public(32·n) | len(4) | gnark proof
//
// 整数均为大端序。flags 与电路摘要把证明/密钥绑定到同一电路和同一组标志。

const (
	vkMagic         = "NZVK"
	proofMagic      = "NZPF"
	envelopeVersion = 1

	envelopeHeaderLen = 4 + 1 + 1 + 32
)

// ZkFlags 证明配置标志
type ZkFlags struct {
	DisableZk     bool
	LowMemoryMode bool
}

const (
	flagDisableZk     uint8 = 1 << 0
	flagLowMemoryMode uint8 = 1 << 1
)

func (f ZkFlags) encode() uint8 {
	var b uint8
	if f.DisableZk {
		b |= flagDisableZk
	}
	if f.LowMemoryMode {
		b |= flagLowMemoryMode
	}
	return b
}

func (f ZkFlags) String() string {
	return fmt.Sprintf("disableZk=%t lowMemoryMode=%t", f.DisableZk, f.LowMemoryMode)
}

var (
	errTruncated  = errors.New("truncated")
	errBadMagic   = errors.New("bad magic")
	errBadVersion = errors.New("unsupported version")
	errTrailing   = errors.New("trailing bytes")
)

// vkEnvelope 解析后的验证密钥封装
type vkEnvelope struct {
	flags  uint8
	digest [32]byte
	key    []byte
}

// proofEnvelope 解析后的证明封装
type proofEnvelope struct {
	flags  uint8
	digest [32]byte
	public [][]byte
	body   []byte
}

func encodeVKEnvelope(flags ZkFlags, digest [32]byte, key []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(envelopeHeaderLen + 4 + len(key))
	writeHeader(&buf, vkMagic, flags.encode(), digest)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(key)))
	buf.Write(key)
	return buf.Bytes()
}

func decodeVKEnvelope(data []byte) (*vkEnvelope, error) {
	r, flags, digest, err := readHeader(data, vkMagic)
	if err != nil {
		return nil, err
	}
	key, err := readChunk(&r)
	if err != nil {
		return nil, err
	}
	if len(r) != 0 {
		return nil, errTrailing
	}
	return &vkEnvelope{flags: flags, digest: digest, key: key}, nil
}

func encodeProofEnvelope(flags ZkFlags, digest [32]byte, public [][]byte, body []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(envelopeHeaderLen + 8 + fieldBytes*len(public) + len(body))
	writeHeader(&buf, proofMagic, flags.encode(), digest)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(public)))
	for _, v := range public {
		buf.Write(v)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(body)))
	buf.Write(body)
	return buf.Bytes()
}

func decodeProofEnvelope(data []byte) (*proofEnvelope, error) {
	r, flags, digest, err := readHeader(data, proofMagic)
	if err != nil {
		return nil, err
	}

	if len(r) < 4 {
		return nil, errTruncated
	}
	n := binary.BigEndian.Uint32(r)
	r = r[4:]
	if uint64(n)*fieldBytes > uint64(len(r)) {
		return nil, errTruncated
	}
	public := make([][]byte, n)
	for i := range public {
		public[i] = r[:fieldBytes:fieldBytes]
		r = r[fieldBytes:]
	}

	body, err := readChunk(&r)
	if err != nil {
		return nil, err
	}
	if len(r) != 0 {
		return nil, errTrailing
	}
	return &proofEnvelope{flags: flags, digest: digest, public: public, body: body}, nil
}

func writeHeader(buf *bytes.Buffer, magic string, flags uint8, digest [32]byte) {
	buf.WriteString(magic)
	buf.WriteByte(envelopeVersion)
	buf.WriteByte(flags)
	buf.Write(digest[:])
}

func readHeader(data []byte, magic string) ([]byte, uint8, [32]byte, error) {
	var digest [32]byte
	if len(data) < envelopeHeaderLen {
		return nil, 0, digest, errTruncated
	}
	if string(data[:4]) != magic {
		return nil, 0, digest, errBadMagic
	}
	if data[4] != envelopeVersion {
		return nil, 0, digest, fmt.Errorf("%w %d", errBadVersion, data[4])
	}
	flags := data[5]
	copy(digest[:], data[6:envelopeHeaderLen])
	return data[envelopeHeaderLen:], flags, digest, nil
}

func readChunk(r *[]byte) ([]byte, error) {
	if len(*r) < 4 {
		return nil, errTruncated
	}
	n := binary.BigEndian.Uint32(*r)
	rest := (*r)[4:]
	if uint64(n) > uint64(len(rest)) {
		return nil, errTruncated
	}
	chunk := rest[:n:n]
	*r = rest[n:]
	return chunk, nil
}
