package zkproof

import (
	"fmt"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/fxamacker/cbor/v2"
)

// WitnessIndex 见证索引，0 保留，输入从 1 开始编号
type WitnessIndex uint32

// WitnessMap 见证索引到域元素的映射
type WitnessMap map[WitnessIndex]fr.Element

// witnessFormatVersion 见证序列化格式版本
const witnessFormatVersion = 1

// maxWitnessEntries 单个见证的条目上限，编码与解码共用
const maxWitnessEntries = 1 << 24

// witnessEnvelope 见证的CBOR编码结构
type witnessEnvelope struct {
	Version uint8          `cbor:"1,keyasint"`
	Entries []witnessEntry `cbor:"2,keyasint"`
}

// witnessEntry 单个见证条目，编码为 [index, value]
type witnessEntry struct {
	_     struct{} `cbor:",toarray"`
	Index uint32
	Value []byte
}

var (
	witnessEncMode cbor.EncMode
	witnessDecMode cbor.DecMode
)

func init() {
	var err error
	if witnessEncMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(fmt.Sprintf("初始化见证编码器失败: %v", err))
	}
	if witnessDecMode, err = (cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: maxWitnessEntries,
	}).DecMode(); err != nil {
		panic(fmt.Sprintf("初始化见证解码器失败: %v", err))
	}
}

// WitnessFromStrings 将有序字符串列表解析为见证映射
//
// 📋 **规则**：
//   - 每个字符串为十进制或0x十六进制，且必须小于标量域模数
//   - 第 i 个字符串赋值给见证索引 i+1
//   - 任一字符串解析失败则整体失败，错误携带该字符串在列表中的位置
func WitnessFromStrings(values []string) (WitnessMap, error) {
	if err := checkWitnessSize(len(values)); err != nil {
		return nil, WrapWitnessParseError(maxWitnessEntries, err)
	}
	w := make(WitnessMap, len(values))
	for i, s := range values {
		e, err := parseFieldElement(s)
		if err != nil {
			return nil, WrapWitnessParseError(i, err)
		}
		w[WitnessIndex(i+1)] = e
	}
	return w, nil
}

// SerializeWitness 确定性编码见证映射（按索引升序）
func SerializeWitness(w WitnessMap) ([]byte, error) {
	if err := checkWitnessSize(len(w)); err != nil {
		return nil, err
	}
	env := witnessEnvelope{
		Version: witnessFormatVersion,
		Entries: make([]witnessEntry, 0, len(w)),
	}
	for _, idx := range w.Indices() {
		v := w[idx]
		env.Entries = append(env.Entries, witnessEntry{Index: uint32(idx), Value: fieldToBytes(&v)})
	}
	return witnessEncMode.Marshal(env)
}

func checkWitnessSize(n int) error {
	if n > maxWitnessEntries {
		return fmt.Errorf("witness has %d entries, limit is %d", n, maxWitnessEntries)
	}
	return nil
}

// DeserializeWitness 解码见证映射，拒绝未知版本、重复索引和非规范域元素
func DeserializeWitness(data []byte) (WitnessMap, error) {
	var env witnessEnvelope
	if err := witnessDecMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode witness: %w", err)
	}
	if env.Version != witnessFormatVersion {
		return nil, fmt.Errorf("unsupported witness format version %d", env.Version)
	}

	w := make(WitnessMap, len(env.Entries))
	for _, entry := range env.Entries {
		idx := WitnessIndex(entry.Index)
		if idx == 0 {
			return nil, fmt.Errorf("witness index 0 is reserved")
		}
		if _, dup := w[idx]; dup {
			return nil, fmt.Errorf("duplicate witness index %d", idx)
		}
		e, err := fieldFromBytes(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("witness index %d: %w", idx, err)
		}
		w[idx] = e
	}
	return w, nil
}

// Indices 返回升序排列的见证索引
func (w WitnessMap) Indices() []WitnessIndex {
	out := make([]WitnessIndex, 0, len(w))
	for idx := range w {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal 判断两个见证映射是否完全一致
func (w WitnessMap) Equal(other WitnessMap) bool {
	if len(w) != len(other) {
		return false
	}
	for idx, v := range w {
		o, ok := other[idx]
		if !ok || !v.Equal(&o) {
			return false
		}
	}
	return true
}

// clone 复制见证映射，求解器在副本上写入中间值
func (w WitnessMap) clone() WitnessMap {
	out := make(WitnessMap, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
