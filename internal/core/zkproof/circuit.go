package zkproof

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/rangecheck"
	"github.com/fxamacker/cbor/v2"
)

// ============================================================================
//                              电路字节码定义
// ============================================================================
//
// 字节码格式：base64( gzip( cbor(Program) ) )
//
// Program 中的所有见证以索引引用；PublicParameters 与 ReturnValues 构成公开输入，
// 其余被引用的见证均为私有见证。

// programVersion 当前支持的程序格式版本
const programVersion = 1

// maxRangeBits 范围约束允许的最大位数（小于标量域位数）
const maxRangeBits = 253

// maxBytecodeSize 解压后程序的最大字节数
const maxBytecodeSize = 64 << 20

// Program 电路程序
type Program struct {
	Version             uint8    `cbor:"1,keyasint" json:"version"`
	CurrentWitnessIndex uint32   `cbor:"2,keyasint" json:"current_witness_index"`
	PrivateParameters   []uint32 `cbor:"3,keyasint" json:"private_parameters"`
	PublicParameters    []uint32 `cbor:"4,keyasint" json:"public_parameters"`
	ReturnValues        []uint32 `cbor:"5,keyasint" json:"return_values"`
	Opcodes             []Opcode `cbor:"6,keyasint" json:"opcodes"`
}

// Opcode 约束操作码，AssertZero 与 Range 二选一
type Opcode struct {
	AssertZero *Expression `cbor:"1,keyasint,omitempty" json:"assert_zero,omitempty"`
	Range      *RangeOp    `cbor:"2,keyasint,omitempty" json:"range,omitempty"`
}

// Expression 断言为零的二次表达式：Σ q·w_l·w_r + Σ q·w + q_c
type Expression struct {
	MulTerms    []MulTerm    `cbor:"1,keyasint" json:"mul_terms"`
	LinearTerms []LinearTerm `cbor:"2,keyasint" json:"linear_terms"`
	Constant    string       `cbor:"3,keyasint" json:"q_c"`
}

// MulTerm 乘法项 q·w_l·w_r
type MulTerm struct {
	_           struct{} `cbor:",toarray"`
	Coefficient string   `json:"q"`
	Left        uint32   `json:"l"`
	Right       uint32   `json:"r"`
}

// LinearTerm 线性项 q·w
type LinearTerm struct {
	_           struct{} `cbor:",toarray"`
	Coefficient string   `json:"q"`
	Witness     uint32   `json:"w"`
}

// RangeOp 范围约束 w < 2^bits
type RangeOp struct {
	Witness uint32 `cbor:"1,keyasint" json:"witness"`
	NumBits uint32 `cbor:"2,keyasint" json:"num_bits"`
}

var (
	programEncMode cbor.EncMode
	programDecMode cbor.DecMode
)

func init() {
	var err error
	if programEncMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(fmt.Sprintf("初始化程序编码器失败: %v", err))
	}
	if programDecMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(fmt.Sprintf("初始化程序解码器失败: %v", err))
	}
}

// EncodeBytecode 将程序编码为字节码字符串
func EncodeBytecode(p *Program) (string, error) {
	raw, err := programEncMode.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("编码程序失败: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("压缩程序失败: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("压缩程序失败: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBytecode 解码字节码字符串为程序
func DecodeBytecode(bytecode string) (*Program, error) {
	compressed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(bytecode))
	if err != nil {
		return nil, WrapInvalidBytecodeError("base64", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, WrapInvalidBytecodeError("gzip", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(io.LimitReader(zr, maxBytecodeSize+1))
	if err != nil {
		return nil, WrapInvalidBytecodeError("gzip", err)
	}
	if len(raw) > maxBytecodeSize {
		return nil, WrapInvalidBytecodeError("program too large", nil)
	}

	var p Program
	if err := programDecMode.Unmarshal(raw, &p); err != nil {
		return nil, WrapInvalidBytecodeError("cbor", err)
	}
	return &p, nil
}

// ============================================================================
//                              电路布局
// ============================================================================

type opKind uint8

const (
	opAssertZero opKind = iota + 1
	opRange
)

type mulTerm struct {
	q    fr.Element
	l, r WitnessIndex
}

type linearTerm struct {
	q fr.Element
	w WitnessIndex
}

// parsedOpcode 系数已解析的操作码
type parsedOpcode struct {
	kind    opKind
	muls    []mulTerm
	linears []linearTerm
	qc      fr.Element
	witness WitnessIndex // opRange
	bits    int          // opRange
}

// circuitLayout 程序到gnark电路变量的映射
type circuitLayout struct {
	program *Program
	opcodes []parsedOpcode

	// inputs 调用方必须提供的见证（私有参数 ∪ 公开参数）
	inputs []WitnessIndex
	// public 公开输入的顺序即证明中公开值的顺序
	public []WitnessIndex
	// private 其余被引用的见证
	private []WitnessIndex

	digest [32]byte
}

// newCircuitLayout 校验程序并构建布局
func newCircuitLayout(p *Program) (*circuitLayout, error) {
	if p.Version != programVersion {
		return nil, WrapInvalidBytecodeError(fmt.Sprintf("unsupported program version %d", p.Version), nil)
	}

	l := &circuitLayout{program: p}
	check := func(idx uint32, what string) error {
		if idx == 0 || idx > p.CurrentWitnessIndex {
			return WrapInvalidBytecodeError(fmt.Sprintf("%s references witness %d outside 1..%d", what, idx, p.CurrentWitnessIndex), nil)
		}
		return nil
	}

	referenced := make(map[WitnessIndex]struct{})
	publicSet := make(map[WitnessIndex]struct{})
	inputSet := make(map[WitnessIndex]struct{})

	for _, idx := range p.PrivateParameters {
		if err := check(idx, "private parameter"); err != nil {
			return nil, err
		}
		inputSet[WitnessIndex(idx)] = struct{}{}
	}
	for _, idx := range p.PublicParameters {
		if err := check(idx, "public parameter"); err != nil {
			return nil, err
		}
		w := WitnessIndex(idx)
		if _, dup := inputSet[w]; dup {
			return nil, WrapInvalidBytecodeError(fmt.Sprintf("witness %d declared twice as parameter", idx), nil)
		}
		inputSet[w] = struct{}{}
		publicSet[w] = struct{}{}
		l.public = append(l.public, w)
	}
	for _, idx := range p.ReturnValues {
		if err := check(idx, "return value"); err != nil {
			return nil, err
		}
		w := WitnessIndex(idx)
		if _, ok := publicSet[w]; !ok {
			publicSet[w] = struct{}{}
			l.public = append(l.public, w)
		}
	}
	for w := range inputSet {
		referenced[w] = struct{}{}
		l.inputs = append(l.inputs, w)
	}
	sort.Slice(l.inputs, func(i, j int) bool { return l.inputs[i] < l.inputs[j] })

	for i, op := range p.Opcodes {
		parsed, err := parseOpcode(i, op, check)
		if err != nil {
			return nil, err
		}
		for _, m := range parsed.muls {
			referenced[m.l] = struct{}{}
			referenced[m.r] = struct{}{}
		}
		for _, t := range parsed.linears {
			referenced[t.w] = struct{}{}
		}
		if parsed.kind == opRange {
			referenced[parsed.witness] = struct{}{}
		}
		l.opcodes = append(l.opcodes, parsed)
	}

	for _, w := range l.public {
		referenced[w] = struct{}{}
	}
	for w := range referenced {
		if _, ok := publicSet[w]; !ok {
			l.private = append(l.private, w)
		}
	}
	sort.Slice(l.private, func(i, j int) bool { return l.private[i] < l.private[j] })

	canonical, err := programEncMode.Marshal(p)
	if err != nil {
		return nil, WrapInvalidBytecodeError("re-encode", err)
	}
	l.digest = sha256.Sum256(canonical)
	return l, nil
}

func parseOpcode(i int, op Opcode, check func(uint32, string) error) (parsedOpcode, error) {
	var out parsedOpcode
	where := fmt.Sprintf("opcode %d", i)

	switch {
	case op.AssertZero != nil && op.Range == nil:
		out.kind = opAssertZero
		e := op.AssertZero
		for _, m := range e.MulTerms {
			q, err := parseCoefficient(m.Coefficient)
			if err != nil {
				return out, WrapInvalidBytecodeError(where+" coefficient", err)
			}
			if err := check(m.Left, where); err != nil {
				return out, err
			}
			if err := check(m.Right, where); err != nil {
				return out, err
			}
			out.muls = append(out.muls, mulTerm{q: q, l: WitnessIndex(m.Left), r: WitnessIndex(m.Right)})
		}
		for _, t := range e.LinearTerms {
			q, err := parseCoefficient(t.Coefficient)
			if err != nil {
				return out, WrapInvalidBytecodeError(where+" coefficient", err)
			}
			if err := check(t.Witness, where); err != nil {
				return out, err
			}
			out.linears = append(out.linears, linearTerm{q: q, w: WitnessIndex(t.Witness)})
		}
		if e.Constant != "" {
			qc, err := parseCoefficient(e.Constant)
			if err != nil {
				return out, WrapInvalidBytecodeError(where+" constant", err)
			}
			out.qc = qc
		}
	case op.Range != nil && op.AssertZero == nil:
		out.kind = opRange
		if err := check(op.Range.Witness, where); err != nil {
			return out, err
		}
		if op.Range.NumBits == 0 || op.Range.NumBits > maxRangeBits {
			return out, WrapInvalidBytecodeError(fmt.Sprintf("%s range bits %d out of 1..%d", where, op.Range.NumBits, maxRangeBits), nil)
		}
		out.witness = WitnessIndex(op.Range.Witness)
		out.bits = int(op.Range.NumBits)
	default:
		return out, WrapInvalidBytecodeError(where+" must set exactly one of assert_zero or range", nil)
	}
	return out, nil
}

// missingInputs 返回见证中缺失的必需输入索引
func (l *circuitLayout) missingInputs(w WitnessMap) []uint32 {
	var missing []uint32
	for _, idx := range l.inputs {
		if _, ok := w[idx]; !ok {
			missing = append(missing, uint32(idx))
		}
	}
	return missing
}

// ============================================================================
//                              gnark 电路
// ============================================================================

// programCircuit 由程序驱动的gnark电路
type programCircuit struct {
	Public  []frontend.Variable `gnark:",public"`
	Private []frontend.Variable `gnark:",secret"`

	layout *circuitLayout `gnark:"-"`
}

// newProgramCircuit 创建用于编译的空电路
func newProgramCircuit(l *circuitLayout) *programCircuit {
	return &programCircuit{
		Public:  make([]frontend.Variable, len(l.public)),
		Private: make([]frontend.Variable, len(l.private)),
		layout:  l,
	}
}

// newAssignment 由已求解的见证构造赋值
func newAssignment(l *circuitLayout, solved WitnessMap) *programCircuit {
	c := newProgramCircuit(l)
	for i, idx := range l.public {
		v := solved[idx]
		c.Public[i] = fieldToBig(&v)
	}
	for i, idx := range l.private {
		v := solved[idx]
		c.Private[i] = fieldToBig(&v)
	}
	return c
}

// Define 按操作码顺序生成约束
func (c *programCircuit) Define(api frontend.API) error {
	l := c.layout
	vars := make(map[WitnessIndex]frontend.Variable, len(l.public)+len(l.private))
	for i, idx := range l.public {
		vars[idx] = c.Public[i]
	}
	for i, idx := range l.private {
		vars[idx] = c.Private[i]
	}

	var rc frontend.Rangechecker
	for _, op := range l.opcodes {
		switch op.kind {
		case opAssertZero:
			acc := frontend.Variable(fieldToBig(&op.qc))
			for _, m := range op.muls {
				acc = api.Add(acc, api.Mul(fieldToBig(&m.q), vars[m.l], vars[m.r]))
			}
			for _, t := range op.linears {
				acc = api.Add(acc, api.Mul(fieldToBig(&t.q), vars[t.w]))
			}
			api.AssertIsEqual(acc, 0)
		case opRange:
			if rc == nil {
				rc = rangecheck.New(api)
			}
			rc.Check(vars[op.witness], op.bits)
		}
	}
	return nil
}

// publicValuesOf 提取公开输入值（按布局顺序）
func (l *circuitLayout) publicValuesOf(solved WitnessMap) []fr.Element {
	out := make([]fr.Element, len(l.public))
	for i, idx := range l.public {
		out[i] = solved[idx]
	}
	return out
}
