package zkproof

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// solveWitness 按操作码顺序补全中间见证
//
// 🎯 **求解规则**：
//   - AssertZero 中恰好一个未知见证且以线性方式出现时，解出该见证
//   - 全部已知时检查表达式为零，否则约束不满足
//   - Range 要求见证已知且位宽不超过限制
//
// 返回的映射是输入的副本，原见证不会被修改。
func solveWitness(l *circuitLayout, input WitnessMap) (WitnessMap, error) {
	w := input.clone()

	for i := range l.opcodes {
		op := &l.opcodes[i]
		switch op.kind {
		case opAssertZero:
			if err := solveAssertZero(i, op, w); err != nil {
				return nil, err
			}
		case opRange:
			v, ok := w[op.witness]
			if !ok {
				return nil, WrapProvingError(nil, "opcode %d: range check on unsolved witness %d", i, op.witness)
			}
			if fieldToBig(&v).BitLen() > op.bits {
				return nil, WrapProvingError(nil, "opcode %d: witness %d does not fit in %d bits", i, op.witness, op.bits)
			}
		}
	}

	for _, group := range [][]WitnessIndex{l.public, l.private} {
		for _, idx := range group {
			if _, ok := w[idx]; !ok {
				return nil, WrapProvingError(nil, "witness %d could not be solved", idx)
			}
		}
	}
	return w, nil
}

func solveAssertZero(i int, op *parsedOpcode, w WitnessMap) error {
	var (
		sum       = op.qc
		coef      fr.Element
		unknown   WitnessIndex
		unknowns  = make(map[WitnessIndex]struct{})
		nonlinear bool
		t         fr.Element
	)

	addUnknown := func(idx WitnessIndex, q *fr.Element) {
		unknowns[idx] = struct{}{}
		unknown = idx
		coef.Add(&coef, q)
	}

	for _, m := range op.muls {
		lv, lok := w[m.l]
		rv, rok := w[m.r]
		switch {
		case lok && rok:
			t.Mul(&m.q, &lv).Mul(&t, &rv)
			sum.Add(&sum, &t)
		case lok:
			t.Mul(&m.q, &lv)
			addUnknown(m.r, &t)
		case rok:
			t.Mul(&m.q, &rv)
			addUnknown(m.l, &t)
		default:
			unknowns[m.l] = struct{}{}
			unknowns[m.r] = struct{}{}
			nonlinear = true
		}
	}
	for _, lt := range op.linears {
		if v, ok := w[lt.w]; ok {
			t.Mul(&lt.q, &v)
			sum.Add(&sum, &t)
			continue
		}
		addUnknown(lt.w, &lt.q)
	}

	switch {
	case len(unknowns) == 0:
		if !sum.IsZero() {
			return WrapProvingError(nil, "opcode %d: constraint not satisfied", i)
		}
		return nil
	case len(unknowns) == 1 && !nonlinear && !coef.IsZero():
		// q·x + sum = 0  =>  x = -sum / q
		var x fr.Element
		x.Neg(&sum)
		coef.Inverse(&coef)
		x.Mul(&x, &coef)
		w[unknown] = x
		return nil
	default:
		return WrapProvingError(nil, "opcode %d: cannot solve %d unknown witness(es)", i, len(unknowns))
	}
}
