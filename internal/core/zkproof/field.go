package zkproof

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// 域元素字节长度（BN254 标量域，大端序）
const fieldBytes = fr.Bytes

var (
	errEmptyValue  = errors.New("empty value")
	errOutOfRange  = errors.New("value exceeds scalar field modulus")
	errNotANumber  = errors.New("not a decimal or 0x-prefixed hex number")
	errNegativeVal = errors.New("negative value")
)

// parseFieldElement 解析十进制或0x前缀十六进制字符串为域元素，要求 0 <= v < r
func parseFieldElement(s string) (fr.Element, error) {
	var e fr.Element
	v, err := parseBigInt(s)
	if err != nil {
		return e, err
	}
	if v.Sign() < 0 {
		return e, errNegativeVal
	}
	if v.Cmp(fr.Modulus()) >= 0 {
		return e, errOutOfRange
	}
	e.SetBigInt(v)
	return e, nil
}

// parseCoefficient 解析字节码中的系数，允许负号（按 r - |v| 处理）
func parseCoefficient(s string) (fr.Element, error) {
	neg := strings.HasPrefix(strings.TrimSpace(s), "-")
	if neg {
		s = strings.TrimPrefix(strings.TrimSpace(s), "-")
	}
	e, err := parseFieldElement(s)
	if err != nil {
		return e, err
	}
	if neg {
		e.Neg(&e)
	}
	return e, nil
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyValue
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
	}
	if digits == "" {
		return nil, errNotANumber
	}

	v, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errNotANumber, s)
	}
	return v, nil
}

// fieldToBytes 域元素的32字节大端编码
func fieldToBytes(e *fr.Element) []byte {
	b := e.Bytes()
	return b[:]
}

// fieldFromBytes 解码32字节大端编码，拒绝非规范值
func fieldFromBytes(b []byte) (fr.Element, error) {
	var e fr.Element
	if len(b) != fieldBytes {
		return e, fmt.Errorf("field element must be %d bytes, got %d", fieldBytes, len(b))
	}
	if err := e.SetBytesCanonical(b); err != nil {
		return e, err
	}
	return e, nil
}

// fieldToBig 转换为 *big.Int，供 gnark 前端使用
func fieldToBig(e *fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}
