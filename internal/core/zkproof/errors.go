// Package zkproof 实现零知识证明生命周期管理：SRS准备、见证编解码、证明生成与验证、阻塞任务调度
package zkproof

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
//                            零知识证明错误定义
// ============================================================================

// ErrorKind 错误类别
type ErrorKind string

const (
	KindSrsProvision      ErrorKind = "SrsProvisionError"
	KindVerificationKey   ErrorKind = "VerificationKeyError"
	KindWitnessParse      ErrorKind = "WitnessParseError"
	KindIncompleteWitness ErrorKind = "IncompleteWitnessError"
	KindProving           ErrorKind = "ProvingError"
	KindKeyMismatch       ErrorKind = "KeyMismatchError"
	KindProofFormat       ErrorKind = "ProofFormatError"
)

var (
	// ErrSrsProvision SRS准备失败
	ErrSrsProvision = errors.New("srs provisioning failed")

	// ErrVerificationKey 验证密钥生成失败
	ErrVerificationKey = errors.New("verification key generation failed")

	// ErrWitnessParse 见证值解析失败
	ErrWitnessParse = errors.New("invalid witness value")

	// ErrIncompleteWitness 见证缺少必需输入
	ErrIncompleteWitness = errors.New("incomplete witness")

	// ErrProving 证明生成失败
	ErrProving = errors.New("proof generation failed")

	// ErrKeyMismatch 验证密钥与电路或标志不匹配
	ErrKeyMismatch = errors.New("verification key mismatch")

	// ErrProofFormat 证明或密钥字节无法解析
	ErrProofFormat = errors.New("malformed proof or key")

	// ErrInvalidBytecode 电路字节码无效
	ErrInvalidBytecode = errors.New("invalid circuit bytecode")

	// ErrSrsNotLoaded 尚未准备SRS
	ErrSrsNotLoaded = errors.New("srs not loaded, run srs setup first")

	// ErrDispatcherStopped 调度器已停止
	ErrDispatcherStopped = errors.New("dispatcher stopped")

	// ErrTaskPanicked 任务执行发生panic
	ErrTaskPanicked = errors.New("task panicked")
)

// Error 带类别标签的结构化错误
//
// 🎯 **用途**：保留人类可读消息的同时，允许调用方用 errors.Is / errors.As 区分失败类别
type Error struct {
	Kind    ErrorKind
	Op      string   // 出错的操作（如 "prove"、"srs.ensure"）
	Index   int      // WitnessParse：出错字符串在输入列表中的位置
	Missing []uint32 // IncompleteWitness：缺失的见证索引
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.sentinel().Error())
	switch e.Kind {
	case KindWitnessParse:
		fmt.Fprintf(&b, " at index %d", e.Index)
	case KindIncompleteWitness:
		fmt.Fprintf(&b, ", missing indices %v", e.Missing)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使类别哨兵错误可用于 errors.Is；KeyMismatch 同时属于 Proving
func (e *Error) Is(target error) bool {
	if target == e.sentinel() {
		return true
	}
	return e.Kind == KindKeyMismatch && target == ErrProving
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindSrsProvision:
		return ErrSrsProvision
	case KindVerificationKey:
		return ErrVerificationKey
	case KindWitnessParse:
		return ErrWitnessParse
	case KindIncompleteWitness:
		return ErrIncompleteWitness
	case KindKeyMismatch:
		return ErrKeyMismatch
	case KindProofFormat:
		return ErrProofFormat
	default:
		return ErrProving
	}
}

// KindOf 返回错误链中第一个结构化错误的类别
func KindOf(err error) (ErrorKind, bool) {
	var zkErr *Error
	if errors.As(err, &zkErr) {
		return zkErr.Kind, true
	}
	return "", false
}

// ============================================================================
//                               错误包装函数
// ============================================================================

// WrapSrsProvisionError 包装SRS准备错误
func WrapSrsProvisionError(op string, err error, format string, args ...interface{}) error {
	return &Error{Kind: KindSrsProvision, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WrapVerificationKeyError 包装验证密钥错误
func WrapVerificationKeyError(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindVerificationKey, Op: "vk", Msg: fmt.Sprintf(format, args...), Err: err}
}

// WrapWitnessParseError 包装见证值解析错误
func WrapWitnessParseError(index int, err error) error {
	return &Error{Kind: KindWitnessParse, Op: "witness.parse", Index: index, Err: err}
}

// WrapIncompleteWitnessError 包装见证不完整错误
func WrapIncompleteWitnessError(missing []uint32) error {
	return &Error{Kind: KindIncompleteWitness, Op: "prove", Missing: missing}
}

// WrapProvingError 包装证明生成错误
func WrapProvingError(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindProving, Op: "prove", Msg: fmt.Sprintf(format, args...), Err: err}
}

// WrapKeyMismatchError 包装密钥不匹配错误
func WrapKeyMismatchError(format string, args ...interface{}) error {
	return &Error{Kind: KindKeyMismatch, Op: "prove", Msg: fmt.Sprintf(format, args...)}
}

// WrapProofFormatError 包装证明格式错误
func WrapProofFormatError(op string, format string, args ...interface{}) error {
	return &Error{Kind: KindProofFormat, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// WrapInvalidBytecodeError 包装字节码错误
func WrapInvalidBytecodeError(reason string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBytecode, reason, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidBytecode, reason)
}
