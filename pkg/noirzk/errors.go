package noirzk

import (
	"errors"

	"github.com/weisyn/noirzk/internal/core/zkproof"
)

// 每个边界操作的稳定错误前缀
const (
	LabelSetupSrs           = "SRS setup failed"
	LabelSetupSrsWithSize   = "SRS setup with size failed"
	LabelVerificationKey    = "Getting verification key failed"
	LabelConvertWitness     = "Failed to convert witness"
	LabelSerializeWitness   = "Failed to serialize witness"
	LabelDeserializeWitness = "Failed to deserialize witness"
	LabelProving            = "Proving failed"
	LabelProofVerification  = "Proof verification failed"
)

// OpError 边界操作错误，Error() 为 "<Label>: <原始消息>"
type OpError struct {
	Label string
	Err   error
}

func (e *OpError) Error() string {
	return e.Label + ": " + e.Err.Error()
}

// Unwrap 返回底层错误
func (e *OpError) Unwrap() error { return e.Err }

func labeled(label string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Label: label, Err: err}
}

// KindOf 返回错误的结构化类别
func KindOf(err error) (zkproof.ErrorKind, bool) {
	return zkproof.KindOf(err)
}

// LabelOf 返回错误的操作前缀
func LabelOf(err error) (string, bool) {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Label, true
	}
	return "", false
}
