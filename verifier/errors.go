// Package verifier implements the consensus rule engine: the stateless and
// stateful passes a candidate block must survive before the storage engine
// will commit it, plus the BIP9 soft-fork activation state machine those
// passes consult.
package verifier

import "github.com/pkg/errors"

// ErrorCode classifies a consensus rule violation, mirroring the teacher's
// RuleError taxonomy in blockdag/validate.go but narrowed to the error kinds
// spec section 7 names.
type ErrorCode int

const (
	ErrEmpty ErrorCode = iota
	ErrPow
	ErrTimestamp
	ErrMerkleRoot
	ErrCoinbase
	ErrCoinbaseSignatureLength
	ErrMaximumSigops
	ErrCoinbaseOverspend
	ErrTransaction
)

var errorCodeStrings = map[ErrorCode]string{
	ErrEmpty:                   "ErrEmpty",
	ErrPow:                     "ErrPow",
	ErrTimestamp:               "ErrTimestamp",
	ErrMerkleRoot:              "ErrMerkleRoot",
	ErrCoinbase:                "ErrCoinbase",
	ErrCoinbaseSignatureLength: "ErrCoinbaseSignatureLength",
	ErrMaximumSigops:           "ErrMaximumSigops",
	ErrCoinbaseOverspend:       "ErrCoinbaseOverspend",
	ErrTransaction:             "ErrTransaction",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return "ErrUnknown"
}

// RuleError identifies a block that fails consensus validation. The caller
// (netsync) treats every RuleError as non-retryable: the supplying peer is
// penalized and the block discarded.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e RuleError) Error() string {
	return e.Description
}

func ruleError(code ErrorCode, description string) error {
	return errors.WithStack(RuleError{ErrorCode: code, Description: description})
}

// TxErrorCode classifies why a single transaction within a block failed the
// stateful pass.
type TxErrorCode int

const (
	TxErrMaturity TxErrorCode = iota
	TxErrUnknownReference
	TxErrInput
	TxErrOverspend
	TxErrSignature
	TxErrSignatureMalformed
	TxErrInconclusive
)

var txErrorCodeStrings = map[TxErrorCode]string{
	TxErrMaturity:           "Maturity",
	TxErrUnknownReference:   "UnknownReference",
	TxErrInput:              "Input",
	TxErrOverspend:          "Overspend",
	TxErrSignature:          "Signature",
	TxErrSignatureMalformed: "SignatureMalformed",
	TxErrInconclusive:       "Inconclusive",
}

func (e TxErrorCode) String() string {
	if s, ok := txErrorCodeStrings[e]; ok {
		return s
	}
	return "Unknown"
}

// TransactionError reports a consensus failure attributable to one
// transaction at TxIndex within the block, narrowed further by TxErrorCode.
// Inconclusive is distinguished from the rest: it means the referenced
// transaction exists neither in the store nor earlier in the same block, a
// signal to request the missing parent and retry rather than a hard
// consensus failure.
type TransactionError struct {
	TxIndex int
	Code    TxErrorCode
	Message string
}

func (e TransactionError) Error() string {
	return e.Message
}

func txRuleError(txIndex int, code TxErrorCode, message string) error {
	return errors.WithStack(TransactionError{TxIndex: txIndex, Code: code, Message: message})
}

// IsInconclusive reports whether err signals a missing dependency (request
// parents and retry) rather than a hard consensus failure.
func IsInconclusive(err error) bool {
	var txErr TransactionError
	if errors.As(err, &txErr) {
		return txErr.Code == TxErrInconclusive
	}
	return false
}
