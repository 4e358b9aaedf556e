// Package blockiterr implements the fixed, ABI-stable error code table
// shared by every component of this module.
package blockiterr

import "fmt"

// Code identifies one of the fixed error conditions a caller can branch
// on. Values are stable across releases; never renumber an existing code.
type Code uint32

const (
	CodeChainEmpty            Code = 100
	CodeInvalidBlock          Code = 101
	CodeDuplicateTx           Code = 102
	CodeUnauthorized          Code = 103
	CodeHashFailed            Code = 104
	CodeNotInitialized        Code = 105
	CodeSigningFailed         Code = 106
	CodeVerificationFailed    Code = 107
	CodeInvalidTransaction    Code = 108
	CodeCapabilityMissing     Code = 109
	CodeMerkleEmpty           Code = 110
	CodeSerializationFailed   Code = 111
	CodeDeserializationFailed Code = 112
)

// Error is the concrete error type returned by every fallible operation
// in this module. Callers pattern-match on Code, never on Error().
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// CodeOf extracts the Code carried by err, or 0 if err is nil or not a
// *Error.
func CodeOf(err error) Code {
	if be, ok := err.(*Error); ok {
		return be.Code
	}
	return 0
}

// Is reports whether err is a *Error carrying code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

func newErr(code Code, def, msg string) *Error {
	if msg == "" {
		msg = def
	}
	return &Error{Code: code, Message: msg}
}

func ChainEmpty(msg string) *Error {
	return newErr(CodeChainEmpty, "chain is empty", msg)
}

func InvalidBlock(msg string) *Error {
	return newErr(CodeInvalidBlock, "invalid block", msg)
}

func DuplicateTx(msg string) *Error {
	return newErr(CodeDuplicateTx, "duplicate transaction", msg)
}

func Unauthorized(msg string) *Error {
	return newErr(CodeUnauthorized, "unauthorized", msg)
}

func HashFailed(msg string) *Error {
	return newErr(CodeHashFailed, "hash computation failed", msg)
}

func NotInitialized(msg string) *Error {
	return newErr(CodeNotInitialized, "not initialized", msg)
}

func SigningFailed(msg string) *Error {
	return newErr(CodeSigningFailed, "signing failed", msg)
}

func VerificationFailed(msg string) *Error {
	return newErr(CodeVerificationFailed, "verification failed", msg)
}

func InvalidTransaction(msg string) *Error {
	return newErr(CodeInvalidTransaction, "invalid transaction", msg)
}

func CapabilityMissing(msg string) *Error {
	return newErr(CodeCapabilityMissing, "capability missing", msg)
}

func MerkleEmpty(msg string) *Error {
	return newErr(CodeMerkleEmpty, "merkle tree is empty", msg)
}

func SerializationFailed(msg string) *Error {
	return newErr(CodeSerializationFailed, "serialization failed", msg)
}

func DeserializationFailed(msg string) *Error {
	return newErr(CodeDeserializationFailed, "deserialization failed", msg)
}
