// Package ledger implements the transaction, block, and chain types at
// the core of the ledger, generic over an application-defined payload.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robolibs/blockit-sub001/blockiterr"
	"github.com/robolibs/blockit-sub001/identity"
)

// Payload is the contract an application's transaction body must
// satisfy. ToString must be deterministic: the same logical payload
// always produces the same string, since it feeds both signing and
// Merkle-leaf hashing.
type Payload interface {
	ToString() string
}

// Transaction wraps an application payload with the fields needed to
// order, sign, and verify it inside a block. A Transaction is immutable
// once signed: Sign on an already-signed Transaction returns an error
// rather than re-signing.
type Transaction[T Payload] struct {
	uuid          string
	payload       T
	priority      uint8
	timestampSec  int64
	timestampNsec int64
	signature     []byte
}

// NewTransaction creates an unsigned Transaction with a fresh UUID and
// the current timestamp.
func NewTransaction[T Payload](payload T, priority uint8) Transaction[T] {
	now := time.Now()
	return Transaction[T]{
		uuid:          uuid.NewString(),
		payload:       payload,
		priority:      priority,
		timestampSec:  now.Unix(),
		timestampNsec: int64(now.Nanosecond()),
	}
}

func (tx Transaction[T]) UUID() string         { return tx.uuid }
func (tx Transaction[T]) Payload() T           { return tx.payload }
func (tx Transaction[T]) Priority() uint8      { return tx.priority }
func (tx Transaction[T]) TimestampSec() int64  { return tx.timestampSec }
func (tx Transaction[T]) TimestampNsec() int64 { return tx.timestampNsec }
func (tx Transaction[T]) Signature() []byte {
	return append([]byte(nil), tx.signature...)
}
func (tx Transaction[T]) IsSigned() bool { return len(tx.signature) > 0 }

// ToString is the canonical, deterministic representation used for
// both signing and Merkle-leaf hashing.
func (tx Transaction[T]) ToString() string {
	return fmt.Sprintf("%s|%d|%s", tx.uuid, tx.priority, tx.payload.ToString())
}

// Sign signs the transaction's canonical string with key and returns a
// new, signed Transaction. Fails if the transaction is already signed
// or key has no private material.
func (tx Transaction[T]) Sign(key identity.Key) (Transaction[T], error) {
	if tx.IsSigned() {
		return tx, blockiterr.InvalidTransaction("transaction is already signed")
	}
	sig, err := key.Sign([]byte(tx.ToString()))
	if err != nil {
		return tx, err
	}
	signed := tx
	signed.signature = sig
	return signed, nil
}

// Verify checks the transaction's signature against key's public half.
func (tx Transaction[T]) Verify(key identity.Key) (bool, error) {
	if !tx.IsSigned() {
		return false, blockiterr.VerificationFailed("transaction is not signed")
	}
	return key.Verify([]byte(tx.ToString()), tx.signature)
}
