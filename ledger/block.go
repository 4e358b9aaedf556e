package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robolibs/blockit-sub001/blockiterr"
	"github.com/robolibs/blockit-sub001/merkle"
)

// BlockSignature is one validator's attestation over a block (or
// proposal) hash: the signer, the participant that operated it, the
// signature bytes, and when it was recorded.
type BlockSignature struct {
	ValidatorID   string
	ParticipantID string
	Signature     []byte
	SignedAt      int64 // unix milliseconds
}

// Serialize encodes a BlockSignature as:
// vid_len(4) | vid | pid_len(4) | pid | sig_len(4) | sig | signed_at(8)
// all integers little-endian.
func (s BlockSignature) Serialize() []byte {
	vid := []byte(s.ValidatorID)
	pid := []byte(s.ParticipantID)

	size := 4 + len(vid) + 4 + len(pid) + 4 + len(s.Signature) + 8
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(vid)))
	off += 4
	copy(buf[off:], vid)
	off += len(vid)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(pid)))
	off += 4
	copy(buf[off:], pid)
	off += len(pid)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(s.Signature)))
	off += 4
	copy(buf[off:], s.Signature)
	off += len(s.Signature)
	binary.LittleEndian.PutUint64(buf[off:], uint64(s.SignedAt))
	return buf
}

// DeserializeBlockSignature parses the wire format produced by Serialize.
func DeserializeBlockSignature(data []byte) (BlockSignature, error) {
	off := 0
	readChunk := func() ([]byte, error) {
		if len(data) < off+4 {
			return nil, blockiterr.DeserializationFailed("signature data truncated at length prefix")
		}
		n := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if len(data) < off+n {
			return nil, blockiterr.DeserializationFailed("signature data truncated")
		}
		chunk := data[off : off+n]
		off += n
		return chunk, nil
	}

	vid, err := readChunk()
	if err != nil {
		return BlockSignature{}, err
	}
	pid, err := readChunk()
	if err != nil {
		return BlockSignature{}, err
	}
	sig, err := readChunk()
	if err != nil {
		return BlockSignature{}, err
	}
	if len(data) < off+8 {
		return BlockSignature{}, blockiterr.DeserializationFailed("signature data truncated at signed_at")
	}
	signedAt := int64(binary.LittleEndian.Uint64(data[off:]))

	return BlockSignature{
		ValidatorID:   string(vid),
		ParticipantID: string(pid),
		Signature:     append([]byte(nil), sig...),
		SignedAt:      signedAt,
	}, nil
}

// Block is one entry in a Chain: an ordered batch of transactions
// anchored by a Merkle root, linked to its predecessor by hash, and
// co-signed by a set of validators. A Block's transaction list and
// header fields are fixed at construction; the only mutation surfaces
// are AddValidatorSignature and SetProposer, each guarded by the
// Block's own lock.
type Block[T Payload] struct {
	mu                  sync.RWMutex
	index               uint64
	previousHash        string
	timestamp           int64 // unix nanoseconds
	transactions        []Transaction[T]
	merkleRoot          string
	nonce               uint64
	hash                string
	proposerID          string
	validatorSignatures map[string]BlockSignature
}

// NewBlock builds and hashes a Block from its constituent parts. The
// Merkle root is computed from the transactions' canonical strings.
func NewBlock[T Payload](index uint64, previousHash string, txs []Transaction[T], nonce uint64) *Block[T] {
	leaves := make([]string, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.ToString()
	}
	root := merkle.Build(leaves).Root()

	b := &Block[T]{
		index:               index,
		previousHash:        previousHash,
		timestamp:           time.Now().UnixNano(),
		transactions:        append([]Transaction[T](nil), txs...),
		merkleRoot:          root,
		nonce:               nonce,
		proposerID:          "",
		validatorSignatures: make(map[string]BlockSignature),
	}
	b.hash = b.calculateHash()
	return b
}

func (b *Block[T]) calculateHash() string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%d|%s|%d",
		b.index, b.previousHash, b.timestamp, b.merkleRoot, b.nonce)))
	return hex.EncodeToString(digest[:])
}

func (b *Block[T]) Index() uint64        { return b.index }
func (b *Block[T]) PreviousHash() string { return b.previousHash }
func (b *Block[T]) Timestamp() int64     { return b.timestamp }
func (b *Block[T]) MerkleRoot() string   { return b.merkleRoot }
func (b *Block[T]) Nonce() uint64        { return b.nonce }

func (b *Block[T]) Hash() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hash
}

// Transactions returns a copy of the block's transaction list.
func (b *Block[T]) Transactions() []Transaction[T] {
	return append([]Transaction[T](nil), b.transactions...)
}

// ProposerID returns the validator id that proposed this block.
func (b *Block[T]) ProposerID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.proposerID
}

// SetProposer records which validator proposed this block.
func (b *Block[T]) SetProposer(validatorID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.proposerID = validatorID
}

// AddValidatorSignature records validatorID's (and its operating
// participant's) signature over the block's hash. Fails if validatorID
// has already signed this block.
func (b *Block[T]) AddValidatorSignature(validatorID, participantID string, signature []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.validatorSignatures[validatorID]; exists {
		return blockiterr.DuplicateTx("validator " + validatorID + " already signed this block")
	}
	b.validatorSignatures[validatorID] = BlockSignature{
		ValidatorID:   validatorID,
		ParticipantID: participantID,
		Signature:     append([]byte(nil), signature...),
		SignedAt:      time.Now().UnixMilli(),
	}
	return nil
}

// CountValidSignatures returns the number of distinct validators that
// have signed this block.
func (b *Block[T]) CountValidSignatures() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.validatorSignatures)
}

// ValidatorSignatures returns a copy of the recorded signatures.
func (b *Block[T]) ValidatorSignatures() map[string]BlockSignature {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]BlockSignature, len(b.validatorSignatures))
	for k, v := range b.validatorSignatures {
		v.Signature = append([]byte(nil), v.Signature...)
		out[k] = v
	}
	return out
}

// blockWire is the JSON-serializable mirror of Block, used for
// round-trip persistence.
type blockWire[T Payload] struct {
	Index               uint64                    `json:"index"`
	PreviousHash        string                    `json:"previous_hash"`
	Timestamp           int64                     `json:"timestamp"`
	Transactions        []txWire[T]               `json:"transactions"`
	MerkleRoot          string                    `json:"merkle_root"`
	Nonce               uint64                    `json:"nonce"`
	Hash                string                    `json:"hash"`
	ProposerID          string                    `json:"proposer_id"`
	ValidatorSignatures map[string]BlockSignature `json:"validator_signatures"`
}

type txWire[T Payload] struct {
	UUID          string `json:"uuid"`
	Payload       T      `json:"payload"`
	Priority      uint8  `json:"priority"`
	TimestampSec  int64  `json:"timestamp_sec"`
	TimestampNsec int64  `json:"timestamp_nsec"`
	Signature     []byte `json:"signature"`
}

// MarshalJSON implements json.Marshaler for round-trip serialization.
func (b *Block[T]) MarshalJSON() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	wire := blockWire[T]{
		Index:               b.index,
		PreviousHash:        b.previousHash,
		Timestamp:           b.timestamp,
		MerkleRoot:          b.merkleRoot,
		Nonce:               b.nonce,
		Hash:                b.hash,
		ProposerID:          b.proposerID,
		ValidatorSignatures: b.validatorSignatures,
	}
	wire.Transactions = make([]txWire[T], len(b.transactions))
	for i, tx := range b.transactions {
		wire.Transactions[i] = txWire[T]{
			UUID:          tx.uuid,
			Payload:       tx.payload,
			Priority:      tx.priority,
			TimestampSec:  tx.timestampSec,
			TimestampNsec: tx.timestampNsec,
			Signature:     tx.signature,
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler for round-trip deserialization.
func (b *Block[T]) UnmarshalJSON(data []byte) error {
	var wire blockWire[T]
	if err := json.Unmarshal(data, &wire); err != nil {
		return blockiterr.DeserializationFailed(err.Error())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = wire.Index
	b.previousHash = wire.PreviousHash
	b.timestamp = wire.Timestamp
	b.merkleRoot = wire.MerkleRoot
	b.nonce = wire.Nonce
	b.hash = wire.Hash
	b.proposerID = wire.ProposerID
	b.validatorSignatures = wire.ValidatorSignatures
	if b.validatorSignatures == nil {
		b.validatorSignatures = make(map[string]BlockSignature)
	}
	b.transactions = make([]Transaction[T], len(wire.Transactions))
	for i, w := range wire.Transactions {
		b.transactions[i] = Transaction[T]{
			uuid:          w.UUID,
			payload:       w.Payload,
			priority:      w.Priority,
			timestampSec:  w.TimestampSec,
			timestampNsec: w.TimestampNsec,
			signature:     w.Signature,
		}
	}
	return nil
}
