package ledger

import (
	"sync"

	"github.com/google/uuid"

	"github.com/robolibs/blockit-sub001/blockiterr"
	"github.com/robolibs/blockit-sub001/merkle"
)

const genesisPreviousHash = "GENESIS"

// Chain is an append-only sequence of blocks, validated on every append
// against its predecessor, its own recomputed hash, the Merkle root of
// its transactions, and the set of transaction UUIDs already committed
// anywhere in the chain.
type Chain[T Payload] struct {
	mu      sync.RWMutex
	id      string
	blocks  []*Block[T]
	txUUIDs map[string]struct{}
}

// NewChain creates a chain seeded with a genesis block (index 0,
// previous hash "GENESIS") containing a single system-provided
// transaction carrying genesisPayload.
func NewChain[T Payload](genesisPayload T) *Chain[T] {
	genesisTx := NewTransaction[T](genesisPayload, 0)
	c := &Chain[T]{
		id:      uuid.NewString(),
		txUUIDs: map[string]struct{}{genesisTx.UUID(): {}},
	}
	genesis := NewBlock[T](0, genesisPreviousHash, []Transaction[T]{genesisTx}, 0)
	c.blocks = append(c.blocks, genesis)
	return c
}

// ID is this chain instance's identifier.
func (c *Chain[T]) ID() string {
	return c.id
}

// Height returns the number of blocks, including genesis.
func (c *Chain[T]) Height() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Last returns the most recently appended block.
func (c *Chain[T]) Last() *Block[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

// BlockAt returns the block at index, or an error if out of range.
func (c *Chain[T]) BlockAt(index uint64) (*Block[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index >= uint64(len(c.blocks)) {
		return nil, blockiterr.InvalidBlock("block index out of range")
	}
	return c.blocks[index], nil
}

// AddBlock validates and appends block. On any violation, the chain is
// left unchanged (no partial append) and a descriptive error is
// returned.
func (c *Chain[T]) AddBlock(block *Block[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return blockiterr.ChainEmpty("chain has no genesis block")
	}
	last := c.blocks[len(c.blocks)-1]

	if block.Index() != last.Index()+1 {
		return blockiterr.InvalidBlock("block index is not sequential")
	}
	if block.PreviousHash() != last.Hash() {
		return blockiterr.InvalidBlock("block previous_hash does not match chain tip")
	}
	if block.Hash() != block.calculateHash() {
		return blockiterr.HashFailed("block hash does not match its own contents")
	}

	leaves := make([]string, 0, len(block.transactions))
	for _, tx := range block.transactions {
		leaves = append(leaves, tx.ToString())
	}
	if merkle.Build(leaves).Root() != block.MerkleRoot() {
		return blockiterr.InvalidBlock("block merkle root does not match its transactions")
	}

	for _, tx := range block.transactions {
		if _, exists := c.txUUIDs[tx.uuid]; exists {
			return blockiterr.DuplicateTx("transaction " + tx.uuid + " already committed to this chain")
		}
	}

	for _, tx := range block.transactions {
		c.txUUIDs[tx.uuid] = struct{}{}
	}
	c.blocks = append(c.blocks, block)
	return nil
}

// HasTransaction reports whether a transaction UUID has already been
// committed anywhere in the chain.
func (c *Chain[T]) HasTransaction(txUUID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.txUUIDs[txUUID]
	return ok
}
