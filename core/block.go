package core

// Block: a parent reference and an ordered transaction list. A block's own
// hash is never consulted during its own execution — only ParentHash,
// resolved through a BlockOracle to the root its parent left behind.

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// Block is the unit of execution (C5/C7): a parent reference, a state
// root, and an ordered transaction list. StateRoot is ignored by the
// executor on an incoming/candidate block — it is always overwritten with
// the post-execution root once the block has run.
type Block struct {
	ParentHash H
	StateRoot  H
	Txs        []Transaction
}

// Hash returns the content hash of the block's canonical RLP encoding. This
// is the block's own identity, distinct from ParentHash and from StateRoot.
func (b *Block) Hash() H {
	enc, err := rlp.EncodeToBytes(b)
	if err != nil {
		// Transaction.EncodeRLP only fails on an unknown Kind, which a Block
		// constructed through this package can never produce.
		panic("block: encode: " + err.Error())
	}
	return HashBytes(enc)
}
