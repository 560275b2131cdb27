package core

// Oracles: the two external-collaborator lookups block execution depends on
// but does not itself implement — resolving a block reference to its
// post-state root, and resolving a preimage hash to its bytes. Grounded on
// the teacher's ledger lookups (core/ledger.go's LastBlockHash/
// GetPendingSubBlocks resolve block state by reference in much the same
// "ask an external collaborator" shape) generalized to a narrow interface
// rather than the teacher's concrete WAL-backed Ledger.

import "github.com/ethereum/go-ethereum/rlp"

// BlockOracle resolves a parent block reference to the trie root produced
// by executing it. A miss is fatal (ErrOracleMiss): execution cannot
// proceed without knowing where its parent state actually is.
type BlockOracle interface {
	ResolveRoot(ref H) (H, bool)
}

// MapBlockOracle is a MockOracle-equivalent in-memory BlockOracle, built
// directly from a map since no teacher file models this external lookup
// concretely (see DESIGN.md's standard-library justification).
type MapBlockOracle struct {
	roots map[H]H
}

// NewMapBlockOracle constructs an empty oracle. Record populates its
// reference->root mapping, typically as the driver finishes executing each
// block.
func NewMapBlockOracle() *MapBlockOracle {
	return &MapBlockOracle{roots: make(map[H]H)}
}

// Record associates ref with root, making later blocks able to resolve it
// as a parent.
func (o *MapBlockOracle) Record(ref, root H) {
	o.roots[ref] = root
}

// ResolveRoot implements BlockOracle.
func (o *MapBlockOracle) ResolveRoot(ref H) (H, bool) {
	root, ok := o.roots[ref]
	return root, ok
}

// PreimageSource resolves a hash to the bytes it was computed from.
// PreimageOracle uses it to recover a parent block's canonical encoding from
// the block's hash.
type PreimageSource interface {
	Lookup(h H) ([]byte, bool)
}

// PreimageOracle wraps a PreimageSource and verifies every resolved value
// by rehashing it — a preimage that doesn't rehash to the requested digest
// is treated exactly like a miss (ErrOracleMiss), never silently accepted.
type PreimageOracle struct {
	src PreimageSource
}

// NewPreimageOracle constructs a verifying oracle over src.
func NewPreimageOracle(src PreimageSource) *PreimageOracle {
	return &PreimageOracle{src: src}
}

// Resolve looks up h and verifies HashBytes(preimage) == h before returning
// it.
func (o *PreimageOracle) Resolve(h H) ([]byte, error) {
	b, ok := o.src.Lookup(h)
	if !ok {
		return nil, &ExecError{Kind: ErrOracleMiss, Msg: "preimage not found: " + h.Hex()}
	}
	if HashBytes(b) != h {
		return nil, &ExecError{Kind: ErrOracleMiss, Msg: "preimage failed verification: " + h.Hex()}
	}
	return b, nil
}

// ResolveRoot implements BlockOracle by treating ref as the hash of a
// canonically RLP-encoded Block: it verifies the preimage via Resolve, then
// decodes it and returns the block's StateRoot. This is the second of the
// two BlockOracle variants - a MapBlockOracle answers from a fixed
// reference->root table built up as the driver runs; a PreimageOracle
// answers by recovering and decoding the actual parent block, so the root
// it returns is never accepted without the preimage rehashing to ref first.
func (o *PreimageOracle) ResolveRoot(ref H) (H, bool) {
	b, err := o.Resolve(ref)
	if err != nil {
		return H{}, false
	}
	var block Block
	if err := rlp.DecodeBytes(b, &block); err != nil {
		return H{}, false
	}
	return block.StateRoot, true
}

var _ BlockOracle = (*PreimageOracle)(nil)

// MapPreimageSource is an in-memory PreimageSource, used directly by tests.
type MapPreimageSource struct {
	m map[H][]byte
}

// NewMapPreimageSource constructs an empty source.
func NewMapPreimageSource() *MapPreimageSource {
	return &MapPreimageSource{m: make(map[H][]byte)}
}

// Put records b under its own hash, returning that hash for convenience.
func (s *MapPreimageSource) Put(b []byte) H {
	h := HashBytes(b)
	s.m[h] = b
	return h
}

// Lookup implements PreimageSource.
func (s *MapPreimageSource) Lookup(h H) ([]byte, bool) {
	b, ok := s.m[h]
	return b, ok
}
