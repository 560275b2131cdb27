package core

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
)

func TestMapBlockOracleResolveRoot(t *testing.T) {
	oracle := NewMapBlockOracle()
	ref := HashBytes([]byte("block-1"))
	root := HashBytes([]byte("root-1"))

	if _, ok := oracle.ResolveRoot(ref); ok {
		t.Fatalf("expected miss before Record")
	}
	oracle.Record(ref, root)
	got, ok := oracle.ResolveRoot(ref)
	if !ok || got != root {
		t.Fatalf("ResolveRoot = %v, %v, want %v, true", got, ok, root)
	}
}

func TestPreimageOracleResolve(t *testing.T) {
	src := NewMapPreimageSource()
	h := src.Put([]byte("contract bytecode"))

	oracle := NewPreimageOracle(src)
	b, err := oracle.Resolve(h)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(b) != "contract bytecode" {
		t.Fatalf("Resolve returned %q", b)
	}
}

func TestPreimageOracleResolveMiss(t *testing.T) {
	oracle := NewPreimageOracle(NewMapPreimageSource())
	if _, err := oracle.Resolve(HashBytes([]byte("never-stored"))); !IsKind(err, ErrOracleMiss) {
		t.Fatalf("expected ErrOracleMiss, got %v", err)
	}
}

// TestPreimageOracleResolveRoot exercises PreimageOracle as a BlockOracle: a
// parent block is encoded, its hash recorded as the preimage key, and
// ResolveRoot recovers the block's StateRoot by decoding the verified
// preimage rather than consulting a fixed reference->root table.
func TestPreimageOracleResolveRoot(t *testing.T) {
	parent := &Block{
		ParentHash: HashBytes([]byte("genesis")),
		StateRoot:  HashBytes([]byte("parent-state-root")),
	}
	enc, err := rlp.EncodeToBytes(parent)
	if err != nil {
		t.Fatalf("encode parent: %v", err)
	}

	src := NewMapPreimageSource()
	ref := src.Put(enc)

	oracle := NewPreimageOracle(src)
	got, ok := oracle.ResolveRoot(ref)
	if !ok {
		t.Fatalf("ResolveRoot missed a recorded preimage")
	}
	if got != parent.StateRoot {
		t.Fatalf("ResolveRoot = %s, want %s", got, parent.StateRoot)
	}
}

func TestPreimageOracleResolveRootMiss(t *testing.T) {
	oracle := NewPreimageOracle(NewMapPreimageSource())
	if _, ok := oracle.ResolveRoot(HashBytes([]byte("never-stored"))); ok {
		t.Fatalf("expected a miss for an unrecorded reference")
	}
}

func TestPreimageOracleResolveRootTamperedPreimage(t *testing.T) {
	src := NewMapPreimageSource()
	ref := src.Put([]byte("not actually rlp"))
	// Corrupt the stored bytes after computing ref, so HashBytes no longer
	// matches: ResolveRoot must refuse to decode instead of reporting a root
	// for a value that never verified against ref.
	src.m[ref] = []byte("tampered")

	oracle := NewPreimageOracle(src)
	if _, ok := oracle.ResolveRoot(ref); ok {
		t.Fatalf("expected a miss for a tampered preimage")
	}
}

func TestPreimageOracleResolveRootNotABlock(t *testing.T) {
	src := NewMapPreimageSource()
	// A verified preimage that isn't a valid encoded Block must still miss
	// rather than decode into a zero-value root.
	ref := src.Put([]byte("not actually rlp"))

	oracle := NewPreimageOracle(src)
	if _, ok := oracle.ResolveRoot(ref); ok {
		t.Fatalf("expected a miss for a preimage that doesn't decode as a Block")
	}
}
