package core

// Trie node representation and canonical encoding. The algorithmic
// shape — leaf/extension/branch over nibble paths, content-addressed by the
// hash of their own canonical encoding — follows iotaledger-trie.go's
// buffered-node / node-store split (trie/node.go, trie/nodestore.go),
// re-expressed in the teacher's flat-package idiom and hashed with the same
// RLP + SHA3-256 stack as the rest of C1.

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

type nodeKind uint8

const (
	nodeLeaf nodeKind = iota
	nodeExtension
	nodeBranch
)

// trieNode is the in-memory form of a single trie node. Exactly one of the
// field groups below is meaningful, selected by Kind:
//   - leaf: Path (nibble suffix), Value
//   - extension: Path (nibble prefix shared by every key below), Child
//   - branch: Children[0..15], and Value if some key's path ends exactly at
//     this branch (a strict-prefix key).
type trieNode struct {
	Kind     nodeKind
	Path     []byte
	Value    []byte
	Child    H
	Children [16]H
}

// rlpNode is the wire/hash form. Using a dedicated struct (rather than
// hand-rolling length-prefixed bytes) lets the real RLP library — the
// spec's own "RLP encoding rules" external contract — own canonical byte
// string and list framing.
type rlpNode struct {
	Kind     uint8
	Path     []byte
	Value    []byte
	Child    []byte
	Children [][]byte
}

func encodeNode(n *trieNode) []byte {
	rn := rlpNode{Kind: uint8(n.Kind)}
	switch n.Kind {
	case nodeLeaf:
		rn.Path = n.Path
		rn.Value = n.Value
	case nodeExtension:
		rn.Path = n.Path
		rn.Child = n.Child.Bytes()
	case nodeBranch:
		rn.Value = n.Value
		rn.Children = make([][]byte, 16)
		for i, c := range n.Children {
			if c != ZeroHash {
				rn.Children[i] = c.Bytes()
			} else {
				rn.Children[i] = []byte{}
			}
		}
	}
	b, err := rlp.EncodeToBytes(&rn)
	if err != nil {
		// rlpNode's fields are all plain byte slices and a uint8; encoding
		// cannot fail short of an OOM, which Go's allocator would already
		// have turned into a fatal runtime error.
		panic("trie: encode node: " + err.Error())
	}
	return b
}

func decodeNode(b []byte) (*trieNode, error) {
	var rn rlpNode
	if err := rlp.DecodeBytes(b, &rn); err != nil {
		return nil, &ExecError{Kind: ErrInvariantViolation, Msg: "decode node", Err: err}
	}
	n := &trieNode{Kind: nodeKind(rn.Kind)}
	switch n.Kind {
	case nodeLeaf:
		n.Path = rn.Path
		n.Value = rn.Value
	case nodeExtension:
		n.Path = rn.Path
		n.Child = HashFromBytes(rn.Child)
	case nodeBranch:
		n.Value = rn.Value
		if len(rn.Children) != 16 {
			return nil, &ExecError{Kind: ErrInvariantViolation, Msg: "branch node with wrong child count"}
		}
		for i, c := range rn.Children {
			if len(c) > 0 {
				n.Children[i] = HashFromBytes(c)
			}
		}
	default:
		return nil, &ExecError{Kind: ErrInvariantViolation, Msg: fmt.Sprintf("unknown node kind %d", rn.Kind)}
	}
	return n, nil
}

// addNode encodes n, hashes the encoding, records it in cs.Adds, and returns
// its hash — a node's identity is always HASH(canonical_encode(node)).
func addNode(n *trieNode, cs *ChangeSet) H {
	enc := encodeNode(n)
	h := HashBytes(enc)
	cs.add(h, enc)
	return h
}

// fetchNode resolves a node handle to its decoded form. ZeroHash is never a
// valid store key; callers must special-case it (an absent child/subtree)
// before calling fetchNode. A handle that is neither ZeroHash nor present in
// the store is a dangling reference — always fatal.
func fetchNode(h H, store NodeStore) (*trieNode, error) {
	b, ok := store.Get(h)
	if !ok {
		return nil, &ExecError{Kind: ErrInvariantViolation, Msg: "dangling node reference: " + h.Hex()}
	}
	return decodeNode(b)
}

// isEmptyHandle reports whether h denotes "no subtree here" — either the
// internal absent-child sentinel or the root of a trie with no entries.
func isEmptyHandle(h H) bool {
	return h == ZeroHash || h == EmptyRoot
}

// keyToNibbles expands each byte of key into two nibbles, high then low.
func keyToNibbles(key []byte) []byte {
	out := make([]byte, len(key)*2)
	for i, b := range key {
		out[2*i] = b >> 4
		out[2*i+1] = b & 0x0f
	}
	return out
}

// commonPrefixLen returns the length of the longest common prefix of a and b.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
