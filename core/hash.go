package core

// Hash and balance primitives. Grounded on the teacher's Hash [32]byte
// type (core/common_structs.go) and its golang.org/x/crypto/sha3 import
// (core/utility_functions.go, there for Keccak256); here sha3.Sum256 is used
// directly since the spec's hash primitive is SHA3-256, not Keccak.

import (
	"bytes"
	"encoding/hex"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// H is a fixed 32-byte content identifier: a trie root, a node hash, an
// account key, a contract address. Total ordering is lexicographic byte
// comparison.
type H [32]byte

// ZeroHash is the all-zero sentinel used internally by the trie to mark an
// absent child or absent node. It is distinct from EmptyRoot.
var ZeroHash = H{}

// EmptyRoot is the root of a trie containing no entries. It is a real
// SHA3-256 digest (of the canonical encoding of an empty byte string), kept
// constant across runs, and is never equal to ZeroHash except by the same
// negligible-probability collision that would break the hash function
// itself.
var EmptyRoot = computeEmptyRoot()

func computeEmptyRoot() H {
	enc, err := rlp.EncodeToBytes([]byte{})
	if err != nil {
		panic("hash: encode empty string: " + err.Error())
	}
	return HashBytes(enc)
}

// HashBytes computes the SHA3-256 digest of data.
func HashBytes(data []byte) H {
	return H(sha3.Sum256(data))
}

// Bytes returns the hash as a byte slice.
func (h H) Bytes() []byte { return h[:] }

// IsZero reports whether h is the all-zero sentinel.
func (h H) IsZero() bool { return h == ZeroHash }

// Hex renders the hash as a "0x"-prefixed hex string.
func (h H) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h H) String() string { return h.Hex() }

// Cmp gives a total ordering over hashes by lexicographic byte comparison.
func (h H) Cmp(o H) int { return bytes.Compare(h[:], o[:]) }

// HashFromBytes copies up to 32 bytes of b into a new H, left-padding with
// zeros if b is shorter.
func HashFromBytes(b []byte) H {
	var out H
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}

// U256 is a 256-bit unsigned integer used for account balances. Arithmetic
// never saturates; subtraction that would underflow is rejected by Sub
// itself (an ErrTransferRejected error) rather than wrapping.
type U256 struct {
	v *big.Int
}

// NewU256 constructs a U256 from a uint64.
func NewU256(x uint64) U256 {
	return U256{v: new(big.Int).SetUint64(x)}
}

// U256FromBig wraps an existing big.Int. The value is copied so later
// mutation of b does not alias the returned U256.
func U256FromBig(b *big.Int) U256 {
	return U256{v: new(big.Int).Set(b)}
}

// U256FromBytes decodes the canonical big-endian minimal encoding used for
// account balances (the empty slice decodes to zero).
func U256FromBytes(b []byte) U256 {
	return U256{v: new(big.Int).SetBytes(b)}
}

// Bytes returns the canonical big-endian minimal encoding: no leading zero
// bytes, and the empty slice for zero.
func (u U256) Bytes() []byte {
	if u.v == nil || u.v.Sign() == 0 {
		return []byte{}
	}
	return u.v.Bytes()
}

// Cmp compares two balances the way big.Int.Cmp does.
func (u U256) Cmp(o U256) int {
	return u.big().Cmp(o.big())
}

// Add returns u + o.
func (u U256) Add(o U256) U256 {
	return U256{v: new(big.Int).Add(u.big(), o.big())}
}

// Sub returns u - o, or an error if the result would be negative. Balance
// subtraction never underflows silently: the pre-check lives here, not in
// the caller.
func (u U256) Sub(o U256) (U256, error) {
	if u.Cmp(o) < 0 {
		return U256{}, &ExecError{Kind: ErrTransferRejected, Msg: "balance underflow"}
	}
	return U256{v: new(big.Int).Sub(u.big(), o.big())}, nil
}

func (u U256) big() *big.Int {
	if u.v == nil {
		return new(big.Int)
	}
	return u.v
}

func (u U256) String() string { return u.big().String() }

// EncodeRLP lets U256 participate directly in RLP-encoded structs (Transfer
// encodes Amount this way), delegating to big.Int's own canonical,
// minimal-big-endian RLP encoding.
func (u U256) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, u.big())
}

// DecodeRLP is the inverse of EncodeRLP.
func (u *U256) DecodeRLP(s *rlp.Stream) error {
	var b big.Int
	if err := s.Decode(&b); err != nil {
		return err
	}
	u.v = &b
	return nil
}
