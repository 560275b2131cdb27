package core

import (
	"bytes"
	"testing"
)

func TestTrieRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		kvs  map[string]string
	}{
		{"single", map[string]string{"account-1": "balance-100"}},
		{"shared-prefix", map[string]string{"account-1": "a", "account-2": "b", "account-12": "c"}},
		{"divergent", map[string]string{"aaaa": "1", "bbbb": "2", "cccc": "3"}},
		{"nested", map[string]string{"a": "1", "ab": "2", "abc": "3", "abcd": "4"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewMapStore()
			root := EmptyRoot
			for k, v := range tc.kvs {
				newRoot, cs, err := Insert(root, store, []byte(k), []byte(v))
				if err != nil {
					t.Fatalf("insert %q: %v", k, err)
				}
				if err := store.Apply(cs); err != nil {
					t.Fatalf("apply changeset for %q: %v", k, err)
				}
				root = newRoot
			}
			for k, v := range tc.kvs {
				got, ok, err := Get(root, store, []byte(k))
				if err != nil {
					t.Fatalf("get %q: %v", k, err)
				}
				if !ok {
					t.Fatalf("get %q: not found", k)
				}
				if !bytes.Equal(got, []byte(v)) {
					t.Fatalf("get %q: got %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestTrieMissingKey(t *testing.T) {
	store := NewMapStore()
	root, cs, err := Insert(EmptyRoot, store, []byte("present"), []byte("x"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Apply(cs); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok, err := Get(root, store, []byte("absent")); err != nil || ok {
		t.Fatalf("get absent: ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestTrieGetOnEmptyRoot(t *testing.T) {
	store := NewMapStore()
	if _, ok, err := Get(EmptyRoot, store, []byte("anything")); err != nil || ok {
		t.Fatalf("get on empty root: ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestTrieIdempotentReinsert(t *testing.T) {
	store := NewMapStore()
	root, cs, err := Insert(EmptyRoot, store, []byte("k"), []byte("v"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Apply(cs); err != nil {
		t.Fatalf("apply: %v", err)
	}
	before := store.Len()

	root2, cs2, err := Insert(root, store, []byte("k"), []byte("v"))
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if root2 != root {
		t.Fatalf("reinsert changed root: got %s, want %s", root2.Hex(), root.Hex())
	}
	if !cs2.IsEmpty() {
		t.Fatalf("reinsert produced non-empty changeset: %+v", cs2)
	}
	if err := store.Apply(cs2); err != nil {
		t.Fatalf("apply empty changeset: %v", err)
	}
	if store.Len() != before {
		t.Fatalf("reinsert changed store size: got %d, want %d", store.Len(), before)
	}
}

func TestTrieDeterministicRoot(t *testing.T) {
	kvs := []struct{ k, v string }{
		{"alpha", "1"}, {"beta", "2"}, {"gamma", "3"}, {"alphabet", "4"},
	}

	build := func() H {
		store := NewMapStore()
		root := EmptyRoot
		for _, kv := range kvs {
			newRoot, cs, err := Insert(root, store, []byte(kv.k), []byte(kv.v))
			if err != nil {
				t.Fatalf("insert %q: %v", kv.k, err)
			}
			if err := store.Apply(cs); err != nil {
				t.Fatalf("apply: %v", err)
			}
			root = newRoot
		}
		return root
	}

	r1 := build()
	r2 := build()
	if r1 != r2 {
		t.Fatalf("non-deterministic root: %s != %s", r1.Hex(), r2.Hex())
	}
}

func TestTrieChangeSetCompleteness(t *testing.T) {
	store := NewMapStore()
	root, cs, err := Insert(EmptyRoot, store, []byte("k1"), []byte("v1"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Apply(cs); err != nil {
		t.Fatalf("apply: %v", err)
	}

	root2, cs2, err := Insert(root, store, []byte("k2"), []byte("v2"))
	if err != nil {
		t.Fatalf("insert k2: %v", err)
	}
	// Every node reachable from root2 but not from root must be in cs2.Adds;
	// applying cs2 and then walking root2 must resolve without a dangling
	// reference.
	if err := store.Apply(cs2); err != nil {
		t.Fatalf("apply cs2: %v", err)
	}
	if _, ok, err := Get(root2, store, []byte("k1")); err != nil || !ok {
		t.Fatalf("k1 lost after second insert: ok=%v err=%v", ok, err)
	}
	if _, ok, err := Get(root2, store, []byte("k2")); err != nil || !ok {
		t.Fatalf("k2 missing: ok=%v err=%v", ok, err)
	}
}

func TestInsertEmptyValueRejected(t *testing.T) {
	if _, _, err := InsertEmpty([]byte("k"), nil); err == nil {
		t.Fatalf("expected error inserting empty value")
	} else if !IsKind(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestTrieDanglingReference(t *testing.T) {
	store := NewMapStore()
	root, cs, err := Insert(EmptyRoot, store, []byte("k"), []byte("v"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Deliberately don't apply cs: the store never learns about root's node.
	_ = cs
	if _, _, err := Get(root, store, []byte("k")); err == nil {
		t.Fatalf("expected dangling reference error")
	} else if !IsKind(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}
