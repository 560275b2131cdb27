package core

// Authenticated trie operations: Get, Insert, InsertEmpty. Pure
// functions over (root, store, key[, value]) — insertion never mutates
// store directly, it returns a new root plus the ChangeSet the caller must
// Apply.

import "bytes"

// Get returns the value most recently inserted at key under root, or
// (nil, false) if no such entry exists. Lookup on EmptyRoot always returns
// false without touching the store — a pure function of root, key, and the
// nodes reachable from root.
func Get(root H, store NodeStore, key []byte) ([]byte, bool, error) {
	if isEmptyHandle(root) {
		return nil, false, nil
	}
	return getNibbles(root, store, keyToNibbles(key))
}

func getNibbles(h H, store NodeStore, nibbles []byte) ([]byte, bool, error) {
	if isEmptyHandle(h) {
		return nil, false, nil
	}
	n, err := fetchNode(h, store)
	if err != nil {
		return nil, false, err
	}
	switch n.Kind {
	case nodeLeaf:
		if bytes.Equal(n.Path, nibbles) {
			return n.Value, true, nil
		}
		return nil, false, nil
	case nodeExtension:
		if len(nibbles) < len(n.Path) || !bytes.Equal(n.Path, nibbles[:len(n.Path)]) {
			return nil, false, nil
		}
		return getNibbles(n.Child, store, nibbles[len(n.Path):])
	case nodeBranch:
		if len(nibbles) == 0 {
			if len(n.Value) == 0 {
				return nil, false, nil
			}
			return n.Value, true, nil
		}
		return getNibbles(n.Children[nibbles[0]], store, nibbles[1:])
	default:
		return nil, false, &ExecError{Kind: ErrInvariantViolation, Msg: "unknown node kind during get"}
	}
}

// InsertEmpty is Insert against the empty trie.
func InsertEmpty(key, value []byte) (H, ChangeSet, error) {
	return Insert(EmptyRoot, NewMapStore(), key, value)
}

// Insert produces the root that results from setting key -> value under
// root, together with the nodes to add and the nodes made unreachable by
// the update. value must be non-empty: callers never insert empty values.
//
// Re-inserting the exact (key, value) already present under root returns
// root unchanged with an empty ChangeSet (see DESIGN.md's Open Question #2
// on this idempotence decision): every node on the path compares equal to
// what's already stored and the recursion returns "unchanged" at each level
// without ever calling addNode/remove.
func Insert(root H, store NodeStore, key, value []byte) (H, ChangeSet, error) {
	if len(value) == 0 {
		return root, ChangeSet{}, &ExecError{Kind: ErrInvariantViolation, Msg: "insert with empty value"}
	}
	cs := newChangeSet()
	newRoot, err := insertNibbles(root, keyToNibbles(key), value, store, &cs)
	if err != nil {
		return root, ChangeSet{}, err
	}
	if newRoot == root {
		return root, ChangeSet{}, nil
	}
	return newRoot, cs, nil
}

// insertNibbles is the recursive workhorse. It returns the hash of the
// (possibly unchanged) subtree rooted at h after setting nibbles -> value,
// recording any structural changes into cs. Returning exactly h signals "no
// change here", which the caller uses to avoid re-adding unchanged
// ancestors.
func insertNibbles(h H, nibbles []byte, value []byte, store NodeStore, cs *ChangeSet) (H, error) {
	if isEmptyHandle(h) {
		leaf := &trieNode{Kind: nodeLeaf, Path: append([]byte{}, nibbles...), Value: value}
		return addNode(leaf, cs), nil
	}
	n, err := fetchNode(h, store)
	if err != nil {
		return h, err
	}
	switch n.Kind {
	case nodeLeaf:
		return insertIntoLeaf(h, n, nibbles, value, cs)
	case nodeExtension:
		return insertIntoExtension(h, n, nibbles, value, store, cs)
	case nodeBranch:
		return insertIntoBranch(h, n, nibbles, value, store, cs)
	default:
		return h, &ExecError{Kind: ErrInvariantViolation, Msg: "unknown node kind during insert"}
	}
}

func insertIntoLeaf(h H, n *trieNode, nibbles, value []byte, cs *ChangeSet) (H, error) {
	if bytes.Equal(n.Path, nibbles) {
		if bytes.Equal(n.Value, value) {
			return h, nil
		}
		cs.remove(h)
		leaf := &trieNode{Kind: nodeLeaf, Path: n.Path, Value: value}
		return addNode(leaf, cs), nil
	}
	cs.remove(h)
	return splitInto(h, n.Path, n.Value, true, ZeroHash, nibbles, value, cs), nil
}

func insertIntoExtension(h H, n *trieNode, nibbles []byte, value []byte, store NodeStore, cs *ChangeSet) (H, error) {
	cp := commonPrefixLen(n.Path, nibbles)
	if cp == len(n.Path) {
		newChild, err := insertNibbles(n.Child, nibbles[cp:], value, store, cs)
		if err != nil {
			return h, err
		}
		if newChild == n.Child {
			return h, nil
		}
		cs.remove(h)
		ext := &trieNode{Kind: nodeExtension, Path: n.Path, Child: newChild}
		return addNode(ext, cs), nil
	}
	cs.remove(h)
	return splitInto(h, n.Path, nil, false, n.Child, nibbles, value, cs), nil
}

func insertIntoBranch(h H, n *trieNode, nibbles []byte, value []byte, store NodeStore, cs *ChangeSet) (H, error) {
	if len(nibbles) == 0 {
		if bytes.Equal(n.Value, value) {
			return h, nil
		}
		cs.remove(h)
		branch := &trieNode{Kind: nodeBranch, Value: value, Children: n.Children}
		return addNode(branch, cs), nil
	}
	idx := nibbles[0]
	newChild, err := insertNibbles(n.Children[idx], nibbles[1:], value, store, cs)
	if err != nil {
		return h, err
	}
	if newChild == n.Children[idx] {
		return h, nil
	}
	cs.remove(h)
	branch := &trieNode{Kind: nodeBranch, Value: n.Value, Children: n.Children}
	branch.Children[idx] = newChild
	return addNode(branch, cs), nil
}

// splitInto builds the branch (optionally wrapped in an extension) that
// results from two paths diverging partway through a shared prefix.
//
//   - existingPath/existingValue/existingIsLeaf describe the node being
//     replaced: if existingIsLeaf, existingPath/existingValue is a leaf's
//     full remaining path and value; otherwise it is an extension's path
//     with its child existingChild.
//   - newNibbles/newValue is the path being inserted.
//
// Both existingPath and newNibbles are relative to the same starting point
// (the position h occupied before the split).
func splitInto(_ H, existingPath []byte, existingValue []byte, existingIsLeaf bool, existingChild H, newNibbles []byte, newValue []byte, cs *ChangeSet) H {
	cp := commonPrefixLen(existingPath, newNibbles)

	branch := &trieNode{Kind: nodeBranch}

	placeExisting := func() {
		rest := existingPath[cp:]
		if len(rest) == 0 {
			if existingIsLeaf {
				branch.Value = existingValue
			} else {
				// An extension node can never have an empty path (it would
				// collapse into its child directly), so this arm is leaf-only
				// in practice; guard defensively anyway.
				branch.Value = existingValue
			}
			return
		}
		idx := rest[0]
		tail := rest[1:]
		if existingIsLeaf {
			leaf := &trieNode{Kind: nodeLeaf, Path: append([]byte{}, tail...), Value: existingValue}
			branch.Children[idx] = addNode(leaf, cs)
		} else if len(tail) == 0 {
			branch.Children[idx] = existingChild
		} else {
			ext := &trieNode{Kind: nodeExtension, Path: append([]byte{}, tail...), Child: existingChild}
			branch.Children[idx] = addNode(ext, cs)
		}
	}

	placeNew := func() {
		rest := newNibbles[cp:]
		if len(rest) == 0 {
			branch.Value = newValue
			return
		}
		idx := rest[0]
		tail := rest[1:]
		leaf := &trieNode{Kind: nodeLeaf, Path: append([]byte{}, tail...), Value: newValue}
		branch.Children[idx] = addNode(leaf, cs)
	}

	placeExisting()
	placeNew()

	branchHash := addNode(branch, cs)
	if cp == 0 {
		return branchHash
	}
	ext := &trieNode{Kind: nodeExtension, Path: append([]byte{}, existingPath[:cp]...), Child: branchHash}
	return addNode(ext, cs)
}
