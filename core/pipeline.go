package core

// Block pipeline. Resolves a block's parent through the oracle, runs
// every transaction against the parent's post-state root, and stamps the
// resulting root into a new block header. On any fatal error the caller's
// real node store is left exactly as it was before ExecuteBlock was called:
// every write the block makes lands in a stagingStore layered over the real
// one, and the real store only ever sees the accumulated ChangeSet once the
// whole block has succeeded — the caller decides whether and when to Apply
// it.

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

var pipelineLog = logrus.WithField("component", "pipeline")

// stagingStore lets ExecuteBlock accumulate a block's writes without
// mutating the caller's store: reads fall through to base for anything not
// yet staged, and Apply records adds/removes locally rather than against
// base. It implements MutableNodeStore so *ExecState can use it directly —
// including the intra-block re-reads a single Transfer's two sequential
// inserts require.
type stagingStore struct {
	base  NodeStore
	added map[H][]byte
	// removed names nodes staged for removal: entries removed here came
	// from base and must be forwarded to the real store's Apply once the
	// block commits.
	removed map[H]struct{}
}

func newStagingStore(base NodeStore) *stagingStore {
	return &stagingStore{base: base, added: make(map[H][]byte), removed: make(map[H]struct{})}
}

func (s *stagingStore) Get(h H) ([]byte, bool) {
	if b, ok := s.added[h]; ok {
		return b, true
	}
	if _, ok := s.removed[h]; ok {
		return nil, false
	}
	return s.base.Get(h)
}

// Apply mirrors MapStore.Apply's idempotence/collision rules, but against
// the layered (added, removed, base) view rather than a single map.
func (s *stagingStore) Apply(cs ChangeSet) error {
	for h, b := range cs.Adds {
		if existing, ok := s.added[h]; ok {
			if !bytes.Equal(existing, b) {
				return &ExecError{Kind: ErrInvariantViolation, Msg: "add collision: " + h.Hex() + " exists with different bytes"}
			}
			continue
		}
		if baseBytes, ok := s.base.Get(h); ok {
			if _, removed := s.removed[h]; !removed {
				if !bytes.Equal(baseBytes, b) {
					return &ExecError{Kind: ErrInvariantViolation, Msg: "add collision: " + h.Hex() + " exists with different bytes"}
				}
				continue
			}
		}
		s.added[h] = b
		delete(s.removed, h)
	}
	for h := range cs.Removes {
		if _, ok := s.added[h]; ok {
			delete(s.added, h)
			// A base node that was staged for removal and then re-added is
			// removed from base again, not just un-staged.
			if _, inBase := s.base.Get(h); inBase {
				s.removed[h] = struct{}{}
			}
			continue
		}
		if _, ok := s.base.Get(h); !ok {
			return &ExecError{Kind: ErrInvariantViolation, Msg: "remove of absent node: " + h.Hex()}
		}
		s.removed[h] = struct{}{}
	}
	return nil
}

// changeSet returns everything staged this block, in the form the real
// store's Apply expects.
func (s *stagingStore) changeSet() ChangeSet {
	cs := newChangeSet()
	for h, b := range s.added {
		cs.Adds[h] = b
	}
	for h := range s.removed {
		cs.Removes[h] = struct{}{}
	}
	return cs
}

// ExecuteBlock runs block against the state backed by store, using oracle
// to resolve block.ParentHash to a starting root. On success it returns a
// Block with StateRoot set to the post-execution root, and the ChangeSet
// the caller must Apply to store to actually commit it. On any fatal
// ExecError, the returned ChangeSet is empty and nothing needs to be
// undone — store was never touched.
func ExecuteBlock(store NodeStore, oracle BlockOracle, host *VMHost, sandbox *SandboxTracker, block *Block) (*Block, ChangeSet, error) {
	parentRoot, ok := oracle.ResolveRoot(block.ParentHash)
	if !ok {
		pipelineLog.WithField("parent", block.ParentHash.Hex()).Warn("block execution aborted: parent not resolvable")
		return nil, ChangeSet{}, &ExecError{Kind: ErrOracleMiss, Msg: "parent block not resolvable: " + block.ParentHash.Hex()}
	}

	staging := newStagingStore(store)
	es := NewExecState(staging, parentRoot)
	snapshotRoot := parentRoot

	invoke := func(addr H, code, calldata []byte, es *ExecState) error {
		_, err := host.Invoke(code, calldata, addr, es, sandbox)
		return err
	}

	for i, tx := range block.Txs {
		var err error
		switch tx.Kind {
		case TxTransfer:
			err = es.ApplyTransfer(snapshotRoot, tx.Transfer)
		case TxDeploy:
			_, err = es.ApplyDeploy(tx.Deploy, invoke)
		case TxCall:
			err = es.ApplyCall(tx.Call, invoke)
		default:
			err = &ExecError{Kind: ErrInvariantViolation, Msg: "unknown transaction kind"}
		}
		if err != nil {
			pipelineLog.WithFields(logrus.Fields{
				"tx_index": i,
				"kind":     tx.Kind,
				"error":    err,
			}).Error("block execution aborted")
			return nil, ChangeSet{}, err
		}
	}

	result := &Block{ParentHash: block.ParentHash, StateRoot: es.Root, Txs: block.Txs}
	pipelineLog.WithFields(logrus.Fields{
		"parent": parentRoot.Hex(),
		"root":   es.Root.Hex(),
		"txs":    len(block.Txs),
	}).Info("block executed")
	return result, staging.changeSet(), nil
}
