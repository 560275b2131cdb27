package core

// Transaction types. A block carries a sequence of
// transactions, each exactly one of Transfer, Deploy, or Call — encoded as
// an RLP two-element list [Kind, payload] so the real RLP library still
// owns canonical framing even though the payload shape varies by kind,
// mirroring the teacher's pattern of tagging variant ledger records before
// delegating to rlp (core/ledger.go's block-record encoding).

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// TxKind discriminates the three transaction shapes.
type TxKind uint8

const (
	TxTransfer TxKind = iota
	TxDeploy
	TxCall
)

func (k TxKind) String() string {
	switch k {
	case TxTransfer:
		return "Transfer"
	case TxDeploy:
		return "Deploy"
	case TxCall:
		return "Call"
	default:
		return "Unknown"
	}
}

// Transfer moves Amount from From to To. Balance reads during block
// execution are always against the block's starting root (see
// ExecState.ApplyTransfer), never the advancing working root.
type Transfer struct {
	From   H
	To     H
	Amount U256
}

// Deploy installs Code under the contract address derived from
// DeriveContractAddress(Code, Calldata) and immediately invokes it once
// with Calldata.
type Deploy struct {
	Code     []byte
	Calldata []byte
}

// Call invokes the contract already deployed at Contract with Calldata.
type Call struct {
	Contract H
	Calldata []byte
}

// Transaction is a closed sum of the three kinds above. Exactly one of
// Transfer/Deploy/Call is populated, selected by Kind.
type Transaction struct {
	Kind     TxKind
	Transfer *Transfer
	Deploy   *Deploy
	Call     *Call
}

// rlpTx is the wire form: [kind byte, rlp-encoded payload bytes].
type rlpTx struct {
	Kind    uint8
	Payload []byte
}

// EncodeRLP makes Transaction a valid RLP-encodable field inside Block.
func (t Transaction) EncodeRLP(w io.Writer) error {
	var payload []byte
	var err error
	switch t.Kind {
	case TxTransfer:
		payload, err = rlp.EncodeToBytes(t.Transfer)
	case TxDeploy:
		payload, err = rlp.EncodeToBytes(t.Deploy)
	case TxCall:
		payload, err = rlp.EncodeToBytes(t.Call)
	default:
		return fmt.Errorf("transaction: unknown kind %d", t.Kind)
	}
	if err != nil {
		return err
	}
	return rlp.Encode(w, &rlpTx{Kind: uint8(t.Kind), Payload: payload})
}

// DecodeRLP is the inverse of EncodeRLP.
func (t *Transaction) DecodeRLP(s *rlp.Stream) error {
	var rt rlpTx
	if err := s.Decode(&rt); err != nil {
		return err
	}
	t.Kind = TxKind(rt.Kind)
	switch t.Kind {
	case TxTransfer:
		var tr Transfer
		if err := rlp.DecodeBytes(rt.Payload, &tr); err != nil {
			return err
		}
		t.Transfer = &tr
	case TxDeploy:
		var d Deploy
		if err := rlp.DecodeBytes(rt.Payload, &d); err != nil {
			return err
		}
		t.Deploy = &d
	case TxCall:
		var c Call
		if err := rlp.DecodeBytes(rt.Payload, &c); err != nil {
			return err
		}
		t.Call = &c
	default:
		return &ExecError{Kind: ErrInvariantViolation, Msg: fmt.Sprintf("transaction: unknown kind %d", rt.Kind)}
	}
	return nil
}
