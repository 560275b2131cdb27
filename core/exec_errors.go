package core

// Fatal error taxonomy. Generalizes the teacher's informal errors.New/
// fmt.Errorf fatal paths (core/contracts.go's errors.New("contract not
// found"), core/account_and_balance_operations.go's errors.New("insufficient
// balance")) into a closed set of categories: a block execution either
// succeeds completely or aborts with exactly one of these, and the caller
// retains the parent state.

import "fmt"

// ErrorKind identifies one of the five fatal categories a block execution
// can abort with.
type ErrorKind int

const (
	// ErrInvariantViolation marks trie/node-store structural corruption: a
	// dangling reference, an unexpected absent node on remove, or an add
	// collision with differing bytes.
	ErrInvariantViolation ErrorKind = iota
	// ErrTransferRejected marks a Transfer that cannot be applied: absent
	// sender or insufficient balance.
	ErrTransferRejected
	// ErrContractAbsent marks a Call targeting an address with no deployed
	// code.
	ErrContractAbsent
	// ErrVMFailure marks a wasm module parse error, missing/mistyped
	// entrypoint, guest trap, or OOB host memory access.
	ErrVMFailure
	// ErrOracleMiss marks a parent block the oracle could not resolve, or a
	// preimage that failed to verify.
	ErrOracleMiss
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvariantViolation:
		return "InvariantViolation"
	case ErrTransferRejected:
		return "TransferRejected"
	case ErrContractAbsent:
		return "ContractAbsent"
	case ErrVMFailure:
		return "VMFailure"
	case ErrOracleMiss:
		return "OracleMiss"
	default:
		return "UnknownError"
	}
}

// ExecError is the concrete error type every fatal path in the trie,
// executor, and VM host returns. Any block-execution error is always one of
// these.
type ExecError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ExecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *ExecError) Unwrap() error { return e.Err }

// IsKind reports whether err is an *ExecError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ee, ok := err.(*ExecError)
	return ok && ee.Kind == kind
}
