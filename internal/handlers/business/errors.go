package business

import (
	"errors"
	"fmt"
)

// ErrDuplicateEvent marks a contribution whose tx hash is already in the ledger.
// The indexer counts it and moves on.
var ErrDuplicateEvent = errors.New("contribution already recorded")

// TransientChainError wraps an RPC failure that the next scheduled pass may not hit.
type TransientChainError struct {
	Op  string
	Err error
}

func (e *TransientChainError) Error() string {
	return fmt.Sprintf("chain %s: %v", e.Op, e.Err)
}

func (e *TransientChainError) Unwrap() error { return e.Err }

// PreconditionError rejects a request before any state is mutated.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

func preconditionf(format string, args ...interface{}) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// OnChainRevertError is a finalize transaction that reverted or was not mined in time.
// It is never retried automatically.
type OnChainRevertError struct {
	TxHash string
	Reason string
}

func (e *OnChainRevertError) Error() string {
	if e.TxHash == "" {
		return "on-chain call failed: " + e.Reason
	}
	return fmt.Sprintf("on-chain call %s failed: %s", e.TxHash, e.Reason)
}

// ReconciliationGapError means the chain confirmed a finalize that the ledger has not
// recorded yet. Re-invoking with the same idempotency key completes the write.
type ReconciliationGapError struct {
	RoundID uint64
	TxHash  string
	Err     error
}

func (e *ReconciliationGapError) Error() string {
	return fmt.Sprintf("round %d finalized on-chain in %s but ledger write failed: %v", e.RoundID, e.TxHash, e.Err)
}

func (e *ReconciliationGapError) Unwrap() error { return e.Err }

// SetupRetryableError is a vesting or lock setup failure left for the next pass.
type SetupRetryableError struct {
	RoundID uint64
	Task    string
	Err     error
}

func (e *SetupRetryableError) Error() string {
	return fmt.Sprintf("round %d %s setup: %v", e.RoundID, e.Task, e.Err)
}

func (e *SetupRetryableError) Unwrap() error { return e.Err }

// ErrorKind names an error by its taxonomy class, for metrics and API responses.
func ErrorKind(err error) string {
	var (
		transient *TransientChainError
		pre       *PreconditionError
		revert    *OnChainRevertError
		gap       *ReconciliationGapError
		setup     *SetupRetryableError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pre):
		return "precondition"
	case errors.As(err, &revert):
		return "onchain_revert"
	case errors.As(err, &gap):
		return "reconciliation_gap"
	case errors.As(err, &setup):
		return "setup_retryable"
	case errors.As(err, &transient):
		return "transient_chain"
	case errors.Is(err, ErrDuplicateEvent):
		return "duplicate_event"
	default:
		return "internal"
	}
}
