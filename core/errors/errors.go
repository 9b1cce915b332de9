// Package errors collects the sentinel error values shared across the four
// contract packages. Each contract also defines its own narrower sentinels
// (token.Err*, registry.Err*, gridservice.Err*, governance.Err*); the values
// here are the ones that recur in more than one contract's call graph, so a
// caller can use a single errors.Is check regardless of which contract
// produced the failure.
package errors

import stderrors "errors"

var (
	// ErrPaused indicates the contract (or the specific module within it) is
	// paused and rejecting state-mutating calls.
	ErrPaused = stderrors.New("contract: paused")
	// ErrUnauthorized indicates the caller lacks the role or address required
	// for the requested operation.
	ErrUnauthorized = stderrors.New("contract: unauthorized")
	// ErrReentrancy indicates a reentrant call was observed while the
	// contract's scoped lock was held.
	ErrReentrancy = stderrors.New("contract: reentrancy detected")
	// ErrZeroAmount indicates a zero-value amount was supplied where a
	// positive amount is required.
	ErrZeroAmount = stderrors.New("contract: amount must be positive")
	// ErrOverflow indicates a checked arithmetic operation would overflow or
	// underflow the representable range.
	ErrOverflow = stderrors.New("contract: arithmetic overflow")
	// ErrInsufficientBalance indicates the caller's balance is less than the
	// amount required by the operation.
	ErrInsufficientBalance = stderrors.New("contract: insufficient balance")
	// ErrNotConfigured indicates a required dependency (state backend,
	// downstream contract binding) has not been wired before use.
	ErrNotConfigured = stderrors.New("contract: not configured")
)
