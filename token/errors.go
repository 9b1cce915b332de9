package token

import "errors"

// Error taxonomy for the Token contract, grouped by the kind each failure
// belongs to (authorization, precondition, arithmetic, resource, policy).
var (
	ErrPaused               = errors.New("token: contract is paused")
	ErrFrozen               = errors.New("token: account is frozen")
	ErrInsufficientBalance  = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrOverflow             = errors.New("token: arithmetic overflow")
	ErrUnauthorized         = errors.New("token: caller is not authorized")
	ErrZeroAmount           = errors.New("token: amount must be positive")
	ErrCapExceeded          = errors.New("token: transfer exceeds configured cap")
	ErrAlreadyMinter        = errors.New("token: address is already a minter")
	ErrNotMinter            = errors.New("token: address is not a minter")
	ErrAlreadyBurner        = errors.New("token: address is already a burner")
	ErrNotBurner            = errors.New("token: address is not a burner")
)
