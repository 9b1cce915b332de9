package registry

import "errors"

// Error taxonomy for the Registry contract.
var (
	ErrPaused                 = errors.New("registry: contract is paused")
	ErrUnauthorized           = errors.New("registry: caller is not authorized")
	ErrZeroAmount             = errors.New("registry: amount must be positive")
	ErrAlreadyRegistered      = errors.New("registry: device already active")
	ErrNotRegistered          = errors.New("registry: device not registered")
	ErrBelowMinStake          = errors.New("registry: stake below configured minimum")
	ErrInsufficientStake      = errors.New("registry: withdrawal exceeds current stake")
	ErrReputationOutOfRange   = errors.New("registry: reputation value out of range [0,1000]")
	ErrGovernanceAlreadySet   = errors.New("registry: governance address already configured")
	ErrReentrancy             = errors.New("registry: reentrant call detected")
	ErrTokenCallFailed        = errors.New("registry: downstream token call failed")
)
