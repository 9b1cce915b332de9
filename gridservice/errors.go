package gridservice

import "errors"

// Error taxonomy for the GridService contract.
var (
	ErrPaused                  = errors.New("gridservice: contract is paused")
	ErrUnauthorized            = errors.New("gridservice: caller is not authorized")
	ErrZeroAmount              = errors.New("gridservice: amount must be positive")
	ErrInvalidDuration         = errors.New("gridservice: duration is zero or exceeds configured maximum")
	ErrInvalidTarget           = errors.New("gridservice: target reduction is zero or exceeds configured maximum")
	ErrRateBelowFloor          = errors.New("gridservice: compensation rate below configured floor")
	ErrEventNotFound           = errors.New("gridservice: event not found")
	ErrEventNotActive          = errors.New("gridservice: event is not active")
	ErrOutsideEventWindow      = errors.New("gridservice: outside the event's participation window")
	ErrDeviceNotRegistered     = errors.New("gridservice: device is not registered/active")
	ErrAlreadyParticipated     = errors.New("gridservice: device already participated in this event")
	ErrCommittedWhTooHigh      = errors.New("gridservice: committed Wh exceeds device capacity for the event duration")
	ErrParticipationNotFound   = errors.New("gridservice: participation not found")
	ErrParticipationNotCommitted = errors.New("gridservice: participation is not in the Committed state")
	ErrParticipationNotVerified  = errors.New("gridservice: participation is not in the Verified state")
	ErrTooEarlyToVerify        = errors.New("gridservice: event has not yet reached its expected end")
	ErrVerificationWindowClosed = errors.New("gridservice: verification deadline has passed")
	ErrReentrancy              = errors.New("gridservice: reentrant call detected")
	ErrDownstreamCallFailed    = errors.New("gridservice: downstream contract call failed")
	ErrOverflow                = errors.New("gridservice: arithmetic overflow")
	ErrTooManyRules            = errors.New("gridservice: auto-trigger rule set exceeds configured maximum")
	ErrRateLimited             = errors.New("gridservice: signal ingestion rate limit exceeded")
	ErrBatchTooLarge           = errors.New("gridservice: batch exceeds configured maximum size")
)
