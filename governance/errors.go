package governance

import "errors"

// Error taxonomy for the Governance contract.
var (
	ErrUnauthorized          = errors.New("governance: caller is not authorized")
	ErrZeroAmount            = errors.New("governance: amount must be positive")
	ErrBelowMinProposalStake = errors.New("governance: proposer holds less than the minimum proposal stake")
	ErrProposalNotFound      = errors.New("governance: proposal not found")
	ErrAlreadyVoted          = errors.New("governance: account already voted on this proposal")
	ErrVotingClosed          = errors.New("governance: voting period has ended")
	ErrVotingNotEnded        = errors.New("governance: voting period has not ended")
	ErrNotActive             = errors.New("governance: proposal is not in the Active state")
	ErrNotSucceeded          = errors.New("governance: proposal is not in the Succeeded state")
	ErrNotQueued             = errors.New("governance: proposal is not in the Queued state")
	ErrTimelockNotElapsed    = errors.New("governance: timelock has not elapsed")
	ErrAlreadyTerminal       = errors.New("governance: proposal is already in a terminal state")
	ErrExecutionCapExceeded  = errors.New("governance: execution attempts exhausted")
	ErrUnknownContractID     = errors.New("governance: unknown contract id")
	ErrDownstreamCallFailed  = errors.New("governance: downstream call failed")
)
