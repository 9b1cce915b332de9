package governance

import (
	"math/big"
	"time"

	"dergrid/crypto"
)

// ContractID names one of the three downstream contracts for kinds
// whose action is contract-generic (SetPaused).
type ContractID uint8

const (
	ContractToken ContractID = iota
	ContractRegistry
	ContractGridService
)

func (c ContractID) String() string {
	switch c {
	case ContractToken:
		return "Token"
	case ContractRegistry:
		return "Registry"
	case ContractGridService:
		return "GridService"
	default:
		return "Unknown"
	}
}

// ProposalKind is the closed set of proposal kinds. Every
// kind dispatches to exactly one downstream call in execute_proposal's
// finite dispatch table.
type ProposalKind uint8

const (
	KindSetTokenMinter ProposalKind = iota
	KindSetTokenBurner
	KindSetRegistryAuthorizedCaller
	KindSetGridAuthorizedCaller
	KindUpdateMinStake
	KindUpdateReputationThreshold
	KindUpdateCompensationRate
	KindTreasuryTransfer
	KindSetPaused
	KindSetEmergencyGuardian
)

func (k ProposalKind) String() string {
	switch k {
	case KindSetTokenMinter:
		return "SetTokenMinter"
	case KindSetTokenBurner:
		return "SetTokenBurner"
	case KindSetRegistryAuthorizedCaller:
		return "SetRegistryAuthorizedCaller"
	case KindSetGridAuthorizedCaller:
		return "SetGridAuthorizedCaller"
	case KindUpdateMinStake:
		return "UpdateMinStake"
	case KindUpdateReputationThreshold:
		return "UpdateReputationThreshold"
	case KindUpdateCompensationRate:
		return "UpdateCompensationRate"
	case KindTreasuryTransfer:
		return "TreasuryTransfer"
	case KindSetPaused:
		return "SetPaused"
	case KindSetEmergencyGuardian:
		return "SetEmergencyGuardian"
	default:
		return "Unknown"
	}
}

// Action carries the union of fields any ProposalKind's single downstream
// call might need. Only the fields relevant to Kind are populated; this
// mirrors a tagged variant without resorting to an interface{} payload and
// a type switch per kind at construction time.
type Action struct {
	Target     crypto.Address
	Enable     bool
	Amount     *big.Int
	Value      uint16
	ContractID ContractID
}

// ProposalState is the linear state machine:
// Active -> (Defeated | Succeeded) -> Queued -> (Executed | Expired),
// with Cancelled reachable from any pre-terminal state.
type ProposalState uint8

const (
	StateActive ProposalState = iota
	StateDefeated
	StateSucceeded
	StateQueued
	StateExecuted
	StateCancelled
	StateExpired
)

func (s ProposalState) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateDefeated:
		return "Defeated"
	case StateSucceeded:
		return "Succeeded"
	case StateQueued:
		return "Queued"
	case StateExecuted:
		return "Executed"
	case StateCancelled:
		return "Cancelled"
	case StateExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

func (s ProposalState) terminal() bool {
	switch s {
	case StateExecuted, StateCancelled, StateExpired, StateDefeated:
		return true
	default:
		return false
	}
}

// Proposal is the on-chain record for one governance action.
type Proposal struct {
	ID          uint64
	Proposer    crypto.Address
	Kind        ProposalKind
	Action      Action
	Description string

	CreatedAt     time.Time
	VotingEndAt   time.Time
	TimelockEndAt time.Time

	ForVotes       *big.Int
	AgainstVotes   *big.Int
	SupplySnapshot *big.Int

	State             ProposalState
	ExecutionAttempts int
}

func (p Proposal) clone() Proposal {
	cp := p
	cp.ForVotes = new(big.Int).Set(p.ForVotes)
	cp.AgainstVotes = new(big.Int).Set(p.AgainstVotes)
	cp.SupplySnapshot = new(big.Int).Set(p.SupplySnapshot)
	return cp
}

// Vote records one account's ballot on one proposal, preventing double
// voting.
type Vote struct {
	Support bool
	Weight  *big.Int
}

// AuditRecord is an append-only log of
// every privileged mutation Governance dispatches, independent of the
// typed events emitted for the same action.
type AuditRecord struct {
	ID        string
	ProposalID uint64
	Kind      ProposalKind
	Caller    string
	Timestamp time.Time
	Outcome   string
}

// TokenCaller is the capability set Governance needs on Token, bound by
// explicit interface rather than concrete type.
type TokenCaller interface {
	AddMinter(caller, target crypto.Address) error
	RemoveMinter(caller, target crypto.Address) error
	AddBurner(caller, target crypto.Address) error
	RemoveBurner(caller, target crypto.Address) error
	SetPaused(caller crypto.Address, paused bool) error
	Transfer(caller, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) *big.Int
	TotalSupply() *big.Int
	SnapshotBalances() map[string]*big.Int
}

// RegistryCaller is the capability set Governance needs on Registry.
type RegistryCaller interface {
	AddAuthorizedCaller(caller, target crypto.Address) error
	RemoveAuthorizedCaller(caller, target crypto.Address) error
	SetMinStake(caller crypto.Address, value *big.Int) error
	SetReputationThreshold(caller crypto.Address, value uint16) error
	SetPaused(caller crypto.Address, paused bool) error
}

// GridCaller is the capability set Governance needs on GridService.
type GridCaller interface {
	AddAuthorizedCaller(caller, target crypto.Address) error
	RemoveAuthorizedCaller(caller, target crypto.Address) error
	SetDefaultCompensationRate(caller crypto.Address, rate *big.Int) error
	SetPaused(caller crypto.Address, paused bool) error
}
