package gridservice

import (
	"math/big"
	"time"

	"dergrid/crypto"
	"dergrid/registry"
)

// GridEventType enumerates the DR event classes.
type GridEventType int

const (
	EventTypeDemandResponse GridEventType = iota
	EventTypeFrequencyRegulation
	EventTypePeakShaving
	EventTypeLoadBalancing
	EventTypeEmergency
)

func (t GridEventType) String() string {
	switch t {
	case EventTypeDemandResponse:
		return "DemandResponse"
	case EventTypeFrequencyRegulation:
		return "FrequencyRegulation"
	case EventTypePeakShaving:
		return "PeakShaving"
	case EventTypeLoadBalancing:
		return "LoadBalancing"
	default:
		return "Emergency"
	}
}

// EventState is the GridEvent lifecycle state.
type EventState int

const (
	EventStatePending EventState = iota
	EventStateActive
	EventStateCompleted
	EventStateCancelled
)

func (s EventState) String() string {
	switch s {
	case EventStatePending:
		return "Pending"
	case EventStateActive:
		return "Active"
	case EventStateCompleted:
		return "Completed"
	default:
		return "Cancelled"
	}
}

// EventRecord is a single grid-balancing event.
type EventRecord struct {
	ID                   uint64
	EventType            GridEventType
	CreatedTs            time.Time
	DurationMinutes      uint64
	TargetReductionKW    uint64
	BaseCompensationRate *big.Int // per-kWh, token base units
	Severity             uint8    // 1..5
	State                EventState
	ExpectedEndTs        time.Time
	VerificationDeadline time.Time
}

func (e EventRecord) clone() EventRecord {
	cp := e
	cp.BaseCompensationRate = new(big.Int).Set(e.BaseCompensationRate)
	return cp
}

// ParticipationState is the per-(event,account) lifecycle state.
type ParticipationState int

const (
	ParticipationCommitted ParticipationState = iota
	ParticipationVerified
	ParticipationRejected
	ParticipationRewarded
)

func (s ParticipationState) String() string {
	switch s {
	case ParticipationCommitted:
		return "Committed"
	case ParticipationVerified:
		return "Verified"
	case ParticipationRejected:
		return "Rejected"
	default:
		return "Rewarded"
	}
}

// Participation records one account's commitment and outcome within one
// event.
type Participation struct {
	EventID      uint64
	Account      crypto.Address
	CommittedWh  uint64
	ActualWh     uint64
	HasActual    bool
	RewardMinted *big.Int
	State        ParticipationState
	AckTs        *time.Time
}

func (p Participation) clone() Participation {
	cp := p
	if p.RewardMinted != nil {
		cp.RewardMinted = new(big.Int).Set(p.RewardMinted)
	}
	return cp
}

// GridCondition is the last-reported grid telemetry snapshot.
type GridCondition struct {
	LoadMW            uint64
	CapacityMW        uint64
	FrequencyCentiHz  uint64
	VoltageDeciVolts  uint64
	RenewablePercent  uint8
	Ts                time.Time
}

// GridSignal is the external-interface ingestion payload.
type GridSignal struct {
	EventType         GridEventType
	DurationMinutes   uint64
	TargetReductionKW uint64
	Severity          uint8
	Start             bool
	CompleteEventID   *uint64
	Condition         GridCondition
}

// RegistryCaller is the capability set GridService needs from Registry
// bound by explicit interface rather than a concrete dependency.
type RegistryCaller interface {
	IsDeviceRegistered(account crypto.Address) bool
	GetDevice(account crypto.Address) (registry.DeviceRecord, bool)
	UpdateDevicePerformance(caller, account crypto.Address, energyWh uint64, success bool) error
	RecordOnlineWindow(caller, account crypto.Address, hoursOnline uint32, dayBucket uint64) error
}

// TokenCaller is the capability set GridService needs from Token.
type TokenCaller interface {
	Mint(caller, to crypto.Address, amount *big.Int) error
}
