package registry

import (
	"math/big"
	"time"

	"dergrid/crypto"
)

// DeviceType enumerates the supported DER classes.
type DeviceType int

const (
	DeviceTypeSmartPlug DeviceType = iota
	DeviceTypeSolarPanel
	DeviceTypeBattery
	DeviceTypeHVAC
	DeviceTypeEV
	DeviceTypeOther
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeSmartPlug:
		return "SmartPlug"
	case DeviceTypeSolarPanel:
		return "SolarPanel"
	case DeviceTypeBattery:
		return "Battery"
	case DeviceTypeHVAC:
		return "HVAC"
	case DeviceTypeEV:
		return "EV"
	default:
		return "Other"
	}
}

// Metadata describes a registered device, fixed at registration time;
// no method updates it afterwards, firmware included.
type Metadata struct {
	DeviceType   DeviceType
	CapacityW    uint64
	Location     string
	Manufacturer string
	Model        string
	Firmware     string
	InstalledAt  time.Time
}

// PerformanceCounters aggregates a device's historical participation.
type PerformanceCounters struct {
	EventsParticipated uint64
	EventsSuccessful   uint64
	TotalEnergyWh      uint64
	HoursOnlineToday   uint32
	OnlineDayBucket    uint64
	OnlineRecorded     bool // true once RecordOnlineWindow has been called at least once
}

// DeviceRecord is the per-account state Registry owns.
type DeviceRecord struct {
	Owner       crypto.Address
	Metadata    Metadata
	Stake       *big.Int
	Reputation  uint16 // 0..1000
	Active      bool
	LastUpdated time.Time
	Counters    PerformanceCounters
}

func (d DeviceRecord) clone() DeviceRecord {
	cp := d
	cp.Stake = new(big.Int).Set(d.Stake)
	return cp
}

// TokenCaller is the capability set Registry needs from Token: escrowing a
// stake via transfer_from, burning a slashed stake, and reading balances.
// Bound by explicit interface rather than concrete type so a test can
// substitute a non-conforming implementation without touching Token.
type TokenCaller interface {
	TransferFrom(caller, owner, to crypto.Address, amount *big.Int) error
	Transfer(caller, to crypto.Address, amount *big.Int) error
	Burn(caller, from crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) *big.Int
}
