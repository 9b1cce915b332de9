// Package registry implements the device-registry contract:
// stake-gated device registration, reputation scoring, and
// slashing. It is grounded on the deleted native/reputation ledger
// (attestation/score shape) and native/potso stake-lock accounting, with
// the Token escrow call wrapped in the scoped reentrancy guard that every
// cross-contract hop requires.
package registry

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"dergrid/core/events"
	"dergrid/core/types"
	"dergrid/crypto"
	"dergrid/observability/metrics"
	"dergrid/reentrancy"
)

const (
	maxReputation = 1000
	minReputation = 0
)

// Contract is the Registry state machine.
type Contract struct {
	mu sync.RWMutex

	token     TokenCaller
	selfAddr  crypto.Address // Registry's own address, used as Token's escrow account
	ownerAddr crypto.Address // deploy-time owner, until governance is set
	govAddr   *crypto.Address
	treasury  crypto.Address
	burnOnSlash bool

	minStake            *big.Int
	reputationThreshold uint16
	initialReputation   uint16
	reputationStepUp    uint16
	reputationStepDown  uint16
	slashReputationHit  uint16

	authorizedCallers map[string]bool

	devices map[string]*DeviceRecord

	guard reentrancy.Guard

	paused  bool
	nowFunc func() time.Time
	logger  *slog.Logger
	emitter events.Emitter
}

// Params bundles the constructor-time configuration for Registry.
type Params struct {
	SelfAddr            crypto.Address
	OwnerAddr           crypto.Address
	Treasury            crypto.Address
	BurnOnSlash         bool
	MinStake            *big.Int
	InitialReputation   uint16
	ReputationThreshold uint16
	ReputationStepUp    uint16
	ReputationStepDown  uint16
	SlashReputationHit  uint16
}

// NewContract constructs a Registry bound to the given Token capability.
func NewContract(token TokenCaller, p Params, logger *slog.Logger, emitter events.Emitter) *Contract {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	minStake := p.MinStake
	if minStake == nil {
		minStake = big.NewInt(0)
	}
	return &Contract{
		token:               token,
		selfAddr:            p.SelfAddr,
		ownerAddr:           p.OwnerAddr,
		treasury:            p.Treasury,
		burnOnSlash:         p.BurnOnSlash,
		minStake:            new(big.Int).Set(minStake),
		reputationThreshold: p.ReputationThreshold,
		initialReputation:   p.InitialReputation,
		reputationStepUp:    p.ReputationStepUp,
		reputationStepDown:  p.ReputationStepDown,
		slashReputationHit:  p.SlashReputationHit,
		authorizedCallers:   make(map[string]bool),
		devices:             make(map[string]*DeviceRecord),
		nowFunc:             func() time.Time { return time.Now().UTC() },
		logger:              logger,
		emitter:             emitter,
	}
}

// SetNowFunc overrides the contract's time source, for deterministic tests.
func (c *Contract) SetNowFunc(f func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFunc = f
}

func (c *Contract) emit(evt types.Event) {
	c.emitter.Emit(evt)
}

func (c *Contract) isGovOrOwner(caller crypto.Address) bool {
	if c.govAddr != nil {
		return caller.String() == c.govAddr.String()
	}
	return caller.String() == c.ownerAddr.String()
}

// SetGovernanceAddress is a one-shot initializer: once set, subsequent
// parameter changes must come from the configured governance address, not
// the deploy-time owner.
func (c *Contract) SetGovernanceAddress(caller, addr crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller.String() != c.ownerAddr.String() {
		return ErrUnauthorized
	}
	if c.govAddr != nil {
		return ErrGovernanceAlreadySet
	}
	a := addr
	c.govAddr = &a
	return nil
}

// AddAuthorizedCaller grants an address permission to call
// UpdateDevicePerformance / SlashStake. Governance/owner-gated.
func (c *Contract) AddAuthorizedCaller(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	c.authorizedCallers[target.String()] = true
	return nil
}

// RemoveAuthorizedCaller revokes the permission AddAuthorizedCaller grants.
func (c *Contract) RemoveAuthorizedCaller(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	delete(c.authorizedCallers, target.String())
	return nil
}

// SetPaused toggles the pause flag. Governance/owner-gated.
func (c *Contract) SetPaused(caller crypto.Address, paused bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	c.paused = paused
	return nil
}

// SetMinStake updates the minimum stake floor. Governance-only once
// governance is configured.
func (c *Contract) SetMinStake(caller crypto.Address, value *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	if value == nil || value.Sign() < 0 {
		return ErrZeroAmount
	}
	c.minStake = new(big.Int).Set(value)
	return nil
}

// GetMinStake returns the current minimum stake floor.
func (c *Contract) GetMinStake() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return new(big.Int).Set(c.minStake)
}

// SetReputationThreshold updates the minimum reputation considered
// "trusted" by downstream contracts. Governance-only.
func (c *Contract) SetReputationThreshold(caller crypto.Address, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	if value > maxReputation {
		return ErrReputationOutOfRange
	}
	c.reputationThreshold = value
	return nil
}

// RegisterDevice stakes stakeAmount on behalf of caller and creates a new
// active DeviceRecord. The caller must have already approved Registry's
// own address for at least stakeAmount on Token.
func (c *Contract) RegisterDevice(caller crypto.Address, meta Metadata, stakeAmount *big.Int) error {
	release, err := c.guard.Enter()
	if err != nil {
		return ErrReentrancy
	}
	defer release()

	c.mu.Lock()
	if c.paused {
		c.mu.Unlock()
		return ErrPaused
	}
	if rec, ok := c.devices[caller.String()]; ok && rec.Active {
		c.mu.Unlock()
		return ErrAlreadyRegistered
	}
	if stakeAmount == nil || stakeAmount.Sign() <= 0 {
		c.mu.Unlock()
		return ErrZeroAmount
	}
	if stakeAmount.Cmp(c.minStake) < 0 {
		c.mu.Unlock()
		return ErrBelowMinStake
	}
	initialRep := c.initialReputation
	c.mu.Unlock()

	if err := c.token.TransferFrom(c.selfAddr, caller, c.selfAddr, stakeAmount); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenCallFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec := &DeviceRecord{
		Owner:       caller,
		Metadata:    meta,
		Stake:       new(big.Int).Set(stakeAmount),
		Reputation:  initialRep,
		Active:      true,
		LastUpdated: c.nowFunc(),
	}
	c.devices[caller.String()] = rec
	c.emit(newDeviceRegisteredEvent(caller.String(), stakeAmount.String(), meta.DeviceType.String()))
	c.reportStatsLocked()
	return nil
}

// IncreaseStake adds amount to an already-active device's stake.
func (c *Contract) IncreaseStake(caller crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	release, err := c.guard.Enter()
	if err != nil {
		return ErrReentrancy
	}
	defer release()

	c.mu.Lock()
	rec, ok := c.devices[caller.String()]
	if !ok || !rec.Active {
		c.mu.Unlock()
		return ErrNotRegistered
	}
	if c.paused {
		c.mu.Unlock()
		return ErrPaused
	}
	c.mu.Unlock()

	if err := c.token.TransferFrom(c.selfAddr, caller, c.selfAddr, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenCallFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec = c.devices[caller.String()]
	rec.Stake = new(big.Int).Add(rec.Stake, amount)
	rec.LastUpdated = c.nowFunc()
	c.emit(newStakeUpdatedEvent(caller.String(), rec.Stake.String(), amount.String()))
	c.reportStatsLocked()
	return nil
}

// WithdrawStake returns amount of stake to caller. If the remaining stake
// would drop below min_stake, the device is fully deactivated and its
// entire remaining stake is returned instead (partial withdrawals may not
// leave a device active but under-stake).
func (c *Contract) WithdrawStake(caller crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	release, err := c.guard.Enter()
	if err != nil {
		return ErrReentrancy
	}
	defer release()

	c.mu.Lock()
	rec, ok := c.devices[caller.String()]
	if !ok || !rec.Active {
		c.mu.Unlock()
		return ErrNotRegistered
	}
	if amount.Cmp(rec.Stake) > 0 {
		c.mu.Unlock()
		return ErrInsufficientStake
	}
	remaining := new(big.Int).Sub(rec.Stake, amount)
	deactivate := remaining.Sign() == 0 || remaining.Cmp(c.minStake) < 0
	payout := new(big.Int).Set(amount)
	if deactivate {
		payout = new(big.Int).Set(rec.Stake)
		remaining = big.NewInt(0)
	}
	c.mu.Unlock()

	if err := c.token.Transfer(c.selfAddr, caller, payout); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenCallFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec = c.devices[caller.String()]
	rec.Stake = remaining
	rec.LastUpdated = c.nowFunc()
	if deactivate {
		rec.Active = false
		c.emit(newDeviceDeactivatedEvent(caller.String(), "withdrawn"))
	} else {
		c.emit(newStakeUpdatedEvent(caller.String(), rec.Stake.String(), "-"+payout.String()))
	}
	c.reportStatsLocked()
	return nil
}

// UpdateDevicePerformance records a participation outcome and adjusts
// reputation by a bounded step, clamped to [0,1000]. Authorized-callers
// only (expected caller: GridService).
func (c *Contract) UpdateDevicePerformance(caller, account crypto.Address, energyWh uint64, success bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authorizedCallers[caller.String()] {
		c.emit(newSecurityViolationEvent(caller.String(), "update_device_performance"))
		metrics.Registry().ObserveSecurityViolation("update_device_performance")
		return ErrUnauthorized
	}
	rec, ok := c.devices[account.String()]
	if !ok || !rec.Active {
		return ErrNotRegistered
	}
	before := rec.Reputation
	if success {
		rec.Reputation = clampReputation(int32(rec.Reputation) + int32(c.reputationStepUp))
		rec.Counters.EventsSuccessful++
	} else {
		rec.Reputation = clampReputation(int32(rec.Reputation) - int32(c.reputationStepDown))
	}
	rec.Counters.EventsParticipated++
	rec.Counters.TotalEnergyWh += energyWh
	rec.LastUpdated = c.nowFunc()
	if rec.Reputation != before {
		c.emit(newReputationUpdatedEvent(account.String(), before, rec.Reputation))
	}
	metrics.Registry().ObserveReputationUpdate(success)
	return nil
}

// RecordOnlineWindow tracks hours-online-per-day for the flexibility
// score's availability component. Authorized-callers only.
func (c *Contract) RecordOnlineWindow(caller, account crypto.Address, hoursOnline uint32, dayBucket uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authorizedCallers[caller.String()] {
		c.emit(newSecurityViolationEvent(caller.String(), "record_online_window"))
		metrics.Registry().ObserveSecurityViolation("record_online_window")
		return ErrUnauthorized
	}
	rec, ok := c.devices[account.String()]
	if !ok || !rec.Active {
		return ErrNotRegistered
	}
	if rec.Counters.OnlineDayBucket != dayBucket {
		rec.Counters.OnlineDayBucket = dayBucket
		rec.Counters.HoursOnlineToday = 0
	}
	rec.Counters.OnlineRecorded = true
	rec.Counters.HoursOnlineToday += hoursOnline
	if rec.Counters.HoursOnlineToday > 24 {
		rec.Counters.HoursOnlineToday = 24
	}
	return nil
}

// reportStatsLocked refreshes the devices-registered/stake-total gauges.
// Called after any mutation to device activity or stake.
func (c *Contract) reportStatsLocked() {
	active := 0
	stake := new(big.Int)
	for _, rec := range c.devices {
		if rec.Active {
			active++
			stake.Add(stake, rec.Stake)
		}
	}
	metrics.Registry().SetDevicesRegistered(float64(active))
	metrics.Registry().SetStakeTotal(bigFloat64(stake))
}

func bigFloat64(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func clampReputation(v int32) uint16 {
	if v < minReputation {
		return minReputation
	}
	if v > maxReputation {
		return maxReputation
	}
	return uint16(v)
}

// SlashStake burns (or routes to treasury, per BurnOnSlash) amount of a
// device's stake and reduces its reputation by the configured penalty.
// Callable by authorized_callers or governance.
func (c *Contract) SlashStake(caller, account crypto.Address, amount *big.Int, reason string) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	release, err := c.guard.Enter()
	if err != nil {
		return ErrReentrancy
	}
	defer release()

	c.mu.Lock()
	authorized := c.authorizedCallers[caller.String()] || c.isGovOrOwner(caller)
	if !authorized {
		c.emit(newSecurityViolationEvent(caller.String(), "slash_stake"))
		metrics.Registry().ObserveSecurityViolation("slash_stake")
		c.mu.Unlock()
		return ErrUnauthorized
	}
	rec, ok := c.devices[account.String()]
	if !ok {
		c.mu.Unlock()
		return ErrNotRegistered
	}
	if amount.Cmp(rec.Stake) > 0 {
		amount = new(big.Int).Set(rec.Stake)
	}
	burnOnSlash := c.burnOnSlash
	treasury := c.treasury
	c.mu.Unlock()

	var tokenErr error
	destination := "treasury"
	if burnOnSlash {
		destination = "burn"
		tokenErr = c.token.Burn(c.selfAddr, c.selfAddr, amount)
	} else {
		tokenErr = c.token.Transfer(c.selfAddr, treasury, amount)
	}
	if tokenErr != nil {
		return fmt.Errorf("%w: %v", ErrTokenCallFailed, tokenErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rec = c.devices[account.String()]
	rec.Stake = new(big.Int).Sub(rec.Stake, amount)
	before := rec.Reputation
	rec.Reputation = clampReputation(int32(rec.Reputation) - int32(c.slashReputationHit))
	rec.LastUpdated = c.nowFunc()
	if rec.Stake.Sign() == 0 || rec.Stake.Cmp(c.minStake) < 0 {
		rec.Active = false
		c.emit(newDeviceDeactivatedEvent(account.String(), "slashed"))
	}
	c.emit(newSlashedEvent(account.String(), amount.String(), reason, destination))
	if rec.Reputation != before {
		c.emit(newReputationUpdatedEvent(account.String(), before, rec.Reputation))
	}
	metrics.Registry().ObserveSlash(destination)
	c.reportStatsLocked()
	return nil
}

// IsDeviceRegistered reports whether account has an active DeviceRecord.
func (c *Contract) IsDeviceRegistered(account crypto.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.devices[account.String()]
	return ok && rec.Active
}

// GetDevice returns a copy of account's DeviceRecord. ok is false if no
// record exists.
func (c *Contract) GetDevice(account crypto.Address) (DeviceRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.devices[account.String()]
	if !ok {
		return DeviceRecord{}, false
	}
	return rec.clone(), true
}

// GetDeviceReputation returns account's reputation, or 0 if unregistered.
func (c *Contract) GetDeviceReputation(account crypto.Address) uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.devices[account.String()]
	if !ok {
		return 0
	}
	return rec.Reputation
}

// GetDeviceCount returns the number of DeviceRecords ever created
// (including deactivated ones).
func (c *Contract) GetDeviceCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices)
}

// ReputationThreshold returns the configured trust threshold.
func (c *Contract) ReputationThreshold() uint16 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reputationThreshold
}
