// Package gridservice implements the grid-event engine:
// event lifecycle, participation recording, verification,
// deterministic reward computation, and auto-trigger rules. Grounded on
// the deleted native/potso weighted-reward computation
// (native/potso/rewards.go) and EngineParams validation
// (native/potso/params.go), both replaced here
// by the domain-specific math in reward.go.
package gridservice

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dergrid/core/events"
	"dergrid/core/types"
	"dergrid/crypto"
	"dergrid/observability/metrics"
	"dergrid/reentrancy"
)

var tracer trace.Tracer = otel.Tracer("dergrid/gridservice")

func bigFloat64(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// Params bundles GridService's constructor-time configuration.
type Params struct {
	SelfAddr                   crypto.Address
	OwnerAddr                  crypto.Address
	DefaultCompensationRate    *big.Int
	MinCompensationRate        *big.Int
	MaxDurationMinutes         uint64
	MaxTargetReductionKW       uint64
	VerificationWindowSeconds  uint64
	MinActualRatioBps          uint64 // actual/committed ratio below which verify rejects
	MaxAutoTriggerRules        int
	SignalRateLimitPerSecond   float64
	SignalRateLimitBurst       int
	AckFastThresholdSeconds    int64
	AckSlowThresholdSeconds    int64
	HoursOnlineTargetMax       uint32
}

// Contract is the GridService state machine.
type Contract struct {
	mu sync.RWMutex

	token    TokenCaller
	registry RegistryCaller
	selfAddr crypto.Address

	ownerAddr crypto.Address
	govAddr   *crypto.Address

	authorizedCallers   map[string]bool
	authorizedDataFeeds map[string]bool
	authorizedVerifiers map[string]bool

	params Params

	nextEventID uint64
	events      map[uint64]*EventRecord
	participations map[string]*Participation // key: eventID|account

	condition GridCondition
	rules     []Rule

	paused bool
	guard  reentrancy.Guard
	limiter *feedLimiter

	nowFunc func() time.Time
	logger  *slog.Logger
	emitter events.Emitter
}

// NewContract constructs a GridService bound to Token and Registry
// capabilities.
func NewContract(token TokenCaller, registry RegistryCaller, p Params, logger *slog.Logger, emitter events.Emitter) *Contract {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if p.MaxAutoTriggerRules <= 0 {
		p.MaxAutoTriggerRules = 64
	}
	return &Contract{
		token:               token,
		registry:            registry,
		selfAddr:            p.SelfAddr,
		ownerAddr:           p.OwnerAddr,
		authorizedCallers:   make(map[string]bool),
		authorizedDataFeeds: make(map[string]bool),
		authorizedVerifiers: make(map[string]bool),
		params:              p,
		nextEventID:         1,
		events:              make(map[uint64]*EventRecord),
		participations:      make(map[string]*Participation),
		limiter:             newFeedLimiter(p.SignalRateLimitPerSecond, p.SignalRateLimitBurst),
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

// SetRuleSet installs the auto-trigger rule set loaded via LoadRuleSet.
func (c *Contract) SetRuleSet(caller crypto.Address, rules []Rule) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	if len(rules) > c.params.MaxAutoTriggerRules {
		return ErrTooManyRules
	}
	c.rules = rules
	return nil
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

func participationKey(eventID uint64, account crypto.Address) string {
	return fmt.Sprintf("%d|%s", eventID, account.String())
}

// SetGovernanceAddress is a one-shot initializer.
func (c *Contract) SetGovernanceAddress(caller, addr crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller.String() != c.ownerAddr.String() {
		return ErrUnauthorized
	}
	if c.govAddr != nil {
		return fmt.Errorf("gridservice: governance address already configured")
	}
	a := addr
	c.govAddr = &a
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

// AddAuthorizedCaller grants permission to create/complete events.
func (c *Contract) AddAuthorizedCaller(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	c.authorizedCallers[target.String()] = true
	return nil
}

// RemoveAuthorizedCaller revokes AddAuthorizedCaller.
func (c *Contract) RemoveAuthorizedCaller(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	delete(c.authorizedCallers, target.String())
	return nil
}

// AddDataFeed grants permission to call IngestGridSignal.
func (c *Contract) AddDataFeed(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	c.authorizedDataFeeds[target.String()] = true
	return nil
}

// RemoveDataFeed revokes AddDataFeed.
func (c *Contract) RemoveDataFeed(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	delete(c.authorizedDataFeeds, target.String())
	return nil
}

// AddVerifier grants permission to call VerifyParticipation /
// VerifyAndDistributeRewards.
func (c *Contract) AddVerifier(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	c.authorizedVerifiers[target.String()] = true
	return nil
}

// SetDefaultCompensationRate updates the rate auto-triggered events use.
func (c *Contract) SetDefaultCompensationRate(caller crypto.Address, rate *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	if rate == nil || rate.Sign() < 0 {
		return ErrZeroAmount
	}
	c.params.DefaultCompensationRate = new(big.Int).Set(rate)
	return nil
}

// CreateGridEvent opens a new event. Authorized_callers or governance.
func (c *Contract) CreateGridEvent(caller crypto.Address, eventType GridEventType, durationMinutes uint64, rate *big.Int, targetReductionKW uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return 0, ErrPaused
	}
	if !c.authorizedCallers[caller.String()] && !c.isGovOrOwner(caller) {
		c.emit(newSecurityViolationEvent(caller.String(), "create_grid_event"))
		metrics.GridService().ObserveSecurityViolation("create_grid_event")
		return 0, ErrUnauthorized
	}
	return c.createEventLocked(eventType, durationMinutes, rate, targetReductionKW, 0)
}

// severity 0 means "no severity scaling beyond the caller-supplied rate"
// (used by direct CreateGridEvent calls, as opposed to auto-trigger firing
// which bakes severity into the rate).
func (c *Contract) createEventLocked(eventType GridEventType, durationMinutes uint64, rate *big.Int, targetReductionKW uint64, severity uint8) (uint64, error) {
	if durationMinutes == 0 || durationMinutes > c.params.MaxDurationMinutes {
		return 0, ErrInvalidDuration
	}
	if targetReductionKW == 0 || targetReductionKW > c.params.MaxTargetReductionKW {
		return 0, ErrInvalidTarget
	}
	if rate == nil || rate.Sign() <= 0 {
		return 0, ErrZeroAmount
	}
	if c.params.MinCompensationRate != nil && rate.Cmp(c.params.MinCompensationRate) < 0 {
		return 0, ErrRateBelowFloor
	}
	now := c.nowFunc()
	id := c.nextEventID
	c.nextEventID++
	expectedEnd := now.Add(time.Duration(durationMinutes) * time.Minute)
	deadline := expectedEnd.Add(time.Duration(c.params.VerificationWindowSeconds) * time.Second)
	if severity == 0 {
		severity = 1
	}
	rec := &EventRecord{
		ID:                   id,
		EventType:            eventType,
		CreatedTs:            now,
		DurationMinutes:      durationMinutes,
		TargetReductionKW:    targetReductionKW,
		BaseCompensationRate: new(big.Int).Set(rate),
		Severity:             severity,
		State:                EventStateActive,
		ExpectedEndTs:        expectedEnd,
		VerificationDeadline: deadline,
	}
	c.events[id] = rec
	c.emit(newGridEventCreatedEvent(id, eventType.String(), rate.String()))
	metrics.GridService().ObserveEventCreated(eventType.String())
	return id, nil
}

// IngestGridSignal updates GridCondition and evaluates auto-trigger rules.
// Authorized_data_feeds only, rate-limited per feed address.
func (c *Contract) IngestGridSignal(caller crypto.Address, signal GridSignal) error {
	c.mu.Lock()
	if !c.authorizedDataFeeds[caller.String()] {
		c.emit(newSecurityViolationEvent(caller.String(), "ingest_grid_signal"))
		metrics.GridService().ObserveSecurityViolation("ingest_grid_signal")
		c.mu.Unlock()
		return ErrUnauthorized
	}
	if c.paused {
		c.mu.Unlock()
		return ErrPaused
	}
	c.mu.Unlock()

	if !c.limiter.allow(caller.String()) {
		metrics.GridService().IncRateLimited()
		return ErrRateLimited
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.condition = signal.Condition
	if c.condition.Ts.IsZero() {
		c.condition.Ts = c.nowFunc()
	}
	c.emit(newGridConditionUpdatedEvent(c.condition.LoadMW, c.condition.CapacityMW))

	now := c.nowFunc()
	for i := range c.rules {
		r := &c.rules[i]
		if !r.evaluate(c.condition) || !r.cooledDown(now) {
			continue
		}
		rate := new(big.Int).Mul(c.params.DefaultCompensationRate, big.NewInt(int64(r.Severity)))
		id, err := c.createEventLocked(r.EventType, r.DurationMinutes, rate, r.TargetReductionKW, r.Severity)
		if err != nil {
			c.logger.Warn("gridservice: auto-trigger rule failed to fire", "rule", r.Name, "error", err)
			continue
		}
		r.lastFired = now
		c.emit(newAutoTriggerFiredEvent(r.Name, id))
		metrics.GridService().ObserveAutoTrigger(r.Name)
	}
	return nil
}

// CompleteGridEvent transitions Active -> Completed once now >=
// expected_end_ts. Idempotent.
func (c *Contract) CompleteGridEvent(caller crypto.Address, eventID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authorizedCallers[caller.String()] && !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	rec, ok := c.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	if rec.State == EventStateCompleted {
		return nil
	}
	if rec.State != EventStateActive {
		return ErrEventNotActive
	}
	if c.nowFunc().Before(rec.ExpectedEndTs) {
		return ErrTooEarlyToVerify
	}
	rec.State = EventStateCompleted
	c.emit(newGridEventCompletedEvent(eventID))
	return nil
}

// CancelGridEvent transitions Active -> Cancelled, rejecting all
// participations with no reward. Callable only by the governance address
// (or the owner while no governance address is set); there is no separate
// emergency-guardian path.
func (c *Contract) CancelGridEvent(caller crypto.Address, eventID uint64, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isGovOrOwner(caller) {
		return ErrUnauthorized
	}
	rec, ok := c.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	if rec.State != EventStateActive && rec.State != EventStatePending {
		return ErrEventNotActive
	}
	rec.State = EventStateCancelled
	for key, p := range c.participations {
		if p.EventID == eventID && p.State == ParticipationCommitted {
			p.State = ParticipationRejected
			c.participations[key] = p
		}
	}
	c.emit(types.Event{Type: "gridservice.GridEventCancelled", Attributes: map[string]string{
		"event_id": fmt.Sprint(eventID), "reason": reason,
	}})
	return nil
}

// ParticipateInEvent records account's commitment for an Active event
// within its window.
func (c *Contract) ParticipateInEvent(account crypto.Address, eventID uint64, committedWh uint64) error {
	if committedWh == 0 {
		return ErrZeroAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return ErrPaused
	}
	if !c.registry.IsDeviceRegistered(account) {
		return ErrDeviceNotRegistered
	}
	rec, ok := c.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	if rec.State != EventStateActive {
		return ErrEventNotActive
	}
	now := c.nowFunc()
	if now.Before(rec.CreatedTs) || now.After(rec.ExpectedEndTs) {
		return ErrOutsideEventWindow
	}
	key := participationKey(eventID, account)
	if _, exists := c.participations[key]; exists {
		return ErrAlreadyParticipated
	}
	dev, ok := c.registry.GetDevice(account)
	if ok && dev.Metadata.CapacityW > 0 {
		// uint256 rather than native uint64 multiplication: capacity_w *
		// duration_minutes can exceed 64 bits for large fleets/durations,
		// and this module never wraps silently on overflow.
		softCapU := new(uint256.Int).Mul(uint256.NewInt(dev.Metadata.CapacityW), uint256.NewInt(rec.DurationMinutes))
		softCapU.Div(softCapU, uint256.NewInt(60))
		if !softCapU.IsUint64() || committedWh > softCapU.Uint64() {
			return ErrCommittedWhTooHigh
		}
	}
	c.participations[key] = &Participation{
		EventID:     eventID,
		Account:     account,
		CommittedWh: committedWh,
		State:       ParticipationCommitted,
	}
	c.emit(newParticipationRecordedEvent(eventID, account.String(), committedWh))
	metrics.GridService().IncParticipation()
	return nil
}

// RecordAcknowledgement timestamps a device's response to an event, used
// by the flexibility score's response-time component.
func (c *Contract) RecordAcknowledgement(account crypto.Address, eventID uint64, ackTs time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := participationKey(eventID, account)
	p, ok := c.participations[key]
	if !ok {
		return ErrParticipationNotFound
	}
	t := ackTs
	p.AckTs = &t
	return nil
}

// VerifyParticipation records actual_wh for a Committed participation past
// the event's end but within the verification deadline. Below the
// configured minimum actual/committed ratio, the participation is
// Rejected instead of Verified.
func (c *Contract) VerifyParticipation(caller crypto.Address, eventID uint64, account crypto.Address, actualWh uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authorizedVerifiers[caller.String()] && !c.isGovOrOwner(caller) {
		c.emit(newSecurityViolationEvent(caller.String(), "verify_participation"))
		metrics.GridService().ObserveSecurityViolation("verify_participation")
		return ErrUnauthorized
	}
	rec, ok := c.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	now := c.nowFunc()
	if now.Before(rec.ExpectedEndTs) {
		return ErrTooEarlyToVerify
	}
	if now.After(rec.VerificationDeadline) {
		return ErrVerificationWindowClosed
	}
	key := participationKey(eventID, account)
	p, ok := c.participations[key]
	if !ok {
		return ErrParticipationNotFound
	}
	if p.State != ParticipationCommitted {
		return ErrParticipationNotCommitted
	}
	p.ActualWh = actualWh
	p.HasActual = true

	accepted := actualWh > 0 && meetsMinRatio(actualWh, p.CommittedWh, c.params.MinActualRatioBps)
	if accepted {
		p.State = ParticipationVerified
	} else {
		p.State = ParticipationRejected
	}
	c.emit(newParticipationVerifiedEvent(eventID, account.String(), actualWh, accepted))
	return nil
}

func meetsMinRatio(actual, committed uint64, minRatioBps uint64) bool {
	if committed == 0 {
		return false
	}
	ratioBps := actual * 10000 / committed
	return ratioBps >= minRatioBps
}

// VerifyAndDistributeRewards computes and mints the deterministic reward
// for a Verified participation, updates Registry performance, and
// transitions it to Rewarded. Reentrancy-guarded: the Token.Mint and
// Registry.UpdateDevicePerformance calls are the only external hops.
func (c *Contract) VerifyAndDistributeRewards(caller crypto.Address, eventID uint64, account crypto.Address) (reward *big.Int, err error) {
	_, span := tracer.Start(context.Background(), "gridservice.verify_and_distribute_rewards",
		trace.WithAttributes(
			attribute.Int64("grid.event_id", int64(eventID)),
			attribute.String("grid.account", account.String()),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	release, err := c.guard.Enter()
	if err != nil {
		return nil, ErrReentrancy
	}
	defer release()

	c.mu.Lock()
	if !c.authorizedVerifiers[caller.String()] && !c.isGovOrOwner(caller) {
		c.mu.Unlock()
		return nil, ErrUnauthorized
	}
	rec, ok := c.events[eventID]
	if !ok {
		c.mu.Unlock()
		return nil, ErrEventNotFound
	}
	key := participationKey(eventID, account)
	p, ok := c.participations[key]
	if !ok {
		c.mu.Unlock()
		return nil, ErrParticipationNotFound
	}
	if p.State != ParticipationVerified {
		c.mu.Unlock()
		return nil, ErrParticipationNotVerified
	}
	dev, _ := c.registry.GetDevice(account)
	flex := computeFlexibilityScore(flexInputs{
		AckDelaySeconds:      ackDelaySeconds(p, rec),
		AckFastThresholdS:    c.params.AckFastThresholdSeconds,
		AckSlowThresholdS:    c.params.AckSlowThresholdSeconds,
		SuccessfulEvents:     dev.Counters.EventsSuccessful,
		TotalEvents:          dev.Counters.EventsParticipated,
		MaxAbsDeviationWh:    absDiffU64(p.ActualWh, p.CommittedWh),
		CapacityW:            dev.Metadata.CapacityW,
		HoursOnlinePerDay:    dev.Counters.HoursOnlineToday,
		HoursOnlineTargetMax: c.params.HoursOnlineTargetMax,
		HasOnlineRecord:      dev.Counters.OnlineRecorded,
	})
	reward, err = computeReward(rewardInputs{
		ActualWh:    p.ActualWh,
		CommittedWh: p.CommittedWh,
		Rate:        rec.BaseCompensationRate,
		Reputation:  dev.Reputation,
		Flexibility: flex,
	})
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if reward.Sign() > 0 {
		if err := c.token.Mint(c.selfAddr, account, reward); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDownstreamCallFailed, err)
		}
	}
	success := p.State == ParticipationVerified
	if err := c.registry.UpdateDevicePerformance(c.selfAddr, account, p.ActualWh, success); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownstreamCallFailed, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p = c.participations[key]
	p.RewardMinted = reward
	p.State = ParticipationRewarded
	c.emit(newRewardDistributedEvent(eventID, account.String(), reward.String()))
	metrics.GridService().ObserveRewardDistributed(bigFloat64(reward))
	return new(big.Int).Set(reward), nil
}

// VerifyAndDistributeRewardsBatch iterates an explicit caller-supplied
// list, capped at maxBatchSize rather than scanning every participation.
func (c *Contract) VerifyAndDistributeRewardsBatch(caller crypto.Address, eventID uint64, accounts []crypto.Address, maxBatchSize int) ([]*big.Int, error) {
	if len(accounts) > maxBatchSize {
		return nil, ErrBatchTooLarge
	}
	results := make([]*big.Int, 0, len(accounts))
	for _, acc := range accounts {
		reward, err := c.VerifyAndDistributeRewards(caller, eventID, acc)
		if err != nil {
			return results, err
		}
		results = append(results, reward)
	}
	return results, nil
}

func ackDelaySeconds(p *Participation, rec *EventRecord) *int64 {
	if p.AckTs == nil {
		return nil
	}
	d := int64(p.AckTs.Sub(rec.CreatedTs).Seconds())
	return &d
}

func absDiffU64(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// GetEvent returns a copy of an event record.
func (c *Contract) GetEvent(eventID uint64) (EventRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.events[eventID]
	if !ok {
		return EventRecord{}, false
	}
	return rec.clone(), true
}

// GetParticipation returns a copy of a participation record.
func (c *Contract) GetParticipation(eventID uint64, account crypto.Address) (Participation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.participations[participationKey(eventID, account)]
	if !ok {
		return Participation{}, false
	}
	return p.clone(), true
}

// GetActiveEvents returns a paginated, cursor-ordered list of event IDs in
// the Active state.
func (c *Contract) GetActiveEvents(cursor uint64, limit int) ([]uint64, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uint64, 0, len(c.events))
	for id, rec := range c.events {
		if rec.State == EventStateActive && id >= cursor {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		next := ids[limit]
		return ids[:limit], next
	}
	return ids, 0
}

// GetEventParticipations returns every participation recorded for
// eventID, in map iteration order, which is not stable between calls
// (read-model convenience query).
func (c *Contract) GetEventParticipations(eventID uint64) []Participation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Participation, 0)
	for _, p := range c.participations {
		if p.EventID == eventID {
			out = append(out, p.clone())
		}
	}
	return out
}
