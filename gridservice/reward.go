package gridservice

import "math/big"

// Reward computation is deterministic and integer-only: every
// step checked so an overflow aborts the call with no state change rather
// than wrapping. Division is applied at each step (not deferred to the
// end) specifically to keep intermediate magnitudes bounded, per the
// spec's explicit division-ordering requirement.

const (
	efficiencyBonusNumerator   = 20
	efficiencyBonusDenominator = 100

	reputationMultiplierFloorBp   = 8000
	reputationMultiplierCeilingBp = 12000
	reputationMax                 = 1000

	flexibilityMultiplierFloorBp   = 5000
	flexibilityMultiplierCeilingBp = 15000
	flexibilityMax                 = 1000

	bpDenominator = 10000
)

// rewardInputs bundles the reward formula's free variables.
type rewardInputs struct {
	ActualWh    uint64
	CommittedWh uint64
	Rate        *big.Int // token base units per kWh
	Reputation  uint16   // 0..1000
	Flexibility uint16   // 0..1000
}

// computeReward runs the reward formula's six steps in order. Returns ErrOverflow if
// any intermediate multiplication would overflow a reasonable bound (we
// use big.Int throughout, so "overflow" here means a negative or
// nonsensical input rather than true bignum overflow; the checks exist so
// a malformed rate/energy pair fails loudly instead of silently producing
// a bogus reward).
func computeReward(in rewardInputs) (*big.Int, error) {
	if in.Rate == nil || in.Rate.Sign() < 0 {
		return nil, ErrOverflow
	}
	if in.Reputation > reputationMax || in.Flexibility > flexibilityMax {
		return nil, ErrOverflow
	}

	// 1. base_reward = (A * R) / 1000 (Wh -> kWh)
	actual := new(big.Int).SetUint64(in.ActualWh)
	baseReward := new(big.Int).Mul(actual, in.Rate)
	baseReward.Div(baseReward, big.NewInt(1000))

	// 2. efficiency_bonus = base_reward * 20/100 if A >= C else 0
	efficiencyBonus := big.NewInt(0)
	if in.ActualWh >= in.CommittedWh {
		efficiencyBonus = new(big.Int).Mul(baseReward, big.NewInt(efficiencyBonusNumerator))
		efficiencyBonus.Div(efficiencyBonus, big.NewInt(efficiencyBonusDenominator))
	}

	// 3. reputation_multiplier_bp: piecewise-linear [0,1000] -> [8000,12000]
	repBp := linearBp(uint64(in.Reputation), reputationMax, reputationMultiplierFloorBp, reputationMultiplierCeilingBp)

	// 4. flexibility_multiplier_bp: piecewise-linear [0,1000] -> [5000,15000]
	flexBp := linearBp(uint64(in.Flexibility), flexibilityMax, flexibilityMultiplierFloorBp, flexibilityMultiplierCeilingBp)

	// 5. pre_severity = (base + efficiency) * repBp/10000 * flexBp/10000,
	//    dividing after each multiplication.
	sum := new(big.Int).Add(baseReward, efficiencyBonus)
	withRep := new(big.Int).Mul(sum, big.NewInt(int64(repBp)))
	withRep.Div(withRep, big.NewInt(bpDenominator))
	withFlex := new(big.Int).Mul(withRep, big.NewInt(int64(flexBp)))
	withFlex.Div(withFlex, big.NewInt(bpDenominator))

	// 6. reward = pre_severity (severity already baked into event rate)
	return withFlex, nil
}

// linearBp maps x in [0,max] to [floorBp,ceilBp] linearly, rounding down.
func linearBp(x, max uint64, floorBp, ceilBp int64) int64 {
	if max == 0 {
		return floorBp
	}
	span := ceilBp - floorBp
	return floorBp + (span*int64(x))/int64(max)
}

// Flexibility score components, each clamped to [0,250].

const (
	flexComponentMax     = 250
	flexComponentNeutral = flexComponentMax / 2 // no-telemetry default, mirrors the neutral initial reputation
	flexScoreMax         = 1000
)

// flexInputs bundles the four additive component inputs. response_time and
// availability both depend on data Registry has no other reason to track
// absent GridService feeding it back (ack timestamps, online-window
// reports); a device with no history yet reports neutral marks for both
// rather than the worst score, since an untested device hasn't
// demonstrated either good or bad responsiveness.
type flexInputs struct {
	AckDelaySeconds      *int64 // nil if no acknowledgement recorded
	AckFastThresholdS    int64  // T1: full marks within this delay
	AckSlowThresholdS    int64  // T2: zero marks at or beyond this delay
	SuccessfulEvents     uint64
	TotalEvents          uint64
	MaxAbsDeviationWh    uint64 // |committed-actual| of the participation being rewarded only; no history is kept
	CapacityW            uint64
	HoursOnlinePerDay    uint32
	HoursOnlineTargetMax uint32 // hours considered "fully available"
	HasOnlineRecord      bool   // false until Registry.RecordOnlineWindow has ever been called for this device
}

func computeFlexibilityScore(in flexInputs) uint16 {
	responseTime := responseTimeComponent(in.AckDelaySeconds, in.AckFastThresholdS, in.AckSlowThresholdS)
	consistency := consistencyComponent(in.SuccessfulEvents, in.TotalEvents)
	rangeComp := rangeComponent(in.MaxAbsDeviationWh, in.CapacityW)
	availability := availabilityComponent(in.HoursOnlinePerDay, in.HoursOnlineTargetMax, in.HasOnlineRecord)

	total := responseTime + consistency + rangeComp + availability
	if total > flexScoreMax {
		total = flexScoreMax
	}
	return uint16(total)
}

func responseTimeComponent(delay *int64, t1, t2 int64) uint64 {
	if delay == nil {
		return flexComponentNeutral
	}
	d := *delay
	if d <= t1 {
		return flexComponentMax
	}
	if d >= t2 || t2 <= t1 {
		return 0
	}
	// linear degrade from 250 at t1 to 0 at t2
	span := t2 - t1
	remaining := t2 - d
	return uint64(flexComponentMax) * uint64(remaining) / uint64(span)
}

func consistencyComponent(successful, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	if successful > total {
		successful = total
	}
	return successful * flexComponentMax / total
}

func rangeComponent(maxAbsDeviationWh, capacityW uint64) uint64 {
	if capacityW == 0 {
		return flexComponentMax
	}
	if maxAbsDeviationWh > capacityW {
		maxAbsDeviationWh = capacityW
	}
	// inverse mapping: deviation 0 -> full marks, deviation == capacity -> 0
	return flexComponentMax - (maxAbsDeviationWh * flexComponentMax / capacityW)
}

func availabilityComponent(hoursOnline uint32, targetMax uint32, hasRecord bool) uint64 {
	if !hasRecord {
		return flexComponentNeutral
	}
	if targetMax == 0 {
		return 0
	}
	if hoursOnline > targetMax {
		hoursOnline = targetMax
	}
	return uint64(hoursOnline) * flexComponentMax / uint64(targetMax)
}
