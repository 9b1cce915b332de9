package gridservice

import (
	"strconv"

	"dergrid/core/types"
)

const (
	EventGridEventCreated     = "gridservice.GridEventCreated"
	EventParticipationRecorded = "gridservice.ParticipationRecorded"
	EventParticipationVerified = "gridservice.ParticipationVerified"
	EventRewardDistributed    = "gridservice.RewardDistributed"
	EventGridEventCompleted   = "gridservice.GridEventCompleted"
	EventGridConditionUpdated = "gridservice.GridConditionUpdated"
	EventAutoTriggerFired     = "gridservice.AutoTriggerFired"
	EventSecurityViolation    = "gridservice.SecurityViolation"
)

func newGridEventCreatedEvent(id uint64, eventType string, rate string) types.Event {
	return types.Event{Type: EventGridEventCreated, Attributes: map[string]string{
		"event_id": strconv.FormatUint(id, 10), "event_type": eventType, "rate": rate,
	}}
}

func newParticipationRecordedEvent(eventID uint64, account string, committedWh uint64) types.Event {
	return types.Event{Type: EventParticipationRecorded, Attributes: map[string]string{
		"event_id": strconv.FormatUint(eventID, 10), "account": account,
		"committed_wh": strconv.FormatUint(committedWh, 10),
	}}
}

func newParticipationVerifiedEvent(eventID uint64, account string, actualWh uint64, accepted bool) types.Event {
	return types.Event{Type: EventParticipationVerified, Attributes: map[string]string{
		"event_id": strconv.FormatUint(eventID, 10), "account": account,
		"actual_wh": strconv.FormatUint(actualWh, 10), "accepted": boolStr(accepted),
	}}
}

func newRewardDistributedEvent(eventID uint64, account string, amount string) types.Event {
	return types.Event{Type: EventRewardDistributed, Attributes: map[string]string{
		"event_id": strconv.FormatUint(eventID, 10), "account": account, "amount": amount,
	}}
}

func newGridEventCompletedEvent(eventID uint64) types.Event {
	return types.Event{Type: EventGridEventCompleted, Attributes: map[string]string{
		"event_id": strconv.FormatUint(eventID, 10),
	}}
}

func newGridConditionUpdatedEvent(loadMW, capacityMW uint64) types.Event {
	return types.Event{Type: EventGridConditionUpdated, Attributes: map[string]string{
		"load_mw": strconv.FormatUint(loadMW, 10), "capacity_mw": strconv.FormatUint(capacityMW, 10),
	}}
}

func newAutoTriggerFiredEvent(ruleName string, eventID uint64) types.Event {
	return types.Event{Type: EventAutoTriggerFired, Attributes: map[string]string{
		"rule": ruleName, "event_id": strconv.FormatUint(eventID, 10),
	}}
}

func newSecurityViolationEvent(caller, operation string) types.Event {
	return types.Event{Type: EventSecurityViolation, Attributes: map[string]string{
		"caller": caller, "operation": operation,
	}}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
