package registry

import (
	"strconv"

	"dergrid/core/types"
)

const (
	EventDeviceRegistered   = "registry.DeviceRegistered"
	EventDeviceDeactivated  = "registry.DeviceDeactivated"
	EventReputationUpdated  = "registry.ReputationUpdated"
	EventStakeUpdated       = "registry.StakeUpdated"
	EventSlashed            = "registry.Slashed"
	EventSecurityViolation  = "registry.SecurityViolation"
)

func newDeviceRegisteredEvent(owner string, stake string, deviceType string) types.Event {
	return types.Event{Type: EventDeviceRegistered, Attributes: map[string]string{
		"owner": owner, "stake": stake, "device_type": deviceType,
	}}
}

func newDeviceDeactivatedEvent(owner, reason string) types.Event {
	return types.Event{Type: EventDeviceDeactivated, Attributes: map[string]string{
		"owner": owner, "reason": reason,
	}}
}

func newReputationUpdatedEvent(owner string, before, after uint16) types.Event {
	return types.Event{Type: EventReputationUpdated, Attributes: map[string]string{
		"owner": owner, "before": strconv.Itoa(int(before)), "after": strconv.Itoa(int(after)),
	}}
}

func newStakeUpdatedEvent(owner, stake, delta string) types.Event {
	return types.Event{Type: EventStakeUpdated, Attributes: map[string]string{
		"owner": owner, "stake": stake, "delta": delta,
	}}
}

func newSlashedEvent(owner, amount, reason, destination string) types.Event {
	return types.Event{Type: EventSlashed, Attributes: map[string]string{
		"owner": owner, "amount": amount, "reason": reason, "destination": destination,
	}}
}

func newSecurityViolationEvent(caller, operation string) types.Event {
	return types.Event{Type: EventSecurityViolation, Attributes: map[string]string{
		"caller": caller, "operation": operation,
	}}
}
