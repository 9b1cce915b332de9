package token

import (
	"dergrid/core/types"
)

// Event type names. Field order within Attributes is fixed so
// downstream indexers can rely on a stable shape; Go maps don't preserve
// iteration order, so consumers that need ordering should read by key, not
// range over Attributes.
const (
	EventTransfer         = "token.Transfer"
	EventApproval         = "token.Approval"
	EventMint             = "token.Mint"
	EventBurn             = "token.Burn"
	EventPaused           = "token.Paused"
	EventUnpaused         = "token.Unpaused"
	EventRoleChanged      = "token.RoleChanged"
	EventFrozen           = "token.Frozen"
	EventUnfrozen         = "token.Unfrozen"
	EventSecurityViolation = "token.SecurityViolation"
)

func newTransferEvent(from, to, amount string) types.Event {
	return types.Event{Type: EventTransfer, Attributes: map[string]string{
		"from": from, "to": to, "amount": amount,
	}}
}

func newApprovalEvent(owner, spender, amount string) types.Event {
	return types.Event{Type: EventApproval, Attributes: map[string]string{
		"owner": owner, "spender": spender, "amount": amount,
	}}
}

func newMintEvent(to, amount string) types.Event {
	return types.Event{Type: EventMint, Attributes: map[string]string{
		"to": to, "amount": amount,
	}}
}

func newBurnEvent(from, amount string) types.Event {
	return types.Event{Type: EventBurn, Attributes: map[string]string{
		"from": from, "amount": amount,
	}}
}

func newPausedEvent(paused bool, by string) types.Event {
	evtType := EventUnpaused
	if paused {
		evtType = EventPaused
	}
	return types.Event{Type: evtType, Attributes: map[string]string{"by": by}}
}

func newRoleChangedEvent(role, target string, granted bool, by string) types.Event {
	return types.Event{Type: EventRoleChanged, Attributes: map[string]string{
		"role": role, "target": target, "granted": boolStr(granted), "by": by,
	}}
}

func newFrozenEvent(account string, frozen bool, by string) types.Event {
	evtType := EventUnfrozen
	if frozen {
		evtType = EventFrozen
	}
	return types.Event{Type: evtType, Attributes: map[string]string{
		"account": account, "by": by,
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
