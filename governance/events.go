package governance

import (
	"strconv"

	"dergrid/core/types"
)

const (
	EventProposalCreated       = "governance.ProposalCreated"
	EventVoteCast              = "governance.VoteCast"
	EventProposalQueued        = "governance.ProposalQueued"
	EventProposalExecuted      = "governance.ProposalExecuted"
	EventProposalCancelled     = "governance.ProposalCancelled"
	EventQuorumReached         = "governance.QuorumReached"
	EventSecurityViolationDetected = "governance.SecurityViolationDetected"
)

func newProposalCreatedEvent(id uint64, kind string, proposer string) types.Event {
	return types.Event{Type: EventProposalCreated, Attributes: map[string]string{
		"proposal_id": strconv.FormatUint(id, 10), "kind": kind, "proposer": proposer,
	}}
}

func newVoteCastEvent(id uint64, account string, support bool, weight string) types.Event {
	return types.Event{Type: EventVoteCast, Attributes: map[string]string{
		"proposal_id": strconv.FormatUint(id, 10), "account": account,
		"support": boolStr(support), "weight": weight,
	}}
}

func newProposalQueuedEvent(id uint64) types.Event {
	return types.Event{Type: EventProposalQueued, Attributes: map[string]string{
		"proposal_id": strconv.FormatUint(id, 10),
	}}
}

func newProposalExecutedEvent(id uint64) types.Event {
	return types.Event{Type: EventProposalExecuted, Attributes: map[string]string{
		"proposal_id": strconv.FormatUint(id, 10),
	}}
}

func newProposalCancelledEvent(id uint64, caller string) types.Event {
	return types.Event{Type: EventProposalCancelled, Attributes: map[string]string{
		"proposal_id": strconv.FormatUint(id, 10), "caller": caller,
	}}
}

func newQuorumReachedEvent(id uint64) types.Event {
	return types.Event{Type: EventQuorumReached, Attributes: map[string]string{
		"proposal_id": strconv.FormatUint(id, 10),
	}}
}

func newSecurityViolationEvent(caller, operation string) types.Event {
	return types.Event{Type: EventSecurityViolationDetected, Attributes: map[string]string{
		"caller": caller, "operation": operation,
	}}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
