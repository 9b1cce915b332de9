// Package governance implements the proposal/vote/timelock/execute engine
// that is the sole owner of privileged parameter and role changes across
// Token, Registry and GridService. It is grounded on
// the deleted native/governance/engine.go's proposal state machine and
// closed dispatch-table execution, carried over to this module's four-
// contract topology.
package governance

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dergrid/core/events"
	"dergrid/core/types"
	"dergrid/crypto"
	"dergrid/observability/logging"
	"dergrid/observability/metrics"
	"dergrid/reentrancy"
)

var tracer trace.Tracer = otel.Tracer("dergrid/governance")

// Params bundles Governance's construction-time parameters.
type Params struct {
	SelfAddr             crypto.Address
	OwnerAddr            crypto.Address
	QuorumPercent        uint64 // e.g. 50 means 50%
	VotingPeriod         time.Duration
	TimelockPeriod       time.Duration
	MinProposalStake     *big.Int
	MaxExecutionAttempts int
	ExpireAfter          time.Duration // bounded window past timelock before a never-executed Queued proposal expires
}

// Contract is the Governance state machine. The zero value is not usable;
// call NewContract.
type Contract struct {
	mu sync.RWMutex

	token    TokenCaller
	registry RegistryCaller
	grid     GridCaller

	selfAddr  crypto.Address
	ownerAddr crypto.Address

	params Params

	emergencyGuardians map[string]bool

	nextProposalID uint64
	proposals      map[uint64]*Proposal
	votes          map[string]Vote          // key: proposalID:account
	balanceSnap    map[string]*big.Int      // key: proposalID:account, balance snapshot taken at proposal creation

	audit     []AuditRecord
	auditSink *logging.AuditSink

	guard reentrancy.Guard

	nowFunc func() time.Time
	logger  *slog.Logger
	emitter events.Emitter
}

// SetAuditSink attaches a rotating file sink that mirrors every audit
// record appended by appendAudit. Optional: with no sink attached, the
// audit trail lives only in AuditLog's in-memory slice.
func (c *Contract) SetAuditSink(sink *logging.AuditSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auditSink = sink
}

// NewContract constructs a Governance contract bound to the three
// downstream contracts it may dispatch to.
func NewContract(token TokenCaller, registry RegistryCaller, grid GridCaller, p Params, logger *slog.Logger, emitter events.Emitter) *Contract {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if p.MinProposalStake == nil {
		p.MinProposalStake = big.NewInt(0)
	}
	if p.MaxExecutionAttempts <= 0 {
		p.MaxExecutionAttempts = 3
	}
	return &Contract{
		token:              token,
		registry:           registry,
		grid:               grid,
		selfAddr:           p.SelfAddr,
		ownerAddr:          p.OwnerAddr,
		params:             p,
		emergencyGuardians: make(map[string]bool),
		nextProposalID:     1,
		proposals:          make(map[uint64]*Proposal),
		votes:              make(map[string]Vote),
		balanceSnap:         make(map[string]*big.Int),
		nowFunc:            time.Now,
		logger:             logger.With("contract", "governance"),
		emitter:            emitter,
	}
}

// SetNowFunc overrides the contract's clock; intended for deterministic
// tests driving voting-period/timelock transitions.
func (c *Contract) SetNowFunc(f func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFunc = f
}

func (c *Contract) emit(evt types.Event) {
	c.emitter.Emit(evt)
}

func (c *Contract) isOwner(caller crypto.Address) bool {
	return caller.String() == c.ownerAddr.String()
}

// AddEmergencyGuardian and RemoveEmergencyGuardian are owner-gated; the
// guardian set may also be grown via a SetEmergencyGuardian proposal.
func (c *Contract) AddEmergencyGuardian(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOwner(caller) {
		c.emit(newSecurityViolationEvent(caller.String(), "add-emergency-guardian"))
		return ErrUnauthorized
	}
	c.emergencyGuardians[target.String()] = true
	return nil
}

func (c *Contract) isEmergencyGuardian(addr crypto.Address) bool {
	return c.emergencyGuardians[addr.String()]
}

func proposalVoteKey(proposalID uint64, account crypto.Address) string {
	return fmt.Sprintf("%d:%s", proposalID, account.String())
}

// CreateProposal opens a new proposal; the proposer must hold at least
// min_proposal_stake tokens. SupplySnapshot, and every holder's vote
// weight, are captured eagerly here, as of this moment — not lazily on
// first vote — so a balance acquired after creation carries no voting
// weight for this proposal.
func (c *Contract) CreateProposal(proposer crypto.Address, kind ProposalKind, action Action, description string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stake := c.token.BalanceOf(proposer)
	if stake.Cmp(c.params.MinProposalStake) < 0 {
		return 0, ErrBelowMinProposalStake
	}

	now := c.nowFunc()
	id := c.nextProposalID
	c.nextProposalID++

	p := &Proposal{
		ID:             id,
		Proposer:       proposer,
		Kind:           kind,
		Action:         action,
		Description:    description,
		CreatedAt:      now,
		VotingEndAt:    now.Add(c.params.VotingPeriod),
		ForVotes:       big.NewInt(0),
		AgainstVotes:   big.NewInt(0),
		SupplySnapshot: c.token.TotalSupply(),
		State:          StateActive,
	}
	c.proposals[id] = p
	for addr, bal := range c.token.SnapshotBalances() {
		c.balanceSnap[fmt.Sprintf("%d:%s", id, addr)] = bal
	}
	c.emit(newProposalCreatedEvent(id, kind.String(), proposer.String()))
	metrics.Governance().ObserveProposalCreated(kind.String())
	return id, nil
}

// snapshotBalanceLocked returns account's vote weight for proposalID, as
// captured by CreateProposal. An account absent from the snapshot held a
// zero balance at creation time, so it votes with zero weight regardless
// of any balance acquired since.
func (c *Contract) snapshotBalanceLocked(proposalID uint64, account crypto.Address) *big.Int {
	key := proposalVoteKey(proposalID, account)
	if bal, ok := c.balanceSnap[key]; ok {
		return bal
	}
	return big.NewInt(0)
}

// Vote casts one ballot for (proposal_id, account); at most one per pair.
func (c *Contract) Vote(account crypto.Address, proposalID uint64, support bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.proposals[proposalID]
	if !ok {
		return ErrProposalNotFound
	}
	if p.State != StateActive {
		return ErrNotActive
	}
	now := c.nowFunc()
	if !now.Before(p.VotingEndAt) {
		return ErrVotingClosed
	}
	key := proposalVoteKey(proposalID, account)
	if _, voted := c.votes[key]; voted {
		return ErrAlreadyVoted
	}

	weight := c.snapshotBalanceLocked(proposalID, account)
	c.votes[key] = Vote{Support: support, Weight: new(big.Int).Set(weight)}
	if support {
		p.ForVotes = new(big.Int).Add(p.ForVotes, weight)
	} else {
		p.AgainstVotes = new(big.Int).Add(p.AgainstVotes, weight)
	}
	c.emit(newVoteCastEvent(proposalID, account.String(), support, weight.String()))
	metrics.Governance().IncVoteCast()
	return nil
}

// HasVoted reports whether account has already cast a ballot on proposalID.
func (c *Contract) HasVoted(proposalID uint64, account crypto.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.votes[proposalVoteKey(proposalID, account)]
	return ok
}

// Finalize transitions an Active proposal to Succeeded or Defeated once
// its voting period has ended.
func (c *Contract) Finalize(caller crypto.Address, proposalID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.proposals[proposalID]
	if !ok {
		return ErrProposalNotFound
	}
	if p.State != StateActive {
		return ErrNotActive
	}
	now := c.nowFunc()
	if now.Before(p.VotingEndAt) {
		return ErrVotingNotEnded
	}

	quorumMet := false
	if p.SupplySnapshot.Sign() > 0 {
		lhs := new(big.Int).Mul(p.ForVotes, big.NewInt(100))
		rhs := new(big.Int).Mul(big.NewInt(int64(c.params.QuorumPercent)), p.SupplySnapshot)
		quorumMet = lhs.Cmp(rhs) >= 0
	}
	if p.ForVotes.Cmp(p.AgainstVotes) > 0 && quorumMet {
		p.State = StateSucceeded
		c.emit(newQuorumReachedEvent(proposalID))
	} else {
		p.State = StateDefeated
		metrics.Governance().IncDefeated()
	}
	return nil
}

// QueueProposal moves a Succeeded proposal into the timelock window.
func (c *Contract) QueueProposal(caller crypto.Address, proposalID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.proposals[proposalID]
	if !ok {
		return ErrProposalNotFound
	}
	if p.State != StateSucceeded {
		return ErrNotSucceeded
	}
	p.State = StateQueued
	p.TimelockEndAt = c.nowFunc().Add(c.params.TimelockPeriod)
	c.emit(newProposalQueuedEvent(proposalID))
	return nil
}

// ExecuteProposal dispatches a Queued proposal's action to its downstream
// contract, only after the timelock has elapsed. Execution
// failure increments ExecutionAttempts up to MaxExecutionAttempts;
// exceeding the cap transitions the proposal to Expired. This is the sole
// operation in the system where failure is retryable.
func (c *Contract) ExecuteProposal(caller crypto.Address, proposalID uint64) (err error) {
	_, span := tracer.Start(context.Background(), "governance.execute_proposal",
		trace.WithAttributes(attribute.Int64("governance.proposal_id", int64(proposalID))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	release, err := c.guard.Enter()
	defer release()
	if err != nil {
		c.emit(newSecurityViolationEvent(caller.String(), "reentrant-execute"))
		return err
	}

	c.mu.Lock()
	p, ok := c.proposals[proposalID]
	if !ok {
		c.mu.Unlock()
		return ErrProposalNotFound
	}
	if p.State != StateQueued {
		c.mu.Unlock()
		return ErrNotQueued
	}
	now := c.nowFunc()
	if now.Before(p.TimelockEndAt) {
		c.mu.Unlock()
		return ErrTimelockNotElapsed
	}
	if now.After(p.TimelockEndAt.Add(c.params.ExpireAfter)) {
		p.State = StateExpired
		c.mu.Unlock()
		metrics.Governance().IncExpired()
		return ErrExecutionCapExceeded
	}
	action := p.Action
	kind := p.Kind
	c.mu.Unlock()

	dispatchErr := c.dispatch(kind, action)

	c.mu.Lock()
	defer c.mu.Unlock()
	if dispatchErr != nil {
		p.ExecutionAttempts++
		c.appendAudit(proposalID, kind, caller, "dispatch-failed: "+dispatchErr.Error())
		metrics.Governance().ObserveExecutionFailure(kind.String())
		if p.ExecutionAttempts >= c.params.MaxExecutionAttempts {
			p.State = StateExpired
			metrics.Governance().IncExpired()
		}
		return fmt.Errorf("%w: %v", ErrDownstreamCallFailed, dispatchErr)
	}

	p.State = StateExecuted
	c.appendAudit(proposalID, kind, caller, "executed")
	c.emit(newProposalExecutedEvent(proposalID))
	metrics.Governance().IncExecuted()
	return nil
}

// dispatch is the finite total function from ProposalKind to a single
// downstream call — no dynamic code paths. Each case binds
// Governance's own address as caller, since each downstream contract
// authorizes governance-gated operations by comparing caller against its
// configured governance address.
func (c *Contract) dispatch(kind ProposalKind, a Action) error {
	self := c.selfAddr
	switch kind {
	case KindSetTokenMinter:
		if a.Enable {
			return c.token.AddMinter(self, a.Target)
		}
		return c.token.RemoveMinter(self, a.Target)
	case KindSetTokenBurner:
		if a.Enable {
			return c.token.AddBurner(self, a.Target)
		}
		return c.token.RemoveBurner(self, a.Target)
	case KindSetRegistryAuthorizedCaller:
		if a.Enable {
			return c.registry.AddAuthorizedCaller(self, a.Target)
		}
		return c.registry.RemoveAuthorizedCaller(self, a.Target)
	case KindSetGridAuthorizedCaller:
		if a.Enable {
			return c.grid.AddAuthorizedCaller(self, a.Target)
		}
		return c.grid.RemoveAuthorizedCaller(self, a.Target)
	case KindUpdateMinStake:
		return c.registry.SetMinStake(self, a.Amount)
	case KindUpdateReputationThreshold:
		return c.registry.SetReputationThreshold(self, a.Value)
	case KindUpdateCompensationRate:
		return c.grid.SetDefaultCompensationRate(self, a.Amount)
	case KindTreasuryTransfer:
		return c.token.Transfer(self, a.Target, a.Amount)
	case KindSetPaused:
		switch a.ContractID {
		case ContractToken:
			return c.token.SetPaused(self, a.Enable)
		case ContractRegistry:
			return c.registry.SetPaused(self, a.Enable)
		case ContractGridService:
			return c.grid.SetPaused(self, a.Enable)
		default:
			return ErrUnknownContractID
		}
	case KindSetEmergencyGuardian:
		if a.Enable {
			c.emergencyGuardians[a.Target.String()] = true
		} else {
			delete(c.emergencyGuardians, a.Target.String())
		}
		return nil
	default:
		return ErrUnknownContractID
	}
}

// CancelProposal is callable by the proposer while Active, or by any
// emergency guardian in any pre-Executed state.
func (c *Contract) CancelProposal(caller crypto.Address, proposalID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.proposals[proposalID]
	if !ok {
		return ErrProposalNotFound
	}
	if p.State.terminal() || p.State == StateExecuted {
		return ErrAlreadyTerminal
	}
	isProposer := caller.String() == p.Proposer.String()
	if isProposer && p.State == StateActive {
		p.State = StateCancelled
		c.emit(newProposalCancelledEvent(proposalID, caller.String()))
		return nil
	}
	if c.isEmergencyGuardian(caller) {
		p.State = StateCancelled
		c.emit(newProposalCancelledEvent(proposalID, caller.String()))
		return nil
	}
	c.emit(newSecurityViolationEvent(caller.String(), "cancel-proposal"))
	return ErrUnauthorized
}

// GetProposal returns a defensive copy of the stored proposal.
func (c *Contract) GetProposal(proposalID uint64) (Proposal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.proposals[proposalID]
	if !ok {
		return Proposal{}, false
	}
	return p.clone(), true
}

// appendAudit records one entry in Governance's audit trail. The
// record's identity is its ID, not its
// position, so a random UUID is fine here even though every other piece of
// contract state is driven by the injectable clock.
func (c *Contract) appendAudit(proposalID uint64, kind ProposalKind, caller crypto.Address, outcome string) {
	rec := AuditRecord{
		ID:         uuid.NewString(),
		ProposalID: proposalID,
		Kind:       kind,
		Caller:     caller.String(),
		Timestamp:  c.nowFunc(),
		Outcome:    outcome,
	}
	c.audit = append(c.audit, rec)
	c.auditSink.Record("governance_audit",
		slog.String("audit_id", rec.ID),
		slog.Uint64("proposal_id", rec.ProposalID),
		slog.String("kind", rec.Kind.String()),
		slog.String("caller", rec.Caller),
		slog.String("outcome", rec.Outcome),
	)
}

// AuditLog returns a defensive copy of the full audit trail.
func (c *Contract) AuditLog() []AuditRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AuditRecord, len(c.audit))
	copy(out, c.audit)
	return out
}
