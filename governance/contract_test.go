package governance

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dergrid/crypto"
	"dergrid/gridservice"
	"dergrid/registry"
	"dergrid/token"
)

func addr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	b := make([]byte, 20)
	for i := range b {
		b[i] = seed
	}
	a, err := crypto.NewAddress(crypto.DERPrefix, b)
	require.NoError(t, err)
	return a
}

func weiT(n int64) *big.Int {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), one)
}

type clockBox struct{ t time.Time }

func (c *clockBox) now() time.Time { return c.t }

type harness struct {
	tok  *token.Contract
	reg  *registry.Contract
	grid *gridservice.Contract
	gov  *Contract
	govSelf, owner, registrySelf, gridSelf crypto.Address
	clock *clockBox
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	owner := addr(t, 0x01)
	govSelf := addr(t, 0xF0)
	registrySelf := addr(t, 0xAA)
	gridSelf := addr(t, 0xCC)
	treasury := addr(t, 0xBB)

	// Token's admin is wired directly to Governance's own address since
	// no runtime handoff between them ever exists, so governance-gated
	// Token operations can be dispatched without a separate transfer step.
	tok := token.NewContract(govSelf, 18, nil, nil, nil, nil)
	reg := registry.NewContract(tok, registry.Params{
		SelfAddr: registrySelf, OwnerAddr: owner, Treasury: treasury,
		BurnOnSlash: true, MinStake: weiT(1), InitialReputation: 500,
		ReputationThreshold: 200, ReputationStepUp: 10, ReputationStepDown: 20,
		SlashReputationHit: 100,
	}, nil, nil)
	grid := gridservice.NewContract(tok, reg, gridservice.Params{
		SelfAddr:                  gridSelf,
		OwnerAddr:                 owner,
		DefaultCompensationRate:   weiT(1),
		MinCompensationRate:       big.NewInt(0),
		MaxDurationMinutes:        24 * 60,
		MaxTargetReductionKW:      1_000_000,
		VerificationWindowSeconds: 24 * 60 * 60,
		MinActualRatioBps:         5000,
		MaxAutoTriggerRules:       64,
		SignalRateLimitPerSecond:  100,
		SignalRateLimitBurst:      10,
		AckFastThresholdSeconds:   60,
		AckSlowThresholdSeconds:   600,
		HoursOnlineTargetMax:      24,
	}, nil, nil)

	require.NoError(t, reg.SetGovernanceAddress(owner, govSelf))
	require.NoError(t, grid.SetGovernanceAddress(owner, govSelf))

	gov := NewContract(tok, reg, grid, Params{
		SelfAddr:             govSelf,
		OwnerAddr:            owner,
		QuorumPercent:        50,
		VotingPeriod:         24 * time.Hour,
		TimelockPeriod:       48 * time.Hour,
		MinProposalStake:     weiT(10),
		MaxExecutionAttempts: 3,
		ExpireAfter:          7 * 24 * time.Hour,
	}, nil, nil)

	clock := &clockBox{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tok.SetNowFunc(clock.now)
	reg.SetNowFunc(clock.now)
	grid.SetNowFunc(clock.now)
	gov.SetNowFunc(clock.now)

	return &harness{tok: tok, reg: reg, grid: grid, gov: gov, govSelf: govSelf, owner: owner, registrySelf: registrySelf, gridSelf: gridSelf, clock: clock}
}

// TestGovernanceUpdateMinStakeEndToEnd drives a full proposal lifecycle:
// Dave proposes UpdateMinStake(5 T), ten voters holding 60 T (of a 100 T
// snapshot) vote For, quorum (50%) is met, and after the timelock the
// proposal executes and Registry.GetMinStake reflects the new value.
func TestGovernanceUpdateMinStakeEndToEnd(t *testing.T) {
	h := newHarness(t)

	dave := addr(t, 0x10)
	require.NoError(t, h.tok.MintToBootstrap(h.govSelf, dave, weiT(100)))

	voters := make([]crypto.Address, 10)
	for i := range voters {
		v := addr(t, byte(0x20+i))
		require.NoError(t, h.tok.Transfer(dave, v, weiT(6)))
		voters[i] = v
	}
	// dave retains 100-60=40 T; total supply snapshot = 100 T.

	id, err := h.gov.CreateProposal(dave, KindUpdateMinStake, Action{Amount: weiT(5)}, "lower min stake to 5 T")
	require.NoError(t, err)

	for _, v := range voters {
		require.NoError(t, h.gov.Vote(v, id, true))
	}

	h.clock.t = h.clock.t.Add(24 * time.Hour)
	require.NoError(t, h.gov.Finalize(dave, id))
	p, ok := h.gov.GetProposal(id)
	require.True(t, ok)
	require.Equal(t, StateSucceeded, p.State)

	require.NoError(t, h.gov.QueueProposal(dave, id))
	h.clock.t = h.clock.t.Add(48 * time.Hour)
	require.NoError(t, h.gov.ExecuteProposal(dave, id))

	p, ok = h.gov.GetProposal(id)
	require.True(t, ok)
	require.Equal(t, StateExecuted, p.State)
	require.Equal(t, weiT(5).String(), h.reg.GetMinStake().String())
}

func TestGovernanceRejectsBelowMinProposalStake(t *testing.T) {
	h := newHarness(t)
	pauper := addr(t, 0x30)
	_, err := h.gov.CreateProposal(pauper, KindUpdateMinStake, Action{Amount: weiT(5)}, "too poor to propose")
	require.ErrorIs(t, err, ErrBelowMinProposalStake)
}

func TestGovernanceDoubleVoteRejected(t *testing.T) {
	h := newHarness(t)
	dave := addr(t, 0x10)
	require.NoError(t, h.tok.MintToBootstrap(h.govSelf, dave, weiT(100)))
	id, err := h.gov.CreateProposal(dave, KindUpdateMinStake, Action{Amount: weiT(5)}, "x")
	require.NoError(t, err)
	require.NoError(t, h.gov.Vote(dave, id, true))
	require.ErrorIs(t, h.gov.Vote(dave, id, true), ErrAlreadyVoted)
}

func TestGovernanceDefeatedWithoutQuorum(t *testing.T) {
	h := newHarness(t)
	dave := addr(t, 0x10)
	require.NoError(t, h.tok.MintToBootstrap(h.govSelf, dave, weiT(100)))
	small := addr(t, 0x40)
	require.NoError(t, h.tok.Transfer(dave, small, weiT(1)))

	id, err := h.gov.CreateProposal(dave, KindUpdateMinStake, Action{Amount: weiT(5)}, "x")
	require.NoError(t, err)
	require.NoError(t, h.gov.Vote(small, id, true))

	h.clock.t = h.clock.t.Add(24 * time.Hour)
	require.NoError(t, h.gov.Finalize(dave, id))
	p, ok := h.gov.GetProposal(id)
	require.True(t, ok)
	require.Equal(t, StateDefeated, p.State)
}

func TestGovernanceExecuteBeforeTimelockRejected(t *testing.T) {
	h := newHarness(t)
	dave := addr(t, 0x10)
	require.NoError(t, h.tok.MintToBootstrap(h.govSelf, dave, weiT(100)))
	id, err := h.gov.CreateProposal(dave, KindUpdateMinStake, Action{Amount: weiT(5)}, "x")
	require.NoError(t, err)
	require.NoError(t, h.gov.Vote(dave, id, true))
	h.clock.t = h.clock.t.Add(24 * time.Hour)
	require.NoError(t, h.gov.Finalize(dave, id))
	require.NoError(t, h.gov.QueueProposal(dave, id))
	require.ErrorIs(t, h.gov.ExecuteProposal(dave, id), ErrTimelockNotElapsed)
}

func TestGovernanceProposerCancelWhileActive(t *testing.T) {
	h := newHarness(t)
	dave := addr(t, 0x10)
	require.NoError(t, h.tok.MintToBootstrap(h.govSelf, dave, weiT(100)))
	id, err := h.gov.CreateProposal(dave, KindUpdateMinStake, Action{Amount: weiT(5)}, "x")
	require.NoError(t, err)
	require.NoError(t, h.gov.CancelProposal(dave, id))
	p, ok := h.gov.GetProposal(id)
	require.True(t, ok)
	require.Equal(t, StateCancelled, p.State)
}

func TestGovernanceEmergencyGuardianCancelQueued(t *testing.T) {
	h := newHarness(t)
	dave := addr(t, 0x10)
	guardian := addr(t, 0x50)
	require.NoError(t, h.gov.AddEmergencyGuardian(h.owner, guardian))
	require.NoError(t, h.tok.MintToBootstrap(h.govSelf, dave, weiT(100)))
	id, err := h.gov.CreateProposal(dave, KindUpdateMinStake, Action{Amount: weiT(5)}, "x")
	require.NoError(t, err)
	require.NoError(t, h.gov.Vote(dave, id, true))
	h.clock.t = h.clock.t.Add(24 * time.Hour)
	require.NoError(t, h.gov.Finalize(dave, id))
	require.NoError(t, h.gov.QueueProposal(dave, id))
	require.NoError(t, h.gov.CancelProposal(guardian, id))
	p, ok := h.gov.GetProposal(id)
	require.True(t, ok)
	require.Equal(t, StateCancelled, p.State)
}

func TestGovernanceGrantsMinterRole(t *testing.T) {
	h := newHarness(t)
	dave := addr(t, 0x10)
	require.NoError(t, h.tok.MintToBootstrap(h.govSelf, dave, weiT(100)))

	id, err := h.gov.CreateProposal(dave, KindSetTokenMinter, Action{Target: h.gridSelf, Enable: true}, "grant grid minter role")
	require.NoError(t, err)
	require.NoError(t, h.gov.Vote(dave, id, true))
	h.clock.t = h.clock.t.Add(24 * time.Hour)
	require.NoError(t, h.gov.Finalize(dave, id))
	require.NoError(t, h.gov.QueueProposal(dave, id))
	h.clock.t = h.clock.t.Add(48 * time.Hour)
	require.NoError(t, h.gov.ExecuteProposal(dave, id))

	require.True(t, h.tok.IsMinter(h.gridSelf))
	log := h.gov.AuditLog()
	require.Len(t, log, 1)
	require.Equal(t, "executed", log[0].Outcome)
}
