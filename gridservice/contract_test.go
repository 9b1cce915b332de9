package gridservice

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dergrid/crypto"
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

type testHarness struct {
	tok  *token.Contract
	reg  *registry.Contract
	grid *Contract
	admin, alice, bob, carol, registrySelf crypto.Address
	clock *clockBox
}

type clockBox struct{ t time.Time }

func (c *clockBox) now() time.Time { return c.t }

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	admin := addr(t, 0x01)
	gridSelf := addr(t, 0xCC)
	registrySelf := addr(t, 0xAA)
	treasury := addr(t, 0xBB)

	tok := token.NewContract(admin, 18, nil, nil, nil, nil)
	reg := registry.NewContract(tok, registry.Params{
		SelfAddr: registrySelf, OwnerAddr: admin, Treasury: treasury,
		BurnOnSlash: true, MinStake: weiT(1), InitialReputation: 500,
		ReputationThreshold: 200, ReputationStepUp: 10, ReputationStepDown: 20,
		SlashReputationHit: 100,
	}, nil, nil)

	grid := NewContract(tok, reg, Params{
		SelfAddr:                  gridSelf,
		OwnerAddr:                 admin,
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

	require.NoError(t, tok.AddMinter(admin, gridSelf))
	require.NoError(t, tok.AddBurner(admin, registrySelf))
	require.NoError(t, reg.AddAuthorizedCaller(admin, gridSelf))

	clock := &clockBox{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tok.SetNowFunc(clock.now)
	reg.SetNowFunc(clock.now)
	grid.SetNowFunc(clock.now)

	alice := addr(t, 0x02)
	bob := addr(t, 0x03)
	carol := addr(t, 0x04)
	require.NoError(t, grid.AddAuthorizedCaller(admin, bob))
	require.NoError(t, grid.AddVerifier(admin, carol))

	return &testHarness{tok: tok, reg: reg, grid: grid, admin: admin, alice: alice, bob: bob, carol: carol, registrySelf: registrySelf, clock: clock}
}

func (h *testHarness) registerAlice(t *testing.T, stake int64) {
	t.Helper()
	require.NoError(t, h.tok.MintToBootstrap(h.admin, h.alice, weiT(1_000_000)))
	require.NoError(t, h.tok.Approve(h.alice, h.registrySelf, weiT(stake)))
	require.NoError(t, h.reg.RegisterDevice(h.alice, registry.Metadata{DeviceType: registry.DeviceTypeSmartPlug, CapacityW: 2000}, weiT(stake)))
}

func TestHappyPathGridEvent(t *testing.T) {
	h := newHarness(t)
	h.registerAlice(t, 2)

	id, err := h.grid.CreateGridEvent(h.bob, EventTypeDemandResponse, 60, weiT(1), 100)
	require.NoError(t, err)

	require.NoError(t, h.grid.ParticipateInEvent(h.alice, id, 500))
	h.clock.t = h.clock.t.Add(60 * time.Minute)
	require.NoError(t, h.grid.VerifyParticipation(h.carol, id, h.alice, 500))

	balBefore := h.tok.BalanceOf(h.alice)
	reward, err := h.grid.VerifyAndDistributeRewards(h.carol, id, h.alice)
	require.NoError(t, err)

	// base=0.5T, efficiency=0.1T (A==C) -> sum=0.6T. rep=500 -> 1.0x.
	// flex: no ack or online-window data yet, so response_time and
	// availability default to their neutral midpoint (125 each);
	// consistency is a real 0/0; actual==committed gives a full-marks
	// range component. 125+0+250+125 = 500/1000, so flexBp = 10000 (1.0x).
	// reward = 0.6T * 1.0 = 0.6T.
	expected := new(big.Int).Div(new(big.Int).Mul(weiT(1), big.NewInt(60)), big.NewInt(100))
	require.Equal(t, expected.String(), reward.String())

	balAfter := h.tok.BalanceOf(h.alice)
	require.Equal(t, new(big.Int).Add(balBefore, reward), balAfter)

	p, ok := h.grid.GetParticipation(id, h.alice)
	require.True(t, ok)
	require.Equal(t, ParticipationRewarded, p.State)
}

func TestDoubleParticipationRejected(t *testing.T) {
	h := newHarness(t)
	h.registerAlice(t, 2)
	id, err := h.grid.CreateGridEvent(h.bob, EventTypeDemandResponse, 60, weiT(1), 100)
	require.NoError(t, err)
	require.NoError(t, h.grid.ParticipateInEvent(h.alice, id, 500))
	require.ErrorIs(t, h.grid.ParticipateInEvent(h.alice, id, 100), ErrAlreadyParticipated)
}

func TestVerifyBelowMinRatioRejected(t *testing.T) {
	h := newHarness(t)
	h.registerAlice(t, 2)
	id, err := h.grid.CreateGridEvent(h.bob, EventTypeDemandResponse, 60, weiT(1), 100)
	require.NoError(t, err)
	require.NoError(t, h.grid.ParticipateInEvent(h.alice, id, 1000))
	h.clock.t = h.clock.t.Add(60 * time.Minute)
	require.NoError(t, h.grid.VerifyParticipation(h.carol, id, h.alice, 100))
	p, ok := h.grid.GetParticipation(id, h.alice)
	require.True(t, ok)
	require.Equal(t, ParticipationRejected, p.State)

	_, err = h.grid.VerifyAndDistributeRewards(h.carol, id, h.alice)
	require.ErrorIs(t, err, ErrParticipationNotVerified)
}

func TestCompleteGridEventIdempotent(t *testing.T) {
	h := newHarness(t)
	id, err := h.grid.CreateGridEvent(h.bob, EventTypeDemandResponse, 60, weiT(1), 100)
	require.NoError(t, err)
	h.clock.t = h.clock.t.Add(60 * time.Minute)
	require.NoError(t, h.grid.CompleteGridEvent(h.bob, id))
	require.NoError(t, h.grid.CompleteGridEvent(h.bob, id))
	rec, ok := h.grid.GetEvent(id)
	require.True(t, ok)
	require.Equal(t, EventStateCompleted, rec.State)
}

func TestCancelGridEventRejectsParticipations(t *testing.T) {
	h := newHarness(t)
	h.registerAlice(t, 2)
	id, err := h.grid.CreateGridEvent(h.bob, EventTypeDemandResponse, 60, weiT(1), 100)
	require.NoError(t, err)
	require.NoError(t, h.grid.ParticipateInEvent(h.alice, id, 500))
	require.NoError(t, h.grid.CancelGridEvent(h.admin, id, "emergency"))
	p, ok := h.grid.GetParticipation(id, h.alice)
	require.True(t, ok)
	require.Equal(t, ParticipationRejected, p.State)
}

func TestCreateGridEventRejectsBadParams(t *testing.T) {
	h := newHarness(t)
	_, err := h.grid.CreateGridEvent(h.bob, EventTypeDemandResponse, 0, weiT(1), 100)
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = h.grid.CreateGridEvent(h.bob, EventTypeDemandResponse, 60, weiT(1), 0)
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestAutoTriggerFiresFromSignal(t *testing.T) {
	h := newHarness(t)
	feed := addr(t, 0x05)
	require.NoError(t, h.grid.AddDataFeed(h.admin, feed))
	require.NoError(t, h.grid.SetRuleSet(h.admin, []Rule{
		{Name: "high-load", Comparator: CmpLoadAboveMW, Threshold: 100, CooldownSeconds: 60,
			EventType: EventTypeDemandResponse, DurationMinutes: 30, TargetReductionKW: 50, Severity: 2},
	}))
	err := h.grid.IngestGridSignal(feed, GridSignal{Condition: GridCondition{LoadMW: 150, CapacityMW: 200}})
	require.NoError(t, err)
	rec, ok := h.grid.GetEvent(1)
	require.True(t, ok)
	require.Equal(t, weiT(2), rec.BaseCompensationRate)
}
