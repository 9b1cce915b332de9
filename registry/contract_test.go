package registry

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"dergrid/crypto"
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

func setup(t *testing.T) (*token.Contract, *Contract, crypto.Address, crypto.Address, crypto.Address) {
	t.Helper()
	admin := addr(t, 0x01)
	registrySelf := addr(t, 0xAA)
	treasury := addr(t, 0xBB)
	tok := token.NewContract(admin, 18, nil, nil, nil, nil)

	reg := NewContract(tok, Params{
		SelfAddr:            registrySelf,
		OwnerAddr:           admin,
		Treasury:            treasury,
		BurnOnSlash:         true,
		MinStake:            weiT(1),
		InitialReputation:   500,
		ReputationThreshold: 200,
		ReputationStepUp:    10,
		ReputationStepDown:  20,
		SlashReputationHit:  100,
	}, nil, nil)
	return tok, reg, admin, registrySelf, treasury
}

func TestRegisterAndWithdrawRoundTrip(t *testing.T) {
	tok, reg, admin, _, _ := setup(t)
	alice := addr(t, 0x02)
	require.NoError(t, tok.MintToBootstrap(admin, alice, weiT(1_000_000)))
	require.NoError(t, tok.Approve(alice, reg.selfAddr, weiT(2)))

	meta := Metadata{DeviceType: DeviceTypeSmartPlug, CapacityW: 2000}
	require.NoError(t, reg.RegisterDevice(alice, meta, weiT(2)))

	require.Equal(t, weiT(999_998), tok.BalanceOf(alice))
	require.Equal(t, weiT(2), tok.BalanceOf(reg.selfAddr))
	rec, ok := reg.GetDevice(alice)
	require.True(t, ok)
	require.Equal(t, weiT(2), rec.Stake)
	require.True(t, reg.IsDeviceRegistered(alice))

	require.NoError(t, reg.WithdrawStake(alice, weiT(2)))
	require.Equal(t, weiT(1_000_000), tok.BalanceOf(alice))
	require.Equal(t, weiT(0), tok.BalanceOf(reg.selfAddr))
	require.False(t, reg.IsDeviceRegistered(alice))
}

func TestRegisterRequiresApproval(t *testing.T) {
	tok, reg, admin, _, _ := setup(t)
	alice := addr(t, 0x02)
	require.NoError(t, tok.MintToBootstrap(admin, alice, weiT(10)))
	err := reg.RegisterDevice(alice, Metadata{}, weiT(2))
	require.ErrorIs(t, err, ErrTokenCallFailed)
}

func TestRegisterBelowMinStakeRejected(t *testing.T) {
	tok, reg, admin, _, _ := setup(t)
	alice := addr(t, 0x02)
	require.NoError(t, tok.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, tok.Approve(alice, reg.selfAddr, weiT(1)))
	// min stake is 1 T; attempt a sub-unit stake
	tiny := big.NewInt(1)
	err := reg.RegisterDevice(alice, Metadata{}, tiny)
	require.ErrorIs(t, err, ErrBelowMinStake)
}

func TestDoubleRegisterRejected(t *testing.T) {
	tok, reg, admin, _, _ := setup(t)
	alice := addr(t, 0x02)
	require.NoError(t, tok.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, tok.Approve(alice, reg.selfAddr, weiT(4)))
	require.NoError(t, reg.RegisterDevice(alice, Metadata{}, weiT(2)))
	require.ErrorIs(t, reg.RegisterDevice(alice, Metadata{}, weiT(2)), ErrAlreadyRegistered)
}

func TestSlashStakeBurnsAndReducesReputation(t *testing.T) {
	tok, reg, admin, _, _ := setup(t)
	alice := addr(t, 0x02)
	oracle := addr(t, 0x03)
	require.NoError(t, tok.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, tok.Approve(alice, reg.selfAddr, weiT(5)))
	require.NoError(t, reg.RegisterDevice(alice, Metadata{}, weiT(5)))
	require.NoError(t, tok.AddBurner(admin, reg.selfAddr))
	require.NoError(t, reg.AddAuthorizedCaller(admin, oracle))

	supplyBefore := tok.TotalSupply()
	require.NoError(t, reg.SlashStake(oracle, alice, weiT(2), "underperformance"))
	rec, ok := reg.GetDevice(alice)
	require.True(t, ok)
	require.Equal(t, weiT(3), rec.Stake)
	require.Equal(t, uint16(400), rec.Reputation)
	require.Equal(t, new(big.Int).Sub(supplyBefore, weiT(2)), tok.TotalSupply())
}

func TestUpdateDevicePerformanceRequiresAuthorizedCaller(t *testing.T) {
	tok, reg, admin, _, _ := setup(t)
	alice := addr(t, 0x02)
	require.NoError(t, tok.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, tok.Approve(alice, reg.selfAddr, weiT(2)))
	require.NoError(t, reg.RegisterDevice(alice, Metadata{}, weiT(2)))

	require.ErrorIs(t, reg.UpdateDevicePerformance(alice, alice, 100, true), ErrUnauthorized)

	oracle := addr(t, 0x04)
	require.NoError(t, reg.AddAuthorizedCaller(admin, oracle))
	require.NoError(t, reg.UpdateDevicePerformance(oracle, alice, 100, true))
	rec, _ := reg.GetDevice(alice)
	require.Equal(t, uint16(510), rec.Reputation)
}
