package token

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dergrid/crypto"
)

func newTestAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	b := make([]byte, 20)
	for i := range b {
		b[i] = seed
	}
	addr, err := crypto.NewAddress(crypto.DERPrefix, b)
	require.NoError(t, err)
	return addr
}

func newTestContract(t *testing.T) (*Contract, crypto.Address) {
	t.Helper()
	admin := newTestAddr(t, 0x01)
	c := NewContract(admin, 18, nil, nil, nil, nil)
	return c, admin
}

func weiT(n int64) *big.Int {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), one)
}

func TestMintBootstrapAndTransfer(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)

	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(1_000_000)))
	require.Equal(t, weiT(1_000_000), c.BalanceOf(alice))

	require.NoError(t, c.Transfer(alice, bob, weiT(100)))
	require.Equal(t, weiT(999_900), c.BalanceOf(alice))
	require.Equal(t, weiT(100), c.BalanceOf(bob))
}

func TestMintRequiresRole(t *testing.T) {
	c, _ := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)
	require.ErrorIs(t, c.Mint(alice, bob, weiT(1)), ErrUnauthorized)
}

func TestMintRoleGranted(t *testing.T) {
	c, admin := newTestContract(t)
	minter := newTestAddr(t, 0x04)
	to := newTestAddr(t, 0x05)
	require.NoError(t, c.AddMinter(admin, minter))
	require.NoError(t, c.Mint(minter, to, weiT(10)))
	require.Equal(t, weiT(10), c.BalanceOf(to))
	require.Equal(t, weiT(10), c.TotalSupply())
}

func TestBurnSelfAlwaysAllowed(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, c.Burn(alice, alice, weiT(4)))
	require.Equal(t, weiT(6), c.BalanceOf(alice))
	require.Equal(t, weiT(6), c.TotalSupply())
}

func TestBurnRequiresRoleForOthers(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)
	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(10)))
	require.ErrorIs(t, c.Burn(bob, alice, weiT(1)), ErrUnauthorized)
}

func TestApproveOverwritesPriorValue(t *testing.T) {
	c, _ := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	spender := newTestAddr(t, 0x03)
	require.NoError(t, c.Approve(alice, spender, weiT(5)))
	require.Equal(t, weiT(5), c.Allowance(alice, spender))
	require.NoError(t, c.Approve(alice, spender, weiT(2)))
	require.Equal(t, weiT(2), c.Allowance(alice, spender))
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	spender := newTestAddr(t, 0x03)
	to := newTestAddr(t, 0x04)
	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, c.Approve(alice, spender, weiT(5)))
	require.NoError(t, c.TransferFrom(spender, alice, to, weiT(3)))
	require.Equal(t, weiT(2), c.Allowance(alice, spender))
	require.Equal(t, weiT(3), c.BalanceOf(to))

	require.ErrorIs(t, c.TransferFrom(spender, alice, to, weiT(3)), ErrInsufficientAllowance)
}

func TestZeroAmountRejected(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)
	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(10)))
	require.ErrorIs(t, c.Transfer(alice, bob, big.NewInt(0)), ErrZeroAmount)
	require.ErrorIs(t, c.Mint(admin, bob, big.NewInt(0)), ErrZeroAmount)
	require.ErrorIs(t, c.Burn(alice, alice, big.NewInt(0)), ErrZeroAmount)
}

func TestPausedBlocksTransfers(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)
	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, c.SetPaused(admin, true))
	require.ErrorIs(t, c.Transfer(alice, bob, weiT(1)), ErrPaused)
}

func TestFrozenAccountBlocksTransfer(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)
	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, c.Freeze(admin, alice))
	require.ErrorIs(t, c.Transfer(alice, bob, weiT(1)), ErrFrozen)
	require.NoError(t, c.Unfreeze(admin, alice))
	require.NoError(t, c.Transfer(alice, bob, weiT(1)))
}

func TestTransferCapEnforced(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)
	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, c.SetTransferCap(admin, weiT(1)))
	require.ErrorIs(t, c.Transfer(alice, bob, weiT(2)), ErrCapExceeded)
	require.NoError(t, c.Transfer(alice, bob, weiT(1)))
}

func TestDailyCapRollsOverByDay(t *testing.T) {
	c, admin := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)
	require.NoError(t, c.MintToBootstrap(admin, alice, weiT(10)))
	require.NoError(t, c.SetDailyCap(admin, weiT(3)))

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.SetNowFunc(func() time.Time { return day })

	require.NoError(t, c.Transfer(alice, bob, weiT(2)))
	require.ErrorIs(t, c.Transfer(alice, bob, weiT(2)), ErrCapExceeded)

	c.SetNowFunc(func() time.Time { return day.Add(25 * time.Hour) })
	require.NoError(t, c.Transfer(alice, bob, weiT(2)))
}

func TestInsufficientBalance(t *testing.T) {
	c, _ := newTestContract(t)
	alice := newTestAddr(t, 0x02)
	bob := newTestAddr(t, 0x03)
	require.ErrorIs(t, c.Transfer(alice, bob, weiT(1)), ErrInsufficientBalance)
}
