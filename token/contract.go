// Package token implements the fungible balance ledger: role-gated
// mint/burn, an admin-controlled freeze list, per-transfer and
// per-day-per-account caps, and a pause switch. The balance/allowance
// shape follows the deleted native/bank ledger, and it reuses
// native/common's pause guard and rolling quota counter verbatim.
package token

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"dergrid/core/events"
	"dergrid/core/types"
	"dergrid/crypto"
	"dergrid/native/common"
	"dergrid/observability/metrics"
)

// bigFloat64 approximates a base-unit amount as a float64 for Prometheus
// gauges/counters; these metrics are informational dashboards, not a
// source of truth, so the precision loss at wei scale is acceptable.
func bigFloat64(amount *big.Int) float64 {
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}

// Contract is the Token state machine. The zero value is not usable; call
// NewContract.
type Contract struct {
	mu sync.RWMutex

	decimals uint8
	admin    crypto.Address

	balances   map[string]*big.Int
	allowances map[string]*big.Int

	minters  map[string]bool
	burners  map[string]bool
	freezers map[string]bool
	frozen   map[string]bool

	paused bool

	transferCap *big.Int // nil = unlimited
	dailyCap    *big.Int // nil = unlimited
	quota       *memQuotaStore

	totalMinted *big.Int
	totalBurned *big.Int

	nowFunc func() time.Time
	logger  *slog.Logger
	emitter events.Emitter
}

const quotaModule = "token.daily_transfer"

// NewContract constructs an empty ledger with no initial supply. Admin is
// fixed at construction: there is no runtime setter that changes it, so a
// host that wants Governance as admin passes Governance's address here.
func NewContract(admin crypto.Address, decimals uint8, transferCap, dailyCap *big.Int, logger *slog.Logger, emitter events.Emitter) *Contract {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Contract{
		decimals:    decimals,
		admin:       admin,
		balances:    make(map[string]*big.Int),
		allowances:  make(map[string]*big.Int),
		minters:     make(map[string]bool),
		burners:     make(map[string]bool),
		freezers:    make(map[string]bool),
		frozen:      make(map[string]bool),
		transferCap: cloneOrNil(transferCap),
		dailyCap:    cloneOrNil(dailyCap),
		quota:       newMemQuotaStore(),
		totalMinted: big.NewInt(0),
		totalBurned: big.NewInt(0),
		nowFunc:     func() time.Time { return time.Now().UTC() },
		logger:      logger,
		emitter:     emitter,
	}
}

// SetNowFunc overrides the contract's time source, for deterministic tests.
func (c *Contract) SetNowFunc(f func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFunc = f
}

func cloneOrNil(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func allowanceKey(owner, spender crypto.Address) string {
	return owner.String() + "|" + spender.String()
}

func (c *Contract) balanceOfLocked(addr crypto.Address) *big.Int {
	if b, ok := c.balances[addr.String()]; ok {
		return b
	}
	return big.NewInt(0)
}

// BalanceOf returns the account's current balance. Pure read, no side effects.
func (c *Contract) BalanceOf(addr crypto.Address) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return new(big.Int).Set(c.balanceOfLocked(addr))
}

// Allowance returns the amount spender may still transfer_from on owner's
// behalf. Pure read, no side effects.
func (c *Contract) Allowance(owner, spender crypto.Address) *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a, ok := c.allowances[allowanceKey(owner, spender)]; ok {
		return new(big.Int).Set(a)
	}
	return big.NewInt(0)
}

// SnapshotBalances returns a deep copy of every stored balance (including
// entries that have dropped to zero), keyed by
// address string. Governance uses this to capture vote weight as of
// proposal creation in one pass, rather than per-voter on first touch.
func (c *Contract) SnapshotBalances() map[string]*big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*big.Int, len(c.balances))
	for addr, bal := range c.balances {
		out[addr] = new(big.Int).Set(bal)
	}
	return out
}

// TotalSupply returns cumulative mint minus cumulative burn.
func (c *Contract) TotalSupply() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return new(big.Int).Sub(c.totalMinted, c.totalBurned)
}

// Decimals returns the fixed-point decimals configured at construction.
func (c *Contract) Decimals() uint8 { return c.decimals }

func (c *Contract) isPausedView(string) bool {
	return c.paused
}

type pauseView struct{ c *Contract }

func (p pauseView) IsPaused(module string) bool { return p.c.isPausedView(module) }

func (c *Contract) checkPaused() error {
	if err := common.Guard(pauseView{c}, "token"); err != nil {
		return ErrPaused
	}
	return nil
}

func (c *Contract) emit(evt types.Event) {
	c.emitter.Emit(evt)
}

func (c *Contract) dayBucket() uint64 {
	return uint64(c.nowFunc().Unix() / 86400)
}

// Transfer moves amount from caller to to, subject to pause, freeze,
// per-transfer cap, and rolling daily cap checks.
func (c *Contract) Transfer(caller, to crypto.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transferLocked(caller, to, amount, "transfer")
}

func (c *Contract) transferLocked(from, to crypto.Address, amount *big.Int, kind string) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if err := c.checkPaused(); err != nil {
		return err
	}
	if c.frozen[from.String()] || c.frozen[to.String()] {
		c.emit(newSecurityViolationEvent(from.String(), "transfer:frozen"))
		metrics.Token().ObserveSecurityViolation("transfer:frozen")
		return ErrFrozen
	}
	if c.transferCap != nil && amount.Cmp(c.transferCap) > 0 {
		return ErrCapExceeded
	}
	bal := c.balanceOfLocked(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := c.applyDailyCap(from, amount); err != nil {
		return err
	}
	newFrom := new(big.Int).Sub(bal, amount)
	newTo := new(big.Int).Add(c.balanceOfLocked(to), amount)
	c.balances[from.String()] = newFrom
	c.balances[to.String()] = newTo
	c.emit(newTransferEvent(from.String(), to.String(), amount.String()))
	metrics.Token().ObserveTransfer(kind)
	return nil
}

func (c *Contract) applyDailyCap(from crypto.Address, amount *big.Int) error {
	if c.dailyCap == nil {
		return nil
	}
	if !amount.IsUint64() {
		return ErrOverflow
	}
	q := common.Quota{MaxNHBPerEpoch: c.dailyCap.Uint64(), EpochSeconds: 86400}
	_, err := common.Apply(c.quota, quotaModule, c.dayBucket(), from.Bytes(), q, 0, amount.Uint64())
	switch err {
	case nil:
		return nil
	case common.ErrQuotaNHBCapExceeded:
		return ErrCapExceeded
	case common.ErrQuotaCounterOverflow:
		return ErrOverflow
	default:
		return err
	}
}

// TransferFrom moves amount from owner to to on behalf of caller, checking
// and decrementing the caller's allowance over owner's funds first.
func (c *Contract) TransferFrom(caller, owner, to crypto.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	key := allowanceKey(owner, caller)
	allowance, ok := c.allowances[key]
	if !ok {
		allowance = big.NewInt(0)
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := c.transferLocked(owner, to, amount, "transfer_from"); err != nil {
		return err
	}
	c.allowances[key] = new(big.Int).Sub(allowance, amount)
	return nil
}

// Approve sets spender's allowance over caller's funds to amount,
// overwriting any prior value (no addition, avoiding the classic
// approve-race).
func (c *Contract) Approve(caller, spender crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrZeroAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowances[allowanceKey(caller, spender)] = new(big.Int).Set(amount)
	c.emit(newApprovalEvent(caller.String(), spender.String(), amount.String()))
	return nil
}

// Mint creates amount new tokens for to. Role-gated on Minters.
func (c *Contract) Mint(caller, to crypto.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if !c.minters[caller.String()] {
		c.emit(newSecurityViolationEvent(caller.String(), "mint"))
		metrics.Token().ObserveSecurityViolation("mint")
		return ErrUnauthorized
	}
	if err := c.checkPaused(); err != nil {
		return err
	}
	if c.frozen[to.String()] {
		return ErrFrozen
	}
	c.balances[to.String()] = new(big.Int).Add(c.balanceOfLocked(to), amount)
	c.totalMinted = new(big.Int).Add(c.totalMinted, amount)
	c.emit(newMintEvent(to.String(), amount.String()))
	c.emit(newTransferEvent(zeroAddrLabel, to.String(), amount.String()))
	metrics.Token().ObserveMint(caller.String(), bigFloat64(amount))
	metrics.Token().SetTotalSupply(bigFloat64(new(big.Int).Sub(c.totalMinted, c.totalBurned)))
	return nil
}

// Burn destroys amount tokens from from. Role-gated on Burners OR
// caller==from (self-burn always permitted).
func (c *Contract) Burn(caller, from crypto.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if !c.burners[caller.String()] && caller.String() != from.String() {
		c.emit(newSecurityViolationEvent(caller.String(), "burn"))
		metrics.Token().ObserveSecurityViolation("burn")
		return ErrUnauthorized
	}
	bal := c.balanceOfLocked(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	c.balances[from.String()] = new(big.Int).Sub(bal, amount)
	c.totalBurned = new(big.Int).Add(c.totalBurned, amount)
	c.emit(newBurnEvent(from.String(), amount.String()))
	c.emit(newTransferEvent(from.String(), zeroAddrLabel, amount.String()))
	metrics.Token().ObserveBurn(caller.String(), bigFloat64(amount))
	metrics.Token().SetTotalSupply(bigFloat64(new(big.Int).Sub(c.totalMinted, c.totalBurned)))
	return nil
}

const zeroAddrLabel = "<zero>"

// SetPaused toggles the pause flag. Admin-gated.
func (c *Contract) SetPaused(caller crypto.Address, paused bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	c.paused = paused
	c.emit(newPausedEvent(paused, caller.String()))
	return nil
}

func (c *Contract) requireAdminLocked(caller crypto.Address) error {
	if caller.String() != c.admin.String() {
		c.emit(newSecurityViolationEvent(caller.String(), "admin-op"))
		metrics.Token().ObserveSecurityViolation("admin-op")
		return ErrUnauthorized
	}
	return nil
}

// AddMinter grants the Minter role to target. Admin-gated.
func (c *Contract) AddMinter(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	if c.minters[target.String()] {
		return ErrAlreadyMinter
	}
	c.minters[target.String()] = true
	c.emit(newRoleChangedEvent("minter", target.String(), true, caller.String()))
	return nil
}

// RemoveMinter revokes the Minter role from target. Admin-gated.
func (c *Contract) RemoveMinter(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	if !c.minters[target.String()] {
		return ErrNotMinter
	}
	delete(c.minters, target.String())
	c.emit(newRoleChangedEvent("minter", target.String(), false, caller.String()))
	return nil
}

// AddBurner grants the Burner role to target. Admin-gated.
func (c *Contract) AddBurner(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	if c.burners[target.String()] {
		return ErrAlreadyBurner
	}
	c.burners[target.String()] = true
	c.emit(newRoleChangedEvent("burner", target.String(), true, caller.String()))
	return nil
}

// RemoveBurner revokes the Burner role from target. Admin-gated.
func (c *Contract) RemoveBurner(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	if !c.burners[target.String()] {
		return ErrNotBurner
	}
	delete(c.burners, target.String())
	c.emit(newRoleChangedEvent("burner", target.String(), false, caller.String()))
	return nil
}

// Freeze prevents account from sending or receiving transfers. Admin or a
// Freezer may call this.
func (c *Contract) Freeze(caller, account crypto.Address) error {
	return c.setFrozen(caller, account, true)
}

// Unfreeze reverses Freeze.
func (c *Contract) Unfreeze(caller, account crypto.Address) error {
	return c.setFrozen(caller, account, false)
}

func (c *Contract) setFrozen(caller, account crypto.Address, frozen bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if caller.String() != c.admin.String() && !c.freezers[caller.String()] {
		c.emit(newSecurityViolationEvent(caller.String(), "freeze"))
		metrics.Token().ObserveSecurityViolation("freeze")
		return ErrUnauthorized
	}
	if frozen {
		c.frozen[account.String()] = true
	} else {
		delete(c.frozen, account.String())
	}
	c.emit(newFrozenEvent(account.String(), frozen, caller.String()))
	return nil
}

// AddFreezer grants the Freezer role to target. Admin-gated.
func (c *Contract) AddFreezer(caller, target crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	c.freezers[target.String()] = true
	c.emit(newRoleChangedEvent("freezer", target.String(), true, caller.String()))
	return nil
}

// IsFrozen reports whether account is currently frozen.
func (c *Contract) IsFrozen(account crypto.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen[account.String()]
}

// IsMinter reports whether addr currently holds the Minter role.
func (c *Contract) IsMinter(addr crypto.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.minters[addr.String()]
}

// IsBurner reports whether addr currently holds the Burner role.
func (c *Contract) IsBurner(addr crypto.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.burners[addr.String()]
}

// SetTransferCap updates the per-transfer cap. Admin-gated. Pass nil to
// remove the cap.
func (c *Contract) SetTransferCap(caller crypto.Address, cap *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	c.transferCap = cloneOrNil(cap)
	return nil
}

// SetDailyCap updates the rolling per-account daily transfer cap.
// Admin-gated. Pass nil to remove the cap.
func (c *Contract) SetDailyCap(caller crypto.Address, cap *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	c.dailyCap = cloneOrNil(cap)
	return nil
}

// Paused reports the current pause state.
func (c *Contract) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// MintToBootstrap seeds an initial balance outside of the Minter-role flow.
// It is intended for deploy-time genesis allocation only, e.g. deploying
// Token with total_supply = 1,000,000 T minted to a single founding
// account. Admin-gated and only usable while total supply is still zero, so it
// cannot be used to bypass Mint's role gate once the ledger is live.
func (c *Contract) MintToBootstrap(caller, to crypto.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(caller); err != nil {
		return err
	}
	if new(big.Int).Sub(c.totalMinted, c.totalBurned).Sign() != 0 {
		return fmt.Errorf("token: bootstrap mint only allowed before any supply exists")
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	c.balances[to.String()] = new(big.Int).Add(c.balanceOfLocked(to), amount)
	c.totalMinted = new(big.Int).Add(c.totalMinted, amount)
	c.emit(newMintEvent(to.String(), amount.String()))
	c.emit(newTransferEvent(zeroAddrLabel, to.String(), amount.String()))
	metrics.Token().SetTotalSupply(bigFloat64(new(big.Int).Sub(c.totalMinted, c.totalBurned)))
	return nil
}
