// Package reentrancy implements a single-call exclusion lock: a contract
// that makes an external call (Registry -> Token, GridService ->
// Token/Registry, Governance -> any of the three) guards the
// call so that a reentrant invocation of the same contract fails fast
// instead of observing half-updated state. The lock is per-contract, not
// per-account: native/common.Guard's pause check is a read-only
// predicate, generalised here into an acquire/release pair with
// guaranteed release on every exit path.
package reentrancy

import (
	"sync"

	commonerrors "dergrid/core/errors"
)

// Guard is a scoped, non-reentrant lock. The zero value is ready to use.
type Guard struct {
	mu     sync.Mutex
	locked bool
}

// Enter acquires the lock, returning ErrReentrancy if it is already held.
// Callers MUST invoke the returned release function exactly once, typically
// via defer, regardless of whether the guarded operation subsequently fails.
func (g *Guard) Enter() (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locked {
		return func() {}, commonerrors.ErrReentrancy
	}
	g.locked = true
	return g.release, nil
}

func (g *Guard) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locked = false
}

// Held reports whether the guard is currently held. Intended for
// observability/diagnostics only; callers must not branch on this value to
// make correctness decisions (use Enter's returned error instead).
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}
