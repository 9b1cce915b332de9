package reentrancy

import (
	"testing"

	"github.com/stretchr/testify/require"

	commonerrors "dergrid/core/errors"
)

func TestGuardBlocksReentrantEnter(t *testing.T) {
	var g Guard
	release, err := g.Enter()
	require.NoError(t, err)
	require.True(t, g.Held())

	_, err = g.Enter()
	require.ErrorIs(t, err, commonerrors.ErrReentrancy)

	release()
	require.False(t, g.Held())
}

func TestGuardReleasedOnErrorPath(t *testing.T) {
	var g Guard
	func() {
		release, err := g.Enter()
		require.NoError(t, err)
		defer release()
		// simulate an operation that fails after acquiring the lock
	}()
	require.False(t, g.Held())

	// a fresh Enter after the deferred release succeeds
	release, err := g.Enter()
	require.NoError(t, err)
	release()
}
