package replaycache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "replay"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMarkIfAbsentFirstTimeSucceeds(t *testing.T) {
	c := openTest(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	observed, err := c.MarkIfAbsent(RewardKey(1, "der1alice"), now)
	require.NoError(t, err)
	require.True(t, observed.Equal(now))
}

func TestMarkIfAbsentSecondTimeFails(t *testing.T) {
	c := openTest(t)
	key := RewardKey(1, "der1alice")
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.MarkIfAbsent(key, first)
	require.NoError(t, err)

	second := first.Add(time.Hour)
	observed, err := c.MarkIfAbsent(key, second)
	require.ErrorIs(t, err, ErrAlreadySeen)
	require.True(t, observed.Equal(first))
}

func TestSeen(t *testing.T) {
	c := openTest(t)
	key := RewardKey(2, "der1bob")
	seen, err := c.Seen(key)
	require.NoError(t, err)
	require.False(t, seen)

	_, err = c.MarkIfAbsent(key, time.Now())
	require.NoError(t, err)

	seen, err = c.Seen(key)
	require.NoError(t, err)
	require.True(t, seen)
}
