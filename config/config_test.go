package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dergrid.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint8(18), cfg.Token.Decimals)
	require.NoError(t, Validate(cfg))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Token.TransferCapWei, reloaded.Token.TransferCapWei)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &Global{DataDir: "d"}
	require.Error(t, Validate(cfg))

	cfg.Token.TransferCapWei = "not-a-number"
	cfg.Token.DailyCapWei = "1"
	cfg.Registry.MinStakeWei = "1"
	cfg.GridService.DefaultCompensationRateWei = "1"
	cfg.GridService.MinCompensationRateWei = "0"
	cfg.GridService.MaxDurationMinutes = 1
	cfg.GridService.MaxAutoTriggerRules = 1
	cfg.Governance.QuorumBps = 5000
	cfg.Governance.PassThresholdBps = 5000
	cfg.Governance.VotingPeriodSeconds = 1
	cfg.Governance.MinProposalStakeWei = "1"
	cfg.Governance.MaxExecutionAttempts = 1
	require.Error(t, Validate(cfg))

	cfg.Token.TransferCapWei = "1000"
	require.NoError(t, Validate(cfg))

	cfg.Governance.QuorumBps = 0
	require.Error(t, Validate(cfg))
}
