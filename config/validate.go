package config

import (
	"fmt"
	"math/big"
)

// Validate checks that a loaded configuration is internally consistent
// before it is handed to the contract constructors.
func Validate(cfg *Global) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if err := validateBigIntField("Token.TransferCapWei", cfg.Token.TransferCapWei); err != nil {
		return err
	}
	if err := validateBigIntField("Token.DailyCapWei", cfg.Token.DailyCapWei); err != nil {
		return err
	}
	if cfg.Token.Decimals > 36 {
		return fmt.Errorf("config: Token.Decimals %d is implausibly large", cfg.Token.Decimals)
	}

	if err := validateBigIntField("Registry.MinStakeWei", cfg.Registry.MinStakeWei); err != nil {
		return err
	}
	if cfg.Registry.InitialReputation > 1000 {
		return fmt.Errorf("config: Registry.InitialReputation %d exceeds max 1000", cfg.Registry.InitialReputation)
	}
	if cfg.Registry.ReputationThreshold > 1000 {
		return fmt.Errorf("config: Registry.ReputationThreshold %d exceeds max 1000", cfg.Registry.ReputationThreshold)
	}
	if cfg.Registry.SlashReputationPenalty > 1000 {
		return fmt.Errorf("config: Registry.SlashReputationPenalty %d exceeds max 1000", cfg.Registry.SlashReputationPenalty)
	}

	if err := validateBigIntField("GridService.DefaultCompensationRateWei", cfg.GridService.DefaultCompensationRateWei); err != nil {
		return err
	}
	if err := validateBigIntField("GridService.MinCompensationRateWei", cfg.GridService.MinCompensationRateWei); err != nil {
		return err
	}
	if cfg.GridService.MaxDurationMinutes == 0 {
		return fmt.Errorf("config: GridService.MaxDurationMinutes must be positive")
	}
	if cfg.GridService.MinActualRatioBps > 10_000 {
		return fmt.Errorf("config: GridService.MinActualRatioBps %d exceeds 10000 bps", cfg.GridService.MinActualRatioBps)
	}
	if cfg.GridService.MaxAutoTriggerRules == 0 {
		return fmt.Errorf("config: GridService.MaxAutoTriggerRules must be positive")
	}

	if cfg.Governance.QuorumBps == 0 || cfg.Governance.QuorumBps > 10_000 {
		return fmt.Errorf("config: Governance.QuorumBps %d out of range (0,10000]", cfg.Governance.QuorumBps)
	}
	if cfg.Governance.PassThresholdBps == 0 || cfg.Governance.PassThresholdBps > 10_000 {
		return fmt.Errorf("config: Governance.PassThresholdBps %d out of range (0,10000]", cfg.Governance.PassThresholdBps)
	}
	if cfg.Governance.VotingPeriodSeconds == 0 {
		return fmt.Errorf("config: Governance.VotingPeriodSeconds must be positive")
	}
	if err := validateBigIntField("Governance.MinProposalStakeWei", cfg.Governance.MinProposalStakeWei); err != nil {
		return err
	}
	if cfg.Governance.MaxExecutionAttempts == 0 {
		return fmt.Errorf("config: Governance.MaxExecutionAttempts must be positive")
	}
	return nil
}

func validateBigIntField(name, value string) error {
	if value == "" {
		return fmt.Errorf("config: %s must not be empty", name)
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return fmt.Errorf("config: %s is not a valid base-10 integer: %q", name, value)
	}
	if n.Sign() < 0 {
		return fmt.Errorf("config: %s must not be negative", name)
	}
	return nil
}
