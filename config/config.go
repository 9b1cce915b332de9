// Package config loads and validates the deploy-time configuration shared
// by the four contracts, using a Load/createDefault TOML pattern that
// persists a generated default on first run. The schema is specific to
// this protocol: token caps, registry staking floor, grid-service
// windows, and governance policy.
package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"
)

// Global bundles every contract's runtime-configurable parameters that must
// be set at deploy time (and may later be overridden by Governance
// proposals once the chain is live).
type Global struct {
	DataDir      string      `toml:"DataDir"`
	AdminKeyHex  string      `toml:"AdminKeyHex"`
	Token        Token       `toml:"Token"`
	Registry     Registry    `toml:"Registry"`
	GridService  GridService `toml:"GridService"`
	Governance   Governance  `toml:"Governance"`
}

// Token mirrors the constructor-time knobs for the Token contract.
type Token struct {
	Decimals          uint8  `toml:"Decimals"`
	TransferCapWei    string `toml:"TransferCapWei"`
	DailyCapWei       string `toml:"DailyCapWei"`
}

// Registry mirrors the constructor-time knobs for the Registry contract.
type Registry struct {
	MinStakeWei          string `toml:"MinStakeWei"`
	InitialReputation     uint16 `toml:"InitialReputation"`
	ReputationThreshold   uint16 `toml:"ReputationThreshold"`
	SlashReputationPenalty uint16 `toml:"SlashReputationPenalty"`
}

// GridService mirrors the constructor-time knobs for the GridService
// contract.
type GridService struct {
	DefaultCompensationRateWei string `toml:"DefaultCompensationRateWei"`
	MinCompensationRateWei     string `toml:"MinCompensationRateWei"`
	MaxDurationMinutes         uint64 `toml:"MaxDurationMinutes"`
	MaxTargetReductionKW       uint64 `toml:"MaxTargetReductionKW"`
	VerificationWindowSeconds  uint64 `toml:"VerificationWindowSeconds"`
	MinActualRatioBps          uint64 `toml:"MinActualRatioBps"`
	MaxAutoTriggerRules        uint64 `toml:"MaxAutoTriggerRules"`
}

// Governance mirrors the constructor-time knobs for the Governance contract.
type Governance struct {
	QuorumBps           uint64 `toml:"QuorumBps"`
	PassThresholdBps    uint64 `toml:"PassThresholdBps"`
	VotingPeriodSeconds uint64 `toml:"VotingPeriodSeconds"`
	TimelockSeconds     uint64 `toml:"TimelockSeconds"`
	MinProposalStakeWei string `toml:"MinProposalStakeWei"`
	MaxExecutionAttempts uint64 `toml:"MaxExecutionAttempts"`
}

// Load reads the configuration from path, writing a conservative default
// file if none exists yet.
func Load(path string) (*Global, error) {
	cfg := &Global{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Global, error) {
	cfg := &Global{
		DataDir: "./dergrid-data",
		Token: Token{
			Decimals:       18,
			TransferCapWei: weiString(100_000),
			DailyCapWei:    weiString(1_000_000),
		},
		Registry: Registry{
			MinStakeWei:            weiString(1),
			InitialReputation:       500,
			ReputationThreshold:     200,
			SlashReputationPenalty:  100,
		},
		GridService: GridService{
			DefaultCompensationRateWei: weiString(1),
			MinCompensationRateWei:     "0",
			MaxDurationMinutes:         24 * 60,
			MaxTargetReductionKW:       1_000_000,
			VerificationWindowSeconds:  24 * 60 * 60,
			MinActualRatioBps:          5_000,
			MaxAutoTriggerRules:        64,
		},
		Governance: Governance{
			QuorumBps:            5_000,
			PassThresholdBps:     5_000,
			VotingPeriodSeconds:  3 * 24 * 60 * 60,
			TimelockSeconds:      2 * 24 * 60 * 60,
			MinProposalStakeWei:  weiString(10),
			MaxExecutionAttempts: 3,
		},
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create default %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: encode default %s: %w", path, err)
	}
	return cfg, nil
}

func weiString(whole int64) string {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(whole), one).String()
}
