package consensus

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/robolibs/blockit-sub001/blockiterr"
)

// PoAConfig tunes quorum sizing, proposal lifetime, and proposal rate
// limiting for a PoAConsensus instance.
type PoAConfig struct {
	InitialRequiredSignatures  uint32 `yaml:"initial_required_signatures"`
	MinimumRequiredSignatures  uint32 `yaml:"minimum_required_signatures"`
	MaxProposalsPerHour        uint32 `yaml:"max_proposals_per_hour"`
	MinSecondsBetweenProposals int64  `yaml:"min_seconds_between_proposals"`
	SignatureTimeoutMs         int64  `yaml:"signature_timeout_ms"`
	OnlineTimeoutMs            int64  `yaml:"online_timeout_ms"`
}

// DefaultPoAConfig returns the conservative defaults a small fleet
// starts from.
func DefaultPoAConfig() PoAConfig {
	return PoAConfig{
		InitialRequiredSignatures:  1,
		MinimumRequiredSignatures:  1,
		MaxProposalsPerHour:        10,
		MinSecondsBetweenProposals: 0,
		SignatureTimeoutMs:         300_000,
		OnlineTimeoutMs:            60_000,
	}
}

// LoadPoAConfig reads a YAML document at path into a PoAConfig seeded
// with DefaultPoAConfig's values, so a partial file only overrides what
// it sets.
func LoadPoAConfig(path string) (PoAConfig, error) {
	cfg := DefaultPoAConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return PoAConfig{}, blockiterr.NotInitialized("failed to read PoA config: " + err.Error())
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PoAConfig{}, blockiterr.DeserializationFailed("invalid PoA config: " + err.Error())
	}
	return cfg, nil
}
