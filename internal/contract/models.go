package contract

import (
	"time"

	"github.com/tokenized/voting-contract/internal/platform/config"
)

// Config holds the terms of a voting contract.
type Config struct {
	// VoteCost is the minimum payment accepted with a vote.
	VoteCost uint64

	// CommissionPercent of a poll balance is reserved for the administrator
	// when a winner is paid.
	CommissionPercent uint64

	// VotingPeriod is the time from creation to the end of a poll.
	VotingPeriod time.Duration

	// StrictClose rejects closing an already closed poll instead of
	// returning the recorded status.
	StrictClose bool

	// AllowEmptyPolls permits polls without candidates.
	AllowEmptyPolls bool
}

// DefaultConfig returns the standard terms: 0.01 per vote, 10% commission and
// a 72 hour voting period.
func DefaultConfig() Config {
	return Config{
		VoteCost:          1000000,
		CommissionPercent: 10,
		VotingPeriod:      72 * time.Hour,
	}
}

// NewConfig returns the contract terms from the runtime configuration.
func NewConfig(cfg *config.Config) Config {
	return Config{
		VoteCost:          cfg.Contract.VoteCost,
		CommissionPercent: cfg.Contract.CommissionPercent,
		VotingPeriod:      cfg.Contract.VotingPeriod,
		StrictClose:       cfg.Contract.StrictClose,
		AllowEmptyPolls:   cfg.Contract.AllowEmptyPolls,
	}
}
