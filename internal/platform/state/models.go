package state

import (
	"time"
)

// PollStatus is the lifecycle status of a poll. Status only moves from Open to
// one of the closed values and never back.
type PollStatus uint8

// Closed values keep the numbering of the original contract events.
const (
	StatusClosedNoWinner  PollStatus = 0
	StatusClosedHasWinner PollStatus = 1
	StatusOpen            PollStatus = 2
	StatusClosedTie       PollStatus = 4
)

// String returns the name of the status.
func (s PollStatus) String() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusClosedNoWinner:
		return "ClosedNoWinner"
	case StatusClosedHasWinner:
		return "ClosedHasWinner"
	case StatusClosedTie:
		return "ClosedTie"
	}

	return "Unknown"
}

// IsClosed returns true for every status other than Open.
func (s PollStatus) IsClosed() bool {
	return s != StatusOpen
}

// Contract is the complete state of a voting contract.
type Contract struct {
	Administrator string    `json:"Administrator"`
	Address       string    `json:"Address"`
	CreatedAt     time.Time `json:"CreatedAt"`
	UpdatedAt     time.Time `json:"UpdatedAt"`

	// Voters is the registry in admission order.
	Voters []string `json:"Voters,omitempty"`

	// Polls in creation order.
	Polls []*Poll `json:"Polls,omitempty"`
}

// Candidate is a choice in a poll. Its identity is its index in the poll.
type Candidate struct {
	Name          string `json:"Name"`
	PayoutAddress string `json:"PayoutAddress"`
	VoteCount     uint64 `json:"VoteCount"`
}

// Poll is a named, time-boxed contest with its fund pool.
type Poll struct {
	Name       string       `json:"Name"`
	Candidates []*Candidate `json:"Candidates"`
	CreatedAt  time.Time    `json:"CreatedAt"`
	EndTime    time.Time    `json:"EndTime"`
	Status     PollStatus   `json:"Status"`
	ClosedAt   time.Time    `json:"ClosedAt,omitempty"`

	// Balance is the accepted payments not yet disbursed.
	Balance uint64 `json:"Balance"`

	// CommissionReserve is retained for the administrator at close.
	CommissionReserve uint64 `json:"CommissionReserve"`

	// Winner is the index of the winning candidate when Status is
	// StatusClosedHasWinner.
	Winner int `json:"Winner"`

	// Voters that already voted, in voting order.
	Voters []string `json:"Voters,omitempty"`
}

// Copy returns a deep copy of the poll.
func (p *Poll) Copy() *Poll {
	result := *p

	result.Candidates = make([]*Candidate, len(p.Candidates))
	for i, c := range p.Candidates {
		cc := *c
		result.Candidates[i] = &cc
	}

	result.Voters = make([]string, len(p.Voters))
	copy(result.Voters, p.Voters)

	return &result
}

// TotalVotes returns the sum of the candidates' vote counts.
func (p *Poll) TotalVotes() uint64 {
	total := uint64(0)
	for _, c := range p.Candidates {
		total += c.VoteCount
	}
	return total
}
