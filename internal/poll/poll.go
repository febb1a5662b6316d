package poll

import (
	"time"

	"github.com/tokenized/voting-contract/internal/platform/state"
	"github.com/tokenized/voting-contract/internal/rejections"
)

// Result is the outcome of a closed poll.
type Result struct {
	Status    state.PollStatus `json:"status"`
	HasWinner bool             `json:"has_winner"`
	Name      string           `json:"name,omitempty"`
	Votes     uint64           `json:"votes"`
}

// CheckVote validates a vote against a poll. voted reports whether the voter
// already has a ballot in the poll. Registration of the voter is checked by
// the caller before this.
func CheckVote(p *state.Poll, voted bool, candidate int, payment, cost uint64,
	now time.Time) error {

	if p.Status.IsClosed() {
		return rejections.ErrPollClosed
	}
	if !now.Before(p.EndTime) {
		return rejections.ErrPastDeadline
	}
	if payment < cost {
		return rejections.ErrInsufficientPay
	}
	if voted {
		return rejections.ErrAlreadyVoted
	}
	if candidate < 0 || candidate >= len(p.Candidates) {
		return rejections.ErrCandidateNotFound
	}

	return nil
}

// CastVote records a checked vote and its payment on the poll.
func CastVote(p *state.Poll, voter string, candidate int, payment uint64) {
	p.Candidates[candidate].VoteCount++
	p.Voters = append(p.Voters, voter)
	p.Balance += payment
}

// CheckClose returns an error when an open poll cannot be closed yet.
func CheckClose(p *state.Poll, now time.Time) error {
	if p.Status.IsClosed() {
		return rejections.ErrPollClosed
	}
	if now.Before(p.EndTime) {
		return rejections.ErrNotYetEligible
	}
	return nil
}

// Close resolves the outcome of the poll and records it. Funds are not
// touched.
func Close(p *state.Poll, now time.Time) state.PollStatus {
	p.ClosedAt = now
	p.Winner = -1

	var max uint64
	leaders := 0
	for i, c := range p.Candidates {
		switch {
		case c.VoteCount > max:
			max = c.VoteCount
			leaders = 1
			p.Winner = i
		case c.VoteCount == max && max > 0:
			leaders++
		}
	}

	switch {
	case max == 0:
		p.Status = state.StatusClosedNoWinner
		p.Winner = -1
	case leaders > 1:
		p.Status = state.StatusClosedTie
		p.Winner = -1
	default:
		p.Status = state.StatusClosedHasWinner
	}

	return p.Status
}

// Winner returns the result of a closed poll.
func Winner(p *state.Poll) (*Result, error) {
	if !p.Status.IsClosed() {
		return nil, rejections.ErrPollNotClosed
	}

	result := &Result{Status: p.Status}
	if p.Status != state.StatusClosedHasWinner {
		return result, nil
	}

	c := p.Candidates[p.Winner]
	result.HasWinner = true
	result.Name = c.Name
	result.Votes = c.VoteCount
	return result, nil
}
