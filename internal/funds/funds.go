package funds

import (
	"github.com/tokenized/voting-contract/internal/platform/state"
	"github.com/tokenized/voting-contract/internal/rejections"

	"github.com/pkg/errors"
)

// ErrInvalidPercent is returned for a commission percent above 100.
var ErrInvalidPercent = errors.New("Commission percent must be between 0 and 100")

// Commission returns floor(balance * percent / 100) without overflowing.
func Commission(balance, percent uint64) uint64 {
	return balance/100*percent + (balance%100)*percent/100
}

// ValidatePercent checks a commission percent.
func ValidatePercent(percent uint64) error {
	if percent > 100 {
		return errors.Wrapf(ErrInvalidPercent, "%d", percent)
	}
	return nil
}

// Payout is the disbursement of a poll balance at close.
type Payout struct {
	To         string
	Amount     uint64
	Commission uint64
}

// PlanPayout splits the poll balance between the winner and the commission
// reserve. The winner receives everything not kept as commission.
func PlanPayout(p *state.Poll, percent uint64) Payout {
	commission := Commission(p.Balance, percent)

	return Payout{
		To:         p.Candidates[p.Winner].PayoutAddress,
		Amount:     p.Balance - commission,
		Commission: commission,
	}
}

// ApplyPayout records a payout on the poll. The whole balance leaves the
// poll, part to the winner and part to the reserve.
func ApplyPayout(p *state.Poll, payout Payout) {
	p.Balance = 0
	p.CommissionReserve = payout.Commission
}

// PlanWithdrawal returns the reserve the administrator can withdraw.
func PlanWithdrawal(p *state.Poll) (uint64, error) {
	if !p.Status.IsClosed() {
		return 0, rejections.ErrPollNotClosed
	}
	if p.CommissionReserve == 0 {
		return 0, rejections.ErrZeroCommission
	}

	return p.CommissionReserve, nil
}

// ApplyWithdrawal zeroes the reserve.
func ApplyWithdrawal(p *state.Poll) {
	p.CommissionReserve = 0
}
