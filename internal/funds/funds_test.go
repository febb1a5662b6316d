package funds

import (
	"math"
	"testing"

	"github.com/tokenized/voting-contract/internal/platform/state"
	"github.com/tokenized/voting-contract/internal/platform/tests"
	"github.com/tokenized/voting-contract/internal/rejections"
)

func TestCommission(t *testing.T) {
	tt := []struct {
		name    string
		balance uint64
		percent uint64
		want    uint64
	}{
		{"three votes", 3000000, 10, 300000},
		{"zero", 0, 10, 0},
		{"floor", 99, 10, 9},
		{"small", 9, 10, 0},
		{"none", 5000, 0, 0},
		{"all", 5000, 100, 5000},
		{"max", math.MaxUint64, 10, math.MaxUint64 / 10},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := Commission(tc.balance, tc.percent); got != tc.want {
				t.Errorf("\t%s\tGot %d, want %d", tests.Failed, got, tc.want)
			}
		})
	}
}

func TestValidatePercent(t *testing.T) {
	if err := ValidatePercent(100); err != nil {
		t.Errorf("\t%s\tRejected 100 : %v", tests.Failed, err)
	}
	if err := ValidatePercent(101); err == nil {
		t.Errorf("\t%s\tAccepted 101", tests.Failed)
	}
}

func TestPayout(t *testing.T) {
	p := &state.Poll{
		Name: "cities",
		Candidates: []*state.Candidate{
			{Name: "Astana", PayoutAddress: "astana", VoteCount: 1},
			{Name: "Almaty", PayoutAddress: "almaty", VoteCount: 2},
		},
		Status:  state.StatusClosedHasWinner,
		Winner:  1,
		Balance: 3000000,
	}

	payout := PlanPayout(p, 10)
	if payout.To != "almaty" || payout.Amount != 2700000 || payout.Commission != 300000 {
		t.Fatalf("\t%s\tUnexpected payout : %+v", tests.Failed, payout)
	}
	if payout.Amount+payout.Commission != p.Balance {
		t.Fatalf("\t%s\tPayout does not cover the balance", tests.Failed)
	}

	ApplyPayout(p, payout)
	if p.Balance != 0 || p.CommissionReserve != 300000 {
		t.Fatalf("\t%s\tGot balance %d reserve %d", tests.Failed, p.Balance, p.CommissionReserve)
	}

	amount, err := PlanWithdrawal(p)
	if err != nil {
		t.Fatalf("\t%s\tFailed to plan withdrawal : %v", tests.Failed, err)
	}
	if amount != 300000 {
		t.Errorf("\t%s\tGot withdrawal %d, want %d", tests.Failed, amount, 300000)
	}

	ApplyWithdrawal(p)
	if _, err := PlanWithdrawal(p); !rejections.Is(err, rejections.ErrZeroCommission) {
		t.Errorf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrZeroCommission)
	}
}

func TestPlanWithdrawal_Open(t *testing.T) {
	p := &state.Poll{Status: state.StatusOpen, CommissionReserve: 10}

	if _, err := PlanWithdrawal(p); !rejections.Is(err, rejections.ErrPollNotClosed) {
		t.Errorf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrPollNotClosed)
	}
}
