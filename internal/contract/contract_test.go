package contract

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tokenized/voting-contract/internal/events"
	"github.com/tokenized/voting-contract/internal/ledger"
	"github.com/tokenized/voting-contract/internal/platform/state"
	"github.com/tokenized/voting-contract/internal/platform/tests"
	"github.com/tokenized/voting-contract/internal/poll"
	"github.com/tokenized/voting-contract/internal/rejections"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

const (
	voteCost    = 1000000   // 0.01
	voterFunds  = 100000000 // 1.00
	votingHours = 72
)

type harness struct {
	ctx      context.Context
	ledger   *ledger.Memory
	recorder *events.Recorder
	contract *Contract
	admin    btcutil.Address
	custody  btcutil.Address
	voters   []btcutil.Address
	wallets  []btcutil.Address
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T, cfg Config, voterCount int) *harness {
	t.Helper()

	h := &harness{
		ctx:      tests.Context(t),
		ledger:   ledger.NewMemoryWithClock(fixedClock),
		recorder: &events.Recorder{},
		admin:    tests.GenerateAddress(t),
		custody:  tests.GenerateAddress(t),
		voters:   tests.GenerateAddresses(t, voterCount),
		wallets:  tests.GenerateAddresses(t, 2),
	}

	var err error
	h.contract, err = New(h.ctx, cfg, h.ledger, h.recorder, h.admin, h.custody)
	if err != nil {
		t.Fatalf("\t%s\tFailed to create contract : %v", tests.Failed, err)
	}

	for _, voter := range h.voters {
		if _, err := h.ledger.Mint(h.ctx, voter.EncodeAddress(), voterFunds); err != nil {
			t.Fatalf("\t%s\tFailed to fund voter : %v", tests.Failed, err)
		}
	}

	if voterCount > 0 {
		if err := h.contract.AddVoters(h.ctx, h.admin, h.voters); err != nil {
			t.Fatalf("\t%s\tFailed to add voters : %v", tests.Failed, err)
		}
	}

	return h
}

func (h *harness) createCities(t *testing.T) {
	t.Helper()

	if err := h.contract.CreatePoll(h.ctx, h.admin, "cities", []string{"Astana", "Almaty"},
		h.wallets); err != nil {
		t.Fatalf("\t%s\tFailed to create poll : %v", tests.Failed, err)
	}
}

func (h *harness) vote(t *testing.T, voter int, candidate int) {
	t.Helper()

	if err := h.contract.Vote(h.ctx, h.voters[voter], "cities", candidate, voteCost); err != nil {
		t.Fatalf("\t%s\tFailed to vote : %v", tests.Failed, err)
	}
}

func (h *harness) endVoting() {
	h.ledger.Advance(votingHours * time.Hour)
}

func TestCities(t *testing.T) {
	defer tests.Recover(t)

	h := setup(t, DefaultConfig(), 3)
	h.createCities(t)

	h.vote(t, 0, 0)
	h.vote(t, 1, 1)
	h.vote(t, 2, 1)
	t.Logf("\t%s\tCast 3 votes", tests.Success)

	if got := h.contract.Balance(); got != 3*voteCost {
		t.Fatalf("\t%s\tGot balance %s, want %s", tests.Failed, tests.Amount(got),
			tests.Amount(3*voteCost))
	}

	h.endVoting()

	status, err := h.contract.ClosePoll(h.ctx, h.voters[0], "cities")
	if err != nil {
		t.Fatalf("\t%s\tFailed to close poll : %v", tests.Failed, err)
	}
	if status != state.StatusClosedHasWinner {
		t.Fatalf("\t%s\tGot status %s, want %s", tests.Failed, status, state.StatusClosedHasWinner)
	}
	t.Logf("\t%s\tClosed poll", tests.Success)

	result, err := h.contract.PollWinner(h.ctx, "cities")
	if err != nil {
		t.Fatalf("\t%s\tFailed to get winner : %v", tests.Failed, err)
	}
	want := &poll.Result{
		Status:    state.StatusClosedHasWinner,
		HasWinner: true,
		Name:      "Almaty",
		Votes:     2,
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("\t%s\tResult mismatch (-want +got):\n%s", tests.Failed, diff)
	}

	if got := h.ledger.Balance(h.wallets[1].EncodeAddress()); got != 2700000 {
		t.Errorf("\t%s\tGot winner payout %s, want %s", tests.Failed, tests.Amount(got),
			tests.Amount(2700000))
	}
	if got := h.ledger.Balance(h.wallets[0].EncodeAddress()); got != 0 {
		t.Errorf("\t%s\tLoser was paid %s", tests.Failed, tests.Amount(got))
	}
	if got := h.contract.Balance(); got != 300000 {
		t.Errorf("\t%s\tGot custody %s, want %s", tests.Failed, tests.Amount(got),
			tests.Amount(300000))
	}

	p, err := h.contract.Poll(h.ctx, "cities")
	if err != nil {
		t.Fatalf("\t%s\tFailed to get poll : %v", tests.Failed, err)
	}
	if p.Balance != 0 || p.CommissionReserve != 300000 {
		t.Errorf("\t%s\tGot balance %d reserve %d", tests.Failed, p.Balance, p.CommissionReserve)
	}

	amount, err := h.contract.WithdrawPollCommission(h.ctx, h.admin, "cities")
	if err != nil {
		t.Fatalf("\t%s\tFailed to withdraw commission : %v", tests.Failed, err)
	}
	if amount != 300000 {
		t.Errorf("\t%s\tGot commission %d, want %d", tests.Failed, amount, 300000)
	}
	if got := h.ledger.Balance(h.admin.EncodeAddress()); got != 300000 {
		t.Errorf("\t%s\tGot admin balance %s, want %s", tests.Failed, tests.Amount(got),
			tests.Amount(300000))
	}
	if got := h.contract.Balance(); got != 0 {
		t.Errorf("\t%s\tCustody not empty : %s", tests.Failed, tests.Amount(got))
	}
	t.Logf("\t%s\tWithdrew commission", tests.Success)

	if _, err := h.contract.WithdrawPollCommission(h.ctx, h.admin, "cities"); !rejections.Is(err,
		rejections.ErrZeroCommission) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrZeroCommission)
	}

	custody := h.custody.EncodeAddress()
	wantEvents := []events.Notification{
		events.VoterAdded{Address: h.voters[0].EncodeAddress()},
		events.VoterAdded{Address: h.voters[1].EncodeAddress()},
		events.VoterAdded{Address: h.voters[2].EncodeAddress()},
		events.PollCreated{Poll: "cities"},
		events.VoteCast{Poll: "cities", Candidate: 0},
		events.FundsReceived{Address: custody, Amount: voteCost},
		events.VoteCast{Poll: "cities", Candidate: 1},
		events.FundsReceived{Address: custody, Amount: voteCost},
		events.VoteCast{Poll: "cities", Candidate: 1},
		events.FundsReceived{Address: custody, Amount: voteCost},
		events.PollClosed{Poll: "cities", Status: state.StatusClosedHasWinner},
		events.CommissionWithdrawn{Poll: "cities", Amount: 300000},
	}
	if diff := cmp.Diff(wantEvents, h.recorder.Notifications()); diff != "" {
		t.Errorf("\t%s\tNotifications mismatch (-want +got):\n%s", tests.Failed, diff)
	}
}

func TestVote_Rejections(t *testing.T) {
	defer tests.Recover(t)

	tt := []struct {
		name      string
		prepare   func(t *testing.T, h *harness)
		voter     func(h *harness) btcutil.Address
		poll      string
		candidate int
		payment   uint64
		want      *rejections.Error
	}{
		{
			name:    "unknown poll",
			voter:   func(h *harness) btcutil.Address { return h.voters[0] },
			poll:    "rivers",
			payment: voteCost,
			want:    rejections.ErrPollNotFound,
		},
		{
			name:    "unregistered",
			voter:   func(h *harness) btcutil.Address { return h.admin },
			poll:    "cities",
			payment: voteCost,
			want:    rejections.ErrNotVoter,
		},
		{
			name: "closed",
			prepare: func(t *testing.T, h *harness) {
				h.endVoting()
				if _, err := h.contract.ClosePoll(h.ctx, h.admin, "cities"); err != nil {
					t.Fatalf("\t%s\tFailed to close : %v", tests.Failed, err)
				}
			},
			voter:   func(h *harness) btcutil.Address { return h.voters[0] },
			poll:    "cities",
			payment: voteCost,
			want:    rejections.ErrPollClosed,
		},
		{
			name:    "past deadline",
			prepare: func(t *testing.T, h *harness) { h.endVoting() },
			voter:   func(h *harness) btcutil.Address { return h.voters[0] },
			poll:    "cities",
			payment: voteCost,
			want:    rejections.ErrPastDeadline,
		},
		{
			name:    "insufficient payment",
			voter:   func(h *harness) btcutil.Address { return h.voters[0] },
			poll:    "cities",
			payment: voteCost - 1,
			want:    rejections.ErrInsufficientPay,
		},
		{
			name:    "already voted",
			prepare: func(t *testing.T, h *harness) { h.vote(t, 0, 0) },
			voter:   func(h *harness) btcutil.Address { return h.voters[0] },
			poll:    "cities",
			payment: voteCost,
			want:    rejections.ErrAlreadyVoted,
		},
		{
			name:      "unknown candidate",
			voter:     func(h *harness) btcutil.Address { return h.voters[0] },
			poll:      "cities",
			candidate: 2,
			payment:   voteCost,
			want:      rejections.ErrCandidateNotFound,
		},
		{
			name:    "ledger refusal",
			voter:   func(h *harness) btcutil.Address { return h.voters[0] },
			poll:    "cities",
			payment: voterFunds + 1,
			want:    rejections.ErrPaymentRefused,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			h := setup(t, DefaultConfig(), 2)
			h.createCities(t)
			if tc.prepare != nil {
				tc.prepare(t, h)
			}

			before := h.contract.Snapshot()
			balance := h.contract.Balance()
			h.recorder.Reset()

			err := h.contract.Vote(h.ctx, tc.voter(h), tc.poll, tc.candidate, tc.payment)
			if !rejections.Is(err, tc.want) {
				t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, tc.want)
			}
			t.Logf("\t%s\tVote rejected : %v", tests.Success, err)

			if diff := cmp.Diff(before, h.contract.Snapshot()); diff != "" {
				t.Errorf("\t%s\tState changed by rejected vote (-want +got):\n%s", tests.Failed, diff)
			}
			if got := h.contract.Balance(); got != balance {
				t.Errorf("\t%s\tCustody changed from %d to %d", tests.Failed, balance, got)
			}
			if n := h.recorder.Notifications(); len(n) != 0 {
				t.Errorf("\t%s\tRejected vote notified : %v", tests.Failed, n)
			}
		})
	}
}

func TestVote_Overpayment(t *testing.T) {
	h := setup(t, DefaultConfig(), 1)
	h.createCities(t)

	if err := h.contract.Vote(h.ctx, h.voters[0], "cities", 0, 3*voteCost); err != nil {
		t.Fatalf("\t%s\tFailed to vote : %v", tests.Failed, err)
	}

	p, _ := h.contract.Poll(h.ctx, "cities")
	if p.Balance != 3*voteCost {
		t.Errorf("\t%s\tGot balance %d, want %d", tests.Failed, p.Balance, 3*voteCost)
	}
	if got := h.ledger.Balance(h.voters[0].EncodeAddress()); got != voterFunds-3*voteCost {
		t.Errorf("\t%s\tGot voter funds %d, want %d", tests.Failed, got, voterFunds-3*voteCost)
	}
}

func TestClosePoll(t *testing.T) {
	defer tests.Recover(t)

	h := setup(t, DefaultConfig(), 2)
	h.createCities(t)
	h.vote(t, 0, 0)

	h.ledger.Advance(votingHours*time.Hour - time.Second)
	if _, err := h.contract.ClosePoll(h.ctx, h.admin, "cities"); !rejections.Is(err,
		rejections.ErrNotYetEligible) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrNotYetEligible)
	}

	h.ledger.Advance(time.Second)
	if _, err := h.contract.ClosePoll(h.ctx, nil, "cities"); !rejections.Is(err,
		rejections.ErrMissingCaller) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrMissingCaller)
	}
	if _, err := h.contract.ClosePoll(h.ctx, h.admin, "rivers"); !rejections.Is(err,
		rejections.ErrPollNotFound) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrPollNotFound)
	}

	// Settlement is open to any caller, registered or not.
	outsider := tests.GenerateAddress(t)
	status, err := h.contract.ClosePoll(h.ctx, outsider, "cities")
	if err != nil {
		t.Fatalf("\t%s\tFailed to close : %v", tests.Failed, err)
	}
	if status != state.StatusClosedHasWinner {
		t.Fatalf("\t%s\tGot status %s, want %s", tests.Failed, status,
			state.StatusClosedHasWinner)
	}
	t.Logf("\t%s\tClosed at the end time : %s", tests.Success, status)

	payout := h.ledger.Balance(h.wallets[0].EncodeAddress())
	h.recorder.Reset()

	again, err := h.contract.ClosePoll(h.ctx, h.admin, "cities")
	if err != nil {
		t.Fatalf("\t%s\tSecond close failed : %v", tests.Failed, err)
	}
	if again != status {
		t.Errorf("\t%s\tGot status %s, want %s", tests.Failed, again, status)
	}
	if got := h.ledger.Balance(h.wallets[0].EncodeAddress()); got != payout {
		t.Errorf("\t%s\tSecond close paid again", tests.Failed)
	}
	if n := h.recorder.Notifications(); len(n) != 0 {
		t.Errorf("\t%s\tSecond close notified : %v", tests.Failed, n)
	}
	t.Logf("\t%s\tSecond close is idempotent", tests.Success)
}

func TestClosePoll_Unregistered(t *testing.T) {
	h := setup(t, DefaultConfig(), 0)
	h.createCities(t)
	h.endVoting()

	status, err := h.contract.ClosePoll(h.ctx, tests.GenerateAddress(t), "cities")
	if err != nil {
		t.Fatalf("\t%s\tFailed to close : %v", tests.Failed, err)
	}
	if status != state.StatusClosedNoWinner {
		t.Fatalf("\t%s\tGot status %s, want %s", tests.Failed, status, state.StatusClosedNoWinner)
	}
	t.Logf("\t%s\tUnregistered caller closed the poll", tests.Success)
}

func TestClosePoll_Strict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictClose = true

	h := setup(t, cfg, 1)
	h.createCities(t)
	h.endVoting()

	if _, err := h.contract.ClosePoll(h.ctx, h.admin, "cities"); err != nil {
		t.Fatalf("\t%s\tFailed to close : %v", tests.Failed, err)
	}
	if _, err := h.contract.ClosePoll(h.ctx, h.admin, "cities"); !rejections.Is(err,
		rejections.ErrPollClosed) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrPollClosed)
	}
}

func TestClosePoll_NoWinner(t *testing.T) {
	tt := []struct {
		name    string
		votes   []int
		status  state.PollStatus
		balance uint64
	}{
		{"no votes", nil, state.StatusClosedNoWinner, 0},
		{"tie", []int{0, 1}, state.StatusClosedTie, 2 * voteCost},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			h := setup(t, DefaultConfig(), 2)
			h.createCities(t)
			for voter, candidate := range tc.votes {
				h.vote(t, voter, candidate)
			}
			h.endVoting()

			status, err := h.contract.ClosePoll(h.ctx, h.admin, "cities")
			if err != nil {
				t.Fatalf("\t%s\tFailed to close : %v", tests.Failed, err)
			}
			if status != tc.status {
				t.Fatalf("\t%s\tGot status %s, want %s", tests.Failed, status, tc.status)
			}

			result, err := h.contract.PollWinner(h.ctx, "cities")
			if err != nil {
				t.Fatalf("\t%s\tFailed to get winner : %v", tests.Failed, err)
			}
			if result.HasWinner {
				t.Errorf("\t%s\tUnexpected winner : %+v", tests.Failed, result)
			}

			p, _ := h.contract.Poll(h.ctx, "cities")
			if p.Balance != tc.balance || p.CommissionReserve != 0 {
				t.Errorf("\t%s\tGot balance %d reserve %d", tests.Failed, p.Balance,
					p.CommissionReserve)
			}
			if got := h.contract.Balance(); got != tc.balance {
				t.Errorf("\t%s\tGot custody %d, want %d", tests.Failed, got, tc.balance)
			}

			if _, err := h.contract.WithdrawPollCommission(h.ctx, h.admin,
				"cities"); !rejections.Is(err, rejections.ErrZeroCommission) {
				t.Errorf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrZeroCommission)
			}
		})
	}
}

func TestPollWinner_Open(t *testing.T) {
	h := setup(t, DefaultConfig(), 0)
	h.createCities(t)

	if _, err := h.contract.PollWinner(h.ctx, "cities"); !rejections.Is(err,
		rejections.ErrPollNotClosed) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrPollNotClosed)
	}
	if _, err := h.contract.WithdrawPollCommission(h.ctx, h.admin, "cities"); !rejections.Is(err,
		rejections.ErrPollNotClosed) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrPollNotClosed)
	}
	if _, err := h.contract.PollWinner(h.ctx, "rivers"); !rejections.Is(err,
		rejections.ErrPollNotFound) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrPollNotFound)
	}
}

func TestCreatePoll(t *testing.T) {
	h := setup(t, DefaultConfig(), 1)
	h.createCities(t)

	names, err := h.contract.PollCandidates(h.ctx, "cities")
	if err != nil {
		t.Fatalf("\t%s\tFailed to get candidates : %v", tests.Failed, err)
	}
	if diff := cmp.Diff([]string{"Astana", "Almaty"}, names); diff != "" {
		t.Errorf("\t%s\tCandidates mismatch (-want +got):\n%s", tests.Failed, diff)
	}

	p, _ := h.contract.Poll(h.ctx, "cities")
	if want := fixedClock().Add(votingHours * time.Hour); !p.EndTime.Equal(want) {
		t.Errorf("\t%s\tGot end time %s, want %s", tests.Failed, p.EndTime, want)
	}

	before := h.contract.Snapshot()
	h.recorder.Reset()

	tt := []struct {
		name       string
		caller     btcutil.Address
		poll       string
		candidates []string
		wallets    []btcutil.Address
		want       *rejections.Error
	}{
		{"not administrator", h.voters[0], "rivers", []string{"a"}, h.wallets[:1],
			rejections.ErrNotAdministrator},
		{"duplicate", h.admin, "cities", []string{"a", "b"}, h.wallets,
			rejections.ErrPollExists},
		{"mismatch", h.admin, "rivers", []string{"a", "b"}, h.wallets[:1],
			rejections.ErrCandidateMismatch},
		{"empty", h.admin, "rivers", nil, nil, rejections.ErrNoCandidates},
		{"empty name", h.admin, "", []string{"a"}, h.wallets[:1], rejections.ErrEmptyPollName},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := h.contract.CreatePoll(h.ctx, tc.caller, tc.poll, tc.candidates, tc.wallets)
			if !rejections.Is(err, tc.want) {
				t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, tc.want)
			}
		})
	}

	if diff := cmp.Diff(before, h.contract.Snapshot()); diff != "" {
		t.Errorf("\t%s\tState changed by rejected creates (-want +got):\n%s", tests.Failed, diff)
	}
	if n := h.recorder.Notifications(); len(n) != 0 {
		t.Errorf("\t%s\tRejected creates notified : %v", tests.Failed, n)
	}
	if diff := cmp.Diff([]string{"cities"}, h.contract.Polls(h.ctx)); diff != "" {
		t.Errorf("\t%s\tPolls mismatch (-want +got):\n%s", tests.Failed, diff)
	}
}

func TestCreatePoll_AllowEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowEmptyPolls = true

	h := setup(t, cfg, 1)
	if err := h.contract.CreatePoll(h.ctx, h.admin, "empty", nil, nil); err != nil {
		t.Fatalf("\t%s\tFailed to create empty poll : %v", tests.Failed, err)
	}

	h.endVoting()
	status, err := h.contract.ClosePoll(h.ctx, h.voters[0], "empty")
	if err != nil {
		t.Fatalf("\t%s\tFailed to close : %v", tests.Failed, err)
	}
	if status != state.StatusClosedNoWinner {
		t.Errorf("\t%s\tGot status %s, want %s", tests.Failed, status, state.StatusClosedNoWinner)
	}
}

func TestAddVoters(t *testing.T) {
	h := setup(t, DefaultConfig(), 0)
	addresses := tests.GenerateAddresses(t, 2)

	if err := h.contract.AddVoters(h.ctx, addresses[0], addresses); !rejections.Is(err,
		rejections.ErrNotAdministrator) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrNotAdministrator)
	}
	if len(h.contract.Voters()) != 0 || len(h.recorder.Notifications()) != 0 {
		t.Fatalf("\t%s\tRejected add changed the registry", tests.Failed)
	}

	if err := h.contract.AddVoters(h.ctx, h.admin, addresses); err != nil {
		t.Fatalf("\t%s\tFailed to add voters : %v", tests.Failed, err)
	}
	if err := h.contract.AddVoter(h.ctx, h.admin, addresses[0]); err != nil {
		t.Fatalf("\t%s\tFailed to add repeated voter : %v", tests.Failed, err)
	}

	want := []string{addresses[0].EncodeAddress(), addresses[1].EncodeAddress()}
	if diff := cmp.Diff(want, h.contract.Voters()); diff != "" {
		t.Errorf("\t%s\tVoters mismatch (-want +got):\n%s", tests.Failed, diff)
	}
	if !h.contract.IsVoter(addresses[1]) || h.contract.IsVoter(h.admin) {
		t.Errorf("\t%s\tMembership mismatch", tests.Failed)
	}

	wantEvents := []events.Notification{
		events.VoterAdded{Address: want[0]},
		events.VoterAdded{Address: want[1]},
		events.VoterAdded{Address: want[0]},
	}
	if diff := cmp.Diff(wantEvents, h.recorder.Notifications()); diff != "" {
		t.Errorf("\t%s\tNotifications mismatch (-want +got):\n%s", tests.Failed, diff)
	}
}

func TestWithdrawPollCommission_NotAdministrator(t *testing.T) {
	h := setup(t, DefaultConfig(), 1)
	h.createCities(t)
	h.vote(t, 0, 1)
	h.endVoting()

	if _, err := h.contract.ClosePoll(h.ctx, h.admin, "cities"); err != nil {
		t.Fatalf("\t%s\tFailed to close : %v", tests.Failed, err)
	}

	if _, err := h.contract.WithdrawPollCommission(h.ctx, h.voters[0], "cities"); !rejections.Is(
		err, rejections.ErrNotAdministrator) {
		t.Fatalf("\t%s\tGot %v, want %v", tests.Failed, err, rejections.ErrNotAdministrator)
	}

	p, _ := h.contract.Poll(h.ctx, "cities")
	if p.CommissionReserve != 100000 {
		t.Errorf("\t%s\tGot reserve %d, want %d", tests.Failed, p.CommissionReserve, 100000)
	}
}

// refusingLedger refuses transfers out of one address.
type refusingLedger struct {
	*ledger.Memory
	from string
}

func (l *refusingLedger) Transfer(ctx context.Context, from, to string,
	amount uint64) (*chainhash.Hash, error) {

	if from == l.from {
		return nil, errors.New("Transfer refused")
	}
	return l.Memory.Transfer(ctx, from, to, amount)
}

func TestClosePoll_PayoutFailure(t *testing.T) {
	ctx := tests.Context(t)
	admin := tests.GenerateAddress(t)
	custody := tests.GenerateAddress(t)
	voter := tests.GenerateAddress(t)
	wallets := tests.GenerateAddresses(t, 2)

	l := &refusingLedger{Memory: ledger.NewMemoryWithClock(fixedClock)}
	l.Mint(ctx, voter.EncodeAddress(), voterFunds)

	c, err := New(ctx, DefaultConfig(), l, nil, admin, custody)
	if err != nil {
		t.Fatalf("\t%s\tFailed to create contract : %v", tests.Failed, err)
	}
	c.AddVoter(ctx, admin, voter)
	if err := c.CreatePoll(ctx, admin, "cities", []string{"Astana", "Almaty"}, wallets); err != nil {
		t.Fatalf("\t%s\tFailed to create poll : %v", tests.Failed, err)
	}
	if err := c.Vote(ctx, voter, "cities", 0, voteCost); err != nil {
		t.Fatalf("\t%s\tFailed to vote : %v", tests.Failed, err)
	}

	l.Advance(votingHours * time.Hour)
	l.from = custody.EncodeAddress()

	before := c.Snapshot()
	if _, err := c.ClosePoll(ctx, admin, "cities"); err == nil {
		t.Fatalf("\t%s\tClose succeeded without payout", tests.Failed)
	}
	if diff := cmp.Diff(before, c.Snapshot()); diff != "" {
		t.Fatalf("\t%s\tState changed by failed payout (-want +got):\n%s", tests.Failed, diff)
	}
	t.Logf("\t%s\tFailed payout left the poll open", tests.Success)

	l.from = ""
	status, err := c.ClosePoll(ctx, admin, "cities")
	if err != nil {
		t.Fatalf("\t%s\tFailed to close : %v", tests.Failed, err)
	}
	if status != state.StatusClosedHasWinner {
		t.Errorf("\t%s\tGot status %s, want %s", tests.Failed, status, state.StatusClosedHasWinner)
	}
}

func TestVote_Concurrent(t *testing.T) {
	const voterCount = 40

	h := setup(t, DefaultConfig(), voterCount)
	h.createCities(t)

	var wg sync.WaitGroup
	for i := 0; i < voterCount; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			h.contract.Vote(h.ctx, h.voters[i], "cities", i%2, voteCost)
		}(i)
		go func(i int) {
			defer wg.Done()
			h.contract.Vote(h.ctx, h.voters[i], "cities", (i+1)%2, voteCost)
		}(i)
	}
	wg.Wait()

	p, _ := h.contract.Poll(h.ctx, "cities")
	if p.TotalVotes() != voterCount || len(p.Voters) != voterCount {
		t.Fatalf("\t%s\tGot %d votes from %d voters, want %d", tests.Failed, p.TotalVotes(),
			len(p.Voters), voterCount)
	}
	if p.Balance != voterCount*voteCost || h.contract.Balance() != voterCount*voteCost {
		t.Fatalf("\t%s\tGot balance %d custody %d, want %d", tests.Failed, p.Balance,
			h.contract.Balance(), voterCount*voteCost)
	}
	if p.TotalVotes() != p.Balance/voteCost {
		t.Errorf("\t%s\tVotes do not match balance", tests.Failed)
	}
}

func TestAwaitingSettlement(t *testing.T) {
	h := setup(t, DefaultConfig(), 1)
	h.createCities(t)

	if got := h.contract.AwaitingSettlement(h.ctx); len(got) != 0 {
		t.Fatalf("\t%s\tGot %v before the end time", tests.Failed, got)
	}

	h.endVoting()
	if diff := cmp.Diff([]string{"cities"}, h.contract.AwaitingSettlement(h.ctx)); diff != "" {
		t.Fatalf("\t%s\tAwaiting mismatch (-want +got):\n%s", tests.Failed, diff)
	}

	h.contract.ClosePoll(h.ctx, h.admin, "cities")
	if got := h.contract.AwaitingSettlement(h.ctx); len(got) != 0 {
		t.Fatalf("\t%s\tGot %v after close", tests.Failed, got)
	}
}

func TestNew_Invalid(t *testing.T) {
	ctx := tests.Context(t)
	l := ledger.NewMemoryWithClock(fixedClock)
	admin := tests.GenerateAddress(t)

	if _, err := New(ctx, DefaultConfig(), l, nil, admin, nil); err != ErrMissingAddress {
		t.Errorf("\t%s\tGot %v, want %v", tests.Failed, err, ErrMissingAddress)
	}

	cfg := DefaultConfig()
	cfg.CommissionPercent = 101
	if _, err := New(ctx, cfg, l, nil, admin, admin); err == nil {
		t.Errorf("\t%s\tAccepted commission above 100", tests.Failed)
	}
}
