package contract

import (
	"context"
	"time"

	"github.com/tokenized/voting-contract/internal/events"
	"github.com/tokenized/voting-contract/internal/funds"
	"github.com/tokenized/voting-contract/internal/ledger"
	"github.com/tokenized/voting-contract/internal/platform/logger"
	"github.com/tokenized/voting-contract/internal/platform/state"
	"github.com/tokenized/voting-contract/internal/poll"
	"github.com/tokenized/voting-contract/internal/rejections"
	"github.com/tokenized/voting-contract/internal/voters"

	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	sync "github.com/sasha-s/go-deadlock"
	"go.opencensus.io/trace"
)

var (
	// ErrNotFound abstracts the standard not found error.
	ErrNotFound = errors.New("Contract not found")

	// ErrMissingAddress occurs when the administrator or custody address is not set.
	ErrMissingAddress = errors.New("Missing contract address")
)

// Contract is a voting contract. Every operation runs under one lock so a
// caller only ever observes the state before or after another operation.
//
// Listeners are notified while the lock is held and must not call back into
// the contract.
type Contract struct {
	lock     sync.Mutex
	saveLock sync.Mutex
	config   Config
	ledger   ledger.Ledger
	listener events.Listener

	state  *state.Contract
	voters *voters.Registry
	polls  *poll.Store
}

// New creates a contract administered by administrator that holds vote
// payments at the custody address.
func New(ctx context.Context, cfg Config, l ledger.Ledger, listener events.Listener,
	administrator, custody btcutil.Address) (*Contract, error) {

	ctx, span := trace.StartSpan(ctx, "internal.contract.New")
	defer span.End()

	if administrator == nil || custody == nil {
		return nil, ErrMissingAddress
	}

	now := l.Now()
	s := &state.Contract{
		Administrator: administrator.EncodeAddress(),
		Address:       custody.EncodeAddress(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	c, err := Restore(cfg, l, listener, s)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Created contract %s administered by %s", s.Address, s.Administrator)
	return c, nil
}

// Restore rebuilds a contract from stored state.
func Restore(cfg Config, l ledger.Ledger, listener events.Listener,
	s *state.Contract) (*Contract, error) {

	if err := funds.ValidatePercent(cfg.CommissionPercent); err != nil {
		return nil, err
	}
	if len(s.Administrator) == 0 || len(s.Address) == 0 {
		return nil, ErrMissingAddress
	}
	if listener == nil {
		listener = events.Multi{}
	}

	return &Contract{
		config:   cfg,
		ledger:   l,
		listener: listener,
		state:    s,
		voters:   voters.NewRegistry(s),
		polls:    poll.NewStore(s),
	}, nil
}

// Config returns the contract terms.
func (c *Contract) Config() Config {
	return c.config
}

// Administrator returns the administrator address.
func (c *Contract) Administrator() string {
	return c.state.Administrator
}

// Address returns the custody address that holds poll funds.
func (c *Contract) Address() string {
	return c.state.Address
}

// IsAdministrator returns true if the address is the administrator.
func (c *Contract) IsAdministrator(address btcutil.Address) bool {
	return address != nil && address.EncodeAddress() == c.state.Administrator
}

func (c *Contract) requireAdministrator(caller btcutil.Address) error {
	if !c.IsAdministrator(caller) {
		return rejections.ErrNotAdministrator
	}
	return nil
}

// AddVoter registers an address. Adding a registered address changes nothing
// but is still reported.
func (c *Contract) AddVoter(ctx context.Context, caller, address btcutil.Address) error {
	ctx, span := trace.StartSpan(ctx, "internal.contract.AddVoter")
	defer span.End()

	return c.AddVoters(ctx, caller, []btcutil.Address{address})
}

// AddVoters registers addresses in order.
func (c *Contract) AddVoters(ctx context.Context, caller btcutil.Address,
	addresses []btcutil.Address) error {

	ctx, span := trace.StartSpan(ctx, "internal.contract.AddVoters")
	defer span.End()

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.requireAdministrator(caller); err != nil {
		return err
	}
	for _, address := range addresses {
		if address == nil {
			return errors.Wrap(ErrMissingAddress, "voter")
		}
	}

	added := 0
	for _, address := range addresses {
		if c.voters.Add(address.EncodeAddress()) {
			added++
		}
	}
	if added > 0 {
		c.state.UpdatedAt = c.ledger.Now()
	}

	logger.Info(ctx, "Added %d voters (%d requested)", added, len(addresses))

	for _, address := range addresses {
		c.listener.Notify(ctx, events.VoterAdded{Address: address.EncodeAddress()})
	}

	return nil
}

// IsVoter returns true if the address is registered.
func (c *Contract) IsVoter(address btcutil.Address) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return address != nil && c.voters.Contains(address.EncodeAddress())
}

// Voters returns the registered addresses in admission order.
func (c *Contract) Voters() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.voters.List()
}

// CreatePoll opens a poll that ends one voting period from now. Candidate i
// is paid at wallets[i] if it wins.
func (c *Contract) CreatePoll(ctx context.Context, caller btcutil.Address, name string,
	candidates []string, wallets []btcutil.Address) error {

	ctx, span := trace.StartSpan(ctx, "internal.contract.CreatePoll")
	defer span.End()

	ctx = logger.ContextWithPoll(ctx, name)

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.requireAdministrator(caller); err != nil {
		return err
	}

	now := c.ledger.Now()
	tmpl := &poll.Template{
		Name:       name,
		Candidates: candidates,
		Wallets:    make([]string, len(wallets)),
		CreatedAt:  now,
		EndTime:    now.Add(c.config.VotingPeriod),
		AllowEmpty: c.config.AllowEmptyPolls,
	}
	for i, wallet := range wallets {
		if wallet == nil {
			return errors.Wrap(ErrMissingAddress, "candidate wallet")
		}
		tmpl.Wallets[i] = wallet.EncodeAddress()
	}

	p, err := c.polls.Create(tmpl)
	if err != nil {
		logger.Warn(ctx, "Poll rejected : %s", err)
		return err
	}
	c.state.UpdatedAt = now

	logger.Info(ctx, "Created poll with %d candidates ending %s", len(p.Candidates),
		p.EndTime.Format(time.RFC3339))

	c.listener.Notify(ctx, events.PollCreated{Poll: name})
	return nil
}

// Vote casts the caller's single vote in a poll and pulls payment from the
// caller into custody. Nothing is recorded if the ledger refuses the payment.
func (c *Contract) Vote(ctx context.Context, caller btcutil.Address, pollName string,
	candidate int, payment uint64) error {

	ctx, span := trace.StartSpan(ctx, "internal.contract.Vote")
	defer span.End()

	ctx = logger.ContextWithPoll(ctx, pollName)

	c.lock.Lock()
	defer c.lock.Unlock()

	p, err := c.polls.Find(pollName)
	if err != nil {
		return err
	}

	if caller == nil || !c.voters.Contains(caller.EncodeAddress()) {
		return rejections.ErrNotVoter
	}
	voter := caller.EncodeAddress()

	now := c.ledger.Now()
	voted := c.polls.HasVoted(pollName, voter)
	if err := poll.CheckVote(p, voted, candidate, payment, c.config.VoteCost, now); err != nil {
		logger.Warn(ctx, "Vote from %s rejected : %s", voter, err)
		return err
	}

	txid, err := c.ledger.Transfer(ctx, voter, c.state.Address, payment)
	if err != nil {
		logger.Warn(ctx, "Vote payment from %s refused : %s", voter, err)
		return errors.Wrap(rejections.ErrPaymentRefused, err.Error())
	}

	// Recorded only once the payment is taken.
	c.polls.RecordVote(p, voter, candidate, payment)
	c.state.UpdatedAt = now

	logger.Info(ctx, "Vote from %s for candidate %d : %s paid in %s", voter, candidate,
		btcutil.Amount(payment), txid)

	c.listener.Notify(ctx, events.VoteCast{Poll: pollName, Candidate: candidate})
	c.listener.Notify(ctx, events.FundsReceived{Address: c.state.Address, Amount: payment})
	return nil
}

// ClosePoll closes a poll once its end time is reached and pays the winner.
// Closing a closed poll returns the recorded status unless StrictClose is set.
func (c *Contract) ClosePoll(ctx context.Context, caller btcutil.Address,
	pollName string) (state.PollStatus, error) {

	ctx, span := trace.StartSpan(ctx, "internal.contract.ClosePoll")
	defer span.End()

	ctx = logger.ContextWithPoll(ctx, pollName)

	c.lock.Lock()
	defer c.lock.Unlock()

	p, err := c.polls.Find(pollName)
	if err != nil {
		return state.StatusOpen, err
	}

	if caller == nil {
		return p.Status, rejections.ErrMissingCaller
	}

	if p.Status.IsClosed() {
		if c.config.StrictClose {
			return p.Status, rejections.ErrPollClosed
		}
		logger.Verbose(ctx, "Poll already closed : %s", p.Status)
		return p.Status, nil
	}

	now := c.ledger.Now()
	if err := poll.CheckClose(p, now); err != nil {
		return p.Status, err
	}

	updated := p.Copy()
	status := poll.Close(updated, now)

	if status == state.StatusClosedHasWinner {
		payout := funds.PlanPayout(updated, c.config.CommissionPercent)
		funds.ApplyPayout(updated, payout)

		if payout.Amount > 0 {
			txid, err := c.ledger.Transfer(ctx, c.state.Address, payout.To, payout.Amount)
			if err != nil {
				return p.Status, errors.Wrap(err, "pay winner")
			}

			logger.Info(ctx, "Paid %s to %s in %s, reserved %s commission",
				btcutil.Amount(payout.Amount), payout.To, txid, btcutil.Amount(payout.Commission))
		}
	}

	if err := c.polls.Replace(updated); err != nil {
		return p.Status, errors.Wrap(err, "replace poll")
	}
	c.state.UpdatedAt = now

	logger.Info(ctx, "Closed poll : %s with %d votes", status, updated.TotalVotes())

	c.listener.Notify(ctx, events.PollClosed{Poll: pollName, Status: status})
	return status, nil
}

// PollWinner returns the result of a closed poll.
func (c *Contract) PollWinner(ctx context.Context, pollName string) (*poll.Result, error) {
	ctx, span := trace.StartSpan(ctx, "internal.contract.PollWinner")
	defer span.End()

	c.lock.Lock()
	defer c.lock.Unlock()

	p, err := c.polls.Find(pollName)
	if err != nil {
		return nil, err
	}

	return poll.Winner(p)
}

// PollCandidates returns the candidate names of a poll in index order.
func (c *Contract) PollCandidates(ctx context.Context, pollName string) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "internal.contract.PollCandidates")
	defer span.End()

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.polls.Candidates(pollName)
}

// Polls returns the poll names in creation order.
func (c *Contract) Polls(ctx context.Context) []string {
	ctx, span := trace.StartSpan(ctx, "internal.contract.Polls")
	defer span.End()

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.polls.List()
}

// Poll returns a copy of a poll record.
func (c *Contract) Poll(ctx context.Context, pollName string) (*state.Poll, error) {
	ctx, span := trace.StartSpan(ctx, "internal.contract.Poll")
	defer span.End()

	c.lock.Lock()
	defer c.lock.Unlock()

	p, err := c.polls.Find(pollName)
	if err != nil {
		return nil, err
	}

	return p.Copy(), nil
}

// Balance returns the funds held in custody across all polls.
func (c *Contract) Balance() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.ledger.Balance(c.state.Address)
}

// WithdrawPollCommission pays the commission reserved at close to the
// administrator.
func (c *Contract) WithdrawPollCommission(ctx context.Context, caller btcutil.Address,
	pollName string) (uint64, error) {

	ctx, span := trace.StartSpan(ctx, "internal.contract.WithdrawPollCommission")
	defer span.End()

	ctx = logger.ContextWithPoll(ctx, pollName)

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.requireAdministrator(caller); err != nil {
		return 0, err
	}

	p, err := c.polls.Find(pollName)
	if err != nil {
		return 0, err
	}

	amount, err := funds.PlanWithdrawal(p)
	if err != nil {
		return 0, err
	}

	updated := p.Copy()
	funds.ApplyWithdrawal(updated)

	txid, err := c.ledger.Transfer(ctx, c.state.Address, c.state.Administrator, amount)
	if err != nil {
		return 0, errors.Wrap(err, "withdraw commission")
	}

	if err := c.polls.Replace(updated); err != nil {
		return 0, errors.Wrap(err, "replace poll")
	}
	c.state.UpdatedAt = c.ledger.Now()

	logger.Info(ctx, "Withdrew %s commission in %s", btcutil.Amount(amount), txid)

	c.listener.Notify(ctx, events.CommissionWithdrawn{Poll: pollName, Amount: amount})
	return amount, nil
}

// AwaitingSettlement returns the names of open polls whose end time has
// passed.
func (c *Contract) AwaitingSettlement(ctx context.Context) []string {
	ctx, span := trace.StartSpan(ctx, "internal.contract.AwaitingSettlement")
	defer span.End()

	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.ledger.Now()
	var result []string
	for _, p := range c.polls.All() {
		if !p.Status.IsClosed() && !now.Before(p.EndTime) {
			result = append(result, p.Name)
		}
	}

	return result
}

// Snapshot returns a deep copy of the contract state.
func (c *Contract) Snapshot() *state.Contract {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.snapshot()
}

func (c *Contract) snapshot() *state.Contract {
	result := *c.state

	result.Voters = c.voters.List()
	result.Polls = make([]*state.Poll, len(c.state.Polls))
	for i, p := range c.state.Polls {
		result.Polls[i] = p.Copy()
	}

	return &result
}
