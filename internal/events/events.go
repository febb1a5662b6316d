package events

import (
	"context"
	"fmt"

	"github.com/tokenized/voting-contract/internal/platform/logger"
	"github.com/tokenized/voting-contract/internal/platform/state"

	"github.com/btcsuite/btcutil"
	sync "github.com/sasha-s/go-deadlock"
)

// Notification is one of the events emitted by the contract.
type Notification interface {
	// Type returns the event name.
	Type() string

	String() string
}

// VoterAdded is emitted for every address passed to AddVoter(s).
type VoterAdded struct {
	Address string
}

func (n VoterAdded) Type() string { return "VoterAdded" }
func (n VoterAdded) String() string {
	return fmt.Sprintf("VoterAdded %s", n.Address)
}

// PollCreated is emitted when a poll is opened.
type PollCreated struct {
	Poll string
}

func (n PollCreated) Type() string { return "PollCreated" }
func (n PollCreated) String() string {
	return fmt.Sprintf("PollCreated %q", n.Poll)
}

// VoteCast is emitted for each accepted vote.
type VoteCast struct {
	Poll      string
	Candidate int
}

func (n VoteCast) Type() string { return "VoteCast" }
func (n VoteCast) String() string {
	return fmt.Sprintf("VoteCast %q candidate %d", n.Poll, n.Candidate)
}

// FundsReceived is emitted when a vote payment reaches custody.
type FundsReceived struct {
	Address string
	Amount  uint64
}

func (n FundsReceived) Type() string { return "FundsReceived" }
func (n FundsReceived) String() string {
	return fmt.Sprintf("FundsReceived %s %s", n.Address, btcutil.Amount(n.Amount))
}

// PollClosed is emitted on the first close of a poll.
type PollClosed struct {
	Poll   string
	Status state.PollStatus
}

func (n PollClosed) Type() string { return "PollClosed" }
func (n PollClosed) String() string {
	return fmt.Sprintf("PollClosed %q %s", n.Poll, n.Status)
}

// CommissionWithdrawn is emitted when the administrator takes a reserve.
type CommissionWithdrawn struct {
	Poll   string
	Amount uint64
}

func (n CommissionWithdrawn) Type() string { return "CommissionWithdrawn" }
func (n CommissionWithdrawn) String() string {
	return fmt.Sprintf("CommissionWithdrawn %q %s", n.Poll, btcutil.Amount(n.Amount))
}

// Listener receives notifications in emission order.
type Listener interface {
	Notify(ctx context.Context, n Notification)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, n Notification)

func (f ListenerFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Multi delivers to each listener in order.
type Multi []Listener

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, l := range m {
		if l != nil {
			l.Notify(ctx, n)
		}
	}
}

// LogListener writes notifications to the context logger.
type LogListener struct{}

func (LogListener) Notify(ctx context.Context, n Notification) {
	logger.Info(ctx, "Notification : %s", n)
}

// Recorder keeps every notification it receives.
type Recorder struct {
	lock          sync.Mutex
	notifications []Notification
}

func (r *Recorder) Notify(ctx context.Context, n Notification) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.notifications = append(r.notifications, n)
}

// Notifications returns a copy of what was received.
func (r *Recorder) Notifications() []Notification {
	r.lock.Lock()
	defer r.lock.Unlock()

	result := make([]Notification, len(r.notifications))
	copy(result, r.notifications)
	return result
}

// Reset drops received notifications.
func (r *Recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.notifications = nil
}
