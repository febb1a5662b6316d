package rejections

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why an operation was rejected. A rejected operation never
// changes contract or ledger state.
type Kind uint8

const (
	// KindNone is returned by KindOf for errors that are not rejections.
	KindNone Kind = iota

	// KindAuthorization is a wrong caller for the operation.
	KindAuthorization

	// KindNotFound is an unknown poll or candidate, or a poll name collision.
	KindNotFound

	// KindState is a wrong poll status or time for the requested transition.
	KindState

	// KindAlreadyDone is a repeated vote or an already withdrawn commission.
	KindAlreadyDone

	// KindPayment is a payment below the vote cost or one the ledger refused.
	KindPayment

	// KindMalformed is an invalid argument to poll creation.
	KindMalformed
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "Authorization"
	case KindNotFound:
		return "NotFound"
	case KindState:
		return "State"
	case KindAlreadyDone:
		return "AlreadyDone"
	case KindPayment:
		return "Payment"
	case KindMalformed:
		return "Malformed"
	}

	return "None"
}

// Error is a typed rejection.
type Error struct {
	Kind    Kind
	Message string
}

// New returns a rejection of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s rejection : %s", e.Kind, e.Message)
}

var (
	ErrNotAdministrator = New(KindAuthorization, "Only owner")
	ErrNotVoter         = New(KindAuthorization, "Not a registered voter")
	ErrMissingCaller    = New(KindAuthorization, "Missing caller")

	ErrPollNotFound      = New(KindNotFound, "Poll not found")
	ErrCandidateNotFound = New(KindNotFound, "Candidate not found")
	ErrPollExists        = New(KindNotFound, "Poll name already used")

	ErrPollClosed      = New(KindState, "The poll is closed")
	ErrPastDeadline    = New(KindState, "Can only vote until poll end date")
	ErrNotYetEligible  = New(KindState, "Can be closed only after poll end date")
	ErrPollNotClosed   = New(KindState, "The poll is not closed yet")
	ErrAlreadyVoted    = New(KindAlreadyDone, "Voter can only vote once for a poll")
	ErrZeroCommission  = New(KindAlreadyDone, "The poll balance is zero")
	ErrInsufficientPay = New(KindPayment, "Not enough funds to vote")
	ErrPaymentRefused  = New(KindPayment, "Payment refused by ledger")

	ErrCandidateMismatch = New(KindMalformed, "Candidate names and wallets differ in length")
	ErrNoCandidates      = New(KindMalformed, "Poll has no candidates")
	ErrEmptyPollName     = New(KindMalformed, "Poll name is empty")
	ErrEmptyCandidate    = New(KindMalformed, "Candidate name is empty")
)

// KindOf returns the kind of the rejection at the root of err, or KindNone if
// err is not a rejection.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	if r, ok := errors.Cause(err).(*Error); ok {
		return r.Kind
	}

	return KindNone
}

// Is returns true if the root cause of err is the target rejection.
func Is(err error, target *Error) bool {
	return errors.Cause(err) == target
}
