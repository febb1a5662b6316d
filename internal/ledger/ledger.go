package ledger

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

var (
	// ErrInsufficientFunds is returned when the sender cannot cover a transfer.
	ErrInsufficientFunds = errors.New("Insufficient funds")

	// ErrInvalidTransfer is returned for zero amounts or missing accounts.
	ErrInvalidTransfer = errors.New("Invalid transfer")
)

// Ledger is the value custody primitive the contract relies on. It orders
// transfers globally and reports the ledger time.
type Ledger interface {
	// Now returns the current ledger time.
	Now() time.Time

	// Balance returns the amount held by an address.
	Balance(address string) uint64

	// Transfer moves amount from one address to another. Either the whole
	// amount moves or nothing does.
	Transfer(ctx context.Context, from, to string, amount uint64) (*chainhash.Hash, error)
}
