package contract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tokenized/voting-contract/internal/events"
	"github.com/tokenized/voting-contract/internal/ledger"
	"github.com/tokenized/voting-contract/internal/platform/db"
	"github.com/tokenized/voting-contract/internal/platform/state"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

const storageKey = "contracts"

// Save puts the contract state in storage as a single document.
func Save(ctx context.Context, dbConn *db.DB, c *state.Contract) error {
	ctx, span := trace.StartSpan(ctx, "internal.contract.Save")
	defer span.End()

	b, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal contract")
	}

	return dbConn.Put(ctx, buildStoragePath(c.Address), b)
}

// Fetch a single contract state from storage.
func Fetch(ctx context.Context, dbConn *db.DB, address string) (*state.Contract, error) {
	ctx, span := trace.StartSpan(ctx, "internal.contract.Fetch")
	defer span.End()

	b, err := dbConn.Fetch(ctx, buildStoragePath(address))
	if err != nil {
		if errors.Cause(err) == db.ErrNotFound {
			err = ErrNotFound
		}

		return nil, err
	}

	c := state.Contract{}
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "unmarshal contract")
	}

	return &c, nil
}

// Checkpoint saves the contract and, when the ledger supports it, the ledger
// under the custody address. Both are captured under the contract lock so they
// agree on every vote and payout. Checkpoints are written one at a time in the
// order they were captured.
func (c *Contract) Checkpoint(ctx context.Context, dbConn *db.DB) error {
	ctx, span := trace.StartSpan(ctx, "internal.contract.Checkpoint")
	defer span.End()

	c.saveLock.Lock()
	defer c.saveLock.Unlock()

	c.lock.Lock()
	contractState := c.snapshot()
	var ledgerState *ledger.Snapshot
	if s, ok := c.ledger.(ledger.Snapshotter); ok {
		ledgerState = s.Snapshot()
	}
	c.lock.Unlock()

	if err := Save(ctx, dbConn, contractState); err != nil {
		return errors.Wrap(err, "save contract")
	}

	if ledgerState != nil {
		if err := ledger.SaveSnapshot(ctx, dbConn, contractState.Address, ledgerState); err != nil {
			return errors.Wrap(err, "save ledger")
		}
	}

	return nil
}

// Load restores the contract stored for the custody address.
func Load(ctx context.Context, dbConn *db.DB, cfg Config, l ledger.Ledger,
	listener events.Listener, address string) (*Contract, error) {

	s, err := Fetch(ctx, dbConn, address)
	if err != nil {
		return nil, err
	}

	return Restore(cfg, l, listener, s)
}

// Returns the storage path prefix for a given identifier.
func buildStoragePath(address string) string {
	return fmt.Sprintf("%v/%v", storageKey, address)
}
