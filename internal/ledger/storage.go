package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tokenized/voting-contract/internal/platform/db"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

const storageKey = "ledger"

// ErrNotFound is returned when no snapshot exists.
var ErrNotFound = errors.New("Ledger not found")

// Snapshot is the persisted form of a Memory ledger.
type Snapshot struct {
	Offset    time.Duration     `json:"Offset"`
	Accounts  map[string]uint64 `json:"Accounts"`
	Transfers []Transfer        `json:"Transfers"`
}

// Snapshotter is a ledger whose state can be captured for a checkpoint.
type Snapshotter interface {
	Snapshot() *Snapshot
}

// Snapshot returns a copy of the ledger state.
func (m *Memory) Snapshot() *Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()

	s := &Snapshot{
		Offset:    m.offset,
		Accounts:  make(map[string]uint64, len(m.accounts)),
		Transfers: make([]Transfer, len(m.transfers)),
	}
	for address, balance := range m.accounts {
		s.Accounts[address] = balance
	}
	copy(s.Transfers, m.transfers)

	return s
}

// Save writes the ledger under the given name.
func (m *Memory) Save(ctx context.Context, dbConn *db.DB, name string) error {
	return SaveSnapshot(ctx, dbConn, name, m.Snapshot())
}

// SaveSnapshot writes a captured ledger state under the given name.
func SaveSnapshot(ctx context.Context, dbConn *db.DB, name string, s *Snapshot) error {
	ctx, span := trace.StartSpan(ctx, "internal.ledger.Save")
	defer span.End()

	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal ledger")
	}

	return dbConn.Put(ctx, buildStoragePath(name), data)
}

// Load reads a ledger saved under the given name. The ledger runs on clock,
// shifted by the saved offset.
func Load(ctx context.Context, dbConn *db.DB, name string,
	clock func() time.Time) (*Memory, error) {

	ctx, span := trace.StartSpan(ctx, "internal.ledger.Load")
	defer span.End()

	data, err := dbConn.Fetch(ctx, buildStoragePath(name))
	if err != nil {
		if errors.Cause(err) == db.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "fetch ledger")
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "unmarshal ledger")
	}

	result := NewMemoryWithClock(clock)
	result.offset = s.Offset
	result.transfers = s.Transfers
	if s.Accounts != nil {
		result.accounts = s.Accounts
	}

	return result, nil
}

// Returns the storage path prefix for a given identifier.
func buildStoragePath(name string) string {
	return fmt.Sprintf("%s/%s", storageKey, name)
}
