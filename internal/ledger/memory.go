package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	"github.com/tokenized/voting-contract/internal/platform/logger"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	sync "github.com/sasha-s/go-deadlock"
	"go.opencensus.io/trace"
)

// MintAddress is the sender recorded for funds created by Mint.
const MintAddress = "mint"

// Transfer is an entry in the ledger journal.
type Transfer struct {
	ID        chainhash.Hash `json:"ID"`
	Sequence  uint64         `json:"Sequence"`
	From      string         `json:"From"`
	To        string         `json:"To"`
	Amount    uint64         `json:"Amount"`
	Timestamp time.Time      `json:"Timestamp"`
}

// Memory is an in-process reference ledger. Time is the wall clock shifted by
// an offset that Advance moves forward, so deadlines can be reached on demand.
type Memory struct {
	lock      sync.Mutex
	clock     func() time.Time
	offset    time.Duration
	accounts  map[string]uint64
	transfers []Transfer
}

// NewMemory returns an empty ledger on the wall clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock returns an empty ledger on the given clock, or the wall
// clock if nil.
func NewMemoryWithClock(clock func() time.Time) *Memory {
	if clock == nil {
		clock = time.Now
	}

	return &Memory{
		clock:    clock,
		accounts: make(map[string]uint64),
	}
}

// Now returns the current ledger time.
func (m *Memory) Now() time.Time {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.now()
}

func (m *Memory) now() time.Time {
	return m.clock().Add(m.offset)
}

// Advance moves ledger time forward.
func (m *Memory) Advance(d time.Duration) {
	if d <= 0 {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.offset += d
}

// Balance returns the amount held by an address.
func (m *Memory) Balance(address string) uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.accounts[address]
}

// Transfer moves amount between addresses. The balance check happens before
// any account is touched.
func (m *Memory) Transfer(ctx context.Context, from, to string,
	amount uint64) (*chainhash.Hash, error) {

	ctx, span := trace.StartSpan(ctx, "internal.ledger.Transfer")
	defer span.End()

	if amount == 0 || len(from) == 0 || len(to) == 0 {
		return nil, errors.Wrapf(ErrInvalidTransfer, "%s -> %s : %d", from, to, amount)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.accounts[from] < amount {
		return nil, errors.Wrapf(ErrInsufficientFunds, "%s holds %s, needs %s", from,
			btcutil.Amount(m.accounts[from]), btcutil.Amount(amount))
	}
	if m.accounts[to]+amount < m.accounts[to] {
		return nil, errors.Wrapf(ErrInvalidTransfer, "balance overflow for %s", to)
	}

	m.accounts[from] -= amount
	m.accounts[to] += amount

	id := m.record(from, to, amount)

	logger.Verbose(ctx, "Ledger transfer %s : %s -> %s : %s", id, from, to, btcutil.Amount(amount))
	return &id, nil
}

// Mint creates funds for an address. It is the faucet of the reference
// ledger and is not part of the Ledger interface.
func (m *Memory) Mint(ctx context.Context, to string, amount uint64) (*chainhash.Hash, error) {
	if amount == 0 || len(to) == 0 {
		return nil, errors.Wrapf(ErrInvalidTransfer, "mint %d to %q", amount, to)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.accounts[to]+amount < m.accounts[to] {
		return nil, errors.Wrapf(ErrInvalidTransfer, "balance overflow for %s", to)
	}

	m.accounts[to] += amount
	id := m.record(MintAddress, to, amount)

	logger.Info(ctx, "Ledger mint %s : %s : %s", id, to, btcutil.Amount(amount))
	return &id, nil
}

// Transfers returns a copy of the journal.
func (m *Memory) Transfers() []Transfer {
	m.lock.Lock()
	defer m.lock.Unlock()

	result := make([]Transfer, len(m.transfers))
	copy(result, m.transfers)
	return result
}

// record appends a journal entry. The lock must be held.
func (m *Memory) record(from, to string, amount uint64) chainhash.Hash {
	seq := uint64(len(m.transfers))
	now := m.now()

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, seq)
	buf.WriteString(from)
	buf.WriteByte(0)
	buf.WriteString(to)
	buf.WriteByte(0)
	binary.Write(&buf, binary.BigEndian, amount)
	binary.Write(&buf, binary.BigEndian, now.UnixNano())

	id := chainhash.DoubleHashH(buf.Bytes())

	m.transfers = append(m.transfers, Transfer{
		ID:        id,
		Sequence:  seq,
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: now,
	})

	return id
}
