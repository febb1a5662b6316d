package tests

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/ioutil"
	"os"
	"runtime/debug"
	"testing"

	"github.com/tokenized/voting-contract/internal/platform/db"
	"github.com/tokenized/voting-contract/internal/platform/logger"
	"github.com/tokenized/voting-contract/pkg/storage"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/ripemd160"
)

// Success and failure markers.
const (
	Success = "✓"
	Failed  = "✗"
)

// Key is a generated key with its address.
type Key struct {
	PrivateKey *btcec.PrivateKey
	Address    btcutil.Address
}

// Params are the chain parameters used for generated addresses.
var Params = &chaincfg.MainNetParams

// Context returns a context whose logger writes to the test log.
func Context(t testing.TB) context.Context {
	ctx := logger.ContextWithRequestID(context.Background(), t.Name())
	return logger.ContextWithLogger(ctx, zaptest.NewLogger(t))
}

// NewDB returns a filesystem backed DB removed when the test completes.
func NewDB(t testing.TB) *db.DB {
	t.Helper()

	root, err := ioutil.TempDir("", "voting")
	if err != nil {
		t.Fatalf("\t%s\tFailed to create temp dir : %v", Failed, err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })

	dbConn, err := db.New(&db.StorageConfig{
		Bucket: storage.StandaloneBucket,
		Root:   root,
	})
	if err != nil {
		t.Fatalf("\t%s\tFailed to create DB : %v", Failed, err)
	}

	return dbConn
}

// GenerateKey creates a random key and its P2PKH address.
func GenerateKey() (*Key, error) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "Failed to generate key")
	}

	hash256 := sha256.Sum256(key.PubKey().SerializeCompressed())
	hash160 := ripemd160.New()
	hash160.Write(hash256[:])

	address, err := btcutil.NewAddressPubKeyHash(hash160.Sum(nil), Params)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create key address")
	}

	return &Key{
		PrivateKey: key,
		Address:    address,
	}, nil
}

// GenerateAddress returns a random address and fails the test on error.
func GenerateAddress(t testing.TB) btcutil.Address {
	t.Helper()

	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tFailed to generate key : %v", Failed, err)
	}

	return key.Address
}

// GenerateAddresses returns count random addresses.
func GenerateAddresses(t testing.TB, count int) []btcutil.Address {
	t.Helper()

	result := make([]btcutil.Address, count)
	for i := range result {
		result[i] = GenerateAddress(t)
	}

	return result
}

// Recover is used to prevent panics from allowing the test to cleanup.
func Recover(t testing.TB) {
	if r := recover(); r != nil {
		t.Fatal("Unhandled Exception:", string(debug.Stack()))
	}
}

// Amount formats base units for test output.
func Amount(v uint64) string {
	return fmt.Sprintf("%s (%d)", btcutil.Amount(v), v)
}
