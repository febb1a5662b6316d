package bootstrap

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/tokenized/voting-contract/internal/contract"
	"github.com/tokenized/voting-contract/internal/events"
	"github.com/tokenized/voting-contract/internal/ledger"
	"github.com/tokenized/voting-contract/internal/platform/config"
	"github.com/tokenized/voting-contract/internal/platform/db"
	"github.com/tokenized/voting-contract/internal/platform/logger"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
)

func NewContextWithDevelopmentLogger() context.Context {
	ctx := context.Background()

	_, err := logger.Setup(logger.Config{
		Development: strings.ToUpper(os.Getenv("DEVELOPMENT")) == "TRUE",
		Format:      os.Getenv("LOG_FORMAT"),
		FilePath:    os.Getenv("LOG_FILE_PATH"),
	})
	if err != nil {
		panic(err)
	}

	return logger.ContextWithRequestID(ctx, "")
}

func NewConfigFromEnv(ctx context.Context) *config.Config {
	cfg, err := config.Environment()
	if err != nil {
		logger.Fatal(ctx, "Parsing Config : %s", err)
	}

	// Mask sensitive values
	cfgSafe := config.SafeConfig(*cfg)
	cfgJSON, err := json.MarshalIndent(cfgSafe, "", "    ")
	if err != nil {
		logger.Fatal(ctx, "Marshalling Config to JSON : %s", err)
	}
	logger.Info(ctx, "Config : %v", string(cfgJSON))

	return cfg
}

func NewMasterDB(ctx context.Context, cfg *config.Config) *db.DB {
	masterDB, err := db.New(&db.StorageConfig{
		Region:     cfg.AWS.Region,
		AccessKey:  cfg.AWS.AccessKeyID,
		Secret:     cfg.AWS.SecretAccessKey,
		Bucket:     cfg.Storage.Bucket,
		Root:       cfg.Storage.Root,
		MaxRetries: cfg.AWS.MaxRetries,
	})
	if err != nil {
		logger.Fatal(ctx, "Register DB : %s", err)
	}

	return masterDB
}

// NewContractAddresses decodes the administrator and custody addresses.
func NewContractAddresses(ctx context.Context, cfg *config.Config,
	params *chaincfg.Params) (btcutil.Address, btcutil.Address) {

	admin, err := config.DecodeAddress(cfg.Contract.AdminAddress, params)
	if err != nil {
		logger.Fatal(ctx, "Invalid administrator address : %s", err)
	}

	custody, err := config.DecodeAddress(cfg.Contract.Address, params)
	if err != nil {
		logger.Fatal(ctx, "Invalid contract address : %s", err)
	}

	return admin, custody
}

// LoadLedger restores the reference ledger for the custody address or starts
// an empty one.
func LoadLedger(ctx context.Context, masterDB *db.DB, custody string) (*ledger.Memory, error) {
	l, err := ledger.Load(ctx, masterDB, custody, nil)
	if err == nil {
		logger.Info(ctx, "Restored ledger with %d transfers", len(l.Transfers()))
		return l, nil
	}
	if err != ledger.ErrNotFound {
		return nil, errors.Wrap(err, "load ledger")
	}

	logger.Info(ctx, "Starting empty ledger")
	return ledger.NewMemory(), nil
}

// LoadContract restores the contract stored for the custody address or
// creates it.
func LoadContract(ctx context.Context, masterDB *db.DB, cfg contract.Config, l ledger.Ledger,
	listener events.Listener, admin, custody btcutil.Address) (*contract.Contract, error) {

	c, err := contract.Load(ctx, masterDB, cfg, l, listener, custody.EncodeAddress())
	if err == nil {
		if !c.IsAdministrator(admin) {
			return nil, errors.Errorf("stored administrator %s does not match %s",
				c.Administrator(), admin.EncodeAddress())
		}

		logger.Info(ctx, "Restored contract %s with %d polls", c.Address(), len(c.Polls(ctx)))
		return c, nil
	}
	if errors.Cause(err) != contract.ErrNotFound {
		return nil, errors.Wrap(err, "load contract")
	}

	c, err = contract.New(ctx, cfg, l, listener, admin, custody)
	if err != nil {
		return nil, errors.Wrap(err, "create contract")
	}

	if err := contract.Save(ctx, masterDB, c.Snapshot()); err != nil {
		return nil, errors.Wrap(err, "save contract")
	}

	return c, nil
}

// Checkpoint saves the contract and its ledger as one consistent snapshot.
func Checkpoint(ctx context.Context, masterDB *db.DB, c *contract.Contract) error {
	if err := c.Checkpoint(ctx, masterDB); err != nil {
		return errors.Wrap(err, "checkpoint")
	}

	return nil
}
