package cmd

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/tokenized/voting-contract/cmd/votingd/bootstrap"
	"github.com/tokenized/voting-contract/internal/contract"
	"github.com/tokenized/voting-contract/internal/events"
	"github.com/tokenized/voting-contract/internal/ledger"
	"github.com/tokenized/voting-contract/internal/platform/config"
	"github.com/tokenized/voting-contract/internal/platform/db"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagCaller = "caller"
)

var ctlCmd = &cobra.Command{
	Use:   "votingctl",
	Short: "Voting Contract CLI",
}

func Execute() {
	ctlCmd.PersistentFlags().String(FlagCaller, "", "address of the caller")

	ctlCmd.AddCommand(cmdInit)
	ctlCmd.AddCommand(cmdAddVoters)
	ctlCmd.AddCommand(cmdCreatePoll)
	ctlCmd.AddCommand(cmdVote)
	ctlCmd.AddCommand(cmdClose)
	ctlCmd.AddCommand(cmdWinner)
	ctlCmd.AddCommand(cmdWithdraw)
	ctlCmd.AddCommand(cmdPolls)
	ctlCmd.AddCommand(cmdCandidates)
	ctlCmd.AddCommand(cmdBalance)
	ctlCmd.AddCommand(cmdFund)
	ctlCmd.AddCommand(cmdAdvance)
	ctlCmd.AddCommand(cmdState)
	ctlCmd.AddCommand(cmdKeygen)
	ctlCmd.AddCommand(cmdDerive)

	if err := ctlCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is one loaded checkpoint.
type session struct {
	ctx      context.Context
	cfg      *config.Config
	params   *chaincfg.Params
	masterDB *db.DB
	ledger   *ledger.Memory
	contract *contract.Contract
}

func load() (*session, error) {
	ctx := bootstrap.NewContextWithDevelopmentLogger()
	cfg := bootstrap.NewConfigFromEnv(ctx)

	s := &session{
		ctx:    ctx,
		cfg:    cfg,
		params: config.NewChainParams(cfg.Bitcoin.Network),
	}

	admin, custody := bootstrap.NewContractAddresses(ctx, cfg, s.params)
	s.masterDB = bootstrap.NewMasterDB(ctx, cfg)

	var err error
	s.ledger, err = bootstrap.LoadLedger(ctx, s.masterDB, custody.EncodeAddress())
	if err != nil {
		return nil, err
	}

	s.contract, err = bootstrap.LoadContract(ctx, s.masterDB, contract.NewConfig(cfg), s.ledger,
		events.LogListener{}, admin, custody)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *session) save() error {
	defer s.masterDB.Close()
	return bootstrap.Checkpoint(s.ctx, s.masterDB, s.contract)
}

// caller decodes the --caller flag.
func (s *session) caller(c *cobra.Command) (btcutil.Address, error) {
	value, _ := c.Flags().GetString(FlagCaller)
	if len(value) == 0 {
		return nil, errors.New("Missing --caller")
	}

	return config.DecodeAddress(value, s.params)
}

// mutate runs an operation as the caller and saves the checkpoint when it
// succeeds.
func mutate(c *cobra.Command, op func(s *session, caller btcutil.Address) error) error {
	s, err := load()
	if err != nil {
		return err
	}

	caller, err := s.caller(c)
	if err != nil {
		return err
	}

	if err := op(s, caller); err != nil {
		return err
	}

	return s.save()
}

// parseAmount reads base units, or a decimal amount when it has a point.
func parseAmount(value string) (uint64, error) {
	if strings.Contains(value, ".") {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse amount")
		}

		amount, err := btcutil.NewAmount(f)
		if err != nil {
			return 0, errors.Wrap(err, "parse amount")
		}
		if amount < 0 {
			return 0, errors.New("Negative amount")
		}

		return uint64(amount), nil
	}

	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse amount")
	}

	return amount, nil
}
