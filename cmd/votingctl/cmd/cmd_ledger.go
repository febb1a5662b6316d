package cmd

import (
	"fmt"
	"time"

	"github.com/tokenized/voting-contract/internal/platform/config"

	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdBalance = &cobra.Command{
	Use:   "balance [address]",
	Short: "Prints the custody balance, or the ledger balance of an address",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) > 1 {
			return errors.New("Incorrect argument count")
		}

		s, err := load()
		if err != nil {
			return err
		}
		defer s.masterDB.Close()

		if len(args) == 0 {
			fmt.Printf("Custody : %s\n", btcutil.Amount(s.contract.Balance()))
			return nil
		}

		address, err := config.DecodeAddress(args[0], s.params)
		if err != nil {
			return err
		}

		fmt.Printf("%s : %s\n", address.EncodeAddress(),
			btcutil.Amount(s.ledger.Balance(address.EncodeAddress())))
		return nil
	},
}

var cmdFund = &cobra.Command{
	Use:   "fund <address> <amount>",
	Short: "Mints funds on the reference ledger",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}

		s, err := load()
		if err != nil {
			return err
		}

		address, err := config.DecodeAddress(args[0], s.params)
		if err != nil {
			return err
		}

		txid, err := s.ledger.Mint(s.ctx, address.EncodeAddress(), amount)
		if err != nil {
			return err
		}

		fmt.Printf("Funded %s with %s in %s\n", address.EncodeAddress(), btcutil.Amount(amount),
			txid)
		return s.save()
	},
}

var cmdAdvance = &cobra.Command{
	Use:   "advance <duration>",
	Short: "Moves reference ledger time forward",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("Incorrect argument count")
		}

		d, err := time.ParseDuration(args[0])
		if err != nil {
			return errors.Wrap(err, "parse duration")
		}

		s, err := load()
		if err != nil {
			return err
		}

		s.ledger.Advance(d)
		fmt.Printf("Ledger time : %s\n", s.ledger.Now())
		return s.save()
	},
}
