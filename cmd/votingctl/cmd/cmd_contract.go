package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tokenized/voting-contract/internal/platform/config"

	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	FlagPayment = "payment"
)

var cmdInit = &cobra.Command{
	Use:   "init",
	Short: "Creates the contract configured in the environment",
	RunE: func(c *cobra.Command, args []string) error {
		s, err := load()
		if err != nil {
			return err
		}

		fmt.Printf("Contract : %s\n", s.contract.Address())
		fmt.Printf("Administrator : %s\n", s.contract.Administrator())
		return s.save()
	},
}

var cmdAddVoters = &cobra.Command{
	Use:   "add-voters <address> [address...]",
	Short: "Registers voters",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("Missing addresses")
		}

		return mutate(c, func(s *session, caller btcutil.Address) error {
			addresses, err := config.DecodeAddresses(args, s.params)
			if err != nil {
				return err
			}

			if err := s.contract.AddVoters(s.ctx, caller, addresses); err != nil {
				return err
			}

			fmt.Printf("Registered voters : %d\n", len(s.contract.Voters()))
			return nil
		})
	},
}

var cmdCreatePoll = &cobra.Command{
	Use:   "create-poll <name> <candidate=wallet> [candidate=wallet...]",
	Short: "Opens a poll",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("Missing poll name")
		}

		return mutate(c, func(s *session, caller btcutil.Address) error {
			var names []string
			var wallets []btcutil.Address
			for _, arg := range args[1:] {
				parts := strings.SplitN(arg, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("Candidate %q is not name=wallet", arg)
				}

				wallet, err := config.DecodeAddress(parts[1], s.params)
				if err != nil {
					return err
				}

				names = append(names, parts[0])
				wallets = append(wallets, wallet)
			}

			if err := s.contract.CreatePoll(s.ctx, caller, args[0], names, wallets); err != nil {
				return err
			}

			p, err := s.contract.Poll(s.ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Poll %q ends %s\n", p.Name, p.EndTime)
			return nil
		})
	},
}

var cmdVote = &cobra.Command{
	Use:   "vote <poll> <candidate index>",
	Short: "Casts a vote paid from the caller",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errors.New("Incorrect argument count")
		}

		candidate, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "parse candidate index")
		}

		return mutate(c, func(s *session, caller btcutil.Address) error {
			payment := s.cfg.Contract.VoteCost
			if value, _ := c.Flags().GetString(FlagPayment); len(value) > 0 {
				payment, err = parseAmount(value)
				if err != nil {
					return err
				}
			}

			if err := s.contract.Vote(s.ctx, caller, args[0], candidate, payment); err != nil {
				return err
			}

			fmt.Printf("Voted for candidate %d paying %s\n", candidate, btcutil.Amount(payment))
			return nil
		})
	},
}

var cmdClose = &cobra.Command{
	Use:   "close <poll>",
	Short: "Closes a poll after its end time",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("Incorrect argument count")
		}

		return mutate(c, func(s *session, caller btcutil.Address) error {
			status, err := s.contract.ClosePoll(s.ctx, caller, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Status : %s\n", status)
			return nil
		})
	},
}

var cmdWinner = &cobra.Command{
	Use:   "winner <poll>",
	Short: "Prints the result of a closed poll",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("Incorrect argument count")
		}

		s, err := load()
		if err != nil {
			return err
		}
		defer s.masterDB.Close()

		result, err := s.contract.PollWinner(s.ctx, args[0])
		if err != nil {
			return err
		}

		if !result.HasWinner {
			fmt.Printf("No winner : %s\n", result.Status)
			return nil
		}

		fmt.Printf("Winner : %s with %d votes\n", result.Name, result.Votes)
		return nil
	},
}

var cmdWithdraw = &cobra.Command{
	Use:   "withdraw <poll>",
	Short: "Withdraws the commission of a closed poll",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("Incorrect argument count")
		}

		return mutate(c, func(s *session, caller btcutil.Address) error {
			amount, err := s.contract.WithdrawPollCommission(s.ctx, caller, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Withdrew %s\n", btcutil.Amount(amount))
			return nil
		})
	},
}

var cmdPolls = &cobra.Command{
	Use:   "polls",
	Short: "Lists polls in creation order",
	RunE: func(c *cobra.Command, args []string) error {
		s, err := load()
		if err != nil {
			return err
		}
		defer s.masterDB.Close()

		for _, name := range s.contract.Polls(s.ctx) {
			p, err := s.contract.Poll(s.ctx, name)
			if err != nil {
				return err
			}

			fmt.Printf("%s : %s, %d votes, balance %s, ends %s\n", p.Name, p.Status,
				p.TotalVotes(), btcutil.Amount(p.Balance), p.EndTime)
		}

		return nil
	},
}

var cmdCandidates = &cobra.Command{
	Use:   "candidates <poll>",
	Short: "Lists the candidates of a poll",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("Incorrect argument count")
		}

		s, err := load()
		if err != nil {
			return err
		}
		defer s.masterDB.Close()

		names, err := s.contract.PollCandidates(s.ctx, args[0])
		if err != nil {
			return err
		}

		for i, name := range names {
			fmt.Printf("%d : %s\n", i, name)
		}

		return nil
	},
}

func init() {
	cmdVote.Flags().String(FlagPayment, "", "payment in base units, or decimal (0.01)")
}
