package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

const (
	FlagDump = "dump"
)

var cmdState = &cobra.Command{
	Use:   "state",
	Short: "Load and print the contract state.",
	Long:  "Load and print the contract state as JSON, or as a Go value dump with --dump.",
	RunE: func(c *cobra.Command, args []string) error {
		s, err := load()
		if err != nil {
			return err
		}
		defer s.masterDB.Close()

		snapshot := s.contract.Snapshot()

		if dump, _ := c.Flags().GetBool(FlagDump); dump {
			spew.Dump(snapshot)
			return nil
		}

		fmt.Printf("# Contract %s\n\n", snapshot.Address)
		if err := dumpJSON(snapshot); err != nil {
			return err
		}

		fmt.Printf("## Ledger\n\n")
		return dumpJSON(s.ledger.Transfers())
	},
}

func dumpJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Printf("```\n%s\n```\n\n", b)
	return nil
}

func init() {
	cmdState.Flags().Bool(FlagDump, false, "dump Go values instead of JSON")
}
