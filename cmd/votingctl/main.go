package main

import (
	"github.com/tokenized/voting-contract/cmd/votingctl/cmd"
)

// Voting Contract CLI
func main() {
	cmd.Execute()
}
