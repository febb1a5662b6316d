package main

import (
	"context"

	"github.com/tokenized/voting-contract/cmd/votingd/bootstrap"
	"github.com/tokenized/voting-contract/internal/contract"
	"github.com/tokenized/voting-contract/internal/platform/db"
	"github.com/tokenized/voting-contract/internal/platform/logger"
)

// settlementReport logs the polls that passed their end time and are waiting
// for a participant to close them, then checkpoints state. It never closes a
// poll itself.
type settlementReport struct {
	contract *contract.Contract
	masterDB *db.DB
}

func (s *settlementReport) Run(ctx context.Context) {
	for _, name := range s.contract.AwaitingSettlement(ctx) {
		logger.Warn(logger.ContextWithPoll(ctx, name), "Poll ended and awaits close")
	}

	if err := bootstrap.Checkpoint(ctx, s.masterDB, s.contract); err != nil {
		logger.Error(ctx, "Failed to checkpoint : %s", err)
	}
}
