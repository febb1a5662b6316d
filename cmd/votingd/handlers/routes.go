package handlers

import (
	"net/http"

	"github.com/tokenized/voting-contract/internal/contract"
	"github.com/tokenized/voting-contract/internal/ledger"
	"github.com/tokenized/voting-contract/internal/platform/db"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gorilla/mux"
)

// Config selects optional behavior of the API.
type Config struct {
	Params *chaincfg.Params

	// DevRoutes enables the reference ledger faucet and clock routes.
	DevRoutes bool
}

// API returns a handler for the voting contract routes.
func API(config *Config, c *contract.Contract, l *ledger.Memory, masterDB *db.DB) http.Handler {
	h := &Voting{
		Contract: c,
		Ledger:   l,
		MasterDB: masterDB,
		Params:   config.Params,
	}

	r := mux.NewRouter()
	r.Use(requestContext)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/balance", h.Balance).Methods(http.MethodGet)

	r.HandleFunc("/voters", h.AddVoters).Methods(http.MethodPost)
	r.HandleFunc("/voters", h.Voters).Methods(http.MethodGet)

	r.HandleFunc("/polls", h.CreatePoll).Methods(http.MethodPost)
	r.HandleFunc("/polls", h.Polls).Methods(http.MethodGet)
	r.HandleFunc("/polls/{name}", h.Poll).Methods(http.MethodGet)
	r.HandleFunc("/polls/{name}/candidates", h.Candidates).Methods(http.MethodGet)
	r.HandleFunc("/polls/{name}/votes", h.Vote).Methods(http.MethodPost)
	r.HandleFunc("/polls/{name}/close", h.Close).Methods(http.MethodPost)
	r.HandleFunc("/polls/{name}/winner", h.Winner).Methods(http.MethodGet)
	r.HandleFunc("/polls/{name}/commission", h.WithdrawCommission).Methods(http.MethodPost)

	r.HandleFunc("/ledger/accounts/{address}", h.Account).Methods(http.MethodGet)
	if config.DevRoutes {
		r.HandleFunc("/ledger/fund", h.Fund).Methods(http.MethodPost)
		r.HandleFunc("/ledger/advance", h.Advance).Methods(http.MethodPost)
	}

	return r
}
