package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tokenized/voting-contract/cmd/votingd/bootstrap"
	"github.com/tokenized/voting-contract/internal/contract"
	"github.com/tokenized/voting-contract/internal/ledger"
	"github.com/tokenized/voting-contract/internal/platform/config"
	"github.com/tokenized/voting-contract/internal/platform/db"
	"github.com/tokenized/voting-contract/internal/platform/logger"
	"github.com/tokenized/voting-contract/internal/platform/state"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/gorilla/mux"
)

// Voting serves the contract operations.
type Voting struct {
	Contract *contract.Contract
	Ledger   *ledger.Memory
	MasterDB *db.DB
	Params   *chaincfg.Params
}

// AddVotersRequest is the body of POST /voters.
type AddVotersRequest struct {
	Addresses []string `json:"addresses"`
}

// CreatePollRequest is the body of POST /polls.
type CreatePollRequest struct {
	Name       string   `json:"name"`
	Candidates []string `json:"candidates"`
	Wallets    []string `json:"wallets"`
}

// VoteRequest is the body of POST /polls/{name}/votes.
type VoteRequest struct {
	Candidate int    `json:"candidate"`
	Payment   uint64 `json:"payment"`
}

// FundRequest is the body of POST /ledger/fund.
type FundRequest struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// AdvanceRequest is the body of POST /ledger/advance.
type AdvanceRequest struct {
	Duration string `json:"duration"`
}

// PollResponse is a poll with its candidates.
type PollResponse struct {
	Name              string              `json:"name"`
	Status            string              `json:"status"`
	CreatedAt         time.Time           `json:"created_at"`
	EndTime           time.Time           `json:"end_time"`
	Balance           uint64              `json:"balance"`
	CommissionReserve uint64              `json:"commission_reserve"`
	Candidates        []CandidateResponse `json:"candidates"`
	Voters            []string            `json:"voters"`
}

// CandidateResponse is a candidate of a poll.
type CandidateResponse struct {
	Name   string `json:"name"`
	Wallet string `json:"wallet"`
	Votes  uint64 `json:"votes"`
}

// StatusResponse is the status of a poll after close.
type StatusResponse struct {
	Status string `json:"status"`
}

// AmountResponse is an amount in base units.
type AmountResponse struct {
	Amount  uint64 `json:"amount"`
	Display string `json:"display"`
}

func newAmountResponse(amount uint64) AmountResponse {
	return AmountResponse{Amount: amount, Display: btcutil.Amount(amount).String()}
}

func newPollResponse(p *state.Poll) PollResponse {
	result := PollResponse{
		Name:              p.Name,
		Status:            p.Status.String(),
		CreatedAt:         p.CreatedAt,
		EndTime:           p.EndTime,
		Balance:           p.Balance,
		CommissionReserve: p.CommissionReserve,
		Candidates:        make([]CandidateResponse, len(p.Candidates)),
		Voters:            p.Voters,
	}

	for i, c := range p.Candidates {
		result.Candidates[i] = CandidateResponse{
			Name:   c.Name,
			Wallet: c.PayoutAddress,
			Votes:  c.VoteCount,
		}
	}

	return result
}

// caller decodes the caller address header.
func (h *Voting) caller(w http.ResponseWriter, r *http.Request) (btcutil.Address, bool) {
	address, err := config.DecodeAddress(r.Header.Get(HeaderCaller), h.Params)
	if err != nil {
		respondBadRequest(w, "invalid "+HeaderCaller+" : "+err.Error())
		return nil, false
	}

	return address, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondBadRequest(w, "invalid body : "+err.Error())
		return false
	}
	return true
}

// checkpoint persists state after a mutation. The mutation already took
// effect, so a failure is logged and not reported to the caller.
func (h *Voting) checkpoint(ctx context.Context) {
	if h.MasterDB == nil {
		return
	}

	if err := bootstrap.Checkpoint(ctx, h.MasterDB, h.Contract); err != nil {
		logger.Error(ctx, "Failed to checkpoint : %s", err)
	}
}

// Health checks the storage.
func (h *Voting) Health(w http.ResponseWriter, r *http.Request) {
	if h.MasterDB != nil {
		if err := h.MasterDB.StatusCheck(r.Context()); err != nil {
			logger.Error(r.Context(), "Health check failed : %s", err)
			respond(w, http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable"})
			return
		}
	}

	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Balance returns the funds held in custody.
func (h *Voting) Balance(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, newAmountResponse(h.Contract.Balance()))
}

// AddVoters registers voters.
func (h *Voting) AddVoters(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req AddVotersRequest
	if !decode(w, r, &req) {
		return
	}

	addresses, err := config.DecodeAddresses(req.Addresses, h.Params)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	if err := h.Contract.AddVoters(r.Context(), caller, addresses); err != nil {
		respondError(w, r, err)
		return
	}
	h.checkpoint(r.Context())

	respond(w, http.StatusOK, map[string]int{"voters": len(h.Contract.Voters())})
}

// Voters lists the registered voters.
func (h *Voting) Voters(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.Contract.Voters())
}

// CreatePoll opens a poll.
func (h *Voting) CreatePoll(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req CreatePollRequest
	if !decode(w, r, &req) {
		return
	}

	wallets, err := config.DecodeAddresses(req.Wallets, h.Params)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	if err := h.Contract.CreatePoll(r.Context(), caller, req.Name, req.Candidates,
		wallets); err != nil {
		respondError(w, r, err)
		return
	}
	h.checkpoint(r.Context())

	p, err := h.Contract.Poll(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, newPollResponse(p))
}

// Polls lists poll names in creation order.
func (h *Voting) Polls(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.Contract.Polls(r.Context()))
}

// Poll returns a poll.
func (h *Voting) Poll(w http.ResponseWriter, r *http.Request) {
	p, err := h.Contract.Poll(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, newPollResponse(p))
}

// Candidates returns the candidate names of a poll.
func (h *Voting) Candidates(w http.ResponseWriter, r *http.Request) {
	names, err := h.Contract.PollCandidates(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, names)
}

// Vote casts the caller's vote.
func (h *Voting) Vote(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req VoteRequest
	if !decode(w, r, &req) {
		return
	}

	name := mux.Vars(r)["name"]
	if err := h.Contract.Vote(r.Context(), caller, name, req.Candidate, req.Payment); err != nil {
		respondError(w, r, err)
		return
	}
	h.checkpoint(r.Context())

	respond(w, http.StatusOK, newAmountResponse(req.Payment))
}

// Close closes a poll.
func (h *Voting) Close(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	status, err := h.Contract.ClosePoll(r.Context(), caller, mux.Vars(r)["name"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.checkpoint(r.Context())

	respond(w, http.StatusOK, StatusResponse{Status: status.String()})
}

// Winner returns the result of a closed poll.
func (h *Voting) Winner(w http.ResponseWriter, r *http.Request) {
	result, err := h.Contract.PollWinner(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, result)
}

// WithdrawCommission pays a poll commission to the administrator.
func (h *Voting) WithdrawCommission(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	amount, err := h.Contract.WithdrawPollCommission(r.Context(), caller, mux.Vars(r)["name"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.checkpoint(r.Context())

	respond(w, http.StatusOK, newAmountResponse(amount))
}

// Account returns the ledger balance of an address.
func (h *Voting) Account(w http.ResponseWriter, r *http.Request) {
	address, err := config.DecodeAddress(mux.Vars(r)["address"], h.Params)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	respond(w, http.StatusOK, newAmountResponse(h.Ledger.Balance(address.EncodeAddress())))
}

// Fund mints funds on the reference ledger.
func (h *Voting) Fund(w http.ResponseWriter, r *http.Request) {
	var req FundRequest
	if !decode(w, r, &req) {
		return
	}

	address, err := config.DecodeAddress(req.Address, h.Params)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	if _, err := h.Ledger.Mint(r.Context(), address.EncodeAddress(), req.Amount); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	h.checkpoint(r.Context())

	respond(w, http.StatusOK, newAmountResponse(h.Ledger.Balance(address.EncodeAddress())))
}

// Advance moves reference ledger time forward.
func (h *Voting) Advance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if !decode(w, r, &req) {
		return
	}

	d, err := time.ParseDuration(req.Duration)
	if err != nil || d <= 0 {
		respondBadRequest(w, "invalid duration : "+req.Duration)
		return
	}

	h.Ledger.Advance(d)
	h.checkpoint(r.Context())

	respond(w, http.StatusOK, map[string]time.Time{"now": h.Ledger.Now()})
}
