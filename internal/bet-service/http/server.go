package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/bet-core/internal/bet-service/cashout"
	"github.com/radieske/bet-core/internal/bet-service/dto"
	"github.com/radieske/bet-core/internal/bet-service/repo"
	"github.com/radieske/bet-core/internal/bet-service/service"
	"github.com/radieske/bet-core/internal/bet-service/validator"
	"github.com/radieske/bet-core/internal/ledger"
)

type Server struct {
	log *zap.Logger
	svc *service.Service
}

func NewServer(log *zap.Logger, svc *service.Service) *Server {
	return &Server{log: log, svc: svc}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.placeBet) // POST
	mux.HandleFunc("/bets/", s.betByID) // GET /bets/{id}, POST /bets/{id}/cashout
	return mux
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "")
		return
	}
	if req.UserID == "" || req.Currency == "" || len(req.Legs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid payload", "")
		return
	}

	legs := make([]validator.Leg, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = validator.Leg{MatchID: l.MatchID, MarketID: l.MarketID, OddID: l.OddID, Selection: l.Selection}
	}

	placed, err := s.svc.PlaceBet(r.Context(), service.PlaceBetInput{
		UserID:         req.UserID,
		Type:           req.Type,
		StakeCents:     req.StakeCents,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Legs:           legs,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		Bet:             betView(placed.Bet, placed.Selections, nil),
		NewBalanceCents: placed.Wallet.BalanceCents,
		Replayed:        placed.Replayed,
	})
}

// betByID despacha GET /bets/{id} e POST /bets/{id}/cashout
func (s *Server) betByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/bets/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "betId required", "")
		return
	}

	if r.Method == http.MethodPost && strings.HasSuffix(rest, "/cashout") {
		s.cashOut(w, r, strings.TrimSuffix(rest, "/cashout"))
		return
	}
	if r.Method == http.MethodGet && !strings.Contains(rest, "/") {
		s.getBet(w, r, rest)
		return
	}
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request, betID string) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required", "")
		return
	}
	view, err := s.svc.GetBet(r.Context(), userID, betID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, betView(view.Bet, view.Selections, view.CashoutCents))
}

func (s *Server) cashOut(w http.ResponseWriter, r *http.Request, betID string) {
	var req dto.CashOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", "")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required", "")
		return
	}

	res, err := s.svc.CashOut(r.Context(), req.UserID, betID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	sels, _ := s.svc.GetBet(r.Context(), req.UserID, betID)
	writeJSON(w, http.StatusOK, dto.CashOutResponse{
		CashoutCents:    res.AmountCents,
		Bet:             betView(res.Bet, sels.Selections, nil),
		NewBalanceCents: res.Wallet.BalanceCents,
	})
}

// writeDomainError mapeia a taxonomia de erros do core pra códigos HTTP.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr *validator.ValidationError
	var nferr *validator.NotFoundError
	var serr *validator.StaleOddsError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation failed", verr.Reason)
	case errors.As(err, &nferr):
		writeError(w, http.StatusNotFound, nferr.Error(), "")
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "bet not found", "")
	case errors.As(err, &serr):
		writeError(w, http.StatusConflict, "stale odds", serr.Reason)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient funds", "")
	case errors.Is(err, ledger.ErrConflict):
		// mutação não aplicou; cliente re-lê o saldo e reenvia a operação
		writeError(w, http.StatusConflict, "balance changed, retry", "")
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, cashout.ErrNotEligible):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "")
	default:
		s.log.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func betView(b repo.Bet, sels []repo.BetSelection, quote *int64) dto.BetView {
	out := dto.BetView{
		ID:                   b.ID,
		UserID:               b.UserID,
		Type:                 b.Type,
		StakeCents:           b.StakeCents,
		Currency:             b.Currency,
		TotalOdds:            b.TotalOdds,
		PotentialPayoutCents: b.PotentialPayoutCents,
		PayoutCents:          b.PayoutCents,
		Status:               b.Status,
		CreatedAt:            b.CreatedAt,
		SettledAt:            b.SettledAt,
		CashoutCents:         quote,
	}
	for _, s := range sels {
		out.Selections = append(out.Selections, dto.BetSelectionView{
			ID:              s.ID,
			MatchID:         s.MatchID,
			MarketID:        s.MarketID,
			OddID:           s.OddID,
			Selection:       s.Selection,
			OddsAtPlacement: s.OddsAtPlacement,
			Status:          s.Status,
			SettledAt:       s.SettledAt,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, reason string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Reason: reason})
}
