package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/bet-core/internal/ledger"
	"github.com/radieske/bet-core/internal/wallet-service/dto"
)

// Server expõe as operações de carteira (deposito, saque, saldo, extrato)
// sobre o ledger. As mutações seguem o contrato de CAS: conflito de versão
// volta 409 e o cliente re-lê o saldo antes de reenviar.
type Server struct {
	log    *zap.Logger
	wallet *ledger.Transactor
}

func NewServer(log *zap.Logger, wallet *ledger.Transactor) *Server {
	return &Server{log: log, wallet: wallet}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallet", s.getWallet)               // GET ?userId=...&currency=...
	mux.HandleFunc("/wallet/deposit", s.deposit)         // POST
	mux.HandleFunc("/wallet/withdraw", s.withdraw)       // POST
	mux.HandleFunc("/wallet/transactions", s.listTxs)    // GET ?userId=...&currency=...
	return mux
}

// getWallet retorna (ou cria) a carteira do par usuário/moeda
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	currency := r.URL.Query().Get("currency")
	if userID == "" || currency == "" {
		http.Error(w, "userId and currency required", http.StatusBadRequest)
		return
	}
	wal, err := s.wallet.Store().GetOrCreateWallet(r.Context(), userID, currency)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, walletResponse(wal))
}

// deposit credita saldo vindo do provedor externo de pagamento
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Currency == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// carteira criada preguiçosamente no primeiro depósito
	if _, err := s.wallet.Store().GetOrCreateWallet(r.Context(), req.UserID, req.Currency); err != nil {
		s.writeErr(w, err)
		return
	}

	wal, _, err := s.wallet.Apply(r.Context(), ledger.Entry{
		UserID:        req.UserID,
		Currency:      req.Currency,
		Type:          ledger.TxDeposit,
		AmountCents:   req.AmountCents,
		ReferenceType: "deposit",
		ReferenceID:   req.ExternalRef,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, walletResponse(wal))
}

// withdraw debita saldo; saque que estouraria o saldo é rejeitado
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Currency == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	wal, _, err := s.wallet.Apply(r.Context(), ledger.Entry{
		UserID:        req.UserID,
		Currency:      req.Currency,
		Type:          ledger.TxWithdrawal,
		AmountCents:   -req.AmountCents,
		ReferenceType: "withdrawal",
		ReferenceID:   req.ExternalRef,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, walletResponse(wal))
}

// listTxs retorna o extrato imutável da carteira
func (s *Server) listTxs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	currency := r.URL.Query().Get("currency")
	if userID == "" || currency == "" {
		http.Error(w, "userId and currency required", http.StatusBadRequest)
		return
	}

	txs, err := s.wallet.Store().ListTransactions(r.Context(), userID, currency, 50)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	resp := dto.TransactionsResponse{UserID: userID, Currency: currency}
	for _, t := range txs {
		resp.Transactions = append(resp.Transactions, dto.TransactionView{
			ID:                 t.ID,
			Type:               string(t.Type),
			Currency:           t.Currency,
			AmountCents:        t.AmountCents,
			BalanceBeforeCents: t.BalanceBeforeCents,
			BalanceAfterCents:  t.BalanceAfterCents,
			ReferenceType:      t.ReferenceType,
			ReferenceID:        t.ReferenceID,
			Status:             t.Status,
			CreatedAt:          t.CreatedAt,
		})
	}
	writeJSON(w, resp)
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		http.Error(w, "wallet not found", http.StatusNotFound)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		http.Error(w, "insufficient funds", http.StatusPaymentRequired)
	case errors.Is(err, ledger.ErrConflict):
		http.Error(w, "balance changed, retry", http.StatusConflict)
	case errors.Is(err, ledger.ErrInvalidAmount):
		http.Error(w, "invalid amount", http.StatusBadRequest)
	default:
		s.log.Error("wallet op failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func walletResponse(wal ledger.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		UserID:              wal.UserID,
		WalletID:            wal.ID,
		Currency:            wal.Currency,
		BalanceCents:        wal.BalanceCents,
		Version:             wal.Version,
		TotalWageredCents:   wal.TotalWageredCents,
		TotalWonCents:       wal.TotalWonCents,
		TotalDepositedCents: wal.TotalDepositedCents,
		TotalWithdrawnCents: wal.TotalWithdrawnCents,
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
