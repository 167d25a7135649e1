package ledger

import (
	"errors"
	"time"
)

// Wallet é uma carteira por (usuário, moeda). O mesmo shape atende o saldo
// virtual de apostas e os saldos fiat/cripto: a moeda parametriza o ledger.
type Wallet struct {
	ID           string
	UserID       string
	Currency     string
	BalanceCents int64
	Version      int64 // incrementado a cada mutação bem-sucedida (CAS)

	// Agregados de vida inteira
	TotalWageredCents   int64
	TotalWonCents       int64
	TotalDepositedCents int64
	TotalWithdrawnCents int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TxType classifica a mutação de saldo registrada no ledger.
type TxType string

const (
	TxStake      TxType = "stake"      // débito de aposta
	TxPayout     TxType = "payout"     // crédito de prêmio
	TxRefund     TxType = "refund"     // devolução de stake (aposta void)
	TxCashout    TxType = "cashout"    // crédito de saída antecipada
	TxDeposit    TxType = "deposit"    // entrada externa
	TxWithdrawal TxType = "withdrawal" // saída externa
	TxBonus      TxType = "bonus"      // crédito promocional
)

// Transaction é o registro imutável (append-only) de uma mutação de saldo.
// balance_after = balance_before + amount, sempre.
type Transaction struct {
	ID                 string
	WalletID           string
	UserID             string
	Type               TxType
	Currency           string
	AmountCents        int64 // com sinal: débito negativo, crédito positivo
	BalanceBeforeCents int64
	BalanceAfterCents  int64
	ReferenceType      string // "bet", "deposit", "withdrawal", ...
	ReferenceID        string
	Status             string
	CreatedAt          time.Time
}

// Entry descreve uma mutação a aplicar na carteira.
type Entry struct {
	UserID        string
	Currency      string
	Type          TxType
	AmountCents   int64 // com sinal
	ReferenceType string
	ReferenceID   string
}

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("wallet version conflict")
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// expectedDebit define o sinal esperado por tipo. Uma Entry cujo sinal não
// bate com o tipo é rejeitada antes de tocar o banco.
func expectedDebit(t TxType) bool {
	return t == TxStake || t == TxWithdrawal
}

// nextState aplica uma Entry sobre o estado atual da carteira, sem efeitos.
// Retorna a carteira com saldo/versão/agregados novos e a Transaction a
// registrar. Mantido puro para os invariantes de contabilidade serem
// testáveis sem banco.
func nextState(w Wallet, e Entry, txID string, now time.Time) (Wallet, Transaction, error) {
	if e.AmountCents == 0 {
		return w, Transaction{}, ErrInvalidAmount
	}
	if expectedDebit(e.Type) != (e.AmountCents < 0) {
		return w, Transaction{}, ErrInvalidAmount
	}

	before := w.BalanceCents
	after := before + e.AmountCents
	if after < 0 {
		return w, Transaction{}, ErrInsufficientFunds
	}

	w.BalanceCents = after
	w.Version++
	w.UpdatedAt = now

	switch e.Type {
	case TxStake:
		w.TotalWageredCents += -e.AmountCents
	case TxPayout, TxCashout:
		w.TotalWonCents += e.AmountCents
	case TxDeposit:
		w.TotalDepositedCents += e.AmountCents
	case TxWithdrawal:
		w.TotalWithdrawnCents += -e.AmountCents
	}

	t := Transaction{
		ID:                 txID,
		WalletID:           w.ID,
		UserID:             w.UserID,
		Type:               e.Type,
		Currency:           w.Currency,
		AmountCents:        e.AmountCents,
		BalanceBeforeCents: before,
		BalanceAfterCents:  after,
		ReferenceType:      e.ReferenceType,
		ReferenceID:        e.ReferenceID,
		Status:             "completed",
		CreatedAt:          now,
	}
	return w, t, nil
}
