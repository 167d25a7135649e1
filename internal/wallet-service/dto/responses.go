package dto

import "time"

type WalletResponse struct {
	UserID              string `json:"userId"`
	WalletID            string `json:"walletId"`
	Currency            string `json:"currency"`
	BalanceCents        int64  `json:"balance_cents"`
	Version             int64  `json:"version"`
	TotalWageredCents   int64  `json:"total_wagered_cents"`
	TotalWonCents       int64  `json:"total_won_cents"`
	TotalDepositedCents int64  `json:"total_deposited_cents"`
	TotalWithdrawnCents int64  `json:"total_withdrawn_cents"`
}

type TransactionView struct {
	ID                 string    `json:"id"`
	Type               string    `json:"type"`
	Currency           string    `json:"currency"`
	AmountCents        int64     `json:"amount_cents"`
	BalanceBeforeCents int64     `json:"balance_before_cents"`
	BalanceAfterCents  int64     `json:"balance_after_cents"`
	ReferenceType      string    `json:"reference_type,omitempty"`
	ReferenceID        string    `json:"reference_id,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

type TransactionsResponse struct {
	UserID       string            `json:"userId"`
	Currency     string            `json:"currency"`
	Transactions []TransactionView `json:"transactions"`
}
