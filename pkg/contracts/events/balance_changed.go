package events

import "time"

// Payload publicado no canal Redis "balance_updates_broadcast" após cada
// mutação de saldo. Canal lateral, não autoritativo: consumidores usam para
// invalidar cache e notificar, nunca como fonte de verdade.
type BalanceChanged struct {
	UserID       string    `json:"userId"`
	WalletID     string    `json:"walletId"`
	Currency     string    `json:"currency"`
	BalanceCents int64     `json:"balance_cents"`
	Version      int64     `json:"version"`
	TxType       string    `json:"tx_type"` // "stake", "payout", "deposit", ...
	Ts           time.Time `json:"ts"`
}
