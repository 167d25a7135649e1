package events

import "time"

// Evento emitido pelo settlement-worker após liquidar uma aposta.
type BetSettled struct {
	BetID       string    `json:"betId"`
	UserID      string    `json:"userId"`
	Status      string    `json:"status"` // "won" | "lost" | "void"
	PayoutCents int64     `json:"payout_cents"`
	Ts          time.Time `json:"ts"`
}
