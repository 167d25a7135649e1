package dto

import "time"

type BetSelectionView struct {
	ID              string     `json:"id"`
	MatchID         string     `json:"matchId"`
	MarketID        string     `json:"marketId"`
	OddID           string     `json:"oddId"`
	Selection       string     `json:"selection"`
	OddsAtPlacement float64    `json:"odds_at_placement"`
	Status          string     `json:"status"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
}

type BetView struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"userId"`
	Type                 string             `json:"type"`
	StakeCents           int64              `json:"stake_cents"`
	Currency             string             `json:"currency"`
	TotalOdds            float64            `json:"total_odds"`
	PotentialPayoutCents int64              `json:"potential_payout_cents"`
	PayoutCents          int64              `json:"payout_cents"`
	Status               string             `json:"status"`
	CreatedAt            time.Time          `json:"created_at"`
	SettledAt            *time.Time         `json:"settled_at,omitempty"`
	Selections           []BetSelectionView `json:"selections"`
	CashoutCents         *int64             `json:"cashout_cents,omitempty"` // cotação viva, só pendente
}

type PlaceBetResponse struct {
	Bet             BetView `json:"bet"`
	NewBalanceCents int64   `json:"new_balance_cents"`
	Replayed        bool    `json:"replayed,omitempty"`
}

type CashOutResponse struct {
	CashoutCents    int64   `json:"cashout_cents"`
	Bet             BetView `json:"bet"`
	NewBalanceCents int64   `json:"new_balance_cents"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
