package dto

type PlaceBetLeg struct {
	MatchID   string `json:"matchId"`
	MarketID  string `json:"marketId"`
	OddID     string `json:"oddId"`
	Selection string `json:"selection"` // label da seleção que o cliente viu ("home", "over", ...)
}

type PlaceBetRequest struct {
	UserID         string        `json:"userId"`
	Type           string        `json:"type"` // "single" | "combo"
	StakeCents     int64         `json:"stake_cents"`
	Currency       string        `json:"currency"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"` // opcional p/ retry seguro
	Legs           []PlaceBetLeg `json:"legs"`
}

type CashOutRequest struct {
	UserID string `json:"userId"`
}
