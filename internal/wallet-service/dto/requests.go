package dto

type DepositRequest struct {
	UserID      string `json:"userId"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // id do provedor de pagamento
}

type WithdrawRequest struct {
	UserID      string `json:"userId"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"`
}
