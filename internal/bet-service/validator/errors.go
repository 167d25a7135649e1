package validator

import "fmt"

// Aposta estruturalmente inválida; rejeitada antes de qualquer efeito.
type ValidationError struct {
	Reason string // "stake_not_positive", "duplicate_match_in_combo", ...
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "invalid bet: " + e.Reason
	}
	return fmt.Sprintf("invalid bet: %s (%s)", e.Reason, e.Detail)
}

// Entidade referenciada pela perna não existe.
type NotFoundError struct {
	Entity string // "match" | "market" | "odd" | "bet"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Estado de preço mudou desde a leitura do cliente: mercado suspenso, odd
// desativada ou label apontando pra outra seleção. O cliente precisa
// re-buscar os preços antes de tentar de novo.
type StaleOddsError struct {
	Reason string // "market_suspended", "odd_inactive", "selection_mismatch", ...
	Detail string
}

func (e *StaleOddsError) Error() string {
	if e.Detail == "" {
		return "stale odds: " + e.Reason
	}
	return fmt.Sprintf("stale odds: %s (%s)", e.Reason, e.Detail)
}
