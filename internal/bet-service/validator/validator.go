package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/radieske/bet-core/internal/bet-service/repo"
)

// Catalog é a visão de catálogo (partidas/mercados/odds) consultada na
// validação. Sempre re-buscada por identidade: o preço que o cliente viu
// nunca é confiado.
type Catalog interface {
	GetMatch(ctx context.Context, id string) (repo.Match, error)
	GetMarket(ctx context.Context, id string) (repo.Market, error)
	GetOdd(ctx context.Context, id string) (repo.Odd, error)
}

// Leg é uma perna proposta pelo cliente.
type Leg struct {
	MatchID   string
	MarketID  string
	OddID     string
	Selection string
}

// ValidatedLeg carrega o valor corrente da odd no servidor, que é o que vai
// congelado na aposta.
type ValidatedLeg struct {
	MatchID   string
	MarketID  string
	OddID     string
	Selection string
	OddValue  float64
}

type Validator struct{ cat Catalog }

func New(cat Catalog) *Validator { return &Validator{cat: cat} }

// Validate aplica as regras estruturais e revalida cada perna contra o estado
// corrente. Falhou qualquer checagem, a aposta inteira é rejeitada; nenhum
// resultado parcial é usado.
func (v *Validator) Validate(ctx context.Context, betType string, stakeCents int64, legs []Leg) ([]ValidatedLeg, error) {
	if stakeCents <= 0 {
		return nil, &ValidationError{Reason: "stake_not_positive"}
	}

	switch betType {
	case repo.BetTypeSingle:
		if len(legs) != 1 {
			return nil, &ValidationError{Reason: "single_requires_one_leg"}
		}
	case repo.BetTypeCombo:
		if len(legs) < 2 {
			return nil, &ValidationError{Reason: "combo_requires_two_legs"}
		}
	default:
		return nil, &ValidationError{Reason: "unknown_bet_type", Detail: betType}
	}

	// pernas auto-correlacionadas (mesma partida) são proibidas em combos
	seen := make(map[string]struct{}, len(legs))
	for _, l := range legs {
		if _, dup := seen[l.MatchID]; dup {
			return nil, &ValidationError{Reason: "duplicate_match_in_combo", Detail: l.MatchID}
		}
		seen[l.MatchID] = struct{}{}
	}

	out := make([]ValidatedLeg, 0, len(legs))
	for i, l := range legs {
		vl, err := v.validateLeg(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		out = append(out, vl)
	}
	return out, nil
}

func (v *Validator) validateLeg(ctx context.Context, l Leg) (ValidatedLeg, error) {
	m, err := v.cat.GetMatch(ctx, l.MatchID)
	if errors.Is(err, repo.ErrNotFound) {
		return ValidatedLeg{}, &NotFoundError{Entity: "match", ID: l.MatchID}
	} else if err != nil {
		return ValidatedLeg{}, err
	}
	if m.Status != repo.MatchUpcoming && m.Status != repo.MatchLive {
		return ValidatedLeg{}, &StaleOddsError{Reason: "match_not_open", Detail: m.Status}
	}

	mk, err := v.cat.GetMarket(ctx, l.MarketID)
	if errors.Is(err, repo.ErrNotFound) {
		return ValidatedLeg{}, &NotFoundError{Entity: "market", ID: l.MarketID}
	} else if err != nil {
		return ValidatedLeg{}, err
	}
	if mk.MatchID != m.ID {
		return ValidatedLeg{}, &ValidationError{Reason: "market_match_mismatch", Detail: l.MarketID}
	}
	if !mk.Active {
		return ValidatedLeg{}, &StaleOddsError{Reason: "market_inactive", Detail: l.MarketID}
	}
	if mk.Suspended {
		return ValidatedLeg{}, &StaleOddsError{Reason: "market_suspended", Detail: l.MarketID}
	}

	o, err := v.cat.GetOdd(ctx, l.OddID)
	if errors.Is(err, repo.ErrNotFound) {
		return ValidatedLeg{}, &NotFoundError{Entity: "odd", ID: l.OddID}
	} else if err != nil {
		return ValidatedLeg{}, err
	}
	if o.MarketID != mk.ID {
		return ValidatedLeg{}, &ValidationError{Reason: "odd_market_mismatch", Detail: l.OddID}
	}
	if !o.Active {
		return ValidatedLeg{}, &StaleOddsError{Reason: "odd_inactive", Detail: l.OddID}
	}
	// label do cliente precisa bater com a seleção armazenada: defende contra
	// id de odd apontando pra outra seleção depois de mudança no catálogo
	if o.Selection != l.Selection {
		return ValidatedLeg{}, &StaleOddsError{Reason: "selection_mismatch",
			Detail: fmt.Sprintf("got %q, odd is %q", l.Selection, o.Selection)}
	}

	return ValidatedLeg{
		MatchID:   m.ID,
		MarketID:  mk.ID,
		OddID:     o.ID,
		Selection: o.Selection,
		OddValue:  o.Value, // valor do servidor, nunca o visto pelo cliente
	}, nil
}
