package cashout

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/radieske/bet-core/internal/bet-service/repo"
)

// Aposta não elegível pra cash-out: alguma perna já perdeu ou a aposta não
// está mais pendente.
var ErrNotEligible = errors.New("bet not eligible for cashout")

// LiveOdds resolve o preço vivo de uma seleção ainda aberta.
type LiveOdds interface {
	CurrentOdd(ctx context.Context, matchID, marketID, oddID string) (float64, bool)
}

// Valuator calcula o valor de saída antecipada de uma aposta pendente.
// margin é o fator de margem da casa (<1); floorFraction é o piso do valor
// como fração do stake original.
type Valuator struct {
	live          LiveOdds
	margin        float64
	floorFraction float64
}

func New(live LiveOdds, margin, floorFraction float64) *Valuator {
	return &Valuator{live: live, margin: margin, floorFraction: floorFraction}
}

// Value percorre as pernas e compõe o produto efetivo de odds:
//   - perna perdida: desqualifica na hora, a qualquer preço;
//   - perna ganha: odd congelada na colocação;
//   - perna void: fator neutro 1;
//   - perna pendente: odd viva corrente, com fallback pro valor congelado se
//     o preço vivo não estiver mais disponível.
//
// valor = stake × (produto efetivo ÷ odds totais originais) × margin,
// com piso em floorFraction × stake.
func (v *Valuator) Value(ctx context.Context, bet repo.Bet, sels []repo.BetSelection) (int64, error) {
	if bet.Status != repo.BetPending {
		return 0, ErrNotEligible
	}

	effective := decimal.NewFromInt(1)
	for _, s := range sels {
		switch s.Status {
		case repo.SelectionLost:
			return 0, ErrNotEligible
		case repo.SelectionWon:
			effective = effective.Mul(decimal.NewFromFloat(s.OddsAtPlacement))
		case repo.SelectionVoid:
			// fator neutro
		case repo.SelectionPending:
			cur, ok := v.live.CurrentOdd(ctx, s.MatchID, s.MarketID, s.OddID)
			if !ok {
				cur = s.OddsAtPlacement
			}
			effective = effective.Mul(decimal.NewFromFloat(cur))
		default:
			return 0, ErrNotEligible
		}
	}

	stake := decimal.NewFromInt(bet.StakeCents)
	total := decimal.NewFromFloat(bet.TotalOdds)
	if total.IsZero() {
		return 0, ErrNotEligible
	}

	value := stake.
		Mul(effective).
		Div(total).
		Mul(decimal.NewFromFloat(v.margin))

	floor := stake.Mul(decimal.NewFromFloat(v.floorFraction))
	if value.LessThan(floor) {
		value = floor
	}

	return value.IntPart(), nil
}
