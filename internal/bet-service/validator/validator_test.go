package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-core/internal/bet-service/repo"
)

// fakeCatalog serve o estado corrente de partidas/mercados/odds em memória.
type fakeCatalog struct {
	matches map[string]repo.Match
	markets map[string]repo.Market
	odds    map[string]repo.Odd
}

func (f *fakeCatalog) GetMatch(_ context.Context, id string) (repo.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return repo.Match{}, repo.ErrNotFound
	}
	return m, nil
}

func (f *fakeCatalog) GetMarket(_ context.Context, id string) (repo.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return repo.Market{}, repo.ErrNotFound
	}
	return m, nil
}

func (f *fakeCatalog) GetOdd(_ context.Context, id string) (repo.Odd, error) {
	o, ok := f.odds[id]
	if !ok {
		return repo.Odd{}, repo.ErrNotFound
	}
	return o, nil
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		matches: map[string]repo.Match{
			"m1": {ID: "m1", Status: repo.MatchUpcoming, StartsAt: time.Now()},
			"m2": {ID: "m2", Status: repo.MatchLive},
			"m3": {ID: "m3", Status: repo.MatchFinished},
		},
		markets: map[string]repo.Market{
			"mk1": {ID: "mk1", MatchID: "m1", Type: "1x2", Active: true},
			"mk2": {ID: "mk2", MatchID: "m2", Type: "1x2", Active: true},
			"mk3": {ID: "mk3", MatchID: "m2", Type: "over_under", Line: 2.5, HasLine: true, Active: true, Suspended: true},
			"mk4": {ID: "mk4", MatchID: "m3", Type: "1x2", Active: true},
		},
		odds: map[string]repo.Odd{
			"o1": {ID: "o1", MarketID: "mk1", Selection: "home", Value: 1.85, Active: true},
			"o2": {ID: "o2", MarketID: "mk2", Selection: "away", Value: 3.40, Active: true},
			"o3": {ID: "o3", MarketID: "mk2", Selection: "draw", Value: 3.10, Active: false},
			"o4": {ID: "o4", MarketID: "mk3", Selection: "over", Value: 1.95, Active: true},
			"o5": {ID: "o5", MarketID: "mk4", Selection: "home", Value: 1.50, Active: true},
		},
	}
}

func TestValidate_StructuralRules(t *testing.T) {
	v := New(newCatalog())
	ctx := context.Background()
	leg := Leg{MatchID: "m1", MarketID: "mk1", OddID: "o1", Selection: "home"}

	var verr *ValidationError

	_, err := v.Validate(ctx, repo.BetTypeSingle, 0, []Leg{leg})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stake_not_positive", verr.Reason)

	_, err = v.Validate(ctx, repo.BetTypeSingle, 1000, []Leg{leg, {MatchID: "m2", MarketID: "mk2", OddID: "o2", Selection: "away"}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "single_requires_one_leg", verr.Reason)

	_, err = v.Validate(ctx, repo.BetTypeCombo, 1000, []Leg{leg})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "combo_requires_two_legs", verr.Reason)

	_, err = v.Validate(ctx, "system", 1000, []Leg{leg})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unknown_bet_type", verr.Reason)
}

func TestValidate_RejectsDuplicateMatchInCombo(t *testing.T) {
	cat := newCatalog()
	// segundo mercado na mesma partida m1
	cat.markets["mk1b"] = repo.Market{ID: "mk1b", MatchID: "m1", Type: "over_under", Line: 2.5, HasLine: true, Active: true}
	cat.odds["o1b"] = repo.Odd{ID: "o1b", MarketID: "mk1b", Selection: "under", Value: 1.90, Active: true}

	v := New(cat)
	_, err := v.Validate(context.Background(), repo.BetTypeCombo, 1000, []Leg{
		{MatchID: "m1", MarketID: "mk1", OddID: "o1", Selection: "home"},
		{MatchID: "m1", MarketID: "mk1b", OddID: "o1b", Selection: "under"},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "duplicate_match_in_combo", verr.Reason)
}

func TestValidate_LegStateChecks(t *testing.T) {
	v := New(newCatalog())
	ctx := context.Background()

	cases := []struct {
		name   string
		leg    Leg
		reason string
		asNF   bool
	}{
		{"unknown match", Leg{MatchID: "nope", MarketID: "mk1", OddID: "o1", Selection: "home"}, "", true},
		{"match finished", Leg{MatchID: "m3", MarketID: "mk4", OddID: "o5", Selection: "home"}, "match_not_open", false},
		{"market suspended", Leg{MatchID: "m2", MarketID: "mk3", OddID: "o4", Selection: "over"}, "market_suspended", false},
		{"odd inactive", Leg{MatchID: "m2", MarketID: "mk2", OddID: "o3", Selection: "draw"}, "odd_inactive", false},
		{"selection label mismatch", Leg{MatchID: "m2", MarketID: "mk2", OddID: "o2", Selection: "home"}, "selection_mismatch", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(ctx, repo.BetTypeSingle, 1000, []Leg{tc.leg})
			require.Error(t, err)
			if tc.asNF {
				var nf *NotFoundError
				assert.ErrorAs(t, err, &nf)
				return
			}
			var se *StaleOddsError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.reason, se.Reason)
		})
	}
}

func TestValidate_MismatchedOwnership(t *testing.T) {
	v := New(newCatalog())
	ctx := context.Background()

	// mercado de outra partida
	_, err := v.Validate(ctx, repo.BetTypeSingle, 1000, []Leg{
		{MatchID: "m1", MarketID: "mk2", OddID: "o2", Selection: "away"},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "market_match_mismatch", verr.Reason)

	// odd de outro mercado
	_, err = v.Validate(ctx, repo.BetTypeSingle, 1000, []Leg{
		{MatchID: "m1", MarketID: "mk1", OddID: "o2", Selection: "away"},
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "odd_market_mismatch", verr.Reason)
}

func TestValidate_UsesServerOdds(t *testing.T) {
	// o cliente leu 1.85; o servidor já está em 2.10. A colocação segue,
	// mas congelando o valor corrente do servidor
	cat := newCatalog()
	cat.odds["o1"] = repo.Odd{ID: "o1", MarketID: "mk1", Selection: "home", Value: 2.10, Active: true}

	v := New(cat)
	legs, err := v.Validate(context.Background(), repo.BetTypeSingle, 1000, []Leg{
		{MatchID: "m1", MarketID: "mk1", OddID: "o1", Selection: "home"},
	})
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, 2.10, legs[0].OddValue)
}
