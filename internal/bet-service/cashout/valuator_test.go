package cashout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-core/internal/bet-service/repo"
)

type fakeLive struct{ odds map[string]float64 }

func (f *fakeLive) CurrentOdd(_ context.Context, _, _, oddID string) (float64, bool) {
	v, ok := f.odds[oddID]
	return v, ok
}

func pendingBet(stake int64, totalOdds float64) repo.Bet {
	return repo.Bet{ID: "b1", UserID: "u1", Type: repo.BetTypeCombo,
		StakeCents: stake, Currency: "COINS", TotalOdds: totalOdds, Status: repo.BetPending}
}

func TestValue_LostLegDisqualifies(t *testing.T) {
	v := New(&fakeLive{}, 0.92, 0.10)
	_, err := v.Value(context.Background(), pendingBet(1000, 6.0), []repo.BetSelection{
		{Status: repo.SelectionWon, OddsAtPlacement: 2.0},
		{Status: repo.SelectionLost, OddsAtPlacement: 3.0},
	})
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestValue_NonPendingBetNotEligible(t *testing.T) {
	v := New(&fakeLive{}, 0.92, 0.10)
	bet := pendingBet(1000, 2.0)
	bet.Status = repo.BetWon
	_, err := v.Value(context.Background(), bet, nil)
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestValue_WonLegsUseFrozenOdds(t *testing.T) {
	// ambas as pernas já ganhas: stake × (produto ÷ total) = stake inteiro,
	// sobra só a margem da casa
	v := New(&fakeLive{}, 0.92, 0.10)
	got, err := v.Value(context.Background(), pendingBet(1000, 6.0), []repo.BetSelection{
		{Status: repo.SelectionWon, OddsAtPlacement: 2.0},
		{Status: repo.SelectionWon, OddsAtPlacement: 3.0},
	})
	require.NoError(t, err)
	// 1000 × (6.0 ÷ 6.0) × 0.92 = 920
	assert.Equal(t, int64(920), got)
}

func TestValue_PendingLegUsesLiveOdd(t *testing.T) {
	// perna ganha 2.0 congelada + perna pendente com preço vivo 1.5:
	// 1000 × (2.0×1.5 ÷ 6.0) × 0.92 = 460
	v := New(&fakeLive{odds: map[string]float64{"o2": 1.5}}, 0.92, 0.10)
	got, err := v.Value(context.Background(), pendingBet(1000, 6.0), []repo.BetSelection{
		{Status: repo.SelectionWon, OddsAtPlacement: 2.0, OddID: "o1"},
		{Status: repo.SelectionPending, OddsAtPlacement: 3.0, OddID: "o2"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(460), got)
}

func TestValue_PendingLegFallsBackToFrozenOdd(t *testing.T) {
	// preço vivo indisponível (odd desativada): usa o valor congelado 3.0
	// 1000 × (2.0×3.0 ÷ 6.0) × 0.92 = 920
	v := New(&fakeLive{}, 0.92, 0.10)
	got, err := v.Value(context.Background(), pendingBet(1000, 6.0), []repo.BetSelection{
		{Status: repo.SelectionWon, OddsAtPlacement: 2.0, OddID: "o1"},
		{Status: repo.SelectionPending, OddsAtPlacement: 3.0, OddID: "o2"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(920), got)
}

func TestValue_VoidLegIsNeutral(t *testing.T) {
	// perna void não entra no produto: 1000 × (2.0 ÷ 6.0) × 0.92 = 306
	v := New(&fakeLive{}, 0.92, 0.10)
	got, err := v.Value(context.Background(), pendingBet(1000, 6.0), []repo.BetSelection{
		{Status: repo.SelectionWon, OddsAtPlacement: 2.0},
		{Status: repo.SelectionVoid, OddsAtPlacement: 3.0},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(306), got)
}

func TestValue_FloorAtStakeFraction(t *testing.T) {
	// odds vivas desabaram: valor bruto 1000 × (1.01 ÷ 10.0) × 0.92 ≈ 92,
	// abaixo do piso de 10% do stake => 100
	v := New(&fakeLive{odds: map[string]float64{"o1": 1.01}}, 0.92, 0.10)
	got, err := v.Value(context.Background(), pendingBet(1000, 10.0), []repo.BetSelection{
		{Status: repo.SelectionPending, OddsAtPlacement: 10.0, OddID: "o1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)
}
