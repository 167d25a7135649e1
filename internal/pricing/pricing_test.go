package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCombinedOdds_Product(t *testing.T) {
	odds := CombinedOdds([]float64{2.0, 3.0})
	assert.True(t, odds.Equal(decimal.NewFromInt(6)))

	one := CombinedOdds(nil)
	assert.True(t, one.Equal(decimal.NewFromInt(1)))
}

func TestCombinedOdds_NoIntermediateRounding(t *testing.T) {
	// 1.1 * 1.1 * 1.1 em float64 acumula erro; decimal mantém 1.331 exato
	odds := CombinedOdds([]float64{1.1, 1.1, 1.1})
	assert.True(t, odds.Equal(decimal.RequireFromString("1.331")), odds.String())
}

func TestPayoutCents_TruncatesOnce(t *testing.T) {
	// 10.00 * 1.331 = 13.31 exato
	assert.Equal(t, int64(1331), PotentialPayoutCents(1000, []float64{1.1, 1.1, 1.1}))

	// fração de centavo é truncada, nunca arredondada pra cima
	// 3.33 * 1.5 = 4.995 -> 4.99
	assert.Equal(t, int64(499), PotentialPayoutCents(333, []float64{1.5}))
}

func TestPotentialPayout_Single(t *testing.T) {
	assert.Equal(t, int64(1850), PotentialPayoutCents(1000, []float64{1.85}))
}
