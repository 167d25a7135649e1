package pricing

import "github.com/shopspring/decimal"

// Aritmética de odds e payout usada na colocação e na liquidação.
// Produto exato com decimal: nada de arredondamento entre as multiplicações
// das pernas; o truncamento para centavos acontece uma única vez, no final.

// CombinedOdds retorna o produto decimal das odds das pernas.
func CombinedOdds(oddValues []float64) decimal.Decimal {
	total := decimal.NewFromInt(1)
	for _, v := range oddValues {
		total = total.Mul(decimal.NewFromFloat(v))
	}
	return total
}

// PayoutCents retorna stake × odds truncado para centavos inteiros.
func PayoutCents(stakeCents int64, odds decimal.Decimal) int64 {
	return decimal.NewFromInt(stakeCents).Mul(odds).IntPart()
}

// PotentialPayoutCents congela o payout potencial de uma aposta na criação.
func PotentialPayoutCents(stakeCents int64, oddValues []float64) int64 {
	return PayoutCents(stakeCents, CombinedOdds(oddValues))
}
