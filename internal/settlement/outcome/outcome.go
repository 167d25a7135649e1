package outcome

import "fmt"

// Resultado terminal de uma perna.
type Result string

const (
	Won  Result = "won"
	Lost Result = "lost"
	Void Result = "void"
)

// Tipos de mercado reconhecidos pela liquidação.
const (
	Market1X2          = "1x2"
	MarketOverUnder    = "over_under"
	MarketHandicap     = "handicap"
	MarketBothScore    = "both_score"
	MarketDoubleChance = "double_chance"
	MarketCorrectScore = "correct_score"
	MarketOddEven      = "odd_even"
)

// Leg é a visão mínima de uma perna necessária pra decidir o desfecho.
type Leg struct {
	MarketType string
	Line       float64
	HasLine    bool
	Selection  string // "home", "over", "yes", "1x", "2-1", ...
}

// Score é o resultado final da partida.
type Score struct {
	Home   int
	Away   int
	Result string // "home" | "draw" | "away"
}

// Settle decide o desfecho de uma perna a partir do placar final. Função pura:
// toda a tabela de mercados é testável sem banco. Partida anulada
// (cancelada/adiada) ou mercado não reconhecido liquidam void: devolver o
// stake é o default seguro, nunca chutar um vencedor nem deixar a perna presa.
func Settle(leg Leg, score Score, matchVoided bool) Result {
	if matchVoided {
		return Void
	}

	switch leg.MarketType {
	case Market1X2:
		return winLose(leg.Selection == score.Result)

	case MarketOverUnder:
		return settleOverUnder(leg, score)

	case MarketHandicap:
		return settleHandicap(leg, score)

	case MarketBothScore:
		both := score.Home > 0 && score.Away > 0
		return winLose(leg.Selection == "yes" && both || leg.Selection == "no" && !both)

	case MarketDoubleChance:
		return settleDoubleChance(leg, score)

	case MarketCorrectScore:
		return winLose(leg.Selection == fmt.Sprintf("%d-%d", score.Home, score.Away))

	case MarketOddEven:
		total := score.Home + score.Away
		return winLose(leg.Selection == "odd" && total%2 == 1 || leg.Selection == "even" && total%2 == 0)

	default:
		return Void
	}
}

func winLose(won bool) Result {
	if won {
		return Won
	}
	return Lost
}

// Total exatamente na linha é push: ninguém ganha, stake devolvido.
func settleOverUnder(leg Leg, score Score) Result {
	if !leg.HasLine {
		return Void
	}
	total := float64(score.Home + score.Away)
	switch {
	case total == leg.Line:
		return Void
	case leg.Selection == "over":
		return winLose(total > leg.Line)
	case leg.Selection == "under":
		return winLose(total < leg.Line)
	}
	return Void
}

// A linha aplica no placar do lado escolhido; empate ajustado é push.
func settleHandicap(leg Leg, score Score) Result {
	if !leg.HasLine {
		return Void
	}
	var adjusted, opponent float64
	switch leg.Selection {
	case "home":
		adjusted = float64(score.Home) + leg.Line
		opponent = float64(score.Away)
	case "away":
		adjusted = float64(score.Away) + leg.Line
		opponent = float64(score.Home)
	default:
		return Void
	}
	if adjusted == opponent {
		return Void
	}
	return winLose(adjusted > opponent)
}

func settleDoubleChance(leg Leg, score Score) Result {
	var covered bool
	switch leg.Selection {
	case "1x":
		covered = score.Result == "home" || score.Result == "draw"
	case "x2":
		covered = score.Result == "draw" || score.Result == "away"
	case "12":
		covered = score.Result == "home" || score.Result == "away"
	default:
		return Void
	}
	return winLose(covered)
}
