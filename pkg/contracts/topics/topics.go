package topics

const (
	// Resultados vindos do feed externo
	MatchResults = "match_results"

	// Liquidação de apostas
	BetSettled = "bet_settled"

	// DLQs
	MatchResultsDLQ = "match_results_dlq"
)
