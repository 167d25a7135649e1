package events

import "time"

// Evento publicado no tópico "match_results" pelo feed externo de resultados.
// Reentrega é esperada: o consumidor precisa ser idempotente.
type MatchResult struct {
	MatchID   string    `json:"match_id"`
	HomeScore int       `json:"home_score"`
	AwayScore int       `json:"away_score"`
	Result    string    `json:"result"` // "home" | "draw" | "away"
	Voided    bool      `json:"voided"` // partida cancelada/adiada
	Source    string    `json:"source"`
	Ts        time.Time `json:"ts"`
}
