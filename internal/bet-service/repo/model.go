package repo

import "time"

// Modelos persistidos no Postgres.

// Status de partida
const (
	MatchUpcoming  = "upcoming"
	MatchLive      = "live"
	MatchFinished  = "finished"
	MatchCancelled = "cancelled"
	MatchPostponed = "postponed"
)

// Status de aposta (terminais: won, lost, void, cashout)
const (
	BetPending = "pending"
	BetWon     = "won"
	BetLost    = "lost"
	BetVoid    = "void"
	BetCashout = "cashout"
)

// Status de perna (terminais: won, lost, void)
const (
	SelectionPending = "pending"
	SelectionWon     = "won"
	SelectionLost    = "lost"
	SelectionVoid    = "void"
)

// Tipos de aposta
const (
	BetTypeSingle = "single"
	BetTypeCombo  = "combo"
)

type Match struct {
	ID        string
	HomeTeam  string
	AwayTeam  string
	Status    string
	HomeScore int
	AwayScore int
	Result    string // "home" | "draw" | "away" quando finished
	StartsAt  time.Time
	UpdatedAt time.Time
}

type Market struct {
	ID        string
	MatchID   string
	Type      string // "1x2", "over_under", "handicap", ...
	Line      float64
	HasLine   bool
	Active    bool
	Suspended bool
}

type Odd struct {
	ID        string
	MarketID  string
	Selection string // "home", "over", "yes", ...
	Value     float64
	Active    bool
}

type Bet struct {
	ID                   string
	UserID               string
	Type                 string // single | combo
	StakeCents           int64
	Currency             string
	TotalOdds            float64 // produto das odds congelado na criação
	PotentialPayoutCents int64
	PayoutCents          int64
	Status               string
	IdempotencyKey       string
	CreatedAt            time.Time
	SettledAt            *time.Time
}

type BetSelection struct {
	ID              string
	BetID           string
	MatchID         string
	MarketID        string
	OddID           string
	Selection       string
	OddsAtPlacement float64 // preço congelado por perna, usado na liquidação
	Status          string
	SettledAt       *time.Time
}
