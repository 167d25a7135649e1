package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/radieske/bet-core/internal/settlement/engine"
)

// Postgres implementa a persistência vista pelo engine de liquidação.
// Transições de status são sempre condicionais ao estado pendente: é isso que
// torna a reentrega de eventos segura com vários workers concorrentes.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) FinishMatch(ctx context.Context, matchID string, home, away int, result string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE matches SET status='finished', home_score=$1, away_score=$2, result=$3, updated_at=$4
		WHERE id=$5 AND status IN ('upcoming','live')`,
		home, away, result, time.Now().UTC(), matchID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// zero linhas: ou a partida não existe, ou já está terminal (reentrega)
	return p.checkExists(ctx, matchID)
}

func (p *Postgres) CancelMatch(ctx context.Context, matchID string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE matches SET status='cancelled', updated_at=$1
		WHERE id=$2 AND status IN ('upcoming','live')`,
		time.Now().UTC(), matchID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return p.checkExists(ctx, matchID)
}

func (p *Postgres) checkExists(ctx context.Context, matchID string) error {
	var one int
	err := p.db.QueryRowContext(ctx, `SELECT 1 FROM matches WHERE id=$1`, matchID).Scan(&one)
	if err == sql.ErrNoRows {
		return engine.ErrUnknownMatch
	}
	return err
}

// PendingSelectionsByMatch junta a perna com o mercado pra carregar o tipo e
// a linha usados na decisão de desfecho.
func (p *Postgres) PendingSelectionsByMatch(ctx context.Context, matchID string) ([]engine.PendingSelection, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT bs.id, bs.bet_id, mk.type, mk.line, bs.selection
		FROM bet_selections bs
		JOIN markets mk ON mk.id = bs.market_id
		WHERE bs.match_id=$1 AND bs.status='pending'`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.PendingSelection
	for rows.Next() {
		var s engine.PendingSelection
		var line sql.NullFloat64
		if err := rows.Scan(&s.SelectionID, &s.BetID, &s.MarketType, &line, &s.Selection); err != nil {
			return nil, err
		}
		s.Line, s.HasLine = line.Float64, line.Valid
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) SettleSelection(ctx context.Context, selectionID, status string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bet_selections SET status=$1, settled_at=$2
		WHERE id=$3 AND status='pending'`,
		status, time.Now().UTC(), selectionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *Postgres) BetForSettlement(ctx context.Context, betID string) (engine.BetState, error) {
	var b engine.BetState
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, stake_cents, currency, status
		FROM bets WHERE id=$1`, betID).
		Scan(&b.ID, &b.UserID, &b.Type, &b.StakeCents, &b.Currency, &b.Status)
	if err != nil {
		return engine.BetState{}, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, status, odds_at_placement FROM bet_selections WHERE bet_id=$1`, betID)
	if err != nil {
		return engine.BetState{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var s engine.SelectionState
		if err := rows.Scan(&s.ID, &s.Status, &s.OddsAtPlacement); err != nil {
			return engine.BetState{}, err
		}
		b.Selections = append(b.Selections, s)
	}
	return b, rows.Err()
}

func (p *Postgres) MarkBetSettled(ctx context.Context, betID, status string, payoutCents int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets SET status=$1, payout_cents=$2, settled_at=$3
		WHERE id=$4 AND status='pending'`,
		status, payoutCents, time.Now().UTC(), betID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
