package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Postgres implementa a persistência de apostas, pernas e o catálogo
// (partidas/mercados/odds) lido na validação.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) GetMatch(ctx context.Context, id string) (Match, error) {
	var m Match
	var result sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT id, home_team, away_team, status, COALESCE(home_score,0), COALESCE(away_score,0),
		       result, starts_at, updated_at
		FROM matches WHERE id=$1`, id).
		Scan(&m.ID, &m.HomeTeam, &m.AwayTeam, &m.Status, &m.HomeScore, &m.AwayScore,
			&result, &m.StartsAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return Match{}, ErrNotFound
	}
	m.Result = result.String
	return m, err
}

func (p *Postgres) GetMarket(ctx context.Context, id string) (Market, error) {
	var mk Market
	var line sql.NullFloat64
	err := p.db.QueryRowContext(ctx, `
		SELECT id, match_id, type, line, active, suspended FROM markets WHERE id=$1`, id).
		Scan(&mk.ID, &mk.MatchID, &mk.Type, &line, &mk.Active, &mk.Suspended)
	if err == sql.ErrNoRows {
		return Market{}, ErrNotFound
	}
	mk.Line, mk.HasLine = line.Float64, line.Valid
	return mk, err
}

func (p *Postgres) GetOdd(ctx context.Context, id string) (Odd, error) {
	var o Odd
	err := p.db.QueryRowContext(ctx, `
		SELECT id, market_id, selection, value, active FROM odds WHERE id=$1`, id).
		Scan(&o.ID, &o.MarketID, &o.Selection, &o.Value, &o.Active)
	if err == sql.ErrNoRows {
		return Odd{}, ErrNotFound
	}
	return o, err
}

// CreateBetTx insere a aposta e suas pernas dentro da transação do chamador,
// a mesma que debita o stake: a aposta só fica visível com o débito aplicado.
func (p *Postgres) CreateBetTx(ctx context.Context, tx *sql.Tx, b Bet, sels []BetSelection) error {
	idemKey := sql.NullString{String: b.IdempotencyKey, Valid: b.IdempotencyKey != ""}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, type, stake_cents, currency, total_odds,
			potential_payout_cents, payout_cents, status, idempotency_key, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9,$10)`,
		b.ID, b.UserID, b.Type, b.StakeCents, b.Currency, b.TotalOdds,
		b.PotentialPayoutCents, b.Status, idemKey, b.CreatedAt); err != nil {
		return err
	}
	for _, s := range sels {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bet_selections (id, bet_id, match_id, market_id, odd_id,
				selection, odds_at_placement, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			s.ID, s.BetID, s.MatchID, s.MarketID, s.OddID,
			s.Selection, s.OddsAtPlacement, s.Status); err != nil {
			return err
		}
	}
	return nil
}

const betCols = `id, user_id, type, stake_cents, currency, total_odds,
	potential_payout_cents, payout_cents, status, COALESCE(idempotency_key,''), created_at, settled_at`

func scanBet(row *sql.Row) (Bet, error) {
	var b Bet
	var settledAt sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.Type, &b.StakeCents, &b.Currency, &b.TotalOdds,
		&b.PotentialPayoutCents, &b.PayoutCents, &b.Status, &b.IdempotencyKey, &b.CreatedAt, &settledAt)
	if err == sql.ErrNoRows {
		return Bet{}, ErrNotFound
	}
	if settledAt.Valid {
		b.SettledAt = &settledAt.Time
	}
	return b, err
}

func (p *Postgres) GetBet(ctx context.Context, betID string) (Bet, error) {
	return scanBet(p.db.QueryRowContext(ctx, `SELECT `+betCols+` FROM bets WHERE id=$1`, betID))
}

// GetBetByIdempotencyKey resolve retries de colocação: mesma chave, mesma aposta.
func (p *Postgres) GetBetByIdempotencyKey(ctx context.Context, userID, key string) (Bet, error) {
	return scanBet(p.db.QueryRowContext(ctx,
		`SELECT `+betCols+` FROM bets WHERE user_id=$1 AND idempotency_key=$2`, userID, key))
}

func (p *Postgres) GetBetSelections(ctx context.Context, betID string) ([]BetSelection, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, bet_id, match_id, market_id, odd_id, selection, odds_at_placement, status, settled_at
		FROM bet_selections WHERE bet_id=$1 ORDER BY id`, betID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BetSelection
	for rows.Next() {
		var s BetSelection
		var settledAt sql.NullTime
		if err := rows.Scan(&s.ID, &s.BetID, &s.MatchID, &s.MarketID, &s.OddID,
			&s.Selection, &s.OddsAtPlacement, &s.Status, &settledAt); err != nil {
			return nil, err
		}
		if settledAt.Valid {
			s.SettledAt = &settledAt.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkCashedOutTx transiciona pending→cashout condicionalmente e força todas
// as pernas para void. Zero linhas = outra requisição chegou antes, ou alguma
// perna perdeu entre a cotação e a transição; o guarda NOT EXISTS revalida as
// pernas no mesmo UPDATE, porque o settlement liquida pernas antes de agregar
// a aposta e a cotação foi calculada fora desta transação.
func (p *Postgres) MarkCashedOutTx(ctx context.Context, tx *sql.Tx, betID string, payoutCents int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE bets SET status=$1, payout_cents=$2, settled_at=$3
		WHERE id=$4 AND status=$5
		  AND NOT EXISTS (
			SELECT 1 FROM bet_selections WHERE bet_id=$4 AND status=$6
		  )`,
		BetCashout, payoutCents, time.Now().UTC(), betID, BetPending, SelectionLost)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}

	// todas as pernas saem do settlement ordinário, inclusive as já decididas
	if _, err = tx.ExecContext(ctx, `
		UPDATE bet_selections SET status=$1, settled_at=COALESCE(settled_at,$2)
		WHERE bet_id=$3`,
		SelectionVoid, time.Now().UTC(), betID); err != nil {
		return false, err
	}
	return true, nil
}
