package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Store implementa a persistência do ledger em Postgres.
// Concorrência por carteira é resolvida com CAS na coluna version: o UPDATE
// só aplica se a versão lida ainda for a corrente; zero linhas = conflito.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const walletCols = `id, user_id, currency, balance_cents, version,
	total_wagered_cents, total_won_cents, total_deposited_cents, total_withdrawn_cents,
	created_at, updated_at`

func scanWallet(row interface{ Scan(...any) error }) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Currency, &w.BalanceCents, &w.Version,
		&w.TotalWageredCents, &w.TotalWonCents, &w.TotalDepositedCents, &w.TotalWithdrawnCents,
		&w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// GetOrCreateWallet retorna a carteira do par (usuário, moeda), criando-a
// zerada se não existir. Carteiras nunca são deletadas.
func (s *Store) GetOrCreateWallet(ctx context.Context, userID, currency string) (Wallet, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback()

	w, err := scanWallet(tx.QueryRowContext(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE user_id=$1 AND currency=$2`, userID, currency))
	if err == sql.ErrNoRows {
		now := time.Now().UTC()
		w = Wallet{
			ID:        uuid.NewString(),
			UserID:    userID,
			Currency:  currency,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, currency, balance_cents, version,
				total_wagered_cents, total_won_cents, total_deposited_cents, total_withdrawn_cents,
				created_at, updated_at)
			VALUES($1,$2,$3,0,1,0,0,0,0,$4,$4)
			ON CONFLICT (user_id, currency) DO NOTHING`,
			w.ID, userID, currency, now); err != nil {
			return Wallet{}, err
		}
		// corrida de criação: outra requisição pode ter inserido primeiro
		w, err = scanWallet(tx.QueryRowContext(ctx,
			`SELECT `+walletCols+` FROM wallets WHERE user_id=$1 AND currency=$2`, userID, currency))
		if err != nil {
			return Wallet{}, err
		}
	} else if err != nil {
		return Wallet{}, err
	}

	if err = tx.Commit(); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// GetWallet retorna a carteira existente ou ErrNotFound.
func (s *Store) GetWallet(ctx context.Context, userID, currency string) (Wallet, error) {
	w, err := scanWallet(s.db.QueryRowContext(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE user_id=$1 AND currency=$2`, userID, currency))
	if err == sql.ErrNoRows {
		return Wallet{}, ErrNotFound
	}
	return w, err
}

// ApplyTx executa os passos 1-4 do contrato de mutação dentro da transação
// recebida: lê carteira+versão, calcula o novo estado, grava a Transaction e
// faz o UPDATE condicionado à versão lida. Zero linhas afetadas = ErrConflict;
// o chamador decide re-ler e reenviar, nunca há retry automático aqui.
func (s *Store) ApplyTx(ctx context.Context, tx *sql.Tx, e Entry) (Wallet, Transaction, error) {
	w, err := scanWallet(tx.QueryRowContext(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE user_id=$1 AND currency=$2`, e.UserID, e.Currency))
	if err == sql.ErrNoRows {
		return Wallet{}, Transaction{}, ErrNotFound
	} else if err != nil {
		return Wallet{}, Transaction{}, err
	}

	readVersion := w.Version
	now := time.Now().UTC()

	next, rec, err := nextState(w, e, uuid.NewString(), now)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions
			(id, wallet_id, user_id, type, currency, amount_cents,
			 balance_before_cents, balance_after_cents, reference_type, reference_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.WalletID, rec.UserID, string(rec.Type), rec.Currency, rec.AmountCents,
		rec.BalanceBeforeCents, rec.BalanceAfterCents, rec.ReferenceType, rec.ReferenceID,
		rec.Status, rec.CreatedAt); err != nil {
		return Wallet{}, Transaction{}, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE wallets SET
			balance_cents=$1, version=$2,
			total_wagered_cents=$3, total_won_cents=$4,
			total_deposited_cents=$5, total_withdrawn_cents=$6,
			updated_at=$7
		WHERE id=$8 AND version=$9`,
		next.BalanceCents, next.Version,
		next.TotalWageredCents, next.TotalWonCents,
		next.TotalDepositedCents, next.TotalWithdrawnCents,
		next.UpdatedAt, next.ID, readVersion)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Wallet{}, Transaction{}, err
	}
	if n == 0 {
		return Wallet{}, Transaction{}, ErrConflict
	}

	return next, rec, nil
}

// Apply abre transação própria para uma mutação isolada (depósito, saque,
// crédito de settlement). Tudo-ou-nada: qualquer erro desfaz inclusive o
// registro no ledger.
func (s *Store) Apply(ctx context.Context, e Entry) (Wallet, Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}
	defer tx.Rollback()

	w, rec, err := s.ApplyTx(ctx, tx, e)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}

	if err = tx.Commit(); err != nil {
		return Wallet{}, Transaction{}, err
	}
	return w, rec, nil
}

// HasTransaction verifica se já existe transação para (referência, tipo).
// Pré-checagem de idempotência usada antes de créditos de settlement.
func (s *Store) HasTransaction(ctx context.Context, referenceID string, t TxType) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM transactions WHERE reference_id=$1 AND type=$2 LIMIT 1`,
		referenceID, string(t)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListTransactions retorna o extrato (mais recentes primeiro).
func (s *Store) ListTransactions(ctx context.Context, userID, currency string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet_id, user_id, type, currency, amount_cents,
		       balance_before_cents, balance_after_cents, reference_type, reference_id, status, created_at
		FROM transactions
		WHERE user_id=$1 AND currency=$2
		ORDER BY created_at DESC
		LIMIT $3`, userID, currency, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var typ string
		if err := rows.Scan(&t.ID, &t.WalletID, &t.UserID, &typ, &t.Currency, &t.AmountCents,
			&t.BalanceBeforeCents, &t.BalanceAfterCents, &t.ReferenceType, &t.ReferenceID,
			&t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = TxType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}
