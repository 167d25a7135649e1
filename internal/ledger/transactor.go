package ledger

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// Announcer é o canal lateral de notificação de saldo (Redis Pub/Sub em
// produção). Nunca aguardado para correção.
type Announcer interface {
	Publish(ctx context.Context, w Wallet, t Transaction) error
}

// Transactor é a fachada de mutação de carteira usada pelos serviços:
// aplica a Entry via Store (CAS) e anuncia o novo saldo após o commit.
type Transactor struct {
	log   *zap.Logger
	store *Store
	pub   Announcer // opcional
}

func NewTransactor(log *zap.Logger, store *Store, pub Announcer) *Transactor {
	return &Transactor{log: log, store: store, pub: pub}
}

func (t *Transactor) Store() *Store { return t.store }

// Apply executa a mutação em transação própria e dispara o anúncio.
func (t *Transactor) Apply(ctx context.Context, e Entry) (Wallet, Transaction, error) {
	w, rec, err := t.store.Apply(ctx, e)
	if err != nil {
		return Wallet{}, Transaction{}, err
	}
	t.Announce(w, rec)
	return w, rec, nil
}

// ApplyTx participa de uma transação maior do chamador (ex.: débito de stake
// na mesma transação que insere a aposta). O chamador deve chamar Announce
// depois do commit.
func (t *Transactor) ApplyTx(ctx context.Context, tx *sql.Tx, e Entry) (Wallet, Transaction, error) {
	return t.store.ApplyTx(ctx, tx, e)
}

// GetOrCreateWallet delega ao Store a criação preguiçosa da carteira.
func (t *Transactor) GetOrCreateWallet(ctx context.Context, userID, currency string) (Wallet, error) {
	return t.store.GetOrCreateWallet(ctx, userID, currency)
}

// HasTransaction responde se já existe transação para o par referência/tipo.
// Usado como guarda de idempotência antes de créditos de liquidação.
func (t *Transactor) HasTransaction(ctx context.Context, referenceID string, txType TxType) (bool, error) {
	return t.store.HasTransaction(ctx, referenceID, txType)
}

// Announce publica a mudança de saldo no canal lateral, fire-and-forget.
func (t *Transactor) Announce(w Wallet, rec Transaction) {
	if t.pub == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := t.pub.Publish(ctx, w, rec); err != nil {
			t.log.Warn("balance broadcast publish failed",
				zap.String("walletId", w.ID), zap.Error(err))
		}
	}()
}
