package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-core/internal/bet-service/cashout"
	"github.com/radieske/bet-core/internal/bet-service/repo"
	"github.com/radieske/bet-core/internal/bet-service/validator"
	"github.com/radieske/bet-core/internal/ledger"
)

// --- fakes em memória ---

type fakeCatalog struct {
	matches map[string]repo.Match
	markets map[string]repo.Market
	odds    map[string]repo.Odd
}

func (f *fakeCatalog) GetMatch(_ context.Context, id string) (repo.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return repo.Match{}, repo.ErrNotFound
	}
	return m, nil
}

func (f *fakeCatalog) GetMarket(_ context.Context, id string) (repo.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return repo.Market{}, repo.ErrNotFound
	}
	return m, nil
}

func (f *fakeCatalog) GetOdd(_ context.Context, id string) (repo.Odd, error) {
	o, ok := f.odds[id]
	if !ok {
		return repo.Odd{}, repo.ErrNotFound
	}
	return o, nil
}

// fakeStore mantém estado commitado e um staging por transação; a transição
// de cash-out espelha o guarda do UPDATE real (pending e nenhuma perna lost).
type fakeStore struct {
	bets  map[string]repo.Bet
	sels  map[string][]repo.BetSelection
	byKey map[string]string // userID+"/"+chave -> betID

	staleSels []repo.BetSelection // snapshot servido em GetBetSelections, se setado

	// corrida de retries: CreateBetTx falha com 23505 e o vencedor aparece commitado
	conflictWith *repo.Bet

	stagedBet    *repo.Bet
	stagedSels   []repo.BetSelection
	stagedStatus map[string]string
	stagedPayout map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bets:  map[string]repo.Bet{},
		sels:  map[string][]repo.BetSelection{},
		byKey: map[string]string{},
	}
}

func (f *fakeStore) GetBet(_ context.Context, betID string) (repo.Bet, error) {
	b, ok := f.bets[betID]
	if !ok {
		return repo.Bet{}, repo.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) GetBetByIdempotencyKey(_ context.Context, userID, key string) (repo.Bet, error) {
	id, ok := f.byKey[userID+"/"+key]
	if !ok {
		return repo.Bet{}, repo.ErrNotFound
	}
	return f.bets[id], nil
}

func (f *fakeStore) GetBetSelections(_ context.Context, betID string) ([]repo.BetSelection, error) {
	if f.staleSels != nil {
		return f.staleSels, nil
	}
	return f.sels[betID], nil
}

func (f *fakeStore) CreateBetTx(_ context.Context, _ *sql.Tx, b repo.Bet, sels []repo.BetSelection) error {
	if f.conflictWith != nil {
		winner := *f.conflictWith
		f.conflictWith = nil
		f.bets[winner.ID] = winner
		f.byKey[winner.UserID+"/"+winner.IdempotencyKey] = winner.ID
		return &pq.Error{Code: "23505"}
	}
	f.stagedBet, f.stagedSels = &b, sels
	return nil
}

func (f *fakeStore) MarkCashedOutTx(_ context.Context, _ *sql.Tx, betID string, payoutCents int64) (bool, error) {
	b, ok := f.bets[betID]
	if !ok || b.Status != repo.BetPending {
		return false, nil
	}
	for _, s := range f.sels[betID] {
		if s.Status == repo.SelectionLost {
			return false, nil
		}
	}
	if f.stagedStatus == nil {
		f.stagedStatus = map[string]string{}
		f.stagedPayout = map[string]int64{}
	}
	f.stagedStatus[betID] = repo.BetCashout
	f.stagedPayout[betID] = payoutCents
	return true, nil
}

func (f *fakeStore) commit() {
	if f.stagedBet != nil {
		f.bets[f.stagedBet.ID] = *f.stagedBet
		f.sels[f.stagedBet.ID] = f.stagedSels
		if f.stagedBet.IdempotencyKey != "" {
			f.byKey[f.stagedBet.UserID+"/"+f.stagedBet.IdempotencyKey] = f.stagedBet.ID
		}
	}
	for betID, status := range f.stagedStatus {
		b := f.bets[betID]
		b.Status = status
		b.PayoutCents = f.stagedPayout[betID]
		f.bets[betID] = b
		sels := f.sels[betID]
		for i := range sels {
			sels[i].Status = repo.SelectionVoid
		}
	}
	f.stagedBet, f.stagedSels, f.stagedStatus, f.stagedPayout = nil, nil, nil, nil
}

func (f *fakeStore) abort() {
	f.stagedBet, f.stagedSels, f.stagedStatus, f.stagedPayout = nil, nil, nil, nil
}

type fakeWallet struct {
	balance   int64
	applied   []ledger.Entry
	staged    []ledger.Entry
	announced int
}

func (f *fakeWallet) GetOrCreateWallet(_ context.Context, userID, currency string) (ledger.Wallet, error) {
	return ledger.Wallet{ID: "w1", UserID: userID, Currency: currency, BalanceCents: f.balance}, nil
}

func (f *fakeWallet) ApplyTx(_ context.Context, _ *sql.Tx, e ledger.Entry) (ledger.Wallet, ledger.Transaction, error) {
	next := f.balance
	for _, s := range f.staged {
		next += s.AmountCents
	}
	next += e.AmountCents
	if next < 0 {
		return ledger.Wallet{}, ledger.Transaction{}, ledger.ErrInsufficientFunds
	}
	f.staged = append(f.staged, e)
	return ledger.Wallet{ID: "w1", UserID: e.UserID, Currency: e.Currency, BalanceCents: next},
		ledger.Transaction{Type: e.Type, AmountCents: e.AmountCents}, nil
}

func (f *fakeWallet) Announce(ledger.Wallet, ledger.Transaction) { f.announced++ }

func (f *fakeWallet) commit() {
	for _, e := range f.staged {
		f.balance += e.AmountCents
		f.applied = append(f.applied, e)
	}
	f.staged = nil
}

func (f *fakeWallet) abort() { f.staged = nil }

// runner de transação dos testes: commit nos fakes no sucesso, abort no erro
func fakeInTx(store *fakeStore, wal *fakeWallet) InTx {
	return func(_ context.Context, fn func(tx *sql.Tx) error) error {
		if err := fn(nil); err != nil {
			store.abort()
			wal.abort()
			return err
		}
		store.commit()
		wal.commit()
		return nil
	}
}

type noLive struct{}

func (noLive) CurrentOdd(context.Context, string, string, string) (float64, bool) { return 0, false }

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		matches: map[string]repo.Match{"m1": {ID: "m1", Status: repo.MatchUpcoming}},
		markets: map[string]repo.Market{"mk1": {ID: "mk1", MatchID: "m1", Type: "1x2", Active: true}},
		odds:    map[string]repo.Odd{"o1": {ID: "o1", MarketID: "mk1", Selection: "home", Value: 1.85, Active: true}},
	}
}

func newService(store *fakeStore, wal *fakeWallet) *Service {
	return &Service{
		log:      zap.NewNop(),
		inTx:     fakeInTx(store, wal),
		repo:     store,
		val:      validator.New(newCatalog()),
		wallet:   wal,
		valuator: cashout.New(noLive{}, 0.92, 0.10),
	}
}

func singleInput(key string) PlaceBetInput {
	return PlaceBetInput{
		UserID: "u1", Type: repo.BetTypeSingle, StakeCents: 1000, Currency: "COINS",
		IdempotencyKey: key,
		Legs:           []validator.Leg{{MatchID: "m1", MarketID: "mk1", OddID: "o1", Selection: "home"}},
	}
}

// --- cenários ---

func TestPlaceBet_DebitsStakeOnce(t *testing.T) {
	store := newFakeStore()
	wal := &fakeWallet{balance: 5_000}
	svc := newService(store, wal)

	placed, err := svc.PlaceBet(context.Background(), singleInput("k1"))
	require.NoError(t, err)
	assert.False(t, placed.Replayed)
	assert.Equal(t, int64(1850), placed.Bet.PotentialPayoutCents)

	require.Len(t, wal.applied, 1)
	assert.Equal(t, ledger.TxStake, wal.applied[0].Type)
	assert.Equal(t, int64(-1000), wal.applied[0].AmountCents)
	assert.Equal(t, int64(4_000), wal.balance)
	assert.Equal(t, 1, wal.announced)

	stored := store.bets[placed.Bet.ID]
	assert.Equal(t, repo.BetPending, stored.Status)
	assert.Len(t, store.sels[placed.Bet.ID], 1)
}

// retry com a mesma chave devolve a aposta existente sem um segundo débito
func TestPlaceBet_IdempotentReplay(t *testing.T) {
	store := newFakeStore()
	wal := &fakeWallet{balance: 5_000}
	svc := newService(store, wal)
	ctx := context.Background()

	first, err := svc.PlaceBet(ctx, singleInput("k1"))
	require.NoError(t, err)

	second, err := svc.PlaceBet(ctx, singleInput("k1"))
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Bet.ID, second.Bet.ID)

	// exatamente um débito de stake entre as duas chamadas
	assert.Len(t, wal.applied, 1)
	assert.Equal(t, int64(4_000), wal.balance)
}

// dois retries concorrentes passam a pré-checagem; o perdedor do insert vê o
// unique violation, tem o débito desfeito pelo rollback e resolve pro replay
func TestPlaceBet_InsertRaceReplaysWithoutSecondDebit(t *testing.T) {
	store := newFakeStore()
	wal := &fakeWallet{balance: 5_000}
	svc := newService(store, wal)

	winner := repo.Bet{ID: "b-winner", UserID: "u1", Type: repo.BetTypeSingle,
		StakeCents: 1000, Currency: "COINS", TotalOdds: 1.85,
		Status: repo.BetPending, IdempotencyKey: "k1"}
	store.conflictWith = &winner

	placed, err := svc.PlaceBet(context.Background(), singleInput("k1"))
	require.NoError(t, err)
	assert.True(t, placed.Replayed)
	assert.Equal(t, "b-winner", placed.Bet.ID)

	// o débito staged deste caminho foi abortado junto com o insert
	assert.Empty(t, wal.applied)
	assert.Equal(t, int64(5_000), wal.balance)
	assert.Equal(t, 0, wal.announced)
}

func TestCashOut_CreditsOnceAndVoidsLegs(t *testing.T) {
	store := newFakeStore()
	store.bets["b1"] = repo.Bet{ID: "b1", UserID: "u1", Type: repo.BetTypeCombo,
		StakeCents: 1000, Currency: "COINS", TotalOdds: 6.0, Status: repo.BetPending}
	store.sels["b1"] = []repo.BetSelection{
		{ID: "s1", BetID: "b1", OddsAtPlacement: 2.0, Status: repo.SelectionPending},
		{ID: "s2", BetID: "b1", OddsAtPlacement: 3.0, Status: repo.SelectionPending},
	}
	wal := &fakeWallet{balance: 0}
	svc := newService(store, wal)

	res, err := svc.CashOut(context.Background(), "u1", "b1")
	require.NoError(t, err)
	// sem preço vivo, as odds congeladas mantêm o produto original:
	// 1000 × (6.0 ÷ 6.0) × 0.92 = 920
	assert.Equal(t, int64(920), res.AmountCents)

	require.Len(t, wal.applied, 1)
	assert.Equal(t, ledger.TxCashout, wal.applied[0].Type)
	assert.Equal(t, int64(920), wal.balance)

	assert.Equal(t, repo.BetCashout, store.bets["b1"].Status)
	for _, s := range store.sels["b1"] {
		assert.Equal(t, repo.SelectionVoid, s.Status)
	}
}

// o settlement commita a perna perdida entre a leitura da cotação e a
// transição condicional: o guarda da transição falha e nada é creditado
func TestCashOut_LostLegCommittedAfterQuoteRead(t *testing.T) {
	store := newFakeStore()
	store.bets["b1"] = repo.Bet{ID: "b1", UserID: "u1", Type: repo.BetTypeCombo,
		StakeCents: 1000, Currency: "COINS", TotalOdds: 6.0, Status: repo.BetPending}
	// estado corrente: s1 já perdeu
	store.sels["b1"] = []repo.BetSelection{
		{ID: "s1", BetID: "b1", OddsAtPlacement: 2.0, Status: repo.SelectionLost},
		{ID: "s2", BetID: "b1", OddsAtPlacement: 3.0, Status: repo.SelectionPending},
	}
	// snapshot lido pela cotação, anterior ao commit do settlement
	store.staleSels = []repo.BetSelection{
		{ID: "s1", BetID: "b1", OddsAtPlacement: 2.0, Status: repo.SelectionPending},
		{ID: "s2", BetID: "b1", OddsAtPlacement: 3.0, Status: repo.SelectionPending},
	}
	wal := &fakeWallet{balance: 0}
	svc := newService(store, wal)

	_, err := svc.CashOut(context.Background(), "u1", "b1")
	assert.ErrorIs(t, err, ErrInvalidState)

	// nenhum crédito, aposta segue pendente pro settlement concluir
	assert.Empty(t, wal.applied)
	assert.Equal(t, int64(0), wal.balance)
	assert.Equal(t, repo.BetPending, store.bets["b1"].Status)
	assert.Equal(t, repo.SelectionLost, store.sels["b1"][0].Status)
}

func TestCashOut_WrongUserLooksLikeMissing(t *testing.T) {
	store := newFakeStore()
	store.bets["b1"] = repo.Bet{ID: "b1", UserID: "u1", Status: repo.BetPending, TotalOdds: 2.0, StakeCents: 500, Currency: "COINS"}
	svc := newService(store, &fakeWallet{})

	_, err := svc.CashOut(context.Background(), "u2", "b1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
