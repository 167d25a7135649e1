package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/radieske/bet-core/internal/bet-service/cashout"
	"github.com/radieske/bet-core/internal/bet-service/repo"
	"github.com/radieske/bet-core/internal/bet-service/validator"
	"github.com/radieske/bet-core/internal/ledger"
	"github.com/radieske/bet-core/internal/pricing"
)

// Aposta existe mas não está num estado que permita a operação pedida.
var ErrInvalidState = errors.New("bet not in a valid state for this operation")

// BetStore é a persistência de apostas vista pela orquestração.
type BetStore interface {
	GetBet(ctx context.Context, betID string) (repo.Bet, error)
	GetBetByIdempotencyKey(ctx context.Context, userID, key string) (repo.Bet, error)
	GetBetSelections(ctx context.Context, betID string) ([]repo.BetSelection, error)
	CreateBetTx(ctx context.Context, tx *sql.Tx, b repo.Bet, sels []repo.BetSelection) error
	MarkCashedOutTx(ctx context.Context, tx *sql.Tx, betID string, payoutCents int64) (bool, error)
}

// WalletLedger é a fatia da carteira usada pela orquestração.
type WalletLedger interface {
	GetOrCreateWallet(ctx context.Context, userID, currency string) (ledger.Wallet, error)
	ApplyTx(ctx context.Context, tx *sql.Tx, e ledger.Entry) (ledger.Wallet, ledger.Transaction, error)
	Announce(w ledger.Wallet, rec ledger.Transaction)
}

// InTx executa fn dentro de uma transação: commit se fn retornar nil,
// rollback caso contrário.
type InTx func(ctx context.Context, fn func(tx *sql.Tx) error) error

// SQLTx é o runner de produção sobre database/sql.
func SQLTx(db *sql.DB) InTx {
	return func(ctx context.Context, fn func(tx *sql.Tx) error) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	}
}

// Service orquestra colocação, cash-out e consulta de apostas. O débito do
// stake e a criação da aposta acontecem na mesma transação de banco: a aposta
// nunca fica visível sem o stake debitado.
type Service struct {
	log      *zap.Logger
	inTx     InTx
	repo     BetStore
	val      *validator.Validator
	wallet   WalletLedger
	valuator *cashout.Valuator
}

func New(log *zap.Logger, db *sql.DB, r BetStore, v *validator.Validator,
	w WalletLedger, cv *cashout.Valuator) *Service {
	return &Service{log: log, inTx: SQLTx(db), repo: r, val: v, wallet: w, valuator: cv}
}

type PlaceBetInput struct {
	UserID         string
	Type           string // single | combo
	StakeCents     int64
	Currency       string
	IdempotencyKey string // opcional; retry com a mesma chave devolve a mesma aposta
	Legs           []validator.Leg
}

type PlacedBet struct {
	Bet        repo.Bet
	Selections []repo.BetSelection
	Wallet     ledger.Wallet
	Replayed   bool // true quando a chave de idempotência resolveu um retry
}

func (s *Service) PlaceBet(ctx context.Context, in PlaceBetInput) (PlacedBet, error) {
	// retry de uma colocação que já aplicou no servidor: devolve a aposta
	// existente sem debitar de novo
	if in.IdempotencyKey != "" {
		if existing, err := s.repo.GetBetByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey); err == nil {
			return s.replay(ctx, existing)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return PlacedBet{}, err
		}
	}

	legs, err := s.val.Validate(ctx, in.Type, in.StakeCents, in.Legs)
	if err != nil {
		return PlacedBet{}, err
	}

	oddValues := make([]float64, len(legs))
	for i, l := range legs {
		oddValues[i] = l.OddValue
	}
	totalOdds := pricing.CombinedOdds(oddValues)
	totalOddsF, _ := totalOdds.Float64()

	now := time.Now().UTC()
	bet := repo.Bet{
		ID:                   uuid.NewString(),
		UserID:               in.UserID,
		Type:                 in.Type,
		StakeCents:           in.StakeCents,
		Currency:             in.Currency,
		TotalOdds:            totalOddsF,
		PotentialPayoutCents: pricing.PayoutCents(in.StakeCents, totalOdds),
		Status:               repo.BetPending,
		IdempotencyKey:       in.IdempotencyKey,
		CreatedAt:            now,
	}
	sels := make([]repo.BetSelection, len(legs))
	for i, l := range legs {
		sels[i] = repo.BetSelection{
			ID:              uuid.NewString(),
			BetID:           bet.ID,
			MatchID:         l.MatchID,
			MarketID:        l.MarketID,
			OddID:           l.OddID,
			Selection:       l.Selection,
			OddsAtPlacement: l.OddValue,
			Status:          repo.SelectionPending,
		}
	}

	// carteira é criada preguiçosamente no primeiro acesso
	if _, err := s.wallet.GetOrCreateWallet(ctx, in.UserID, in.Currency); err != nil {
		return PlacedBet{}, err
	}

	var w ledger.Wallet
	var rec ledger.Transaction
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		w, rec, txErr = s.wallet.ApplyTx(ctx, tx, ledger.Entry{
			UserID:        in.UserID,
			Currency:      in.Currency,
			Type:          ledger.TxStake,
			AmountCents:   -in.StakeCents,
			ReferenceType: "bet",
			ReferenceID:   bet.ID,
		})
		if txErr != nil {
			return txErr
		}
		return s.repo.CreateBetTx(ctx, tx, bet, sels)
	})
	if err != nil {
		// corrida de retries com a mesma chave: o primeiro insert venceu e o
		// débito deste caminho já foi desfeito pelo rollback
		var pqErr *pq.Error
		if in.IdempotencyKey != "" && errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if existing, gerr := s.repo.GetBetByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey); gerr == nil {
				return s.replay(ctx, existing)
			}
		}
		return PlacedBet{}, err
	}
	s.wallet.Announce(w, rec)

	s.log.Info("bet placed",
		zap.String("betId", bet.ID),
		zap.String("userId", in.UserID),
		zap.String("type", in.Type),
		zap.Int64("stakeCents", in.StakeCents),
		zap.Float64("totalOdds", bet.TotalOdds),
	)
	return PlacedBet{Bet: bet, Selections: sels, Wallet: w}, nil
}

func (s *Service) replay(ctx context.Context, bet repo.Bet) (PlacedBet, error) {
	sels, err := s.repo.GetBetSelections(ctx, bet.ID)
	if err != nil {
		return PlacedBet{}, err
	}
	w, err := s.wallet.GetOrCreateWallet(ctx, bet.UserID, bet.Currency)
	if err != nil {
		return PlacedBet{}, err
	}
	return PlacedBet{Bet: bet, Selections: sels, Wallet: w, Replayed: true}, nil
}

type CashOutResult struct {
	AmountCents int64
	Bet         repo.Bet
	Wallet      ledger.Wallet
}

// CashOut liquida a aposta antecipadamente: transição única pending→cashout,
// todas as pernas viram void e o valor calculado é creditado uma vez. A
// cotação é lida fora da transação; a transição condicional revalida estado e
// pernas, então um settlement concorrente faz esta chamada falhar em vez de
// pagar por uma perna que já perdeu.
func (s *Service) CashOut(ctx context.Context, userID, betID string) (CashOutResult, error) {
	bet, err := s.repo.GetBet(ctx, betID)
	if err != nil {
		return CashOutResult{}, err
	}
	if bet.UserID != userID {
		return CashOutResult{}, repo.ErrNotFound
	}
	if bet.Status != repo.BetPending {
		return CashOutResult{}, ErrInvalidState
	}

	sels, err := s.repo.GetBetSelections(ctx, betID)
	if err != nil {
		return CashOutResult{}, err
	}

	amount, err := s.valuator.Value(ctx, bet, sels)
	if err != nil {
		return CashOutResult{}, err
	}

	var w ledger.Wallet
	var rec ledger.Transaction
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		ok, txErr := s.repo.MarkCashedOutTx(ctx, tx, betID, amount)
		if txErr != nil {
			return txErr
		}
		if !ok {
			// settlement, outro cash-out ou uma perna recém-perdida
			return ErrInvalidState
		}
		w, rec, txErr = s.wallet.ApplyTx(ctx, tx, ledger.Entry{
			UserID:        userID,
			Currency:      bet.Currency,
			Type:          ledger.TxCashout,
			AmountCents:   amount,
			ReferenceType: "bet",
			ReferenceID:   betID,
		})
		return txErr
	})
	if err != nil {
		return CashOutResult{}, err
	}
	s.wallet.Announce(w, rec)

	bet.Status = repo.BetCashout
	bet.PayoutCents = amount

	s.log.Info("bet cashed out",
		zap.String("betId", betID),
		zap.String("userId", userID),
		zap.Int64("amountCents", amount),
	)
	return CashOutResult{AmountCents: amount, Bet: bet, Wallet: w}, nil
}

type BetView struct {
	Bet          repo.Bet
	Selections   []repo.BetSelection
	CashoutCents *int64 // cotação viva, só quando a aposta segue pendente
}

func (s *Service) GetBet(ctx context.Context, userID, betID string) (BetView, error) {
	bet, err := s.repo.GetBet(ctx, betID)
	if err != nil {
		return BetView{}, err
	}
	if bet.UserID != userID {
		return BetView{}, repo.ErrNotFound
	}
	sels, err := s.repo.GetBetSelections(ctx, betID)
	if err != nil {
		return BetView{}, err
	}

	view := BetView{Bet: bet, Selections: sels}
	if bet.Status == repo.BetPending {
		if quote, qerr := s.valuator.Value(ctx, bet, sels); qerr == nil {
			view.CashoutCents = &quote
		}
	}
	return view, nil
}
