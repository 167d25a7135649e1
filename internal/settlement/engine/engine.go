package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-core/internal/ledger"
	"github.com/radieske/bet-core/internal/pricing"
	"github.com/radieske/bet-core/internal/settlement/outcome"
	"github.com/radieske/bet-core/pkg/contracts/events"
)

var ErrUnknownMatch = errors.New("unknown match")

// PendingSelection é uma perna ainda aberta de uma partida, com o contexto de
// mercado necessário pra decidir o desfecho.
type PendingSelection struct {
	SelectionID string
	BetID       string
	MarketType  string
	Line        float64
	HasLine     bool
	Selection   string
}

// SelectionState é o estado de uma perna na agregação da aposta.
type SelectionState struct {
	ID              string
	Status          string // "pending" | "won" | "lost" | "void"
	OddsAtPlacement float64
}

// BetState é a visão da aposta usada na agregação.
type BetState struct {
	ID         string
	UserID     string
	Type       string
	StakeCents int64
	Currency   string
	Status     string
	Selections []SelectionState
}

// Repo é a persistência vista pelo engine. Toda transição de status é
// condicional (pending→terminal): zero linhas afetadas significa que outro
// worker chegou primeiro, nunca um erro.
type Repo interface {
	// FinishMatch grava placar/resultado quando a partida ainda está aberta;
	// reentrega sobre partida já finalizada é um no-op sem erro.
	FinishMatch(ctx context.Context, matchID string, home, away int, result string) error
	// CancelMatch marca a partida como cancelada; idem quanto à reentrega.
	CancelMatch(ctx context.Context, matchID string) error
	PendingSelectionsByMatch(ctx context.Context, matchID string) ([]PendingSelection, error)
	SettleSelection(ctx context.Context, selectionID, status string) (bool, error)
	BetForSettlement(ctx context.Context, betID string) (BetState, error)
	MarkBetSettled(ctx context.Context, betID, status string, payoutCents int64) (bool, error)
}

// Ledger é a fatia da carteira usada pra creditar prêmios/refunds.
type Ledger interface {
	Apply(ctx context.Context, e ledger.Entry) (ledger.Wallet, ledger.Transaction, error)
	HasTransaction(ctx context.Context, referenceID string, t ledger.TxType) (bool, error)
}

// Notifier publica o evento de aposta liquidada. Best-effort.
type Notifier interface {
	PublishBetSettled(ctx context.Context, ev events.BetSettled) error
}

// Engine liquida pernas quando resultados chegam e agrega apostas cujas
// pernas ficaram todas terminais. Reentrega do mesmo resultado é segura:
// os guardas de estado terminal tornam tudo no-op na segunda passada.
// Callbacks de métricas podem ser usados para monitoramento de cada etapa.
type Engine struct {
	Log      *zap.Logger
	Repo     Repo
	Ledger   Ledger
	Notifier Notifier // opcional

	OnSelectionSettled func(status string) // métricas
	OnBetSettled       func(status string) // métricas
	OnPayout           func()              // métricas
	OnError            func(stage string)  // métricas por fase
}

// SettleMatch processa um resultado do feed externo: marca a partida como
// finalizada (ou anulada), decide cada perna pendente e re-agrega cada aposta
// afetada. Retorna o número de pernas liquidadas nesta passada.
func (e *Engine) SettleMatch(ctx context.Context, ev events.MatchResult) (int, error) {
	if ev.Voided {
		return e.VoidMatch(ctx, ev.MatchID)
	}

	if err := e.Repo.FinishMatch(ctx, ev.MatchID, ev.HomeScore, ev.AwayScore, ev.Result); err != nil {
		return 0, fmt.Errorf("finish match %s: %w", ev.MatchID, err)
	}

	score := outcome.Score{Home: ev.HomeScore, Away: ev.AwayScore, Result: ev.Result}
	return e.settlePending(ctx, ev.MatchID, func(s PendingSelection) outcome.Result {
		return outcome.Settle(outcome.Leg{
			MarketType: s.MarketType,
			Line:       s.Line,
			HasLine:    s.HasLine,
			Selection:  s.Selection,
		}, score, false)
	})
}

// VoidMatch anula a partida (cancelamento/adiamento): toda perna pendente
// vira void e as apostas afetadas são re-agregadas: combos seguem vivos nas
// outras pernas, singles viram refund.
func (e *Engine) VoidMatch(ctx context.Context, matchID string) (int, error) {
	if err := e.Repo.CancelMatch(ctx, matchID); err != nil {
		return 0, fmt.Errorf("cancel match %s: %w", matchID, err)
	}
	return e.settlePending(ctx, matchID, func(PendingSelection) outcome.Result {
		return outcome.Void
	})
}

func (e *Engine) settlePending(ctx context.Context, matchID string, decide func(PendingSelection) outcome.Result) (int, error) {
	sels, err := e.Repo.PendingSelectionsByMatch(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("pending selections for %s: %w", matchID, err)
	}

	settled := 0
	affected := make(map[string]struct{})
	for _, s := range sels {
		res := decide(s)
		ok, err := e.Repo.SettleSelection(ctx, s.SelectionID, string(res))
		if err != nil {
			e.Log.Error("settle selection failed",
				zap.String("selectionId", s.SelectionID), zap.Error(err))
			e.countError("selection")
			continue
		}
		if ok {
			settled++
			if e.OnSelectionSettled != nil {
				e.OnSelectionSettled(string(res))
			}
		}
		// mesmo sem transição (corrida), a agregação da aposta é re-checada
		affected[s.BetID] = struct{}{}
	}

	// falha em uma aposta não pode travar a liquidação das irmãs
	for betID := range affected {
		if err := e.settleBet(ctx, betID); err != nil {
			e.Log.Error("settle bet failed", zap.String("betId", betID), zap.Error(err))
			e.countError("bet")
		}
	}

	return settled, nil
}

// settleBet agrega uma aposta cujas pernas podem ter ficado todas terminais:
//   - toda perna void  → aposta void, refund do stake inteiro;
//   - alguma perdida   → aposta perdida, payout zero;
//   - resto            → ganha; payout = stake × produto das odds congeladas
//     das pernas ganhas (void contribui fator neutro 1).
func (e *Engine) settleBet(ctx context.Context, betID string) error {
	b, err := e.Repo.BetForSettlement(ctx, betID)
	if err != nil {
		return err
	}
	if b.Status != "pending" {
		return nil // já liquidada (ou cashout); reentrega é no-op
	}

	anyLost := false
	allVoid := true
	var wonOdds []float64
	for _, s := range b.Selections {
		switch s.Status {
		case "pending":
			return nil // ainda falta partida terminar
		case "lost":
			anyLost = true
			allVoid = false
		case "won":
			allVoid = false
			wonOdds = append(wonOdds, s.OddsAtPlacement)
		case "void":
			// fator neutro
		default:
			return fmt.Errorf("bet %s: selection %s in unexpected status %q", betID, s.ID, s.Status)
		}
	}

	var status string
	var payout int64
	var txType ledger.TxType
	switch {
	case anyLost:
		status, payout = "lost", 0
	case allVoid:
		status, payout, txType = "void", b.StakeCents, ledger.TxRefund
	default:
		status = "won"
		payout = pricing.PayoutCents(b.StakeCents, pricing.CombinedOdds(wonOdds))
		txType = ledger.TxPayout
	}

	ok, err := e.Repo.MarkBetSettled(ctx, betID, status, payout)
	if err != nil {
		return err
	}
	if !ok {
		return nil // outro worker liquidou entre a leitura e a transição
	}

	if payout > 0 {
		if err := e.credit(ctx, b, txType, payout); err != nil {
			// a aposta já está terminal; o crédito pendente fica pro operador
			return fmt.Errorf("credit bet %s: %w", betID, err)
		}
	}

	if e.OnBetSettled != nil {
		e.OnBetSettled(status)
	}
	e.notify(ctx, b, status, payout)

	e.Log.Info("bet settled",
		zap.String("betId", betID),
		zap.String("status", status),
		zap.Int64("payoutCents", payout),
	)
	return nil
}

func (e *Engine) credit(ctx context.Context, b BetState, txType ledger.TxType, payout int64) error {
	// pré-checagem de idempotência: reentrega nunca credita duas vezes
	exists, err := e.Ledger.HasTransaction(ctx, b.ID, txType)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	entry := ledger.Entry{
		UserID:        b.UserID,
		Currency:      b.Currency,
		Type:          txType,
		AmountCents:   payout,
		ReferenceType: "bet",
		ReferenceID:   b.ID,
	}
	// conflito de versão com operações do próprio usuário: re-submete, cada
	// tentativa re-lê a carteira do zero
	const attempts = 3
	for i := 1; ; i++ {
		_, _, err = e.Ledger.Apply(ctx, entry)
		if !errors.Is(err, ledger.ErrConflict) || i == attempts {
			break
		}
		time.Sleep(time.Duration(i*50) * time.Millisecond)
	}
	if err != nil {
		return err
	}
	if e.OnPayout != nil {
		e.OnPayout()
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, b BetState, status string, payout int64) {
	if e.Notifier == nil {
		return
	}
	err := e.Notifier.PublishBetSettled(ctx, events.BetSettled{
		BetID:       b.ID,
		UserID:      b.UserID,
		Status:      status,
		PayoutCents: payout,
		Ts:          time.Now().UTC(),
	})
	if err != nil {
		e.Log.Warn("bet_settled publish failed", zap.String("betId", b.ID), zap.Error(err))
	}
}

func (e *Engine) countError(stage string) {
	if e.OnError != nil {
		e.OnError(stage)
	}
}
