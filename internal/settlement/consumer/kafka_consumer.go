package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-core/internal/settlement/engine"
	"github.com/radieske/bet-core/pkg/contracts/events"
)

// Source é o reader Kafka visto pelo processor: fetch explícito e commit
// separado, pra só commitar o offset depois do processamento.
type Source interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DeadLetter recebe mensagens venenosas (json inválido, partida desconhecida).
type DeadLetter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Processor consome resultados de partida do Kafka e aciona o engine de
// liquidação. Mensagem venenosa vai pra DLQ e tem o offset commitado; erro
// transitório NÃO commita o offset, então a mensagem volta na reentrega do
// grupo e o engine idempotente absorve a repassada.
type Processor struct {
	Log    *zap.Logger
	Reader Source
	Engine *engine.Engine
	DLQ    DeadLetter // opcional

	OnConsumed func()       // métricas (counter++)
	OnSettled  func(int)    // métricas: pernas liquidadas por evento
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.countError("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var ev events.MatchResult
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			p.Log.Warn("invalid match result message", zap.Error(err))
			p.countError("decode")
			p.toDLQ(ctx, m)
			p.commit(ctx, m)
			continue
		}

		settled, err := p.Engine.SettleMatch(ctx, ev)
		if err != nil {
			if errors.Is(err, engine.ErrUnknownMatch) {
				p.Log.Warn("match result for unknown match",
					zap.String("matchId", ev.MatchID))
				p.countError("unknown_match")
				p.toDLQ(ctx, m)
				p.commit(ctx, m)
				continue
			}
			// transitório: offset fica pra trás e a mensagem é reentregue
			p.Log.Error("settle match failed",
				zap.String("matchId", ev.MatchID), zap.Error(err))
			p.countError("settle")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnSettled != nil {
			p.OnSettled(settled)
		}
		p.commit(ctx, m)
		p.Log.Info("match result processed",
			zap.String("matchId", ev.MatchID),
			zap.Bool("voided", ev.Voided),
			zap.Int("settledSelections", settled),
		)
	}
}

func (p *Processor) commit(ctx context.Context, m kafka.Message) {
	if err := p.Reader.CommitMessages(ctx, m); err != nil {
		// commit falhou: a mensagem volta, o engine re-processa sem efeito
		p.Log.Warn("offset commit failed", zap.Error(err))
		p.countError("commit")
	}
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	if err := p.DLQ.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value, Time: time.Now()}); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
	}
}

func (p *Processor) countError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
