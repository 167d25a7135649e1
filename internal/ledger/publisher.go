package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-core/pkg/contracts/events"
)

const ChannelBalanceBroadcast = "balance_updates_broadcast"

// Publisher anuncia mudanças de saldo no Redis Pub/Sub. Canal lateral e
// best-effort: falha aqui não invalida a mutação já commitada.
type Publisher struct {
	r       *redis.Client
	channel string
}

func NewPublisher(r *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = ChannelBalanceBroadcast
	}
	return &Publisher{r: r, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, w Wallet, t Transaction) error {
	ev := events.BalanceChanged{
		UserID:       w.UserID,
		WalletID:     w.ID,
		Currency:     w.Currency,
		BalanceCents: w.BalanceCents,
		Version:      w.Version,
		TxType:       string(t.Type),
		Ts:           time.Now().UTC(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.r.Publish(ctx, p.channel, b).Err()
}
