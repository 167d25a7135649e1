package liveodds

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-core/internal/bet-service/repo"
)

// OddGetter é o fallback de catálogo quando o cache não tem o preço.
type OddGetter interface {
	GetOdd(ctx context.Context, id string) (repo.Odd, error)
}

// Reader resolve o preço vivo de uma seleção: primeiro o cache Redis
// (chave "odds:{matchId}:{marketId}:{oddId}" => "1.85"), depois o catálogo.
// Odd desativada não tem preço vivo.
type Reader struct {
	rdb  *redis.Client
	repo OddGetter
}

func New(rdb *redis.Client, repo OddGetter) *Reader {
	return &Reader{rdb: rdb, repo: repo}
}

func key(matchID, marketID, oddID string) string {
	return fmt.Sprintf("odds:%s:%s:%s", matchID, marketID, oddID)
}

func (r *Reader) CurrentOdd(ctx context.Context, matchID, marketID, oddID string) (float64, bool) {
	if r.rdb != nil {
		if val, err := r.rdb.Get(ctx, key(matchID, marketID, oddID)).Result(); err == nil {
			if f, perr := strconv.ParseFloat(val, 64); perr == nil && f > 0 {
				return f, true
			}
		}
	}

	if r.repo == nil {
		return 0, false
	}
	o, err := r.repo.GetOdd(ctx, oddID)
	if err != nil || !o.Active || o.Value <= 0 {
		return 0, false
	}
	return o.Value, true
}
