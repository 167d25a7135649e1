package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/bet-core/internal/bet-service/cashout"
	bhttp "github.com/radieske/bet-core/internal/bet-service/http"
	"github.com/radieske/bet-core/internal/bet-service/liveodds"
	"github.com/radieske/bet-core/internal/bet-service/repo"
	"github.com/radieske/bet-core/internal/bet-service/service"
	"github.com/radieske/bet-core/internal/bet-service/validator"
	"github.com/radieske/bet-core/internal/ledger"
	"github.com/radieske/bet-core/internal/shared/cache"
	"github.com/radieske/bet-core/internal/shared/config"
	"github.com/radieske/bet-core/internal/shared/db"
	"github.com/radieske/bet-core/internal/shared/logger"
	"github.com/radieske/bet-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("bet-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: catálogo, apostas e ledger
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: preços vivos pro cash-out e broadcast de saldo
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// deps
	repository := repo.NewPostgres(pg)
	wallet := ledger.NewTransactor(log, ledger.NewStore(pg), ledger.NewPublisher(rdb, cfg.RedisPubSubChannel))
	val := validator.New(repository)
	live := liveodds.New(rdb, repository)
	valuator := cashout.New(live, cfg.CashoutMargin, cfg.CashoutFloorFraction)

	svc := service.New(log, pg, repository, val, wallet, valuator)

	// HTTP público
	api := bhttp.NewServer(log, svc)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
