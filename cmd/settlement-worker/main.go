package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/bet-core/internal/ledger"
	"github.com/radieske/bet-core/internal/settlement/consumer"
	"github.com/radieske/bet-core/internal/settlement/engine"
	"github.com/radieske/bet-core/internal/settlement/producer"
	srepo "github.com/radieske/bet-core/internal/settlement/repo"
	"github.com/radieske/bet-core/internal/shared/cache"
	"github.com/radieske/bet-core/internal/shared/config"
	"github.com/radieske/bet-core/internal/shared/db"
	sharedkafka "github.com/radieske/bet-core/internal/shared/kafka"
	"github.com/radieske/bet-core/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("settlement-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Consumer de resultados (consumer group settlement-worker) + DLQ
	reader := sharedkafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchResults, "settlement-worker")
	defer reader.Close()

	dlq := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchResultsDLQ)
	defer dlq.Close()

	settledWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	// Métricas Prometheus para monitoramento da liquidação
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "resultados consumidos"})
	selections := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_selections_settled_total", Help: "pernas liquidadas por status"}, []string{"status"})
	bets := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_settled_total", Help: "apostas liquidadas por status"}, []string{"status"})
	payouts := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_payouts_total", Help: "créditos de prêmio/refund aplicados"})
	legsPerEvent := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_legs_settled_total", Help: "pernas liquidadas acumuladas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, selections, bets, payouts, legsPerEvent, errorsBy)

	wallet := ledger.NewTransactor(log, ledger.NewStore(pg), ledger.NewPublisher(rdb, cfg.RedisPubSubChannel))

	eng := &engine.Engine{
		Log:      log,
		Repo:     srepo.NewPostgres(pg),
		Ledger:   wallet,
		Notifier: producer.NewKafkaPublisher(settledWriter),

		OnSelectionSettled: func(status string) { selections.WithLabelValues(status).Inc() },
		OnBetSettled:       func(status string) { bets.WithLabelValues(status).Inc() },
		OnPayout:           func() { payouts.Inc() },
		OnError:            func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	proc := &consumer.Processor{
		Log:    log,
		Reader: reader,
		Engine: eng,
		DLQ:    dlq,

		OnConsumed: func() { consumed.Inc() },
		OnSettled:  func(n int) { legsPerEvent.Add(float64(n)) },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			if err := pg.PingContext(ctx); err != nil {
				http.Error(w, "pg", http.StatusServiceUnavailable)
				return
			}
			if err := rdb.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health listening", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started")
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
