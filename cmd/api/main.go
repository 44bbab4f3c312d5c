package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eyewear/internal/config"
	"eyewear/internal/handler"
	"eyewear/internal/infra/db"
	"eyewear/internal/infra/notify"
	infraRepo "eyewear/internal/infra/repository"
	"eyewear/internal/infra/repository/memory"
	"eyewear/internal/observability"
	"eyewear/internal/repository"
	"eyewear/internal/server"
	"eyewear/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type notifier interface {
	usecase.Notifier
	Close() error
}

func main() {
	//.envは無くてもいい（本番は環境変数だけ）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//Repository生成（postgres or memory）
	tx, err := newTxManager(cfg, logger)
	if err != nil {
		return err
	}

	//通知
	n, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := n.Close(); err != nil {
			logger.Warn("close notifier", zap.Error(err))
		}
	}()

	//メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := observability.NewServerMetrics(reg)
	orderMetrics := observability.NewOrderMetrics(reg)

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(tx, n, &realClock{}, logger, orderMetrics)

	//Handler生成
	e := server.New(server.Deps{
		Config:     cfg,
		Logger:     logger,
		Metrics:    serverMetrics,
		Gatherer:   reg,
		Orders:     handler.NewOrderHandler(orderUC),
		AdminOrder: handler.NewAdminOrderHandler(orderUC),
	})

	//Server起動
	return server.Run(ctx, e, cfg.Addr(), logger)
}

func newTxManager(cfg config.Config, logger *zap.Logger) (repository.TransactionManager, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		store := memory.NewStore()
		seedProducts(store)
		logger.Warn("using in-memory store; data is lost on restart")
		return store, nil
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, err
	}
	return infraRepo.NewTxManagerGorm(gormDB), nil
}

func newNotifier(cfg config.Config, logger *zap.Logger) (notifier, error) {
	switch cfg.NotifyDriver {
	case config.NotifyDriverKafka:
		return notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger), nil
	case config.NotifyDriverAMQP:
		return notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, logger)
	default:
		return notify.NewLogNotifier(logger), nil
	}
}
