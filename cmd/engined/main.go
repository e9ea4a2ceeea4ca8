package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peertrade/tradecore/config"
	"github.com/peertrade/tradecore/pkg/engine"
	"github.com/peertrade/tradecore/pkg/engine/book"
	"github.com/peertrade/tradecore/pkg/engine/journal"
	"github.com/peertrade/tradecore/pkg/engine/model"
	"github.com/peertrade/tradecore/pkg/engine/repo"
	"github.com/peertrade/tradecore/pkg/engine/worker"
	postgres_wrapper "github.com/peertrade/tradecore/pkg/infra/postgres"
	redis_wrapper "github.com/peertrade/tradecore/pkg/infra/redis"
	"github.com/peertrade/tradecore/pkg/logging"
	"github.com/peertrade/tradecore/pkg/publish"
	"github.com/peertrade/tradecore/pkg/settlement"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	log := logging.NewLogger(logging.INFO)
	defer log.Sync() // nolint

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	var pub publish.Publisher = publish.NewLogPublisher(log)
	var sub *publish.RedisSubscriber
	if cfg.Redis != nil {
		redisClient, err := redis_wrapper.InitRedis(cfg.Redis)
		if err != nil {
			panic(err)
		}
		pub = publish.NewRedisPublisher(redisClient, cfg.PublishChannel)
		sub = publish.NewRedisSubscriber(redisClient, cfg.PublishChannel, cfg.TraderID, log)
	}

	jrnl := journal.New(0)
	coord := settlement.NewInProcess(settlement.InProcessConfig{}, nil, log)

	bids := book.New(model.Bid)
	asks := book.New(model.Ask)
	eng := engine.New(engine.Config{
		OwnID:       cfg.TraderID,
		Bids:        bids,
		Asks:        asks,
		Coordinator: coord,
		Publisher:   pub,
		Journal:     jrnl,
		Logger:      log,
	})
	coord.BindExecutor(eng)
	coord.OnResult(func(res settlement.Result) {
		eng.OnEscrowResult(ctx, res)
	})
	go coord.Run(ctx)

	if sub != nil {
		go func() {
			if err := sub.Run(ctx, bids, asks); err != nil && ctx.Err() == nil {
				log.Error(ctx, "order subscription stopped", zap.Error(err))
			}
		}()
	}

	if cfg.JournalDB != nil {
		db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.JournalDB)
		if err != nil {
			panic(err)
		}
		w := worker.NewWorker(repo.NewRepo(db), log)
		go w.Run(ctx, jrnl.Feed())
	}

	log.Info(ctx, "trade core started")
	fmt.Println("Trade core started. Press Ctrl+C to exit.")

	<-sigs
	fmt.Println("Shutting down...")

	cancel()

	fmt.Println("Exited cleanly.")
}
