package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/bootstrap"
	"github.com/dharsanguruparan/SealDrop/internal/config"
	"github.com/dharsanguruparan/SealDrop/internal/worker"
	"github.com/dharsanguruparan/SealDrop/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Must("").Fatal("load config", zap.Error(err))
	}
	log := logger.Must(cfg.Environment)
	defer func() { _ = log.Sync() }()

	if cfg.RedisAddr == "" {
		log.Fatal("SEALDROP_REDIS_ADDR is required for the worker")
	}

	pair, err := bootstrap.Keys(cfg, log)
	if err != nil {
		log.Fatal("load keys", zap.Error(err))
	}
	store, closeStore, err := bootstrap.Store(ctx, cfg)
	if err != nil {
		log.Fatal("init storage", zap.Error(err))
	}
	defer closeStore()
	ledger, closeLedger, err := bootstrap.Ledger(ctx, cfg, log)
	if err != nil {
		log.Fatal("init ledger", zap.Error(err))
	}
	defer closeLedger()

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.AuditWorkers,
		Logger:      log.Sugar(),
	})
	processor := worker.NewProcessor(ledger, store, pair.Public, log)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(mux); err != nil {
		log.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
