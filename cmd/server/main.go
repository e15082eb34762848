// Package main is the entry point for the SealDrop HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/assets"
	"github.com/dharsanguruparan/SealDrop/internal/api"
	"github.com/dharsanguruparan/SealDrop/internal/bootstrap"
	"github.com/dharsanguruparan/SealDrop/internal/config"
	"github.com/dharsanguruparan/SealDrop/internal/links"
	"github.com/dharsanguruparan/SealDrop/internal/processing"
	"github.com/dharsanguruparan/SealDrop/internal/queue"
	"github.com/dharsanguruparan/SealDrop/internal/seal"
	"github.com/dharsanguruparan/SealDrop/internal/verifypage"
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
	zap.ReplaceGlobals(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	pair, err := bootstrap.Keys(cfg, log)
	if err != nil {
		return err
	}
	brand, err := assets.BrandMark(cfg.BrandMarkPath)
	if err != nil {
		return err
	}
	store, closeStore, err := bootstrap.Store(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	ledger, closeLedger, err := bootstrap.Ledger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLedger()

	renderer := verifypage.NewRenderer(brand)
	if cfg.PageTitle != "" {
		renderer.Title = cfg.PageTitle
	}
	sealer := seal.New(renderer, log.With(zap.String("component", "sealer")))
	sealer.BindContent = cfg.BindContent

	var auditor queue.Auditor
	if cfg.RedisAddr != "" {
		client := queue.NewClient(asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}))
		defer client.Close()
		auditor = client
		log.Info("audits go through redis", zap.String("redis", cfg.RedisAddr))
	} else {
		proc := worker.NewProcessor(ledger, store, pair.Public, log)
		pool := processing.New(proc.Audit, cfg.AuditWorkers, cfg.AuditTimeout, log)
		pool.Start(ctx)
		auditor = pool
	}

	srv := api.New(cfg, api.Deps{
		Sealer:    sealer,
		Keys:      pair,
		Store:     store,
		Ledger:    ledger,
		Auditor:   auditor,
		Links:     links.NewSigner(cfg.LinkSecret),
		BrandMark: brand,
		Logger:    log,
	})
	return srv.Run(ctx)
}
