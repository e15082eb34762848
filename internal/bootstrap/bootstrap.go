// Package bootstrap turns a Config into the long lived collaborators shared
// by the server and the worker binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/dharsanguruparan/SealDrop/internal/config"
	"github.com/dharsanguruparan/SealDrop/internal/database"
	"github.com/dharsanguruparan/SealDrop/internal/gcsstorage"
	"github.com/dharsanguruparan/SealDrop/internal/keys"
	"github.com/dharsanguruparan/SealDrop/internal/repository"
	"github.com/dharsanguruparan/SealDrop/internal/s3storage"
	"github.com/dharsanguruparan/SealDrop/internal/storage"
)

// Closer releases a resource opened here. It is never nil.
type Closer func()

func noop() {}

// Keys loads the configured key pair. Outside production, a missing pair is
// replaced by an ephemeral ECDSA key so a bare checkout can seal documents;
// those seals stop verifying once the process exits.
func Keys(cfg *config.Config, logger *zap.Logger) (*keys.Pair, error) {
	pair, err := keys.LoadPair(keys.Source{
		PrivatePEM:  cfg.PrivateKeyPEM,
		PrivatePath: cfg.PrivateKeyPath,
		PublicPEM:   cfg.PublicKeyPEM,
		PublicPath:  cfg.PublicKeyPath,
	})
	if err == nil {
		logger.Info("keys loaded",
			zap.String("algorithm", string(pair.Public.Algorithm())),
			zap.String("fingerprint", pair.Public.Fingerprint()),
			zap.Bool("can_sign", pair.CanSign()),
		)
		return pair, nil
	}
	if !errors.Is(err, keys.ErrNoPublicKey) || cfg.Production() {
		return nil, err
	}
	k, genErr := keys.Generate(keys.AlgorithmECDSA)
	if genErr != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", genErr)
	}
	logger.Warn("no keys configured, using an ephemeral key",
		zap.String("fingerprint", k.Public().Fingerprint()))
	return &keys.Pair{Private: k, Public: k.Public()}, nil
}

// Store opens the backend named by cfg.Storage.
func Store(ctx context.Context, cfg *config.Config) (storage.Store, Closer, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return storage.NewMemoryStore(), noop, nil
	case config.StorageDisk:
		st, err := storage.NewDiskStore(cfg.StorageDir)
		if err != nil {
			return nil, nil, err
		}
		return st, noop, nil
	case config.StorageS3:
		st, err := s3storage.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return st, noop, nil
	case config.StorageGCS:
		var opts []option.ClientOption
		if cfg.GCSEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.GCSEndpoint), option.WithoutAuthentication())
		}
		st, err := gcsstorage.New(ctx, cfg.GCSBucket, opts...)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// Ledger opens Postgres when a database URL is configured and falls back to
// an in-memory ledger otherwise.
func Ledger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Ledger, Closer, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no database configured, ledger is in memory")
		return repository.NewMemoryLedger(), noop, nil
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repository.NewSealRepository(pool), pool.Close, nil
}
