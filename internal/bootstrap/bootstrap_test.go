package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/config"
	"github.com/dharsanguruparan/SealDrop/internal/keys"
	"github.com/dharsanguruparan/SealDrop/internal/repository"
	"github.com/dharsanguruparan/SealDrop/internal/storage"
)

func TestKeysEphemeralOutsideProduction(t *testing.T) {
	pair, err := Keys(&config.Config{Environment: "development"}, zap.NewNop())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !pair.CanSign() || pair.Public.Algorithm() != keys.AlgorithmECDSA {
		t.Fatalf("ephemeral pair = %+v", pair)
	}
}

func TestKeysRequiredInProduction(t *testing.T) {
	if _, err := Keys(&config.Config{Environment: "production"}, zap.NewNop()); err == nil {
		t.Fatalf("expected error without keys in production")
	}
}

func TestKeysFromFiles(t *testing.T) {
	k, err := keys.Generate(keys.AlgorithmRSA)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	dir := t.TempDir()
	priv, pub := filepath.Join(dir, "key.pem"), filepath.Join(dir, "key.pub.pem")
	if err := keys.WritePair(k, priv, pub); err != nil {
		t.Fatalf("write: %v", err)
	}
	pair, err := Keys(&config.Config{Environment: "production", PublicKeyPath: pub}, zap.NewNop())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if pair.CanSign() || !pair.Public.Equal(k.Public()) {
		t.Fatalf("verify-only pair = %+v", pair)
	}
}

func TestStoreBackends(t *testing.T) {
	ctx := context.Background()
	st, closeFn, err := Store(ctx, &config.Config{Storage: config.StorageMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	closeFn()
	if _, ok := st.(*storage.MemoryStore); !ok {
		t.Fatalf("memory backend = %T", st)
	}

	st, closeFn, err = Store(ctx, &config.Config{Storage: config.StorageDisk, StorageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("disk: %v", err)
	}
	defer closeFn()
	if _, ok := st.(*storage.DiskStore); !ok {
		t.Fatalf("disk backend = %T", st)
	}

	if _, _, err := Store(ctx, &config.Config{Storage: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLedgerWithoutDatabase(t *testing.T) {
	l, closeFn, err := Ledger(context.Background(), &config.Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	defer closeFn()
	if _, ok := l.(*repository.MemoryLedger); !ok {
		t.Fatalf("ledger = %T", l)
	}
}
