package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/SealDrop/internal/model"
)

// SealRepository wraps all SQL used by the API and the worker.
type SealRepository struct {
	pool *pgxpool.Pool
}

// NewSealRepository constructs a repository.
func NewSealRepository(pool *pgxpool.Pool) *SealRepository {
	return &SealRepository{pool: pool}
}

// Create inserts a freshly sealed document.
func (r *SealRepository) Create(ctx context.Context, entry *model.SealEntry) error {
	now := time.Now().UTC()
	entry.Status = model.StatusSealed
	entry.CreatedAt = now
	entry.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO seals (id, original_filename, download_name, object_key, verify_url, uploaded_at, status, audit_message, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, entry.ID, entry.OriginalFilename, entry.DownloadName, entry.ObjectKey, entry.VerifyURL, entry.UploadedAt, entry.Status, "", entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert seal: %w", err)
	}
	return nil
}

// Get returns a ledger entry by id.
func (r *SealRepository) Get(ctx context.Context, id string) (*model.SealEntry, error) {
	var e model.SealEntry
	row := r.pool.QueryRow(ctx, `
		SELECT id, original_filename, download_name, object_key, verify_url, uploaded_at, status, COALESCE(audit_message,''), created_at, updated_at
		FROM seals WHERE id=$1
	`, id)
	if err := row.Scan(&e.ID, &e.OriginalFilename, &e.DownloadName, &e.ObjectKey, &e.VerifyURL, &e.UploadedAt, &e.Status, &e.AuditMessage, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select seal: %w", err)
	}
	return &e, nil
}

// MarkAudited records a successful re-verification.
func (r *SealRepository) MarkAudited(ctx context.Context, id, msg string) error {
	return r.updateStatus(ctx, id, model.StatusAudited, msg)
}

// MarkTampered records a failed re-verification.
func (r *SealRepository) MarkTampered(ctx context.Context, id, msg string) error {
	return r.updateStatus(ctx, id, model.StatusTampered, msg)
}

func (r *SealRepository) updateStatus(ctx context.Context, id string, status model.SealStatus, msg string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE seals SET status=$1, audit_message=$2, updated_at=$3 WHERE id=$4
	`, status, msg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update seal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
