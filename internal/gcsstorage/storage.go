// Package gcsstorage keeps sealed documents in a Google Cloud Storage bucket.
package gcsstorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	sdstorage "github.com/dharsanguruparan/SealDrop/internal/storage"
)

// Storage wraps a bucket handle.
type Storage struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// New connects with application default credentials. opts are passed to the
// client, e.g. option.WithEndpoint for an emulator.
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Storage, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	return &Storage{client: client, bucket: client.Bucket(bucket)}, nil
}

// Close releases the client.
func (s *Storage) Close() error {
	return s.client.Close()
}

// Put writes the object only if it does not exist yet.
func (s *Storage) Put(ctx context.Context, key string, data []byte) error {
	if err := sdstorage.ValidateKey(key); err != nil {
		return err
	}
	writer := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/pdf"
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return mapWriteErr(err)
	}
	if err := writer.Close(); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func mapWriteErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return sdstorage.ErrExists
	}
	return fmt.Errorf("write gcs object: %w", err)
}

// Get reads the object.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, sdstorage.ErrNotFound
		}
		return nil, fmt.Errorf("open gcs object: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gcs object: %w", err)
	}
	return data, nil
}

// Exists reports whether key is stored.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := s.bucket.Object(key).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat gcs object: %w", err)
	}
	return true, nil
}
