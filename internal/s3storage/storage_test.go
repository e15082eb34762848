package s3storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/dharsanguruparan/SealDrop/internal/api"
	"github.com/dharsanguruparan/SealDrop/internal/config"
	"github.com/dharsanguruparan/SealDrop/internal/storage"
)

var (
	_ storage.Store = (*Storage)(nil)
	_ api.Presigner = (*Storage)(nil)
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatalf("NoSuchKey not treated as missing")
	}
	if !isNotFound(minio.ErrorResponse{StatusCode: 404}) {
		t.Fatalf("404 not treated as missing")
	}
	if isNotFound(errors.New("connection reset")) {
		t.Fatalf("generic error treated as missing")
	}
}

func TestPutRejectsInvalidKey(t *testing.T) {
	s, err := New(&config.Config{S3Endpoint: "localhost:9000", S3Bucket: "b"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Put(t.Context(), "../x.pdf", nil); !errors.Is(err, storage.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestPresignURL(t *testing.T) {
	// With a fixed region presigning is computed locally.
	s, err := New(&config.Config{
		S3Endpoint:  "localhost:9000",
		S3AccessKey: "access",
		S3SecretKey: "secret",
		S3Region:    "us-east-1",
		S3Bucket:    "sealdrop",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	u, err := s.PresignURL(t.Context(), "doc-1.pdf", "contrato_sellado.pdf", time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	for _, want := range []string{"/sealdrop/doc-1.pdf", "X-Amz-Signature=", "response-content-disposition="} {
		if !strings.Contains(u, want) {
			t.Fatalf("presigned url %q missing %q", u, want)
		}
	}
}
