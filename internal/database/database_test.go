package database

import (
	"context"
	"strings"
	"testing"
)

func TestConnectRejectsBadDSN(t *testing.T) {
	if _, err := Connect(context.Background(), "postgres://%zz"); err == nil {
		t.Fatalf("expected error for malformed dsn")
	}
}

func TestSchemaDeclaresLedgerColumns(t *testing.T) {
	for _, col := range []string{"original_filename", "download_name", "object_key", "verify_url", "uploaded_at", "status", "audit_message"} {
		if !strings.Contains(Schema, col) {
			t.Fatalf("schema missing column %s", col)
		}
	}
}
