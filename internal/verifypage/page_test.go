package verifypage

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dharsanguruparan/SealDrop/internal/container"
	pdfutil "github.com/dharsanguruparan/SealDrop/internal/pdf"
	"github.com/dharsanguruparan/SealDrop/internal/testpdf"
)

var issued = time.Date(2025, 5, 30, 23, 50, 7, 0, time.UTC)

func TestRenderSinglePage(t *testing.T) {
	r := NewRenderer(testpdf.BrandMark(t))
	page, err := r.Render("https://x/v/doc-123", "doc-123", issued)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	n, err := container.PageCount(page)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if n != 1 {
		t.Fatalf("pages = %d, want 1", n)
	}
	text, err := pdfutil.ExtractText(page)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "doc-123") {
		t.Fatalf("page text %q does not name the document", text)
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer(testpdf.BrandMark(t))
	a, err := r.Render("https://x/v/doc-1", "doc-1", issued)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := r.Render("https://x/v/doc-1", "doc-1", issued)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("render is not a pure function of its inputs")
	}
	c, _ := r.Render("https://x/v/doc-2", "doc-2", issued)
	if bytes.Equal(a, c) {
		t.Fatalf("different urls rendered the same page")
	}
}

func TestRenderErrors(t *testing.T) {
	if _, err := (&Renderer{}).Render("https://x/v/1", "1", issued); !errors.Is(err, ErrMissingBrandMark) {
		t.Fatalf("expected ErrMissingBrandMark, got %v", err)
	}
	r := NewRenderer(testpdf.BrandMark(t))
	long := "https://x/v/" + strings.Repeat("a", 8000)
	if _, err := r.Render(long, "1", issued); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if _, err := r.Render("", "1", issued); err == nil {
		t.Fatalf("expected error for empty url")
	}
	bad := NewRenderer([]byte("not a png"))
	if _, err := bad.Render("https://x/v/1", "1", issued); err == nil {
		t.Fatalf("expected error for invalid brand mark")
	}
}

func TestHumanDate(t *testing.T) {
	if got := HumanDate(issued, nil); got != "30 mayo 2025, 17:50 (MTY)" {
		t.Fatalf("human date = %q", got)
	}
	if got := HumanDate(time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC), time.UTC); got != "1 enero 2025, 03:00 (UTC)" {
		t.Fatalf("human date = %q", got)
	}
	if got := ParseAndFormat("2025-12-24T12:05:00Z", "2006-01-02T15:04:05Z", Monterrey); got != "24 diciembre 2025, 06:05 (MTY)" {
		t.Fatalf("parse and format = %q", got)
	}
	if got := ParseAndFormat("yesterday", "2006-01-02T15:04:05Z", nil); got != "yesterday" {
		t.Fatalf("parse and format = %q", got)
	}
}
