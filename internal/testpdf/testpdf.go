// Package testpdf builds small PDF and PNG fixtures in memory for tests, so no
// binary fixtures live in the tree.
package testpdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
)

var fixed = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// Document returns a PDF with one page per entry of pages, each page showing
// its text.
func Document(tb testing.TB, pages ...string) []byte {
	tb.Helper()
	if len(pages) == 0 {
		pages = []string{"page 1"}
	}
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(fixed)
	doc.SetModificationDate(fixed)
	doc.SetCatalogSort(true)
	doc.SetFont("Helvetica", "", 14)
	for _, text := range pages {
		doc.AddPage()
		doc.Cell(120, 10, text)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		tb.Fatalf("render fixture pdf: %v", err)
	}
	return buf.Bytes()
}

// BrandMark returns a small opaque PNG usable as a logo.
func BrandMark(tb testing.TB) []byte {
	tb.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := color.RGBA{R: 0x1f, G: 0x3a, B: 0x5f, A: 0xff}
			if (x/4+y/4)%2 == 0 {
				c = color.RGBA{R: 0xd4, G: 0xaf, B: 0x37, A: 0xff}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode brand mark: %v", err)
	}
	return buf.Bytes()
}
