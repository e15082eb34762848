// Package verifypage renders the page appended to every sealed document: a
// header with the brand mark and a title, a QR code pointing at the public
// verification URL, the same URL as a clickable link and a footer naming the
// document.
package verifypage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

var (
	// ErrMissingBrandMark is returned when no brand mark image was configured.
	ErrMissingBrandMark = errors.New("verification page: brand mark not configured")
	// ErrPayloadTooLarge is returned when the URL does not fit in a QR symbol.
	ErrPayloadTooLarge = errors.New("verification page: url too long for qr code")
)

const (
	DefaultTitle   = "Documento sellado digitalmente"
	DefaultCaption = "Escanea para verificar autenticidad"

	qrPixels = 600
	qrSide   = 300.0
	margin   = 54.0
)

// Renderer draws verification pages. A Renderer is safe for concurrent use once
// configured.
type Renderer struct {
	// BrandMark is a PNG image shown in the header.
	BrandMark []byte
	Title     string
	Caption   string
	// Location is used for the human readable date. Nil means Monterrey.
	Location *time.Location
}

// NewRenderer returns a Renderer with the default wording.
func NewRenderer(brandMark []byte) *Renderer {
	return &Renderer{
		BrandMark: brandMark,
		Title:     DefaultTitle,
		Caption:   DefaultCaption,
		Location:  Monterrey,
	}
}

// Render returns a single Letter page as a standalone PDF. The output depends
// only on the arguments and the Renderer's fields.
func (r *Renderer) Render(verifyURL, documentID string, issuedAt time.Time) ([]byte, error) {
	if len(r.BrandMark) == 0 {
		return nil, ErrMissingBrandMark
	}
	if verifyURL == "" {
		return nil, errors.New("verification page: empty url")
	}
	qr, err := qrPNG(verifyURL)
	if err != nil {
		return nil, err
	}

	title := r.Title
	if title == "" {
		title = DefaultTitle
	}
	caption := r.Caption
	if caption == "" {
		caption = DefaultCaption
	}

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCreationDate(issuedAt)
	pdf.SetModificationDate(issuedAt)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.SetCreator("SealDrop", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.RegisterImageOptionsReader("brand", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(r.BrandMark))
	pdf.RegisterImageOptionsReader("qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qr))
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("verification page: load images: %w", err)
	}

	pdf.AddPage()
	w, h := pdf.GetPageSize()

	// Header.
	pdf.ImageOptions("brand", margin, 40, 48, 48, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(31, 58, 95)
	pdf.SetXY(margin+60, 52)
	pdf.CellFormat(w-2*margin-60, 24, tr(title), "", 0, "L", false, 0, "")
	pdf.SetDrawColor(180, 180, 180)
	pdf.SetLineWidth(0.8)
	pdf.Line(margin, 100, w-margin, 100)

	// QR code, centred.
	qrY := 160.0
	pdf.ImageOptions("qr", (w-qrSide)/2, qrY, qrSide, qrSide, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(40, 40, 40)
	pdf.SetXY(margin, qrY+qrSide+16)
	pdf.CellFormat(w-2*margin, 16, tr(caption), "", 1, "C", false, 0, "")

	// The URL duplicates the QR payload as a clickable link.
	size := 10.0
	pdf.SetFont("Helvetica", "U", size)
	for size > 6 && pdf.GetStringWidth(verifyURL) > w-2*margin {
		size--
		pdf.SetFontSize(size)
	}
	pdf.SetTextColor(0, 0, 238)
	pdf.SetX(margin)
	pdf.CellFormat(w-2*margin, 16, verifyURL, "", 1, "C", false, 0, verifyURL)

	// Footer.
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.Line(margin, h-78, w-margin, h-78)
	pdf.SetXY(margin, h-70)
	pdf.CellFormat(w-2*margin, 12, "Documento: "+documentID, "", 1, "C", false, 0, "")
	pdf.SetX(margin)
	pdf.CellFormat(w-2*margin, 12, tr("Emitido: "+HumanDate(issuedAt, r.Location)), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("verification page: %w", err)
	}
	return buf.Bytes(), nil
}

// qrPNG encodes payload as an 8-bit grayscale PNG. The symbol is never
// truncated: content that does not fit is an error.
func qrPNG(payload string) ([]byte, error) {
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadTooLarge, err)
	}
	src := code.Image(qrPixels)
	gray := image.NewGray(src.Bounds())
	draw.Draw(gray, gray.Bounds(), src, src.Bounds().Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return buf.Bytes(), nil
}
