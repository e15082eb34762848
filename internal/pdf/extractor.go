package pdfutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ExtractText reads PDF bytes and returns the plain text of every page.
func ExtractText(data []byte) (string, error) {
	return ExtractPages(data, 0)
}

// ExtractPages returns the plain text of pages 1..last. last <= 0 means every
// page. Pages are separated by a newline.
func ExtractPages(data []byte, last int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract text: %v", r)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	total := doc.NumPage()
	if last <= 0 || last > total {
		last = total
	}
	var builder strings.Builder
	for page := 1; page <= last; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// ContentDigest is the hex SHA-256 of the text of pages 1..last, see
// ExtractPages. It binds what a reader sees on the page rather than the byte
// layout, which changes whenever the file is rewritten.
func ContentDigest(data []byte, last int) (string, error) {
	text, err := ExtractPages(data, last)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]), nil
}
