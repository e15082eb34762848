// Package container reads and writes the single metadata slot a sealed PDF
// carries in its document information dictionary, and concatenates pages.
//
// Writes go through pdfcpu, which copies every page object and merges new
// entries into the existing /Info dictionary. Reads go through
// ledongthuc/pdf, which resolves the trailer directly and decodes PDF text
// strings (PDFDocEncoding or UTF-16 with BOM) without rewriting anything.
package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// MetadataKey is the /Info entry holding the signed record.
const MetadataKey = "CM_META"

// ErrUnreadable is returned for input that cannot be parsed as a PDF.
var ErrUnreadable = errors.New("unreadable document container")

func init() {
	// No user fonts or yaml config are needed; keep pdfcpu off the filesystem.
	api.DisableConfigDir()
}

func config() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	// Classic xref tables keep the output readable by simple parsers.
	cfg.WriteObjectStream = false
	cfg.WriteXRefStream = false
	return cfg
}

// Embed returns a copy of doc whose /Info dictionary binds key to value. Pages
// and any other /Info entries are kept. Embedding the same pair twice yields a
// document with the same metadata.
func Embed(doc []byte, key, value string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("embed metadata: empty key")
	}
	var out bytes.Buffer
	err := guard(func() error {
		return api.AddProperties(bytes.NewReader(doc), &out, map[string]string{key: value}, config())
	})
	if err != nil {
		return nil, fmt.Errorf("embed metadata: %w", err)
	}
	return out.Bytes(), nil
}

// Extract returns the text bound to key in the /Info dictionary. A document
// without the key, or without an /Info dictionary at all, yields "".
func Extract(doc []byte, key string) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = "", fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	v := r.Trailer().Key("Info").Key(key)
	switch v.Kind() {
	case pdf.Null:
		return "", nil
	case pdf.String:
		return v.Text(), nil
	default:
		return "", fmt.Errorf("%w: /%s is not a string", ErrUnreadable, key)
	}
}

// PageCount returns the number of pages of doc.
func PageCount(doc []byte) (int, error) {
	var n int
	err := guard(func() error {
		var err error
		n, err = api.PageCount(bytes.NewReader(doc), config())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// Append returns doc followed by the pages of each fragment, in order. The
// /Info dictionary of doc is carried over.
func Append(doc []byte, fragments ...[]byte) ([]byte, error) {
	if len(fragments) == 0 {
		return bytes.Clone(doc), nil
	}
	sources := make([]io.ReadSeeker, 0, len(fragments)+1)
	sources = append(sources, bytes.NewReader(doc))
	for _, f := range fragments {
		sources = append(sources, bytes.NewReader(f))
	}
	var out bytes.Buffer
	err := guard(func() error {
		return api.MergeRaw(sources, &out, false, config())
	})
	if err != nil {
		return nil, fmt.Errorf("append pages: %w", err)
	}
	return out.Bytes(), nil
}

// guard runs fn and maps both its error and any panic raised while parsing to
// ErrUnreadable.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return nil
}
