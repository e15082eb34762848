// Package assets embeds the default brand mark shown on verification pages.
package assets

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed brandmark.png
var brandMark []byte

// BrandMark returns the PNG at path, or the embedded default when path is
// empty.
func BrandMark(path string) ([]byte, error) {
	if path == "" {
		return append([]byte(nil), brandMark...), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read brand mark: %w", err)
	}
	return data, nil
}
