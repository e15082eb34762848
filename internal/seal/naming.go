package seal

import (
	"path/filepath"
	"strings"
)

// DefaultFilename names uploads that arrive without a filename.
const DefaultFilename = "documento"

// DownloadName is the name a sealed copy of original is offered under:
// "contrato.pdf" becomes "contrato_sellado.pdf".
func DownloadName(original string) string {
	if original == "" {
		original = DefaultFilename
	}
	ext := filepath.Ext(original)
	return strings.TrimSuffix(original, ext) + "_sellado" + ext
}
