// Package blob stores uploaded files and returns a public URL for each.
package blob

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Uploader stores the content read from r and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// extension returns a lower-cased, filesystem-safe extension of name.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext[min(1, len(ext)):] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
