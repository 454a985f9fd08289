package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Disk writes blobs under a directory that the server exposes at urlPrefix.
type Disk struct {
	dir       string
	urlPrefix string
	log       *zap.Logger
}

func NewDisk(dir, urlPrefix string, log *zap.Logger) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), log: log}, nil
}

func (d *Disk) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filename := uuid.New().String() + extension(name)
	path := filepath.Join(d.dir, filename)

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", filename, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", filename, err)
	}

	d.log.Debug("Stored blob", zap.String("name", name), zap.String("file", filename), zap.String("content_type", contentType))
	return d.urlPrefix + "/" + filename, nil
}
