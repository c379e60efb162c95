// Package uploads materializes imported images on local disk.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fr0stylo/venuecal/internal/app/ports"
)

// DefaultBaseURL is the public path uploaded files are served under.
const DefaultBaseURL = "/uploads"

var _ ports.ImageUploader = (*LocalUploader)(nil)

// LocalUploader writes files under dir and returns references below baseURL.
type LocalUploader struct {
	dir     string
	baseURL string
	newID   func() string
}

// NewLocalUploader builds an uploader rooted at dir.
func NewLocalUploader(dir, baseURL string) *LocalUploader {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &LocalUploader{dir: dir, baseURL: baseURL, newID: uuid.NewString}
}

// Dir is the directory files are written to.
func (u *LocalUploader) Dir() string {
	return u.dir
}

// Upload stores data as <uuid>-<filename>. filename must already be a safe
// basename.
func (u *LocalUploader) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("upload: empty file")
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "." || filename == string(filepath.Separator) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("upload: unsafe filename %q", filename)
	}
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", fmt.Errorf("upload: create dir: %w", err)
	}

	name := u.newID() + "-" + filename
	// O_EXCL: a uuid collision must not overwrite an existing image.
	file, err := os.OpenFile(filepath.Join(u.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("upload: create %s: %w", name, err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("upload: write %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("upload: close %s: %w", name, err)
	}
	return u.baseURL + "/" + name, nil
}
