// Package uploads stores treatment-request photos and serves them back under
// /uploads.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

// URLPrefix is the public path photos are served from.
const URLPrefix = "/uploads/"

const maxNameLen = 64

var allowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// File is an uploaded file not yet written to storage.
type File struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// Store writes photos to a directory.
type Store struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewStore returns a Store rooted at dir on fs. A nil fs means the OS
// filesystem.
func NewStore(fs afero.Fs, dir string, maxBytes int64, logger *zap.Logger) (*Store, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Store{
		fs:       fs,
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Validate checks the declared size before anything is read.
func (s *Store) Validate(f File) error {
	if f.Open == nil {
		return models.Required("photo")
	}
	if f.Size > s.maxBytes {
		return models.Invalid("photo", fmt.Sprintf("photo exceeds the %d byte limit", s.maxBytes))
	}
	return nil
}

// Save sniffs the content type, writes the file and returns its public URL.
func (s *Store) Save(_ context.Context, f File) (string, error) {
	if err := s.Validate(f); err != nil {
		return "", err
	}

	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", models.Invalid("photo", fmt.Sprintf("photo exceeds the %d byte limit", s.maxBytes))
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), allowedTypes...) {
		return "", models.Invalid("photo", "only JPEG, PNG and WEBP images are allowed")
	}

	name := s.fileName(f.Filename, mime.Extension())
	if err := afero.WriteReader(s.fs, filepath.Join(s.dir, name), bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	s.logger.Info("photo stored", zap.String("name", name), zap.Int("bytes", len(data)))
	return URLPrefix + name, nil
}

// Delete removes a previously saved photo by its URL. Missing files are not
// an error.
func (s *Store) Delete(_ context.Context, url string) error {
	name := strings.TrimPrefix(url, URLPrefix)
	if name == url || name == "" || strings.ContainsAny(name, `/\`) {
		return models.Invalid("mediaUrl", "not an upload url")
	}
	if err := s.fs.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// HTTPFileSystem exposes the upload directory for static serving.
func (s *Store) HTTPFileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs).Dir(s.dir)
}

// fileName builds <unixMillis>-<12 hex>-<sanitized original name>.
func (s *Store) fileName(original, ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	base := sanitize(path.Base(filepath.ToSlash(original)))
	if base == "" {
		base = "photo" + ext
	}
	return fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), suffix, base)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	return out
}
