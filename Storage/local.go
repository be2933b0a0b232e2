package Storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps photos in a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create photo dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

func extensionFor(contentType, name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func (l *LocalStore) Upload(ctx context.Context, name, contentType string, data []byte) (Object, error) {
	id := uuid.NewString() + extensionFor(contentType, name)
	if err := os.WriteFile(filepath.Join(l.dir, id), data, 0o644); err != nil {
		return Object{}, fmt.Errorf("store photo %s: %w", name, err)
	}
	return Object{ID: id}, nil
}

func (l *LocalStore) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, "", fmt.Errorf("%q: %w", id, ErrPhotoNotFound)
	}
	f, err := os.Open(filepath.Join(l.dir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%s: %w", id, ErrPhotoNotFound)
		}
		return nil, "", err
	}
	contentType := mime.TypeByExtension(filepath.Ext(id))
	if contentType == "" {
		head := make([]byte, 512)
		n, _ := f.Read(head)
		contentType = http.DetectContentType(head[:n])
		return readCloser{Reader: io.MultiReader(bytes.NewReader(head[:n]), f), Closer: f}, contentType, nil
	}
	return f, contentType, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
