package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/squant/resource"
)

// LocalStore implements Store on the local file system, with optional
// payload compression and IO throttling through a resource controller.
//
// Writes are atomic: data lands in a temp file that is renamed into place.
type LocalStore struct {
	root        string
	compression Compression
	controller  *resource.Controller
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithCompression selects the payload compression. Reads auto-detect the
// scheme from the frame magic, so it can change at any time.
func WithCompression(c Compression) LocalOption {
	return func(s *LocalStore) { s.compression = c }
}

// WithController throttles reads and writes through the controller's IO
// limit.
func WithController(c *resource.Controller) LocalOption {
	return func(s *LocalStore) { s.controller = c }
}

// NewLocalStore creates a store rooted at the given directory, creating it
// if needed. The default compression is Zstd.
func NewLocalStore(root string, opts ...LocalOption) (*LocalStore, error) {
	s := &LocalStore{root: root, compression: Zstd}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return s, nil
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Put writes an artifact atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	compressed, err := compress(data, s.compression)
	if err != nil {
		return err
	}

	path := s.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := io.Writer(tmp)
	if s.controller != nil {
		w = resource.NewRateLimitedWriter(ctx, tmp, s.controller)
	}
	if _, err := io.Copy(w, bytes.NewReader(compressed)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Get reads and decompresses an artifact.
func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	r := io.Reader(f)
	if s.controller != nil {
		r = resource.NewRateLimitedReader(ctx, f, s.controller)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decompress(data)
}

// Delete removes an artifact.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// List walks the store root and returns slash-separated names with the given
// prefix, sorted.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) && !strings.HasPrefix(filepath.Base(name), ".tmp-") {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
