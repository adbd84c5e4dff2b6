// Package local lists recordings from a directory tree.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

// Config holds local storage settings.
type Config struct {
	Path       string
	Extensions []string
}

// Storage implements storage.Backend over an afero filesystem rooted at Path.
type Storage struct {
	root       string
	fs         afero.Fs
	extensions []string
}

// New creates a backend on the operating system filesystem.
func New(cfg Config) *Storage {
	return NewWithFs(afero.NewOsFs(), cfg)
}

// NewWithFs creates a backend on an arbitrary filesystem.
func NewWithFs(fsys afero.Fs, cfg Config) *Storage {
	exts := make([]string, 0, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}

	return &Storage{
		root:       cfg.Path,
		fs:         fsys,
		extensions: exts,
	}
}

func (s *Storage) IsConfigured() bool {
	return strings.TrimSpace(s.root) != ""
}

func (s *Storage) Bucket() string {
	return filepath.Base(filepath.Clean(s.root))
}

// List walks the root and returns every matching regular file. Names are
// slash-separated paths relative to the root.
func (s *Storage) List(ctx context.Context) ([]records.FileRecord, error) {
	if !s.IsConfigured() {
		return nil, records.NewError(records.ErrConfiguration, "list", errors.New("local storage path is not set"))
	}

	var files []records.FileRecord
	err := afero.Walk(s.fs, s.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() || !s.matches(path) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		files = append(files, records.FileRecord{
			ID:        name,
			Name:      name,
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, classify("list", err)
	}

	if len(files) == 0 {
		return nil, records.NewError(records.ErrNotFound, "list", fmt.Errorf("no recordings under %s", s.root))
	}
	return files, nil
}

// Download reads the file stored under name.
func (s *Storage) Download(ctx context.Context, name string) ([]byte, error) {
	if !s.IsConfigured() {
		return nil, records.NewError(records.ErrConfiguration, "download", errors.New("local storage path is not set"))
	}

	clean := filepath.Clean(filepath.FromSlash("/" + name))
	data, err := afero.ReadFile(s.fs, filepath.Join(s.root, clean))
	if err != nil {
		return nil, classify("download", err)
	}
	return data, nil
}

func (s *Storage) matches(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	return slices.Contains(s.extensions, strings.ToLower(filepath.Ext(path)))
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, os.ErrNotExist):
		return records.NewError(records.ErrNotFound, op, err)
	case errors.Is(err, os.ErrPermission):
		return records.NewError(records.ErrPermission, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
