package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirSource reads schemas from <root>/<schema_id> on the local filesystem.
type DirSource struct {
	root string
}

// NewDirSource creates a directory source rooted at root
func NewDirSource(root string) *DirSource {
	return &DirSource{root: filepath.Clean(root)}
}

// Name implements Source
func (s *DirSource) Name() string {
	return "dir"
}

// Fetch implements Source. IDs escaping the root are reported as not found.
func (s *DirSource) Fetch(ctx context.Context, schemaID string) (data []byte, err error) {
	_, span := startFetchSpan(ctx, s.Name(), schemaID)
	defer func() { endFetchSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok := s.resolve(schemaID)
	if !ok {
		return nil, ErrNotFound
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat schema file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", path, err)
	}
	return data, nil
}

func (s *DirSource) resolve(schemaID string) (string, bool) {
	if schemaID == "" || filepath.IsAbs(schemaID) {
		return "", false
	}
	path := filepath.Join(s.root, filepath.FromSlash(schemaID))
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}
