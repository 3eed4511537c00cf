package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/stackscope/internal/checksum"
	"github.com/starford/stackscope/internal/models"
)

// DefaultSkipDirs are never descended into.
var DefaultSkipDirs = []string{".git", ".dart_tool", "build", "__pycache__", ".venv", "venv", "node_modules"}

// Tree implements Provider backed by the local file system.
type Tree struct {
	root string
}

var _ Provider = (*Tree)(nil)

// NewTree creates a Tree rooted at the given directory, which must exist.
func NewTree(root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("source: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source: root is not a directory: %s", abs)
	}
	return &Tree{root: abs}, nil
}

// Root implements Provider.
func (t *Tree) Root() string { return t.root }

// safePath resolves rel against the root and rejects anything escaping it.
func (t *Tree) safePath(rel string) (string, error) {
	if rel == "" {
		return t.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("source: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(t.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("source: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, t.root+string(os.PathSeparator)) && abs != t.root {
		return "", fmt.Errorf("source: path escapes root: %s", rel)
	}
	return abs, nil
}

// List implements Provider. Results are sorted by path.
func (t *Tree) List(exts, skipDirs []string) ([]models.SourceFile, error) {
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = true
	}
	var out []models.SourceFile
	err := filepath.WalkDir(t.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != t.root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !HasExt(d.Name(), exts) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(t.root, p)
		out = append(out, models.SourceFile{
			Path:      filepath.ToSlash(rel),
			Checksum:  checksum.Sum(data),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read implements Provider.
func (t *Tree) Read(path string) ([]byte, error) {
	abs, err := t.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	return data, nil
}

// HasExt reports whether name ends in one of exts.
func HasExt(name string, exts []string) bool {
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}
