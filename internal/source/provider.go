// Package source gives read-only access to the analysed source trees.
package source

import "github.com/starford/stackscope/internal/models"

// Provider lists and reads files under one source root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns every file under the root whose extension is in exts,
	// skipping directories named in skipDirs. Paths are root-relative and
	// slash-separated.
	List(exts, skipDirs []string) ([]models.SourceFile, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
}
