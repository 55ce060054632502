package bank

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Resolver opens a bank's sample files by the names listed in its
// descriptor.
type Resolver interface {
	Open(name string) (io.ReadCloser, error)
}

// FSResolver resolves names inside an fs.FS.
type FSResolver struct {
	FS fs.FS
}

// Open implements Resolver.
func (r FSResolver) Open(name string) (io.ReadCloser, error) {
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return r.FS.Open(name)
}

// DirResolver resolves names relative to a directory on disk. Names that
// would escape the directory are rejected.
type DirResolver struct {
	Dir string
}

// Open implements Resolver.
func (r DirResolver) Open(name string) (io.ReadCloser, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	f, err := os.Open(filepath.Join(r.Dir, local))
	if err != nil {
		return nil, fmt.Errorf("failed to open sample: %w", err)
	}
	return f, nil
}
