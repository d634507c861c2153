package benchgen

import (
	"io"
	"io/fs"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// FileSystem abstracts filesystem operations for testability.
type FileSystem interface {
	Open(name string) (io.ReadCloser, error)
	Stat(name string) (fs.FileInfo, error)
	IsNotExist(err error) bool
	Glob(dir, pattern string) ([]string, error)
	MkdirAll(path string, perm fs.FileMode) error
	WriteFile(name string, data []byte, perm fs.FileMode) error
}

type osFS struct{}

func (osFS) Open(name string) (io.ReadCloser, error) { return os.Open(name) }
func (osFS) Stat(name string) (fs.FileInfo, error)   { return os.Stat(name) }
func (osFS) IsNotExist(err error) bool               { return os.IsNotExist(err) }
func (osFS) Glob(dir, pattern string) ([]string, error) {
	return doublestar.Glob(os.DirFS(dir), pattern)
}
func (osFS) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }
func (osFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}
