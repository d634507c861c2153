package testutil

import (
	"errors"
	"io"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"time"
)

// MockFS is a mock implementation of benchgen.FileSystem for testing.
type MockFS struct {
	// Files maps paths to readable content.
	Files map[string]string
	// ExistingPaths are reported by Stat without content.
	ExistingPaths []string
	// GlobResults maps patterns to Glob results.
	GlobResults map[string][]string

	OpenErr      error
	StatErr      error
	GlobErr      error
	MkdirAllErr  error
	WriteFileErr error

	mu           sync.Mutex
	WrittenFiles map[string][]byte
	CreatedDirs  []string
}

func (m *MockFS) Open(name string) (io.ReadCloser, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	content, ok := m.Files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (m *MockFS) Stat(name string) (fs.FileInfo, error) {
	if m.StatErr != nil {
		return nil, m.StatErr
	}
	m.mu.Lock()
	_, written := m.WrittenFiles[name]
	m.mu.Unlock()
	_, hasFile := m.Files[name]
	if written || hasFile || slices.Contains(m.ExistingPaths, name) {
		return mockFileInfo{name: name}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (m *MockFS) IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func (m *MockFS) Glob(dir, pattern string) ([]string, error) {
	if m.GlobErr != nil {
		return nil, m.GlobErr
	}
	return m.GlobResults[pattern], nil
}

func (m *MockFS) MkdirAll(path string, perm fs.FileMode) error {
	if m.MkdirAllErr != nil {
		return m.MkdirAllErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedDirs = append(m.CreatedDirs, path)
	return nil
}

func (m *MockFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if m.WriteFileErr != nil {
		return m.WriteFileErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WrittenFiles == nil {
		m.WrittenFiles = make(map[string][]byte)
	}
	m.WrittenFiles[name] = slices.Clone(data)
	return nil
}

type mockFileInfo struct {
	name string
}

func (fi mockFileInfo) Name() string       { return fi.name }
func (fi mockFileInfo) Size() int64        { return 0 }
func (fi mockFileInfo) Mode() fs.FileMode  { return 0644 }
func (fi mockFileInfo) ModTime() time.Time { return time.Time{} }
func (fi mockFileInfo) IsDir() bool        { return false }
func (fi mockFileInfo) Sys() any           { return nil }
