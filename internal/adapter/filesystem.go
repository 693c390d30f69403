package adapter

import (
	"io"
	"io/fs"
	"os"
)

// FileSystem defines an interface for file system operations to enable mocking
//
//go:generate mockgen -source=filesystem.go -destination=../mocks/filesystem.go -package=mocks -mock_names=FileSystem=MockFileSystem
type FileSystem interface {
	// Create creates or truncates the named file
	Create(name string) (File, error)

	// Open opens the named file for reading
	Open(name string) (ReadFile, error)

	// Stat returns file info for the named file
	Stat(name string) (fs.FileInfo, error)

	// MkdirAll creates the named directory along with any necessary parents
	MkdirAll(path string, perm fs.FileMode) error

	// Remove removes the named file or directory
	Remove(name string) error
}

// File defines an interface for writable file operations
type File interface {
	io.Writer
	io.Closer
}

// ReadFile defines an interface for readable file operations
type ReadFile interface {
	io.Reader
	io.Closer
}

// RealFileSystem implements FileSystem using the standard os package
type RealFileSystem struct{}

// NewFileSystem creates a new real file system
func NewFileSystem() FileSystem {
	return &RealFileSystem{}
}

// Create creates or truncates the named file
func (f *RealFileSystem) Create(name string) (File, error) {
	return os.Create(name) //nolint:gosec,G304
}

// Open opens the named file for reading
func (f *RealFileSystem) Open(name string) (ReadFile, error) {
	return os.Open(name) //nolint:gosec,G304
}

// Stat returns file info for the named file
func (f *RealFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// MkdirAll creates the named directory along with any necessary parents
func (f *RealFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Remove removes the named file or directory
func (f *RealFileSystem) Remove(name string) error {
	return os.Remove(name)
}
