// Package uploads keeps files attached to reports on local disk.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for names that could escape the upload directory
var ErrInvalidName = errors.New("invalid file name")

// Dir stores files under one directory
type Dir struct {
	root string
}

// New returns a Dir rooted at root. The directory is created on first Save.
func New(root string) *Dir {
	return &Dir{root: root}
}

// Root is the directory files are written to
func (d *Dir) Root() string {
	return d.root
}

// Save writes content under "<uuid>_<base name>" and returns the stored
// name and its full path.
func (d *Dir) Save(filename string, content io.Reader) (string, string, error) {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	name := uuid.NewString() + "_" + base

	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(d.root, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close upload: %w", err)
	}
	return name, path, nil
}

// Open opens a stored file by the name Save returned. Names with path
// separators or parent references are rejected.
func (d *Dir) Open(name string) (*os.File, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, ErrInvalidName
	}
	return os.Open(filepath.Join(d.root, name))
}
