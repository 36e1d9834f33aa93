package fsxlocal

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/fsx"
)

// LocalFileSystem implements fsx.FileSystem using local disk
type LocalFileSystem struct {
	basePath string // Root directory for all files
}

// NewLocalFileSystem creates a new local file system rooted at basePath
// (e.g. "./uploads"), creating it if needed.
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fsx.IOError("mkdir", basePath, err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fsx.IOError("abs", basePath, err)
	}

	return &LocalFileSystem{basePath: absPath}, nil
}

// GetBasePath returns the base path
func (l *LocalFileSystem) GetBasePath() string {
	return l.basePath
}

func (l *LocalFileSystem) ReadFile(_ context.Context, path string) ([]byte, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fsx.NotFound(path)
		}
		return nil, fsx.IOError("read", path, err)
	}
	return data, nil
}

func (l *LocalFileSystem) List(_ context.Context, path string) ([]fsx.FileInfo, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fsx.NotFound(path)
		}
		return nil, fsx.IOError("list", path, err)
	}

	infos := make([]fsx.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		infos = append(infos, fsx.FileInfo{
			Name:        info.Name(),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			IsDir:       info.IsDir(),
			ContentType: fsx.ContentType(info.Name()),
		})
	}
	return infos, nil
}

func (l *LocalFileSystem) Exists(_ context.Context, path string) (bool, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fsx.IOError("stat", path, err)
	}
	return true, nil
}

// WriteFile writes atomically: data goes to a temp file in the target
// directory which is then renamed over path.
func (l *LocalFileSystem) WriteFile(_ context.Context, path string, data []byte) error {
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsx.IOError("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fsx.IOError("write", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fsx.IOError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fsx.IOError("write", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fsx.IOError("chmod", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fsx.IOError("rename", path, err)
	}
	return nil
}

func (l *LocalFileSystem) Join(elem ...string) string {
	return filepath.ToSlash(filepath.Join(elem...))
}

// fullPath resolves path under basePath and rejects anything escaping it.
func (l *LocalFileSystem) fullPath(path string) (string, error) {
	full := filepath.Join(l.basePath, filepath.FromSlash(path))
	if full != l.basePath && !strings.HasPrefix(full, l.basePath+string(filepath.Separator)) {
		return "", fsx.BadPath(path)
	}
	return full, nil
}
