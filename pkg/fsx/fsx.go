package fsx

import (
	"context"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/errx"
)

var fsxErrors = errx.NewRegistry("FSX")

var (
	ErrNotFound = fsxErrors.Register("NOT_FOUND", errx.TypeNotFound, 404, "File not found")
	ErrIO       = fsxErrors.Register("IO", errx.TypeExternal, 500, "File storage operation failed")
	ErrBadPath  = fsxErrors.Register("BAD_PATH", errx.TypeValidation, 400, "Path escapes the storage root")
)

// NotFound builds the error returned for a missing path.
func NotFound(path string) error {
	return fsxErrors.New(ErrNotFound).WithDetail("path", path)
}

// IOError wraps a backend failure on path.
func IOError(op, path string, cause error) error {
	return fsxErrors.NewWithCause(ErrIO, cause).WithDetail("op", op).WithDetail("path", path)
}

// BadPath rejects paths outside the storage root.
func BadPath(path string) error {
	return fsxErrors.New(ErrBadPath).WithDetail("path", path)
}

// FileInfo represents information about a file
type FileInfo struct {
	Name        string    // Base name of the file
	Size        int64     // File size in bytes
	ModTime     time.Time // Modification time
	IsDir       bool      // Is a directory (or common prefix)
	ContentType string    // MIME type (when available)
}

// FileReader provides read-only operations
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, path string) ([]FileInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// FileWriter provides write operations
type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte) error
}

// PathOperations provides path manipulation functionality
type PathOperations interface {
	Join(elem ...string) string
}

// FileSystem combines all file operations
type FileSystem interface {
	FileReader
	FileWriter
	PathOperations
}

// ContentType guesses a MIME type from the file extension.
func ContentType(name string) string {
	switch {
	case hasSuffix(name, ".json"):
		return "application/json"
	case hasSuffix(name, ".txt"), hasSuffix(name, ".log"):
		return "text/plain"
	case hasSuffix(name, ".html"):
		return "text/html"
	case hasSuffix(name, ".csv"):
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
