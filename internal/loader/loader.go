package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"topolab/internal/codec"
)

// ErrUnsupportedFile is returned for files without a document extension
var ErrUnsupportedFile = errors.New("unsupported file extension")

// File is one successfully parsed topology document
type File struct {
	Path   string
	Name   string
	Result *codec.Result
}

// FileError records a file that could not be loaded at all
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// LoadFile parses a single topology document, picking the codec from the
// file extension
func LoadFile(path string) (*codec.Result, error) {
	c, ok := codec.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	result, err := c.Parse(f)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LoadDir parses every .json, .yaml and .yml document directly inside dir.
// Files that cannot be read or parsed are returned as FileErrors and do not
// stop the rest from loading. Results are ordered by file name.
func LoadDir(dir string, logger *slog.Logger) ([]File, []FileError, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		files  []File
		failed []FileError
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, ok := codec.ForPath(path); !ok {
			continue
		}

		result, err := LoadFile(path)
		if err != nil {
			logger.Warn("Skipping topology file", "path", path, "error", err)
			failed = append(failed, FileError{Path: path, Err: err})
			continue
		}
		for _, s := range result.Skipped {
			logger.Warn("Skipped record", "path", path, "kind", s.Kind, "index", s.Index, "id", s.ID, "reason", s.Reason)
		}
		files = append(files, File{Path: path, Name: Name(path), Result: result})
	}

	logger.Info("Loaded topology directory", "dir", dir, "files", len(files), "failed", len(failed))
	return files, failed, nil
}

// Name derives a topology name from a file path by dropping the directory and
// extension
func Name(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
