package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pierrec/lz4/v4"
)

// CompressedExt marks files holding an lz4 frame.
const CompressedExt = ".lz4"

// ErrNoMatch is returned when a pattern names no file.
var ErrNoMatch = errors.New("sink: no file matches")

// Compressed reports whether path is read and written as an lz4 frame.
func Compressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), CompressedExt)
}

type compressedFile struct {
	*lz4.Writer
	file *os.File
}

// Close ends the frame and closes the file.
func (c *compressedFile) Close() error {
	return errors.Join(c.Writer.Close(), c.file.Close())
}

type compressedReader struct {
	*lz4.Reader
	file *os.File
}

func (c *compressedReader) Close() error {
	return c.file.Close()
}

// Create creates path for writing, compressing when it ends in .lz4.
func Create(path string) (io.WriteCloser, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if !Compressed(path) {
		return file, nil
	}
	return &compressedFile{Writer: lz4.NewWriter(file), file: file}, nil
}

// Open opens path for reading, decompressing when it ends in .lz4.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if !Compressed(path) {
		return file, nil
	}
	return &compressedReader{Reader: lz4.NewReader(file), file: file}, nil
}

// Expand resolves each argument as a file path or a ** glob pattern and
// returns the sorted, de-duplicated list of files.
func Expand(patterns ...string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, p)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}
