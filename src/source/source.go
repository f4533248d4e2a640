package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source yields the raw bytes of one CSV export.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	// Open returns a reader over the export's (decompressed) bytes.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ReadError reports that a source could not be read.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ReadAllBytesAsText reads the whole source and returns it as text.
// Any failure is returned as a *ReadError.
func ReadAllBytesAsText(ctx context.Context, src Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &ReadError{Source: src.Name(), Err: err}
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return "", &ReadError{Source: src.Name(), Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", &ReadError{Source: src.Name(), Err: err}
	}
	return string(data), nil
}

// File is an export on disk. Paths ending in .gz are decompressed transparently.
type File struct {
	Path string
}

func (f File) Name() string {
	return f.Path
}

func (f File) Open(ctx context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	if !IsGzip(f.Path) {
		return fh, nil
	}
	gz, err := gzip.NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("failed to open gzip: %w", err)
	}
	return &gzipFile{Reader: gz, file: fh}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// Bytes is an export already held in memory, such as a queue message body.
type Bytes struct {
	Label string
	Data  []byte
}

func (b Bytes) Name() string {
	if b.Label == "" {
		return "bytes"
	}
	return b.Label
}

func (b Bytes) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// IsGzip reports whether path names a gzip-compressed export.
func IsGzip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gz")
}

// IsExport reports whether path looks like a CSV export, compressed or not.
func IsExport(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".csv.gz")
}
