package source

import (
	"context"

	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// File reads vectors from a JSONL file on every fetch.
type File struct {
	path string
}

// NewFile returns a file source for path.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.InvalidParameter("path", "path is required for the file backend")
	}
	return &File{path: path}, nil
}

// Name implements Source.
func (f *File) Name() string { return BackendFile }

// Fetch implements Source.
func (f *File) Fetch(ctx context.Context, limit int) ([]types.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors, err := dataset.LoadVectors(f.path)
	if err != nil {
		return nil, err
	}
	if n := effectiveLimit(limit); len(vectors) > n {
		vectors = vectors[:n]
	}
	return vectors, nil
}

// Close implements Source.
func (f *File) Close() error { return nil }
