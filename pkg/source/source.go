// Package source pulls vectors from files or vector databases and reduces
// them to 3-D points for clustering.
package source

import (
	"context"
	"strings"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/projection"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// Backend names.
const (
	BackendFile     = "file"
	BackendQdrant   = "qdrant"
	BackendPinecone = "pinecone"
)

// DefaultLimit caps how many vectors a fetch returns when no limit is given.
const DefaultLimit = 1000

// Source yields vectors for clustering.
type Source interface {
	// Name identifies the backend, e.g. "qdrant".
	Name() string

	// Fetch returns up to limit vectors. A non-positive limit uses DefaultLimit.
	Fetch(ctx context.Context, limit int) ([]types.Vector, error)

	// Close releases any connections held by the source.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string

	// Path is the JSONL file for the file backend.
	Path string

	// Host is host:port for qdrant, or the index host for pinecone.
	Host string

	// Index is the pinecone index name, used when Host is empty.
	Index string

	// Collection is the qdrant collection.
	Collection string

	Namespace string
	APIKey    string
	UseTLS    bool
}

// Open builds the source named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Source, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendFile, "":
		return NewFile(cfg.Path)
	case BackendQdrant:
		return NewQdrant(ctx, cfg)
	case BackendPinecone:
		return NewPinecone(ctx, cfg)
	}
	return nil, errors.InvalidParameter("backend", "unsupported backend %q (supported: file, qdrant, pinecone)", cfg.Backend)
}

// ToPoints turns vectors into clustering input. Vectors with at most three
// dimensions are zero padded; wider vectors are projected onto their first
// three principal components, and that projection is returned too.
func ToPoints(vectors []types.Vector) ([]types.Point, *types.Projection, error) {
	if len(vectors) == 0 {
		return nil, nil, errors.InvalidParameter("vectors", "no vectors to convert")
	}
	dim := vectors[0].Dimension()
	if dim == 0 {
		return nil, nil, errors.InvalidParameter("vectors", "vector %q has no values", vectors[0].ID)
	}
	for _, v := range vectors[1:] {
		if v.Dimension() != dim {
			return nil, nil, errors.InvalidParameter("vectors", "vector %q has dimension %d, want %d", v.ID, v.Dimension(), dim)
		}
	}

	if dim <= 3 {
		points := make([]types.Point, len(vectors))
		for i, v := range vectors {
			for d, x := range v.Values {
				points[i][d] = float64(x)
			}
		}
		return points, nil, nil
	}

	proj, err := projection.Project(types.VectorMatrix(vectors), 3)
	if err != nil {
		return nil, nil, err
	}
	return projection.ToPoints(proj), proj, nil
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
