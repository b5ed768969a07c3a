package source

import (
	"context"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// Pinecone caps list pages at 100 ids and fetches at roughly the same.
const pineconeBatch = 100

// pineconeIndex is the part of *pinecone.IndexConnection the source uses.
type pineconeIndex interface {
	ListVectors(ctx context.Context, in *pinecone.ListVectorsRequest) (*pinecone.ListVectorsResponse, error)
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	Close() error
}

// Pinecone lists vector ids in a namespace and fetches their values.
type Pinecone struct {
	idx pineconeIndex
}

// NewPinecone connects to cfg.Host, resolving it from cfg.Index when empty.
func NewPinecone(ctx context.Context, cfg Config) (*Pinecone, error) {
	if cfg.APIKey == "" {
		return nil, errors.InvalidParameter("api_key", "API key is required for the pinecone backend")
	}
	if cfg.Index == "" && cfg.Host == "" {
		return nil, errors.InvalidParameter("index", "index name or host is required for the pinecone backend")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, errors.Wrap(err, "create pinecone client")
	}

	host := cfg.Host
	if host == "" {
		idx, err := pc.DescribeIndex(ctx, cfg.Index)
		if err != nil {
			return nil, errors.Wrapf(err, "describe index %q", cfg.Index)
		}
		host = idx.Host
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to pinecone index")
	}
	return &Pinecone{idx: conn}, nil
}

// Name implements Source.
func (p *Pinecone) Name() string { return BackendPinecone }

// Fetch pages through vector ids until limit ids are collected, then fetches
// them in batches. Output follows listing order.
func (p *Pinecone) Fetch(ctx context.Context, limit int) ([]types.Vector, error) {
	limit = effectiveLimit(limit)

	ids := make([]string, 0, min(limit, pineconeBatch))
	var token *string
	for len(ids) < limit {
		page := uint32(min(limit-len(ids), pineconeBatch))
		resp, err := p.idx.ListVectors(ctx, &pinecone.ListVectorsRequest{
			Limit:           &page,
			PaginationToken: token,
		})
		if err != nil {
			return nil, errors.Wrap(err, "list pinecone vectors")
		}
		for _, id := range resp.VectorIds {
			if id != nil && len(ids) < limit {
				ids = append(ids, *id)
			}
		}
		token = resp.NextPaginationToken
		if token == nil || *token == "" || len(resp.VectorIds) == 0 {
			break
		}
	}

	vectors := make([]types.Vector, 0, len(ids))
	for start := 0; start < len(ids); start += pineconeBatch {
		batch := ids[start:min(start+pineconeBatch, len(ids))]
		resp, err := p.idx.FetchVectors(ctx, batch)
		if err != nil {
			return nil, errors.Wrap(err, "fetch pinecone vectors")
		}
		for _, id := range batch {
			v, ok := resp.Vectors[id]
			if !ok || v == nil || v.Values == nil || len(*v.Values) == 0 {
				continue
			}
			out := types.Vector{ID: id, Values: *v.Values}
			if v.Metadata != nil {
				out.Metadata = v.Metadata.AsMap()
			}
			vectors = append(vectors, out)
		}
	}
	return vectors, nil
}

// Close implements Source.
func (p *Pinecone) Close() error {
	if p.idx != nil {
		return p.idx.Close()
	}
	return nil
}
