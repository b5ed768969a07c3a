package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/goccy/go-json"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// Key prefixes for each cached computation.
const (
	KindKMeans  = "kmeans"
	KindSweep   = "sweep"
	KindApriori = "apriori"
	KindPCA     = "pca"
)

// Key builds "<kind>:<hash>" where hash covers the JSON encoding of params.
// Params must encode deterministically, so pass structs rather than maps.
func Key(kind string, params interface{}) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", errors.Wrapf(err, "encode %s cache key", kind)
	}
	sum := sha256.Sum256(raw)
	return kind + ":" + hex.EncodeToString(sum[:])[:32], nil
}

// HashPoints returns a short digest of the exact bit patterns of points.
func HashPoints(points []types.Point) string {
	h := sha256.New()
	var buf [8]byte
	for _, p := range points {
		for _, v := range p {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Memo returns the cached value for key when present, otherwise it runs
// compute and stores the JSON-encoded result. The bool reports a cache hit.
// A nil cache always computes.
func Memo[T any](ctx context.Context, c Cache, key string, compute func() (T, error)) (T, bool, error) {
	if c != nil {
		if raw, err := c.Get(ctx, key); err == nil {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, true, nil
			}
			// Undecodable entries are dropped and recomputed.
			_ = c.Delete(ctx, key)
		}
	}

	v, err := compute()
	if err != nil {
		return v, false, err
	}

	if c != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return v, false, errors.Wrap(err, "encode cached value")
		}
		if err := c.Set(ctx, key, raw, 0); err != nil && !errors.Is(err, ErrValueTooLarge) {
			return v, false, err
		}
	}
	return v, false, nil
}
