package rules

import (
	"hash/fnv"
	"math"

	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// CoOccurrence supplies how many transactions contain both items of a pair.
type CoOccurrence interface {
	CoOccurrence(a, b types.Item) (int, error)
}

// Synthetic fabricates a co-occurrence of floor(u * min(countA, countB) * Ratio)
// with u in [0,1) derived from Seed and the pair's names. The same seed and
// pair always yield the same count, in any call order.
type Synthetic struct {
	Seed  int64
	Ratio float64
}

// DefaultSyntheticRatio caps fabricated co-occurrence at 80% of the rarer item.
const DefaultSyntheticRatio = 0.8

// NewSynthetic returns a Synthetic policy with the default ratio.
func NewSynthetic(seed int64) Synthetic {
	return Synthetic{Seed: seed, Ratio: DefaultSyntheticRatio}
}

// CoOccurrence implements CoOccurrence.
func (s Synthetic) CoOccurrence(a, b types.Item) (int, error) {
	ratio := s.Ratio
	if ratio <= 0 {
		ratio = DefaultSyntheticRatio
	}
	lo := a.Count
	if b.Count < lo {
		lo = b.Count
	}
	u := unitFloat(s.Seed, a.Name, b.Name)
	return int(math.Floor(u * float64(lo) * ratio)), nil
}

// unitFloat hashes (seed, a, b) into [0,1) with FNV-1a followed by a splitmix64 finaliser.
func unitFloat(seed int64, a, b string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(a))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(b))

	x := h.Sum64() ^ uint64(seed)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return float64(x>>11) / (1 << 53)
}

// Fixed serves explicit pair counts. Pairs are unordered; missing pairs count 0.
type Fixed map[[2]string]int

// NewFixed returns an empty Fixed policy.
func NewFixed() Fixed {
	return make(Fixed)
}

// Set records the count for the unordered pair {a, b}.
func (f Fixed) Set(a, b string, count int) Fixed {
	f[pairKey(a, b)] = count
	return f
}

// CoOccurrence implements CoOccurrence.
func (f Fixed) CoOccurrence(a, b types.Item) (int, error) {
	return f[pairKey(a.Name, b.Name)], nil
}

// TransactionCounts holds pair counts measured from real baskets.
type TransactionCounts struct {
	pairs map[[2]string]int
}

// CoOccurrence implements CoOccurrence.
func (t *TransactionCounts) CoOccurrence(a, b types.Item) (int, error) {
	return t.pairs[pairKey(a.Name, b.Name)], nil
}

// Pairs returns the number of distinct pairs seen at least once.
func (t *TransactionCounts) Pairs() int {
	return len(t.pairs)
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
