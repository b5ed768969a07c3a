package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

var shop = [][]string{
	{"bread", "milk"},
	{"bread", "diaper", "beer", "eggs"},
	{"milk", "diaper", "beer", "cola"},
	{"bread", "milk", "diaper", "beer"},
	{"bread", "milk", "diaper", "cola"},
}

func names(sets []types.Itemset) [][]string {
	out := make([][]string, len(sets))
	for i, s := range sets {
		out[i] = s.Items
	}
	return out
}

func TestFrequentItemsets(t *testing.T) {
	sets, err := FrequentItemsets(shop, 0.6, 0)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"beer"}, {"bread"}, {"diaper"}, {"milk"},
		{"beer", "diaper"}, {"bread", "diaper"}, {"bread", "milk"}, {"diaper", "milk"},
	}, names(sets))

	assert.Equal(t, 3, sets[0].Count)
	assert.InDelta(t, 0.6, sets[0].Support, 1e-12)
	assert.Equal(t, 4, sets[1].Count)
}

func TestFrequentItemsets_Triples(t *testing.T) {
	sets, err := FrequentItemsets(shop, 0.4, 0)
	require.NoError(t, err)

	var triples [][]string
	for _, s := range sets {
		if s.Size() == 3 {
			triples = append(triples, s.Items)
		}
	}
	assert.Equal(t, [][]string{
		{"beer", "bread", "diaper"},
		{"beer", "diaper", "milk"},
		{"bread", "diaper", "milk"},
		{"cola", "diaper", "milk"},
	}, triples)
}

func TestFrequentItemsets_DownwardClosure(t *testing.T) {
	sets, err := FrequentItemsets(shop, 0.2, 0)
	require.NoError(t, err)

	known := make(map[string]int)
	for _, s := range sets {
		known[key(s.Items)] = s.Count
	}

	for _, s := range sets {
		if s.Size() < 2 {
			continue
		}
		for skip := range s.Items {
			var sub []string
			for i, name := range s.Items {
				if i != skip {
					sub = append(sub, name)
				}
			}
			count, ok := known[key(sub)]
			require.True(t, ok, "subset %v of %v missing", sub, s.Items)
			assert.GreaterOrEqual(t, count, s.Count)
		}
	}
}

func TestFrequentItemsets_MaxSize(t *testing.T) {
	sets, err := FrequentItemsets(shop, 0.6, 1)
	require.NoError(t, err)
	assert.Len(t, sets, 4)
}

func TestFrequentItemsets_Invalid(t *testing.T) {
	_, err := FrequentItemsets(nil, 0.5, 0)
	assert.Equal(t, "baskets", errors.ParamOf(err))

	_, err = FrequentItemsets(shop, 2, 0)
	assert.Equal(t, "minSupport", errors.ParamOf(err))

	_, err = FrequentItemsets(shop, 0.5, -1)
	assert.Equal(t, "maxSize", errors.ParamOf(err))
}

func TestCountTransactions(t *testing.T) {
	tx, err := CountTransactions([][]string{
		{"milk", "bread", "bread", " "},
		{"bread", "jam"},
		{},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, tx.Total)
	assert.Equal(t, []types.Item{
		{Name: "bread", Count: 2},
		{Name: "milk", Count: 1},
		{Name: "jam", Count: 1},
	}, tx.Items)
	assert.Equal(t, 2, tx.Counts.Pairs())

	n, err := tx.Counts.CoOccurrence(types.Item{Name: "milk"}, types.Item{Name: "bread"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountTransactions_FeedsMiner(t *testing.T) {
	tx, err := CountTransactions(shop)
	require.NoError(t, err)

	res, err := NewMiner(Config{CoOccurrence: tx.Counts}).Mine(tx.Items, tx.Total, 0.6, 0.7)
	require.NoError(t, err)

	ids := make(map[string]types.AssociationRule)
	for _, r := range res.Rules {
		ids[r.ID] = r
	}

	// beer appears 3 times, always with diaper.
	beer, ok := ids["r-beer-diaper"]
	require.True(t, ok)
	assert.InDelta(t, 1.0, beer.Confidence, 1e-12)
	assert.InDelta(t, 1.25, beer.Lift, 1e-12)
	assert.Equal(t, types.StrengthStrong, beer.Strength)

	assert.Len(t, res.Pairs, 4)
}

func TestCountTransactions_Empty(t *testing.T) {
	_, err := CountTransactions(nil)
	assert.True(t, errors.IsInvalidParameter(err))
}
