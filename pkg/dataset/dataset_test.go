package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

func TestBlobs(t *testing.T) {
	a, err := Blobs(300, 3, 42)
	require.NoError(t, err)
	b, err := Blobs(300, 3, 42)
	require.NoError(t, err)

	assert.Len(t, a, 300)
	assert.Equal(t, a, b)

	// Centers lie in [-5, 5] and offsets in [-2, 2].
	for _, p := range a {
		for d := 0; d < 3; d++ {
			assert.True(t, p[d] >= -7 && p[d] <= 7, "coordinate %v out of range", p[d])
		}
	}

	_, err = Blobs(10, 0, 1)
	assert.Equal(t, "k", errors.ParamOf(err))
}

func TestGenerate(t *testing.T) {
	for _, name := range PointDatasets() {
		points, err := Generate(name, 3, 1)
		require.NoError(t, err, name)
		assert.Len(t, points, SampleCount(name), name)
	}

	assert.Equal(t, 150, SampleCount(Iris))
	assert.Equal(t, 300, SampleCount(Blobs3D))
	assert.Equal(t, 300, SampleCount("anything"))

	_, err := Generate("nope", 3, 1)
	assert.True(t, errors.IsInvalidParameter(err))
}

func TestElongatedCloud(t *testing.T) {
	points := ElongatedCloud(200, 3)
	require.Len(t, points, 200)
	for _, p := range points {
		assert.LessOrEqual(t, p[2], 1.0)
		assert.GreaterOrEqual(t, p[2], -1.0)
	}
	assert.Equal(t, []float64{1, 2, 3}, Rows([]types.Point{{1, 2, 3}})[0])
}

func TestBuiltinCatalogues(t *testing.T) {
	c := NewCatalogues()
	assert.Equal(t, []string{Bookstore, Ecommerce, Grocery}, c.Names())

	grocery, err := c.Get(Grocery)
	require.NoError(t, err)
	assert.Equal(t, 150, grocery.TotalTransactions)
	assert.Len(t, grocery.Items, 7)
	assert.Equal(t, "Bread", grocery.Items[0].Name)

	// Every shipped catalogue satisfies count <= total.
	for _, cat := range c.All() {
		for _, it := range cat.Items {
			assert.LessOrEqual(t, it.Count, cat.TotalTransactions, "%s/%s", cat.Name, it.Name)
		}
	}

	// Get hands out copies.
	grocery.Items[0].Count = 0
	again, _ := c.Get(Grocery)
	assert.Equal(t, 90, again.Items[0].Count)

	_, err = c.Get("pharmacy")
	assert.Equal(t, "dataset", errors.ParamOf(err))
}

func TestLoadCatalogues_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogues.yaml")
	content := `catalogues:
  - name: pharmacy
    total_transactions: 40
    items:
      - name: Aspirin
        count: 12
        emoji: "💊"
      - name: Bandage
        count: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	list, err := LoadCatalogues(path)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pharmacy", list[0].Name)
	assert.Equal(t, 40, list[0].TotalTransactions)
	assert.Equal(t, types.Item{Name: "Aspirin", Count: 12, Emoji: "💊"}, list[0].Items[0])

	c := NewCatalogues()
	c.Merge(list)
	assert.Contains(t, c.Names(), "pharmacy")
}

func TestLoadCatalogues_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogues.toml")
	content := `[[catalogues]]
name = "grocery"
total_transactions = 10

[[catalogues.items]]
name = "Bread"
count = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	list, err := LoadCatalogues(path)
	require.NoError(t, err)
	require.Len(t, list, 1)

	c := NewCatalogues()
	c.Merge(list)
	grocery, err := c.Get(Grocery)
	require.NoError(t, err)
	assert.Equal(t, 10, grocery.TotalTransactions)
	assert.Equal(t, []types.Item{{Name: "Bread", Count: 4}}, grocery.Items)
}

func TestLoadCatalogues_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalogues(filepath.Join(dir, "x.json"))
	assert.Equal(t, "path", errors.ParamOf(err))

	noTotal := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(noTotal, []byte("catalogues:\n  - name: x\n"), 0644))
	_, err = LoadCatalogues(noTotal)
	assert.Equal(t, "catalogues", errors.ParamOf(err))

	_, err = LoadCatalogues(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestReadBaskets(t *testing.T) {
	input := `{"items": ["bread", "milk"]}

{"items": ["jam"]}
`
	baskets, err := ReadBaskets(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"bread", "milk"}, {"jam"}}, baskets)

	_, err = ReadBaskets(strings.NewReader("{not json}\n"))
	assert.Error(t, err)
}

func TestLoadVectors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.jsonl")
	content := `{"id": "a", "values": [1, 2, 3, 4]}
{"values": [0.5, 0.25, 0, 1]}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	vectors, err := LoadVectors(path)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, "a", vectors[0].ID)
	assert.Equal(t, "2", vectors[1].ID)
	assert.Equal(t, []float32{0.5, 0.25, 0, 1}, vectors[1].Values)

	_, err = ReadVectors(strings.NewReader(`{"id": "x"}`))
	assert.Equal(t, "values", errors.ParamOf(err))
}
