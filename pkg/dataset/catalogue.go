package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// Catalogue names shipped with the binary.
const (
	Grocery   = "grocery"
	Ecommerce = "ecommerce"
	Bookstore = "bookstore"
)

// builtin returns fresh copies of the shipped catalogues.
func builtin() []types.Catalogue {
	return []types.Catalogue{
		{
			Name:              Grocery,
			TotalTransactions: 150,
			Items: []types.Item{
				{Name: "Bread", Count: 90, Color: "#FF9966", Emoji: "🍞"},
				{Name: "Milk", Count: 85, Color: "#66B2FF", Emoji: "🥛"},
				{Name: "Butter", Count: 65, Color: "#FFD700", Emoji: "🧈"},
				{Name: "Eggs", Count: 75, Color: "#F0E68C", Emoji: "🥚"},
				{Name: "Jam", Count: 35, Color: "#DC143C", Emoji: "🍓"},
				{Name: "Tea", Count: 50, Color: "#228B22", Emoji: "🍵"},
				{Name: "Coffee", Count: 45, Color: "#8B4513", Emoji: "☕"},
			},
		},
		{
			Name:              Ecommerce,
			TotalTransactions: 100,
			Items: []types.Item{
				{Name: "Laptop", Count: 40, Color: "#708090", Emoji: "💻"},
				{Name: "Mouse", Count: 70, Color: "#FF4500", Emoji: "🖱️"},
				{Name: "Monitor", Count: 30, Color: "#4169E1", Emoji: "🖥️"},
				{Name: "Keyboard", Count: 65, Color: "#2F4F4F", Emoji: "⌨️"},
				{Name: "Headset", Count: 55, Color: "#BA55D3", Emoji: "🎧"},
			},
		},
		{
			// Total raised to 200 so no item count exceeds it.
			Name:              Bookstore,
			TotalTransactions: 200,
			Items: []types.Item{
				{Name: "Fiction", Count: 180, Color: "#9370DB", Emoji: "📚"},
				{Name: "Non-Fiction", Count: 120, Color: "#3CB371", Emoji: "📖"},
				{Name: "Manga", Count: 140, Color: "#FF69B4", Emoji: "🍥"},
				{Name: "History", Count: 60, Color: "#A0522D", Emoji: "📜"},
			},
		},
	}
}

// Catalogues is a name-indexed set of item catalogues.
type Catalogues struct {
	byName map[string]types.Catalogue
}

// NewCatalogues returns the shipped catalogues.
func NewCatalogues() *Catalogues {
	c := &Catalogues{byName: make(map[string]types.Catalogue)}
	c.Merge(builtin())
	return c
}

// Merge adds or replaces catalogues by name.
func (c *Catalogues) Merge(list []types.Catalogue) {
	for _, cat := range list {
		c.byName[cat.Name] = cat
	}
}

// Get returns a copy of the named catalogue.
func (c *Catalogues) Get(name string) (types.Catalogue, error) {
	cat, ok := c.byName[name]
	if !ok {
		return types.Catalogue{}, errors.InvalidParameter("dataset",
			"unknown catalogue %q (have %s)", name, strings.Join(c.Names(), ", "))
	}
	cat.Items = append([]types.Item(nil), cat.Items...)
	return cat, nil
}

// Names returns catalogue names in sorted order.
func (c *Catalogues) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every catalogue sorted by name.
func (c *Catalogues) All() []types.Catalogue {
	out := make([]types.Catalogue, 0, len(c.byName))
	for _, name := range c.Names() {
		cat, _ := c.Get(name)
		out = append(out, cat)
	}
	return out
}

type catalogueFile struct {
	Catalogues []types.Catalogue `yaml:"catalogues" toml:"catalogues"`
}

// LoadCatalogues reads catalogues from a YAML (.yaml, .yml) or TOML (.toml) file.
func LoadCatalogues(path string) ([]types.Catalogue, error) {
	var file catalogueFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return nil, errors.Wrapf(err, "decode toml catalogue %s", path)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read catalogue %s", path)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrapf(err, "decode yaml catalogue %s", path)
		}
	default:
		return nil, errors.InvalidParameter("path", "unsupported catalogue format %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}

	for i, cat := range file.Catalogues {
		if cat.Name == "" {
			return nil, errors.InvalidParameter("catalogues", "catalogue %d in %s has no name", i, path)
		}
		if cat.TotalTransactions <= 0 {
			return nil, errors.InvalidParameter("catalogues",
				"catalogue %q in %s needs total_transactions > 0", cat.Name, path)
		}
	}
	return file.Catalogues, nil
}
