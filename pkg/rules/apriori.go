package rules

import (
	"sort"
	"strings"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// Transactions is a basket scan ready to feed Miner.Mine.
type Transactions struct {
	// Items in order of first appearance (alphabetical within a basket)
	Items []types.Item

	// Total is the number of baskets scanned
	Total int

	// Counts serves measured pair co-occurrences
	Counts *TransactionCounts
}

// CountTransactions scans baskets once for item and pair counts.
// Duplicate and empty entries inside a basket are ignored.
func CountTransactions(baskets [][]string) (*Transactions, error) {
	if len(baskets) == 0 {
		return nil, errors.InvalidParameter("baskets", "no transactions")
	}

	index := make(map[string]int)
	var items []types.Item
	pairs := make(map[[2]string]int)

	for _, basket := range baskets {
		set := normalize(basket)
		for _, name := range set {
			i, ok := index[name]
			if !ok {
				i = len(items)
				index[name] = i
				items = append(items, types.Item{Name: name})
			}
			items[i].Count++
		}
		for x := 0; x < len(set); x++ {
			for y := x + 1; y < len(set); y++ {
				pairs[[2]string{set[x], set[y]}]++
			}
		}
	}

	return &Transactions{
		Items:  items,
		Total:  len(baskets),
		Counts: &TransactionCounts{pairs: pairs},
	}, nil
}

// FrequentItemsets runs level-wise Apriori over baskets. Candidates of size n
// are joined from frequent (n-1)-itemsets sharing their first n-2 items, and
// dropped when any (n-1)-subset is infrequent. maxSize 0 means no size cap.
// Results are sorted by size, then lexicographically.
func FrequentItemsets(baskets [][]string, minSupport float64, maxSize int) ([]types.Itemset, error) {
	if len(baskets) == 0 {
		return nil, errors.InvalidParameter("baskets", "no transactions")
	}
	if !(minSupport >= 0 && minSupport <= 1) {
		return nil, errors.InvalidParameter("minSupport", "must be in [0, 1], got %v", minSupport)
	}
	if maxSize < 0 {
		return nil, errors.InvalidParameter("maxSize", "must be >= 0, got %d", maxSize)
	}

	total := float64(len(baskets))
	sets := make([]map[string]struct{}, len(baskets))
	singles := make(map[string]int)
	for i, b := range baskets {
		norm := normalize(b)
		sets[i] = make(map[string]struct{}, len(norm))
		for _, name := range norm {
			sets[i][name] = struct{}{}
			singles[name]++
		}
	}

	frequent := func(count int) bool {
		return count > 0 && float64(count)/total >= minSupport
	}

	var result []types.Itemset
	var level [][]string
	for name, count := range singles {
		if frequent(count) {
			level = append(level, []string{name})
			result = append(result, types.Itemset{
				Items:   []string{name},
				Count:   count,
				Support: float64(count) / total,
			})
		}
	}
	sortItemsets(level)

	for size := 2; len(level) > 1 && (maxSize == 0 || size <= maxSize); size++ {
		known := make(map[string]struct{}, len(level))
		for _, set := range level {
			known[key(set)] = struct{}{}
		}

		var next [][]string
		for _, cand := range join(level) {
			if !closed(cand, known) {
				continue
			}
			count := 0
			for _, s := range sets {
				if containsAll(s, cand) {
					count++
				}
			}
			if frequent(count) {
				next = append(next, cand)
				result = append(result, types.Itemset{
					Items:   cand,
					Count:   count,
					Support: float64(count) / total,
				})
			}
		}
		sortItemsets(next)
		level = next
	}

	sort.Slice(result, func(i, j int) bool {
		if len(result[i].Items) != len(result[j].Items) {
			return len(result[i].Items) < len(result[j].Items)
		}
		return key(result[i].Items) < key(result[j].Items)
	})
	return result, nil
}

// join pairs sorted itemsets that agree on all but their last item.
func join(level [][]string) [][]string {
	var out [][]string
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			a, b := level[i], level[j]
			n := len(a)
			if !equal(a[:n-1], b[:n-1]) {
				// level is sorted, so no later b shares a's prefix either
				break
			}
			cand := make([]string, n+1)
			copy(cand, a)
			cand[n] = b[n-1]
			out = append(out, cand)
		}
	}
	return out
}

// closed reports whether every (n-1)-subset of cand is known frequent.
func closed(cand []string, known map[string]struct{}) bool {
	sub := make([]string, 0, len(cand)-1)
	for skip := range cand {
		sub = sub[:0]
		for i, name := range cand {
			if i != skip {
				sub = append(sub, name)
			}
		}
		if _, ok := known[key(sub)]; !ok {
			return false
		}
	}
	return true
}

func containsAll(set map[string]struct{}, items []string) bool {
	for _, name := range items {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}

// normalize returns the distinct non-empty entries of basket, sorted so pair
// keys are canonical.
func normalize(basket []string) []string {
	seen := make(map[string]struct{}, len(basket))
	out := make([]string, 0, len(basket))
	for _, name := range basket {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortItemsets(sets [][]string) {
	sort.Slice(sets, func(i, j int) bool { return key(sets[i]) < key(sets[j]) })
}

func key(items []string) string {
	return strings.Join(items, "\x00")
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
